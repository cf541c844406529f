package alert

import (
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"pair-maker-go/infrastructure/logger"
)

func TestSendAlert(t *testing.T) {
	mock := NewMockChannel("mock")
	mgr := NewManager([]Channel{mock}, 5*time.Minute)

	if err := mgr.SendWarning("hedge sent", map[string]interface{}{"delta": 15}); err != nil {
		t.Fatalf("SendWarning failed: %v", err)
	}
	if mock.Count() != 1 {
		t.Fatalf("expected 1 alert, got %d", mock.Count())
	}
	a := mock.GetAlerts()[0]
	if a.Level != LevelWarning || a.Fields["delta"] != 15 || a.Timestamp.IsZero() {
		t.Fatalf("unexpected alert %+v", a)
	}
}

func TestThrottleSkipsCritical(t *testing.T) {
	mock := NewMockChannel("mock")
	mgr := NewManager([]Channel{mock}, time.Hour)

	for i := 0; i < 3; i++ {
		_ = mgr.SendWarning("same", nil)
		_ = mgr.SendCritical("invariant", nil)
	}
	if mock.Count() != 4 {
		t.Fatalf("expected 1 warning + 3 critical, got %d", mock.Count())
	}

	if mgr.Suppressed() != 2 {
		t.Fatalf("expected 2 suppressed warnings, got %d", mgr.Suppressed())
	}
}

func TestThrottleKeyedByRule(t *testing.T) {
	mock := NewMockChannel("mock")
	mgr := NewManager([]Channel{mock}, time.Hour)

	_ = mgr.SendWarning("hedge rejected", map[string]interface{}{"side": "SELL", "id": 1})
	_ = mgr.SendWarning("hedge rejected", map[string]interface{}{"side": "SELL", "id": 2})
	_ = mgr.SendWarning("hedge rejected", map[string]interface{}{"side": "BUY", "id": 3})
	if mock.Count() != 2 {
		t.Fatalf("one alert per side expected, got %d", mock.Count())
	}
}

func TestThrottlerWindow(t *testing.T) {
	now := time.Unix(0, 0)
	th := NewThrottler(time.Minute)
	th.now = func() time.Time { return now }
	if !th.Allow("k") || th.Allow("k") {
		t.Fatal("second call inside the window must be throttled")
	}
	now = now.Add(time.Minute)
	if !th.Allow("k") {
		t.Fatal("window elapsed")
	}
}

func TestAllChannelsFailing(t *testing.T) {
	bad := NewMockChannel("bad")
	bad.SetShouldError(true)
	mgr := NewManager([]Channel{bad}, time.Minute)
	if err := mgr.SendError("x", nil); err == nil {
		t.Fatal("expected error when every channel fails")
	}

	good := NewMockChannel("good")
	mgr.AddChannel(good)
	if err := mgr.SendError("y", nil); err != nil {
		t.Fatalf("one channel succeeded: %v", err)
	}
}

func TestZapChannel(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ch := NewZapChannel("zap", logger.NewWithCore(core))
	mgr := NewManager([]Channel{ch}, time.Minute)

	_ = mgr.SendCritical("invariant violated", map[string]interface{}{"rule": "zero-sum"})
	entries := logs.FilterMessage("invariant violated").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.ErrorLevel || entries[0].ContextMap()["rule"] != "zero-sum" {
		t.Fatalf("unexpected entry %+v", entries[0])
	}
}
