package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pair-maker-go/internal/engine"
)

type chanSink struct {
	ch     chan engine.Event
	refuse bool
}

func newChanSink() *chanSink { return &chanSink{ch: make(chan engine.Event, 8)} }

func (s *chanSink) Submit(ev engine.Event) bool {
	if s.refuse {
		return false
	}
	s.ch <- ev
	return true
}

func loadFile(t *testing.T, path string) AppConfig {
	t.Helper()
	cfg, err := Load(path)
	require.NoError(t, err)
	return cfg
}

func TestWatcherReloadSubmitsUpdate(t *testing.T) {
	path := writeTempConfig(t, minimalConfig)
	sink := newChanSink()
	w, err := NewWatcher(path, loadFile(t, path), sink, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte(minimalConfig+`
pricing:
  gamma: 1.5
hedging:
  cooldown: 42
`), 0o644))
	require.NoError(t, w.Reload())

	ev := <-sink.ch
	up, ok := ev.(engine.ParamsUpdate)
	require.True(t, ok)
	assert.Equal(t, 1.5, up.Pricing.Gamma)
	assert.Equal(t, int64(42), up.Hedging.Cooldown)
	reloads, failures := w.Stats()
	assert.Equal(t, 1, reloads)
	assert.Zero(t, failures)
	assert.False(t, w.GetLastReloadTime().IsZero())
}

func TestWatcherPinsRestartOnlySections(t *testing.T) {
	path := writeTempConfig(t, minimalConfig)
	sink := newChanSink()
	w, err := NewWatcher(path, loadFile(t, path), sink, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte(minimalConfig+`
engine:
  tick_size: 50
  position_limit: 60
  net_max: 60
quoting:
  initial_size: 30
`), 0o644))
	require.NoError(t, w.Reload())

	up := (<-sink.ch).(engine.ParamsUpdate)
	assert.Equal(t, int64(100), up.Pricing.TickSize)
	assert.Equal(t, int64(100), up.Hedging.TickSize)
	assert.Equal(t, int64(100), up.Quoting.PositionLimit)
	assert.Equal(t, int64(30), up.Quoting.InitialSize)
	assert.Equal(t, int64(60), up.Limits.NetMax)
	assert.Equal(t, int64(100), w.Current().Engine.PositionLimit)
}

func TestWatcherRejectsInvalidFile(t *testing.T) {
	path := writeTempConfig(t, minimalConfig)
	sink := newChanSink()
	w, err := NewWatcher(path, loadFile(t, path), sink, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte(minimalConfig+"pricing:\n  gamma: -1\n"), 0o644))
	assert.Error(t, w.Reload())
	assert.Empty(t, sink.ch)
	_, failures := w.Stats()
	assert.Equal(t, 1, failures)

	sink.refuse = true
	require.NoError(t, os.WriteFile(path, []byte(minimalConfig), 0o644))
	assert.Error(t, w.Reload())
}

func TestWatcherRunDebouncesWrites(t *testing.T) {
	path := writeTempConfig(t, minimalConfig)
	cfg := loadFile(t, path)
	cfg.Agent.Watch.Debounce = 200 * time.Millisecond
	sink := newChanSink()
	w, err := NewWatcher(path, cfg, sink, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for _, g := range []string{"2", "3", "4"} {
		require.NoError(t, os.WriteFile(path, []byte(minimalConfig+"pricing:\n  gamma: "+g+"\n"), 0o644))
	}

	select {
	case ev := <-sink.ch:
		assert.Equal(t, 4.0, ev.(engine.ParamsUpdate).Pricing.Gamma)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a params update")
	}
	select {
	case ev := <-sink.ch:
		t.Fatalf("writes were not coalesced: %#v", ev)
	case <-time.After(400 * time.Millisecond):
	}

	cancel()
	require.NoError(t, <-done)
}

func TestNewWatcherRequiresSink(t *testing.T) {
	_, err := NewWatcher(writeTempConfig(t, minimalConfig), Default(), nil, nil)
	assert.Error(t, err)
}
