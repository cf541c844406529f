package risk

import (
	"errors"
	"testing"
	"time"

	"pair-maker-go/market"
	"pair-maker-go/order"
)

type stubGuard struct {
	err   error
	calls int
}

func (s *stubGuard) PreOrder(inst market.Instrument, side order.Side, volume int64) error {
	s.calls++
	return s.err
}

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func TestMultiGuard(t *testing.T) {
	pass := &stubGuard{}
	fail := &stubGuard{err: ErrTooFrequent}
	after := &stubGuard{}
	g := MultiGuard{Guards: []Guard{pass, nil, fail, after}}
	if err := g.PreOrder(market.Primary, order.Buy, 1); !errors.Is(err, ErrTooFrequent) {
		t.Fatalf("expected ErrTooFrequent, got %v", err)
	}
	if after.calls != 0 {
		t.Fatalf("guards after a failure must not run")
	}
}

func TestThrottle(t *testing.T) {
	clk := &fixedClock{now: time.Unix(1_700_000_000, 0)}
	th := NewThrottle(2, 1, clk)

	if err := th.PreOrder(market.Primary, order.Buy, 10); err != nil {
		t.Fatalf("first order should pass: %v", err)
	}
	if err := th.PreOrder(market.Primary, order.Buy, 10); !errors.Is(err, ErrTooFrequent) {
		t.Fatalf("expected ErrTooFrequent, got %v", err)
	}
	clk.now = clk.now.Add(500 * time.Millisecond)
	if err := th.PreOrder(market.Primary, order.Sell, 10); err != nil {
		t.Fatalf("token should refill after 500ms: %v", err)
	}

	unlimited := NewThrottle(0, 0, clk)
	for i := 0; i < 100; i++ {
		if err := unlimited.PreOrder(market.Hedge, order.Sell, 1); err != nil {
			t.Fatalf("unlimited throttle rejected: %v", err)
		}
	}
}

func TestBuildGuards(t *testing.T) {
	l := order.NewLedger(100)
	g := BuildGuards(&Limits{NetMax: 100}, l, NewThrottle(0, 1, nil))
	if err := g.PreOrder(market.Primary, order.Buy, 100); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if err := g.PreOrder(market.Primary, order.Buy, 101); !errors.Is(err, ErrNetExceed) {
		t.Fatalf("expected ErrNetExceed, got %v", err)
	}
}
