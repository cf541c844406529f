package risk

import (
	"errors"
	"testing"

	"pair-maker-go/market"
	"pair-maker-go/order"
)

func TestCircuitBreaker(t *testing.T) {
	cb := NewCircuitBreaker(0.01, 5, 3)
	// stable prices
	for seq := int64(1); seq <= 5; seq++ {
		if cb.OnMid(seq, 10000) {
			t.Fatalf("did not expect trip at seq %d", seq)
		}
	}
	if err := cb.PreOrder(market.Primary, order.Buy, 10); err != nil {
		t.Fatalf("closed breaker rejected: %v", err)
	}

	// 2% jump inside the window
	if !cb.OnMid(6, 10200) {
		t.Fatalf("expected trip")
	}
	if !cb.Tripped() || cb.Trips() != 1 {
		t.Fatalf("tripped=%v trips=%d", cb.Tripped(), cb.Trips())
	}
	if err := cb.PreOrder(market.Primary, order.Sell, 10); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if err := cb.PreOrder(market.Hedge, order.Sell, 10); err != nil {
		t.Fatalf("hedge leg must pass, got %v", err)
	}

	// still cooling down
	if cb.OnMid(7, 10400) || !cb.Tripped() {
		t.Fatalf("expected no new trip during cooldown")
	}
	// cooldown over, price stable from here
	if cb.OnMid(9, 10400) {
		t.Fatalf("stale move must not re-trip")
	}
	if cb.Tripped() {
		t.Fatalf("expected breaker closed after cooldown")
	}
}

func TestCircuitBreakerWindow(t *testing.T) {
	cb := NewCircuitBreaker(0.01, 3, 3)
	cb.OnMid(1, 10000)
	// the 10000 sample ages out before the move completes
	cb.OnMid(5, 10100)
	if cb.OnMid(6, 10150) {
		t.Fatalf("move spread over more than the window must not trip")
	}

	var disabled *CircuitBreaker
	if disabled.OnMid(1, 1) || disabled.Tripped() {
		t.Fatalf("nil breaker must be inert")
	}
	if err := disabled.PreOrder(market.Primary, order.Buy, 1); err != nil {
		t.Fatalf("nil breaker rejected: %v", err)
	}
	if NewCircuitBreaker(0, 3, 3).OnMid(2, 1) {
		t.Fatalf("zero threshold must never trip")
	}
}
