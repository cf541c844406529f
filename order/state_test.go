package order

import "testing"

func TestSideHelpers(t *testing.T) {
	if Buy.Sign() != 1 || Sell.Sign() != -1 {
		t.Fatalf("unexpected signs")
	}
	if Buy.Opposite() != Sell || Sell.Opposite() != Buy {
		t.Fatalf("unexpected opposite")
	}
	if Buy.String() != "BUY" || Sell.String() != "SELL" {
		t.Fatalf("unexpected names")
	}
}

func TestStateMachineTransitions(t *testing.T) {
	sm := NewStateMachine()
	legal := [][2]Status{
		{StatusActive, StatusPartial},
		{StatusActive, StatusFilled},
		{StatusActive, StatusCanceled},
		{StatusPartial, StatusPartial},
		{StatusPartial, StatusFilled},
		{StatusPartial, StatusCanceled},
		{StatusActive, StatusActive},
	}
	for _, tr := range legal {
		if err := sm.ValidateTransition(tr[0], tr[1]); err != nil {
			t.Fatalf("%s -> %s should be legal: %v", tr[0], tr[1], err)
		}
	}
	illegal := [][2]Status{
		{StatusFilled, StatusPartial},
		{StatusCanceled, StatusActive},
		{StatusFilled, StatusFilled},
		{StatusPartial, StatusActive},
	}
	for _, tr := range illegal {
		if err := sm.ValidateTransition(tr[0], tr[1]); err == nil {
			t.Fatalf("%s -> %s should be illegal", tr[0], tr[1])
		}
	}
	if !sm.IsFinalState(StatusFilled) || sm.IsFinalState(StatusPartial) {
		t.Fatalf("unexpected final states")
	}
	if !sm.IsActiveState(StatusActive) || sm.IsActiveState(StatusCanceled) {
		t.Fatalf("unexpected active states")
	}
}
