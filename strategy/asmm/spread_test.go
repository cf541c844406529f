package asmm

import (
	"errors"
	"math"
	"testing"
)

func TestAvellanedaStoikovSpread(t *testing.T) {
	got, err := avellanedaStoikov(5, 100, 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 5*100*1 + 2*math.Log(1+0.5)/5
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("spread = %v, want %v", got, want)
	}

	if _, err := avellanedaStoikov(5, 100, 1, 0); !errors.Is(err, ErrNoLiquidity) {
		t.Fatalf("expected ErrNoLiquidity, got %v", err)
	}
}

func TestRoundingIsOutward(t *testing.T) {
	cases := []struct {
		price    float64
		bid, ask int64
	}{
		{9850, 9800, 9900},
		{9900, 9900, 9900},
		{10050.01, 10000, 10100},
		{99.9, 0, 100},
	}
	for _, c := range cases {
		if got := RoundBid(c.price, 100); got != c.bid {
			t.Errorf("RoundBid(%v) = %d, want %d", c.price, got, c.bid)
		}
		if got := RoundAsk(c.price, 100); got != c.ask {
			t.Errorf("RoundAsk(%v) = %d, want %d", c.price, got, c.ask)
		}
	}
}
