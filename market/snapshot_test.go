package market

import (
	"errors"
	"testing"
)

func TestNewSnapshotDropsPadding(t *testing.T) {
	s := NewSnapshot(Primary, 7,
		[]int64{10000, 10100, 0, 0, 0}, []int64{5, 8, 0, 0, 0},
		[]int64{9900, 0, 0, 0, 0}, []int64{3, 0, 0, 0, 0})
	if len(s.Asks) != 2 || len(s.Bids) != 1 {
		t.Fatalf("unexpected levels bids=%v asks=%v", s.Bids, s.Asks)
	}
	if s.Seq != 7 || s.Instrument != Primary {
		t.Fatalf("unexpected header %+v", s)
	}
	if mid := s.Mid(); mid != 9950 {
		t.Fatalf("mid = %v, want 9950", mid)
	}
	if !s.HasTopOfBook() {
		t.Fatalf("expected top of book")
	}
}

func TestNewSnapshotKeepsAtMostDepth(t *testing.T) {
	prices := []int64{1, 2, 3, 4, 5, 6, 7}
	vols := []int64{1, 1, 1, 1, 1, 1, 1}
	s := NewSnapshot(Hedge, 1, prices, vols, prices, vols)
	if len(s.Asks) != DefaultDepth || len(s.Bids) != DefaultDepth {
		t.Fatalf("expected %d levels, got %d/%d", DefaultDepth, len(s.Bids), len(s.Asks))
	}
}

func TestSnapshotMidMissingSide(t *testing.T) {
	s := NewSnapshot(Primary, 1, nil, nil, []int64{100}, []int64{1})
	if s.Mid() != 0 || s.HasTopOfBook() {
		t.Fatalf("one-sided book should have no mid")
	}
}

func TestEffectiveMid(t *testing.T) {
	s := NewSnapshot(Primary, 1,
		[]int64{10000, 10100}, []int64{5, 10},
		[]int64{9900, 9800}, []int64{10, 10})
	// buy 10: 5@10000 + 5@10100 = 10050; sell 10: 10@9900
	got, err := s.EffectiveMid(10)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != (10050.0+9900.0)/2 {
		t.Fatalf("effective mid = %v", got)
	}

	if _, err := s.EffectiveMid(100); !errors.Is(err, ErrInsufficientDepth) {
		t.Fatalf("expected ErrInsufficientDepth, got %v", err)
	}

	// size 0 falls back to one lot of 10
	zero, err := s.EffectiveMid(0)
	if err != nil || zero != got {
		t.Fatalf("size 0 = %v (%v), want %v", zero, err, got)
	}
}
