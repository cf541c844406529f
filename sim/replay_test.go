package sim

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"pair-maker-go/internal/engine"
	"pair-maker-go/market"
)

func TestReplayerSkipsCommentsAndBlankLines(t *testing.T) {
	src := `# recorded session
{"type":"book","data":{"instrument":0,"seq":1,"askPrices":[10000],"askVolumes":[5],"bidPrices":[9900],"bidVolumes":[5]}}

{"type":"error","data":{"orderId":3,"message":"bad"}}
`
	rp := NewReplayer(strings.NewReader(src))
	ev, err := rp.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if b, ok := ev.(engine.BookUpdate); !ok || b.Instrument != market.Primary || b.Seq != 1 {
		t.Fatalf("unexpected first event %#v", ev)
	}
	ev, err = rp.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if e, ok := ev.(engine.ErrorReport); !ok || e.OrderID != 3 {
		t.Fatalf("unexpected second event %#v", ev)
	}
	if rp.Line() != 4 {
		t.Fatalf("line = %d, want 4", rp.Line())
	}
	if _, err := rp.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestReplayerReportsLine(t *testing.T) {
	rp := NewReplayer(strings.NewReader("\n{\"type\":\"bogus\",\"data\":{}}\n"))
	_, err := rp.Next()
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected error on line 2, got %v", err)
	}
}

type countingSink struct{ n int }

func (c *countingSink) Submit(engine.Event) bool {
	c.n++
	return true
}

func TestRecorderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	next := &countingSink{}
	rec := NewRecorder(&buf, next)
	events := []engine.Event{
		engine.TradeTicks{Instrument: market.Primary, Seq: 2, BidPrices: []int64{9950}, BidVolumes: []int64{10}},
		engine.OrderStatus{OrderID: 1, FillVolume: 5, RemainingVolume: 45},
		engine.HedgeFilled{OrderID: 2, AveragePrice: 9900, Volume: 5},
	}
	for _, ev := range events {
		if !rec.Submit(ev) {
			t.Fatal("submit rejected")
		}
	}
	if rec.Err() != nil || next.n != 3 {
		t.Fatalf("err=%v forwarded=%d", rec.Err(), next.n)
	}

	rp := NewReplayer(&buf)
	for i, want := range events {
		got, err := rp.Next()
		if err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if got.Kind() != want.Kind() {
			t.Fatalf("event %d kind = %s, want %s", i, got.Kind(), want.Kind())
		}
	}
}
