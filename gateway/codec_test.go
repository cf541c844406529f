package gateway

import (
	"errors"
	"testing"

	"pair-maker-go/internal/engine"
	"pair-maker-go/market"
	"pair-maker-go/order"
)

func TestDecodeBookEvent(t *testing.T) {
	raw := []byte(`{
		"type":"book",
		"data":{
		  "instrument":1,
		  "seq":42,
		  "askPrices":[10000,10100,0,0,0],
		  "askVolumes":[5,7,0,0,0],
		  "bidPrices":[9900,9800,0,0,0],
		  "bidVolumes":[3,4,0,0,0]
		}
	}`)
	ev, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("decode err: %v", err)
	}
	b, ok := ev.(engine.BookUpdate)
	if !ok {
		t.Fatalf("expected BookUpdate, got %T", ev)
	}
	snap := b.Snapshot()
	if snap.Instrument != market.Hedge || snap.Seq != 42 || len(snap.Asks) != 2 || snap.BestBid().Price != 9900 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestDecodeStatusAndHedge(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"type":"status","data":{"orderId":7,"fillVolume":10,"remainingVolume":0,"fees":-2}}`))
	if err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if st := ev.(engine.OrderStatus); st.OrderID != 7 || st.FillVolume != 10 || st.Fees != -2 {
		t.Fatalf("unexpected status %+v", st)
	}

	ev, err = DecodeEvent([]byte(`{"type":"hedge","data":{"orderId":8,"averagePrice":9950,"volume":0}}`))
	if err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if h := ev.(engine.HedgeFilled); h.OrderID != 8 || h.Volume != 0 {
		t.Fatalf("unexpected hedge fill %+v", h)
	}
}

func TestDecodeRejectsUnknownTypes(t *testing.T) {
	for _, raw := range []string{
		`{"type":"params","data":{}}`,
		`{"type":"nope","data":{}}`,
	} {
		if _, err := DecodeEvent([]byte(raw)); !errors.Is(err, ErrUnknownMessage) {
			t.Fatalf("%s: expected ErrUnknownMessage, got %v", raw, err)
		}
	}
	if _, err := DecodeEvent([]byte(`not json`)); err == nil {
		t.Fatal("expected envelope error")
	}
}

func TestCommandRoundTrip(t *testing.T) {
	raw, err := EncodeCommand(InsertCommand{ID: 3, Side: order.Sell.String(), Price: 10100, Volume: 50, Lifespan: "GFD"})
	if err != nil {
		t.Fatalf("encode err: %v", err)
	}
	cmd, err := DecodeCommand(raw)
	if err != nil {
		t.Fatalf("decode err: %v", err)
	}
	ins, ok := cmd.(InsertCommand)
	if !ok || ins.ID != 3 || ins.Price != 10100 {
		t.Fatalf("unexpected command %#v", cmd)
	}
	side, err := ParseSide(ins.Side)
	if err != nil || side != order.Sell {
		t.Fatalf("side = %v, %v", side, err)
	}
	if _, err := ParseSide("HOLD"); err == nil {
		t.Fatal("expected error for unknown side")
	}
}
