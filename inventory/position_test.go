package inventory

import (
	"testing"

	"github.com/shopspring/decimal"

	"pair-maker-go/order"
)

func TestTrackerUpdate(t *testing.T) {
	var tr Tracker
	tr.Update(order.Buy, 10000, 10)
	if tr.NetExposure() != 10 {
		t.Fatalf("expected net 10")
	}
	if !tr.AvgCost().Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("expected cost 10000 got %s", tr.AvgCost())
	}
	tr.Update(order.Buy, 10200, 10)
	if !tr.AvgCost().Equal(decimal.NewFromInt(10100)) {
		t.Fatalf("unexpected avg cost %s", tr.AvgCost())
	}
}

func TestTrackerRealizesOnReduce(t *testing.T) {
	var tr Tracker
	tr.Update(order.Buy, 10000, 20)
	tr.Update(order.Sell, 10300, 5)
	if tr.NetExposure() != 15 {
		t.Fatalf("net = %d", tr.NetExposure())
	}
	if !tr.Realized().Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("realized = %s", tr.Realized())
	}
	if !tr.AvgCost().Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("reducing must not move the average cost: %s", tr.AvgCost())
	}
}

func TestTrackerFlip(t *testing.T) {
	var tr Tracker
	tr.Update(order.Sell, 10000, 10)
	tr.Update(order.Buy, 9900, 25) // 平 10 赚 1000，反手多 15 @9900
	if tr.NetExposure() != 15 {
		t.Fatalf("net = %d", tr.NetExposure())
	}
	if !tr.Realized().Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("realized = %s", tr.Realized())
	}
	if !tr.AvgCost().Equal(decimal.NewFromInt(9900)) {
		t.Fatalf("cost after flip = %s", tr.AvgCost())
	}

	tr.Update(order.Sell, 9900, 15)
	if tr.NetExposure() != 0 || !tr.AvgCost().IsZero() {
		t.Fatalf("flat tracker should reset cost, got net=%d cost=%s", tr.NetExposure(), tr.AvgCost())
	}
	tr.Update(order.Sell, 1, 0)
	if tr.NetExposure() != 0 {
		t.Fatal("zero volume must be ignored")
	}
}
