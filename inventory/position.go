package inventory

import (
	"sync"

	"github.com/shopspring/decimal"

	"pair-maker-go/order"
)

// Tracker 维护单个品种的净仓位、加权平均成本与已实现盈亏。
type Tracker struct {
	mu       sync.RWMutex
	net      int64
	cost     decimal.Decimal
	realized decimal.Decimal
}

// Update 根据成交调整仓位；减仓部分按均价结算盈亏，反手后均价取成交价。
func (t *Tracker) Update(side order.Side, price, volume int64) {
	if volume <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	px := decimal.NewFromInt(price)
	delta := side.Sign() * volume
	switch {
	case t.net == 0 || (t.net > 0) == (delta > 0):
		held := decimal.NewFromInt(absInt(t.net))
		total := t.cost.Mul(held).Add(px.Mul(decimal.NewFromInt(volume)))
		t.net += delta
		t.cost = total.Div(decimal.NewFromInt(absInt(t.net)))
	default:
		closed := min(volume, absInt(t.net))
		pnl := px.Sub(t.cost).Mul(decimal.NewFromInt(closed))
		if t.net < 0 {
			pnl = pnl.Neg()
		}
		t.realized = t.realized.Add(pnl)
		t.net += delta
		switch {
		case t.net == 0:
			t.cost = decimal.Zero
		case volume > closed:
			t.cost = px
		}
	}
}

func (t *Tracker) NetExposure() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.net
}

func (t *Tracker) AvgCost() decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cost
}

func (t *Tracker) Realized() decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.realized
}

func absInt(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
