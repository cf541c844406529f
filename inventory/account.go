package inventory

import (
	"sync"

	"github.com/shopspring/decimal"

	"pair-maker-go/market"
	"pair-maker-go/order"
)

// Account 汇总两条腿的成交、手续费与盈亏。仓位由成交回报驱动，
// 与账本（由订单状态驱动）分开维护，二者的差异由 CheckSync 报告。
type Account struct {
	trackers [2]*Tracker
	mu       sync.RWMutex
	fees     decimal.Decimal
	fills    int64
}

func NewAccount() *Account {
	return &Account{trackers: [2]*Tracker{{}, {}}}
}

// Tracker 返回品种对应的仓位跟踪器。
func (a *Account) Tracker(inst market.Instrument) *Tracker {
	if !inst.Valid() {
		return nil
	}
	return a.trackers[inst]
}

// OnFill 记录一笔成交。
func (a *Account) OnFill(inst market.Instrument, side order.Side, price, volume int64) {
	t := a.Tracker(inst)
	if t == nil || volume <= 0 {
		return
	}
	t.Update(side, price, volume)
	a.mu.Lock()
	a.fills++
	a.mu.Unlock()
}

// PostFees 累加手续费增量（负数为返佣）。
func (a *Account) PostFees(delta int64) {
	if delta == 0 {
		return
	}
	a.mu.Lock()
	a.fees = a.fees.Add(decimal.NewFromInt(delta))
	a.mu.Unlock()
}

func (a *Account) Fees() decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.fees
}

// Statement 账户快照，金额以价格单位（分）计。
type Statement struct {
	Positions  map[string]int64 `json:"positions"`
	Realized   decimal.Decimal  `json:"realized"`
	Unrealized decimal.Decimal  `json:"unrealized"`
	Fees       decimal.Decimal  `json:"fees"`
	Net        decimal.Decimal  `json:"net"`
	Fills      int64            `json:"fills"`
}

// Statement 用各品种的 mid 估值；mid 为 0 的品种不计未实现盈亏。
func (a *Account) Statement(mids [2]float64) Statement {
	st := Statement{Positions: make(map[string]int64, 2)}
	for _, inst := range []market.Instrument{market.Primary, market.Hedge} {
		t := a.trackers[inst]
		st.Realized = st.Realized.Add(t.Realized())
		if mids[inst] > 0 {
			net, pnl := t.Valuation(decimal.NewFromFloat(mids[inst]))
			st.Positions[inst.String()] = net
			st.Unrealized = st.Unrealized.Add(pnl)
		} else {
			st.Positions[inst.String()] = t.NetExposure()
		}
	}
	a.mu.RLock()
	st.Fees = a.fees
	st.Fills = a.fills
	a.mu.RUnlock()
	st.Net = st.Realized.Add(st.Unrealized).Sub(st.Fees)
	return st
}
