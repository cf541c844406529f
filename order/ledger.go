package order

import (
	"errors"
	"fmt"
	"sort"

	"pair-maker-go/market"
)

var (
	ErrUnknownOrder  = errors.New("unknown order")
	ErrDuplicateID   = errors.New("duplicate order id")
	ErrInvalidOrder  = errors.New("invalid order")
	ErrWrongKind     = errors.New("order kind mismatch")
	ErrAmendIncrease = errors.New("amend must decrease volume")
)

// Update 描述一次回报对账本的影响。
type Update struct {
	Order     Order // 更新后的订单拷贝
	Filled    int64 // 本次新增成交
	FeesDelta int64
	Terminal  bool // 订单已退役
	Canceled  bool // 以撤单结束（未全部成交）
}

// Ledger tracks every active quote and hedge order, the signed position per
// instrument and the outstanding quote volume on the Primary instrument.
// It is owned by a single event loop and is not safe for concurrent use.
type Ledger struct {
	limit     int64
	orders    map[uint64]*Order
	amended   map[uint64]int64 // 本地已扣减、交易所尚未确认的改单量
	retired   map[uint64]Order
	positions [2]int64
	buy       int64
	sell      int64
	sm        *StateMachine
}

func NewLedger(positionLimit int64) *Ledger {
	return &Ledger{
		limit:   positionLimit,
		orders:  make(map[uint64]*Order),
		amended: make(map[uint64]int64),
		retired: make(map[uint64]Order),
		sm:      NewStateMachine(),
	}
}

// Register 登记新订单；报价单只能在 Primary，对冲单只能在 Hedge。
func (l *Ledger) Register(o Order) error {
	if o.ID == 0 || o.Volume <= 0 || !o.Instrument.Valid() {
		return fmt.Errorf("%w: id=%d volume=%d", ErrInvalidOrder, o.ID, o.Volume)
	}
	if o.Kind == KindQuote && o.Instrument != market.Primary {
		return fmt.Errorf("%w: quote order %d on %s", ErrInvalidOrder, o.ID, o.Instrument)
	}
	if o.Kind == KindHedge && o.Instrument != market.Hedge {
		return fmt.Errorf("%w: hedge order %d on %s", ErrInvalidOrder, o.ID, o.Instrument)
	}
	if _, ok := l.orders[o.ID]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateID, o.ID)
	}
	if _, ok := l.retired[o.ID]; ok {
		return fmt.Errorf("%w: %d (retired)", ErrDuplicateID, o.ID)
	}

	o.Remaining = o.Volume
	o.Filled = 0
	o.Fees = 0
	o.Status = StatusActive
	l.orders[o.ID] = &o
	l.addOutstanding(&o, o.Volume)
	l.CheckInvariants()
	return nil
}

// ApplyStatus applies an order-status report for a quote order. fillVolume
// and fees are cumulative as reported by the venue. The filled delta is the
// growth of the cumulative fill; a remaining volume of zero retires the
// order, as FILLED when the whole volume traded and CANCELED otherwise.
func (l *Ledger) ApplyStatus(id uint64, fillVolume, remainingVolume, fees int64) (Update, error) {
	o, ok := l.orders[id]
	if !ok {
		return Update{}, fmt.Errorf("%w: %d", ErrUnknownOrder, id)
	}
	if o.Kind != KindQuote {
		return Update{}, fmt.Errorf("%w: status for %s order %d", ErrWrongKind, o.Kind, id)
	}
	if remainingVolume < 0 {
		fail("remaining-nonnegative", "order %d reported remaining %d", id, remainingVolume)
	}

	filled := fillVolume - o.Filled
	if filled < 0 {
		fail("fill-monotonic", "order %d cumulative fill went %d -> %d", id, o.Filled, fillVolume)
	}
	pending := l.amended[id]
	if filled > o.Remaining+pending {
		fail("fill-within-remaining", "order %d filled %d with only %d remaining", id, filled, o.Remaining+pending)
	}
	if filled > o.Remaining {
		// 改单尚未生效时已成交：把被扣减的量还回来
		restored := filled - o.Remaining
		l.amended[id] = pending - restored
		o.Volume += restored
		o.Remaining += restored
		l.addOutstanding(o, restored)
	}

	prev := o.Remaining
	next := remainingVolume
	if next > prev-filled {
		// 交易所还没处理我们的改单
		next = prev - filled
	} else {
		delete(l.amended, id)
	}

	l.positions[o.Instrument] += o.Side.Sign() * filled
	l.addOutstanding(o, -(prev - next))
	o.Remaining = next
	o.Filled = fillVolume
	up := Update{Filled: filled, FeesDelta: fees - o.Fees}
	o.Fees = fees

	to := o.Status
	switch {
	case next == 0 && fillVolume == o.Volume:
		to = StatusFilled
	case next == 0:
		to = StatusCanceled
		up.Canceled = true
	case filled > 0:
		to = StatusPartial
	}
	l.transition(o, to)
	if next == 0 {
		up.Terminal = true
		l.retire(o)
	}
	up.Order = *o
	l.CheckInvariants()
	return up, nil
}

// ApplyHedgeFill applies a hedge fill and retires the hedge order whatever
// the filled volume, including zero.
func (l *Ledger) ApplyHedgeFill(id uint64, volume int64) (Update, error) {
	o, ok := l.orders[id]
	if !ok {
		return Update{}, fmt.Errorf("%w: %d", ErrUnknownOrder, id)
	}
	if o.Kind != KindHedge {
		return Update{}, fmt.Errorf("%w: hedge fill for %s order %d", ErrWrongKind, o.Kind, id)
	}
	if volume < 0 || volume > o.Remaining {
		fail("hedge-fill-within-volume", "hedge %d filled %d of %d", id, volume, o.Remaining)
	}

	l.positions[o.Instrument] += o.Side.Sign() * volume
	o.Filled += volume
	o.Remaining = 0
	up := Update{Filled: volume, Terminal: true}
	if o.Filled == o.Volume {
		l.transition(o, StatusFilled)
	} else {
		l.transition(o, StatusCanceled)
		up.Canceled = true
	}
	l.retire(o)
	up.Order = *o
	l.CheckInvariants()
	return up, nil
}

// Amend 本地立即把剩余量降到 remaining，返回交易所口径的新总量（已成交+剩余）。
func (l *Ledger) Amend(id uint64, remaining int64) (int64, error) {
	o, ok := l.orders[id]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownOrder, id)
	}
	if remaining <= 0 {
		return 0, fmt.Errorf("%w: amend %d to %d, cancel instead", ErrInvalidOrder, id, remaining)
	}
	if remaining >= o.Remaining {
		return 0, fmt.Errorf("%w: %d -> %d", ErrAmendIncrease, o.Remaining, remaining)
	}
	diff := o.Remaining - remaining
	o.Remaining = remaining
	o.Volume -= diff
	l.amended[id] += diff
	l.addOutstanding(o, -diff)
	l.CheckInvariants()
	return o.Volume, nil
}

// Reject 交易所拒单或报错：订单直接退役，不改变仓位。
func (l *Ledger) Reject(id uint64) (Order, error) {
	o, ok := l.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("%w: %d", ErrUnknownOrder, id)
	}
	l.addOutstanding(o, -o.Remaining)
	o.Remaining = 0
	l.transition(o, StatusCanceled)
	l.retire(o)
	l.CheckInvariants()
	return *o, nil
}

func (l *Ledger) addOutstanding(o *Order, delta int64) {
	if o.Kind != KindQuote {
		return
	}
	if o.Side == Buy {
		l.buy += delta
	} else {
		l.sell += delta
	}
}

func (l *Ledger) transition(o *Order, to Status) {
	if err := l.sm.ValidateTransition(o.Status, to); err != nil {
		fail("status-transition", "order %d: %v", o.ID, err)
	}
	o.Status = to
}

func (l *Ledger) retire(o *Order) {
	delete(l.orders, o.ID)
	delete(l.amended, o.ID)
	l.retired[o.ID] = *o
}

// Get 返回活跃订单的拷贝。
func (l *Ledger) Get(id uint64) (Order, bool) {
	o, ok := l.orders[id]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// Lookup 同时查询活跃与已退役订单。
func (l *Ledger) Lookup(id uint64) (Order, bool) {
	if o, ok := l.Get(id); ok {
		return o, true
	}
	o, ok := l.retired[id]
	return o, ok
}

// Active 返回指定类型与方向的活跃订单，按 id 升序。
func (l *Ledger) Active(kind Kind, side Side) []Order {
	res := make([]Order, 0, 2)
	for _, o := range l.orders {
		if o.Kind == kind && o.Side == side {
			res = append(res, *o)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (l *Ledger) Position(inst market.Instrument) int64 {
	if !inst.Valid() {
		return 0
	}
	return l.positions[inst]
}

// OutstandingBuy Primary 上所有活跃买单剩余量之和。
func (l *Ledger) OutstandingBuy() int64 { return l.buy }

// OutstandingSell Primary 上所有活跃卖单剩余量之和。
func (l *Ledger) OutstandingSell() int64 { return l.sell }

// HedgeOutstanding 是否有未完结的对冲单。
func (l *Ledger) HedgeOutstanding() bool {
	for _, o := range l.orders {
		if o.Kind == KindHedge {
			return true
		}
	}
	return false
}

func (l *Ledger) PositionLimit() int64 { return l.limit }

func (l *Ledger) ActiveCount() int { return len(l.orders) }

// LedgerState 用于落盘排查的只读快照。
type LedgerState struct {
	PrimaryPosition int64   `json:"primaryPosition"`
	HedgePosition   int64   `json:"hedgePosition"`
	OutstandingBuy  int64   `json:"outstandingBuy"`
	OutstandingSell int64   `json:"outstandingSell"`
	PositionLimit   int64   `json:"positionLimit"`
	Orders          []Order `json:"orders"`
}

func (l *Ledger) State() LedgerState {
	st := LedgerState{
		PrimaryPosition: l.positions[market.Primary],
		HedgePosition:   l.positions[market.Hedge],
		OutstandingBuy:  l.buy,
		OutstandingSell: l.sell,
		PositionLimit:   l.limit,
		Orders:          make([]Order, 0, len(l.orders)),
	}
	for _, o := range l.orders {
		st.Orders = append(st.Orders, *o)
	}
	sort.Slice(st.Orders, func(i, j int) bool { return st.Orders[i].ID < st.Orders[j].ID })
	return st
}
