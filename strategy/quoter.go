package strategy

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"pair-maker-go/infrastructure/logger"
	"pair-maker-go/infrastructure/monitor"
	"pair-maker-go/market"
	"pair-maker-go/order"
	"pair-maker-go/risk"
	"pair-maker-go/strategy/asmm"
)

// Pass 汇总一次报价轮次做了什么。
type Pass struct {
	Placed   int
	Amended  int
	Canceled int
	Deferred int // 价格已过期但驻留不足，或撤单在途
	// Blocked 有目标单被风控或价格约束拦下，账本上的缺口要等下一轮补齐。
	Blocked bool
	// Settled 本轮结束后所有挂单都已是目标状态，没有在途撤单、被拦截的下单或无法缩量的单。
	Settled bool
}

func (p Pass) Changed() bool { return p.Placed+p.Amended+p.Canceled > 0 }

// Deps 报价控制器的依赖。
type Deps struct {
	Ledger      *order.Ledger
	IDs         *order.IDSource
	Gateway     order.Gateway
	Guard       risk.Guard
	Constraints order.Constraints
	Logger      *logger.Logger
	Monitor     *monitor.Monitor
}

// Quoter keeps the resting quotes on the Primary instrument in line with the
// latest priced quote. Orders only leave the ledger on a confirming status
// event; a cancel is sent once and the order is skipped until then.
type Quoter struct {
	cfg           Config
	ledger        *order.Ledger
	ids           *order.IDSource
	gw            order.Gateway
	guard         risk.Guard
	constraints   order.Constraints
	logger        *logger.Logger
	monitor       *monitor.Monitor
	cancelPending map[uint64]struct{}
}

func NewQuoter(cfg Config, deps Deps) (*Quoter, error) {
	if deps.Ledger == nil || deps.IDs == nil || deps.Gateway == nil {
		return nil, errors.New("quoter requires ledger, id source and gateway")
	}
	if cfg.PositionLimit == 0 {
		cfg.PositionLimit = deps.Ledger.PositionLimit()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("quoter config: %w", err)
	}
	if cfg.PositionLimit != deps.Ledger.PositionLimit() {
		return nil, fmt.Errorf("quoter position limit %d differs from ledger limit %d", cfg.PositionLimit, deps.Ledger.PositionLimit())
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Quoter{
		cfg:           cfg,
		ledger:        deps.Ledger,
		ids:           deps.IDs,
		gw:            deps.Gateway,
		guard:         deps.Guard,
		constraints:   deps.Constraints,
		logger:        log.Named("quoter"),
		monitor:       deps.Monitor,
		cancelPending: make(map[uint64]struct{}),
	}, nil
}

func (q *Quoter) Config() Config { return q.cfg }

// UpdateConfig 热更新；仓位上限跟随账本，不能在运行时修改。
func (q *Quoter) UpdateConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("quoter config: %w", err)
	}
	if cfg.PositionLimit != q.ledger.PositionLimit() {
		return fmt.Errorf("quoter position limit %d differs from ledger limit %d", cfg.PositionLimit, q.ledger.PositionLimit())
	}
	q.cfg = cfg
	return nil
}

// CancelPending 撤单已发出、尚未确认的订单数。
func (q *Quoter) CancelPending() int { return len(q.cancelPending) }

// Update runs one quoting pass against the priced quote at sequence seq.
func (q *Quoter) Update(quote asmm.Quote, seq int64) Pass {
	q.prune()
	var p Pass
	if q.cfg.Sizing == MultiOrder {
		q.updateMulti(quote, seq, &p)
	} else {
		q.updateSingle(quote, seq, &p)
	}
	if len(q.cancelPending) > 0 || p.Deferred > 0 {
		p.Settled = false
	}
	if q.monitor != nil {
		q.monitor.RecordQuotePass()
		q.monitor.UpdateQuote(quote.TruePrice, quote.Reservation, quote.Spread, quote.Bid, quote.Ask)
	}
	return p
}

// OnFill 多单模式下成交后两侧按相同数量补单，补单量受两侧剩余空间约束。
func (q *Quoter) OnFill(side order.Side, filled int64, quote asmm.Quote, seq int64) Pass {
	p := Pass{Settled: true}
	if q.cfg.Sizing != MultiOrder || filled <= 0 {
		return p
	}
	pos := q.ledger.Position(market.Primary)
	limit := q.ledger.PositionLimit()
	bidRoom := limit - pos - q.ledger.OutstandingBuy()
	askRoom := limit + pos - q.ledger.OutstandingSell()
	r := min(filled, bidRoom, askRoom)
	if r <= 0 || quote.Bid <= 0 || quote.Ask <= 0 {
		return p
	}
	// 两侧必须同时成功才保持平衡，先过两侧风控再下单
	if !q.precheck(order.Buy, quote.Bid, r) || !q.precheck(order.Sell, quote.Ask, r) {
		p.Settled = false
		p.Blocked = true
		return p
	}
	q.insert(order.Buy, quote.Bid, r, seq, &p)
	q.insert(order.Sell, quote.Ask, r, seq, &p)
	q.logger.Debug("replenish", zap.Stringer("filled_side", side), zap.Int64("filled", filled), zap.Int64("size", r))
	return p
}

// CancelAll 对所有活跃报价单发撤单，停机或熔断时使用。
func (q *Quoter) CancelAll(reason string) int {
	n := 0
	for _, side := range []order.Side{order.Buy, order.Sell} {
		for _, o := range q.ledger.Active(order.KindQuote, side) {
			if _, ok := q.cancelPending[o.ID]; ok {
				continue
			}
			q.sendCancel(o, reason)
			n++
		}
	}
	return n
}

func (q *Quoter) updateSingle(quote asmm.Quote, seq int64, p *Pass) {
	p.Settled = true
	bids := q.ledger.Active(order.KindQuote, order.Buy)
	asks := q.ledger.Active(order.KindQuote, order.Sell)
	pos := q.ledger.Position(market.Primary)
	limit := q.ledger.PositionLimit()

	if q.cfg.Sizing == SingleOrder && pos == 0 && len(bids) == 0 && len(asks) == 0 {
		size := min(q.cfg.InitialSize, limit)
		if !q.place(order.Buy, quote.Bid, size, seq, p) {
			p.Settled = false
		}
		if !q.place(order.Sell, quote.Ask, size, seq, p) {
			p.Settled = false
		}
		return
	}

	bid := q.extras(bids, p)
	ask := q.extras(asks, p)

	var bidSize, askSize int64
	switch {
	case q.cfg.Sizing == RatioOrder:
		bidSize, askSize = ratioSizes(pos, limit, q.cfg.OrderSizeRatio)
	case ask == nil && bid != nil:
		// 卖单空缺：卖量跟着存活的买单走，买单不动
		askSize, bidSize = singleOrderSizes(-pos, bid.Remaining, limit)
	default:
		var curAsk int64
		if ask != nil {
			curAsk = ask.Remaining
		}
		bidSize, askSize = singleOrderSizes(pos, curAsk, limit)
	}

	q.reconcileSide(order.Buy, bid, quote.Bid, bidSize, quote, seq, p)
	q.reconcileSide(order.Sell, ask, quote.Ask, askSize, quote, seq, p)
}

// extras 单单模式下同侧多出来的单直接撤掉，返回保留的那张。
func (q *Quoter) extras(orders []order.Order, p *Pass) *order.Order {
	if len(orders) == 0 {
		return nil
	}
	for _, o := range orders[1:] {
		if _, ok := q.cancelPending[o.ID]; ok {
			p.Deferred++
			continue
		}
		q.sendCancel(o, "duplicate")
		p.Canceled++
	}
	keep := orders[0]
	return &keep
}

// reconcileSide 单侧状态机：缺失则下单；同价且目标更小则改单（目标 0 撤单）；
// 价格变化且驻留足够则撤单，确认后下一轮重新下单。pnl 闸门下，
// 按对冲腿吃单价算的挂单盈亏为负或明显不如新目标时不等驻留直接撤。
func (q *Quoter) reconcileSide(side order.Side, cur *order.Order, price, size int64, quote asmm.Quote, seq int64, p *Pass) {
	if cur == nil {
		if size > 0 && price > 0 {
			if !q.place(side, price, size, seq, p) {
				p.Settled = false
			}
		}
		return
	}
	if _, ok := q.cancelPending[cur.ID]; ok {
		p.Deferred++
		return
	}
	if cur.Price == price {
		switch {
		case size == 0:
			q.sendCancel(*cur, "target_zero")
			p.Canceled++
		case size < cur.Remaining:
			if !q.amend(*cur, size, p) {
				p.Settled = false
			}
		case size > cur.Remaining:
			if q.unprofitable(*cur, price, size, quote) {
				q.sendCancel(*cur, "unprofitable")
				p.Canceled++
				return
			}
			// 只能减量：保持原单，等成交或价格变化后重下
			p.Settled = false
		}
		return
	}
	if q.unprofitable(*cur, price, size, quote) {
		q.sendCancel(*cur, "unprofitable")
		p.Canceled++
		return
	}
	if q.dwelt(*cur, seq) {
		q.sendCancel(*cur, "stale_price")
		p.Canceled++
		return
	}
	p.Deferred++
}

func (q *Quoter) updateMulti(quote asmm.Quote, seq int64, p *Pass) {
	p.Settled = true
	targets := map[order.Side]int64{order.Buy: quote.Bid, order.Sell: quote.Ask}
	active := 0
	for _, side := range []order.Side{order.Buy, order.Sell} {
		for _, o := range q.ledger.Active(order.KindQuote, side) {
			active++
			if o.Price == targets[side] {
				continue
			}
			if _, ok := q.cancelPending[o.ID]; ok {
				p.Deferred++
				continue
			}
			if q.dwelt(o, seq) {
				q.sendCancel(o, "stale_price")
				p.Canceled++
				continue
			}
			p.Deferred++
		}
	}

	pos := q.ledger.Position(market.Primary)
	limit := q.ledger.PositionLimit()
	if pos == 0 && active == 0 {
		size := min(q.cfg.InitialSize, limit)
		if !q.precheck(order.Buy, quote.Bid, size) || !q.precheck(order.Sell, quote.Ask, size) {
			p.Settled = false
			p.Blocked = true
			return
		}
		q.insert(order.Buy, quote.Bid, size, seq, p)
		q.insert(order.Sell, quote.Ask, size, seq, p)
		return
	}

	buy, sell := q.ledger.OutstandingBuy(), q.ledger.OutstandingSell()
	bidSize, askSize := multiOrderSizes(pos, buy, sell, limit)
	if bidSize > 0 && !q.place(order.Buy, quote.Bid, bidSize, seq, p) {
		p.Settled = false
	}
	if askSize > 0 && !q.place(order.Sell, quote.Ask, askSize, seq, p) {
		p.Settled = false
	}
}

// singleOrderSizes 先以对侧存活单算本侧，再用本侧新量反推对侧，
// 使 bid - ask + pos == 0。卖侧空缺时以 (-pos, 买单剩余) 调用，返回 (卖量, 买量)。
func singleOrderSizes(pos, resting, limit int64) (first, second int64) {
	first = min(max(0, -pos+resting), limit-pos)
	second = min(max(0, pos+first), limit+pos)
	return first, second
}

// ratioSizes 每侧取剩余额度的固定比例，向下取整。
func ratioSizes(pos, limit int64, ratio float64) (bid, ask int64) {
	bid = int64(math.Floor(float64(limit-pos) * ratio))
	ask = int64(math.Floor(float64(limit+pos) * ratio))
	return max(bid, 0), max(ask, 0)
}

// multiOrderSizes 补齐使 buy - sell + pos 回到 0 所缺的一侧。
func multiOrderSizes(pos, buy, sell, limit int64) (bid, ask int64) {
	bid = min(max(0, sell-buy-pos), limit-pos-buy)
	ask = min(max(0, pos+buy-sell), limit+pos-sell)
	return bid, ask
}

func (q *Quoter) dwelt(o order.Order, seq int64) bool {
	return q.cfg.Drift == GateNone || o.CreatedSeq+q.cfg.DriftDelay <= seq
}

// unprofitable 挂单按对冲腿对价平掉的盈亏 pl；pl < 0 或
// pl·(1+penalty) < 新目标的盈亏时值得撤单重挂。只在 pnl 闸门下生效。
func (q *Quoter) unprofitable(o order.Order, price, size int64, quote asmm.Quote) bool {
	if q.cfg.Drift != GateProfit {
		return false
	}
	var pl, next float64
	switch o.Side {
	case order.Buy:
		if quote.HedgeAsk <= 0 {
			return false
		}
		pl = float64(o.Remaining * (quote.HedgeAsk - o.Price))
		next = float64(size * (quote.HedgeAsk - price))
	default:
		if quote.HedgeBid <= 0 {
			return false
		}
		pl = float64(o.Remaining * (o.Price - quote.HedgeBid))
		next = float64(size * (price - quote.HedgeBid))
	}
	return pl < 0 || pl*(1+q.cfg.CancellationPenalty) < next
}

// precheck 价格约束与风控；失败只记日志，下一轮重新计算。
func (q *Quoter) precheck(side order.Side, price, size int64) bool {
	if err := q.constraints.Validate(price, size); err != nil {
		q.logger.Debug("quote_skipped", zap.Stringer("side", side), zap.Error(err))
		return false
	}
	if q.guard != nil {
		if err := q.guard.PreOrder(market.Primary, side, size); err != nil {
			q.logger.LogRisk("quote_blocked", zap.Stringer("side", side), zap.Int64("price", price), zap.Int64("size", size), zap.Error(err))
			if q.monitor != nil {
				q.monitor.RecordRiskReject(rejectReason(err))
			}
			return false
		}
	}
	return true
}

func (q *Quoter) place(side order.Side, price, size, seq int64, p *Pass) bool {
	if !q.precheck(side, price, size) {
		p.Blocked = true
		return false
	}
	return q.insert(side, price, size, seq, p)
}

// insert 登记到账本后发出下单指令，调用方已完成 precheck。
func (q *Quoter) insert(side order.Side, price, size, seq int64, p *Pass) bool {
	o := order.Order{
		ID:         q.ids.Next(),
		Kind:       order.KindQuote,
		Instrument: market.Primary,
		Side:       side,
		Price:      price,
		Volume:     size,
		CreatedSeq: seq,
	}
	if err := q.ledger.Register(o); err != nil {
		q.logger.LogError(err, zap.Uint64("order_id", o.ID))
		return false
	}
	q.gw.InsertOrder(o.ID, side, price, size, q.cfg.Lifespan)
	p.Placed++
	q.logger.LogOrder("quote_insert", o.ID, zap.Stringer("side", side), zap.Int64("price", price), zap.Int64("size", size), zap.Int64("seq", seq))
	if q.monitor != nil {
		q.monitor.RecordOrderPlaced(order.KindQuote.String())
	}
	return true
}

func (q *Quoter) amend(o order.Order, size int64, p *Pass) bool {
	total, err := q.ledger.Amend(o.ID, size)
	if err != nil {
		q.logger.LogError(err, zap.Uint64("order_id", o.ID))
		return false
	}
	q.gw.AmendOrder(o.ID, total)
	p.Amended++
	q.logger.LogOrder("quote_amend", o.ID, zap.Int64("remaining", size), zap.Int64("volume", total))
	if q.monitor != nil {
		q.monitor.RecordOrderAmended()
	}
	return true
}

func (q *Quoter) sendCancel(o order.Order, reason string) {
	q.gw.CancelOrder(o.ID)
	q.cancelPending[o.ID] = struct{}{}
	q.logger.LogOrder("quote_cancel", o.ID, zap.String("reason", reason), zap.Int64("price", o.Price), zap.Int64("remaining", o.Remaining))
	if q.monitor != nil {
		q.monitor.RecordOrderCanceled()
	}
}

// prune 已退役的订单不再算在途撤单。
func (q *Quoter) prune() {
	for id := range q.cancelPending {
		if _, ok := q.ledger.Get(id); !ok {
			delete(q.cancelPending, id)
		}
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, risk.ErrTooFrequent):
		return "throttle"
	case errors.Is(err, risk.ErrNetExceed):
		return "net"
	case errors.Is(err, risk.ErrSingleExceed):
		return "single"
	default:
		return "other"
	}
}
