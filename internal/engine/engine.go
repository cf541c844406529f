package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"pair-maker-go/infrastructure/alert"
	"pair-maker-go/infrastructure/logger"
	"pair-maker-go/infrastructure/monitor"
	"pair-maker-go/internal/store"
	"pair-maker-go/inventory"
	"pair-maker-go/market"
	"pair-maker-go/order"
	"pair-maker-go/posttrade"
	"pair-maker-go/risk"
	"pair-maker-go/strategy"
	"pair-maker-go/strategy/asmm"
)

// ErrHalted 引擎因不变量被破坏而停机，不再处理事件。
var ErrHalted = errors.New("engine halted")

// EngineState 引擎状态
type EngineState int

const (
	StateIdle EngineState = iota
	StateRunning
	StateStopped
	StateHalted
)

func (s EngineState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	case StateHalted:
		return "HALTED"
	default:
		return "UNKNOWN"
	}
}

// Config 引擎配置
type Config struct {
	InboxSize int    // 入站队列长度
	DumpPath  string // 停机时状态落盘路径，空则不落盘
}

// Journal 成交流水，写入不得阻塞。
type Journal interface {
	Append(rec store.Record) bool
}

// Components 引擎依赖组件
type Components struct {
	View    *market.View
	Ledger  *order.Ledger
	Model   *asmm.Model
	Quoter  *strategy.Quoter
	Hedger  *risk.Hedger
	Account *inventory.Account

	// 以下可选
	Analyzer     *posttrade.Analyzer
	Toxicity     *market.Toxicity
	Limits       *risk.Limits
	Throttle     *risk.Throttle
	Breaker      *risk.CircuitBreaker
	Journal      Journal
	AlertManager *alert.Manager
	Monitor      *monitor.Monitor
	Logger       *logger.Logger
}

// Statistics 引擎统计信息
type Statistics struct {
	StartTime     time.Time
	Events        int64
	Dropped       int64
	QuotePasses   int64
	Fills         int64
	Hedges        int64
	CircuitTrips  int64
	Rejects       int64
	Errors        int64
	LastEventTime time.Time
}

// Engine is the single event loop. It owns the view, ledger, pricing model
// and both controllers; nothing else mutates them. Handle processes one event
// to completion before the next one is looked at.
type Engine struct {
	config Config

	view    *market.View
	ledger  *order.Ledger
	model   *asmm.Model
	quoter  *strategy.Quoter
	hedger  *risk.Hedger
	account *inventory.Account

	analyzer *posttrade.Analyzer
	toxicity *market.Toxicity
	limits   *risk.Limits
	throttle *risk.Throttle
	breaker  *risk.CircuitBreaker
	journal  Journal
	alertMgr *alert.Manager
	monitor  *monitor.Monitor
	logger   *logger.Logger

	inbox chan Event
	done  chan struct{}

	seq       int64
	lastQuote asmm.Quote
	gap       bool // 最近一轮报价没补齐：被拦下或没能定价
	fatal     *order.InvariantError

	mu    sync.RWMutex
	state EngineState
	stats Statistics
	mids  [2]float64
}

// New 创建引擎
func New(cfg Config, components Components) (*Engine, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := validateComponents(components); err != nil {
		return nil, fmt.Errorf("invalid components: %w", err)
	}
	if cfg.InboxSize == 0 {
		cfg.InboxSize = 4096
	}
	log := components.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{
		config:   cfg,
		view:     components.View,
		ledger:   components.Ledger,
		model:    components.Model,
		quoter:   components.Quoter,
		hedger:   components.Hedger,
		account:  components.Account,
		analyzer: components.Analyzer,
		toxicity: components.Toxicity,
		limits:   components.Limits,
		throttle: components.Throttle,
		breaker:  components.Breaker,
		journal:  components.Journal,
		alertMgr: components.AlertManager,
		monitor:  components.Monitor,
		logger:   log.Named("engine"),
		inbox:    make(chan Event, cfg.InboxSize),
		done:     make(chan struct{}),
		state:    StateIdle,
	}, nil
}

func validateConfig(cfg Config) error {
	if cfg.InboxSize < 0 {
		return fmt.Errorf("inbox size must be >= 0, got %d", cfg.InboxSize)
	}
	return nil
}

func validateComponents(c Components) error {
	switch {
	case c.View == nil:
		return errors.New("view is required")
	case c.Ledger == nil:
		return errors.New("ledger is required")
	case c.Model == nil:
		return errors.New("pricing model is required")
	case c.Quoter == nil:
		return errors.New("quoter is required")
	case c.Hedger == nil:
		return errors.New("hedger is required")
	case c.Account == nil:
		return errors.New("account is required")
	}
	return nil
}

// Submit 投递事件。行情事件在队列满时丢弃并返回 false；
// 订单类事件会等待入队，引擎退出后返回 false。
func (e *Engine) Submit(ev Event) bool {
	select {
	case <-e.done:
		return false
	default:
	}
	if marketData(ev) {
		select {
		case e.inbox <- ev:
			return true
		default:
			e.dropped()
			return false
		}
	}
	select {
	case e.inbox <- ev:
		return true
	case <-e.done:
		return false
	}
}

func (e *Engine) dropped() {
	e.mu.Lock()
	e.stats.Dropped++
	e.mu.Unlock()
	if e.monitor != nil {
		e.monitor.RecordEventDropped()
	}
}

// Run drains the inbox on the calling goroutine until ctx is done or an
// invariant breaks. On a clean stop every resting quote is canceled. The
// returned error is the *order.InvariantError that halted the engine.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateIdle {
		e.mu.Unlock()
		return fmt.Errorf("engine cannot run from state %s", e.state)
	}
	e.state = StateRunning
	e.stats.StartTime = time.Now()
	e.mu.Unlock()
	defer close(e.done)

	e.logger.Info("engine started", zap.Int("inbox", cap(e.inbox)))
	for {
		select {
		case <-ctx.Done():
			n := e.quoter.CancelAll("shutdown")
			e.setState(StateStopped)
			e.logger.Info("engine stopped", zap.Int("canceled", n))
			return nil
		case ev := <-e.inbox:
			if err := e.Handle(ev); err != nil {
				var ie *order.InvariantError
				if errors.As(err, &ie) {
					return err
				}
				e.logger.Warn("event failed", zap.String("kind", ev.Kind()), zap.Error(err))
			}
		}
	}
}

// Handle processes one event synchronously. Invariant breaches are recovered
// here, never deeper: the engine dumps its state, halts and returns the
// *order.InvariantError. Every later call returns ErrHalted.
func (e *Engine) Handle(ev Event) (err error) {
	if e.fatal != nil {
		return ErrHalted
	}
	defer func() {
		if r := recover(); r != nil {
			ie, ok := order.AsInvariant(r)
			if !ok {
				panic(r)
			}
			err = e.halt(ev, ie)
		}
	}()

	start := time.Now()
	switch ev := ev.(type) {
	case BookUpdate:
		err = e.onBook(ev)
	case TradeTicks:
		err = e.onTrades(ev)
	case OrderStatus:
		err = e.onStatus(ev)
	case OrderFilled:
		err = e.onOrderFilled(ev)
	case HedgeFilled:
		err = e.onHedgeFilled(ev)
	case ErrorReport:
		err = e.onError(ev)
	case ParamsUpdate:
		err = e.onParams(ev)
	default:
		err = fmt.Errorf("unsupported event %T", ev)
	}
	if err == nil {
		e.checkBalance()
	}

	e.publish()
	e.mu.Lock()
	e.stats.Events++
	e.stats.LastEventTime = time.Now()
	if err != nil {
		e.stats.Errors++
	}
	e.mu.Unlock()
	if e.monitor != nil {
		e.monitor.RecordEvent(ev.Kind(), time.Since(start).Seconds())
	}
	return err
}

func (e *Engine) onBook(ev BookUpdate) error {
	if !ev.Instrument.Valid() {
		return fmt.Errorf("book update for unknown instrument %d", ev.Instrument)
	}
	e.view.Apply(ev.Snapshot())
	if ev.Instrument == market.Primary {
		e.seq = ev.Seq
		if s := e.view.Snapshot(market.Primary); s.HasTopOfBook() {
			if e.analyzer != nil {
				e.analyzer.OnMid(e.seq, s.Mid())
			}
			if e.breaker.OnMid(e.seq, s.Mid()) {
				e.tripped(s.Mid())
			}
		}
	}
	e.hedger.Observe(e.seq)
	e.requote()
	e.hedge()
	return nil
}

// tripped 熔断：撤掉全部报价，冷却期内由 guard 拦住新单。
func (e *Engine) tripped(mid float64) {
	n := e.quoter.CancelAll("circuit")
	e.mu.Lock()
	e.stats.CircuitTrips++
	e.mu.Unlock()
	if e.monitor != nil {
		e.monitor.RecordCircuitTrip()
	}
	e.logger.Warn("circuit breaker tripped",
		zap.Int64("seq", e.seq),
		zap.Float64("mid", mid),
		zap.Int("canceled", n))
	if e.alertMgr != nil {
		_ = e.alertMgr.SendWarning("circuit breaker tripped", map[string]interface{}{
			"seq":      e.seq,
			"mid":      mid,
			"canceled": n,
		})
	}
}

// onTrades 只有报价腿的成交进入方差窗口。
func (e *Engine) onTrades(ev TradeTicks) error {
	if ev.Instrument == market.Primary {
		ticks := ev.Snapshot()
		e.view.RecordTicks(ticks)
		if e.toxicity != nil {
			e.toxicity.AddTicks(ticks)
		}
	}
	e.requote()
	e.hedge()
	return nil
}

func (e *Engine) onStatus(ev OrderStatus) error {
	o, ok := e.ledger.Get(ev.OrderID)
	if !ok {
		if _, retired := e.ledger.Lookup(ev.OrderID); retired {
			e.logger.Debug("status for retired order", zap.Uint64("order_id", ev.OrderID))
		} else {
			e.logger.Warn("status for unknown order", zap.Uint64("order_id", ev.OrderID))
		}
		return nil
	}
	if o.Kind == order.KindHedge {
		e.logger.Debug("status for hedge order ignored", zap.Uint64("order_id", ev.OrderID))
		return nil
	}

	up, err := e.ledger.ApplyStatus(ev.OrderID, ev.FillVolume, ev.RemainingVolume, ev.Fees)
	if err != nil {
		return fmt.Errorf("apply status: %w", err)
	}
	e.account.PostFees(up.FeesDelta)
	e.append(&store.StatusRecord{
		OrderID:   ev.OrderID,
		Status:    string(up.Order.Status),
		Filled:    ev.FillVolume,
		Remaining: ev.RemainingVolume,
		Fees:      ev.Fees,
		Seq:       e.seq,
	})
	e.logger.LogOrder("status", ev.OrderID,
		zap.Stringer("side", o.Side),
		zap.String("status", string(up.Order.Status)),
		zap.Int64("filled", up.Filled),
		zap.Int64("remaining", up.Order.Remaining),
		zap.Int64("position", e.ledger.Position(market.Primary)),
	)

	if up.Filled > 0 {
		e.mu.Lock()
		e.stats.Fills++
		e.mu.Unlock()
		if e.monitor != nil {
			e.monitor.RecordFill(market.Primary.String(), up.Filled)
		}
		// 多单模式补单；零和由随后的报价轮次校验
		e.quoter.OnFill(o.Side, up.Filled, e.lastQuote, e.seq)
	}
	if up.Terminal && !up.Canceled && e.monitor != nil {
		e.monitor.RecordOrderFilled(order.KindQuote.String())
	}

	e.requote()
	e.hedge()
	return nil
}

func (e *Engine) onOrderFilled(ev OrderFilled) error {
	o, ok := e.ledger.Lookup(ev.OrderID)
	if !ok {
		e.logger.Warn("fill for unknown order", zap.Uint64("order_id", ev.OrderID))
		return nil
	}
	e.account.OnFill(o.Instrument, o.Side, ev.Price, ev.Volume)
	if e.analyzer != nil && o.Kind == order.KindQuote {
		e.analyzer.OnFill(ev.OrderID, o.Side, ev.Price, ev.Volume, e.seq)
	}
	e.append(&store.FillRecord{
		OrderID:    ev.OrderID,
		Instrument: o.Instrument.String(),
		Side:       o.Side.String(),
		Price:      ev.Price,
		Volume:     ev.Volume,
		Seq:        e.seq,
	})
	e.logger.LogTrade("fill",
		zap.Uint64("order_id", ev.OrderID),
		zap.Stringer("side", o.Side),
		zap.Int64("price", ev.Price),
		zap.Int64("volume", ev.Volume),
	)
	e.checkSync()
	e.hedge()
	return nil
}

func (e *Engine) onHedgeFilled(ev HedgeFilled) error {
	o, ok := e.ledger.Get(ev.OrderID)
	if !ok || o.Kind != order.KindHedge {
		e.logger.Warn("hedge fill for untracked order", zap.Uint64("order_id", ev.OrderID))
		return nil
	}
	up, err := e.hedger.OnFill(ev.OrderID, ev.Volume)
	if err != nil {
		return fmt.Errorf("apply hedge fill: %w", err)
	}
	if ev.Volume > 0 {
		e.account.OnFill(market.Hedge, o.Side, ev.AveragePrice, ev.Volume)
		if e.monitor != nil {
			e.monitor.RecordFill(market.Hedge.String(), ev.Volume)
		}
	}
	if e.monitor != nil && !up.Canceled {
		e.monitor.RecordOrderFilled(order.KindHedge.String())
	}
	e.append(&store.HedgeRecord{
		OrderID: ev.OrderID,
		Side:    o.Side.String(),
		Price:   ev.AveragePrice,
		Volume:  o.Volume,
		Filled:  ev.Volume,
		Delta:   e.hedger.Delta(),
		Event:   "filled",
		Seq:     e.seq,
	})
	e.checkSync()
	e.hedge()
	return nil
}

// onError 报价单被拒则退役，下一轮重新报价；对冲单被拒则回到 Flat，
// 本事件内不重发。
func (e *Engine) onError(ev ErrorReport) error {
	if ev.OrderID == 0 {
		e.logger.Warn("venue error", zap.String("message", ev.Message))
		return nil
	}
	o, ok := e.ledger.Get(ev.OrderID)
	if !ok {
		e.logger.Info("error for untracked order", zap.Uint64("order_id", ev.OrderID), zap.String("message", ev.Message))
		return nil
	}
	e.mu.Lock()
	e.stats.Rejects++
	e.mu.Unlock()
	if e.monitor != nil {
		e.monitor.RecordOrderRejected(o.Kind.String())
	}

	if o.Kind == order.KindHedge {
		if _, err := e.hedger.Reject(ev.OrderID); err != nil {
			return fmt.Errorf("reject hedge: %w", err)
		}
		e.append(&store.HedgeRecord{
			OrderID: ev.OrderID,
			Side:    o.Side.String(),
			Price:   o.Price,
			Volume:  o.Volume,
			Delta:   e.hedger.Delta(),
			Event:   "rejected",
			Seq:     e.seq,
		})
		e.logger.Warn("hedge rejected", zap.Uint64("order_id", ev.OrderID), zap.String("message", ev.Message))
		return nil
	}

	if _, err := e.ledger.Reject(ev.OrderID); err != nil {
		return fmt.Errorf("reject quote: %w", err)
	}
	e.append(&store.StatusRecord{OrderID: ev.OrderID, Status: string(order.StatusCanceled), Filled: o.Filled, Seq: e.seq})
	e.logger.Warn("quote rejected", zap.Uint64("order_id", ev.OrderID), zap.Stringer("side", o.Side), zap.String("message", ev.Message))
	e.requote()
	e.hedge()
	return nil
}

func (e *Engine) onParams(ev ParamsUpdate) error {
	var errs []error
	if ev.Pricing != nil {
		if err := e.model.UpdateConfig(*ev.Pricing); err != nil {
			errs = append(errs, err)
		}
	}
	if ev.Quoting != nil {
		qc := *ev.Quoting
		if qc.PositionLimit == 0 {
			qc.PositionLimit = e.ledger.PositionLimit()
		}
		if err := e.quoter.UpdateConfig(qc); err != nil {
			errs = append(errs, err)
		}
	}
	if ev.Hedging != nil {
		if err := e.hedger.UpdateConfig(*ev.Hedging); err != nil {
			errs = append(errs, err)
		}
	}
	if ev.Limits != nil && e.limits != nil {
		*e.limits = *ev.Limits
	}
	if ev.ThrottleRate != nil && e.throttle != nil {
		e.throttle.SetRate(*ev.ThrottleRate)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("params update: %w", err)
	}
	e.logger.Info("params updated")
	e.requote()
	e.hedge()
	return nil
}

// requote 定价并跑一轮报价。没能跑完的轮次记为缺口，见 checkBalance。
func (e *Engine) requote() {
	if !e.view.Ready() {
		e.gap = true
		return
	}
	variance, err := e.view.EstimateVariance()
	if err != nil && e.model.Config().Spread != asmm.HedgeTaker {
		e.logger.Debug("no variance", zap.Error(err))
		e.gap = true
		return
	}
	in := asmm.Inputs{
		Primary:      e.view.Snapshot(market.Primary),
		Hedge:        e.view.Snapshot(market.Hedge),
		Position:     e.ledger.Position(market.Primary),
		Variance:     variance,
		TradedVolume: e.view.TradedVolume(),
		Seq:          e.seq,
		LastFlatSeq:  e.hedger.LastFlatSeq(),
	}
	q, err := e.model.Quote(in)
	if err != nil {
		e.logger.Debug("quote skipped", zap.Error(err), zap.Int64("seq", e.seq))
		e.gap = true
		return
	}
	e.lastQuote = q
	if e.monitor != nil {
		e.monitor.UpdateVariance(variance)
	}
	pass := e.quoter.Update(q, e.seq)
	e.mu.Lock()
	e.stats.QuotePasses++
	e.mu.Unlock()
	e.settle(pass)
}

// settle 单单模式只在本轮收敛后校验零和；多单模式的缺口只可能来自
// 被拦下的补单，其余情况由 checkBalance 在事件末尾校验。
func (e *Engine) settle(p strategy.Pass) {
	e.gap = p.Blocked
	if p.Settled && e.quoter.Config().Sizing == strategy.SingleOrder {
		e.ledger.CheckBalance()
	}
}

// checkBalance 多单模式下每个事件处理完都要满足 buy - sell + pos == 0，
// 除非最近一轮报价被风控/约束拦下或没能定价。ratio 模式不维持零和。
func (e *Engine) checkBalance() {
	if e.quoter.Config().Sizing != strategy.MultiOrder || e.gap {
		return
	}
	e.ledger.CheckBalance()
}

func (e *Engine) hedge() {
	o, ok := e.hedger.Evaluate(e.seq)
	if e.monitor != nil {
		e.monitor.UpdateHedgeState(int(e.hedger.State()))
	}
	if !ok {
		return
	}
	e.mu.Lock()
	e.stats.Hedges++
	e.mu.Unlock()
	if e.monitor != nil {
		e.monitor.RecordHedge(o.Side.String())
		e.monitor.RecordOrderPlaced(order.KindHedge.String())
	}
	e.append(&store.HedgeRecord{
		OrderID: o.ID,
		Side:    o.Side.String(),
		Price:   o.Price,
		Volume:  o.Volume,
		Delta:   e.hedger.Delta(),
		Event:   "insert",
		Seq:     e.seq,
	})
	if e.alertMgr != nil {
		_ = e.alertMgr.SendWarning("hedge sent", map[string]interface{}{
			"order_id": o.ID,
			"side":     o.Side.String(),
			"volume":   o.Volume,
			"seq":      e.seq,
		})
	}
}

// checkSync 成交回报与状态回报互相竞争，不一致只记录。
func (e *Engine) checkSync() {
	ledger := [2]int64{e.ledger.Position(market.Primary), e.ledger.Position(market.Hedge)}
	for _, d := range e.account.CheckSync(ledger) {
		e.logger.Debug("position drift", zap.Stringer("drift", d))
	}
}

func (e *Engine) append(rec store.Record) {
	if e.journal == nil {
		return
	}
	if !e.journal.Append(rec) {
		e.logger.Debug("journal record dropped", zap.String("table", rec.TableName()))
	}
}

// publish 事件处理完后刷新对外可读的估值与指标。
func (e *Engine) publish() {
	var mids [2]float64
	for _, inst := range []market.Instrument{market.Primary, market.Hedge} {
		if s := e.view.Snapshot(inst); s.HasTopOfBook() {
			mids[inst] = s.Mid()
		}
	}
	e.mu.Lock()
	e.mids = mids
	e.mu.Unlock()
	if e.monitor == nil {
		return
	}
	e.monitor.UpdatePosition(market.Primary.String(), e.ledger.Position(market.Primary))
	e.monitor.UpdatePosition(market.Hedge.String(), e.ledger.Position(market.Hedge))
	e.monitor.UpdatePositionLimit(e.ledger.PositionLimit())
	st := e.account.Statement(mids)
	e.monitor.UpdatePnL(st.Realized.InexactFloat64(), st.Unrealized.InexactFloat64(), st.Fees.InexactFloat64())
	for _, inst := range []market.Instrument{market.Primary, market.Hedge} {
		e.monitor.UpdateImbalance(inst.String(), market.Imbalance(e.view.Snapshot(inst), 0))
	}
	if e.toxicity != nil {
		e.monitor.UpdateVPIN(e.toxicity.VPIN())
	}
	if e.analyzer != nil {
		mk := e.analyzer.Stats()
		for i, h := range mk.Horizons {
			e.monitor.UpdateMarkout(h, mk.AvgMarkout[i])
		}
		e.monitor.UpdateAdverseRate(mk.AdverseSelectionRate)
	}
}

func (e *Engine) halt(ev Event, ie *order.InvariantError) error {
	e.fatal = ie
	e.setState(StateHalted)
	e.logger.Error("invariant violated, halting",
		zap.String("rule", ie.Rule),
		zap.String("detail", ie.Detail),
		zap.String("event", ev.Kind()),
		zap.Int64("seq", e.seq),
	)
	if e.monitor != nil {
		e.monitor.RecordInvariant(ie.Rule)
	}
	if e.alertMgr != nil {
		_ = e.alertMgr.SendCritical("invariant violated", map[string]interface{}{
			"rule":   ie.Rule,
			"detail": ie.Detail,
			"seq":    e.seq,
		})
	}
	if e.config.DumpPath != "" {
		if err := e.Dump(e.config.DumpPath); err != nil {
			e.logger.LogError(err, zap.String("path", e.config.DumpPath))
		}
	}
	return ie
}

func (e *Engine) setState(s EngineState) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// State 返回当前状态
func (e *Engine) State() EngineState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Stats 返回统计信息拷贝
func (e *Engine) Stats() Statistics {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}

// Statement 按最近一次盘口估值的账户快照。
func (e *Engine) Statement() inventory.Statement {
	e.mu.RLock()
	mids := e.mids
	e.mu.RUnlock()
	return e.account.Statement(mids)
}

// Fatal 返回导致停机的错误，未停机为 nil。
func (e *Engine) Fatal() *order.InvariantError { return e.fatal }

// Seq 当前报价腿序号。
func (e *Engine) Seq() int64 { return e.seq }

// Dump 内容用于事后排查。
type Dump struct {
	Time      time.Time           `json:"time"`
	State     string              `json:"state"`
	Fatal     string              `json:"fatal,omitempty"`
	Seq       int64               `json:"seq"`
	LastFlat  int64               `json:"lastFlat"`
	Hedge     string              `json:"hedge"`
	LastQuote asmm.Quote          `json:"lastQuote"`
	Ledger    order.LedgerState   `json:"ledger"`
	Statement inventory.Statement `json:"statement"`
	Stats     Statistics          `json:"stats"`
	Markouts  *posttrade.Stats    `json:"markouts,omitempty"`
	VPIN      float64             `json:"vpin"`
}

// Snapshot 只能在事件循环内或循环退出后调用。
func (e *Engine) Snapshot() Dump {
	d := Dump{
		Time:      time.Now(),
		State:     e.State().String(),
		Seq:       e.seq,
		LastFlat:  e.hedger.LastFlatSeq(),
		Hedge:     e.hedger.State().String(),
		LastQuote: e.lastQuote,
		Ledger:    e.ledger.State(),
		Statement: e.Statement(),
		Stats:     e.Stats(),
	}
	if e.fatal != nil {
		d.Fatal = e.fatal.Error()
	}
	if e.analyzer != nil {
		mk := e.analyzer.Stats()
		d.Markouts = &mk
	}
	if e.toxicity != nil {
		d.VPIN = e.toxicity.VPIN()
	}
	return d
}

// Dump 把 Snapshot 以 JSON 写到 path。
func (e *Engine) Dump(path string) error {
	data, err := json.MarshalIndent(e.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dump: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write dump: %w", err)
	}
	e.logger.Info("state dumped", zap.String("path", path))
	return nil
}
