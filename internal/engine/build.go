package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"pair-maker-go/infrastructure/alert"
	"pair-maker-go/infrastructure/logger"
	"pair-maker-go/infrastructure/monitor"
	"pair-maker-go/inventory"
	"pair-maker-go/market"
	"pair-maker-go/order"
	"pair-maker-go/posttrade"
	"pair-maker-go/risk"
	"pair-maker-go/strategy"
	"pair-maker-go/strategy/asmm"
)

// Params 组装引擎所需的全部交易参数。
type Params struct {
	PositionLimit int64
	TradeWindow   int
	TickSize      int64
	MinPrice      int64 // 报价价格带，0 不限
	MaxPrice      int64
	ThrottleRate  float64 // 每秒下单数，<=0 不限
	ThrottleBurst int

	MarkoutHorizons []int64 // 成交后回看的序号间隔，空则用默认
	ToxicityBucket  int64   // VPIN 每桶手数，0 用默认
	ToxicityBuckets int

	MaxLoss        int64   // 净亏损超过该值停止报价，0 不限
	CircuitMove    float64 // mid 相对变动熔断阈值，0 不启用
	CircuitWindow  int64
	CircuitCooloff int64

	Pricing asmm.Config
	Quoting strategy.Config
	Hedging risk.HedgeConfig
	Limits  risk.Limits
}

func DefaultParams() Params {
	return Params{
		PositionLimit: 100,
		TradeWindow:   market.DefaultTradeWindow,
		TickSize:      100,
		Pricing:       asmm.DefaultConfig(),
		Quoting:       strategy.DefaultConfig(),
		Hedging:       risk.DefaultHedgeConfig(),
		Limits:        risk.Limits{SingleMax: 100, NetMax: 100},
	}
}

// Options 组装时的外部依赖。
type Options struct {
	Config       Config
	Gateway      order.Gateway
	Journal      Journal
	AlertManager *alert.Manager
	Monitor      *monitor.Monitor
	Logger       *logger.Logger
	Clock        risk.Clock
	Publisher    *market.Publisher
}

// Build wires a ready-to-run engine from params: one ledger and id source
// shared by both controllers, and a guard chain of limits then throttle.
func Build(p Params, opts Options) (*Engine, error) {
	if opts.Gateway == nil {
		return nil, fmt.Errorf("build engine: gateway is required")
	}
	if p.PositionLimit <= 0 {
		return nil, fmt.Errorf("build engine: position limit must be > 0, got %d", p.PositionLimit)
	}
	if p.TickSize <= 0 {
		return nil, fmt.Errorf("build engine: tick size must be > 0, got %d", p.TickSize)
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	ledger := order.NewLedger(p.PositionLimit)
	ids := &order.IDSource{}
	limits := p.Limits
	throttle := risk.NewThrottle(p.ThrottleRate, p.ThrottleBurst, opts.Clock)
	view := market.NewView(p.TradeWindow, p.TickSize, opts.Publisher)
	account := inventory.NewAccount()
	var breaker *risk.CircuitBreaker
	if p.CircuitMove > 0 {
		breaker = risk.NewCircuitBreaker(p.CircuitMove, p.CircuitWindow, p.CircuitCooloff)
	}
	pnl := &risk.PnLGuard{
		MaxLoss: decimal.NewFromInt(p.MaxLoss),
		Source:  risk.AccountPnL{Account: account, View: view},
	}
	guard := risk.BuildGuards(&limits, ledger, throttle, pnl, breaker)

	pricing := p.Pricing
	pricing.TickSize = p.TickSize
	model, err := asmm.NewModel(pricing)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	quoting := p.Quoting
	quoting.PositionLimit = p.PositionLimit
	quoter, err := strategy.NewQuoter(quoting, strategy.Deps{
		Ledger:  ledger,
		IDs:     ids,
		Gateway: opts.Gateway,
		Guard:   guard,
		Constraints: order.Constraints{
			TickSize: p.TickSize,
			MinPrice: p.MinPrice,
			MaxPrice: p.MaxPrice,
		},
		Logger:  log,
		Monitor: opts.Monitor,
	})
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	hedging := p.Hedging
	hedging.TickSize = p.TickSize
	hedger, err := risk.NewHedger(hedging, ledger, ids, opts.Gateway, guard, log)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	return New(opts.Config, Components{
		View:         view,
		Ledger:       ledger,
		Model:        model,
		Quoter:       quoter,
		Hedger:       hedger,
		Account:      account,
		Analyzer:     posttrade.NewAnalyzer(p.MarkoutHorizons...),
		Toxicity:     market.NewToxicity(p.ToxicityBucket, p.ToxicityBuckets, 0),
		Limits:       &limits,
		Throttle:     throttle,
		Breaker:      breaker,
		Journal:      opts.Journal,
		AlertManager: opts.AlertManager,
		Monitor:      opts.Monitor,
		Logger:       log,
	})
}
