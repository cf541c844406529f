package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"pair-maker-go/gateway"
	"pair-maker-go/infrastructure/logger"
	"pair-maker-go/infrastructure/monitor"
	"pair-maker-go/internal/engine"
	"pair-maker-go/market"
	"pair-maker-go/order"
	"pair-maker-go/risk"
	"pair-maker-go/strategy"
	"pair-maker-go/strategy/asmm"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Agent   AgentConfig    `yaml:"agent"`
	Engine  EngineConfig   `yaml:"engine"`
	Pricing PricingConfig  `yaml:"pricing"`
	Quoting QuotingConfig  `yaml:"quoting"`
	Hedging HedgingConfig  `yaml:"hedging"`
	Venue   gateway.Config `yaml:"venue"`
	Journal JournalConfig  `yaml:"journal"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Alert   AlertConfig    `yaml:"alert"`
	Log     logger.Config  `yaml:"log"`
}

type AgentConfig struct {
	Env      string      `yaml:"env"`
	DumpPath string      `yaml:"dump_path"` // 不变量被破坏时的状态快照
	Watch    WatchConfig `yaml:"watch"`
}

// WatchConfig 配置热更新。
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"` // 最后一次写入后静默多久才重载
}

type EngineConfig struct {
	InboxSize     int     `yaml:"inbox_size"`
	PositionLimit int64   `yaml:"position_limit"`
	TradeWindow   int     `yaml:"trade_window"`
	TickSize      int64   `yaml:"tick_size"`
	MinPrice      int64   `yaml:"min_price"`
	MaxPrice      int64   `yaml:"max_price"`
	ThrottleRate  float64 `yaml:"throttle_rate"` // 每秒指令数，<=0 不限
	ThrottleBurst int     `yaml:"throttle_burst"`
	SingleMax     int64   `yaml:"single_max"`
	NetMax        int64   `yaml:"net_max"`

	MaxLoss       int64         `yaml:"max_loss"` // 净亏损止损（分），0 不限
	Circuit       CircuitConfig `yaml:"circuit"`
	MarkoutWindow []int64       `yaml:"markout_horizons"`
}

// CircuitConfig 行情剧烈波动时暂停报价。
type CircuitConfig struct {
	Move     float64 `yaml:"move"` // 相对涨跌幅，0 不启用
	Window   int64   `yaml:"window"`
	Cooldown int64   `yaml:"cooldown"`
}

type PricingConfig struct {
	Gamma            float64 `yaml:"gamma"`
	VolumeAdjustment float64 `yaml:"volume_adjustment"`
	LagFactor        float64 `yaml:"lag_factor"`
	TruePrice        string  `yaml:"true_price"` // hedge_mid | lag_blend | effective_blend
	Spread           string  `yaml:"spread"`     // avellaneda_stoikov | tick_offset | hedge_taker
	EffectiveSize    int64   `yaml:"effective_size"`
	HedgeHorizon     int64   `yaml:"hedge_horizon"`
	MinSpreadTicks   int64   `yaml:"min_spread_ticks"`
	MinProfitability float64 `yaml:"min_profitability"`
	AdjustToBook     bool    `yaml:"adjust_to_book"`
}

type QuotingConfig struct {
	Sizing              string  `yaml:"sizing"` // single_order | multi_order | ratio
	Drift               string  `yaml:"drift"`  // cancel | none | pnl
	DriftDelay          int64   `yaml:"drift_delay"`
	InitialSize         int64   `yaml:"initial_size"`
	Lifespan            string  `yaml:"lifespan"` // GFD | FAK
	OrderSizeRatio      float64 `yaml:"order_size_ratio"`
	CancellationPenalty float64 `yaml:"cancellation_penalty"`
}

type HedgingConfig struct {
	Cooldown      int64 `yaml:"cooldown"`
	FlatTolerance int64 `yaml:"flat_tolerance"`
	MinPrice      int64 `yaml:"min_price"`
	MaxPrice      int64 `yaml:"max_price"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Buffer  int    `yaml:"buffer"`
}

type MetricsConfig struct {
	Enabled bool           `yaml:"enabled"`
	Addr    string         `yaml:"addr"`
	Monitor monitor.Config `yaml:"monitor"`
}

type AlertConfig struct {
	ThrottleInterval time.Duration `yaml:"throttle_interval"`
	Webhook          WebhookConfig `yaml:"webhook"`
}

// WebhookConfig URL 为空则不启用。
type WebhookConfig struct {
	URL      string        `yaml:"url"`
	MinLevel string        `yaml:"min_level"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Default 返回未配置时使用的参数。
func Default() AppConfig {
	pricing := asmm.DefaultConfig()
	quoting := strategy.DefaultConfig()
	hedging := risk.DefaultHedgeConfig()
	return AppConfig{
		Agent: AgentConfig{
			Env:      "dev",
			DumpPath: "data/halt-dump.json",
			Watch:    WatchConfig{Enabled: true, Debounce: 500 * time.Millisecond},
		},
		Engine: EngineConfig{
			InboxSize:     4096,
			PositionLimit: 100,
			TradeWindow:   market.DefaultTradeWindow,
			TickSize:      pricing.TickSize,
			ThrottleRate:  50,
			ThrottleBurst: 50,
			SingleMax:     100,
			NetMax:        100,
		},
		Pricing: PricingConfig{
			Gamma:            pricing.Gamma,
			VolumeAdjustment: pricing.VolumeAdjustment,
			LagFactor:        pricing.LagFactor,
			TruePrice:        pricing.TruePrice.String(),
			Spread:           pricing.Spread.String(),
			EffectiveSize:    pricing.EffectiveSize,
			HedgeHorizon:     pricing.HedgeHorizon,
			MinSpreadTicks:   pricing.MinSpreadTicks,
			MinProfitability: pricing.MinProfitability,
			AdjustToBook:     pricing.AdjustToBook,
		},
		Quoting: QuotingConfig{
			Sizing:              quoting.Sizing.String(),
			Drift:               quoting.Drift.String(),
			DriftDelay:          quoting.DriftDelay,
			InitialSize:         quoting.InitialSize,
			Lifespan:            quoting.Lifespan.String(),
			OrderSizeRatio:      quoting.OrderSizeRatio,
			CancellationPenalty: quoting.CancellationPenalty,
		},
		Hedging: HedgingConfig{
			Cooldown:      hedging.Cooldown,
			FlatTolerance: hedging.FlatTolerance,
			MinPrice:      hedging.MinPrice,
			MaxPrice:      hedging.MaxPrice,
		},
		Venue:   gateway.DefaultConfig(),
		Journal: JournalConfig{Enabled: true, Path: "data/journal.db", Buffer: 1024},
		Metrics: MetricsConfig{Enabled: true, Addr: ":9100", Monitor: monitor.DefaultConfig()},
		Alert:   AlertConfig{ThrottleInterval: time.Minute},
		Log:     logger.DefaultConfig(),
	}
}

// Load reads YAML config from path on top of Default and validates it.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides deployment fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("MM_VENUE_URL"); v != "" {
		cfg.Venue.URL = v
	}
	if v := os.Getenv("MM_JOURNAL_PATH"); v != "" {
		cfg.Journal.Path = v
	}
	if v := os.Getenv("MM_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("MM_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("MM_ALERT_WEBHOOK"); v != "" {
		cfg.Alert.Webhook.URL = v
	}
	return cfg, Validate(cfg)
}

// Params converts the trading sections into engine parameters.
func (c AppConfig) Params() (engine.Params, error) {
	p := engine.Params{
		PositionLimit: c.Engine.PositionLimit,
		TradeWindow:   c.Engine.TradeWindow,
		TickSize:      c.Engine.TickSize,
		MinPrice:      c.Engine.MinPrice,
		MaxPrice:      c.Engine.MaxPrice,
		ThrottleRate:  c.Engine.ThrottleRate,
		ThrottleBurst: c.Engine.ThrottleBurst,
		Limits:        risk.Limits{SingleMax: c.Engine.SingleMax, NetMax: c.Engine.NetMax},

		MarkoutHorizons: c.Engine.MarkoutWindow,
		MaxLoss:         c.Engine.MaxLoss,
		CircuitMove:     c.Engine.Circuit.Move,
		CircuitWindow:   c.Engine.Circuit.Window,
		CircuitCooloff:  c.Engine.Circuit.Cooldown,
	}
	var err error
	if p.Pricing, err = c.pricing(); err != nil {
		return p, err
	}
	if p.Quoting, err = c.quoting(); err != nil {
		return p, err
	}
	p.Hedging = c.hedging()
	return p, nil
}

// Update 把可热更新的参数打包成引擎事件。
func (c AppConfig) Update() (engine.ParamsUpdate, error) {
	p, err := c.Params()
	if err != nil {
		return engine.ParamsUpdate{}, err
	}
	rate := p.ThrottleRate
	return engine.ParamsUpdate{
		Pricing:      &p.Pricing,
		Quoting:      &p.Quoting,
		Hedging:      &p.Hedging,
		Limits:       &p.Limits,
		ThrottleRate: &rate,
	}, nil
}

// EngineRuntime 引擎运行参数（非交易参数）。
func (c AppConfig) EngineRuntime() engine.Config {
	return engine.Config{InboxSize: c.Engine.InboxSize, DumpPath: c.Agent.DumpPath}
}

func (c AppConfig) pricing() (asmm.Config, error) {
	tp, err := asmm.ParseTruePricePolicy(c.Pricing.TruePrice)
	if err != nil {
		return asmm.Config{}, ErrInvalid("pricing.true_price: " + err.Error())
	}
	sp, err := asmm.ParseSpreadPolicy(c.Pricing.Spread)
	if err != nil {
		return asmm.Config{}, ErrInvalid("pricing.spread: " + err.Error())
	}
	return asmm.Config{
		Gamma:            c.Pricing.Gamma,
		VolumeAdjustment: c.Pricing.VolumeAdjustment,
		LagFactor:        c.Pricing.LagFactor,
		TruePrice:        tp,
		Spread:           sp,
		EffectiveSize:    c.Pricing.EffectiveSize,
		TickSize:         c.Engine.TickSize,
		HedgeHorizon:     c.Pricing.HedgeHorizon,
		MinSpreadTicks:   c.Pricing.MinSpreadTicks,
		MinProfitability: c.Pricing.MinProfitability,
		AdjustToBook:     c.Pricing.AdjustToBook,
	}, nil
}

func (c AppConfig) quoting() (strategy.Config, error) {
	sizing, err := strategy.ParseSizingPolicy(c.Quoting.Sizing)
	if err != nil {
		return strategy.Config{}, ErrInvalid("quoting.sizing: " + err.Error())
	}
	drift, err := strategy.ParseDriftGate(c.Quoting.Drift)
	if err != nil {
		return strategy.Config{}, ErrInvalid("quoting.drift: " + err.Error())
	}
	life, err := order.ParseLifespan(c.Quoting.Lifespan)
	if err != nil {
		return strategy.Config{}, ErrInvalid("quoting.lifespan: " + err.Error())
	}
	return strategy.Config{
		Sizing:        sizing,
		Drift:         drift,
		DriftDelay:    c.Quoting.DriftDelay,
		InitialSize:   c.Quoting.InitialSize,
		PositionLimit: c.Engine.PositionLimit,
		Lifespan:      life,

		OrderSizeRatio:      c.Quoting.OrderSizeRatio,
		CancellationPenalty: c.Quoting.CancellationPenalty,
	}, nil
}

func (c AppConfig) hedging() risk.HedgeConfig {
	return risk.HedgeConfig{
		Cooldown:      c.Hedging.Cooldown,
		FlatTolerance: c.Hedging.FlatTolerance,
		MinPrice:      c.Hedging.MinPrice,
		MaxPrice:      c.Hedging.MaxPrice,
		TickSize:      c.Engine.TickSize,
	}
}
