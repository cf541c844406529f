package config

import (
	"fmt"
	"net/url"

	"go.uber.org/zap/zapcore"

	"pair-maker-go/infrastructure/alert"
)

// ErrInvalid 用于参数验证错误。
type ErrInvalid string

func (e ErrInvalid) Error() string { return string(e) }

func invalid(format string, args ...interface{}) error {
	return ErrInvalid(fmt.Sprintf(format, args...))
}

// Validate ensures required fields are present and every section converts
// into a valid component config.
func Validate(cfg AppConfig) error {
	if cfg.Agent.Env == "" {
		return ErrInvalid("agent.env is required")
	}
	if cfg.Agent.Watch.Debounce < 0 {
		return ErrInvalid("agent.watch.debounce must be >= 0")
	}

	e := cfg.Engine
	if e.InboxSize < 0 {
		return ErrInvalid("engine.inbox_size must be >= 0")
	}
	if e.PositionLimit <= 0 {
		return invalid("engine.position_limit must be > 0, got %d", e.PositionLimit)
	}
	if e.TradeWindow <= 0 {
		return invalid("engine.trade_window must be > 0, got %d", e.TradeWindow)
	}
	if e.TickSize <= 0 {
		return invalid("engine.tick_size must be > 0, got %d", e.TickSize)
	}
	if e.MinPrice < 0 || e.MaxPrice < 0 || (e.MaxPrice > 0 && e.MaxPrice < e.MinPrice) {
		return invalid("engine price band [%d, %d] is invalid", e.MinPrice, e.MaxPrice)
	}
	if e.ThrottleBurst < 0 {
		return ErrInvalid("engine.throttle_burst must be >= 0")
	}
	if e.SingleMax < 0 || e.NetMax < 0 {
		return ErrInvalid("engine limits must be >= 0")
	}
	if e.MaxLoss < 0 {
		return invalid("engine.max_loss must be >= 0, got %d", e.MaxLoss)
	}
	if e.Circuit.Move < 0 || e.Circuit.Window < 0 || e.Circuit.Cooldown < 0 {
		return ErrInvalid("engine.circuit values must be >= 0")
	}
	for _, h := range e.MarkoutWindow {
		if h <= 0 {
			return invalid("engine.markout_horizons must be > 0, got %d", h)
		}
	}
	if e.NetMax > e.PositionLimit {
		return invalid("engine.net_max %d exceeds position_limit %d", e.NetMax, e.PositionLimit)
	}

	p, err := cfg.Params()
	if err != nil {
		return err
	}
	if err := p.Pricing.Validate(); err != nil {
		return ErrInvalid("pricing: " + err.Error())
	}
	if err := p.Quoting.Validate(); err != nil {
		return ErrInvalid("quoting: " + err.Error())
	}
	if err := p.Hedging.Validate(); err != nil {
		return ErrInvalid("hedging: " + err.Error())
	}

	if cfg.Venue.URL == "" {
		return ErrInvalid("venue.url is required (or MM_VENUE_URL)")
	}
	u, err := url.Parse(cfg.Venue.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return invalid("venue.url %q must be a ws:// or wss:// url", cfg.Venue.URL)
	}
	if cfg.Venue.SendBuffer <= 0 {
		return ErrInvalid("venue.send_buffer must be > 0")
	}

	if cfg.Journal.Enabled && cfg.Journal.Path == "" {
		return ErrInvalid("journal.path is required when the journal is enabled")
	}
	if cfg.Journal.Buffer < 0 {
		return ErrInvalid("journal.buffer must be >= 0")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		return ErrInvalid("metrics.addr is required when metrics are enabled")
	}
	if cfg.Alert.ThrottleInterval < 0 {
		return ErrInvalid("alert.throttle_interval must be >= 0")
	}
	if hook := cfg.Alert.Webhook; hook.URL != "" {
		u, err := url.Parse(hook.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return invalid("alert.webhook.url must be http(s), got %q", hook.URL)
		}
		if _, err := alert.ParseLevel(hook.MinLevel); err != nil {
			return invalid("alert.webhook.min_level: %v", err)
		}
	}
	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		return invalid("log.level: %v", err)
	}
	return nil
}
