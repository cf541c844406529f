package asmm

import (
	"fmt"
	"strings"
)

// TruePricePolicy 选择报价中枢（true price）的计算方式。
type TruePricePolicy int

const (
	HedgeMid       TruePricePolicy = iota // 对冲腿 mid
	LagBlend                              // hedgeMid + (primaryMid - hedgeMid) * lag
	EffectiveBlend                        // 同上，但 primary 用 effective mid
)

func (p TruePricePolicy) String() string {
	switch p {
	case HedgeMid:
		return "hedge_mid"
	case LagBlend:
		return "lag_blend"
	case EffectiveBlend:
		return "effective_blend"
	default:
		return fmt.Sprintf("true_price(%d)", int(p))
	}
}

// ParseTruePricePolicy 解析配置文件里的字符串，空串为默认 hedge_mid。
func ParseTruePricePolicy(s string) (TruePricePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hedge_mid":
		return HedgeMid, nil
	case "lag_blend":
		return LagBlend, nil
	case "effective_blend":
		return EffectiveBlend, nil
	}
	return HedgeMid, fmt.Errorf("unknown true price policy %q", s)
}

// SpreadPolicy 选择总价差 δ 的计算方式。
type SpreadPolicy int

const (
	AvellanedaStoikov SpreadPolicy = iota
	TickOffset                     // 固定两跳：保留价两侧各一跳
	HedgeTaker                     // 对冲腿吃单价 ± MinProfitability，可贴近 Primary 盘口一跳
)

func (p SpreadPolicy) String() string {
	switch p {
	case AvellanedaStoikov:
		return "avellaneda_stoikov"
	case TickOffset:
		return "tick_offset"
	case HedgeTaker:
		return "hedge_taker"
	default:
		return fmt.Sprintf("spread(%d)", int(p))
	}
}

func ParseSpreadPolicy(s string) (SpreadPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "avellaneda_stoikov", "as":
		return AvellanedaStoikov, nil
	case "tick_offset":
		return TickOffset, nil
	case "hedge_taker":
		return HedgeTaker, nil
	}
	return AvellanedaStoikov, fmt.Errorf("unknown spread policy %q", s)
}

// Config holds the pricing model parameters.
type Config struct {
	Gamma            float64         `json:"gamma"`            // 风险厌恶系数 γ
	VolumeAdjustment float64         `json:"volumeAdjustment"` // κ = VolumeAdjustment * 窗口成交量
	LagFactor        float64         `json:"lagFactor"`
	TruePrice        TruePricePolicy `json:"truePrice"`
	Spread           SpreadPolicy    `json:"spread"`
	EffectiveSize    int64           `json:"effectiveSize"`
	TickSize         int64           `json:"tickSize"`
	HedgeHorizon     int64           `json:"hedgeHorizon"`   // 以序号计的对冲周期
	MinSpreadTicks   int64           `json:"minSpreadTicks"` // δ 下限（跳数），0 即不设下限
	MinProfitability float64         `json:"minProfitability"`
	AdjustToBook     bool            `json:"adjustToBook"` // hedge_taker：最多比 Primary 最优价好一跳
}

// DefaultConfig returns a default config.
func DefaultConfig() Config {
	return Config{
		Gamma:            5,
		VolumeAdjustment: 1,
		LagFactor:        0,
		TruePrice:        HedgeMid,
		Spread:           AvellanedaStoikov,
		EffectiveSize:    10,
		TickSize:         100,
		HedgeHorizon:     600,
		MinSpreadTicks:   2,
		MinProfitability: 0.002,
		AdjustToBook:     true,
	}
}

// Validate checks if the Config is valid.
func (c Config) Validate() error {
	if c.Gamma <= 0 {
		return fmt.Errorf("gamma must be > 0, got %v", c.Gamma)
	}
	if c.VolumeAdjustment <= 0 {
		return fmt.Errorf("volumeAdjustment must be > 0, got %v", c.VolumeAdjustment)
	}
	if c.LagFactor < 0 || c.LagFactor > 1 {
		return fmt.Errorf("lagFactor must be within [0,1], got %v", c.LagFactor)
	}
	if c.TickSize <= 0 {
		return fmt.Errorf("tickSize must be > 0, got %d", c.TickSize)
	}
	if c.HedgeHorizon <= 0 {
		return fmt.Errorf("hedgeHorizon must be > 0, got %d", c.HedgeHorizon)
	}
	if c.MinProfitability < 0 || c.MinProfitability >= 1 {
		return fmt.Errorf("minProfitability must be within [0,1), got %v", c.MinProfitability)
	}
	if c.MinSpreadTicks < 0 {
		return fmt.Errorf("minSpreadTicks must be >= 0, got %d", c.MinSpreadTicks)
	}
	if c.TruePrice == EffectiveBlend && c.EffectiveSize < 0 {
		return fmt.Errorf("effectiveSize must be >= 0, got %d", c.EffectiveSize)
	}
	switch c.TruePrice {
	case HedgeMid, LagBlend, EffectiveBlend:
	default:
		return fmt.Errorf("unknown true price policy %d", c.TruePrice)
	}
	switch c.Spread {
	case AvellanedaStoikov, TickOffset, HedgeTaker:
	default:
		return fmt.Errorf("unknown spread policy %d", c.Spread)
	}
	return nil
}
