package strategy

import (
	"fmt"
	"strings"

	"pair-maker-go/order"
)

// SizingPolicy 决定每侧挂几张单以及数量怎么算。
type SizingPolicy int

const (
	SingleOrder SizingPolicy = iota // 每侧一张
	MultiOrder                      // 每侧任意张，成交后两侧补单
	RatioOrder                      // 每侧一张，数量为剩余额度 × OrderSizeRatio
)

func (p SizingPolicy) String() string {
	switch p {
	case MultiOrder:
		return "multi_order"
	case RatioOrder:
		return "ratio"
	}
	return "single_order"
}

func ParseSizingPolicy(s string) (SizingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "single_order", "single":
		return SingleOrder, nil
	case "multi_order", "multi":
		return MultiOrder, nil
	case "ratio", "ratio_order":
		return RatioOrder, nil
	}
	return SingleOrder, fmt.Errorf("unknown sizing policy %q", s)
}

// DriftGate 价格过期时撤单是否受驻留时间限制。改单从不受限。
type DriftGate int

const (
	GateCancel DriftGate = iota
	GateNone
	GateProfit // 先按对冲对价比较盈亏，不划算立即撤；否则同 GateCancel
)

func (g DriftGate) String() string {
	switch g {
	case GateNone:
		return "none"
	case GateProfit:
		return "pnl"
	}
	return "cancel"
}

func ParseDriftGate(s string) (DriftGate, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cancel":
		return GateCancel, nil
	case "none":
		return GateNone, nil
	case "pnl":
		return GateProfit, nil
	}
	return GateCancel, fmt.Errorf("unknown drift gate %q", s)
}

// Config 报价控制参数，时间均以行情序号计。
type Config struct {
	Sizing        SizingPolicy   `json:"sizing"`
	Drift         DriftGate      `json:"drift"`
	DriftDelay    int64          `json:"driftDelay"`
	InitialSize   int64          `json:"initialSize"`
	PositionLimit int64          `json:"positionLimit"`
	Lifespan      order.Lifespan `json:"lifespan"`

	OrderSizeRatio      float64 `json:"orderSizeRatio"`      // ratio 模式
	CancellationPenalty float64 `json:"cancellationPenalty"` // pnl 闸门
}

func DefaultConfig() Config {
	return Config{
		Sizing:        SingleOrder,
		Drift:         GateCancel,
		DriftDelay:    3,
		InitialSize:   50,
		PositionLimit: 100,
		Lifespan:      order.GoodForDay,

		OrderSizeRatio:      0.5,
		CancellationPenalty: 0.1,
	}
}

func (c Config) Validate() error {
	if c.DriftDelay < 0 {
		return fmt.Errorf("driftDelay must be >= 0, got %d", c.DriftDelay)
	}
	if c.PositionLimit <= 0 {
		return fmt.Errorf("positionLimit must be > 0, got %d", c.PositionLimit)
	}
	if c.InitialSize <= 0 || c.InitialSize > c.PositionLimit {
		return fmt.Errorf("initialSize must be within (0, %d], got %d", c.PositionLimit, c.InitialSize)
	}
	switch c.Sizing {
	case SingleOrder, MultiOrder:
	case RatioOrder:
		if c.OrderSizeRatio <= 0 || c.OrderSizeRatio > 1 {
			return fmt.Errorf("orderSizeRatio must be within (0, 1], got %v", c.OrderSizeRatio)
		}
	default:
		return fmt.Errorf("unknown sizing policy %d", c.Sizing)
	}
	if c.CancellationPenalty < 0 {
		return fmt.Errorf("cancellationPenalty must be >= 0, got %v", c.CancellationPenalty)
	}
	switch c.Drift {
	case GateCancel, GateNone, GateProfit:
	default:
		return fmt.Errorf("unknown drift gate %d", c.Drift)
	}
	return nil
}
