package risk

import (
	"fmt"

	"pair-maker-go/market"
	"pair-maker-go/order"
)

// Limits 配置。
type Limits struct {
	SingleMax int64 // 单笔上限，0 不限
	NetMax    int64 // 单品种仓位上限
}

// Exposure 提供仓位与挂单量；*order.Ledger 满足该接口。
type Exposure interface {
	Position(inst market.Instrument) int64
	OutstandingBuy() int64
	OutstandingSell() int64
}

// LimitChecker 在下单前校验单笔数量与仓位空间。
type LimitChecker struct {
	cfg *Limits
	exp Exposure
}

func NewLimitChecker(cfg *Limits, exp Exposure) *LimitChecker {
	return &LimitChecker{cfg: cfg, exp: exp}
}

// PreOrder 报价单按 仓位+同向挂单+本单 计算最坏敞口；对冲单只看仓位。
func (lc *LimitChecker) PreOrder(inst market.Instrument, side order.Side, volume int64) error {
	if lc.cfg.SingleMax > 0 && volume > lc.cfg.SingleMax {
		return fmt.Errorf("%w: %d > single %d", ErrSingleExceed, volume, lc.cfg.SingleMax)
	}
	if lc.cfg.NetMax <= 0 {
		return nil
	}
	worst := lc.exp.Position(inst) + side.Sign()*volume
	if inst == market.Primary {
		if side == order.Buy {
			worst += lc.exp.OutstandingBuy()
		} else {
			worst -= lc.exp.OutstandingSell()
		}
	}
	if abs(worst) > lc.cfg.NetMax {
		return fmt.Errorf("%w: %s %s %d -> %d > net %d", ErrNetExceed, inst, side, volume, worst, lc.cfg.NetMax)
	}
	return nil
}

// UpdateLimits 热更新。
func (lc *LimitChecker) UpdateLimits(l Limits) { *lc.cfg = l }

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
