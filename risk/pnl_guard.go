package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"pair-maker-go/market"
	"pair-maker-go/order"
)

// PnLGuard 账户净盈亏跌破 -MaxLoss 后拒绝新的报价单；对冲单放行，仓位仍能对冲。
type PnLGuard struct {
	MaxLoss decimal.Decimal // 正数，单位分；0 表示不限制
	Source  PnLSource
}

// PnLSource 提供当前净盈亏。
type PnLSource interface {
	CurrentPnL() decimal.Decimal
}

func (g *PnLGuard) PreOrder(inst market.Instrument, side order.Side, volume int64) error {
	if g == nil || g.Source == nil || !g.MaxLoss.IsPositive() || inst != market.Primary {
		return nil
	}
	if pnl := g.Source.CurrentPnL(); pnl.LessThan(g.MaxLoss.Neg()) {
		return fmt.Errorf("%w: net %s, max loss %s", ErrPnLTooLow, pnl, g.MaxLoss)
	}
	return nil
}
