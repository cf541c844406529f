package risk

import (
	"github.com/shopspring/decimal"

	"pair-maker-go/inventory"
	"pair-maker-go/market"
)

// AccountPnL 用两条腿当前 mid 对账户估值。
type AccountPnL struct {
	Account *inventory.Account
	View    *market.View
}

func (p AccountPnL) CurrentPnL() decimal.Decimal {
	if p.Account == nil {
		return decimal.Zero
	}
	var mids [2]float64
	if p.View != nil {
		for _, inst := range []market.Instrument{market.Primary, market.Hedge} {
			mids[inst] = p.View.Snapshot(inst).Mid()
		}
	}
	return p.Account.Statement(mids).Net
}
