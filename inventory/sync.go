package inventory

import (
	"fmt"

	"pair-maker-go/market"
)

// Drift 成交回报与订单状态两条路径得到的仓位不一致。
type Drift struct {
	Instrument market.Instrument
	Account    int64
	Ledger     int64
}

func (d Drift) String() string {
	return fmt.Sprintf("%s account=%d ledger=%d", d.Instrument, d.Account, d.Ledger)
}

// CheckSync 对比账户与账本仓位。两类回报互相竞争，短暂不一致属正常，调用方只记录。
func (a *Account) CheckSync(ledger [2]int64) []Drift {
	var drifts []Drift
	for _, inst := range []market.Instrument{market.Primary, market.Hedge} {
		if got := a.trackers[inst].NetExposure(); got != ledger[inst] {
			drifts = append(drifts, Drift{Instrument: inst, Account: got, Ledger: ledger[inst]})
		}
	}
	return drifts
}
