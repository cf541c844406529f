package main

import (
	"time"

	"github.com/shopspring/decimal"

	"pair-maker-go/gateway"
	"pair-maker-go/internal/store"
	"pair-maker-go/inventory"
	"pair-maker-go/market"
)

// report 由成交日志重建的账户统计。
type report struct {
	Fills        int                 `json:"fills"`
	Hedges       int                 `json:"hedges"`
	HedgeMisses  int                 `json:"hedgeMisses"` // 对冲单零成交或被拒
	BuyVolume    int64               `json:"buyVolume"`
	SellVolume   int64               `json:"sellVolume"`
	BuyNotional  decimal.Decimal     `json:"buyNotional"`
	SellNotional decimal.Decimal     `json:"sellNotional"`
	Statement    inventory.Statement `json:"statement"`
}

func buildReport(fills []store.FillRecord, hedges []store.HedgeRecord, statuses []store.StatusRecord, since time.Time, mids [2]float64) report {
	var r report
	acct := inventory.NewAccount()
	keep := func(ts time.Time) bool { return since.IsZero() || !ts.Before(since) }

	for _, f := range fills {
		if !keep(f.CreatedAt) {
			continue
		}
		side, err := gateway.ParseSide(f.Side)
		if err != nil || f.Volume <= 0 {
			continue
		}
		r.Fills++
		notional := decimal.NewFromInt(f.Price).Mul(decimal.NewFromInt(f.Volume))
		if side.Sign() > 0 {
			r.BuyVolume += f.Volume
			r.BuyNotional = r.BuyNotional.Add(notional)
		} else {
			r.SellVolume += f.Volume
			r.SellNotional = r.SellNotional.Add(notional)
		}
		acct.OnFill(market.Primary, side, f.Price, f.Volume)
	}

	for _, h := range hedges {
		if !keep(h.CreatedAt) {
			continue
		}
		if h.Event != "filled" || h.Filled == 0 {
			r.HedgeMisses++
			continue
		}
		side, err := gateway.ParseSide(h.Side)
		if err != nil {
			continue
		}
		r.Hedges++
		acct.OnFill(market.Hedge, side, h.Price, h.Filled)
	}

	// 手续费是逐单累计值：每单取最后一条
	fees := make(map[uint64]int64)
	for _, s := range statuses {
		if keep(s.CreatedAt) {
			fees[s.OrderID] = s.Fees
		}
	}
	for _, f := range fees {
		acct.PostFees(f)
	}

	r.Statement = acct.Statement(mids)
	return r
}
