package asmm

import (
	"pair-maker-go/market"
)

// Inputs 一次定价所需的全部只读输入。Variance 为价格/跳的总体方差（跳单位）。
type Inputs struct {
	Primary      market.Snapshot
	Hedge        market.Snapshot
	Position     int64 // Primary 净仓位 q
	Variance     float64
	TradedVolume int64
	Seq          int64
	LastFlatSeq  int64
}

// Quote is the priced two-sided target before sizing.
type Quote struct {
	TruePrice   float64 `json:"truePrice"`
	Reservation float64 `json:"reservation"`
	Spread      float64 `json:"spread"`
	Bid         int64   `json:"bid"`
	Ask         int64   `json:"ask"`
	// 对冲腿买一卖一，撤单盈亏比较用
	HedgeBid int64 `json:"hedgeBid"`
	HedgeAsk int64 `json:"hedgeAsk"`
}
