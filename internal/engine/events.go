package engine

import (
	"pair-maker-go/market"
	"pair-maker-go/risk"
	"pair-maker-go/strategy"
	"pair-maker-go/strategy/asmm"
)

// Event 事件循环处理的入站消息。
type Event interface {
	Kind() string
}

// BookUpdate 一个品种的前 K 档盘口，价格与数量为并行数组。
type BookUpdate struct {
	Instrument market.Instrument `json:"instrument"`
	Seq        int64             `json:"seq"`
	AskPrices  []int64           `json:"askPrices"`
	AskVolumes []int64           `json:"askVolumes"`
	BidPrices  []int64           `json:"bidPrices"`
	BidVolumes []int64           `json:"bidVolumes"`
}

func (BookUpdate) Kind() string { return "book" }

func (b BookUpdate) Snapshot() market.Snapshot {
	return market.NewSnapshot(b.Instrument, b.Seq, b.AskPrices, b.AskVolumes, b.BidPrices, b.BidVolumes)
}

// TradeTicks 聚合成交，格式同盘口；数量为 0 的档位表示无成交。
type TradeTicks struct {
	Instrument market.Instrument `json:"instrument"`
	Seq        int64             `json:"seq"`
	AskPrices  []int64           `json:"askPrices"`
	AskVolumes []int64           `json:"askVolumes"`
	BidPrices  []int64           `json:"bidPrices"`
	BidVolumes []int64           `json:"bidVolumes"`
}

func (TradeTicks) Kind() string { return "trades" }

func (t TradeTicks) Snapshot() market.Snapshot {
	return market.NewSnapshot(t.Instrument, t.Seq, t.AskPrices, t.AskVolumes, t.BidPrices, t.BidVolumes)
}

// OrderStatus 报价单状态；FillVolume 与 Fees 为累计值，撤单表现为剩余 0。
type OrderStatus struct {
	OrderID         uint64 `json:"orderId"`
	FillVolume      int64  `json:"fillVolume"`
	RemainingVolume int64  `json:"remainingVolume"`
	Fees            int64  `json:"fees"`
}

func (OrderStatus) Kind() string { return "status" }

// OrderFilled 报价单的逐笔成交价格，只用于账户盈亏。
type OrderFilled struct {
	OrderID uint64 `json:"orderId"`
	Price   int64  `json:"price"`
	Volume  int64  `json:"volume"`
}

func (OrderFilled) Kind() string { return "filled" }

// HedgeFilled 对冲单的最终成交，Volume 可以为 0。
type HedgeFilled struct {
	OrderID      uint64 `json:"orderId"`
	AveragePrice int64  `json:"averagePrice"`
	Volume       int64  `json:"volume"`
}

func (HedgeFilled) Kind() string { return "hedge" }

// ErrorReport 交易所报错；OrderID 为 0 表示与具体订单无关。
type ErrorReport struct {
	OrderID uint64 `json:"orderId"`
	Message string `json:"message"`
}

func (ErrorReport) Kind() string { return "error" }

// ParamsUpdate 运行时参数；为 nil 的部分保持不变。
type ParamsUpdate struct {
	Pricing      *asmm.Config      `json:"pricing,omitempty"`
	Quoting      *strategy.Config  `json:"quoting,omitempty"`
	Hedging      *risk.HedgeConfig `json:"hedging,omitempty"`
	Limits       *risk.Limits      `json:"limits,omitempty"`
	ThrottleRate *float64          `json:"throttleRate,omitempty"`
}

func (ParamsUpdate) Kind() string { return "params" }

// marketData 行情类事件，队列满时可以丢弃。
func marketData(ev Event) bool {
	switch ev.(type) {
	case BookUpdate, TradeTicks:
		return true
	}
	return false
}
