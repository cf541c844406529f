package order

import (
	"fmt"
	"strings"

	"pair-maker-go/market"
)

// Side is the order direction.
type Side int8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// Sign 买为 +1，卖为 -1。
func (s Side) Sign() int64 {
	if s == Buy {
		return 1
	}
	return -1
}

func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Kind 区分报价单与对冲单。
type Kind int8

const (
	KindQuote Kind = iota
	KindHedge
)

func (k Kind) String() string {
	if k == KindHedge {
		return "HEDGE"
	}
	return "QUOTE"
}

// Lifespan 下单时的有效期。
type Lifespan int8

const (
	FillAndKill Lifespan = iota
	GoodForDay
)

func (l Lifespan) String() string {
	if l == GoodForDay {
		return "GFD"
	}
	return "FAK"
}

// ParseLifespan 解析 GFD / FAK，空串为 GFD。
func ParseLifespan(s string) (Lifespan, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "GFD", "GOOD_FOR_DAY":
		return GoodForDay, nil
	case "FAK", "FILL_AND_KILL":
		return FillAndKill, nil
	}
	return GoodForDay, fmt.Errorf("unknown lifespan %q", s)
}

// Status represents order lifecycle.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusPartial  Status = "PARTIAL"
	StatusFilled   Status = "FILLED"
	StatusCanceled Status = "CANCELED"
)

// Order is one quote or hedge order owned by the ledger.
type Order struct {
	ID         uint64            `json:"id"`
	Kind       Kind              `json:"kind"`
	Instrument market.Instrument `json:"instrument"`
	Side       Side              `json:"side"`
	Price      int64             `json:"price"`
	Volume     int64             `json:"volume"`    // 原始数量
	Remaining  int64             `json:"remaining"` // 剩余数量，只减不增
	Filled     int64             `json:"filled"`    // 交易所回报的累计成交
	Fees       int64             `json:"fees"`
	CreatedSeq int64             `json:"createdSeq"`
	Status     Status            `json:"status"`
}
