package market

import (
	"errors"
	"fmt"
)

// ErrInsufficientDepth 盘口深度不足以吃下指定数量。
var ErrInsufficientDepth = errors.New("insufficient book depth")

// Level 单档价格与数量，价格为整数最小单位（分）。
type Level struct {
	Price  int64 `json:"price"`
	Volume int64 `json:"volume"`
}

// Snapshot represents the top-K book of one instrument at a sequence number.
// Bids and asks are best-first.
type Snapshot struct {
	Instrument Instrument `json:"instrument"`
	Seq        int64      `json:"seq"`
	Bids       []Level    `json:"bids"`
	Asks       []Level    `json:"asks"`
}

// NewSnapshot 将交易所推送的并行数组整理为档位，最多保留 DefaultDepth 档。
// 价格为 0 的补位档会被丢弃。
func NewSnapshot(inst Instrument, seq int64, askPrices, askVolumes, bidPrices, bidVolumes []int64) Snapshot {
	return Snapshot{
		Instrument: inst,
		Seq:        seq,
		Bids:       zipLevels(bidPrices, bidVolumes),
		Asks:       zipLevels(askPrices, askVolumes),
	}
}

func zipLevels(prices, volumes []int64) []Level {
	n := len(prices)
	if len(volumes) < n {
		n = len(volumes)
	}
	if n > DefaultDepth {
		n = DefaultDepth
	}
	levels := make([]Level, 0, n)
	for i := 0; i < n; i++ {
		if prices[i] == 0 && volumes[i] == 0 {
			continue
		}
		levels = append(levels, Level{Price: prices[i], Volume: volumes[i]})
	}
	return levels
}

// BestBid 返回买一；无档位时为零值。
func (s Snapshot) BestBid() Level {
	if len(s.Bids) == 0 {
		return Level{}
	}
	return s.Bids[0]
}

// BestAsk 返回卖一；无档位时为零值。
func (s Snapshot) BestAsk() Level {
	if len(s.Asks) == 0 {
		return Level{}
	}
	return s.Asks[0]
}

// HasTopOfBook 买一卖一的价格和数量均非零。
func (s Snapshot) HasTopOfBook() bool {
	bid, ask := s.BestBid(), s.BestAsk()
	return bid.Price != 0 && bid.Volume != 0 && ask.Price != 0 && ask.Volume != 0
}

// Mid 返回中间价；若缺失任一侧返回 0。
func (s Snapshot) Mid() float64 {
	bid, ask := s.BestBid(), s.BestAsk()
	if bid.Price == 0 || ask.Price == 0 {
		return 0
	}
	return float64(bid.Price+ask.Price) * 0.5
}

// EffectiveMid 以 size 手在两侧分别吃单的成交均价取平均。
func (s Snapshot) EffectiveMid(size int64) (float64, error) {
	if size <= 0 {
		size = DefaultLotSize
	}
	buy, err := sweep(s.Asks, size)
	if err != nil {
		return 0, fmt.Errorf("%s asks: %w", s.Instrument, err)
	}
	sell, err := sweep(s.Bids, size)
	if err != nil {
		return 0, fmt.Errorf("%s bids: %w", s.Instrument, err)
	}
	return (buy + sell) * 0.5, nil
}

func sweep(levels []Level, size int64) (float64, error) {
	var filled, notional int64
	for _, lv := range levels {
		take := size - filled
		if lv.Volume < take {
			take = lv.Volume
		}
		notional += lv.Price * take
		filled += take
		if filled == size {
			return float64(notional) / float64(filled), nil
		}
	}
	return 0, fmt.Errorf("%w: want %d have %d", ErrInsufficientDepth, size, filled)
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Bids = append([]Level(nil), s.Bids...)
	out.Asks = append([]Level(nil), s.Asks...)
	return out
}
