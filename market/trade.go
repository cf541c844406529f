package market

// DefaultTradeWindow 最近成交窗口长度 N。
const DefaultTradeWindow = 30

// TradeSample 一笔（聚合）成交的价格与数量。
type TradeSample struct {
	Price  int64 `json:"price"`
	Volume int64 `json:"volume"`
}

// TradeWindow 定长成交窗口，最新的在最前，超出容量从尾部丢弃。
type TradeWindow struct {
	capacity int
	samples  []TradeSample
}

func NewTradeWindow(capacity int) *TradeWindow {
	if capacity <= 0 {
		capacity = DefaultTradeWindow
	}
	return &TradeWindow{
		capacity: capacity,
		samples:  make([]TradeSample, 0, capacity+1),
	}
}

// Push 插入到最前。
func (w *TradeWindow) Push(s TradeSample) {
	w.samples = append(w.samples, TradeSample{})
	copy(w.samples[1:], w.samples)
	w.samples[0] = s
	if len(w.samples) > w.capacity {
		w.samples = w.samples[:w.capacity]
	}
}

func (w *TradeWindow) Len() int { return len(w.samples) }

func (w *TradeWindow) Capacity() int { return w.capacity }

// Samples 返回拷贝，最新在前。
func (w *TradeWindow) Samples() []TradeSample {
	return append([]TradeSample(nil), w.samples...)
}

// TotalVolume 窗口内成交量之和，作为流动性代理。
func (w *TradeWindow) TotalVolume() int64 {
	var total int64
	for _, s := range w.samples {
		total += s.Volume
	}
	return total
}
