package posttrade

import (
	"sort"
	"sync"

	"pair-maker-go/order"
)

// DefaultHorizons 以报价腿序号计的回看间隔。
var DefaultHorizons = []int64{1, 10}

// FillRecord is one quote fill waiting for its markouts.
type FillRecord struct {
	OrderID uint64
	Side    order.Side
	Price   int64
	Volume  int64
	Seq     int64
	After   []float64 // 各 horizon 的 mid，0 表示尚未观测到
}

// Stats contains statistics computed by the analyzer
type Stats struct {
	TotalFills           int       `json:"totalFills"`
	AnalyzedFills        int       `json:"analyzedFills"`
	AdverseSelectionRate float64   `json:"adverseSelectionRate"`
	Horizons             []int64   `json:"horizons"`
	AvgMarkout           []float64 `json:"avgMarkout"` // 每手平均，价格单位
}

// Analyzer measures post-trade markouts of quote fills: how far the mid
// moved for or against each fill a fixed number of sequence numbers later.
// A fill is adverse when its markout at the longest horizon is negative.
type Analyzer struct {
	mu       sync.RWMutex
	horizons []int64
	pending  []*FillRecord

	total    int
	analyzed int
	adverse  int
	lots     int64
	sums     []float64 // 各 horizon 的 markout*volume 之和
}

// NewAnalyzer creates a new post-trade analyzer; horizons must be positive
// and are sorted ascending. No horizons means DefaultHorizons.
func NewAnalyzer(horizons ...int64) *Analyzer {
	hs := make([]int64, 0, len(horizons))
	for _, h := range horizons {
		if h > 0 {
			hs = append(hs, h)
		}
	}
	if len(hs) == 0 {
		hs = append(hs, DefaultHorizons...)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	return &Analyzer{horizons: hs, sums: make([]float64, len(hs))}
}

// OnFill records a filled quote at the current sequence number.
func (a *Analyzer) OnFill(id uint64, side order.Side, price, volume, seq int64) {
	if volume <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total++
	a.pending = append(a.pending, &FillRecord{
		OrderID: id,
		Side:    side,
		Price:   price,
		Volume:  volume,
		Seq:     seq,
		After:   make([]float64, len(a.horizons)),
	})
}

// OnMid 用最新 mid 补齐到期的 markout；全部 horizon 都有值的成交结算入统计。
func (a *Analyzer) OnMid(seq int64, mid float64) {
	if mid <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	kept := a.pending[:0]
	for _, f := range a.pending {
		done := true
		for i, h := range a.horizons {
			if f.After[i] == 0 && seq >= f.Seq+h {
				f.After[i] = mid
			}
			if f.After[i] == 0 {
				done = false
			}
		}
		if !done {
			kept = append(kept, f)
			continue
		}
		a.settle(f)
	}
	for i := len(kept); i < len(a.pending); i++ {
		a.pending[i] = nil
	}
	a.pending = kept
}

func (a *Analyzer) settle(f *FillRecord) {
	a.analyzed++
	a.lots += f.Volume
	var last float64
	for i := range a.horizons {
		last = markout(f, f.After[i])
		a.sums[i] += last * float64(f.Volume)
	}
	if last < 0 {
		a.adverse++
	}
}

// markout 对我方有利为正：买单看 mid 上涨，卖单看 mid 下跌。
func markout(f *FillRecord, mid float64) float64 {
	return float64(f.Side.Sign()) * (mid - float64(f.Price))
}

// Pending 尚未结算的成交数。
func (a *Analyzer) Pending() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.pending)
}

// Stats computes and returns statistics
func (a *Analyzer) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	st := Stats{
		TotalFills:    a.total,
		AnalyzedFills: a.analyzed,
		Horizons:      append([]int64(nil), a.horizons...),
		AvgMarkout:    make([]float64, len(a.horizons)),
	}
	if a.analyzed == 0 {
		return st
	}
	st.AdverseSelectionRate = float64(a.adverse) / float64(a.analyzed)
	for i := range a.sums {
		st.AvgMarkout[i] = a.sums[i] / float64(a.lots)
	}
	return st
}
