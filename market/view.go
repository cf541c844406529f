package market

// View 持有两条腿的最新盘口与最近成交窗口，由事件循环独占。
// 对外读取一律返回拷贝。
type View struct {
	books  [2]Snapshot
	seen   [2]bool
	trades *TradeWindow
	tick   int64
	pub    *Publisher
}

// NewView creates a view with an N-sample trade window. tick converts prices
// into tick units for the variance estimate.
func NewView(window int, tick int64, pub *Publisher) *View {
	if tick <= 0 {
		tick = 1
	}
	return &View{
		trades: NewTradeWindow(window),
		tick:   tick,
		pub:    pub,
	}
}

// UpdateSnapshot 无条件覆盖该品种的盘口（后写为准，不校验序号）。
func (v *View) UpdateSnapshot(inst Instrument, seq int64, bids, asks []Level) {
	v.Apply(Snapshot{Instrument: inst, Seq: seq, Bids: bids, Asks: asks})
}

// Apply 同 UpdateSnapshot，直接接收 Snapshot。
func (v *View) Apply(s Snapshot) {
	if !s.Instrument.Valid() {
		return
	}
	s = s.clone()
	v.books[s.Instrument] = s
	v.seen[s.Instrument] = true
	if v.pub != nil {
		v.pub.PublishBook(s)
	}
}

// IsSynchronized 两腿序号一致且四侧买一卖一均非零。
func (v *View) IsSynchronized() bool {
	if !v.seen[Primary] || !v.seen[Hedge] {
		return false
	}
	if v.books[Primary].Seq != v.books[Hedge].Seq {
		return false
	}
	return v.books[Primary].HasTopOfBook() && v.books[Hedge].HasTopOfBook()
}

// RecordTrade 把一笔成交放到窗口最前。
func (v *View) RecordTrade(price, volume int64) {
	s := TradeSample{Price: price, Volume: volume}
	v.trades.Push(s)
	if v.pub != nil {
		v.pub.PublishTrade(s)
	}
}

// RecordTicks 处理聚合成交推送：从最深档往最优档遍历，先买侧后卖侧，
// 数量为 0 的档位跳过，最终最优档位于窗口最前。
func (v *View) RecordTicks(ticks Snapshot) {
	depth := len(ticks.Bids)
	if len(ticks.Asks) > depth {
		depth = len(ticks.Asks)
	}
	for i := depth - 1; i >= 0; i-- {
		if i < len(ticks.Bids) && ticks.Bids[i].Volume > 0 {
			v.RecordTrade(ticks.Bids[i].Price, ticks.Bids[i].Volume)
		}
		if i < len(ticks.Asks) && ticks.Asks[i].Volume > 0 {
			v.RecordTrade(ticks.Asks[i].Price, ticks.Asks[i].Volume)
		}
	}
}

// EstimateVariance 窗口成交价（tick 单位）的总体方差；窗口为空返回 ErrNoTrades。
func (v *View) EstimateVariance() (float64, error) {
	return v.trades.Variance(v.tick)
}

func (v *View) TradedVolume() int64 { return v.trades.TotalVolume() }

func (v *View) TradeCount() int { return v.trades.Len() }

func (v *View) Trades() []TradeSample { return v.trades.Samples() }

// Ready 可以定价：盘口同步且至少有一笔成交。
func (v *View) Ready() bool {
	return v.IsSynchronized() && v.trades.Len() > 0
}

// Snapshot 返回拷贝。
func (v *View) Snapshot(inst Instrument) Snapshot {
	if !inst.Valid() {
		return Snapshot{Instrument: inst}
	}
	return v.books[inst].clone()
}

// Seq 返回该品种最近一次盘口的序号，未收到过时为 -1。
func (v *View) Seq(inst Instrument) int64 {
	if !inst.Valid() || !v.seen[inst] {
		return -1
	}
	return v.books[inst].Seq
}
