package main

import (
	"context"

	"pair-maker-go/infrastructure/monitor"
	"pair-maker-go/market"
)

// tapMarket 在事件循环之外消费行情副本，更新盘口价差和市场成交量指标。
// 订阅通道满时行情被丢弃，不会拖慢引擎。
func tapMarket(ctx context.Context, books <-chan market.Snapshot, trades <-chan market.TradeSample, tick int64, mon *monitor.Monitor) {
	if tick <= 0 {
		tick = 1
	}
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-books:
			if s.HasTopOfBook() {
				spread := float64(s.BestAsk().Price-s.BestBid().Price) / float64(tick)
				mon.UpdateBookSpread(s.Instrument.String(), spread)
			}
		case t := <-trades:
			mon.RecordMarketVolume(t.Volume)
		}
	}
}
