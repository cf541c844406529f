package sim

import (
	"sync"

	"pair-maker-go/gateway"
	"pair-maker-go/internal/engine"
	"pair-maker-go/market"
	"pair-maker-go/order"
)

type resting struct {
	side   order.Side
	price  int64
	volume int64
	filled int64
	fees   int64
}

// Venue is an in-memory order.Gateway for replays. It records every command
// and acknowledges the ones that need no matching engine: cancels, amends
// and hedges. Quote fills come only from the recording.
type Venue struct {
	mu       sync.Mutex
	commands []gateway.Command
	orders   map[uint64]*resting
	pending  []engine.Event
	hedgeTop market.Snapshot
}

var _ order.Gateway = (*Venue)(nil)

func NewVenue() *Venue {
	return &Venue{orders: make(map[uint64]*resting)}
}

func (v *Venue) InsertOrder(id uint64, side order.Side, price, volume int64, lifespan order.Lifespan) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.commands = append(v.commands, gateway.InsertCommand{ID: id, Side: side.String(), Price: price, Volume: volume, Lifespan: lifespan.String()})
	v.orders[id] = &resting{side: side, price: price, volume: volume}
}

// AmendOrder volume 为新的总量；剩余量为 总量-已成交。
func (v *Venue) AmendOrder(id uint64, volume int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.commands = append(v.commands, gateway.AmendCommand{ID: id, Volume: volume})
	o, ok := v.orders[id]
	if !ok || volume >= o.volume {
		return
	}
	o.volume = max(volume, o.filled)
	remaining := o.volume - o.filled
	v.pending = append(v.pending, engine.OrderStatus{OrderID: id, FillVolume: o.filled, RemainingVolume: remaining, Fees: o.fees})
	if remaining == 0 {
		delete(v.orders, id)
	}
}

// CancelOrder 已完结的订单不回报。
func (v *Venue) CancelOrder(id uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.commands = append(v.commands, gateway.CancelCommand{ID: id})
	o, ok := v.orders[id]
	if !ok {
		return
	}
	delete(v.orders, id)
	v.pending = append(v.pending, engine.OrderStatus{OrderID: id, FillVolume: o.filled, Fees: o.fees})
}

// InsertHedgeOrder 按对冲腿对手方最优价全部成交；没有对手盘则成交 0。
func (v *Venue) InsertHedgeOrder(id uint64, side order.Side, price, volume int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.commands = append(v.commands, gateway.HedgeCommand{ID: id, Side: side.String(), Price: price, Volume: volume})

	fill := engine.HedgeFilled{OrderID: id}
	if side == order.Buy {
		if best := v.hedgeTop.BestAsk(); best.Price > 0 && best.Price <= price {
			fill.AveragePrice, fill.Volume = best.Price, volume
		}
	} else {
		if best := v.hedgeTop.BestBid(); best.Price > 0 && best.Price >= price {
			fill.AveragePrice, fill.Volume = best.Price, volume
		}
	}
	v.pending = append(v.pending, fill)
}

// Observe 让模拟交易所跟上录制中的行情与成交。
func (v *Venue) Observe(ev engine.Event) {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch e := ev.(type) {
	case engine.BookUpdate:
		if e.Instrument == market.Hedge {
			v.hedgeTop = e.Snapshot()
		}
	case engine.OrderStatus:
		o, ok := v.orders[e.OrderID]
		if !ok {
			return
		}
		o.filled = e.FillVolume
		o.fees = e.Fees
		if e.RemainingVolume == 0 {
			delete(v.orders, e.OrderID)
		}
	case engine.ErrorReport:
		delete(v.orders, e.OrderID)
	}
}

// Drain 取走并清空待回报的事件。
func (v *Venue) Drain() []engine.Event {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := v.pending
	v.pending = nil
	return out
}

// Commands 返回收到的全部指令拷贝。
func (v *Venue) Commands() []gateway.Command {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]gateway.Command(nil), v.commands...)
}

// Resting 当前未完结的报价单数。
func (v *Venue) Resting() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.orders)
}
