package order

// Gateway 下单/改单/撤单/对冲的出站接口。调用方不等待回报，实现不得阻塞。
type Gateway interface {
	InsertOrder(id uint64, side Side, price, volume int64, lifespan Lifespan)
	AmendOrder(id uint64, volume int64)
	CancelOrder(id uint64)
	InsertHedgeOrder(id uint64, side Side, price, volume int64)
}

// IDSource 单调递增地分配订单号，从 1 开始，永不复用。
type IDSource struct {
	last uint64
}

// Next 返回下一个订单号。
func (s *IDSource) Next() uint64 {
	s.last++
	return s.last
}

// Last 返回最近分配的订单号，未分配时为 0。
func (s *IDSource) Last() uint64 { return s.last }
