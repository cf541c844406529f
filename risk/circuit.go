package risk

import (
	"fmt"

	"pair-maker-go/market"
	"pair-maker-go/order"
)

type midTick struct {
	seq int64
	mid float64
}

// CircuitBreaker 报价腿 mid 在 Window 个序号内的相对涨跌幅超过 Threshold 时熔断，
// 之后 Cooldown 个序号内拒绝新的报价单。对冲单不拦，仓位照常可以对冲掉。
type CircuitBreaker struct {
	Threshold float64 // <=0 不启用
	Window    int64
	Cooldown  int64

	window    []midTick
	tripped   bool
	trippedAt int64
	trips     int64
}

func NewCircuitBreaker(threshold float64, window, cooldown int64) *CircuitBreaker {
	if window <= 0 {
		window = 10
	}
	if cooldown <= 0 {
		cooldown = window
	}
	return &CircuitBreaker{
		Threshold: threshold,
		Window:    window,
		Cooldown:  cooldown,
		window:    make([]midTick, 0, 64),
	}
}

// OnMid 记录一次 mid，返回是否在本次新触发熔断。
func (c *CircuitBreaker) OnMid(seq int64, mid float64) bool {
	if c == nil || c.Threshold <= 0 || mid <= 0 {
		return false
	}
	c.window = append(c.window, midTick{seq: seq, mid: mid})
	c.trim(seq - c.Window)

	if c.tripped {
		if seq-c.trippedAt < c.Cooldown {
			return false
		}
		c.tripped = false
		// 冷却结束后从当前价重新计算，不拿熔断前的行情再触发一次
		c.window = append(c.window[:0], midTick{seq: seq, mid: mid})
	}
	if !c.check() {
		return false
	}
	c.tripped = true
	c.trippedAt = seq
	c.trips++
	return true
}

func (c *CircuitBreaker) trim(cutoff int64) {
	i := 0
	for ; i < len(c.window); i++ {
		if c.window[i].seq > cutoff {
			break
		}
	}
	if i > 0 {
		c.window = append(c.window[:0], c.window[i:]...)
	}
}

func (c *CircuitBreaker) check() bool {
	if len(c.window) < 2 {
		return false
	}
	first := c.window[0].mid
	last := c.window[len(c.window)-1].mid
	change := (last - first) / first
	return change > c.Threshold || change < -c.Threshold
}

func (c *CircuitBreaker) Tripped() bool { return c != nil && c.tripped }

func (c *CircuitBreaker) Trips() int64 {
	if c == nil {
		return 0
	}
	return c.trips
}

// PreOrder 熔断期间拒绝报价腿的新单。
func (c *CircuitBreaker) PreOrder(inst market.Instrument, side order.Side, volume int64) error {
	if c == nil || !c.tripped || inst != market.Primary {
		return nil
	}
	return fmt.Errorf("%w: tripped at seq %d", ErrCircuitOpen, c.trippedAt)
}
