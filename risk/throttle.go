package risk

import (
	"fmt"

	"golang.org/x/time/rate"

	"pair-maker-go/market"
	"pair-maker-go/order"
)

// Throttle 限制出站下单频率。事件循环不能阻塞，所以只用 Allow，不用 Wait。
type Throttle struct {
	limiter *rate.Limiter
	clock   Clock
}

// NewThrottle perSecond <= 0 表示不限频。
func NewThrottle(perSecond float64, burst int, clock Clock) *Throttle {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	if clock == nil {
		clock = SystemClock
	}
	return &Throttle{limiter: rate.NewLimiter(limit, burst), clock: clock}
}

func (t *Throttle) PreOrder(inst market.Instrument, side order.Side, volume int64) error {
	if !t.limiter.AllowN(t.clock.Now(), 1) {
		return fmt.Errorf("%w: %s %s %d", ErrTooFrequent, inst, side, volume)
	}
	return nil
}

// SetRate 热更新速率。
func (t *Throttle) SetRate(perSecond float64) {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	t.limiter.SetLimitAt(t.clock.Now(), limit)
}
