package order

import (
	"errors"
	"fmt"

	"pair-maker-go/market"
)

// InvariantError is raised (as a panic) when the ledger reaches a state that
// only a logic error in pricing or quoting can produce. It is recovered at
// the engine boundary, never inside the ledger.
type InvariantError struct {
	Rule   string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant %s violated: %s", e.Rule, e.Detail)
}

func fail(rule, format string, args ...interface{}) {
	panic(&InvariantError{Rule: rule, Detail: fmt.Sprintf(format, args...)})
}

// AsInvariant 从 recover() 的结果中取出 InvariantError。
func AsInvariant(r interface{}) (*InvariantError, bool) {
	if r == nil {
		return nil, false
	}
	err, ok := r.(error)
	if !ok {
		return nil, false
	}
	var ie *InvariantError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// CheckInvariants 校验仓位限额、挂单上限与订单数量；违反即 panic。
func (l *Ledger) CheckInvariants() {
	for _, inst := range []market.Instrument{market.Primary, market.Hedge} {
		if p := l.positions[inst]; p > l.limit || p < -l.limit {
			fail("position-limit", "%s position %d exceeds limit %d", inst, p, l.limit)
		}
	}
	pos := l.positions[market.Primary]
	if pos+l.buy > l.limit {
		fail("buy-capacity", "position %d + outstanding buy %d > %d", pos, l.buy, l.limit)
	}
	if pos-l.sell < -l.limit {
		fail("sell-capacity", "position %d - outstanding sell %d < -%d", pos, l.sell, l.limit)
	}

	var buy, sell int64
	hedges := map[Side]int{}
	for id, o := range l.orders {
		if o.Remaining <= 0 || o.Volume <= 0 {
			fail("positive-volume", "order %d remaining=%d volume=%d", id, o.Remaining, o.Volume)
		}
		if o.Kind == KindHedge {
			hedges[o.Side]++
			if hedges[o.Side] > 1 {
				fail("single-hedge", "more than one %s hedge outstanding", o.Side)
			}
			continue
		}
		if o.Side == Buy {
			buy += o.Remaining
		} else {
			sell += o.Remaining
		}
	}
	if buy != l.buy || sell != l.sell {
		fail("outstanding-totals", "tracked buy/sell %d/%d, orders sum to %d/%d", l.buy, l.sell, buy, sell)
	}
}

// CheckBalance 校验零和关系 buy - sell + position == 0。
func (l *Ledger) CheckBalance() {
	pos := l.positions[market.Primary]
	if l.buy-l.sell+pos != 0 {
		fail("zero-sum", "outstanding buy %d - sell %d + position %d = %d", l.buy, l.sell, pos, l.buy-l.sell+pos)
	}
}
