package risk

import (
	"pair-maker-go/market"
	"pair-maker-go/order"
)

// Guard 是下单前检查的通用接口，限额、限频等都可实现。
type Guard interface {
	PreOrder(inst market.Instrument, side order.Side, volume int64) error
}

// MultiGuard 顺序执行多个 Guard，只要有一个返回错误则中止。
type MultiGuard struct {
	Guards []Guard
}

func (m MultiGuard) PreOrder(inst market.Instrument, side order.Side, volume int64) error {
	for _, g := range m.Guards {
		if g == nil {
			continue
		}
		if err := g.PreOrder(inst, side, volume); err != nil {
			return err
		}
	}
	return nil
}

// BuildGuards 组装常用的风控组合：限额、extra、限频；nil 项跳过。
// 限频放最后，被前面拒掉的单不占令牌。
func BuildGuards(limits *Limits, exp Exposure, throttle *Throttle, extra ...Guard) Guard {
	var guards []Guard
	if limits != nil && exp != nil {
		guards = append(guards, NewLimitChecker(limits, exp))
	}
	guards = append(guards, extra...)
	if throttle != nil {
		guards = append(guards, throttle)
	}
	return MultiGuard{Guards: guards}
}
