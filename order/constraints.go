package order

import (
	"errors"
	"fmt"
)

// ErrConstraint 价格或数量不满足品种约束。
var ErrConstraint = errors.New("order constraint")

// Constraints 描述品种的最小价格变动与价格区间。
type Constraints struct {
	TickSize int64
	MinPrice int64
	MaxPrice int64
}

// Validate 检查订单价格/数量是否符合精度与价格带。
func (c Constraints) Validate(price, volume int64) error {
	if volume <= 0 {
		return fmt.Errorf("%w: volume %d must be > 0", ErrConstraint, volume)
	}
	if price <= 0 {
		return fmt.Errorf("%w: price %d must be > 0", ErrConstraint, price)
	}
	if c.TickSize > 0 && price%c.TickSize != 0 {
		return fmt.Errorf("%w: price %d not aligned to tickSize %d", ErrConstraint, price, c.TickSize)
	}
	if c.MinPrice > 0 && price < c.MinPrice {
		return fmt.Errorf("%w: price %d < minPrice %d", ErrConstraint, price, c.MinPrice)
	}
	if c.MaxPrice > 0 && price > c.MaxPrice {
		return fmt.Errorf("%w: price %d > maxPrice %d", ErrConstraint, price, c.MaxPrice)
	}
	return nil
}
