package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"pair-maker-go/market"
	"pair-maker-go/order"
)

func TestAccountStatement(t *testing.T) {
	a := NewAccount()
	a.OnFill(market.Primary, order.Buy, 9900, 10)
	a.OnFill(market.Primary, order.Sell, 10100, 4)
	a.OnFill(market.Hedge, order.Sell, 10000, 6)
	a.PostFees(12)
	a.PostFees(-2)
	a.OnFill(market.Instrument(5), order.Buy, 1, 1)

	st := a.Statement([2]float64{10000, 0})
	assert.Equal(t, map[string]int64{"PRIMARY": 6, "HEDGE": -6}, st.Positions)
	assert.True(t, decimal.NewFromInt(800).Equal(st.Realized), "realized %s", st.Realized)
	assert.True(t, decimal.NewFromInt(600).Equal(st.Unrealized), "unrealized %s", st.Unrealized)
	assert.True(t, decimal.NewFromInt(10).Equal(st.Fees))
	assert.True(t, decimal.NewFromInt(1390).Equal(st.Net), "net %s", st.Net)
	assert.EqualValues(t, 3, st.Fills)
	assert.Nil(t, a.Tracker(market.Instrument(5)))
}
