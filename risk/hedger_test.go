package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pair-maker-go/infrastructure/logger"
	"pair-maker-go/market"
	"pair-maker-go/order"
)

type hedgeCmd struct {
	id     uint64
	side   order.Side
	price  int64
	volume int64
}

type recordingGateway struct {
	hedges []hedgeCmd
}

func (g *recordingGateway) InsertOrder(uint64, order.Side, int64, int64, order.Lifespan) {}
func (g *recordingGateway) AmendOrder(uint64, int64)                                   {}
func (g *recordingGateway) CancelOrder(uint64)                                         {}
func (g *recordingGateway) InsertHedgeOrder(id uint64, side order.Side, price, volume int64) {
	g.hedges = append(g.hedges, hedgeCmd{id, side, price, volume})
}

type hedgeFixture struct {
	ledger *order.Ledger
	ids    *order.IDSource
	gw     *recordingGateway
	h      *Hedger
}

func newHedgeFixture(t *testing.T, guard Guard) *hedgeFixture {
	t.Helper()
	f := &hedgeFixture{ledger: order.NewLedger(100), ids: &order.IDSource{}, gw: &recordingGateway{}}
	h, err := NewHedger(DefaultHedgeConfig(), f.ledger, f.ids, f.gw, guard, logger.NewNop())
	require.NoError(t, err)
	f.h = h
	return f
}

// fillPrimary 模拟报价单成交，使 Primary 仓位变化 side*volume。
func (f *hedgeFixture) fillPrimary(t *testing.T, side order.Side, volume int64) {
	t.Helper()
	id := f.ids.Next()
	require.NoError(t, f.ledger.Register(order.Order{ID: id, Kind: order.KindQuote, Instrument: market.Primary, Side: side, Price: 9900, Volume: volume}))
	_, err := f.ledger.ApplyStatus(id, volume, 0, 0)
	require.NoError(t, err)
}

func TestGuaranteedCrossPrices(t *testing.T) {
	sell, buy := DefaultHedgeConfig().GuaranteedCrossPrices()
	assert.EqualValues(t, 100, sell)
	assert.EqualValues(t, 2147483600, buy)
}

func TestHedgeConfigValidate(t *testing.T) {
	require.NoError(t, DefaultHedgeConfig().Validate())
	bad := DefaultHedgeConfig()
	bad.TickSize = 0
	assert.Error(t, bad.Validate())
	bad = DefaultHedgeConfig()
	bad.MaxPrice = 50
	assert.Error(t, bad.Validate())
}

func TestHedgeAfterCooldown(t *testing.T) {
	f := newHedgeFixture(t, nil)
	f.h.Observe(0)
	f.fillPrimary(t, order.Buy, 15)

	f.h.Observe(10) // delta 15 > 10，不刷新 lastFlat
	assert.EqualValues(t, 0, f.h.LastFlatSeq())

	_, sent := f.h.Evaluate(599)
	assert.False(t, sent, "cooldown not elapsed")

	o, sent := f.h.Evaluate(600)
	require.True(t, sent)
	assert.Equal(t, order.Sell, o.Side)
	assert.EqualValues(t, 15, o.Volume)
	assert.EqualValues(t, 100, o.Price)
	assert.Equal(t, HedgePending, f.h.State())

	_, sent = f.h.Evaluate(601)
	assert.False(t, sent, "hedge already outstanding")
	require.Len(t, f.gw.hedges, 1)
	assert.Equal(t, hedgeCmd{o.ID, order.Sell, 100, 15}, f.gw.hedges[0])

	_, err := f.h.OnFill(o.ID, 15)
	require.NoError(t, err)
	assert.Equal(t, HedgeFlat, f.h.State())
	assert.EqualValues(t, 0, f.h.Delta())
	assert.EqualValues(t, -15, f.ledger.Position(market.Hedge))

	_, sent = f.h.Evaluate(602)
	assert.False(t, sent, "nothing left to hedge")
}

func TestHedgeShortDeltaBuysAtMaxPrice(t *testing.T) {
	f := newHedgeFixture(t, nil)
	f.fillPrimary(t, order.Sell, 40)

	o, sent := f.h.Evaluate(1000)
	require.True(t, sent)
	assert.Equal(t, order.Buy, o.Side)
	assert.EqualValues(t, 40, o.Volume)
	assert.EqualValues(t, 2147483600, o.Price)
}

func TestHedgeZeroFillReturnsToFlatAndRetries(t *testing.T) {
	f := newHedgeFixture(t, nil)
	f.fillPrimary(t, order.Buy, 20)

	o, sent := f.h.Evaluate(700)
	require.True(t, sent)
	up, err := f.h.OnFill(o.ID, 0)
	require.NoError(t, err)
	assert.True(t, up.Terminal)
	assert.Equal(t, HedgeFlat, f.h.State())

	again, sent := f.h.Evaluate(701)
	require.True(t, sent)
	assert.NotEqual(t, o.ID, again.ID)
	assert.EqualValues(t, 20, again.Volume)
}

func TestHedgeWithinToleranceRefreshesLastFlat(t *testing.T) {
	f := newHedgeFixture(t, nil)
	f.fillPrimary(t, order.Buy, 10)
	f.h.Observe(500)
	assert.EqualValues(t, 500, f.h.LastFlatSeq())

	_, sent := f.h.Evaluate(1000)
	assert.False(t, sent)
	_, sent = f.h.Evaluate(1100)
	assert.True(t, sent, "small deltas still hedge once the cooldown runs out")
}

func TestHedgeReject(t *testing.T) {
	f := newHedgeFixture(t, nil)
	f.fillPrimary(t, order.Buy, 30)
	o, sent := f.h.Evaluate(600)
	require.True(t, sent)

	_, err := f.h.Reject(o.ID)
	require.NoError(t, err)
	assert.Equal(t, HedgeFlat, f.h.State())
	assert.EqualValues(t, 0, f.ledger.Position(market.Hedge))
}

func TestHedgeBlockedByGuard(t *testing.T) {
	guard := &stubGuard{err: ErrTooFrequent}
	f := newHedgeFixture(t, guard)
	f.fillPrimary(t, order.Buy, 30)

	_, sent := f.h.Evaluate(600)
	assert.False(t, sent)
	assert.Empty(t, f.gw.hedges)
	assert.Equal(t, 1, guard.calls)
	assert.EqualValues(t, 1, f.ids.Last(), "no id consumed for a blocked hedge")
}

func TestHedgerUpdateConfig(t *testing.T) {
	f := newHedgeFixture(t, nil)
	cfg := f.h.Config()
	cfg.Cooldown = 5
	require.NoError(t, f.h.UpdateConfig(cfg))
	assert.EqualValues(t, 5, f.h.Config().Cooldown)

	cfg.TickSize = -1
	assert.Error(t, f.h.UpdateConfig(cfg))
	assert.EqualValues(t, 100, f.h.Config().TickSize)
}
