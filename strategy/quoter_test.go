package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pair-maker-go/infrastructure/monitor"
	"pair-maker-go/market"
	"pair-maker-go/order"
	"pair-maker-go/risk"
	"pair-maker-go/strategy/asmm"
)

type insertCmd struct {
	id     uint64
	side   order.Side
	price  int64
	volume int64
}

type amendCmd struct {
	id     uint64
	volume int64
}

type mockGateway struct {
	inserts []insertCmd
	amends  []amendCmd
	cancels []uint64
	hedges  int
}

func (g *mockGateway) InsertOrder(id uint64, side order.Side, price, volume int64, _ order.Lifespan) {
	g.inserts = append(g.inserts, insertCmd{id, side, price, volume})
}
func (g *mockGateway) AmendOrder(id uint64, volume int64) {
	g.amends = append(g.amends, amendCmd{id, volume})
}
func (g *mockGateway) CancelOrder(id uint64) { g.cancels = append(g.cancels, id) }
func (g *mockGateway) InsertHedgeOrder(uint64, order.Side, int64, int64) {
	g.hedges++
}

type denyGuard struct{ err error }

func (d denyGuard) PreOrder(market.Instrument, order.Side, int64) error { return d.err }

type fixture struct {
	ledger *order.Ledger
	ids    *order.IDSource
	gw     *mockGateway
	q      *Quoter
}

func newFixture(t *testing.T, mutate func(*Config), guard risk.Guard) *fixture {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	f := &fixture{ledger: order.NewLedger(100), ids: &order.IDSource{}, gw: &mockGateway{}}
	q, err := NewQuoter(cfg, Deps{
		Ledger:      f.ledger,
		IDs:         f.ids,
		Gateway:     f.gw,
		Guard:       guard,
		Constraints: order.Constraints{TickSize: 100, MinPrice: 1, MaxPrice: 1<<31 - 1},
		Monitor:     monitor.New(monitor.DefaultConfig()),
	})
	require.NoError(t, err)
	f.q = q
	return f
}

func quoteAt(bid, ask int64) asmm.Quote {
	return asmm.Quote{TruePrice: 9950, Reservation: 9950, Spread: 200, Bid: bid, Ask: ask}
}

func (f *fixture) only(t *testing.T, side order.Side) order.Order {
	t.Helper()
	res := f.ledger.Active(order.KindQuote, side)
	require.Len(t, res, 1)
	return res[0]
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	bad := DefaultConfig()
	bad.InitialSize = 101
	assert.Error(t, bad.Validate())
	bad = DefaultConfig()
	bad.DriftDelay = -1
	assert.Error(t, bad.Validate())
	bad = DefaultConfig()
	bad.Sizing = SizingPolicy(7)
	assert.Error(t, bad.Validate())

	p, err := ParseSizingPolicy("multi")
	require.NoError(t, err)
	assert.Equal(t, MultiOrder, p)
	g, err := ParseDriftGate("none")
	require.NoError(t, err)
	assert.Equal(t, GateNone, g)
	g, err = ParseDriftGate("pnl")
	require.NoError(t, err)
	assert.Equal(t, GateProfit, g)
	p, err = ParseSizingPolicy("ratio")
	require.NoError(t, err)
	assert.Equal(t, RatioOrder, p)
	bad = DefaultConfig()
	bad.Sizing = RatioOrder
	bad.OrderSizeRatio = 0
	assert.Error(t, bad.Validate())
	bad = DefaultConfig()
	bad.CancellationPenalty = -1
	assert.Error(t, bad.Validate())
	_, err = ParseDriftGate("sometimes")
	assert.Error(t, err)
}

func TestNewQuoterRejectsMismatchedLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PositionLimit = 50
	cfg.InitialSize = 10
	_, err := NewQuoter(cfg, Deps{Ledger: order.NewLedger(100), IDs: &order.IDSource{}, Gateway: &mockGateway{}})
	assert.Error(t, err)
}

func TestInitialQuotesWhenFlat(t *testing.T) {
	f := newFixture(t, nil, nil)
	p := f.q.Update(quoteAt(9800, 10100), 1)

	assert.Equal(t, 2, p.Placed)
	assert.True(t, p.Settled)
	require.Len(t, f.gw.inserts, 2)
	assert.Equal(t, insertCmd{1, order.Buy, 9800, 50}, f.gw.inserts[0])
	assert.Equal(t, insertCmd{2, order.Sell, 10100, 50}, f.gw.inserts[1])
	assert.NotPanics(t, f.ledger.CheckBalance)

	p = f.q.Update(quoteAt(9800, 10100), 2)
	assert.False(t, p.Changed(), "same target is a no-op")
	assert.True(t, p.Settled)
}

func (f *fixture) rest(t *testing.T, side order.Side, price, volume int64) uint64 {
	t.Helper()
	id := f.ids.Next()
	require.NoError(t, f.ledger.Register(order.Order{ID: id, Kind: order.KindQuote, Instrument: market.Primary, Side: side, Price: price, Volume: volume, CreatedSeq: 1}))
	return id
}

func TestAmendChosenOverCancelForSmallerSize(t *testing.T) {
	f := newFixture(t, nil, nil)
	// 卖单只剩 30：同价买单目标降到 30
	bid := f.rest(t, order.Buy, 9800, 50)
	f.rest(t, order.Sell, 10100, 30)

	p := f.q.Update(quoteAt(9800, 10100), 2)
	assert.Equal(t, 1, p.Amended)
	assert.Equal(t, 0, p.Canceled)
	assert.Empty(t, f.gw.cancels)
	require.Len(t, f.gw.amends, 1)
	assert.Equal(t, amendCmd{bid, 30}, f.gw.amends[0])
	assert.EqualValues(t, 30, f.only(t, order.Buy).Remaining)
	assert.True(t, p.Settled)
	assert.NotPanics(t, f.ledger.CheckBalance)
}

func TestAbsentAskSizedFromRestingBid(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.q.Update(quoteAt(9800, 10100), 1)
	bid, ask := f.only(t, order.Buy), f.only(t, order.Sell)

	moved := quoteAt(9800, 10200)
	p := f.q.Update(moved, 5)
	require.Equal(t, []uint64{ask.ID}, f.gw.cancels, "only the stale ask is canceled")
	assert.Equal(t, 1, p.Canceled)

	_, err := f.ledger.ApplyStatus(ask.ID, 0, 0, 0)
	require.NoError(t, err)

	p = f.q.Update(moved, 6)
	assert.Equal(t, []uint64{ask.ID}, f.gw.cancels, "the resting bid keeps its place")
	assert.Equal(t, 1, p.Placed)
	assert.Equal(t, 0, p.Amended)
	assert.True(t, p.Settled)
	assert.Equal(t, bid.ID, f.only(t, order.Buy).ID)
	na := f.only(t, order.Sell)
	assert.EqualValues(t, 10200, na.Price)
	assert.EqualValues(t, 50, na.Remaining)
	assert.NotPanics(t, f.ledger.CheckBalance)
}

func TestAbsentBidSizedFromRestingAsk(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.q.Update(quoteAt(9800, 10100), 1)
	bid, ask := f.only(t, order.Buy), f.only(t, order.Sell)

	// 买单成交 20 后被撤：仓位 +20，卖单 50 仍在
	_, err := f.ledger.ApplyStatus(bid.ID, 20, 0, 0)
	require.NoError(t, err)

	p := f.q.Update(quoteAt(9800, 10100), 2)
	assert.Empty(t, f.gw.cancels)
	assert.Equal(t, 1, p.Placed)
	assert.Equal(t, ask.ID, f.only(t, order.Sell).ID)
	assert.EqualValues(t, 30, f.only(t, order.Buy).Remaining)
	assert.NotPanics(t, f.ledger.CheckBalance)
}

func TestCancelOnlyAfterDriftDelay(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.q.Update(quoteAt(9800, 10100), 10)
	bid := f.only(t, order.Buy)

	moved := quoteAt(9700, 10100)
	for _, seq := range []int64{11, 12} {
		p := f.q.Update(moved, seq)
		assert.Equal(t, 1, p.Deferred, "seq %d", seq)
		assert.False(t, p.Settled)
	}
	assert.Empty(t, f.gw.cancels)

	p := f.q.Update(moved, 13)
	assert.Equal(t, 1, p.Canceled)
	assert.Equal(t, []uint64{bid.ID}, f.gw.cancels)
	assert.Equal(t, 1, f.q.CancelPending())

	p = f.q.Update(moved, 14)
	assert.Equal(t, 0, p.Canceled, "cancel is sent once")
	assert.Len(t, f.gw.cancels, 1)
	_, stillActive := f.ledger.Get(bid.ID)
	assert.True(t, stillActive, "order stays until the venue confirms")

	_, err := f.ledger.ApplyStatus(bid.ID, 0, 0, 0)
	require.NoError(t, err)
	p = f.q.Update(moved, 15)
	assert.Equal(t, 1, p.Placed)
	assert.Equal(t, 0, f.q.CancelPending())
	last := f.gw.inserts[len(f.gw.inserts)-1]
	assert.Equal(t, order.Buy, last.side)
	assert.EqualValues(t, 9700, last.price)
	assert.EqualValues(t, 50, last.volume)
	assert.NotPanics(t, f.ledger.CheckBalance)
}

func TestGateNoneCancelsImmediately(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Drift = GateNone }, nil)
	f.q.Update(quoteAt(9800, 10100), 10)
	p := f.q.Update(quoteAt(9800, 10200), 11)
	assert.Equal(t, 1, p.Canceled)
	assert.Len(t, f.gw.cancels, 1)
}

func TestFillRacingCancelIsApplied(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Drift = GateNone }, nil)
	f.q.Update(quoteAt(9800, 10100), 1)
	ask := f.only(t, order.Sell)
	f.q.Update(quoteAt(9800, 10200), 2)
	require.Equal(t, []uint64{ask.ID}, f.gw.cancels)

	// 撤单确认前成交了 10，确认回报带着这笔成交
	up, err := f.ledger.ApplyStatus(ask.ID, 10, 0, 0)
	require.NoError(t, err)
	assert.True(t, up.Canceled)
	assert.EqualValues(t, -10, f.ledger.Position(market.Primary))

	p := f.q.Update(quoteAt(9800, 10200), 3)
	// 仓位 -10、买单 50 仍在：卖量 = -10 + 50 = 40，买单不动
	assert.Equal(t, 0, p.Amended)
	require.Equal(t, 1, p.Placed)
	last := f.gw.inserts[len(f.gw.inserts)-1]
	assert.Equal(t, insertCmd{last.id, order.Sell, 10200, 40}, last)
	assert.NotPanics(t, f.ledger.CheckBalance)
}

func TestLongPositionCapsBidSize(t *testing.T) {
	for pos := int64(-100); pos <= 100; pos += 10 {
		for ask := int64(0); ask <= 100+pos; ask += 10 {
			bid, askSize := singleOrderSizes(pos, ask, 100)
			require.LessOrEqual(t, pos+bid, int64(100), "pos=%d ask=%d", pos, ask)
			require.GreaterOrEqual(t, bid, int64(0))
			require.GreaterOrEqual(t, pos-askSize, int64(-100))
		}
	}

	f := newFixture(t, nil, nil)
	require.NoError(t, f.ledger.Register(order.Order{ID: f.ids.Next(), Kind: order.KindQuote, Instrument: market.Primary, Side: order.Sell, Price: 10100, Volume: 100}))
	buyID := f.ids.Next()
	require.NoError(t, f.ledger.Register(order.Order{ID: buyID, Kind: order.KindQuote, Instrument: market.Primary, Side: order.Buy, Price: 9800, Volume: 80}))
	_, err := f.ledger.ApplyStatus(buyID, 80, 0, 0)
	require.NoError(t, err)
	require.EqualValues(t, 80, f.ledger.Position(market.Primary))

	p := f.q.Update(quoteAt(9800, 10100), 5)
	require.Equal(t, 1, p.Placed)
	last := f.gw.inserts[len(f.gw.inserts)-1]
	assert.Equal(t, order.Buy, last.side)
	assert.LessOrEqual(t, last.volume, int64(20))
	assert.LessOrEqual(t, f.ledger.Position(market.Primary)+f.ledger.OutstandingBuy(), int64(100))
	assert.True(t, p.Settled)
	assert.NotPanics(t, f.ledger.CheckBalance)
}

func TestGuardRejectionSkipsInsert(t *testing.T) {
	f := newFixture(t, nil, denyGuard{err: risk.ErrTooFrequent})
	p := f.q.Update(quoteAt(9800, 10100), 1)
	assert.Equal(t, 0, p.Placed)
	assert.False(t, p.Settled)
	assert.True(t, p.Blocked)
	assert.Empty(t, f.gw.inserts)
	assert.EqualValues(t, 0, f.ids.Last())
}

func TestNonPositivePriceSkipped(t *testing.T) {
	f := newFixture(t, nil, nil)
	p := f.q.Update(quoteAt(-100, 100), 1)
	assert.Equal(t, 1, p.Placed, "only the ask is valid")
	assert.False(t, p.Settled)
}

func TestMultiOrderZeroSumAfterEveryEvent(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Sizing = MultiOrder }, nil)
	q := quoteAt(9800, 10100)
	f.q.Update(q, 1)
	f.ledger.CheckBalance()

	fills := []struct {
		side order.Side
		vol  int64
	}{
		{order.Buy, 20}, {order.Sell, 35}, {order.Buy, 5}, {order.Sell, 15}, {order.Buy, 30}, {order.Sell, 40},
	}
	seq := int64(2)
	for _, fl := range fills {
		resting := f.ledger.Active(order.KindQuote, fl.side)
		require.NotEmpty(t, resting)
		o := resting[0]
		vol := min(fl.vol, o.Remaining)
		up, err := f.ledger.ApplyStatus(o.ID, o.Filled+vol, o.Remaining-vol, 0)
		require.NoError(t, err)
		assert.NotPanics(t, f.ledger.CheckBalance, "after fill %+v", fl)

		f.q.OnFill(fl.side, up.Filled, q, seq)
		assert.NotPanics(t, f.ledger.CheckBalance, "after replenish %+v", fl)
		assert.NotPanics(t, f.ledger.CheckInvariants)

		p := f.q.Update(q, seq)
		assert.NotPanics(t, f.ledger.CheckBalance, "after pass %+v", fl)
		assert.True(t, p.Settled)
		seq++
	}
}

func TestMultiOrderReplenishIsCapped(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Sizing = MultiOrder }, nil)
	q := quoteAt(9800, 10100)
	f.q.Update(q, 1)

	bid := f.only(t, order.Buy)
	_, err := f.ledger.ApplyStatus(bid.ID, 50, 0, 0)
	require.NoError(t, err)
	// pos 50, buy 0, sell 50：bidRoom 50，askRoom 100
	p := f.q.OnFill(order.Buy, 50, q, 2)
	assert.Equal(t, 2, p.Placed)
	assert.EqualValues(t, 50, f.ledger.OutstandingBuy())
	assert.EqualValues(t, 100, f.ledger.OutstandingSell())

	asks := f.ledger.Active(order.KindQuote, order.Sell)
	require.Len(t, asks, 2)
	_, err = f.ledger.ApplyStatus(asks[0].ID, 50, 0, 0)
	require.NoError(t, err)
	// pos 0, buy 50, sell 50：bidRoom 50，askRoom 50
	p = f.q.OnFill(order.Sell, 50, q, 3)
	assert.Equal(t, 2, p.Placed)
	assert.NotPanics(t, f.ledger.CheckBalance)
	assert.NotPanics(t, f.ledger.CheckInvariants)

	p = f.q.OnFill(order.Sell, 50, q, 4)
	assert.Equal(t, 0, p.Placed, "no room left on the buy side")
}

func TestMultiOrderStaleOrdersReplaced(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Sizing = MultiOrder }, nil)
	f.q.Update(quoteAt(9800, 10100), 1)
	bid := f.only(t, order.Buy)

	moved := quoteAt(9900, 10100)
	p := f.q.Update(moved, 4)
	assert.Equal(t, 1, p.Canceled)
	assert.False(t, p.Settled)

	_, err := f.ledger.ApplyStatus(bid.ID, 0, 0, 0)
	require.NoError(t, err)
	p = f.q.Update(moved, 5)
	require.Equal(t, 1, p.Placed)
	nb := f.only(t, order.Buy)
	assert.EqualValues(t, 9900, nb.Price)
	assert.EqualValues(t, 50, nb.Remaining)
	assert.True(t, p.Settled)
	assert.NotPanics(t, f.ledger.CheckBalance)
}

func TestCancelAll(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.q.Update(quoteAt(9800, 10100), 1)
	assert.Equal(t, 2, f.q.CancelAll("shutdown"))
	assert.Equal(t, 0, f.q.CancelAll("shutdown"), "already pending")
	assert.Len(t, f.gw.cancels, 2)
}

func takerQuote(bid, ask, hedgeBid, hedgeAsk int64) asmm.Quote {
	q := quoteAt(bid, ask)
	q.HedgeBid, q.HedgeAsk = hedgeBid, hedgeAsk
	return q
}

func TestRatioSizing(t *testing.T) {
	for _, tc := range []struct {
		pos, bid, ask int64
	}{
		{0, 50, 50},
		{40, 30, 70},
		{-100, 100, 0},
		{100, 0, 100},
		{-15, 57, 42},
	} {
		bid, ask := ratioSizes(tc.pos, 100, 0.5)
		assert.Equal(t, tc.bid, bid, "pos %d", tc.pos)
		assert.Equal(t, tc.ask, ask, "pos %d", tc.pos)
	}

	f := newFixture(t, func(c *Config) {
		c.Sizing = RatioOrder
		c.OrderSizeRatio = 0.3
	}, nil)
	p := f.q.Update(quoteAt(9800, 10100), 1)
	require.Equal(t, 2, p.Placed)
	assert.Equal(t, insertCmd{1, order.Buy, 9800, 30}, f.gw.inserts[0])
	assert.Equal(t, insertCmd{2, order.Sell, 10100, 30}, f.gw.inserts[1])

	// 买单成交 30：买侧额度 70 → 目标 21，卖侧 130 → 39，只能减量不能加量
	_, err := f.ledger.ApplyStatus(1, 30, 0, 0)
	require.NoError(t, err)
	p = f.q.Update(quoteAt(9800, 10100), 2)
	assert.Equal(t, 1, p.Placed)
	assert.EqualValues(t, 21, f.only(t, order.Buy).Remaining)
	assert.EqualValues(t, 30, f.only(t, order.Sell).Remaining)
	assert.NotPanics(t, f.ledger.CheckInvariants)
}

func TestProfitGateCancelsLosingQuoteBeforeDrift(t *testing.T) {
	f := newFixture(t, func(c *Config) {
		c.Drift = GateProfit
		c.DriftDelay = 100
		c.CancellationPenalty = 0.1
	}, nil)
	f.q.Update(takerQuote(9800, 10100, 9900, 10000), 1)
	bid, ask := f.only(t, order.Buy), f.only(t, order.Sell)

	// 对冲卖一跌到 9700：买单 9800 对冲即亏，驻留未满也立即撤；卖单仍有利润，等驻留
	p := f.q.Update(takerQuote(9600, 10100, 9600, 9700), 2)
	assert.Equal(t, []uint64{bid.ID}, f.gw.cancels)
	assert.Equal(t, 1, p.Canceled)

	// 卖单 pl = 50·(10100-9600)；新目标 9900 的 pl 更小，不撤
	p = f.q.Update(takerQuote(9600, 9900, 9600, 9700), 3)
	assert.Equal(t, 0, p.Canceled)
	assert.Equal(t, 2, p.Deferred, "bid cancel in flight, ask waiting on drift")
	_, ok := f.ledger.Get(ask.ID)
	assert.True(t, ok)
}

func TestProfitGateCancelsForBetterTarget(t *testing.T) {
	f := newFixture(t, func(c *Config) {
		c.Drift = GateProfit
		c.DriftDelay = 100
		c.CancellationPenalty = 0.1
	}, nil)
	f.q.Update(takerQuote(9800, 10100, 9900, 10000), 1)
	ask := f.only(t, order.Sell)

	// 卖单 pl = 50·(10100-9900) = 10000；新目标 10400 对 9900：25000 > 11000
	p := f.q.Update(takerQuote(9800, 10400, 9900, 10000), 2)
	assert.Equal(t, []uint64{ask.ID}, f.gw.cancels)
	assert.Equal(t, 1, p.Canceled)

	// 惩罚 0.6：10000·1.6 = 16000，新目标 10200 只有 15000，不撤
	g := newFixture(t, func(c *Config) {
		c.Drift = GateProfit
		c.DriftDelay = 100
		c.CancellationPenalty = 0.6
	}, nil)
	g.q.Update(takerQuote(9800, 10100, 9900, 10000), 1)
	p = g.q.Update(takerQuote(9800, 10200, 9900, 10000), 2)
	assert.Equal(t, 0, p.Canceled)
	assert.Equal(t, 1, p.Deferred)
	assert.Empty(t, g.gw.cancels)
}
