package asmm

import (
	"errors"
	"fmt"
)

// ErrNoTopOfBook 需要的一侧盘口为空。
var ErrNoTopOfBook = errors.New("book has no top of book")

// Model is the Avellaneda–Stoikov pricing model for the Primary instrument,
// anchored on the Hedge instrument's price.
type Model struct {
	cfg Config
}

// NewModel creates a new pricing model.
func NewModel(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("asmm config: %w", err)
	}
	return &Model{cfg: cfg}, nil
}

func (m *Model) Config() Config { return m.cfg }

// UpdateConfig 热更新参数；非法配置保持原值。
func (m *Model) UpdateConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("asmm config: %w", err)
	}
	m.cfg = cfg
	return nil
}

// TruePrice 计算报价中枢。
func (m *Model) TruePrice(in Inputs) (float64, error) {
	if !in.Hedge.HasTopOfBook() {
		return 0, fmt.Errorf("%w: %s", ErrNoTopOfBook, in.Hedge.Instrument)
	}
	hedgeMid := in.Hedge.Mid()
	switch m.cfg.TruePrice {
	case LagBlend:
		if !in.Primary.HasTopOfBook() {
			return 0, fmt.Errorf("%w: %s", ErrNoTopOfBook, in.Primary.Instrument)
		}
		return hedgeMid + (in.Primary.Mid()-hedgeMid)*m.cfg.LagFactor, nil
	case EffectiveBlend:
		eff, err := in.Primary.EffectiveMid(m.cfg.EffectiveSize)
		if err != nil {
			return 0, err
		}
		return hedgeMid + (eff-hedgeMid)*m.cfg.LagFactor, nil
	default:
		return hedgeMid, nil
	}
}

// TimeRemaining 返回 (T - t) = (lastFlat + horizon - seq) / horizon，限制在 [0,1]。
func (m *Model) TimeRemaining(seq, lastFlat int64) float64 {
	h := float64(m.cfg.HedgeHorizon)
	t := float64(lastFlat+m.cfg.HedgeHorizon-seq) / h
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// sigma2 把跳单位的方差换算到价格口径。
func (m *Model) sigma2(in Inputs) float64 {
	return in.Variance * float64(m.cfg.TickSize)
}

// ReservationPrice r = s - q·γ·σ²·(T-t)
func (m *Model) ReservationPrice(in Inputs) (float64, error) {
	s, err := m.TruePrice(in)
	if err != nil {
		return 0, err
	}
	return m.reservation(s, in), nil
}

func (m *Model) reservation(s float64, in Inputs) float64 {
	t := m.TimeRemaining(in.Seq, in.LastFlatSeq)
	return s - float64(in.Position)*m.cfg.Gamma*m.sigma2(in)*t
}

// Spread 返回总价差 δ，不小于 MinSpreadTicks 跳；MinSpreadTicks 为 0 时
// 即 δ = γσ²(T-t) + (2/γ)·ln(1 + γ/κ) 原式。hedge_taker 下为对冲腿价差。
func (m *Model) Spread(in Inputs) (float64, error) {
	tick := float64(m.cfg.TickSize)
	var delta float64
	switch m.cfg.Spread {
	case HedgeTaker:
		delta = float64(in.Hedge.BestAsk().Price - in.Hedge.BestBid().Price)
	case TickOffset:
		delta = 2 * tick
	default:
		kappa := m.cfg.VolumeAdjustment * float64(in.TradedVolume)
		d, err := avellanedaStoikov(m.cfg.Gamma, m.sigma2(in), m.TimeRemaining(in.Seq, in.LastFlatSeq), kappa)
		if err != nil {
			return 0, err
		}
		delta = d
	}
	if floor := float64(m.cfg.MinSpreadTicks) * tick; delta < floor {
		delta = floor
	}
	return delta, nil
}

// Quote prices both sides. The bid is rounded down and the ask up so rounding
// never narrows the spread.
func (m *Model) Quote(in Inputs) (Quote, error) {
	s, err := m.TruePrice(in)
	if err != nil {
		return Quote{}, err
	}
	if m.cfg.Spread == HedgeTaker {
		return m.takerQuote(s, in)
	}
	delta, err := m.Spread(in)
	if err != nil {
		return Quote{}, err
	}
	r := m.reservation(s, in)
	return Quote{
		TruePrice:   s,
		Reservation: r,
		Spread:      delta,
		Bid:         RoundBid(r-delta/2, m.cfg.TickSize),
		Ask:         RoundAsk(r+delta/2, m.cfg.TickSize),
		HedgeBid:    in.Hedge.BestBid().Price,
		HedgeAsk:    in.Hedge.BestAsk().Price,
	}, nil
}

// takerQuote 挂单价由对冲腿的吃单价倒推：买价 = 对冲卖一/(1+p)，
// 卖价 = 对冲买一·(1+p)。AdjustToBook 时买价不高于 Primary 买一加一跳，
// 卖价不低于卖一减一跳。不用库存偏移，成交后立即对冲。
func (m *Model) takerQuote(s float64, in Inputs) (Quote, error) {
	if !in.Primary.HasTopOfBook() {
		return Quote{}, fmt.Errorf("%w: %s", ErrNoTopOfBook, in.Primary.Instrument)
	}
	tick := m.cfg.TickSize
	hedgeBid, hedgeAsk := in.Hedge.BestBid().Price, in.Hedge.BestAsk().Price
	bid := float64(hedgeAsk) / (1 + m.cfg.MinProfitability)
	ask := float64(hedgeBid) * (1 + m.cfg.MinProfitability)
	if m.cfg.AdjustToBook {
		above := (in.Primary.BestBid().Price + tick) / tick * tick
		below := (in.Primary.BestAsk().Price - tick) / tick * tick
		bid = min(bid, float64(above))
		ask = max(ask, float64(below))
	}
	q := Quote{
		TruePrice:   s,
		Reservation: s,
		Bid:         RoundBid(bid, tick),
		Ask:         RoundAsk(ask, tick),
		HedgeBid:    hedgeBid,
		HedgeAsk:    hedgeAsk,
	}
	// 自己的买卖单不能交叉
	if gap := max(m.cfg.MinSpreadTicks, 1) * tick; q.Ask-q.Bid < gap {
		q.Ask = q.Bid + gap
	}
	q.Spread = float64(q.Ask - q.Bid)
	return q, nil
}
