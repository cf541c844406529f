package risk

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pair-maker-go/infrastructure/logger"
	"pair-maker-go/market"
	"pair-maker-go/order"
)

// MaxHedgePrice 交易所可表示的最高价（int32 上限）。
const MaxHedgePrice int64 = 1<<31 - 1

// HedgeState 对冲状态
type HedgeState int

const (
	HedgeFlat HedgeState = iota
	HedgePending
)

func (s HedgeState) String() string {
	if s == HedgePending {
		return "HEDGE_PENDING"
	}
	return "FLAT"
}

// HedgeConfig 对冲参数，序号单位。
type HedgeConfig struct {
	Cooldown      int64 `json:"cooldown"`      // 离开平仓状态多久后才对冲
	FlatTolerance int64 `json:"flatTolerance"` // |primary+hedge| 不超过该值视为平
	MinPrice      int64 `json:"minPrice"`
	MaxPrice      int64 `json:"maxPrice"`
	TickSize      int64 `json:"tickSize"`
}

func DefaultHedgeConfig() HedgeConfig {
	return HedgeConfig{
		Cooldown:      600,
		FlatTolerance: 10,
		MinPrice:      1,
		MaxPrice:      MaxHedgePrice,
		TickSize:      100,
	}
}

func (c HedgeConfig) Validate() error {
	if c.Cooldown < 0 {
		return fmt.Errorf("cooldown must be >= 0, got %d", c.Cooldown)
	}
	if c.FlatTolerance < 0 {
		return fmt.Errorf("flatTolerance must be >= 0, got %d", c.FlatTolerance)
	}
	if c.TickSize <= 0 {
		return fmt.Errorf("tickSize must be > 0, got %d", c.TickSize)
	}
	if c.MinPrice <= 0 || c.MaxPrice <= c.MinPrice+c.TickSize {
		return fmt.Errorf("invalid hedge price band [%d, %d]", c.MinPrice, c.MaxPrice)
	}
	return nil
}

// GuaranteedCrossPrices 返回对齐到 tick 的最低卖价与最高买价。
func (c HedgeConfig) GuaranteedCrossPrices() (sell, buy int64) {
	sell = (c.MinPrice + c.TickSize) / c.TickSize * c.TickSize
	buy = c.MaxPrice / c.TickSize * c.TickSize
	return sell, buy
}

// Hedger flattens the combined Primary+Hedge exposure with guaranteed-cross
// orders on the Hedge instrument. At most one hedge order is outstanding.
type Hedger struct {
	cfg      HedgeConfig
	ledger   *order.Ledger
	ids      *order.IDSource
	gw       order.Gateway
	guard    Guard
	logger   *logger.Logger
	lastFlat int64
}

func NewHedger(cfg HedgeConfig, ledger *order.Ledger, ids *order.IDSource, gw order.Gateway, guard Guard, log *logger.Logger) (*Hedger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("hedge config: %w", err)
	}
	if ledger == nil || ids == nil || gw == nil {
		return nil, errors.New("hedger requires ledger, id source and gateway")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Hedger{cfg: cfg, ledger: ledger, ids: ids, gw: gw, guard: guard, logger: log.Named("hedger")}, nil
}

// Delta 当前净敞口 primary + hedge。
func (h *Hedger) Delta() int64 {
	return h.ledger.Position(market.Primary) + h.ledger.Position(market.Hedge)
}

// Observe 在每次行情更新时调用：接近平仓就刷新 lastFlat。
func (h *Hedger) Observe(seq int64) {
	if abs(h.Delta()) <= h.cfg.FlatTolerance {
		h.lastFlat = seq
	}
}

// Evaluate performs the Flat -> HedgePending transition when a hedge is due.
// It returns the registered hedge order and true when one was sent.
func (h *Hedger) Evaluate(seq int64) (order.Order, bool) {
	if h.ledger.HedgeOutstanding() {
		return order.Order{}, false
	}
	if seq-h.lastFlat < h.cfg.Cooldown {
		return order.Order{}, false
	}
	delta := h.Delta()
	if delta == 0 {
		return order.Order{}, false
	}

	sellPrice, buyPrice := h.cfg.GuaranteedCrossPrices()
	o := order.Order{
		Kind:       order.KindHedge,
		Instrument: market.Hedge,
		Side:       order.Sell,
		Price:      sellPrice,
		Volume:     delta,
		CreatedSeq: seq,
	}
	if delta < 0 {
		o.Side = order.Buy
		o.Price = buyPrice
		o.Volume = -delta
	}
	if h.guard != nil {
		if err := h.guard.PreOrder(o.Instrument, o.Side, o.Volume); err != nil {
			h.logger.LogRisk("hedge_blocked", zap.Error(err), zap.Int64("delta", delta))
			return order.Order{}, false
		}
	}

	o.ID = h.ids.Next()
	if err := h.ledger.Register(o); err != nil {
		h.logger.LogError(err, zap.Uint64("order_id", o.ID))
		return order.Order{}, false
	}
	h.gw.InsertHedgeOrder(o.ID, o.Side, o.Price, o.Volume)
	h.logger.LogOrder("hedge_insert", o.ID,
		zap.Stringer("side", o.Side),
		zap.Int64("price", o.Price),
		zap.Int64("volume", o.Volume),
		zap.Int64("delta", delta),
		zap.Int64("seq", seq),
		zap.Int64("last_flat", h.lastFlat),
	)
	placed, _ := h.ledger.Get(o.ID)
	return placed, true
}

// OnFill applies a hedge fill and returns to Flat; the caller re-evaluates.
func (h *Hedger) OnFill(id uint64, volume int64) (order.Update, error) {
	up, err := h.ledger.ApplyHedgeFill(id, volume)
	if err != nil {
		return up, err
	}
	h.logger.LogOrder("hedge_filled", id,
		zap.Int64("filled", volume),
		zap.Int64("requested", up.Order.Volume),
		zap.Int64("delta", h.Delta()),
	)
	return up, nil
}

// Reject 交易所拒绝对冲单：直接退役，回到 Flat。
func (h *Hedger) Reject(id uint64) (order.Order, error) {
	o, err := h.ledger.Reject(id)
	if err != nil {
		return o, err
	}
	h.logger.LogOrder("hedge_rejected", id, zap.Int64("delta", h.Delta()))
	return o, nil
}

func (h *Hedger) State() HedgeState {
	if h.ledger.HedgeOutstanding() {
		return HedgePending
	}
	return HedgeFlat
}

func (h *Hedger) LastFlatSeq() int64 { return h.lastFlat }

func (h *Hedger) Config() HedgeConfig { return h.cfg }

// UpdateConfig 热更新，非法配置被拒绝。
func (h *Hedger) UpdateConfig(cfg HedgeConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("hedge config: %w", err)
	}
	h.cfg = cfg
	return nil
}
