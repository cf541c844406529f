package monitor

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor Prometheus监控指标收集器
type Monitor struct {
	registry *prometheus.Registry

	// 订单指标
	ordersPlaced   *prometheus.CounterVec
	ordersAmended  prometheus.Counter
	ordersCanceled prometheus.Counter
	ordersFilled   *prometheus.CounterVec
	ordersRejected *prometheus.CounterVec

	// 成交与仓位
	filledVolume  *prometheus.CounterVec
	position      *prometheus.GaugeVec
	realizedPnL   prometheus.Gauge
	unrealizedPnL prometheus.Gauge
	fees          prometheus.Gauge

	// 定价
	truePrice   prometheus.Gauge
	reservation prometheus.Gauge
	spread      prometheus.Gauge
	bidPrice    prometheus.Gauge
	askPrice    prometheus.Gauge
	variance    prometheus.Gauge

	// 盘口与成交质量
	bookSpread   *prometheus.GaugeVec
	marketVolume prometheus.Counter
	imbalance    *prometheus.GaugeVec
	vpin         prometheus.Gauge
	markout      *prometheus.GaugeVec
	adverseRate  prometheus.Gauge

	// 风控
	riskRejects   *prometheus.CounterVec
	hedges        *prometheus.CounterVec
	hedgeState    prometheus.Gauge
	invariants    *prometheus.CounterVec
	positionLimit prometheus.Gauge
	circuitTrips  prometheus.Counter

	// 引擎
	events        *prometheus.CounterVec
	eventsDropped prometheus.Counter
	eventLatency  prometheus.Histogram
	quotePasses   prometheus.Counter

	// 系统
	wsConnections   prometheus.Counter
	wsDisconnects   prometheus.Counter
	commandsDropped prometheus.Counter
	journalWritten  prometheus.Counter
	journalDropped  prometheus.Counter
}

// Config 监控配置
type Config struct {
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Namespace: "mm",
		Subsystem: "pair",
	}
}

// New 创建新的Monitor实例，指标注册在私有 registry 上。
func New(cfg Config) *Monitor {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, Name: name, Help: help})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, Name: name, Help: help}, labels)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, Name: name, Help: help})
	}

	return &Monitor{
		registry: reg,

		ordersPlaced:   counterVec("orders_placed_total", "下单总数", "kind"),
		ordersAmended:  counter("orders_amended_total", "改单总数"),
		ordersCanceled: counter("orders_canceled_total", "撤单请求总数"),
		ordersFilled:   counterVec("orders_filled_total", "完全成交订单数", "kind"),
		ordersRejected: counterVec("orders_rejected_total", "被交易所拒绝的订单数", "kind"),

		filledVolume: counterVec("filled_volume_total", "成交手数", "instrument"),
		position: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "position", Help: "当前仓位（手）",
		}, []string{"instrument"}),
		realizedPnL:   gauge("realized_pnl", "已实现盈亏"),
		unrealizedPnL: gauge("unrealized_pnl", "未实现盈亏"),
		fees:          gauge("fees", "累计手续费"),

		truePrice:   gauge("true_price", "报价中枢"),
		reservation: gauge("reservation_price", "保留价"),
		spread:      gauge("spread", "总价差 δ"),
		bidPrice:    gauge("bid_price", "目标买价"),
		askPrice:    gauge("ask_price", "目标卖价"),
		variance:    gauge("variance_ticks", "成交价方差（跳）"),

		imbalance: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "book_imbalance", Help: "盘口买卖量不平衡度",
		}, []string{"instrument"}),
		vpin: gauge("vpin", "报价腿成交毒性 VPIN"),
		bookSpread: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "book_spread_ticks", Help: "盘口买一卖一价差（跳）",
		}, []string{"instrument"}),
		marketVolume: counter("market_traded_lots_total", "报价腿市场成交量（手）"),
		markout: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "markout_avg", Help: "成交后每手平均 markout",
		}, []string{"horizon"}),
		adverseRate: gauge("adverse_selection_rate", "逆向选择比例"),

		riskRejects:   counterVec("risk_rejects_total", "风控拦截次数", "reason"),
		hedges:        counterVec("hedges_total", "对冲单数", "side"),
		hedgeState:    gauge("hedge_state", "0=flat 1=pending"),
		invariants:    counterVec("invariant_violations_total", "不变量违反次数", "rule"),
		positionLimit: gauge("position_limit", "仓位上限"),
		circuitTrips:  counter("circuit_trips_total", "熔断次数"),

		events:        counterVec("events_total", "处理的事件数", "type"),
		eventsDropped: counter("events_dropped_total", "收件箱满被丢弃的事件"),
		eventLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "event_latency_seconds", Help: "单个事件处理耗时",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		quotePasses: counter("quote_passes_total", "报价轮次"),

		wsConnections:   counter("ws_connections_total", "WebSocket连接次数"),
		wsDisconnects:   counter("ws_disconnects_total", "WebSocket断开次数"),
		commandsDropped: counter("commands_dropped_total", "发送队列满被丢弃的指令"),
		journalWritten:  counter("journal_written_total", "写入流水的记录数"),
		journalDropped:  counter("journal_dropped_total", "流水队列满被丢弃的记录"),
	}
}

// 订单相关方法
func (m *Monitor) RecordOrderPlaced(kind string) { m.ordersPlaced.WithLabelValues(kind).Inc() }
func (m *Monitor) RecordOrderAmended() { m.ordersAmended.Inc() }
func (m *Monitor) RecordOrderCanceled() { m.ordersCanceled.Inc() }
func (m *Monitor) RecordOrderFilled(kind string) { m.ordersFilled.WithLabelValues(kind).Inc() }
func (m *Monitor) RecordOrderRejected(kind string) { m.ordersRejected.WithLabelValues(kind).Inc() }

// RecordFill 成交量按品种累计。
func (m *Monitor) RecordFill(instrument string, volume int64) {
	m.filledVolume.WithLabelValues(instrument).Add(float64(volume))
}

// 仓位相关方法
func (m *Monitor) UpdatePosition(instrument string, lots int64) {
	m.position.WithLabelValues(instrument).Set(float64(lots))
}

func (m *Monitor) UpdatePnL(realized, unrealized, fees float64) {
	m.realizedPnL.Set(realized)
	m.unrealizedPnL.Set(unrealized)
	m.fees.Set(fees)
}

// UpdateQuote 记录一次定价结果
func (m *Monitor) UpdateQuote(truePrice, reservation, spread float64, bid, ask int64) {
	m.truePrice.Set(truePrice)
	m.reservation.Set(reservation)
	m.spread.Set(spread)
	m.bidPrice.Set(float64(bid))
	m.askPrice.Set(float64(ask))
}

func (m *Monitor) UpdateVariance(v float64) { m.variance.Set(v) }

// 盘口与成交质量
func (m *Monitor) UpdateImbalance(instrument string, v float64) {
	m.imbalance.WithLabelValues(instrument).Set(v)
}
func (m *Monitor) UpdateVPIN(v float64) { m.vpin.Set(v) }
func (m *Monitor) UpdateBookSpread(instrument string, ticks float64) {
	m.bookSpread.WithLabelValues(instrument).Set(ticks)
}
func (m *Monitor) RecordMarketVolume(lots int64) { m.marketVolume.Add(float64(lots)) }
func (m *Monitor) UpdateMarkout(horizon int64, v float64) {
	m.markout.WithLabelValues(strconv.FormatInt(horizon, 10)).Set(v)
}
func (m *Monitor) UpdateAdverseRate(v float64) { m.adverseRate.Set(v) }

// 风控相关方法
func (m *Monitor) RecordRiskReject(reason string) { m.riskRejects.WithLabelValues(reason).Inc() }
func (m *Monitor) RecordHedge(side string) { m.hedges.WithLabelValues(side).Inc() }
func (m *Monitor) UpdateHedgeState(state int) { m.hedgeState.Set(float64(state)) }
func (m *Monitor) RecordInvariant(rule string) { m.invariants.WithLabelValues(rule).Inc() }
func (m *Monitor) UpdatePositionLimit(v int64) { m.positionLimit.Set(float64(v)) }
func (m *Monitor) RecordCircuitTrip() { m.circuitTrips.Inc() }

// 引擎相关方法
func (m *Monitor) RecordEvent(kind string, seconds float64) {
	m.events.WithLabelValues(kind).Inc()
	m.eventLatency.Observe(seconds)
}

func (m *Monitor) RecordEventDropped() { m.eventsDropped.Inc() }
func (m *Monitor) RecordQuotePass() { m.quotePasses.Inc() }

// 系统相关方法
func (m *Monitor) RecordWSConnection() { m.wsConnections.Inc() }
func (m *Monitor) RecordWSDisconnect() { m.wsDisconnects.Inc() }
func (m *Monitor) RecordCommandDropped() { m.commandsDropped.Inc() }
func (m *Monitor) RecordJournalWritten() { m.journalWritten.Inc() }
func (m *Monitor) RecordJournalDropped() { m.journalDropped.Inc() }

// Handler 返回HTTP handler用于暴露指标
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 返回prometheus registry
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}
