package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pair-maker-go/infrastructure/logger"
	"pair-maker-go/infrastructure/monitor"
	"pair-maker-go/internal/engine"
	"pair-maker-go/order"
)

// Sink 接收解析后的入站事件，通常是 *engine.Engine。
type Sink interface {
	Submit(ev engine.Event) bool
}

// Config 交易所连接参数。
type Config struct {
	URL                  string        `yaml:"url"`
	SendBuffer           int           `yaml:"send_buffer"`
	HandshakeTimeout     time.Duration `yaml:"handshake_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	PingInterval         time.Duration `yaml:"ping_interval"`
	InitialReconnect     time.Duration `yaml:"initial_reconnect"`
	MaxReconnectInterval time.Duration `yaml:"max_reconnect_interval"`
}

func DefaultConfig() Config {
	return Config{
		SendBuffer:           1024,
		HandshakeTimeout:     5 * time.Second,
		WriteTimeout:         2 * time.Second,
		PingInterval:         15 * time.Second,
		InitialReconnect:     200 * time.Millisecond,
		MaxReconnectInterval: 10 * time.Second,
	}
}

// Client is the venue connection. It implements order.Gateway: commands are
// queued without blocking and written by the connection's write loop, and
// every decoded venue message is handed to the sink.
type Client struct {
	cfg     Config
	send    chan []byte
	dialer  *websocket.Dialer
	logger  *logger.Logger
	monitor *monitor.Monitor

	connected atomic.Bool
	dials     atomic.Int64
}

var _ order.Gateway = (*Client)(nil)

// NewClient 只建对象不连接；引擎组装完成后调用 Run。
func NewClient(cfg Config, log *logger.Logger, mon *monitor.Monitor) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("venue url is empty")
	}
	def := DefaultConfig()
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.InitialReconnect <= 0 {
		cfg.InitialReconnect = def.InitialReconnect
	}
	if cfg.MaxReconnectInterval <= 0 {
		cfg.MaxReconnectInterval = def.MaxReconnectInterval
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		cfg:     cfg,
		send:    make(chan []byte, cfg.SendBuffer),
		dialer:  &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		logger:  log.Named("venue"),
		monitor: mon,
	}, nil
}

func (c *Client) InsertOrder(id uint64, side order.Side, price, volume int64, lifespan order.Lifespan) {
	c.enqueue(InsertCommand{ID: id, Side: side.String(), Price: price, Volume: volume, Lifespan: lifespan.String()})
}

func (c *Client) AmendOrder(id uint64, volume int64) {
	c.enqueue(AmendCommand{ID: id, Volume: volume})
}

func (c *Client) CancelOrder(id uint64) {
	c.enqueue(CancelCommand{ID: id})
}

func (c *Client) InsertHedgeOrder(id uint64, side order.Side, price, volume int64) {
	c.enqueue(HedgeCommand{ID: id, Side: side.String(), Price: price, Volume: volume})
}

// enqueue 队列满直接丢弃，交给账本的状态回报兜底。
func (c *Client) enqueue(cmd Command) {
	data, err := EncodeCommand(cmd)
	if err != nil {
		c.logger.LogError(err, zap.String("command", cmd.Type()))
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger.Warn("command dropped", zap.String("command", cmd.Type()))
		if c.monitor != nil {
			c.monitor.RecordCommandDropped()
		}
	}
}

func (c *Client) Connected() bool { return c.connected.Load() }

// Drain 等待发送队列被写循环取空；用于停机时把撤单发出去。
func (c *Client) Drain(ctx context.Context) error {
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for len(c.send) > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("venue drain: %d commands unsent: %w", len(c.send), ctx.Err())
		case <-tick.C:
		}
	}
	return nil
}

// Dials 成功建立连接的次数。
func (c *Client) Dials() int64 { return c.dials.Load() }

// Run dials the venue and serves the connection until ctx is done,
// reconnecting with exponential backoff whenever it drops. Decoded venue
// messages go to sink.
func (c *Client) Run(ctx context.Context, sink Sink) error {
	if sink == nil {
		return errors.New("venue client requires a sink")
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialReconnect
	bo.MaxInterval = c.cfg.MaxReconnectInterval

	for {
		if ctx.Err() != nil {
			return nil
		}
		conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
		if err == nil {
			bo.Reset()
			c.dials.Add(1)
			err = c.serve(ctx, conn, sink)
		}
		if ctx.Err() != nil {
			return nil
		}
		c.logger.Warn("venue connection lost", zap.Error(err))

		sleep := bo.NextBackOff()
		if sleep == backoff.Stop {
			sleep = c.cfg.MaxReconnectInterval
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(sleep):
		}
	}
}

func (c *Client) serve(ctx context.Context, conn *websocket.Conn, sink Sink) error {
	c.connected.Store(true)
	if c.monitor != nil {
		c.monitor.RecordWSConnection()
	}
	c.logger.Info("venue connected", zap.String("url", c.cfg.URL))
	defer func() {
		c.connected.Store(false)
		if c.monitor != nil {
			c.monitor.RecordWSDisconnect()
		}
	}()

	connCtx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		errCh <- c.readLoop(conn, sink)
	}()
	go func() {
		defer wg.Done()
		errCh <- c.writeLoop(connCtx, conn)
	}()

	first := <-errCh
	cancel()
	_ = conn.Close()
	wg.Wait()
	if errors.Is(first, context.Canceled) {
		return nil
	}
	return first
}

func (c *Client) readLoop(conn *websocket.Conn, sink Sink) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		ev, err := DecodeEvent(raw)
		if err != nil {
			c.logger.Warn("bad venue message", zap.Error(err), zap.ByteString("raw", raw))
			continue
		}
		if !sink.Submit(ev) {
			c.logger.Debug("event not accepted", zap.String("kind", ev.Kind()))
		}
	}
}

func (c *Client) writeLoop(ctx context.Context, conn *websocket.Conn) error {
	ping := time.NewTicker(c.cfg.PingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			return ctx.Err()
		case msg := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteTimeout)); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}
