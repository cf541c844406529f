package integration

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"pair-maker-go/gateway"
	"pair-maker-go/internal/engine"
	"pair-maker-go/order"
	"pair-maker-go/sim"
)

// FakeVenue 是一个 websocket 交易所：收到的指令交给 sim.Venue 处理并回报，
// 测试通过 Push 推送行情与成交。
type FakeVenue struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader
	venue    *sim.Venue

	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	sent    int64
	hedged  int64
}

func NewFakeVenue() *FakeVenue {
	v := &FakeVenue{venue: sim.NewVenue()}
	v.srv = httptest.NewServer(http.HandlerFunc(v.serve))
	return v
}

func (v *FakeVenue) URL() string {
	return "ws" + strings.TrimPrefix(v.srv.URL, "http")
}

func (v *FakeVenue) Close() {
	v.mu.Lock()
	if v.conn != nil {
		_ = v.conn.Close()
	}
	v.mu.Unlock()
	v.srv.Close()
}

func (v *FakeVenue) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := v.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	v.mu.Lock()
	v.conn = conn
	v.mu.Unlock()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		cmd, err := gateway.DecodeCommand(raw)
		if err != nil {
			continue
		}
		v.apply(cmd)
		for _, ack := range v.venue.Drain() {
			v.venue.Observe(ack)
			if _, ok := ack.(engine.HedgeFilled); ok {
				v.mu.Lock()
				v.hedged++
				v.mu.Unlock()
			}
			_ = v.write(ack)
		}
	}
}

func (v *FakeVenue) apply(cmd gateway.Command) {
	switch c := cmd.(type) {
	case gateway.InsertCommand:
		side, _ := gateway.ParseSide(c.Side)
		life, _ := order.ParseLifespan(c.Lifespan)
		v.venue.InsertOrder(c.ID, side, c.Price, c.Volume, life)
	case gateway.AmendCommand:
		v.venue.AmendOrder(c.ID, c.Volume)
	case gateway.CancelCommand:
		v.venue.CancelOrder(c.ID)
	case gateway.HedgeCommand:
		side, _ := gateway.ParseSide(c.Side)
		v.venue.InsertHedgeOrder(c.ID, side, c.Price, c.Volume)
	}
}

// Push 推送一条交易所事件给已连接的客户端。
func (v *FakeVenue) Push(ev engine.Event) error {
	v.venue.Observe(ev)
	return v.write(ev)
}

func (v *FakeVenue) write(ev engine.Event) error {
	raw, err := gateway.EncodeEvent(ev)
	if err != nil {
		return err
	}
	v.mu.Lock()
	conn := v.conn
	v.mu.Unlock()
	if conn == nil {
		return websocket.ErrCloseSent
	}
	v.writeMu.Lock()
	defer v.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return err
	}
	v.mu.Lock()
	v.sent++
	v.mu.Unlock()
	return nil
}

// Sent 已推送给客户端的事件数（含回报）。
func (v *FakeVenue) Sent() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sent
}

// HedgeFills 已回报的对冲成交数。
func (v *FakeVenue) HedgeFills() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hedged
}

func (v *FakeVenue) Commands() []gateway.Command { return v.venue.Commands() }

func (v *FakeVenue) commands(kind string) []gateway.Command {
	var out []gateway.Command
	for _, c := range v.Commands() {
		if c.Type() == kind {
			out = append(out, c)
		}
	}
	return out
}
