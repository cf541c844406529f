package gateway

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"pair-maker-go/internal/engine"
	"pair-maker-go/order"
)

var ErrUnknownMessage = errors.New("unknown message type")

// Envelope 所有消息的外层包装：{"type": ..., "data": {...}}。
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Command 发往交易所的指令。
type Command interface {
	Type() string
}

// InsertCommand 报价单下单。
type InsertCommand struct {
	ID       uint64 `json:"id"`
	Side     string `json:"side"`
	Price    int64  `json:"price"`
	Volume   int64  `json:"volume"`
	Lifespan string `json:"lifespan"`
}

func (InsertCommand) Type() string { return "insert" }

// AmendCommand 改单，Volume 为新的总量（已成交+剩余），只能减少。
type AmendCommand struct {
	ID     uint64 `json:"id"`
	Volume int64  `json:"volume"`
}

func (AmendCommand) Type() string { return "amend" }

type CancelCommand struct {
	ID uint64 `json:"id"`
}

func (CancelCommand) Type() string { return "cancel" }

// HedgeCommand 对冲单，立即成交或撤销。
type HedgeCommand struct {
	ID     uint64 `json:"id"`
	Side   string `json:"side"`
	Price  int64  `json:"price"`
	Volume int64  `json:"volume"`
}

func (HedgeCommand) Type() string { return "insert_hedge" }

func encode(kind string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", kind, err)
	}
	return json.Marshal(Envelope{Type: kind, Data: data})
}

// EncodeCommand 编码一条出站指令。
func EncodeCommand(cmd Command) ([]byte, error) {
	return encode(cmd.Type(), cmd)
}

// DecodeCommand 解析出站指令，供模拟交易所使用。
func DecodeCommand(raw []byte) (Command, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	var (
		cmd Command
		err error
	)
	switch env.Type {
	case "insert":
		var c InsertCommand
		err = json.Unmarshal(env.Data, &c)
		cmd = c
	case "amend":
		var c AmendCommand
		err = json.Unmarshal(env.Data, &c)
		cmd = c
	case "cancel":
		var c CancelCommand
		err = json.Unmarshal(env.Data, &c)
		cmd = c
	case "insert_hedge":
		var c HedgeCommand
		err = json.Unmarshal(env.Data, &c)
		cmd = c
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return cmd, nil
}

// EncodeEvent 编码入站事件（录制文件与测试用）。
func EncodeEvent(ev engine.Event) ([]byte, error) {
	return encode(ev.Kind(), ev)
}

// DecodeEvent 把交易所推送解析成引擎事件；参数更新不来自交易所，会被拒绝。
func DecodeEvent(raw []byte) (engine.Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	var (
		ev  engine.Event
		err error
	)
	switch env.Type {
	case engine.BookUpdate{}.Kind():
		var e engine.BookUpdate
		err = json.Unmarshal(env.Data, &e)
		ev = e
	case engine.TradeTicks{}.Kind():
		var e engine.TradeTicks
		err = json.Unmarshal(env.Data, &e)
		ev = e
	case engine.OrderStatus{}.Kind():
		var e engine.OrderStatus
		err = json.Unmarshal(env.Data, &e)
		ev = e
	case engine.OrderFilled{}.Kind():
		var e engine.OrderFilled
		err = json.Unmarshal(env.Data, &e)
		ev = e
	case engine.HedgeFilled{}.Kind():
		var e engine.HedgeFilled
		err = json.Unmarshal(env.Data, &e)
		ev = e
	case engine.ErrorReport{}.Kind():
		var e engine.ErrorReport
		err = json.Unmarshal(env.Data, &e)
		ev = e
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return ev, nil
}

// ParseSide 解析 "BUY"/"SELL"。
func ParseSide(s string) (order.Side, error) {
	switch s {
	case "BUY":
		return order.Buy, nil
	case "SELL":
		return order.Sell, nil
	}
	return 0, fmt.Errorf("unknown side %q", s)
}
