package sim

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"pair-maker-go/infrastructure/logger"
	"pair-maker-go/internal/engine"
	"pair-maker-go/inventory"
	"pair-maker-go/order"
)

// Runner 把录制事件逐条喂给引擎，每条之后把模拟交易所的回报也处理完。
type Runner struct {
	Engine *engine.Engine
	Venue  *Venue
	Logger *logger.Logger
}

// Result 一次回放的汇总。
type Result struct {
	Events    int
	Acks      int
	Commands  int
	Failed    int
	Statement inventory.Statement
	Final     engine.Dump
}

// Step handles one recorded event and then every acknowledgement it causes,
// including acknowledgements of commands sent while handling those.
func (r *Runner) Step(ev engine.Event) (acks int, err error) {
	if r.Engine == nil || r.Venue == nil {
		return 0, errors.New("runner not initialized")
	}
	var soft error
	r.Venue.Observe(ev)
	if err := r.handle(ev); err != nil {
		if !isSoft(err) {
			return 0, err
		}
		soft = err
	}
	for pending := r.Venue.Drain(); len(pending) > 0; pending = r.Venue.Drain() {
		for _, ack := range pending {
			acks++
			r.Venue.Observe(ack)
			if err := r.handle(ack); err != nil {
				if !isSoft(err) {
					return acks, err
				}
				soft = err
			}
		}
	}
	return acks, soft
}

// handle 只有不变量被破坏才中止回放，其余错误记日志。
func (r *Runner) handle(ev engine.Event) error {
	err := r.Engine.Handle(ev)
	if err == nil {
		return nil
	}
	var ie *order.InvariantError
	if errors.As(err, &ie) || errors.Is(err, engine.ErrHalted) {
		return err
	}
	if r.Logger != nil {
		r.Logger.Warn("event failed", zap.String("kind", ev.Kind()), zap.Error(err))
	}
	return errSoft{err}
}

type errSoft struct{ error }

func (e errSoft) Unwrap() error { return e.error }

func isSoft(err error) bool {
	var soft errSoft
	return errors.As(err, &soft)
}

// Run replays until EOF, ctx cancellation or a fatal engine error.
func (r *Runner) Run(ctx context.Context, rp *Replayer) (Result, error) {
	var res Result
	for {
		if err := ctx.Err(); err != nil {
			return r.finish(res), err
		}
		ev, err := rp.Next()
		if errors.Is(err, io.EOF) {
			return r.finish(res), nil
		}
		if err != nil {
			return r.finish(res), err
		}
		res.Events++
		acks, err := r.Step(ev)
		res.Acks += acks
		if isSoft(err) {
			res.Failed++
			continue
		}
		if err != nil {
			return r.finish(res), fmt.Errorf("replay line %d: %w", rp.Line(), err)
		}
	}
}

func (r *Runner) finish(res Result) Result {
	res.Commands = len(r.Venue.Commands())
	res.Statement = r.Engine.Statement()
	res.Final = r.Engine.Snapshot()
	return res
}
