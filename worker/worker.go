// Package worker implements the pool's worker process.
package worker

import (
	"context"
	"math/rand"

	"github.com/hedisam/poolsup/actor"
	"github.com/hedisam/poolsup/message"
)

const defaultSelfStopRatio = 0.5

// WorkFunc does one unit of work. a returned error is a failure handled by the
// pool's supervision policy.
type WorkFunc func(ctx context.Context, work message.Work) error

// Decider tells whether a worker stops itself after a Move
type Decider func() bool

// Result is replied to whoever asked for a unit of work
type Result struct {
	WorkID string
	Worker *actor.PID
}

type Config struct {
	// SelfStopRatio is the chance of a worker stopping itself after a Move.
	// ignored when Decider is set.
	SelfStopRatio float64
	Decider       Decider
	WorkFunc      WorkFunc
}

// Ratio returns a decider that answers true with the probability ratio
func Ratio(ratio float64) Decider {
	return func() bool {
		return rand.Float64() < ratio
	}
}

func (c Config) decider() Decider {
	if c.Decider != nil {
		return c.Decider
	}
	return Ratio(c.SelfStopRatio)
}

type worker struct {
	decide   Decider
	workFunc WorkFunc
	moves    int
}

// Props returns the props of a worker process
func Props(cfg Config, opts ...actor.PropsOption) *actor.Props {
	return actor.NewProps(func() actor.Actor {
		return &worker{
			decide:   cfg.decider(),
			workFunc: cfg.WorkFunc,
		}
	}, opts...)
}

// DefaultConfig stops a worker on a fair coin toss
func DefaultConfig() Config {
	return Config{SelfStopRatio: defaultSelfStopRatio}
}

func (w *worker) Receive(ctx actor.Context) error {
	switch msg := ctx.Message().(type) {
	case actor.Started, actor.Stopping, actor.Stopped:
		return nil
	case message.Move:
		w.moves++
		ctx.Logger().Debugf("move %d", w.moves)
		if w.decide() {
			ctx.Logger().Infof("stopping after move %d", w.moves)
			ctx.StopSelf()
		}
		return nil
	case message.Stop:
		ctx.Logger().Infof("stop requested")
		ctx.StopSelf()
		return nil
	case message.Work:
		return w.work(ctx, msg)
	default:
		return message.Unhandled(msg)
	}
}

func (w *worker) work(ctx actor.Context, work message.Work) error {
	if w.workFunc != nil {
		if err := w.workFunc(ctx.Context(), work); err != nil {
			return err
		}
	}
	ctx.Logger().Debugf("work %s done", work.ID)
	if ctx.Sender() == nil {
		return nil
	}
	return ctx.Reply(Result{WorkID: work.ID, Worker: ctx.Self()})
}
