// Package pool implements a supervisor that keeps a fixed number of workers
// alive and balances work over them.
package pool

import (
	"errors"
	"fmt"
	"time"

	"github.com/hedisam/poolsup/actor"
	"github.com/hedisam/poolsup/internal/mailbox"
	"github.com/hedisam/poolsup/message"
	"github.com/hedisam/poolsup/router"
	"github.com/hedisam/poolsup/scheduler"
)

var (
	ErrInvalidSize        = errors.New("pool size must be positive")
	ErrNoWorkerProps      = errors.New("worker props are required")
	ErrInvalidReplacement = errors.New("invalid replacement mode")
)

// Phase of the pool supervisor
type Phase int32

const (
	Initializing Phase = iota
	Running
	Stopping
	Stopped
)

func (p Phase) String() string {
	switch p {
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// Replacement decides where a replacement worker goes in the routing order
type Replacement string

const (
	// ReplaceAppend adds the replacement at the end
	ReplaceAppend Replacement = "append"
	// ReplaceInPlace puts the replacement in the dead worker's slot
	ReplaceInPlace Replacement = "in_place"
)

// Schedule describes the Work the supervisor sends itself. zero durations
// disable a task.
type Schedule struct {
	Once          time.Duration
	EveryDelay    time.Duration
	EveryInterval time.Duration
}

type Config struct {
	Size        int
	Replacement Replacement
	WorkerProps *actor.Props
	Schedule    Schedule
}

func (c Config) Validate() error {
	if c.Size <= 0 {
		return ErrInvalidSize
	}
	if c.WorkerProps == nil {
		return ErrNoWorkerProps
	}
	switch c.Replacement {
	case ReplaceAppend, ReplaceInPlace, "":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidReplacement, c.Replacement)
	}
	return nil
}

// GetState asks the supervisor for a State snapshot
type GetState struct{}

// State is a snapshot of the pool
type State struct {
	Phase Phase
	// Size is the configured number of workers
	Size    int
	Routees []*actor.PID
	// Watched is the number of routees being watched
	Watched int
	// Retries holds the failures of each routee in the current retry window
	Retries map[string]int
}

type supervisor struct {
	cfg    Config
	phase  Phase
	router *router.RoundRobin
	tokens []*scheduler.Token
}

// NewProps returns the props of a pool supervisor. the supervision policy for
// the workers is passed with actor.WithSupervisionPolicy.
func NewProps(cfg Config, opts ...actor.PropsOption) (*actor.Props, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Replacement == "" {
		cfg.Replacement = ReplaceAppend
	}
	return actor.NewProps(func() actor.Actor {
		return &supervisor{
			cfg:    cfg,
			router: router.NewRoundRobin(),
		}
	}, opts...), nil
}

func (s *supervisor) Receive(ctx actor.Context) error {
	switch msg := ctx.Message().(type) {
	case actor.Started:
		return s.start(ctx)
	case message.StartPool:
		delivered := s.router.Broadcast(ctx, message.Move{})
		ctx.Logger().Infof("move broadcast to %d/%d workers", delivered, s.router.Len())
	case message.Work:
		s.route(ctx, msg)
	case message.Terminated:
		return s.replace(ctx, msg)
	case message.Stop:
		ctx.StopSelf()
	case GetState:
		return ctx.Reply(s.state(ctx))
	case actor.Stopping:
		s.stop(ctx)
	case actor.Stopped:
		s.phase = Stopped
	default:
		return message.Unhandled(msg)
	}
	return nil
}

// start spawns and watches the workers, then registers the scheduled tasks
func (s *supervisor) start(ctx actor.Context) error {
	s.phase = Initializing
	for i := 0; i < s.cfg.Size; i++ {
		worker, err := s.spawnWorker(ctx)
		if err != nil {
			return err
		}
		s.router.Add(worker)
	}
	s.phase = Running
	ctx.Logger().Infof("pool is running with %d workers", s.router.Len())

	if s.cfg.Schedule.Once > 0 {
		s.tokens = append(s.tokens, ctx.ScheduleOnce(s.cfg.Schedule.Once, message.NewWork("once")))
	}
	if s.cfg.Schedule.EveryInterval > 0 {
		every := ctx.ScheduleEvery(s.cfg.Schedule.EveryDelay, s.cfg.Schedule.EveryInterval, message.NewWork("every"))
		s.tokens = append(s.tokens, every)
	}
	return nil
}

func (s *supervisor) spawnWorker(ctx actor.Context) (*actor.PID, error) {
	worker, err := ctx.Spawn(s.cfg.WorkerProps)
	if err != nil {
		return nil, fmt.Errorf("could not spawn worker: %w", err)
	}
	ctx.Watch(worker)
	return worker, nil
}

// route hands work to the next live worker. the asker, if any, gets the
// worker's reply or the routing error.
func (s *supervisor) route(ctx actor.Context, work message.Work) {
	if s.phase != Running {
		ctx.Logger().Warnf("dropping work %s, pool is %s", work.ID, s.phase)
		return
	}

	var err error
	// a worker may be dead before its Terminated got here
	for attempts := s.router.Len(); attempts >= 0; attempts-- {
		var routee *actor.PID
		routee, err = s.router.Route(forwarder{ctx: ctx}, work)
		if err == nil {
			ctx.Logger().Debugf("work %s routed to %s", work.ID, routee)
			return
		}
		if !errors.Is(err, mailbox.ErrDisposed) {
			break
		}
	}

	ctx.Logger().Warnf("could not route work %s: %v", work.ID, err)
	if ctx.Sender() != nil {
		_ = ctx.Reply(err)
	}
}

// replace spawns one worker for a terminated one
func (s *supervisor) replace(ctx actor.Context, terminated message.Terminated) error {
	if s.phase != Running {
		return nil
	}
	idx := s.router.Remove(terminated.Who)
	if idx < 0 {
		ctx.Logger().Debugf("ignoring termination of %s, not a pool member", terminated.Who)
		return nil
	}

	worker, err := s.spawnWorker(ctx)
	if err != nil {
		return fmt.Errorf("could not replace worker %s: %w", terminated.Who, err)
	}
	if s.cfg.Replacement == ReplaceInPlace {
		s.router.InsertAt(idx, worker)
	} else {
		s.router.Add(worker)
	}
	ctx.Logger().Infof("worker %s terminated (%s), replaced by %s", terminated.Who, terminated.Reason, worker)
	return nil
}

func (s *supervisor) stop(ctx actor.Context) {
	s.phase = Stopping
	for _, worker := range s.router.Routees() {
		ctx.Unwatch(worker)
		if err := ctx.Stop(worker); err != nil {
			ctx.Logger().Debugf("could not stop worker %s: %v", worker, err)
		}
		s.router.Remove(worker)
	}
	for _, token := range s.tokens {
		ctx.Cancel(token)
	}
	s.tokens = nil
	ctx.Logger().Infof("pool is stopping")
}

func (s *supervisor) state(ctx actor.Context) State {
	st := State{
		Phase:   s.phase,
		Size:    s.cfg.Size,
		Routees: s.router.Routees(),
		Retries: make(map[string]int),
	}
	for _, routee := range st.Routees {
		if ctx.Watching(routee) {
			st.Watched++
		}
		st.Retries[routee.ID()] = ctx.Retries(routee)
	}
	return st
}

// forwarder keeps the original sender so workers can reply to an asker
type forwarder struct {
	ctx actor.Context
}

func (f forwarder) Send(to *actor.PID, msg interface{}) error {
	return f.ctx.Forward(to, msg)
}
