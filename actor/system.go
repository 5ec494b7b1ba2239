package actor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/hedisam/poolsup/internal/mailbox"
	"github.com/hedisam/poolsup/internal/pid"
	"github.com/hedisam/poolsup/log"
	"github.com/hedisam/poolsup/message"
	"github.com/hedisam/poolsup/scheduler"
	"github.com/hedisam/poolsup/supervision"
	"github.com/hedisam/poolsup/sysmsg"
)

const defaultStopTimeout = 5 * time.Second

// FatalHandler is called when a failure escalates past the root processes
type FatalHandler func(system *System, err error)

// System hosts processes and supervises the root ones with its guardian policy
type System struct {
	name        string
	logger      log.Logger
	processes   cmap.ConcurrentMap[string, *process]
	names       cmap.ConcurrentMap[string, *PID]
	stopping    *atomic.Bool
	scheduler   *scheduler.Scheduler
	fatal       FatalHandler
	mailboxKind mailbox.Kind
	mailboxCap  int
	stopTimeout time.Duration

	guardianMu sync.Mutex
	guardian   *supervision.Tracker
}

type Option func(*System)

func WithLogger(logger log.Logger) Option {
	return func(s *System) {
		s.logger = logger
	}
}

// WithFatalHandler replaces the default handler which logs and shuts the system down
func WithFatalHandler(fn FatalHandler) Option {
	return func(s *System) {
		s.fatal = fn
	}
}

// WithDefaultMailbox sets the mailbox of processes whose props don't name one
func WithDefaultMailbox(kind mailbox.Kind, capacity int) Option {
	return func(s *System) {
		s.mailboxKind = kind
		s.mailboxCap = capacity
	}
}

// WithGuardianPolicy sets the policy applied to root processes
func WithGuardianPolicy(policy supervision.Policy) Option {
	return func(s *System) {
		s.guardian = supervision.NewTracker(policy)
	}
}

// WithStopTimeout bounds how long a stopping process waits for its children
func WithStopTimeout(timeout time.Duration) Option {
	return func(s *System) {
		s.stopTimeout = timeout
	}
}

func NewSystem(name string, opts ...Option) *System {
	s := &System{
		name:        name,
		logger:      log.DefaultLogger,
		processes:   cmap.New[*process](),
		names:       cmap.New[*PID](),
		stopping:    atomic.NewBool(false),
		fatal:       defaultFatalHandler,
		mailboxKind: mailbox.KindUnbounded,
		stopTimeout: defaultStopTimeout,
		guardian:    supervision.NewTracker(supervision.DefaultGuardianPolicy()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("system", name)
	s.scheduler = scheduler.New(func(target *PID, payload interface{}) error {
		return target.Mailbox().Push(envelope{message: payload})
	}, s.logger)
	return s
}

func defaultFatalHandler(system *System, err error) {
	system.logger.Errorf("unrecoverable failure, shutting down: %v", err)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), system.stopTimeout)
		defer cancel()
		_ = system.Shutdown(ctx)
	}()
}

func (s *System) Name() string {
	return s.name
}

func (s *System) Logger() log.Logger {
	return s.logger
}

// Spawn starts a root process supervised by the guardian policy
func (s *System) Spawn(props *Props) (*PID, error) {
	return s.spawn("", props, nil)
}

// SpawnNamed starts a root process and registers it under name
func (s *System) SpawnNamed(name string, props *Props) (*PID, error) {
	return s.spawn(name, props, nil)
}

func (s *System) spawn(name string, props *Props, parent *process) (*PID, error) {
	if s.stopping.Load() {
		return nil, ErrSystemStopping
	}
	if name != "" && s.names.Has(name) {
		return nil, fmt.Errorf("%w: %s", ErrNameTaken, name)
	}

	kind, capacity := props.mailboxKind, props.mailboxCap
	if kind == "" {
		kind, capacity = s.mailboxKind, s.mailboxCap
	}
	m, err := mailbox.New(kind, capacity)
	if err != nil {
		return nil, fmt.Errorf("could not create mailbox: %w", err)
	}
	self := pid.New(m)
	if name != "" && !s.names.SetIfAbsent(name, self) {
		return nil, fmt.Errorf("%w: %s", ErrNameTaken, name)
	}

	var parentPID *PID
	if parent != nil {
		parentPID = parent.self
		parent.children.Add(self)
	}
	p := newProcess(s, self, props, parentPID)
	s.processes.Set(self.ID(), p)
	go p.run()

	p.logger.Debugf("process spawned")
	return self, nil
}

// Send delivers msg to the user lane of to. the sender is unknown to the receiver.
func (s *System) Send(to *PID, msg interface{}) error {
	return send(to, envelope{message: msg})
}

// Stop asks the process to terminate once its current handler returns
func (s *System) Stop(to *PID) error {
	return sendSystemMessage(to, sysmsg.Stop{Reason: message.ReasonNormal})
}

// Ask sends msg and waits for the receiver's reply. a reply that is an error
// is returned as the error.
func (s *System) Ask(ctx context.Context, to *PID, msg interface{}) (interface{}, error) {
	future, m := pid.NewFuture()
	defer m.Dispose()

	if err := send(to, envelope{sender: future, message: msg}); err != nil {
		return nil, err
	}

	select {
	case <-m.Signal():
		reply, _ := m.Pop()
		if env, ok := reply.(envelope); ok {
			reply = env.message
		}
		if err, ok := reply.(error); ok {
			return nil, err
		}
		return reply, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrAskTimeout
		}
		return nil, ctx.Err()
	}
}

// Register names an alive process
func (s *System) Register(name string, who *PID) error {
	if !s.IsAlive(who) {
		return ErrNotAlive
	}
	if !s.names.SetIfAbsent(name, who) {
		return fmt.Errorf("%w: %s", ErrNameTaken, name)
	}
	return nil
}

func (s *System) Unregister(name string) {
	s.names.Remove(name)
}

// WhereIs returns the process registered under name, nil if there's none
func (s *System) WhereIs(name string) *PID {
	who, ok := s.names.Get(name)
	if !ok {
		return nil
	}
	return who
}

// IsAlive reports whether the process hasn't terminated yet
func (s *System) IsAlive(who *PID) bool {
	if who == nil {
		return false
	}
	p, ok := s.processes.Get(who.ID())
	return ok && !p.isStopped()
}

// Count returns the number of live processes
func (s *System) Count() int {
	return s.processes.Count()
}

// Shutdown stops every root process and waits for all processes to terminate
func (s *System) Shutdown(ctx context.Context) error {
	if !s.stopping.CompareAndSwap(false, true) {
		return ErrSystemStopping
	}
	s.logger.Infof("shutting down")

	for _, p := range s.processes.Items() {
		if p.parent == nil {
			_ = sendSystemMessage(p.self, sysmsg.Stop{Reason: message.ReasonShutdown})
		}
	}
	return s.Wait(ctx)
}

// Wait blocks until every process alive at the time of the call has terminated
func (s *System) Wait(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range s.processes.Items() {
		p := p
		g.Go(func() error {
			select {
			case <-p.done:
				return nil
			case <-ctx.Done():
				return fmt.Errorf("process %s did not stop: %w", p.self, ctx.Err())
			}
		})
	}
	return g.Wait()
}

func (s *System) remove(p *process) {
	s.processes.Remove(p.self.ID())
	for name, who := range s.names.Items() {
		if who != p.self {
			continue
		}
		s.names.RemoveCb(name, func(_ string, v *PID, exists bool) bool {
			return exists && v == p.self
		})
	}
}

func (s *System) decideRoot(who *PID, err error) (supervision.Directive, bool) {
	s.guardianMu.Lock()
	defer s.guardianMu.Unlock()
	return s.guardian.Decide(who.ID(), err)
}

func (s *System) forgetRoot(who *PID) {
	s.guardianMu.Lock()
	defer s.guardianMu.Unlock()
	s.guardian.Forget(who.ID())
}

// envelope carries a user message and who sent it
type envelope struct {
	sender  *PID
	message interface{}
}

func send(to *PID, env envelope) error {
	if to == nil {
		return ErrNotAlive
	}
	if err := to.Mailbox().Push(env); err != nil {
		return fmt.Errorf("could not deliver %s to %s: %w", message.Name(env.message), to, err)
	}
	return nil
}

func sendSystemMessage(to *PID, msg sysmsg.SystemMessage) error {
	if to == nil {
		return ErrNotAlive
	}
	if err := to.Mailbox().PushSystem(msg); err != nil {
		return fmt.Errorf("could not deliver %T to %s: %w", msg, to, err)
	}
	return nil
}
