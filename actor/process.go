package actor

import (
	"context"
	"runtime/debug"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/atomic"

	"github.com/hedisam/poolsup/internal/mailbox"
	"github.com/hedisam/poolsup/log"
	"github.com/hedisam/poolsup/message"
	"github.com/hedisam/poolsup/scheduler"
	"github.com/hedisam/poolsup/supervision"
	"github.com/hedisam/poolsup/sysmsg"
)

const (
	stateRunning int32 = iota
	// stateSuspended a failed process awaiting its parent's directive. only
	// system messages are handled.
	stateSuspended
	stateStopping
	stateStopped
)

// process is the running instance of an actor. everything but state and done
// is confined to the process goroutine.
type process struct {
	system  *System
	self    *PID
	parent  *PID
	props   *Props
	actor   Actor
	mailbox mailbox.Mailbox
	logger  log.Logger
	state   *atomic.Int32
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	// processes watching me
	watchers mapset.Set[*PID]
	// processes i'm watching
	watching mapset.Set[*PID]
	children mapset.Set[*PID]
	tracker  *supervision.Tracker
	timers   *scheduler.Bindings

	current       envelope
	stopRequested bool
	stopReason    message.Reason
	// system messages held back while suspended
	stash []sysmsg.SystemMessage
	// the child whose failure i escalated
	escalated *PID
}

func newProcess(system *System, self *PID, props *Props, parent *PID) *process {
	ctx, cancel := context.WithCancel(context.Background())
	return &process{
		system:   system,
		self:     self,
		parent:   parent,
		props:    props,
		mailbox:  self.Mailbox(),
		logger:   system.logger.With("actor", self.ID()),
		state:    atomic.NewInt32(stateRunning),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		watchers: mapset.NewThreadUnsafeSet[*PID](),
		watching: mapset.NewThreadUnsafeSet[*PID](),
		children: mapset.NewThreadUnsafeSet[*PID](),
		tracker:  supervision.NewTracker(props.supervisionPolicy()),
		timers:   scheduler.NewBindings(),
	}
}

func (p *process) run() {
	defer p.finalize()

	p.start()
	for !p.stopRequested {
		<-p.mailbox.Signal()
		p.processMessages()
	}
}

// start produces a fresh actor and delivers Started to it
func (p *process) start() {
	p.actor = p.props.produce()
	if p.actor == nil {
		p.fail(ErrNilActor, "")
		return
	}
	if err := p.invoke(envelope{message: Started{}}); err != nil {
		p.fail(err, message.Name(Started{}))
	}
}

// processMessages drains the mailbox, system messages first
func (p *process) processMessages() {
	for !p.stopRequested {
		if msg, ok := p.mailbox.PopSystem(); ok {
			p.handleSystemMessage(msg)
			continue
		}
		if p.isSuspended() {
			return
		}
		msg, ok := p.mailbox.Pop()
		if !ok {
			return
		}
		env, ok := msg.(envelope)
		if !ok {
			env = envelope{message: msg}
		}
		p.handleUserMessage(env)
	}
}

func (p *process) handleUserMessage(env envelope) {
	if err := p.invoke(env); err != nil {
		p.fail(err, message.Name(env.message))
	}
}

func (p *process) handleSystemMessage(msg interface{}) {
	switch msg := msg.(type) {
	case sysmsg.Stop:
		p.requestStop(msg.Reason)
	case sysmsg.Watch:
		if msg.Revert {
			p.watchers.Remove(msg.Watcher)
			return
		}
		p.watchers.Add(msg.Watcher)
	case sysmsg.Terminated:
		p.handleTerminated(msg)
	case sysmsg.Failure:
		if p.isSuspended() {
			p.stash = append(p.stash, msg)
			return
		}
		p.handleChildFailure(msg)
	case sysmsg.Directive:
		p.applyDirective(msg.Directive)
	default:
		p.logger.Warnf("unknown system message %T", msg)
	}
}

// invoke calls the actor's Receive, turning a panic into an error
func (p *process) invoke(env envelope) (err error) {
	p.current = env
	defer func() {
		p.current = envelope{}
		if r := recover(); r != nil {
			err = supervision.FromPanic(r, debug.Stack())
		}
	}()
	return p.actor.Receive(&processContext{p: p})
}

// invokeLifecycle delivers Stopping/Stopped. failures can't be supervised
// anymore so they're only logged.
func (p *process) invokeLifecycle(msg interface{}) {
	if p.actor == nil {
		return
	}
	if err := p.invoke(envelope{message: msg}); err != nil {
		p.logger.Errorf("failed handling %s: %v", message.Name(msg), err)
	}
}

func (p *process) requestStop(reason message.Reason) {
	if p.stopRequested {
		return
	}
	p.stopRequested = true
	p.stopReason = reason
}

func (p *process) isSuspended() bool {
	return p.state.Load() == stateSuspended
}

func (p *process) isStopping() bool {
	return p.state.Load() >= stateStopping
}

func (p *process) isStopped() bool {
	return p.state.Load() == stateStopped
}

// finalize runs once the loop exits. the mailbox is disposed before watchers
// are notified so no message can reach a dead process.
func (p *process) finalize() {
	p.state.Store(stateStopping)
	p.invokeLifecycle(Stopping{})

	p.timers.CancelAll()
	p.stopChildren()
	for _, target := range p.watching.ToSlice() {
		p.unwatch(target)
	}

	p.mailbox.Dispose()
	p.drainLateWatchers()
	p.invokeLifecycle(Stopped{})
	p.state.Store(stateStopped)

	p.notifyWatchers()
	p.cancel()
	p.system.remove(p)
	if p.parent == nil {
		p.system.forgetRoot(p.self)
	}
	close(p.done)
	p.logger.Debugf("process stopped, reason: %s", p.stopReason)
}

// stopChildren asks every child to stop and waits for them to terminate
func (p *process) stopChildren() {
	var waits []chan struct{}
	for _, child := range p.children.ToSlice() {
		c, ok := p.system.processes.Get(child.ID())
		if !ok {
			continue
		}
		_ = sendSystemMessage(child, sysmsg.Stop{Reason: message.ReasonShutdown})
		waits = append(waits, c.done)
	}
	if len(waits) == 0 {
		return
	}

	timeout := time.NewTimer(p.system.stopTimeout)
	defer timeout.Stop()
	for _, done := range waits {
		select {
		case <-done:
		case <-timeout.C:
			p.logger.Warnf("children did not stop within %s", p.system.stopTimeout)
			return
		}
	}
}
