package actor

import (
	"context"
	"time"

	"github.com/hedisam/poolsup/log"
	"github.com/hedisam/poolsup/message"
	"github.com/hedisam/poolsup/scheduler"
	"github.com/hedisam/poolsup/sysmsg"
)

// Context is what an actor sees while handling a message. It must not be used
// outside of Receive.
type Context interface {
	Self() *PID
	// Parent is nil for root processes
	Parent() *PID
	// Sender is nil when the message wasn't sent by a process or an ask
	Sender() *PID
	Message() interface{}
	Logger() log.Logger
	// Context is cancelled once the process has terminated
	Context() context.Context
	System() *System

	Send(to *PID, msg interface{}) error
	// Forward delivers msg keeping the current sender, so the receiver can reply to it
	Forward(to *PID, msg interface{}) error
	Reply(msg interface{}) error

	// Spawn starts a child supervised by this process
	Spawn(props *Props) (*PID, error)
	Children() []*PID
	Stop(who *PID) error
	// StopSelf terminates the process once the current handler returns
	StopSelf()

	// Watch delivers message.Terminated once who terminates, exactly once
	Watch(who *PID)
	Unwatch(who *PID)
	Watching(who *PID) bool

	ScheduleOnce(delay time.Duration, msg interface{}) *scheduler.Token
	ScheduleEvery(delay, interval time.Duration, msg interface{}) *scheduler.Token
	Cancel(token *scheduler.Token)

	// Retries returns the failures of a child inside the current retry window
	Retries(child *PID) int
}

type processContext struct {
	p *process
}

var _ Context = (*processContext)(nil)

func (c *processContext) Self() *PID {
	return c.p.self
}

func (c *processContext) Parent() *PID {
	return c.p.parent
}

func (c *processContext) Sender() *PID {
	return c.p.current.sender
}

func (c *processContext) Message() interface{} {
	return c.p.current.message
}

func (c *processContext) Logger() log.Logger {
	return c.p.logger
}

func (c *processContext) Context() context.Context {
	return c.p.ctx
}

func (c *processContext) System() *System {
	return c.p.system
}

func (c *processContext) Send(to *PID, msg interface{}) error {
	return send(to, envelope{sender: c.p.self, message: msg})
}

func (c *processContext) Forward(to *PID, msg interface{}) error {
	return send(to, envelope{sender: c.p.current.sender, message: msg})
}

func (c *processContext) Reply(msg interface{}) error {
	sender := c.p.current.sender
	if sender == nil {
		return ErrNoSender
	}
	return send(sender, envelope{sender: c.p.self, message: msg})
}

func (c *processContext) Spawn(props *Props) (*PID, error) {
	if c.p.isStopping() || c.p.stopRequested {
		return nil, ErrProcessStopping
	}
	return c.p.system.spawn("", props, c.p)
}

func (c *processContext) Children() []*PID {
	return c.p.children.ToSlice()
}

func (c *processContext) Stop(who *PID) error {
	if who == c.p.self {
		c.StopSelf()
		return nil
	}
	return sendSystemMessage(who, sysmsg.Stop{Reason: message.ReasonNormal})
}

func (c *processContext) StopSelf() {
	c.p.requestStop(message.ReasonNormal)
}

func (c *processContext) Watch(who *PID) {
	c.p.watch(who)
}

func (c *processContext) Unwatch(who *PID) {
	c.p.unwatch(who)
}

func (c *processContext) Watching(who *PID) bool {
	return c.p.watching.Contains(who)
}

func (c *processContext) ScheduleOnce(delay time.Duration, msg interface{}) *scheduler.Token {
	token := c.p.system.scheduler.ScheduleOnce(delay, c.p.self, msg)
	c.p.timers.Add(token)
	return token
}

func (c *processContext) ScheduleEvery(delay, interval time.Duration, msg interface{}) *scheduler.Token {
	token := c.p.system.scheduler.ScheduleEvery(delay, interval, c.p.self, msg)
	c.p.timers.Add(token)
	return token
}

func (c *processContext) Cancel(token *scheduler.Token) {
	c.p.timers.Cancel(token)
}

func (c *processContext) Retries(child *PID) int {
	return c.p.tracker.Count(child.ID())
}
