// Package actor is an in-memory process runtime: every process runs on its own
// goroutine, owns a mailbox and is supervised by the process that spawned it.
package actor

import (
	"github.com/hedisam/poolsup/internal/pid"
)

// PID is the handle of a process
type PID = pid.PID

// Actor is the behaviour of a process. Receive is never called concurrently
// for the same process. a returned error or a panic is a failure reported to
// the parent's supervision policy.
type Actor interface {
	Receive(ctx Context) error
}

// Producer creates a fresh actor, it's called on spawn and on every restart
type Producer func() Actor

// ReceiveFunc adapts a function to the Actor interface
type ReceiveFunc func(ctx Context) error

func (f ReceiveFunc) Receive(ctx Context) error {
	return f(ctx)
}

// Started is the first message a process receives, after every restart too
type Started struct{}

// Stopping is received once the process started terminating. its children and
// timers are still there.
type Stopping struct{}

// Stopped is the last message a process receives
type Stopped struct{}
