// Package message holds the closed set of user messages exchanged between the
// pool supervisor and its workers.
package message

import (
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/hedisam/poolsup/internal/pid"
)

// ErrUnhandled is the failure raised by a handler that got a message it doesn't know
var ErrUnhandled = errors.New("unhandled message")

// Message is implemented by the variants declared in this package only
type Message interface {
	message()
}

// Move asks a worker to do one unit of work and maybe stop itself
type Move struct{}

// Stop asks a worker to stop itself
type Stop struct{}

// StartPool makes the pool supervisor broadcast Move to every worker
type StartPool struct{}

// Work is a unit of work handed to one worker through the router
type Work struct {
	ID      string
	Payload interface{}
}

// NewWork stamps payload with a fresh id
func NewWork(payload interface{}) Work {
	return Work{ID: xid.New().String(), Payload: payload}
}

// Reason tells why a process terminated
type Reason string

const (
	// ReasonNormal the process stopped itself or was stopped by a holder of its handle
	ReasonNormal Reason = "normal"
	// ReasonSupervisor the parent's policy decided Stop
	ReasonSupervisor Reason = "stopped_by_supervisor"
	// ReasonShutdown the parent or the system is shutting down
	ReasonShutdown Reason = "shutdown"
	// ReasonNotAlive the watched process was already gone when the watch arrived
	ReasonNotAlive Reason = "not_alive"
)

// Terminated is delivered exactly once to every watcher of a terminated process
type Terminated struct {
	Who    *pid.PID
	Reason Reason
}

func (Move) message()       {}
func (Stop) message()       {}
func (StartPool) message()  {}
func (Work) message()       {}
func (Terminated) message() {}

// Unhandled is the default branch of a handler's type switch
func Unhandled(msg interface{}) error {
	return fmt.Errorf("%w: %T", ErrUnhandled, msg)
}

// Name returns a printable message type, used in logs and failure events
func Name(msg interface{}) string {
	if msg == nil {
		return ""
	}
	return fmt.Sprintf("%T", msg)
}
