package sysmsg

import (
	"github.com/hedisam/poolsup/internal/pid"
	"github.com/hedisam/poolsup/message"
	"github.com/hedisam/poolsup/supervision"
)

// SystemMessage travels on the system lane of a mailbox and is handled by the
// runtime before any user message
type SystemMessage interface {
	systemMessage()
}

// Watch asks the receiver to notify Watcher once it terminates
type Watch struct {
	Watcher *pid.PID
	// Revert is true when the watcher is no longer interested
	Revert bool
}

func (Watch) systemMessage() {}

// Terminated is emitted by a terminating process to each of its watchers
type Terminated struct {
	Who    *pid.PID
	Reason message.Reason
}

func (Terminated) systemMessage() {}

// Stop asks a process to terminate after its current handler returns
type Stop struct {
	Reason message.Reason
}

func (Stop) systemMessage() {}

// Failure is reported by a failed child to its parent. the child stays
// suspended until it gets a Directive.
type Failure struct {
	Who *pid.PID
	Err error
	// Message is the type of the message whose handling failed
	Message string
}

func (Failure) systemMessage() {}

// Directive is the parent's answer to a Failure
type Directive struct {
	Directive supervision.Directive
}

func (Directive) systemMessage() {}
