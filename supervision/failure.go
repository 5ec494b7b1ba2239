package supervision

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// failure kinds the default policy knows about
var (
	ErrArithmetic      = errors.New("arithmetic failure")
	ErrNilReference    = errors.New("nil reference")
	ErrInvalidArgument = errors.New("invalid argument")
)

// ErrRetriesExhausted marks a directive forced to Stop by the retry budget
var ErrRetriesExhausted = errors.New("retries exhausted")

// PanicError wraps a value recovered from a panicking handler
type PanicError struct {
	Value interface{}
	Stack []byte
	kind  error
}

// FromPanic turns a recovered value into an error. runtime errors are
// classified so policies can match them with errors.Is.
func FromPanic(r interface{}, stack []byte) error {
	pe := &PanicError{Value: r, Stack: stack}
	switch v := r.(type) {
	case runtime.Error:
		msg := v.Error()
		switch {
		case strings.Contains(msg, "divide by zero"):
			pe.kind = ErrArithmetic
		case strings.Contains(msg, "nil pointer"), strings.Contains(msg, "nil map"):
			pe.kind = ErrNilReference
		default:
			pe.kind = v
		}
	case error:
		pe.kind = v
	}
	return pe
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	return e.kind
}

// RecoverableFailure is the failure event a process raises when one of its
// handlers fails. It's what the parent's policy classifies.
type RecoverableFailure struct {
	// ProcessID of the failed process
	ProcessID string
	// Message is the type of the message being handled, empty during start-up
	Message string
	Err     error
}

func (e *RecoverableFailure) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("process %s failed: %v", e.ProcessID, e.Err)
	}
	return fmt.Sprintf("process %s failed handling %s: %v", e.ProcessID, e.Message, e.Err)
}

func (e *RecoverableFailure) Unwrap() error {
	return e.Err
}

// EscalatedFailure is raised by a supervisor that got Escalate for one of its children
type EscalatedFailure struct {
	ChildID string
	Err     error
}

func (e *EscalatedFailure) Error() string {
	return fmt.Sprintf("escalated failure of child %s: %v", e.ChildID, e.Err)
}

func (e *EscalatedFailure) Unwrap() error {
	return e.Err
}
