package mailbox

import (
	"errors"
	"fmt"
)

const (
	DefaultUserMailboxCap = 1024
)

// Kind selects the user lane implementation
type Kind string

const (
	// KindUnbounded is backed by a growable queue
	KindUnbounded Kind = "unbounded"
	// KindBounded is backed by a fixed size ring buffer, messages are dropped when it's full
	KindBounded Kind = "bounded"
)

var (
	ErrDisposed = errors.New("mailbox is disposed")
	ErrFull     = errors.New("mailbox is full")
	ErrNil      = errors.New("nil message")
)

// Mailbox is the per-process ordered queue of pending messages. System messages
// travel on their own lane and are always popped before user messages.
// Push/PushSystem are safe for concurrent producers, Pop/PopSystem must only be
// called by the owning process.
type Mailbox interface {
	Push(message interface{}) error
	PushSystem(message interface{}) error
	Pop() (interface{}, bool)
	PopSystem() (interface{}, bool)
	// Signal fires at least once after every push
	Signal() <-chan struct{}
	Len() int
	// Dispose closes the mailbox. no push succeeds once Dispose has returned.
	Dispose()
	Disposed() bool
}

// New creates a process mailbox of the given kind
func New(kind Kind, capacity int) (Mailbox, error) {
	switch kind {
	case KindUnbounded, "":
		return newUnboundedMailbox(), nil
	case KindBounded:
		if capacity <= 0 {
			capacity = DefaultUserMailboxCap
		}
		return newQueueMailbox(capacity), nil
	default:
		return nil, fmt.Errorf("unknown mailbox kind %q", kind)
	}
}

func notify(signal chan struct{}) {
	select {
	case signal <- struct{}{}:
	default:
		// a wake up is already pending
	}
}
