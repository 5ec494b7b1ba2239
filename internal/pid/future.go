package pid

import "github.com/hedisam/poolsup/internal/mailbox"

// NewFuture returns a handle that can receive exactly one reply
func NewFuture() (*PID, *mailbox.FutureMailbox) {
	m := mailbox.NewFutureMailbox()
	return New(m), m
}
