package pid

import (
	"github.com/rs/xid"

	"github.com/hedisam/poolsup/internal/mailbox"
)

// PID is the opaque handle of a running process. A process owns exactly one
// PID value, so handles compare by identity.
type PID struct {
	id      string
	mailbox mailbox.Mailbox
}

func New(m mailbox.Mailbox) *PID {
	return &PID{
		id:      xid.New().String(),
		mailbox: m,
	}
}

func (pid *PID) ID() string {
	if pid == nil {
		return ""
	}
	return pid.id
}

func (pid *PID) String() string {
	if pid == nil {
		return "<nil>"
	}
	return pid.id
}

// Equals reports whether both handles point at the same process
func (pid *PID) Equals(other *PID) bool {
	if pid == nil || other == nil {
		return pid == other
	}
	return pid.id == other.id
}

// Mailbox is only meant for the runtime
func (pid *PID) Mailbox() mailbox.Mailbox {
	return pid.mailbox
}
