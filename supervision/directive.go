package supervision

import (
	"fmt"
	"strings"
)

// Directive is the recovery action a supervisor takes for a failed child.
//
//   - Resume: the child keeps its state and continues with its mailbox.
//   - Restart: the child's state is discarded and its start-up logic runs again
//     on the same handle. queued messages are preserved.
//   - Stop: the child terminates. its watchers see a regular Terminated.
//   - Escalate: the failure is treated as a failure of the supervisor itself.
type Directive int

const (
	Resume Directive = iota
	Restart
	Stop
	Escalate
)

func (d Directive) String() string {
	switch d {
	case Resume:
		return "resume"
	case Restart:
		return "restart"
	case Stop:
		return "stop"
	case Escalate:
		return "escalate"
	default:
		return fmt.Sprintf("directive(%d)", int(d))
	}
}

// ParseDirective maps a textual directive to a Directive
func ParseDirective(s string) (Directive, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "resume":
		return Resume, nil
	case "restart":
		return Restart, nil
	case "stop":
		return Stop, nil
	case "escalate":
		return Escalate, nil
	default:
		return Stop, fmt.Errorf("invalid directive %q", s)
	}
}
