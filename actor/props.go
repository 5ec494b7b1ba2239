package actor

import (
	"github.com/hedisam/poolsup/internal/mailbox"
	"github.com/hedisam/poolsup/supervision"
)

// Props is the recipe of a process
type Props struct {
	producer    Producer
	mailboxKind mailbox.Kind
	mailboxCap  int
	policy      *supervision.Policy
}

type PropsOption func(*Props)

// WithMailbox selects the user lane of the process mailbox
func WithMailbox(kind mailbox.Kind, capacity int) PropsOption {
	return func(p *Props) {
		p.mailboxKind = kind
		p.mailboxCap = capacity
	}
}

// WithSupervisionPolicy sets the policy the process applies to its children
func WithSupervisionPolicy(policy supervision.Policy) PropsOption {
	return func(p *Props) {
		p.policy = &policy
	}
}

// NewProps panics if producer is nil
func NewProps(producer Producer, opts ...PropsOption) *Props {
	if producer == nil {
		panic("actor: nil producer")
	}
	props := &Props{producer: producer}
	for _, opt := range opts {
		opt(props)
	}
	return props
}

// PropsFromFunc builds props for a stateless actor
func PropsFromFunc(fn ReceiveFunc, opts ...PropsOption) *Props {
	return NewProps(func() Actor { return fn }, opts...)
}

func (p *Props) produce() Actor {
	return p.producer()
}

func (p *Props) supervisionPolicy() supervision.Policy {
	if p.policy == nil {
		return supervision.DefaultPolicy()
	}
	return *p.policy
}
