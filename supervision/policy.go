package supervision

import (
	"errors"
	"time"
)

const (
	defaultMaxRetries = 10
	defaultWindow     = time.Minute
)

// Matcher classifies a failure
type Matcher func(err error) bool

// Rule maps a failure kind to a directive
type Rule struct {
	Match     Matcher
	Directive Directive
}

// Policy decides what happens to a failed child. Rules are evaluated in
// declared order, the first match wins. Default applies when no rule matches.
type Policy struct {
	// MaxRetries is the number of failures tolerated per child inside Window.
	// negative means unlimited
	MaxRetries int
	// Window is the sliding period of the retry counter. zero never resets
	Window  time.Duration
	Rules   []Rule
	Default Directive
}

// NewPolicy builds a policy from the given rules
func NewPolicy(maxRetries int, window time.Duration, fallback Directive, rules ...Rule) Policy {
	return Policy{
		MaxRetries: maxRetries,
		Window:     window,
		Rules:      rules,
		Default:    fallback,
	}
}

// On is a shorthand for a rule matching errors.Is(err, target)
func On(target error, directive Directive) Rule {
	return Rule{Match: Is(target), Directive: directive}
}

// DefaultPolicy tolerates 10 failures per minute. arithmetic failures are
// resumed, nil references restarted, invalid arguments stopped and anything
// else escalated.
func DefaultPolicy() Policy {
	return NewPolicy(defaultMaxRetries, defaultWindow, Escalate,
		On(ErrArithmetic, Resume),
		On(ErrNilReference, Restart),
		On(ErrInvalidArgument, Stop),
	)
}

// DefaultGuardianPolicy supervises root processes. plain failures are
// restarted, an escalation reaching a root is fatal.
func DefaultGuardianPolicy() Policy {
	return NewPolicy(defaultMaxRetries, defaultWindow, Restart,
		Rule{Match: As[*EscalatedFailure](), Directive: Escalate},
	)
}

// Decide returns the directive for err. it has no side effects.
func (p Policy) Decide(err error) Directive {
	for _, rule := range p.Rules {
		if rule.Match != nil && rule.Match(err) {
			return rule.Directive
		}
	}
	return p.Default
}

// Is matches errors.Is(err, target)
func Is(target error) Matcher {
	return func(err error) bool {
		return errors.Is(err, target)
	}
}

// As matches any error in the chain of type T
func As[T error]() Matcher {
	return func(err error) bool {
		var target T
		return errors.As(err, &target)
	}
}

// Func adapts a plain predicate
func Func(fn func(err error) bool) Matcher {
	return Matcher(fn)
}

// Any matches every failure
func Any() Matcher {
	return func(error) bool { return true }
}
