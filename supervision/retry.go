package supervision

import (
	"time"
)

// RetryCounter counts the failures of one child inside the current window
type RetryCounter struct {
	count int
	last  time.Time
}

// Increment records a failure at now. the counter starts over when window has
// elapsed since the previous failure.
func (c *RetryCounter) Increment(now time.Time, window time.Duration) int {
	if window > 0 && !c.last.IsZero() && now.Sub(c.last) > window {
		c.count = 0
	}
	c.count++
	c.last = now
	return c.count
}

func (c *RetryCounter) Count() int {
	return c.count
}

// Tracker applies a policy to the children of one supervisor and owns their
// retry counters. It is not safe for concurrent use, the owning process is the
// only writer.
type Tracker struct {
	policy   Policy
	counters map[string]*RetryCounter
	now      func() time.Time
}

func NewTracker(policy Policy) *Tracker {
	return &Tracker{
		policy:   policy,
		counters: make(map[string]*RetryCounter),
		now:      time.Now,
	}
}

// WithClock replaces the time source
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

func (t *Tracker) Policy() Policy {
	return t.policy
}

// Decide bumps the child's counter and returns the directive for err. forced is
// true when the retry budget turned the matched directive into Stop.
func (t *Tracker) Decide(child string, err error) (directive Directive, forced bool) {
	counter, ok := t.counters[child]
	if !ok {
		counter = new(RetryCounter)
		t.counters[child] = counter
	}
	count := counter.Increment(t.now(), t.policy.Window)

	directive = t.policy.Decide(err)
	if t.policy.MaxRetries >= 0 && count > t.policy.MaxRetries {
		return Stop, directive != Stop
	}
	return directive, false
}

// Count returns the current counter of a child
func (t *Tracker) Count(child string) int {
	if counter, ok := t.counters[child]; ok {
		return counter.Count()
	}
	return 0
}

// Forget drops the counter of a terminated child
func (t *Tracker) Forget(child string) {
	delete(t.counters, child)
}

// Counts returns a copy of all counters
func (t *Tracker) Counts() map[string]int {
	out := make(map[string]int, len(t.counters))
	for id, counter := range t.counters {
		out[id] = counter.Count()
	}
	return out
}
