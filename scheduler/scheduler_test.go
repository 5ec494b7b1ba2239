package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedisam/poolsup/internal/mailbox"
	"github.com/hedisam/poolsup/internal/pid"
	"github.com/hedisam/poolsup/log"
)

func newTarget(t *testing.T) *pid.PID {
	m, err := mailbox.New(mailbox.KindUnbounded, 0)
	require.NoError(t, err)
	return pid.New(m)
}

func push(target *pid.PID, payload interface{}) error {
	return target.Mailbox().Push(payload)
}

func drain(target *pid.PID) []interface{} {
	var out []interface{}
	for {
		msg, ok := target.Mailbox().Pop()
		if !ok {
			return out
		}
		out = append(out, msg)
	}
}

func TestScheduleOnce(t *testing.T) {
	s := New(push, log.DiscardLogger)
	target := newTarget(t)

	token := s.ScheduleOnce(10*time.Millisecond, target, "tick")
	require.Eventually(t, func() bool { return target.Mailbox().Len() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, token.Done())
	assert.False(t, token.Periodic())

	// cancelling a fired one-shot is a no-op
	token.Cancel()
	token.Cancel()
	assert.Equal(t, []interface{}{"tick"}, drain(target))
}

func TestScheduleOnceCancelled(t *testing.T) {
	s := New(push, log.DiscardLogger)
	target := newTarget(t)

	token := s.ScheduleOnce(50*time.Millisecond, target, "tick")
	token.Cancel()
	assert.True(t, token.Cancelled())
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, drain(target))
}

func TestScheduleEvery(t *testing.T) {
	s := New(push, log.DiscardLogger)
	target := newTarget(t)

	token := s.ScheduleEvery(5*time.Millisecond, 10*time.Millisecond, target, "tick")
	require.Eventually(t, func() bool { return target.Mailbox().Len() >= 3 }, time.Second, 5*time.Millisecond)
	assert.False(t, token.Done())

	token.Cancel()
	// an in flight delivery may still land right after cancel
	time.Sleep(20 * time.Millisecond)
	n := len(drain(target))
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, drain(target), "no firings after cancel, got %d before", n)
	assert.True(t, token.Done())
}

func TestScheduleEveryStopsOnDisposedTarget(t *testing.T) {
	s := New(push, log.DiscardLogger)
	target := newTarget(t)
	target.Mailbox().Dispose()

	token := s.ScheduleEvery(time.Millisecond, time.Millisecond, target, "tick")
	require.Eventually(t, token.Cancelled, time.Second, 5*time.Millisecond)
}

// a 5s one-shot and a periodic task are both cancelled before anything fires,
// nothing is ever delivered
func TestCancelBeforeFiring(t *testing.T) {
	s := New(push, log.DiscardLogger)
	target := newTarget(t)
	b := NewBindings()

	b.Add(s.ScheduleOnce(5*time.Second, target, "once"))
	b.Add(s.ScheduleEvery(50*time.Millisecond, 10*time.Millisecond, target, "every"))
	assert.Equal(t, 2, b.Len())

	b.CancelAll()
	assert.Equal(t, 0, b.Len())
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, drain(target))
}

func TestBindings(t *testing.T) {
	s := New(push, log.DiscardLogger)
	target := newTarget(t)
	b := NewBindings()

	fired := s.ScheduleOnce(time.Millisecond, target, "fired")
	require.Eventually(t, fired.Done, time.Second, time.Millisecond)
	b.Add(fired)

	pending := s.ScheduleOnce(time.Hour, target, "pending")
	b.Add(pending)
	assert.Equal(t, 1, b.Len())
	assert.Len(t, b.tokens, 1, "done tasks are pruned on add")

	assert.True(t, b.Cancel(pending))
	assert.False(t, b.Cancel(pending))
	assert.False(t, b.Cancel(nil))
	assert.True(t, pending.Cancelled())
}
