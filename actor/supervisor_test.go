package actor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedisam/poolsup/message"
	"github.com/hedisam/poolsup/supervision"
)

type spawnChild struct{}

// counter is a stateful child. "fail" returns the configured error.
func counterProps(p *probe, failWith error) *Props {
	return NewProps(func() Actor {
		count := 0
		return ReceiveFunc(func(ctx Context) error {
			switch ctx.Message() {
			case Started{}:
				p.record("started")
			case "inc":
				count++
				p.record(count)
			case "fail":
				return failWith
			case "panic":
				var m map[string]int
				m["boom"]++
			}
			return nil
		})
	})
}

// parentProps spawns and watches a child on request and tells the test about it
func parentProps(p *probe, child *Props, policy supervision.Policy) *Props {
	return PropsFromFunc(func(ctx Context) error {
		switch msg := ctx.Message().(type) {
		case spawnChild:
			who, err := ctx.Spawn(child)
			if err != nil {
				return err
			}
			ctx.Watch(who)
			return ctx.Reply(who)
		case retriesOf:
			return ctx.Reply(ctx.Retries(msg.who))
		case message.Terminated:
			p.record(msg)
		case string:
			p.record(msg)
		}
		return nil
	}, WithSupervisionPolicy(policy))
}

type retriesOf struct {
	who *PID
}

func spawnTree(t *testing.T, s *System, parent *Props) (*PID, *PID) {
	t.Helper()
	parentPID, err := s.Spawn(parent)
	require.NoError(t, err)
	ctx, cancel := testContext()
	defer cancel()
	reply, err := s.Ask(ctx, parentPID, spawnChild{})
	require.NoError(t, err)
	return parentPID, reply.(*PID)
}

func TestDirectives(t *testing.T) {
	policy := supervision.DefaultPolicy()

	t.Run("resume keeps state", func(t *testing.T) {
		s := newTestSystem(t)
		childProbe := &probe{}
		_, child := spawnTree(t, s, parentProps(&probe{}, counterProps(childProbe, supervision.ErrArithmetic), policy))

		for _, msg := range []string{"inc", "fail", "inc"} {
			require.NoError(t, s.Send(child, msg))
		}
		require.Eventually(t, func() bool { return len(childProbe.messages()) == 3 }, waitFor, 5*time.Millisecond)
		assert.Equal(t, []interface{}{"started", 1, 2}, childProbe.messages())
	})

	t.Run("restart resets state on the same handle", func(t *testing.T) {
		s := newTestSystem(t)
		childProbe := &probe{}
		parentProbe := &probe{}
		_, child := spawnTree(t, s, parentProps(parentProbe, counterProps(childProbe, supervision.ErrNilReference), policy))

		for _, msg := range []string{"inc", "fail", "inc"} {
			require.NoError(t, s.Send(child, msg))
		}
		require.Eventually(t, func() bool { return len(childProbe.messages()) == 4 }, waitFor, 5*time.Millisecond)
		assert.Equal(t, []interface{}{"started", 1, "started", 1}, childProbe.messages())
		assert.True(t, s.IsAlive(child))
		assert.Zero(t, parentProbe.count(isTerminated))
	})

	t.Run("panics are failures", func(t *testing.T) {
		s := newTestSystem(t)
		childProbe := &probe{}
		_, child := spawnTree(t, s, parentProps(&probe{}, counterProps(childProbe, nil), policy))

		// nil map write is a nil reference failure, restarted
		require.NoError(t, s.Send(child, "panic"))
		require.Eventually(t, func() bool { return len(childProbe.messages()) == 2 }, waitFor, 5*time.Millisecond)
		assert.Equal(t, []interface{}{"started", "started"}, childProbe.messages())
	})

	t.Run("stop notifies watchers", func(t *testing.T) {
		s := newTestSystem(t)
		parentProbe := &probe{}
		_, child := spawnTree(t, s, parentProps(parentProbe, counterProps(&probe{}, supervision.ErrInvalidArgument), policy))

		require.NoError(t, s.Send(child, "fail"))
		require.Eventually(t, func() bool { return parentProbe.count(isTerminated) == 1 }, waitFor, 5*time.Millisecond)
		terminated := parentProbe.messages()[0].(message.Terminated)
		assert.Equal(t, child, terminated.Who)
		assert.Equal(t, message.ReasonSupervisor, terminated.Reason)
	})
}

func TestRetriesExhausted(t *testing.T) {
	s := newTestSystem(t)
	parentProbe := &probe{}
	childProbe := &probe{}
	policy := supervision.NewPolicy(2, time.Minute, supervision.Resume)
	parent, child := spawnTree(t, s, parentProps(parentProbe, counterProps(childProbe, errors.New("flaky")), policy))

	for i := 0; i < 2; i++ {
		require.NoError(t, s.Send(child, "fail"))
	}
	require.NoError(t, s.Send(child, "inc"))
	require.Eventually(t, func() bool { return childProbe.count(func(m interface{}) bool { return m == 1 }) == 1 }, waitFor, 5*time.Millisecond)

	ctx, cancel := testContext()
	defer cancel()
	retries, err := s.Ask(ctx, parent, retriesOf{who: child})
	require.NoError(t, err)
	assert.Equal(t, 2, retries)

	// the third failure inside the window is forced to stop
	require.NoError(t, s.Send(child, "fail"))
	require.Eventually(t, func() bool { return parentProbe.count(isTerminated) == 1 }, waitFor, 5*time.Millisecond)
	assert.False(t, s.IsAlive(child))

	retries, err = s.Ask(ctx, parent, retriesOf{who: child})
	require.NoError(t, err)
	assert.Equal(t, 0, retries, "counters of terminated children are forgotten")
}

func TestStartupFailureIsBounded(t *testing.T) {
	s := newTestSystem(t)
	parentProbe := &probe{}
	attempts := &probe{}
	child := NewProps(func() Actor {
		return ReceiveFunc(func(ctx Context) error {
			if _, ok := ctx.Message().(Started); ok {
				attempts.record("started")
				return supervision.ErrNilReference
			}
			return nil
		})
	})
	policy := supervision.NewPolicy(3, time.Minute, supervision.Escalate, supervision.On(supervision.ErrNilReference, supervision.Restart))
	spawnTree(t, s, parentProps(parentProbe, child, policy))

	require.Eventually(t, func() bool { return parentProbe.count(isTerminated) == 1 }, waitFor, 5*time.Millisecond)
	// the first start and three restarts
	assert.Equal(t, 4, len(attempts.messages()))
}

func TestEscalate(t *testing.T) {
	fatal := make(chan error, 1)
	s := newTestSystem(t,
		WithGuardianPolicy(supervision.NewPolicy(10, time.Minute, supervision.Restart)),
		WithFatalHandler(func(_ *System, err error) { fatal <- err }),
	)

	parentProbe := &probe{}
	childProbe := &probe{}
	boom := errors.New("boom")
	parentPolicy := supervision.NewPolicy(10, time.Minute, supervision.Escalate)
	parent, child := spawnTree(t, s, parentProps(parentProbe, counterProps(childProbe, boom), parentPolicy))

	require.NoError(t, s.Send(parent, "before"))
	require.Eventually(t, func() bool { return len(parentProbe.messages()) == 1 }, waitFor, 5*time.Millisecond)

	// the guardian restarts the escalating parent, which stops its children
	require.NoError(t, s.Send(child, "fail"))
	require.Eventually(t, func() bool { return !s.IsAlive(child) }, waitFor, 5*time.Millisecond)
	assert.True(t, s.IsAlive(parent))
	select {
	case err := <-fatal:
		t.Fatalf("unexpected fatal failure: %v", err)
	default:
	}

	// the restarted parent isn't watching its old child anymore
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, parentProbe.count(isTerminated))
}

func TestEscalateToResumedParent(t *testing.T) {
	s := newTestSystem(t,
		WithGuardianPolicy(supervision.NewPolicy(10, time.Minute, supervision.Resume)),
	)
	childProbe := &probe{}
	parentPolicy := supervision.NewPolicy(10, time.Minute, supervision.Escalate)
	_, child := spawnTree(t, s, parentProps(&probe{}, counterProps(childProbe, errors.New("boom")), parentPolicy))

	require.NoError(t, s.Send(child, "fail"))
	require.NoError(t, s.Send(child, "inc"))
	// the parent is resumed so the suspended child is resumed with it
	require.Eventually(t, func() bool { return childProbe.count(func(m interface{}) bool { return m == 1 }) == 1 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []interface{}{"started", 1}, childProbe.messages())
}

func TestRootRestartKeepsHandle(t *testing.T) {
	s := newTestSystem(t)
	childProbe := &probe{}
	who, err := s.Spawn(counterProps(childProbe, supervision.ErrArithmetic))
	require.NoError(t, err)
	require.NoError(t, s.Send(who, "fail"))
	require.NoError(t, s.Send(who, "inc"))
	require.Eventually(t, func() bool { return len(childProbe.messages()) >= 2 }, waitFor, 5*time.Millisecond)
	assert.True(t, s.IsAlive(who))
}
