package actor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedisam/poolsup/message"
)

// watcher watches every PID it receives
func watcherProps(p *probe) *Props {
	return PropsFromFunc(func(ctx Context) error {
		switch msg := ctx.Message().(type) {
		case *PID:
			ctx.Watch(msg)
			ctx.Watch(msg)
			p.record(ctx.Watching(msg))
		case unwatch:
			ctx.Unwatch(msg.who)
			ctx.Unwatch(msg.who)
			p.record(ctx.Watching(msg.who))
		default:
			p.record(msg)
		}
		return nil
	})
}

type unwatch struct {
	who *PID
}

func TestWatchExactlyOnce(t *testing.T) {
	s := newTestSystem(t)
	p := &probe{}
	watcher, err := s.Spawn(watcherProps(p))
	require.NoError(t, err)
	target, err := s.Spawn(probeProps(&probe{}))
	require.NoError(t, err)

	require.NoError(t, s.Send(watcher, target))
	require.Eventually(t, func() bool { return p.count(func(m interface{}) bool { return m == true }) == 1 }, waitFor, 5*time.Millisecond)
	require.NoError(t, s.Stop(target))

	require.Eventually(t, func() bool { return p.count(isTerminated) == 1 }, waitFor, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, p.count(isTerminated))

	for _, msg := range p.messages() {
		if terminated, ok := msg.(message.Terminated); ok {
			assert.Equal(t, target, terminated.Who)
			assert.Equal(t, message.ReasonNormal, terminated.Reason)
		}
	}
}

func TestWatchDeadProcess(t *testing.T) {
	s := newTestSystem(t)
	target, err := s.Spawn(probeProps(&probe{}))
	require.NoError(t, err)
	require.NoError(t, s.Stop(target))
	require.Eventually(t, func() bool { return !s.IsAlive(target) }, waitFor, 5*time.Millisecond)

	p := &probe{}
	watcher, err := s.Spawn(watcherProps(p))
	require.NoError(t, err)
	require.NoError(t, s.Send(watcher, target))

	require.Eventually(t, func() bool { return p.count(isTerminated) == 1 }, waitFor, 5*time.Millisecond)
	for _, msg := range p.messages() {
		if terminated, ok := msg.(message.Terminated); ok {
			assert.Equal(t, message.ReasonNotAlive, terminated.Reason)
		}
	}
}

func TestUnwatch(t *testing.T) {
	s := newTestSystem(t)
	p := &probe{}
	watcher, err := s.Spawn(watcherProps(p))
	require.NoError(t, err)
	target, err := s.Spawn(probeProps(&probe{}))
	require.NoError(t, err)

	require.NoError(t, s.Send(watcher, target))
	require.NoError(t, s.Send(watcher, unwatch{who: target}))
	require.Eventually(t, func() bool { return p.count(func(m interface{}) bool { return m == false }) == 1 }, waitFor, 5*time.Millisecond)

	require.NoError(t, s.Stop(target))
	require.Eventually(t, func() bool { return !s.IsAlive(target) }, waitFor, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, p.count(isTerminated))
}

func TestManyWatchers(t *testing.T) {
	s := newTestSystem(t)
	target, err := s.Spawn(probeProps(&probe{}))
	require.NoError(t, err)

	probes := make([]*probe, 10)
	for i := range probes {
		probes[i] = &probe{}
		watcher, err := s.Spawn(watcherProps(probes[i]))
		require.NoError(t, err)
		require.NoError(t, s.Send(watcher, target))
	}
	// stop while watch requests may still be in flight
	require.NoError(t, s.Stop(target))

	for _, p := range probes {
		p := p
		require.Eventually(t, func() bool { return p.count(isTerminated) == 1 }, waitFor, 5*time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	for _, p := range probes {
		assert.Equal(t, 1, p.count(isTerminated))
	}
}

func TestWatcherStopsFirst(t *testing.T) {
	s := newTestSystem(t)
	p := &probe{}
	watcher, err := s.Spawn(watcherProps(p))
	require.NoError(t, err)
	target, err := s.Spawn(probeProps(&probe{}))
	require.NoError(t, err)

	require.NoError(t, s.Send(watcher, target))
	require.NoError(t, s.Stop(watcher))
	require.Eventually(t, func() bool { return !s.IsAlive(watcher) }, waitFor, 5*time.Millisecond)

	require.NoError(t, s.Stop(target))
	require.Eventually(t, func() bool { return !s.IsAlive(target) }, waitFor, 5*time.Millisecond)
	assert.Zero(t, p.count(isTerminated))
}
