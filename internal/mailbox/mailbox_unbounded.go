package mailbox

import (
	"sync"

	"github.com/Workiva/go-datastructures/queue"
)

const laneHint = 16

type unboundedMailbox struct {
	userMailbox *queue.Queue
	sysMailbox  *queue.Queue
	signal      chan struct{}
	// guards disposed against in-flight pushes
	mu       sync.RWMutex
	disposed bool
}

func newUnboundedMailbox() *unboundedMailbox {
	return &unboundedMailbox{
		userMailbox: queue.New(laneHint),
		sysMailbox:  queue.New(laneHint),
		signal:      make(chan struct{}, 1),
	}
}

func (m *unboundedMailbox) Push(message interface{}) error {
	return m.push(m.userMailbox, message)
}

func (m *unboundedMailbox) PushSystem(message interface{}) error {
	return m.push(m.sysMailbox, message)
}

func (m *unboundedMailbox) push(q *queue.Queue, message interface{}) error {
	if message == nil {
		return ErrNil
	}
	m.mu.RLock()
	if m.disposed {
		m.mu.RUnlock()
		return ErrDisposed
	}
	err := q.Put(message)
	m.mu.RUnlock()
	if err != nil {
		return ErrDisposed
	}

	notify(m.signal)
	return nil
}

func (m *unboundedMailbox) Pop() (interface{}, bool) {
	return poll(m.userMailbox)
}

func (m *unboundedMailbox) PopSystem() (interface{}, bool) {
	return poll(m.sysMailbox)
}

// poll takes the head of q without parking. only the owner pops, so a non
// empty queue stays non empty until Get returns.
func poll(q *queue.Queue) (interface{}, bool) {
	if q.Empty() {
		return nil, false
	}
	items, err := q.Get(1)
	if err != nil || len(items) == 0 {
		return nil, false
	}
	return items[0], true
}

func (m *unboundedMailbox) Signal() <-chan struct{} {
	return m.signal
}

func (m *unboundedMailbox) Len() int {
	return int(m.userMailbox.Len())
}

func (m *unboundedMailbox) Dispose() {
	m.mu.Lock()
	m.disposed = true
	m.mu.Unlock()
}

func (m *unboundedMailbox) Disposed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.disposed
}
