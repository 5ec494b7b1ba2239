package mailbox

import (
	"sync"

	"github.com/Workiva/go-datastructures/queue"
)

// queueMailbox keeps user messages in a bounded ring buffer. the system lane stays
// unbounded so termination notices are never dropped.
type queueMailbox struct {
	userMailbox *queue.RingBuffer
	sysMailbox  *queue.Queue
	signal      chan struct{}
	mu          sync.RWMutex
	disposed    bool
}

func newQueueMailbox(capacity int) *queueMailbox {
	return &queueMailbox{
		userMailbox: queue.NewRingBuffer(uint64(capacity)),
		sysMailbox:  queue.New(laneHint),
		signal:      make(chan struct{}, 1),
	}
}

func (m *queueMailbox) Push(message interface{}) error {
	if message == nil {
		return ErrNil
	}
	m.mu.RLock()
	if m.disposed {
		m.mu.RUnlock()
		return ErrDisposed
	}
	ok, err := m.userMailbox.Offer(message)
	m.mu.RUnlock()
	if err != nil {
		return ErrDisposed
	}
	if !ok {
		return ErrFull
	}

	notify(m.signal)
	return nil
}

func (m *queueMailbox) PushSystem(message interface{}) error {
	if message == nil {
		return ErrNil
	}
	m.mu.RLock()
	if m.disposed {
		m.mu.RUnlock()
		return ErrDisposed
	}
	err := m.sysMailbox.Put(message)
	m.mu.RUnlock()
	if err != nil {
		return ErrDisposed
	}

	notify(m.signal)
	return nil
}

func (m *queueMailbox) Pop() (interface{}, bool) {
	// single consumer: a non zero length means Get won't park
	if m.userMailbox.Len() == 0 {
		return nil, false
	}
	msg, err := m.userMailbox.Get()
	if err != nil {
		return nil, false
	}
	return msg, true
}

func (m *queueMailbox) PopSystem() (interface{}, bool) {
	return poll(m.sysMailbox)
}

func (m *queueMailbox) Signal() <-chan struct{} {
	return m.signal
}

func (m *queueMailbox) Len() int {
	return int(m.userMailbox.Len())
}

// Dispose marks the mailbox closed. the ring buffer itself is left intact so the
// owner can still drain what was accepted before disposal.
func (m *queueMailbox) Dispose() {
	m.mu.Lock()
	m.disposed = true
	m.mu.Unlock()
}

func (m *queueMailbox) Disposed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.disposed
}
