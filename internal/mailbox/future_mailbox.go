package mailbox

import "sync"

// FutureMailbox holds a single reply. used by ask requests.
type FutureMailbox struct {
	m        chan interface{}
	signal   chan struct{}
	once     sync.Once
	mu       sync.RWMutex
	disposed bool
}

var _ Mailbox = (*FutureMailbox)(nil)

func NewFutureMailbox() *FutureMailbox {
	return &FutureMailbox{
		m:      make(chan interface{}, 1),
		signal: make(chan struct{}, 1),
	}
}

// Push keeps the first message only, later ones are dropped
func (f *FutureMailbox) Push(message interface{}) error {
	if message == nil {
		return ErrNil
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.disposed {
		return ErrDisposed
	}
	select {
	case f.m <- message:
		notify(f.signal)
		return nil
	default:
		return ErrFull
	}
}

func (f *FutureMailbox) PushSystem(message interface{}) error {
	return f.Push(message)
}

func (f *FutureMailbox) Pop() (interface{}, bool) {
	select {
	case msg := <-f.m:
		return msg, true
	default:
		return nil, false
	}
}

func (f *FutureMailbox) PopSystem() (interface{}, bool) {
	return nil, false
}

func (f *FutureMailbox) Signal() <-chan struct{} {
	return f.signal
}

func (f *FutureMailbox) Len() int {
	return len(f.m)
}

func (f *FutureMailbox) Dispose() {
	f.once.Do(func() {
		f.mu.Lock()
		f.disposed = true
		f.mu.Unlock()
	})
}

func (f *FutureMailbox) Disposed() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.disposed
}
