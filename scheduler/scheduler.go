// Package scheduler sends delayed and periodic messages to processes.
package scheduler

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/xid"
	"go.uber.org/atomic"

	"github.com/hedisam/poolsup/internal/mailbox"
	"github.com/hedisam/poolsup/internal/pid"
	"github.com/hedisam/poolsup/log"
)

// Deliver hands a fired payload to the target's mailbox
type Deliver func(target *pid.PID, payload interface{}) error

// Scheduler fires payloads on its own timers. it's safe for concurrent use.
type Scheduler struct {
	deliver Deliver
	logger  log.Logger
}

func New(deliver Deliver, logger log.Logger) *Scheduler {
	if logger == nil {
		logger = log.DiscardLogger
	}
	return &Scheduler{
		deliver: deliver,
		logger:  logger,
	}
}

// Token identifies a scheduled task
type Token struct {
	id        string
	periodic  bool
	cancelled *atomic.Bool
	fired     *atomic.Bool
	timer     *time.Timer
	stop      chan struct{}
	once      sync.Once
}

func newToken(periodic bool) *Token {
	return &Token{
		id:        xid.New().String(),
		periodic:  periodic,
		cancelled: atomic.NewBool(false),
		fired:     atomic.NewBool(false),
		stop:      make(chan struct{}),
	}
}

func (t *Token) ID() string {
	return t.id
}

func (t *Token) Periodic() bool {
	return t.periodic
}

// Cancel stops future firings. It is idempotent and a no-op for a fired one-shot.
// a message that was already delivered is not recalled.
func (t *Token) Cancel() {
	t.once.Do(func() {
		t.cancelled.Store(true)
		if t.timer != nil {
			t.timer.Stop()
		}
		close(t.stop)
	})
}

func (t *Token) Cancelled() bool {
	return t.cancelled.Load()
}

// Done reports whether the task will never fire again
func (t *Token) Done() bool {
	return t.cancelled.Load() || (!t.periodic && t.fired.Load())
}

// ScheduleOnce delivers payload to target once after delay
func (s *Scheduler) ScheduleOnce(delay time.Duration, target *pid.PID, payload interface{}) *Token {
	token := newToken(false)
	token.timer = time.AfterFunc(delay, func() {
		if token.cancelled.Load() {
			return
		}
		token.fired.Store(true)
		s.fire(token, target, payload)
	})
	return token
}

// ScheduleEvery delivers payload to target after delay and then every interval
// until the token is cancelled or the target is gone
func (s *Scheduler) ScheduleEvery(delay, interval time.Duration, target *pid.PID, payload interface{}) *Token {
	token := newToken(true)
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-token.stop:
			return
		}
		if !s.fire(token, target, payload) {
			token.Cancel()
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if !s.fire(token, target, payload) {
					token.Cancel()
					return
				}
			case <-token.stop:
				return
			}
		}
	}()
	return token
}

// fire reports whether the task should keep running
func (s *Scheduler) fire(token *Token, target *pid.PID, payload interface{}) bool {
	if token.cancelled.Load() {
		return false
	}
	err := s.deliver(target, payload)
	if errors.Is(err, mailbox.ErrDisposed) {
		s.logger.Debugf("scheduled message %s dropped, target %s is gone", token.id, target)
		return false
	}
	if err != nil {
		s.logger.Warnf("failed to deliver scheduled message %s to %s: %v", token.id, target, err)
	}
	return true
}
