// Package router balances work over a changing set of routees.
package router

import (
	"errors"

	"github.com/hedisam/poolsup/internal/pid"
	"github.com/hedisam/poolsup/message"
)

var ErrNoRouteesAvailable = errors.New("no routees available")

// Sender delivers a message to a process
type Sender interface {
	Send(to *pid.PID, msg interface{}) error
}

// RoundRobin hands each message to the next routee in order, wrapping around.
// It is owned by a single process and does no locking.
type RoundRobin struct {
	routees []*pid.PID
	cursor  int
}

func NewRoundRobin(routees ...*pid.PID) *RoundRobin {
	r := &RoundRobin{}
	for _, routee := range routees {
		r.Add(routee)
	}
	return r
}

// Route delivers msg to the routee under the cursor and advances it
func (r *RoundRobin) Route(sender Sender, msg message.Message) (*pid.PID, error) {
	if len(r.routees) == 0 {
		return nil, ErrNoRouteesAvailable
	}
	routee := r.routees[r.cursor]
	r.cursor = (r.cursor + 1) % len(r.routees)
	return routee, sender.Send(routee, msg)
}

// Broadcast delivers msg once to every routee and returns the number of
// successful deliveries
func (r *RoundRobin) Broadcast(sender Sender, msg message.Message) int {
	delivered := 0
	for _, routee := range r.routees {
		if sender.Send(routee, msg) == nil {
			delivered++
		}
	}
	return delivered
}

// Add appends routee, the order of existing routees is kept
func (r *RoundRobin) Add(routee *pid.PID) {
	if routee == nil || r.Contains(routee) {
		return
	}
	r.routees = append(r.routees, routee)
}

// InsertAt puts routee at index i, shifting the rest. i is clamped to the valid range.
func (r *RoundRobin) InsertAt(i int, routee *pid.PID) {
	if routee == nil || r.Contains(routee) {
		return
	}
	if i < 0 {
		i = 0
	}
	if i >= len(r.routees) {
		r.routees = append(r.routees, routee)
		return
	}
	r.routees = append(r.routees, nil)
	copy(r.routees[i+1:], r.routees[i:])
	r.routees[i] = routee
	if i < r.cursor {
		r.cursor++
	}
}

// Remove drops routee and returns its former index, -1 if it wasn't routed to.
// the cursor keeps pointing at the same live routee when possible.
func (r *RoundRobin) Remove(routee *pid.PID) int {
	idx := r.IndexOf(routee)
	if idx < 0 {
		return -1
	}
	r.routees = append(r.routees[:idx], r.routees[idx+1:]...)
	if idx < r.cursor {
		r.cursor--
	}
	if len(r.routees) == 0 {
		r.cursor = 0
	} else {
		r.cursor %= len(r.routees)
	}
	return idx
}

func (r *RoundRobin) IndexOf(routee *pid.PID) int {
	for i, candidate := range r.routees {
		if candidate.Equals(routee) {
			return i
		}
	}
	return -1
}

func (r *RoundRobin) Contains(routee *pid.PID) bool {
	return r.IndexOf(routee) >= 0
}

// Routees returns a copy of the current routees in routing order
func (r *RoundRobin) Routees() []*pid.PID {
	out := make([]*pid.PID, len(r.routees))
	copy(out, r.routees)
	return out
}

func (r *RoundRobin) Len() int {
	return len(r.routees)
}
