package actor

import (
	"github.com/hedisam/poolsup/message"
	"github.com/hedisam/poolsup/sysmsg"
)

func (p *process) watch(target *PID) {
	if target == nil || target == p.self || p.watching.Contains(target) {
		return
	}
	p.watching.Add(target)
	if err := sendSystemMessage(target, sysmsg.Watch{Watcher: p.self}); err != nil {
		// the target's mailbox is disposed, it's gone already
		_ = sendSystemMessage(p.self, sysmsg.Terminated{Who: target, Reason: message.ReasonNotAlive})
	}
}

func (p *process) unwatch(target *PID) {
	if target == nil || !p.watching.Contains(target) {
		return
	}
	p.watching.Remove(target)
	_ = sendSystemMessage(target, sysmsg.Watch{Watcher: p.self, Revert: true})
}

// handleTerminated does the runtime bookkeeping for a terminated process and
// delivers Terminated to the actor if it was watching it. the watching set
// makes the delivery happen at most once.
func (p *process) handleTerminated(msg sysmsg.Terminated) {
	if p.children.Contains(msg.Who) {
		p.children.Remove(msg.Who)
		p.tracker.Forget(msg.Who.ID())
		if p.escalated == msg.Who {
			p.escalated = nil
		}
	}
	if !p.watching.Contains(msg.Who) {
		return
	}
	if p.isSuspended() {
		p.stash = append(p.stash, msg)
		return
	}

	p.watching.Remove(msg.Who)
	p.handleUserMessage(envelope{
		sender:  msg.Who,
		message: message.Terminated{Who: msg.Who, Reason: msg.Reason},
	})
}

// drainLateWatchers handles the watch requests that got in right before the
// mailbox was disposed
func (p *process) drainLateWatchers() {
	for {
		msg, ok := p.mailbox.PopSystem()
		if !ok {
			return
		}
		if watch, ok := msg.(sysmsg.Watch); ok {
			if watch.Revert {
				p.watchers.Remove(watch.Watcher)
				continue
			}
			p.watchers.Add(watch.Watcher)
		}
	}
}

// notifyWatchers tells every watcher, and the parent, that this process is gone
func (p *process) notifyWatchers() {
	notice := sysmsg.Terminated{Who: p.self, Reason: p.stopReason}
	for _, watcher := range p.watchers.ToSlice() {
		_ = sendSystemMessage(watcher, notice)
	}
	if p.parent != nil && !p.watchers.Contains(p.parent) {
		_ = sendSystemMessage(p.parent, notice)
	}
}
