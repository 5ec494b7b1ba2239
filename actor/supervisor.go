package actor

import (
	"github.com/hedisam/poolsup/message"
	"github.com/hedisam/poolsup/supervision"
	"github.com/hedisam/poolsup/sysmsg"
)

// fail suspends the process and reports the failure to its parent. root
// processes are supervised by the system guardian.
func (p *process) fail(err error, msgName string) {
	failure := &supervision.RecoverableFailure{
		ProcessID: p.self.ID(),
		Message:   msgName,
		Err:       err,
	}
	p.logger.Warnf("%v", failure)
	p.state.Store(stateSuspended)

	if p.parent == nil {
		p.superviseRoot(failure)
		return
	}
	report := sysmsg.Failure{Who: p.self, Err: failure, Message: msgName}
	if err := sendSystemMessage(p.parent, report); err != nil {
		p.logger.Warnf("parent is gone, stopping: %v", err)
		p.requestStop(message.ReasonShutdown)
	}
}

// superviseRoot decides with the guardian policy. the directive goes through
// the mailbox so a failing restart can't recurse.
func (p *process) superviseRoot(failure error) {
	directive, forced := p.system.decideRoot(p.self, failure)
	if forced {
		p.logger.Warnf("%v, stopping", supervision.ErrRetriesExhausted)
	}
	if directive == supervision.Escalate {
		p.system.fatal(p.system, failure)
		directive = supervision.Stop
	}
	if err := sendSystemMessage(p.self, sysmsg.Directive{Directive: directive}); err != nil {
		p.requestStop(message.ReasonSupervisor)
	}
}

// handleChildFailure applies this process' policy to a failed child
func (p *process) handleChildFailure(msg sysmsg.Failure) {
	if !p.children.Contains(msg.Who) {
		p.logger.Debugf("ignoring failure of %s, not a child", msg.Who)
		return
	}

	directive, forced := p.tracker.Decide(msg.Who.ID(), msg.Err)
	if forced {
		p.logger.Warnf("child %s: %v, stopping it", msg.Who, supervision.ErrRetriesExhausted)
	}
	p.logger.Infof("child %s failed (retries %d), directive: %s", msg.Who, p.tracker.Count(msg.Who.ID()), directive)

	if directive == supervision.Escalate {
		p.escalated = msg.Who
		p.fail(&supervision.EscalatedFailure{ChildID: msg.Who.ID(), Err: msg.Err}, "")
		return
	}
	if err := sendSystemMessage(msg.Who, sysmsg.Directive{Directive: directive}); err != nil {
		p.logger.Debugf("could not deliver directive to %s: %v", msg.Who, err)
	}
}

// applyDirective acts on the parent's decision about this process' failure
func (p *process) applyDirective(directive supervision.Directive) {
	if !p.isSuspended() {
		p.logger.Debugf("ignoring directive %s, not suspended", directive)
		return
	}

	switch directive {
	case supervision.Resume:
		p.state.Store(stateRunning)
		p.resumeEscalated()
	case supervision.Restart:
		p.restart()
	case supervision.Stop:
		p.requestStop(message.ReasonSupervisor)
		return
	default:
		p.logger.Errorf("unexpected directive %s, stopping", directive)
		p.requestStop(message.ReasonSupervisor)
		return
	}
	p.unstash()
}

// restart discards the actor state and runs the start-up logic again. the
// handle and the queued messages are kept.
func (p *process) restart() {
	p.logger.Infof("restarting")
	p.timers.CancelAll()
	for _, target := range p.watching.ToSlice() {
		p.unwatch(target)
	}
	for _, child := range p.children.ToSlice() {
		_ = sendSystemMessage(child, sysmsg.Stop{Reason: message.ReasonShutdown})
	}
	p.escalated = nil

	p.state.Store(stateRunning)
	p.start()
}

// resumeEscalated lets the child whose failure was escalated carry on
func (p *process) resumeEscalated() {
	if p.escalated == nil {
		return
	}
	_ = sendSystemMessage(p.escalated, sysmsg.Directive{Directive: supervision.Resume})
	p.escalated = nil
}

func (p *process) unstash() {
	stash := p.stash
	p.stash = nil
	for i, msg := range stash {
		if p.stopRequested {
			return
		}
		if p.isSuspended() {
			p.stash = append(p.stash, stash[i:]...)
			return
		}
		p.handleSystemMessage(msg)
	}
}
