package eventlog

import (
	"context"

	"github.com/saltinventory/minion-inventory/pkg/inventory"
)

type Auditor interface {
	Audit(ctx context.Context, ts string, props inventory.Properties, changed bool) inventory.AuditReport
}

type PresenceRecorder interface {
	Present(ctx context.Context, ts string, minions []string) inventory.PresenceReport
}

type auditor struct {
	next Auditor
	log  *Logger
}

// WrapAuditor logs an AuditEvent for every report applied through next
func WrapAuditor(next Auditor, log *Logger) Auditor {
	return &auditor{next: next, log: log}
}

func (a *auditor) Audit(ctx context.Context, ts string, props inventory.Properties, changed bool) inventory.AuditReport {
	report := a.next.Audit(ctx, ts, props, changed)
	a.log.Log(AuditEvent{Report: report})
	return report
}

type presence struct {
	next PresenceRecorder
	log  *Logger
}

// WrapPresence logs a PresenceEvent for every signal applied through next
func WrapPresence(next PresenceRecorder, log *Logger) PresenceRecorder {
	return &presence{next: next, log: log}
}

func (p *presence) Present(ctx context.Context, ts string, minions []string) inventory.PresenceReport {
	report := p.next.Present(ctx, ts, minions)
	p.log.Log(PresenceEvent{Minions: minions, Report: report})
	return report
}
