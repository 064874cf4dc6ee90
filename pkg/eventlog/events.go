package eventlog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/saltinventory/minion-inventory/pkg/inventory"
)

// AuditEvent records the result of one audit report
type AuditEvent struct {
	Report inventory.AuditReport
}

func (e AuditEvent) MessageID() string {
	return "audit"
}

func (e AuditEvent) Message() string {
	r := e.Report
	if !r.OK() {
		return fmt.Sprintf("audit of minion %d failed: %s", r.ServerID, r.Message())
	}
	switch r.Action {
	case inventory.ActionTouched:
		return fmt.Sprintf("minion %d reported no change", r.ServerID)
	default:
		parts := make([]string, 0, len(r.Sets))
		for _, s := range r.Sets {
			parts = append(parts, fmt.Sprintf("%s +%d -%d", s.Set, s.Marked, s.Swept))
		}
		msg := fmt.Sprintf("minion %d %s", r.ServerID, r.Action)
		if len(parts) > 0 {
			msg += " (" + strings.Join(parts, ", ") + ")"
		}
		return msg
	}
}

func (e AuditEvent) Severity() Severity {
	switch {
	case e.Report.OK():
		return SeverityInfo
	case e.Report.Reason == inventory.ReasonMalformedInput:
		return SeverityWarning
	default:
		return SeverityError
	}
}

func (e AuditEvent) StructuredData() map[string]map[string]string {
	r := e.Report
	sd := map[string]map[string]string{
		SDIDMinion: {
			"server_id": strconv.FormatInt(r.ServerID, 10),
		},
		SDIDOutcome: {
			"reason": r.Reason.String(),
		},
	}
	if r.Action != "" {
		sd[SDIDMinion]["action"] = r.Action
	}
	if r.Action != inventory.ActionTouched && r.OK() {
		sd[SDIDMinion]["package_total"] = strconv.FormatInt(r.PackageTotal, 10)
	}
	for _, s := range r.Sets {
		// one element per SD-ID is allowed, so sets are folded into parameters
		if sd[SDIDSet] == nil {
			sd[SDIDSet] = map[string]string{}
		}
		sd[SDIDSet][s.Set+"_marked"] = strconv.Itoa(s.Marked)
		sd[SDIDSet][s.Set+"_swept"] = strconv.FormatInt(s.Swept, 10)
		if s.Skipped > 0 {
			sd[SDIDSet][s.Set+"_skipped"] = strconv.Itoa(s.Skipped)
		}
	}
	return sd
}

// PresenceEvent records the result of one presence signal
type PresenceEvent struct {
	Minions []string
	Report  inventory.PresenceReport
}

func (e PresenceEvent) MessageID() string {
	return "present"
}

func (e PresenceEvent) Message() string {
	r := e.Report
	if !r.OK() {
		return fmt.Sprintf("presence of %d minion(s) not recorded: %s", len(e.Minions), r.Message())
	}
	return fmt.Sprintf("%d minion(s) seen, %d audit(s) triggered, %d failed", r.Seen, r.Triggered, r.Failed)
}

func (e PresenceEvent) Severity() Severity {
	switch {
	case !e.Report.OK():
		return SeverityWarning
	case e.Report.Failed > 0:
		return SeverityNotice
	default:
		return SeverityInfo
	}
}

func (e PresenceEvent) StructuredData() map[string]map[string]string {
	r := e.Report
	return map[string]map[string]string{
		SDIDPresence: {
			"reported":  strconv.Itoa(len(e.Minions)),
			"seen":      strconv.Itoa(r.Seen),
			"triggered": strconv.Itoa(r.Triggered),
			"failed":    strconv.Itoa(r.Failed),
		},
		SDIDOutcome: {
			"reason": r.Reason.String(),
		},
	}
}
