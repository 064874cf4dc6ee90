// Package eventlog writes a change trail of the inventory in RFC5424 syslog
// format.
//
// Every applied audit report and presence signal produces one line carrying
// the minion, the action taken, the per-set counts and the reason code, so
// that changes to the inventory can be followed by log tooling without
// querying the database.
//
// # Usage
//
//	trail := eventlog.NewLogger(os.Stdout)
//	auditor := eventlog.WrapAuditor(reconciler, trail)
package eventlog
