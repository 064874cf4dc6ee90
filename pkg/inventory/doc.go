// Package inventory reconciles minion reports into the inventory store.
//
// # Audits
//
// Reconciler.Audit takes the attribute snapshot a minion sends with its
// audit. A known minion that reports no change only has last_audit
// refreshed. Otherwise the minion row is written and three set passes bring
// the package, interface (with IPv4 addresses) and GPU associations in line
// with the snapshot, followed by a recount of package_total.
//
// # Set Passes
//
// Every pass uses the same mark/sweep routine inside a single transaction:
//
//  1. delete rows an interrupted earlier pass left unmarked
//  2. unmark every row of the minion
//  3. mark each reported item, one savepoint per item
//  4. delete the rows that are still unmarked
//
// Catalog rows (package names, interface names, GPU models) are shared
// between minions and never deleted.
//
// # Presence
//
// PresenceTracker.Present refreshes last_seen for known minions and asks
// unknown ones, through an AuditTrigger, to run a full audit.
//
// # Results
//
// Neither entry point returns an error. Both return a report embedding an
// Outcome whose Reason tells the caller whether a retry makes sense.
package inventory
