// Package trigger asks remote minions to run a forced inventory audit.
//
// Two implementations of inventory.AuditTrigger are provided and one is
// chosen at start-up by New:
//
//   - SaltAPI posts a local_async job to the salt-api /run endpoint
//   - Shell runs `salt <minion> inventory.audit force=True`
//
// Neither waits for the audit itself; its result comes back as a regular
// audit report.
package trigger
