// Package spool ingests reports that a Salt reactor drops into a directory
// instead of posting them over HTTP.
//
// Each report is one JSON envelope in a file ending in ".json":
//
//	{"type": "audit", "timestamp": "...", "changed": true, "properties": {...}}
//	{"type": "present", "timestamp": "...", "minions": ["web01", "db01"]}
//
// Writers must create the file under another name and rename it into place.
// A file is deleted once applied. Malformed reports and reports rejected by
// the store are moved to the "failed" subdirectory. Reports that failed for a
// retryable reason stay in place and the directory is rescanned with
// exponential back-off.
package spool
