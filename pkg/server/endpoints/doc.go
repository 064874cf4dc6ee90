// Package endpoints registers the HTTP handlers of the inventory service.
//
//	POST /audit    apply an audit report    {timestamp, properties, changed}
//	POST /present  record a presence signal {timestamp, minions}
//	GET  /status   database connectivity
//
// Every report response carries a reason. 200 means ok, 422 means the report
// is malformed and must not be redelivered, 503 means the store was
// unreachable or timed out and the report may be redelivered, and 500 covers
// rejected statements and failed remote audits.
package endpoints
