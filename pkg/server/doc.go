// Package server holds the HTTP server that exposes the audit and presence
// operations to Salt returners and reactors. Endpoints are registered by the
// endpoints package.
package server
