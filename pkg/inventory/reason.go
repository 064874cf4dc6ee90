package inventory

//go:generate go tool enumer -type Reason -trimprefix Reason -transform snake -json -output reason.gen.go

// Reason classifies the result of an audit or presence call so that the
// caller can decide between retrying and dropping the report.
type Reason int

const (
	ReasonOK Reason = iota
	// ReasonMalformedInput means the report itself is unusable; retrying will not help.
	ReasonMalformedInput
	// ReasonQueryFailed means a statement was rejected by the store.
	ReasonQueryFailed
	// ReasonConnectionFailed means the store could not be reached.
	ReasonConnectionFailed
	// ReasonTimeout means a store round-trip or the whole call ran out of time.
	ReasonTimeout
	// ReasonRemoteInvocationFailed means a remote audit could not be triggered.
	ReasonRemoteInvocationFailed
)
