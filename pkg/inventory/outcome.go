package inventory

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrMalformedInput marks reports, or parts of reports, that cannot be reconciled as sent
var ErrMalformedInput = errors.New("malformed input")

// Outcome is the structured result of an audit or presence call
type Outcome struct {
	Reason Reason `json:"reason"`
	Err    error  `json:"-"`
}

// OK reports whether the call fully succeeded
func (o Outcome) OK() bool {
	return o.Reason == ReasonOK
}

// Retryable reports whether delivering the same report again may succeed
func (o Outcome) Retryable() bool {
	return o.Reason == ReasonConnectionFailed || o.Reason == ReasonTimeout
}

// Message returns the error text, or an empty string on success
func (o Outcome) Message() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

func failed(err error) Outcome {
	return Outcome{Reason: Classify(err), Err: err}
}

// Classify maps an error returned by the store or the core onto a Reason
func Classify(err error) Reason {
	if err == nil {
		return ReasonOK
	}

	switch {
	case errors.Is(err, ErrMalformedInput):
		return ReasonMalformedInput
	case errors.Is(err, context.Canceled):
		// the caller went away before the report was applied
		return ReasonConnectionFailed
	case errors.Is(err, context.DeadlineExceeded), pgconn.Timeout(err):
		return ReasonTimeout
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone):
		return ReasonConnectionFailed
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return ReasonConnectionFailed
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ReasonTimeout
		}
		return ReasonConnectionFailed
	}

	return ReasonQueryFailed
}
