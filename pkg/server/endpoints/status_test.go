package endpoints

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleStatus(t *testing.T) {
	t.Run("database reachable", func(t *testing.T) {
		srv := newTestServer(&mockAuditor{}, &mockPresence{}, mockHealth{}, "")

		w := doRequest(srv, http.MethodGet, "/status", "", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})

	t.Run("database unreachable", func(t *testing.T) {
		srv := newTestServer(&mockAuditor{}, &mockPresence{}, mockHealth{err: errStoreDown}, "")

		w := doRequest(srv, http.MethodGet, "/status", "", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"status":"error","error":"database connectivity check failed"}`, w.Body.String())
	})
}
