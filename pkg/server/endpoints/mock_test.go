package endpoints

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/saltinventory/minion-inventory/pkg/inventory"
	"github.com/saltinventory/minion-inventory/pkg/server"
)

type mockAuditor struct {
	mu      sync.Mutex
	calls   []AuditRequest
	respond func(AuditRequest) inventory.AuditReport
}

func (m *mockAuditor) Audit(ctx context.Context, ts string, props inventory.Properties, changed bool) inventory.AuditReport {
	req := AuditRequest{Timestamp: ts, Properties: props, Changed: changed}
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	if m.respond == nil {
		report := inventory.AuditReport{Action: inventory.ActionTouched}
		if props.ServerID != nil {
			report.ServerID = *props.ServerID
		}
		return report
	}
	return m.respond(req)
}

type mockPresence struct {
	calls   []PresenceRequest
	respond func(PresenceRequest) inventory.PresenceReport
}

func (m *mockPresence) Present(ctx context.Context, ts string, minions []string) inventory.PresenceReport {
	req := PresenceRequest{Timestamp: ts, Minions: minions}
	m.calls = append(m.calls, req)
	if m.respond == nil {
		return inventory.PresenceReport{Seen: len(minions)}
	}
	return m.respond(req)
}

type mockHealth struct {
	err error
}

func (m mockHealth) Ping(ctx context.Context) error {
	return m.err
}

var errStoreDown = errors.New("dial tcp 10.0.0.5:5432: connect: connection refused")

func newTestServer(auditor *mockAuditor, presence *mockPresence, health mockHealth, secret string) *server.Server {
	srv := server.NewServer(auditor, presence, health, nil, server.Options{
		Host:        "127.0.0.1",
		Port:        "0",
		TokenSecret: secret,
	})
	RegisterAll(srv)
	return srv
}

func doRequest(srv *server.Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}
