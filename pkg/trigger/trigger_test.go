package trigger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saltinventory/minion-inventory/pkg/config"
)

func testSaltAPI(url string) *SaltAPI {
	return NewSaltAPI(SaltAPIConfig{
		URL:      url,
		Username: "inventory",
		Password: "secret",
		Eauth:    "pam",
		Attempts: 3,
		Delay:    time.Millisecond,
		MaxDelay: 5 * time.Millisecond,
	}, nil)
}

func TestSaltAPITriggerAudit(t *testing.T) {
	var got []runRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/run", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"return":[{"jid":"20240501100000123456","minions":["web01"]}]}`))
	}))
	defer server.Close()

	err := testSaltAPI(server.URL+"/").TriggerAudit(context.Background(), "web01")
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "local_async", got[0].Client)
	assert.Equal(t, "web01", got[0].Target)
	assert.Equal(t, AuditFunction, got[0].Function)
	assert.Equal(t, true, got[0].Kwarg["force"])
	assert.Equal(t, "pam", got[0].Eauth)
}

func TestSaltAPIRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "master busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"return":[{"jid":"1","minions":["web01"]}]}`))
	}))
	defer server.Close()

	require.NoError(t, testSaltAPI(server.URL).TriggerAudit(context.Background(), "web01"))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSaltAPIGivesUpAfterAttempts(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	err := testSaltAPI(server.URL).TriggerAudit(context.Background(), "web01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSaltAPIDoesNotRetryClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"status": 401}`},
		{"no job", http.StatusOK, `{"return":[{}]}`},
		{"no minions", http.StatusOK, `{"return":[{"jid":"1","minions":[]}]}`},
		{"not json", http.StatusOK, `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := testSaltAPI(server.URL).TriggerAudit(context.Background(), "web01")
			assert.Error(t, err)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
		})
	}
}

func TestSaltAPIRejectsInvalidMinionID(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	err := testSaltAPI(server.URL).TriggerAudit(context.Background(), "-E")
	assert.ErrorIs(t, err, ErrInvalidMinionID)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestValidateMinionID(t *testing.T) {
	for _, ok := range []string{"web01", "web01.example.com", "db_1-a"} {
		assert.NoError(t, validateMinionID(ok), ok)
	}
	for _, bad := range []string{"", "-L", "--async", "web 01", "web01\n", "a\tb"} {
		assert.ErrorIs(t, validateMinionID(bad), ErrInvalidMinionID, bad)
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "salt")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestShellTriggerAudit(t *testing.T) {
	out := filepath.Join(t.TempDir(), "args")
	script := writeScript(t, `printf '%s|' "$@" > `+out)

	err := NewShell(script, nil).TriggerAudit(context.Background(), "web01; rm -rf /")
	assert.ErrorIs(t, err, ErrInvalidMinionID)

	require.NoError(t, NewShell(script, nil).TriggerAudit(context.Background(), "web01"))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "web01|inventory.audit|force=True|", string(data))
}

func TestShellTriggerFailure(t *testing.T) {
	script := writeScript(t, `echo "Minion did not return. [No response]"; exit 1`)

	err := NewShell(script, nil).TriggerAudit(context.Background(), "web01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No response")
}

func TestShellTriggerTimeout(t *testing.T) {
	script := writeScript(t, `exec sleep 5`)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := NewShell(script, nil).TriggerAudit(ctx, "web01")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewSelectsTrigger(t *testing.T) {
	cfg := config.NewDefault()

	trig, err := New(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &Shell{}, trig)

	cfg.SaltAPIURL = "https://salt.example.com:8000"
	trig, err = New(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &SaltAPI{}, trig)

	cfg.TriggerMode = config.TriggerShell
	trig, err = New(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &Shell{}, trig)

	cfg.TriggerMode = config.TriggerSaltAPI
	cfg.SaltAPIURL = ""
	_, err = New(cfg, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	cfg.TriggerMode = "pigeon"
	_, err = New(cfg, nil)
	assert.True(t, strings.Contains(err.Error(), "pigeon"))
}
