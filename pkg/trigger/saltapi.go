package trigger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"go.uber.org/zap"

	"github.com/saltinventory/minion-inventory/pkg/inventory"
)

var _ inventory.AuditTrigger = (*SaltAPI)(nil)

const (
	defaultAttempts = 3
	defaultDelay    = 1 * time.Second
	defaultMaxDelay = 10 * time.Second
)

// SaltAPIConfig holds the salt-api endpoint and credentials
type SaltAPIConfig struct {
	URL      string
	Username string
	Password string
	Eauth    string

	Attempts int
	Delay    time.Duration
	MaxDelay time.Duration

	// Client defaults to an http.Client without a timeout; calls are bounded by their context
	Client *http.Client
}

// SaltAPI triggers audits through the salt-api REST interface
type SaltAPI struct {
	cfg    SaltAPIConfig
	client *http.Client
	logger *zap.Logger
}

type runRequest struct {
	Client   string                 `json:"client"`
	Target   string                 `json:"tgt"`
	Function string                 `json:"fun"`
	Kwarg    map[string]interface{} `json:"kwarg"`
	Username string                 `json:"username,omitempty"`
	Password string                 `json:"password,omitempty"`
	Eauth    string                 `json:"eauth,omitempty"`
}

type runResponse struct {
	Return []struct {
		JID     string   `json:"jid"`
		Minions []string `json:"minions"`
	} `json:"return"`
}

func NewSaltAPI(cfg SaltAPIConfig, logger *zap.Logger) *SaltAPI {
	if cfg.Attempts < 1 {
		cfg.Attempts = defaultAttempts
	}
	if cfg.Delay <= 0 {
		cfg.Delay = defaultDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")

	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaltAPI{cfg: cfg, client: client, logger: logger}
}

// TriggerAudit publishes an asynchronous forced audit job for the minion
func (s *SaltAPI) TriggerAudit(ctx context.Context, minionID string) error {
	if err := validateMinionID(minionID); err != nil {
		return err
	}

	payload, err := json.Marshal([]runRequest{{
		Client:   "local_async",
		Target:   minionID,
		Function: AuditFunction,
		Kwarg:    map[string]interface{}{"force": true},
		Username: s.cfg.Username,
		Password: s.cfg.Password,
		Eauth:    s.cfg.Eauth,
	}})
	if err != nil {
		return err
	}

	attempt := 0
	return retry.Do(func() error {
		attempt++
		jid, err := s.post(ctx, payload)
		if err != nil {
			s.logger.Debug("salt-api call failed",
				zap.String("minionID", minionID),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		s.logger.Debug("audit job published", zap.String("minionID", minionID), zap.String("jid", jid))
		return nil
	},
		retry.Attempts(uint(s.cfg.Attempts)),
		retry.Delay(s.cfg.Delay),
		retry.MaxDelay(s.cfg.MaxDelay),
		retry.Context(ctx),
	)
}

func (s *SaltAPI) post(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL+"/run", bytes.NewReader(payload))
	if err != nil {
		return "", retry.Unrecoverable(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("salt-api request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read salt-api response: %w", err)
	}

	switch {
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("salt-api returned %d: %s", resp.StatusCode, snippet(body))
	case resp.StatusCode >= 300:
		return "", retry.Unrecoverable(fmt.Errorf("salt-api returned %d: %s", resp.StatusCode, snippet(body)))
	}

	var out runResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", retry.Unrecoverable(fmt.Errorf("unexpected salt-api response: %w", err))
	}
	if len(out.Return) == 0 || out.Return[0].JID == "" {
		return "", retry.Unrecoverable(fmt.Errorf("salt-api published no job: %s", snippet(body)))
	}
	if len(out.Return[0].Minions) == 0 {
		return "", retry.Unrecoverable(fmt.Errorf("no connected minion matched job %s", out.Return[0].JID))
	}
	return out.Return[0].JID, nil
}

func snippet(b []byte) string {
	const max = 200
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
