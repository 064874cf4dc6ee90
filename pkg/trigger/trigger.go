package trigger

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/saltinventory/minion-inventory/pkg/config"
	"github.com/saltinventory/minion-inventory/pkg/inventory"
)

// ErrInvalidMinionID is returned for identifiers that cannot be passed to Salt safely
var ErrInvalidMinionID = errors.New("invalid minion id")

// AuditFunction is the Salt execution module function that runs a minion audit
const AuditFunction = "inventory.audit"

// New returns the trigger selected by the configuration. In auto mode the
// salt-api is used when a URL is configured and the salt CLI otherwise.
func New(cfg *config.InventoryConfig, logger *zap.Logger) (inventory.AuditTrigger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	mode := cfg.TriggerMode
	if mode == config.TriggerAuto || mode == "" {
		mode = config.TriggerShell
		if cfg.SaltAPIURL != "" {
			mode = config.TriggerSaltAPI
		}
	}

	switch mode {
	case config.TriggerSaltAPI:
		if cfg.SaltAPIURL == "" {
			return nil, fmt.Errorf("%w: salt_api_url is required for trigger_mode %s", config.ErrInvalidConfig, mode)
		}
		logger.Info("triggering audits through salt-api", zap.String("url", cfg.SaltAPIURL))
		return NewSaltAPI(SaltAPIConfig{
			URL:      cfg.SaltAPIURL,
			Username: cfg.SaltAPIUsername,
			Password: cfg.SaltAPIPassword,
			Eauth:    cfg.SaltAPIEauth,
			Attempts: cfg.TriggerAttempts,
		}, logger), nil
	case config.TriggerShell:
		logger.Info("triggering audits through the salt command", zap.String("command", cfg.SaltCommand))
		return NewShell(cfg.SaltCommand, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown trigger_mode %q", config.ErrInvalidConfig, cfg.TriggerMode)
	}
}

// validateMinionID rejects identifiers that Salt would read as an option or
// that cannot be a minion id at all
func validateMinionID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidMinionID)
	}
	if strings.HasPrefix(id, "-") {
		return fmt.Errorf("%w: %q starts with '-'", ErrInvalidMinionID, id)
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%w: %q contains whitespace or control characters", ErrInvalidMinionID, id)
		}
	}
	return nil
}
