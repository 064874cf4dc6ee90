package trigger

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/saltinventory/minion-inventory/pkg/inventory"
)

var _ inventory.AuditTrigger = (*Shell)(nil)

// waitDelay bounds how long output pipes held by children of a killed salt
// process may keep TriggerAudit waiting
const waitDelay = 2 * time.Second

// Shell triggers audits by running the salt command line client. The
// minion id is passed as its own argument, never through a shell.
type Shell struct {
	command string
	logger  *zap.Logger
}

func NewShell(command string, logger *zap.Logger) *Shell {
	if command == "" {
		command = "salt"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Shell{command: command, logger: logger}
}

// TriggerAudit runs the audit job and waits for the salt client to exit
func (s *Shell) TriggerAudit(ctx context.Context, minionID string) error {
	if err := validateMinionID(minionID); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, s.command, minionID, AuditFunction, "force=True")
	cmd.WaitDelay = waitDelay
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s %s: %w", s.command, AuditFunction, ctx.Err())
		}
		return fmt.Errorf("%s %s failed: %w: %s", s.command, AuditFunction, err, snippet(out))
	}
	s.logger.Debug("salt command finished", zap.String("minionID", minionID), zap.ByteString("output", out))
	return nil
}
