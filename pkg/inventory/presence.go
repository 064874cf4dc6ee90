package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/saltinventory/minion-inventory/pkg/store"
)

// DefaultTriggerTimeout bounds one remote audit trigger when none is configured
const DefaultTriggerTimeout = 30 * time.Second

// AuditTrigger asks a remote minion to run a forced full audit. The audit
// itself reports back asynchronously through Reconciler.Audit.
type AuditTrigger interface {
	TriggerAudit(ctx context.Context, minionID string) error
}

// PresenceReport describes what a presence call did
type PresenceReport struct {
	Outcome
	// Seen counts known minions whose last_seen was updated
	Seen int `json:"seen"`
	// Triggered counts remote audits dispatched for unknown minions
	Triggered int `json:"triggered"`
	// Failed counts identifiers that could not be processed
	Failed int `json:"failed"`
}

// PresenceTracker records liveness signals and triggers audits of minions
// that have never been audited.
type PresenceTracker struct {
	store   store.MinionStore
	trigger AuditTrigger
	logger  *zap.Logger
	timeout time.Duration

	// ctx outlives individual Present calls; Close cancels it
	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{}
}

// PresenceOption configures a PresenceTracker
type PresenceOption func(*PresenceTracker)

// WithTriggerTimeout bounds each remote audit trigger
func WithTriggerTimeout(d time.Duration) PresenceOption {
	return func(p *PresenceTracker) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func NewPresenceTracker(st store.MinionStore, trigger AuditTrigger, logger *zap.Logger, opts ...PresenceOption) *PresenceTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &PresenceTracker{
		store:    st,
		trigger:  trigger,
		logger:   logger,
		timeout:  DefaultTriggerTimeout,
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Present updates last_seen for every known minion in the batch and triggers
// a remote audit for every unknown one. A failure for one identifier never
// stops the rest of the batch; only an unreadable timestamp fails the call.
func (p *PresenceTracker) Present(ctx context.Context, ts string, minions []string) PresenceReport {
	var report PresenceReport

	when, err := ParseTimestamp(ts)
	if err != nil {
		p.logger.Warn("rejecting presence", zap.String("reason", ReasonMalformedInput.String()), zap.Error(err))
		report.Outcome = failed(err)
		return report
	}

	for _, minionID := range minions {
		if err := p.presentOne(ctx, when, minionID, &report); err != nil {
			report.Failed++
			p.logger.Error("failed to record presence",
				zap.String("minionID", minionID),
				zap.String("reason", Classify(err).String()),
				zap.Error(err))
		}
	}

	p.logger.Debug("presence recorded",
		zap.Int("seen", report.Seen),
		zap.Int("triggered", report.Triggered),
		zap.Int("failed", report.Failed))
	return report
}

func (p *PresenceTracker) presentOne(ctx context.Context, when time.Time, minionID string, report *PresenceReport) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("presence panicked: %v", r)
		}
	}()

	if minionID == "" {
		return fmt.Errorf("%w: empty minion identifier", ErrMalformedInput)
	}

	minion, err := p.store.FindMinionByAgentID(ctx, minionID)
	if errors.Is(err, store.ErrMinionNotFound) {
		if p.dispatch(minionID) {
			report.Triggered++
		}
		return nil
	}
	if err != nil {
		return err
	}

	if err := p.store.TouchLastSeen(ctx, minion.ServerID, when); err != nil {
		return err
	}
	report.Seen++
	return nil
}

// dispatch starts a remote audit unless one is already running for the minion
func (p *PresenceTracker) dispatch(minionID string) bool {
	p.mu.Lock()
	if _, busy := p.inflight[minionID]; busy {
		p.mu.Unlock()
		p.logger.Debug("audit trigger already in flight", zap.String("minionID", minionID))
		return false
	}
	p.inflight[minionID] = struct{}{}
	p.mu.Unlock()

	p.wg.Go(func() {
		defer func() {
			p.mu.Lock()
			delete(p.inflight, minionID)
			p.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
		defer cancel()

		if err := p.trigger.TriggerAudit(ctx, minionID); err != nil {
			p.logger.Error("failed to trigger audit",
				zap.String("minionID", minionID),
				zap.String("reason", ReasonRemoteInvocationFailed.String()),
				zap.Error(err))
			return
		}
		p.logger.Info("triggered audit of unknown minion", zap.String("minionID", minionID))
	})
	return true
}

// Wait blocks until every dispatched trigger has finished
func (p *PresenceTracker) Wait() {
	if r := p.wg.WaitAndRecover(); r != nil {
		p.logger.Error("audit trigger panicked", zap.String("panic", r.String()))
	}
}

// Close cancels running triggers and waits for them to return
func (p *PresenceTracker) Close() {
	p.cancel()
	p.Wait()
}
