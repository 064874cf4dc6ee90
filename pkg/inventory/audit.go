package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/saltinventory/minion-inventory/pkg/store"
)

// DefaultAuditTimeout bounds a whole audit when no timeout is configured
const DefaultAuditTimeout = 2 * time.Minute

// Audit actions
const (
	ActionTouched = "touched"
	ActionUpdated = "updated"
	ActionCreated = "created"
)

// AuditReport describes what an audit did
type AuditReport struct {
	Outcome
	ServerID     int64      `json:"server_id"`
	Action       string     `json:"action,omitempty"`
	Sets         []SetStats `json:"sets,omitempty"`
	PackageTotal int64      `json:"package_total"`
}

// Reconciler applies audit reports to the inventory store
type Reconciler struct {
	store   store.InventoryStore
	logger  *zap.Logger
	locks   *KeyLock[int64]
	timeout time.Duration
}

// ReconcilerOption configures a Reconciler
type ReconcilerOption func(*Reconciler)

// WithAuditTimeout bounds each audit call
func WithAuditTimeout(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func NewReconciler(st store.InventoryStore, logger *zap.Logger, opts ...ReconcilerOption) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Reconciler{
		store:   st,
		logger:  logger,
		locks:   NewKeyLock[int64](),
		timeout: DefaultAuditTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Audit reconciles one minion's report into the store.
//
// An existing minion reporting no change only gets last_audit updated.
// Otherwise the minion row is written first and, once that has succeeded,
// the package, interface and GPU sets are reconciled in that order followed
// by package_total. Audits of the same server_id are serialised.
func (r *Reconciler) Audit(ctx context.Context, ts string, props Properties, changed bool) (report AuditReport) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("audit panicked", zap.Any("panic", p), zap.Stack("stack"))
			report.Outcome = Outcome{Reason: ReasonQueryFailed, Err: fmt.Errorf("audit panicked: %v", p)}
		}
	}()

	when, err := ParseTimestamp(ts)
	if err != nil {
		r.logger.Warn("rejecting audit", zap.String("reason", ReasonMalformedInput.String()), zap.Error(err))
		return AuditReport{Outcome: failed(err)}
	}
	if props.ServerID == nil {
		err := fmt.Errorf("%w: missing server_id", ErrMalformedInput)
		r.logger.Warn("rejecting audit", zap.String("host", props.Host), zap.String("reason", ReasonMalformedInput.String()), zap.Error(err))
		return AuditReport{Outcome: failed(err)}
	}

	serverID := *props.ServerID
	report.ServerID = serverID
	logger := r.logger.With(zap.Int64("serverID", serverID))
	if props.Host != "" {
		logger = logger.With(zap.String("host", props.Host))
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	unlock, err := r.locks.Lock(ctx, serverID)
	if err != nil {
		logger.Error("gave up waiting for a concurrent audit of the same minion", zap.Error(err))
		report.Outcome = failed(err)
		return report
	}
	defer unlock()

	existing, err := r.store.FindMinion(ctx, serverID)
	switch {
	case errors.Is(err, store.ErrMinionNotFound):
		existing = nil
	case err != nil:
		logger.Error("failed to look up minion", zap.String("reason", Classify(err).String()), zap.Error(err))
		report.Outcome = failed(err)
		return report
	}

	if existing != nil && !changed {
		if err := r.store.TouchLastAudit(ctx, serverID, when); err != nil {
			logger.Error("failed to update last_audit", zap.String("reason", Classify(err).String()), zap.Error(err))
			report.Outcome = failed(err)
			return report
		}
		logger.Debug("no changes reported")
		report.Action = ActionTouched
		report.PackageTotal = existing.PackageTotal
		return report
	}

	if err := props.validate(); err != nil {
		logger.Warn("rejecting audit", zap.String("reason", ReasonMalformedInput.String()), zap.Error(err))
		report.Outcome = failed(err)
		return report
	}

	minion := props.toMinion()
	minion.LastAudit = when
	if existing == nil {
		minion.LastSeen = when
		logger.Info("adding new minion")
		err = r.store.CreateMinion(ctx, minion)
		report.Action = ActionCreated
	} else {
		logger.Debug("updating minion")
		err = r.store.UpdateMinion(ctx, minion)
		report.Action = ActionUpdated
	}
	if err != nil {
		logger.Error("failed to write minion", zap.String("reason", Classify(err).String()), zap.Error(err))
		report.Outcome = failed(err)
		return report
	}

	// The passes are independent: a failed pass rolls back on its own and
	// the next audit repeats it.
	passes := []func() (SetStats, error){
		func() (SetStats, error) { return reconcileSet(ctx, r.store, logger, serverID, packagePass(&props, logger)) },
		func() (SetStats, error) { return reconcileSet(ctx, r.store, logger, serverID, interfacePass(&props, logger)) },
		func() (SetStats, error) { return reconcileSet(ctx, r.store, logger, serverID, gpuPass(&props, logger)) },
	}

	var firstErr error
	for _, run := range passes {
		stats, err := run()
		if err != nil {
			logger.Error("set reconciliation failed",
				zap.String("set", stats.Set),
				zap.String("reason", Classify(err).String()),
				zap.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("reconcile %s: %w", stats.Set, err)
			}
		}
		report.Sets = append(report.Sets, stats)
	}

	total, err := r.store.RefreshPackageTotal(ctx, serverID)
	if err != nil {
		logger.Error("failed to update package_total", zap.String("reason", Classify(err).String()), zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}
	report.PackageTotal = total

	if firstErr != nil {
		report.Outcome = failed(firstErr)
		return report
	}

	logger.Info("audit complete",
		zap.String("action", report.Action),
		zap.Int64("packageTotal", total))
	return report
}
