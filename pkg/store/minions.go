package store

import (
	"context"
	"errors"
	"time"

	"github.com/saltinventory/minion-inventory/pkg/model"
)

// ErrMinionNotFound is returned when no minion row matches the lookup key
var ErrMinionNotFound = errors.New("minion not found")

// MinionStore abstracts operations on minion rows
type MinionStore interface {
	// FindMinion looks a minion up by its server_id.
	// Returns ErrMinionNotFound if there is no such minion.
	FindMinion(ctx context.Context, serverID int64) (*model.Minion, error)

	// FindMinionByAgentID looks a minion up by the identifier its agent reports.
	// Several rows may share an identifier; the most recently audited one is returned.
	// Returns ErrMinionNotFound if there is no such minion.
	FindMinionByAgentID(ctx context.Context, minionID string) (*model.Minion, error)

	// CreateMinion inserts a new minion row with all scalar attributes.
	CreateMinion(ctx context.Context, minion *model.Minion) error

	// UpdateMinion rewrites every scalar attribute and last_audit of an existing minion.
	UpdateMinion(ctx context.Context, minion *model.Minion) error

	TouchLastAudit(ctx context.Context, serverID int64, ts time.Time) error
	TouchLastSeen(ctx context.Context, serverID int64, ts time.Time) error

	// RefreshPackageTotal recomputes package_total from the present package
	// associations and returns the new value.
	RefreshPackageTotal(ctx context.Context, serverID int64) (int64, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}
