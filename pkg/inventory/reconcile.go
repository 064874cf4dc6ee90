package inventory

import (
	"context"

	"go.uber.org/zap"

	"github.com/saltinventory/minion-inventory/pkg/store"
)

// SetStats summarises one mark/sweep pass
type SetStats struct {
	Set     string `json:"set"`
	Marked  int    `json:"marked"`
	Skipped int    `json:"skipped"`
	Swept   int64  `json:"swept"`
}

// setPass describes the reconciliation of one kind of reported item against
// one or more association tables. Tables are listed parent first; they are
// unmarked in that order and swept in reverse.
type setPass[T any] struct {
	name   string
	tables []store.Association
	items  []T
	// malformed counts reported entries dropped before the pass started
	malformed int
	key       func(T) string
	mark      func(ctx context.Context, tx store.InventoryStore, serverID int64, item T) error
}

// reconcileSet brings the minion's association rows in line with pass.items.
//
// The whole pass runs in one transaction: rows left unmarked by an
// interrupted earlier run are purged, every row is unmarked, each item is
// marked inside its own savepoint and whatever is still unmarked is deleted.
// An item that fails is logged and skipped; store failures that would make
// every following statement fail abort and roll back the whole pass.
func reconcileSet[T any](ctx context.Context, st store.InventoryStore, logger *zap.Logger, serverID int64, pass setPass[T]) (SetStats, error) {
	logger = logger.With(zap.String("set", pass.name))
	var stats SetStats

	err := st.Transaction(ctx, func(tx store.InventoryStore) error {
		stats = SetStats{Set: pass.name, Skipped: pass.malformed}

		for i := len(pass.tables) - 1; i >= 0; i-- {
			n, err := tx.Sweep(ctx, pass.tables[i], serverID)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("purged rows left by an interrupted audit",
					zap.String("table", pass.tables[i].Table()),
					zap.Int64("rows", n))
			}
		}

		for _, table := range pass.tables {
			if err := tx.Unmark(ctx, table, serverID); err != nil {
				return err
			}
		}

		for _, item := range pass.items {
			err := tx.Transaction(ctx, func(itemTx store.InventoryStore) error {
				return pass.mark(ctx, itemTx, serverID, item)
			})
			if err == nil {
				stats.Marked++
				continue
			}
			if reason := Classify(err); reason == ReasonTimeout || reason == ReasonConnectionFailed {
				return err
			}
			stats.Skipped++
			logger.Warn("skipping item",
				zap.String("item", pass.key(item)),
				zap.String("reason", Classify(err).String()),
				zap.Error(err))
		}

		for i := len(pass.tables) - 1; i >= 0; i-- {
			n, err := tx.Sweep(ctx, pass.tables[i], serverID)
			if err != nil {
				return err
			}
			stats.Swept += n
		}
		return nil
	})
	if err != nil {
		return SetStats{Set: pass.name}, err
	}

	logger.Debug("reconciled set",
		zap.Int("marked", stats.Marked),
		zap.Int("skipped", stats.Skipped),
		zap.Int64("swept", stats.Swept))
	return stats, nil
}
