package gorm

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/saltinventory/minion-inventory/pkg/store"
)

// Ensure InventoryStore implements store.InventoryStore
var _ store.InventoryStore = (*InventoryStore)(nil)

// InventoryStore implements store.InventoryStore using GORM
type InventoryStore struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewInventoryStore creates a new InventoryStore. Every statement is bounded
// by timeout; a zero timeout leaves statements bounded only by the caller's context.
func NewInventoryStore(db *gorm.DB, timeout time.Duration) *InventoryStore {
	return &InventoryStore{db: db, timeout: timeout}
}

// Transaction runs fn inside a database transaction. Nested calls use savepoints.
func (s *InventoryStore) Transaction(ctx context.Context, fn func(tx store.InventoryStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&InventoryStore{db: tx, timeout: s.timeout})
	})
}

// Ping checks that the database answers a trivial query
func (s *InventoryStore) Ping(ctx context.Context) error {
	db, cancel := s.session(ctx)
	defer cancel()
	return db.Exec(`SELECT 1`).Error
}

// session returns a handle whose statements are bounded by the store timeout
func (s *InventoryStore) session(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	if s.timeout <= 0 {
		return s.db.WithContext(ctx), func() {}
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return s.db.WithContext(ctx), cancel
}
