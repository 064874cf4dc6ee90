package gorm

import (
	"context"
	"fmt"
	"time"

	"github.com/saltinventory/minion-inventory/pkg/model"
	"github.com/saltinventory/minion-inventory/pkg/store"
)

// FindMinion retrieves a minion by server_id
func (s *InventoryStore) FindMinion(ctx context.Context, serverID int64) (*model.Minion, error) {
	return s.findMinion(ctx, `SELECT * FROM minion WHERE server_id = ? LIMIT 1`, serverID)
}

// FindMinionByAgentID retrieves a minion by the identifier reported by its agent.
// A reinstalled host keeps its identifier under a new server_id, so the most
// recently audited row wins.
func (s *InventoryStore) FindMinionByAgentID(ctx context.Context, minionID string) (*model.Minion, error) {
	return s.findMinion(ctx,
		`SELECT * FROM minion WHERE id = ? ORDER BY last_audit IS NULL, last_audit DESC, server_id DESC LIMIT 1`,
		minionID)
}

func (s *InventoryStore) findMinion(ctx context.Context, query string, key interface{}) (*model.Minion, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	var minion model.Minion
	tx := db.Raw(query, key).Scan(&minion)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, store.ErrMinionNotFound
	}
	return &minion, nil
}

// CreateMinion inserts a new minion row
func (s *InventoryStore) CreateMinion(ctx context.Context, m *model.Minion) error {
	db, cancel := s.session(ctx)
	defer cancel()

	err := db.Exec(`
		INSERT INTO minion (
			server_id, id, host, fqdn, os, osrelease, kernel, kernelrelease,
			cpu_model, biosreleasedate, biosversion, mem_total, num_cpus, num_gpus,
			saltversion, selinux_enabled, selinux_enforced, package_total, last_audit, last_seen
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ServerID, m.MinionID, m.Host, m.FQDN, m.OS, m.OSRelease, m.Kernel, m.KernelRelease,
		m.CPUModel, m.BIOSReleaseDate, m.BIOSVersion, m.MemTotal, m.NumCPUs, m.NumGPUs,
		m.SaltVersion, m.SELinuxEnabled, m.SELinuxEnforced, m.PackageTotal, m.LastAudit, m.LastSeen,
	).Error
	if err != nil {
		return fmt.Errorf("failed to create minion %d: %w", m.ServerID, err)
	}
	return nil
}

// UpdateMinion rewrites the scalar attributes and last_audit of a minion
func (s *InventoryStore) UpdateMinion(ctx context.Context, m *model.Minion) error {
	db, cancel := s.session(ctx)
	defer cancel()

	tx := db.Exec(`
		UPDATE minion SET
			id = ?, host = ?, fqdn = ?, os = ?, osrelease = ?, kernel = ?, kernelrelease = ?,
			cpu_model = ?, biosreleasedate = ?, biosversion = ?, mem_total = ?, num_cpus = ?, num_gpus = ?,
			saltversion = ?, selinux_enabled = ?, selinux_enforced = ?, last_audit = ?
		WHERE server_id = ?`,
		m.MinionID, m.Host, m.FQDN, m.OS, m.OSRelease, m.Kernel, m.KernelRelease,
		m.CPUModel, m.BIOSReleaseDate, m.BIOSVersion, m.MemTotal, m.NumCPUs, m.NumGPUs,
		m.SaltVersion, m.SELinuxEnabled, m.SELinuxEnforced, m.LastAudit,
		m.ServerID,
	)
	if tx.Error != nil {
		return fmt.Errorf("failed to update minion %d: %w", m.ServerID, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return store.ErrMinionNotFound
	}
	return nil
}

// TouchLastAudit sets last_audit without touching anything else
func (s *InventoryStore) TouchLastAudit(ctx context.Context, serverID int64, ts time.Time) error {
	return s.touch(ctx, "last_audit", serverID, ts)
}

// TouchLastSeen sets last_seen without touching anything else
func (s *InventoryStore) TouchLastSeen(ctx context.Context, serverID int64, ts time.Time) error {
	return s.touch(ctx, "last_seen", serverID, ts)
}

func (s *InventoryStore) touch(ctx context.Context, column string, serverID int64, ts time.Time) error {
	db, cancel := s.session(ctx)
	defer cancel()

	tx := db.Exec(`UPDATE minion SET `+column+` = ? WHERE server_id = ?`, ts, serverID)
	if tx.Error != nil {
		return fmt.Errorf("failed to update %s of minion %d: %w", column, serverID, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return store.ErrMinionNotFound
	}
	return nil
}

// RefreshPackageTotal stores the number of present packages in package_total
func (s *InventoryStore) RefreshPackageTotal(ctx context.Context, serverID int64) (int64, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	var total int64
	if err := db.Raw(
		`SELECT COUNT(*) FROM minion_package WHERE server_id = ? AND present = ?`,
		serverID, true,
	).Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count packages of minion %d: %w", serverID, err)
	}

	if err := db.Exec(`UPDATE minion SET package_total = ? WHERE server_id = ?`, total, serverID).Error; err != nil {
		return 0, fmt.Errorf("failed to update package_total of minion %d: %w", serverID, err)
	}
	return total, nil
}
