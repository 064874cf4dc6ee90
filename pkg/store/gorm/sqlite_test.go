package gorm

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/saltinventory/minion-inventory/pkg/model"
	"github.com/saltinventory/minion-inventory/pkg/store"
)

func newSQLiteStore(t *testing.T) (*InventoryStore, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "inventory.db")), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))
	return NewInventoryStore(db, 5*time.Second), db
}

func seedMinion(t *testing.T, s *InventoryStore, serverID int64, minionID string) {
	t.Helper()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateMinion(context.Background(), &model.Minion{
		ServerID:  serverID,
		MinionID:  minionID,
		Host:      minionID,
		LastAudit: ts,
		LastSeen:  ts,
	}))
}

func TestSQLiteMinionLifecycle(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()

	_, err := s.FindMinion(ctx, 42)
	assert.ErrorIs(t, err, store.ErrMinionNotFound)

	seedMinion(t, s, 42, "web01")

	m, err := s.FindMinionByAgentID(ctx, "web01")
	require.NoError(t, err)
	assert.Equal(t, int64(42), m.ServerID)

	m.OS = "Rocky"
	m.LastAudit = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpdateMinion(ctx, m))

	seen := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.TouchLastSeen(ctx, 42, seen))

	m, err = s.FindMinion(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Rocky", m.OS)
	assert.True(t, m.LastAudit.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, m.LastSeen.Equal(seen))

	err = s.TouchLastAudit(ctx, 7, seen)
	assert.ErrorIs(t, err, store.ErrMinionNotFound)
}

func TestSQLiteSharedAgentIDPrefersLatestAudit(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()

	seedMinion(t, s, 1, "web01")
	seedMinion(t, s, 2, "web01")

	require.NoError(t, s.TouchLastAudit(ctx, 2, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
	m, err := s.FindMinionByAgentID(ctx, "web01")
	require.NoError(t, err)
	assert.Equal(t, int64(2), m.ServerID)

	require.NoError(t, s.TouchLastAudit(ctx, 1, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	m, err = s.FindMinionByAgentID(ctx, "web01")
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.ServerID)
}

func TestSQLiteResolveIsStable(t *testing.T) {
	s, db := newSQLiteStore(t)
	ctx := context.Background()

	first, err := s.ResolvePackage(ctx, "bash")
	require.NoError(t, err)
	second, err := s.ResolvePackage(ctx, "bash")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	gpu, err := s.ResolveGPU(ctx, "A100", "NVIDIA")
	require.NoError(t, err)
	other, err := s.ResolveGPU(ctx, "A100", "AMD")
	require.NoError(t, err)
	assert.NotEqual(t, gpu, other)

	var count int64
	require.NoError(t, db.Model(&model.Package{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSQLiteMarkSweep(t *testing.T) {
	s, db := newSQLiteStore(t)
	ctx := context.Background()
	seedMinion(t, s, 42, "web01")

	bash, err := s.ResolvePackage(ctx, "bash")
	require.NoError(t, err)
	require.NoError(t, s.MarkPackage(ctx, 42, bash, "5.0"))
	require.NoError(t, s.MarkPackage(ctx, 42, bash, "5.0"))

	total, err := s.RefreshPackageTotal(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	require.NoError(t, s.Unmark(ctx, store.AssociationPackage, 42))
	require.NoError(t, s.MarkPackage(ctx, 42, bash, "5.1"))
	swept, err := s.Sweep(ctx, store.AssociationPackage, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	var rows []model.MinionPackage
	require.NoError(t, db.Where("server_id = ?", 42).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "5.1", rows[0].PackageVersion)
	assert.True(t, rows[0].Present)

	// catalog rows survive sweeps
	var count int64
	require.NoError(t, db.Model(&model.Package{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSQLiteMarkInterfaceUpdatesMAC(t *testing.T) {
	s, db := newSQLiteStore(t)
	ctx := context.Background()
	seedMinion(t, s, 42, "web01")

	eth0, err := s.ResolveInterface(ctx, "eth0")
	require.NoError(t, err)
	require.NoError(t, s.MarkInterface(ctx, 42, eth0, "aa:aa:aa:aa:aa:aa"))
	require.NoError(t, s.MarkInterface(ctx, 42, eth0, "bb:bb:bb:bb:bb:bb"))
	require.NoError(t, s.MarkIP4(ctx, 42, eth0, "10.0.0.5"))

	var iface model.MinionInterface
	require.NoError(t, db.Where("server_id = ? AND interface_id = ?", 42, eth0).First(&iface).Error)
	assert.Equal(t, "bb:bb:bb:bb:bb:bb", iface.MAC)

	var ips int64
	require.NoError(t, db.Model(&model.MinionIP4{}).Where("server_id = ?", 42).Count(&ips).Error)
	assert.Equal(t, int64(1), ips)
}

func TestSQLiteSavepointDiscardsOnlyInnerWrites(t *testing.T) {
	s, db := newSQLiteStore(t)
	ctx := context.Background()
	seedMinion(t, s, 42, "web01")
	failure := errors.New("item failed")

	err := s.Transaction(ctx, func(tx store.InventoryStore) error {
		id, err := tx.ResolveGPU(ctx, "A100", "NVIDIA")
		if err != nil {
			return err
		}
		if err := tx.MarkGPU(ctx, 42, id); err != nil {
			return err
		}
		inner := tx.Transaction(ctx, func(item store.InventoryStore) error {
			id, err := item.ResolveGPU(ctx, "T4", "NVIDIA")
			if err != nil {
				return err
			}
			if err := item.MarkGPU(ctx, 42, id); err != nil {
				return err
			}
			return failure
		})
		assert.ErrorIs(t, inner, failure)
		return nil
	})
	require.NoError(t, err)

	var gpus []model.GPU
	require.NoError(t, db.Find(&gpus).Error)
	require.Len(t, gpus, 1)
	assert.Equal(t, "A100", gpus[0].GPUModel)

	var links int64
	require.NoError(t, db.Model(&model.MinionGPU{}).Where("server_id = ?", 42).Count(&links).Error)
	assert.Equal(t, int64(1), links)
}

func TestSQLiteTransactionRollback(t *testing.T) {
	s, db := newSQLiteStore(t)
	ctx := context.Background()
	seedMinion(t, s, 42, "web01")
	failure := errors.New("pass failed")

	err := s.Transaction(ctx, func(tx store.InventoryStore) error {
		id, err := tx.ResolvePackage(ctx, "bash")
		if err != nil {
			return err
		}
		if err := tx.MarkPackage(ctx, 42, id, "5.0"); err != nil {
			return err
		}
		return failure
	})
	assert.ErrorIs(t, err, failure)

	var links int64
	require.NoError(t, db.Model(&model.MinionPackage{}).Count(&links).Error)
	assert.Equal(t, int64(0), links)

	require.NoError(t, s.Ping(ctx))
}
