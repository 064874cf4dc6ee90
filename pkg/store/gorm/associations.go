package gorm

import (
	"context"
	"fmt"

	"github.com/saltinventory/minion-inventory/pkg/store"
)

func tableOf(a store.Association) (string, error) {
	switch a {
	case store.AssociationPackage, store.AssociationInterface, store.AssociationIP4, store.AssociationGPU:
		return a.Table(), nil
	}
	return "", fmt.Errorf("unknown association %d", int(a))
}

// Unmark clears the present flag on all of the minion's rows in the association
func (s *InventoryStore) Unmark(ctx context.Context, a store.Association, serverID int64) error {
	table, err := tableOf(a)
	if err != nil {
		return err
	}

	db, cancel := s.session(ctx)
	defer cancel()

	if err := db.Exec(`UPDATE `+table+` SET present = ? WHERE server_id = ?`, false, serverID).Error; err != nil {
		return fmt.Errorf("failed to unmark %s for minion %d: %w", table, serverID, err)
	}
	return nil
}

// Sweep deletes the minion's rows that are still unmarked
func (s *InventoryStore) Sweep(ctx context.Context, a store.Association, serverID int64) (int64, error) {
	table, err := tableOf(a)
	if err != nil {
		return 0, err
	}

	db, cancel := s.session(ctx)
	defer cancel()

	tx := db.Exec(`DELETE FROM `+table+` WHERE server_id = ? AND present = ?`, serverID, false)
	if tx.Error != nil {
		return 0, fmt.Errorf("failed to sweep %s for minion %d: %w", table, serverID, tx.Error)
	}
	return tx.RowsAffected, nil
}

// ResolvePackage returns the catalog id of a package name
func (s *InventoryStore) ResolvePackage(ctx context.Context, name string) (int64, error) {
	return s.resolve(ctx, "package",
		`SELECT package_id FROM package WHERE package_name = ?`,
		`INSERT INTO package (package_name) VALUES (?) ON CONFLICT (package_name) DO NOTHING`,
		name,
	)
}

// ResolveInterface returns the catalog id of an interface name
func (s *InventoryStore) ResolveInterface(ctx context.Context, name string) (int64, error) {
	return s.resolve(ctx, "interface",
		`SELECT interface_id FROM interface WHERE interface_name = ?`,
		`INSERT INTO interface (interface_name) VALUES (?) ON CONFLICT (interface_name) DO NOTHING`,
		name,
	)
}

// ResolveGPU returns the catalog id of a GPU model/vendor pair
func (s *InventoryStore) ResolveGPU(ctx context.Context, gpuModel, vendor string) (int64, error) {
	return s.resolve(ctx, "gpu",
		`SELECT gpu_id FROM gpu WHERE gpu_model = ? AND gpu_vendor = ?`,
		`INSERT INTO gpu (gpu_model, gpu_vendor) VALUES (?, ?) ON CONFLICT (gpu_model, gpu_vendor) DO NOTHING`,
		gpuModel, vendor,
	)
}

// resolve looks a catalog row up and inserts it when missing. The insert
// ignores conflicts so a concurrent insert of the same key by another minion
// is picked up by the second lookup instead of failing.
func (s *InventoryStore) resolve(ctx context.Context, catalog, lookup, insert string, args ...interface{}) (int64, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	var id int64
	tx := db.Raw(lookup, args...).Scan(&id)
	if tx.Error != nil {
		return 0, fmt.Errorf("failed to look up %s %v: %w", catalog, args, tx.Error)
	}
	if tx.RowsAffected > 0 {
		return id, nil
	}

	if err := db.Exec(insert, args...).Error; err != nil {
		return 0, fmt.Errorf("failed to add %s %v: %w", catalog, args, err)
	}

	tx = db.Raw(lookup, args...).Scan(&id)
	if tx.Error != nil {
		return 0, fmt.Errorf("failed to look up %s %v: %w", catalog, args, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return 0, fmt.Errorf("%s %v missing after insert", catalog, args)
	}
	return id, nil
}

// MarkPackage records a present package version
func (s *InventoryStore) MarkPackage(ctx context.Context, serverID, packageID int64, version string) error {
	return s.mark(ctx, `
		INSERT INTO minion_package (server_id, package_id, package_version, present)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (server_id, package_id, package_version) DO UPDATE SET present = EXCLUDED.present`,
		serverID, packageID, version, true,
	)
}

// MarkInterface records a present interface and refreshes its MAC address
func (s *InventoryStore) MarkInterface(ctx context.Context, serverID, interfaceID int64, mac string) error {
	return s.mark(ctx, `
		INSERT INTO minion_interface (server_id, interface_id, mac, present)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (server_id, interface_id) DO UPDATE SET present = EXCLUDED.present, mac = EXCLUDED.mac`,
		serverID, interfaceID, mac, true,
	)
}

// MarkIP4 records a present IPv4 address
func (s *InventoryStore) MarkIP4(ctx context.Context, serverID, interfaceID int64, ip string) error {
	return s.mark(ctx, `
		INSERT INTO minion_ip4 (server_id, interface_id, ip4, present)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (server_id, interface_id, ip4) DO UPDATE SET present = EXCLUDED.present`,
		serverID, interfaceID, ip, true,
	)
}

// MarkGPU records a present GPU
func (s *InventoryStore) MarkGPU(ctx context.Context, serverID, gpuID int64) error {
	return s.mark(ctx, `
		INSERT INTO minion_gpu (server_id, gpu_id, present)
		VALUES (?, ?, ?)
		ON CONFLICT (server_id, gpu_id) DO UPDATE SET present = EXCLUDED.present`,
		serverID, gpuID, true,
	)
}

func (s *InventoryStore) mark(ctx context.Context, upsert string, args ...interface{}) error {
	db, cancel := s.session(ctx)
	defer cancel()
	return db.Exec(upsert, args...).Error
}
