package store

import (
	"context"
	"fmt"
)

// Association identifies one of the per-minion association tables
type Association int

const (
	AssociationPackage Association = iota
	AssociationInterface
	AssociationIP4
	AssociationGPU
)

// Table returns the association's table name
func (a Association) Table() string {
	switch a {
	case AssociationPackage:
		return "minion_package"
	case AssociationInterface:
		return "minion_interface"
	case AssociationIP4:
		return "minion_ip4"
	case AssociationGPU:
		return "minion_gpu"
	default:
		return fmt.Sprintf("association(%d)", int(a))
	}
}

func (a Association) String() string {
	return a.Table()
}

// AssociationStore abstracts catalog resolution and the mark/sweep
// operations on association rows.
type AssociationStore interface {
	// Unmark sets present = false on every row of the association owned by the minion.
	Unmark(ctx context.Context, a Association, serverID int64) error

	// Sweep deletes the minion's rows of the association that are still
	// unmarked and returns how many were removed.
	Sweep(ctx context.Context, a Association, serverID int64) (int64, error)

	// ResolvePackage returns the package_id for name, creating the catalog row if needed.
	ResolvePackage(ctx context.Context, name string) (int64, error)
	// ResolveInterface returns the interface_id for name, creating the catalog row if needed.
	ResolveInterface(ctx context.Context, name string) (int64, error)
	// ResolveGPU returns the gpu_id for the model/vendor pair, creating the catalog row if needed.
	ResolveGPU(ctx context.Context, gpuModel, vendor string) (int64, error)

	// MarkPackage upserts a present package version for the minion.
	MarkPackage(ctx context.Context, serverID, packageID int64, version string) error
	// MarkInterface upserts a present interface for the minion and refreshes its MAC address.
	MarkInterface(ctx context.Context, serverID, interfaceID int64, mac string) error
	// MarkIP4 upserts a present IPv4 address on one of the minion's interfaces.
	MarkIP4(ctx context.Context, serverID, interfaceID int64, ip string) error
	// MarkGPU upserts a present GPU for the minion.
	MarkGPU(ctx context.Context, serverID, gpuID int64) error
}

// InventoryStore is the full store used by reconciliation.
type InventoryStore interface {
	MinionStore
	AssociationStore

	// Transaction runs fn against a store bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	// Calling Transaction on a transaction-bound store opens a savepoint, so a
	// failing inner fn only discards its own writes.
	Transaction(ctx context.Context, fn func(tx InventoryStore) error) error
}
