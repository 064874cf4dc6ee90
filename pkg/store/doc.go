// Package store provides storage abstractions for the minion inventory.
//
// The reconciliation core in pkg/inventory only talks to the interfaces in
// this package, which keeps it independent of the database in use and lets
// tests substitute an in-memory store.
//
// # Available Stores
//
//   - MinionStore: minion rows (lookup, create, update, timestamps, package total)
//   - AssociationStore: catalog resolution and mark/sweep of association rows
//   - InventoryStore: both of the above plus transactions
//
// # Usage
//
//	st := gorm.NewInventoryStore(db, 10*time.Second)
//	err := st.Transaction(ctx, func(tx store.InventoryStore) error {
//	    if err := tx.Unmark(ctx, store.AssociationGPU, serverID); err != nil {
//	        return err
//	    }
//	    ...
//	    _, err := tx.Sweep(ctx, store.AssociationGPU, serverID)
//	    return err
//	})
package store
