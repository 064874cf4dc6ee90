package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/saltinventory/minion-inventory/pkg/model"
	"github.com/saltinventory/minion-inventory/pkg/store"
)

type pkgKey struct {
	serverID, packageID int64
	version             string
}

type ifKey struct {
	serverID, interfaceID int64
}

type ipKey struct {
	serverID, interfaceID int64
	ip                    string
}

type gpuKey struct {
	serverID, gpuID int64
}

type ifRow struct {
	mac     string
	present bool
}

type memState struct {
	nextID     int64
	minions    map[int64]model.Minion
	packages   map[string]int64
	interfaces map[string]int64
	gpus       map[GPU]int64
	pkgLinks   map[pkgKey]bool
	ifLinks    map[ifKey]ifRow
	ipLinks    map[ipKey]bool
	gpuLinks   map[gpuKey]bool
}

func newMemState() *memState {
	return &memState{
		minions:    map[int64]model.Minion{},
		packages:   map[string]int64{},
		interfaces: map[string]int64{},
		gpus:       map[GPU]int64{},
		pkgLinks:   map[pkgKey]bool{},
		ifLinks:    map[ifKey]ifRow{},
		ipLinks:    map[ipKey]bool{},
		gpuLinks:   map[gpuKey]bool{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func (s *memState) clone() *memState {
	return &memState{
		nextID:     s.nextID,
		minions:    cloneMap(s.minions),
		packages:   cloneMap(s.packages),
		interfaces: cloneMap(s.interfaces),
		gpus:       cloneMap(s.gpus),
		pkgLinks:   cloneMap(s.pkgLinks),
		ifLinks:    cloneMap(s.ifLinks),
		ipLinks:    cloneMap(s.ipLinks),
		gpuLinks:   cloneMap(s.gpuLinks),
	}
}

// memStore is an in-memory store.InventoryStore. Transactions snapshot the
// state and restore it on error, nested ones included.
type memStore struct {
	mu    *sync.Mutex
	state *memState

	// fail, when set, is consulted before every operation
	fail func(op, key string) error
	// calls records operations in order
	calls *[]string
	// hook, when set, runs before every operation without the lock held
	hook func(op string, serverID int64)
}

var _ store.InventoryStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{mu: &sync.Mutex{}, state: newMemState(), calls: &[]string{}}
}

func (m *memStore) op(ctx context.Context, op, key string, serverID int64) error {
	if m.hook != nil {
		m.hook(op, serverID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	*m.calls = append(*m.calls, op+":"+key)
	m.mu.Unlock()
	if m.fail != nil {
		return m.fail(op, key)
	}
	return nil
}

func (m *memStore) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), *m.calls...)
}

func (m *memStore) Transaction(ctx context.Context, fn func(tx store.InventoryStore) error) error {
	if err := m.op(ctx, "Transaction", "", 0); err != nil {
		return err
	}
	m.mu.Lock()
	snapshot := m.state.clone()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		*m.state = *snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) Ping(ctx context.Context) error {
	return m.op(ctx, "Ping", "", 0)
}

func (m *memStore) FindMinion(ctx context.Context, serverID int64) (*model.Minion, error) {
	if err := m.op(ctx, "FindMinion", fmt.Sprint(serverID), serverID); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	minion, ok := m.state.minions[serverID]
	if !ok {
		return nil, store.ErrMinionNotFound
	}
	return &minion, nil
}

func (m *memStore) FindMinionByAgentID(ctx context.Context, minionID string) (*model.Minion, error) {
	if err := m.op(ctx, "FindMinionByAgentID", minionID, 0); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *model.Minion
	for _, minion := range m.state.minions {
		if minion.MinionID != minionID {
			continue
		}
		if found == nil || minion.LastAudit.After(found.LastAudit) ||
			(minion.LastAudit.Equal(found.LastAudit) && minion.ServerID > found.ServerID) {
			candidate := minion
			found = &candidate
		}
	}
	if found == nil {
		return nil, store.ErrMinionNotFound
	}
	return found, nil
}

func (m *memStore) CreateMinion(ctx context.Context, minion *model.Minion) error {
	if err := m.op(ctx, "CreateMinion", fmt.Sprint(minion.ServerID), minion.ServerID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.minions[minion.ServerID]; ok {
		return fmt.Errorf("duplicate key server_id=%d", minion.ServerID)
	}
	m.state.minions[minion.ServerID] = *minion
	return nil
}

func (m *memStore) UpdateMinion(ctx context.Context, minion *model.Minion) error {
	if err := m.op(ctx, "UpdateMinion", fmt.Sprint(minion.ServerID), minion.ServerID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.state.minions[minion.ServerID]
	if !ok {
		return store.ErrMinionNotFound
	}
	updated := *minion
	updated.LastSeen = old.LastSeen
	updated.PackageTotal = old.PackageTotal
	m.state.minions[minion.ServerID] = updated
	return nil
}

func (m *memStore) TouchLastAudit(ctx context.Context, serverID int64, ts time.Time) error {
	return m.touch(ctx, "TouchLastAudit", serverID, func(mn *model.Minion) { mn.LastAudit = ts })
}

func (m *memStore) TouchLastSeen(ctx context.Context, serverID int64, ts time.Time) error {
	return m.touch(ctx, "TouchLastSeen", serverID, func(mn *model.Minion) { mn.LastSeen = ts })
}

func (m *memStore) touch(ctx context.Context, op string, serverID int64, set func(*model.Minion)) error {
	if err := m.op(ctx, op, fmt.Sprint(serverID), serverID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	minion, ok := m.state.minions[serverID]
	if !ok {
		return store.ErrMinionNotFound
	}
	set(&minion)
	m.state.minions[serverID] = minion
	return nil
}

func (m *memStore) RefreshPackageTotal(ctx context.Context, serverID int64) (int64, error) {
	if err := m.op(ctx, "RefreshPackageTotal", fmt.Sprint(serverID), serverID); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for k, present := range m.state.pkgLinks {
		if k.serverID == serverID && present {
			total++
		}
	}
	minion := m.state.minions[serverID]
	minion.PackageTotal = total
	m.state.minions[serverID] = minion
	return total, nil
}

func (m *memStore) Unmark(ctx context.Context, a store.Association, serverID int64) error {
	if err := m.op(ctx, "Unmark", a.Table(), serverID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch a {
	case store.AssociationPackage:
		for k := range m.state.pkgLinks {
			if k.serverID == serverID {
				m.state.pkgLinks[k] = false
			}
		}
	case store.AssociationInterface:
		for k, row := range m.state.ifLinks {
			if k.serverID == serverID {
				row.present = false
				m.state.ifLinks[k] = row
			}
		}
	case store.AssociationIP4:
		for k := range m.state.ipLinks {
			if k.serverID == serverID {
				m.state.ipLinks[k] = false
			}
		}
	case store.AssociationGPU:
		for k := range m.state.gpuLinks {
			if k.serverID == serverID {
				m.state.gpuLinks[k] = false
			}
		}
	}
	return nil
}

func (m *memStore) Sweep(ctx context.Context, a store.Association, serverID int64) (int64, error) {
	if err := m.op(ctx, "Sweep", a.Table(), serverID); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	switch a {
	case store.AssociationPackage:
		for k, present := range m.state.pkgLinks {
			if k.serverID == serverID && !present {
				delete(m.state.pkgLinks, k)
				n++
			}
		}
	case store.AssociationInterface:
		for k, row := range m.state.ifLinks {
			if k.serverID == serverID && !row.present {
				delete(m.state.ifLinks, k)
				n++
			}
		}
	case store.AssociationIP4:
		for k, present := range m.state.ipLinks {
			if k.serverID == serverID && !present {
				delete(m.state.ipLinks, k)
				n++
			}
		}
	case store.AssociationGPU:
		for k, present := range m.state.gpuLinks {
			if k.serverID == serverID && !present {
				delete(m.state.gpuLinks, k)
				n++
			}
		}
	}
	return n, nil
}

func resolveIn[K comparable](m *memStore, catalog map[K]int64, key K) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := catalog[key]; ok {
		return id
	}
	m.state.nextID++
	catalog[key] = m.state.nextID
	return m.state.nextID
}

func (m *memStore) ResolvePackage(ctx context.Context, name string) (int64, error) {
	if err := m.op(ctx, "ResolvePackage", name, 0); err != nil {
		return 0, err
	}
	return resolveIn(m, m.state.packages, name), nil
}

func (m *memStore) ResolveInterface(ctx context.Context, name string) (int64, error) {
	if err := m.op(ctx, "ResolveInterface", name, 0); err != nil {
		return 0, err
	}
	return resolveIn(m, m.state.interfaces, name), nil
}

func (m *memStore) ResolveGPU(ctx context.Context, gpuModel, vendor string) (int64, error) {
	if err := m.op(ctx, "ResolveGPU", vendor+" "+gpuModel, 0); err != nil {
		return 0, err
	}
	return resolveIn(m, m.state.gpus, GPU{Model: gpuModel, Vendor: vendor}), nil
}

func (m *memStore) MarkPackage(ctx context.Context, serverID, packageID int64, version string) error {
	if err := m.op(ctx, "MarkPackage", version, serverID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.pkgLinks[pkgKey{serverID, packageID, version}] = true
	return nil
}

func (m *memStore) MarkInterface(ctx context.Context, serverID, interfaceID int64, mac string) error {
	if err := m.op(ctx, "MarkInterface", mac, serverID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.ifLinks[ifKey{serverID, interfaceID}] = ifRow{mac: mac, present: true}
	return nil
}

func (m *memStore) MarkIP4(ctx context.Context, serverID, interfaceID int64, ip string) error {
	if err := m.op(ctx, "MarkIP4", ip, serverID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.ipLinks[ipKey{serverID, interfaceID, ip}] = true
	return nil
}

func (m *memStore) MarkGPU(ctx context.Context, serverID, gpuID int64) error {
	if err := m.op(ctx, "MarkGPU", fmt.Sprint(gpuID), serverID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.gpuLinks[gpuKey{serverID, gpuID}] = true
	return nil
}

// presentPackages returns name=version pairs marked present for the minion
func (m *memStore) presentPackages(serverID int64) map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := map[int64]string{}
	for name, id := range m.state.packages {
		names[id] = name
	}
	out := map[string]bool{}
	for k, present := range m.state.pkgLinks {
		if k.serverID == serverID {
			out[names[k.packageID]+"="+k.version] = present
		}
	}
	return out
}

func (m *memStore) interfaceNames(serverID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := map[int64]string{}
	for name, id := range m.state.interfaces {
		names[id] = name
	}
	var out []string
	for k := range m.state.ifLinks {
		if k.serverID == serverID {
			out = append(out, names[k.interfaceID])
		}
	}
	return out
}

func (m *memStore) snapshot() *memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}
