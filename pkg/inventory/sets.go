package inventory

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/saltinventory/minion-inventory/pkg/store"
)

// packageItem is one installed version; multilib packages yield one item per version
type packageItem struct {
	name    string
	version string
}

type interfaceItem struct {
	name string
	mac  string
	ips  []string
}

type gpuItem struct {
	model  string
	vendor string
}

func packagePass(p *Properties, logger *zap.Logger) setPass[packageItem] {
	pass := setPass[packageItem]{
		name:   "packages",
		tables: []store.Association{store.AssociationPackage},
		key:    func(it packageItem) string { return it.name + "=" + it.version },
		mark: func(ctx context.Context, tx store.InventoryStore, serverID int64, it packageItem) error {
			id, err := tx.ResolvePackage(ctx, it.name)
			if err != nil {
				return err
			}
			return tx.MarkPackage(ctx, serverID, id, it.version)
		},
	}

	for _, name := range sortedKeys(p.Pkgs) {
		if strings.TrimSpace(name) == "" {
			pass.malformed++
			logger.Warn("skipping package without a name", zap.String("reason", ReasonMalformedInput.String()))
			continue
		}
		seen := make(map[string]bool)
		for _, entry := range p.Pkgs[name] {
			if !entry.Valid {
				pass.malformed++
				logger.Warn("skipping package version of unknown shape",
					zap.String("item", name),
					zap.ByteString("version", entry.Raw),
					zap.String("reason", ReasonMalformedInput.String()))
				continue
			}
			if !seen[entry.Version] {
				seen[entry.Version] = true
				pass.items = append(pass.items, packageItem{name: name, version: entry.Version})
			}
		}
	}
	return pass
}

// interfacePass records every interface with a hardware address except the
// loopback, together with the IPv4 addresses bound to it. Addresses reported
// for interfaces without a hardware address are ignored.
func interfacePass(p *Properties, logger *zap.Logger) setPass[interfaceItem] {
	pass := setPass[interfaceItem]{
		name:   "interfaces",
		tables: []store.Association{store.AssociationInterface, store.AssociationIP4},
		key:    func(it interfaceItem) string { return it.name },
		mark: func(ctx context.Context, tx store.InventoryStore, serverID int64, it interfaceItem) error {
			id, err := tx.ResolveInterface(ctx, it.name)
			if err != nil {
				return err
			}
			if err := tx.MarkInterface(ctx, serverID, id, it.mac); err != nil {
				return err
			}
			for _, ip := range it.ips {
				if err := tx.MarkIP4(ctx, serverID, id, ip); err != nil {
					return err
				}
			}
			return nil
		},
	}

	for _, name := range sortedKeys(p.HWAddrInterfaces) {
		if name == LoopbackInterface {
			continue
		}
		if strings.TrimSpace(name) == "" {
			pass.malformed++
			logger.Warn("skipping interface without a name", zap.String("reason", ReasonMalformedInput.String()))
			continue
		}
		item := interfaceItem{name: name, mac: p.HWAddrInterfaces[name]}
		seen := make(map[string]bool)
		for _, ip := range p.IP4Interfaces[name] {
			if ip == "" || seen[ip] {
				continue
			}
			seen[ip] = true
			item.ips = append(item.ips, ip)
		}
		pass.items = append(pass.items, item)
	}
	return pass
}

func gpuPass(p *Properties, logger *zap.Logger) setPass[gpuItem] {
	pass := setPass[gpuItem]{
		name:   "gpus",
		tables: []store.Association{store.AssociationGPU},
		key:    func(it gpuItem) string { return it.vendor + " " + it.model },
		mark: func(ctx context.Context, tx store.InventoryStore, serverID int64, it gpuItem) error {
			id, err := tx.ResolveGPU(ctx, it.model, it.vendor)
			if err != nil {
				return err
			}
			return tx.MarkGPU(ctx, serverID, id)
		},
	}

	seen := make(map[gpuItem]bool)
	for _, g := range p.GPUs {
		if g.Model == "" {
			pass.malformed++
			logger.Warn("skipping GPU without a model",
				zap.String("item", g.Vendor),
				zap.String("reason", ReasonMalformedInput.String()))
			continue
		}
		item := gpuItem{model: g.Model, vendor: g.Vendor}
		if !seen[item] {
			seen[item] = true
			pass.items = append(pass.items, item)
		}
	}
	return pass
}
