// Package model defines the database models for the minion inventory.
//
// The schema keeps the table and column names of the original Salt minion
// inventory database so that the dashboard reading it keeps working.
//
// # Catalog Tables
//
// Catalog rows are shared by every minion and are never deleted:
//
//   - package: installed package names
//   - interface: network interface names (loopback is never recorded)
//   - gpu: GPU model and vendor pairs
//
// # Association Tables
//
// Association rows carry a present flag used by mark/sweep reconciliation:
//
//   - minion_package: (server_id, package_id, package_version)
//   - minion_interface: (server_id, interface_id) with the MAC address
//   - minion_ip4: (server_id, interface_id, ip4)
//   - minion_gpu: (server_id, gpu_id)
package model
