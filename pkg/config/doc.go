// Package config provides configuration management for the inventory service.
//
// Configuration is read once at start-up and passed explicitly to the
// components that need it; there is no package-level state.
//
// # Configuration Sources
//
// Values are resolved in this order, later sources winning:
//
//   - Built-in defaults
//   - inventory.yml under INVENTORY_CONFIG_PATH (default /etc/salt-inventory)
//   - INVENTORY_<ATTRIBUTE> environment variables, plus DATABASE_URL
//
// # Key Configuration Options
//
//   - DATABASE_URL / INVENTORY_DATABASE_URL: store connection
//   - INVENTORY_DATABASE_DRIVER: postgres or sqlite
//   - INVENTORY_STATEMENT_TIMEOUT: bound on each store round-trip
//   - INVENTORY_TRIGGER_MODE: auto, salt-api or shell
//   - INVENTORY_API_TOKEN_SECRET: enables bearer token checks on the API
package config
