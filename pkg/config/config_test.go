package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("INVENTORY_CONFIG_PATH", dir)
	t.Setenv("DATABASE_URL", "")
	for _, a := range attributes {
		t.Setenv(a.env, "")
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.DatabaseDriver)
	assert.Equal(t, 10*time.Second, cfg.StatementTimeout)
	assert.Equal(t, TriggerAuto, cfg.TriggerMode)
	assert.Equal(t, 3, cfg.TriggerAttempts)
	assert.Equal(t, "default", cfg.Source("port"))
	assert.Equal(t, "127.0.0.1:8080", cfg.Address())
}

func TestLoadFileThenEnvironment(t *testing.T) {
	dir := isolate(t)

	file := `
database_url: postgres://inventory:secret@db:5432/inventory
statement_timeout: 5s
port: 9090
trigger_mode: shell
salt_api_password: hunter2
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(file), 0o600))
	t.Setenv("INVENTORY_PORT", "9191")
	t.Setenv("INVENTORY_TRIGGER_ATTEMPTS", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.StatementTimeout)
	assert.Equal(t, "file", cfg.Source("statement_timeout"))
	assert.Equal(t, "9191", cfg.Port)
	assert.Equal(t, "environment", cfg.Source("port"))
	assert.Equal(t, 5, cfg.TriggerAttempts)
	assert.Equal(t, TriggerShell, cfg.TriggerMode)
	assert.Equal(t, filepath.Join(dir, ConfigFileName), cfg.ConfigFilePath())
	require.NoError(t, cfg.Validate())
}

func TestLoadDatabaseURLEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/inventory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/inventory", cfg.DatabaseURL)
	assert.Equal(t, "environment", cfg.Source("database_url"))
}

func TestLoadInvalidEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("INVENTORY_STATEMENT_TIMEOUT", "soon")

	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadInvalidFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("port: [1, 2"), 0o600))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *InventoryConfig {
		c := NewDefault()
		c.DatabaseURL = "postgres://localhost/inventory"
		return c
	}

	tests := []struct {
		name   string
		mutate func(c *InventoryConfig)
		ok     bool
	}{
		{"defaults with url", func(c *InventoryConfig) {}, true},
		{"missing url", func(c *InventoryConfig) { c.DatabaseURL = "" }, false},
		{"sqlite", func(c *InventoryConfig) { c.DatabaseDriver = DriverSQLite; c.DatabaseURL = "/tmp/inv.db" }, true},
		{"unknown driver", func(c *InventoryConfig) { c.DatabaseDriver = "mysql" }, false},
		{"zero statement timeout", func(c *InventoryConfig) { c.StatementTimeout = 0 }, false},
		{"audit shorter than statement", func(c *InventoryConfig) { c.AuditTimeout = time.Second }, false},
		{"bad port", func(c *InventoryConfig) { c.Port = "http" }, false},
		{"bad log level", func(c *InventoryConfig) { c.LogLevel = "loud" }, false},
		{"salt-api without url", func(c *InventoryConfig) { c.TriggerMode = TriggerSaltAPI }, false},
		{"salt-api with url", func(c *InventoryConfig) {
			c.TriggerMode = TriggerSaltAPI
			c.SaltAPIURL = "https://salt:8000"
		}, true},
		{"relative salt-api url", func(c *InventoryConfig) { c.SaltAPIURL = "salt:8000/run" }, false},
		{"unknown trigger mode", func(c *InventoryConfig) { c.TriggerMode = "carrier-pigeon" }, false},
		{"no attempts", func(c *InventoryConfig) { c.TriggerAttempts = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestAttributesMaskSecrets(t *testing.T) {
	c := NewDefault()
	c.DatabaseURL = "postgres://inventory:secret@db:5432/inventory"
	c.SaltAPIPassword = "hunter2"
	c.APITokenSecret = "s3cr3t"

	values := map[string]string{}
	for _, a := range c.Attributes() {
		values[a.Name] = a.Value
	}

	assert.Equal(t, "********", values["salt_api_password"])
	assert.Equal(t, "********", values["api_token_secret"])
	assert.NotContains(t, values["database_url"], "secret")
	assert.Contains(t, values["database_url"], "inventory:")

	text := c.FormatText()
	assert.NotContains(t, text, "hunter2")
	assert.True(t, strings.Contains(text, "(not set)"))

	out, err := c.FormatJSON()
	require.NoError(t, err)
	var decoded struct {
		Attributes []Attribute `json:"attributes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Len(t, decoded.Attributes, len(attributes))
}
