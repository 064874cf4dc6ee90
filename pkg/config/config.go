package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "/etc/salt-inventory"
	ConfigFileName    = "inventory.yml"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Remote audit trigger modes
const (
	TriggerAuto    = "auto"
	TriggerSaltAPI = "salt-api"
	TriggerShell   = "shell"
)

// ErrInvalidConfig is returned when a configuration attribute is missing or invalid
var ErrInvalidConfig = errors.New("invalid configuration")

// InventoryConfig holds all inventory service configuration settings
type InventoryConfig struct {
	// DatabaseURL is a PostgreSQL connection URL or, for sqlite, a file path
	DatabaseURL string `yaml:"database_url" json:"database_url"`

	// DatabaseDriver selects the store backend (postgres or sqlite)
	DatabaseDriver string `yaml:"database_driver" json:"database_driver"`

	// StatementTimeout bounds every single store round-trip
	StatementTimeout time.Duration `yaml:"statement_timeout" json:"statement_timeout"`

	// AuditTimeout bounds a whole audit reconciliation
	AuditTimeout time.Duration `yaml:"audit_timeout" json:"audit_timeout"`

	BindAddress string `yaml:"bind_address" json:"bind_address"`
	Port        string `yaml:"port" json:"port"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level" json:"log_level"`

	// LogFile enables rotated JSON logs at this path instead of console output
	LogFile string `yaml:"log_file" json:"log_file"`

	// TriggerMode selects how remote audits are triggered (auto, salt-api, shell)
	TriggerMode string `yaml:"trigger_mode" json:"trigger_mode"`

	SaltAPIURL      string `yaml:"salt_api_url" json:"salt_api_url"`
	SaltAPIUsername string `yaml:"salt_api_username" json:"salt_api_username"`
	SaltAPIPassword string `yaml:"salt_api_password" json:"salt_api_password"`
	SaltAPIEauth    string `yaml:"salt_api_eauth" json:"salt_api_eauth"`

	// SaltCommand is the salt executable used by the shell trigger
	SaltCommand string `yaml:"salt_command" json:"salt_command"`

	TriggerTimeout  time.Duration `yaml:"trigger_timeout" json:"trigger_timeout"`
	TriggerAttempts int           `yaml:"trigger_attempts" json:"trigger_attempts"`

	// APITokenSecret enables HS256 bearer token checks on the ingestion API
	APITokenSecret string `yaml:"api_token_secret" json:"api_token_secret"`

	// SpoolDir is watched for report files when set
	SpoolDir string `yaml:"spool_dir" json:"spool_dir"`

	// EventLog receives the RFC5424 change trail; "-" is stdout, empty disables it
	EventLog string `yaml:"event_log" json:"event_log"`

	// sources tracks where each value came from
	sources map[string]string

	// configFilePath is the path to the config file
	configFilePath string
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// attribute binds a configuration name to its environment variable and field
type attribute struct {
	name   string
	env    string
	secret bool
	get    func(c *InventoryConfig) string
	set    func(c *InventoryConfig, v string) error
	isSet  func(c *InventoryConfig) bool
}

func stringAttr(name string, field func(c *InventoryConfig) *string) attribute {
	return attribute{
		name:  name,
		env:   "INVENTORY_" + strings.ToUpper(name),
		get:   func(c *InventoryConfig) string { return *field(c) },
		set:   func(c *InventoryConfig, v string) error { *field(c) = v; return nil },
		isSet: func(c *InventoryConfig) bool { return *field(c) != "" },
	}
}

func durationAttr(name string, field func(c *InventoryConfig) *time.Duration) attribute {
	return attribute{
		name: name,
		env:  "INVENTORY_" + strings.ToUpper(name),
		get:  func(c *InventoryConfig) string { return field(c).String() },
		set: func(c *InventoryConfig, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return err
			}
			*field(c) = d
			return nil
		},
		isSet: func(c *InventoryConfig) bool { return *field(c) != 0 },
	}
}

func intAttr(name string, field func(c *InventoryConfig) *int) attribute {
	return attribute{
		name: name,
		env:  "INVENTORY_" + strings.ToUpper(name),
		get:  func(c *InventoryConfig) string { return strconv.Itoa(*field(c)) },
		set: func(c *InventoryConfig, v string) error {
			i, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			*field(c) = i
			return nil
		},
		isSet: func(c *InventoryConfig) bool { return *field(c) != 0 },
	}
}

func secret(a attribute) attribute {
	a.secret = true
	return a
}

var attributes = []attribute{
	stringAttr("database_url", func(c *InventoryConfig) *string { return &c.DatabaseURL }),
	stringAttr("database_driver", func(c *InventoryConfig) *string { return &c.DatabaseDriver }),
	durationAttr("statement_timeout", func(c *InventoryConfig) *time.Duration { return &c.StatementTimeout }),
	durationAttr("audit_timeout", func(c *InventoryConfig) *time.Duration { return &c.AuditTimeout }),
	stringAttr("bind_address", func(c *InventoryConfig) *string { return &c.BindAddress }),
	stringAttr("port", func(c *InventoryConfig) *string { return &c.Port }),
	stringAttr("log_level", func(c *InventoryConfig) *string { return &c.LogLevel }),
	stringAttr("log_file", func(c *InventoryConfig) *string { return &c.LogFile }),
	stringAttr("trigger_mode", func(c *InventoryConfig) *string { return &c.TriggerMode }),
	stringAttr("salt_api_url", func(c *InventoryConfig) *string { return &c.SaltAPIURL }),
	stringAttr("salt_api_username", func(c *InventoryConfig) *string { return &c.SaltAPIUsername }),
	secret(stringAttr("salt_api_password", func(c *InventoryConfig) *string { return &c.SaltAPIPassword })),
	stringAttr("salt_api_eauth", func(c *InventoryConfig) *string { return &c.SaltAPIEauth }),
	stringAttr("salt_command", func(c *InventoryConfig) *string { return &c.SaltCommand }),
	durationAttr("trigger_timeout", func(c *InventoryConfig) *time.Duration { return &c.TriggerTimeout }),
	intAttr("trigger_attempts", func(c *InventoryConfig) *int { return &c.TriggerAttempts }),
	secret(stringAttr("api_token_secret", func(c *InventoryConfig) *string { return &c.APITokenSecret })),
	stringAttr("spool_dir", func(c *InventoryConfig) *string { return &c.SpoolDir }),
	stringAttr("event_log", func(c *InventoryConfig) *string { return &c.EventLog }),
}

// NewDefault returns a config with default values
func NewDefault() *InventoryConfig {
	c := &InventoryConfig{
		DatabaseDriver:   DriverPostgres,
		StatementTimeout: 10 * time.Second,
		AuditTimeout:     2 * time.Minute,
		BindAddress:      "127.0.0.1",
		Port:             "8080",
		LogLevel:         "info",
		TriggerMode:      TriggerAuto,
		SaltAPIEauth:     "pam",
		SaltCommand:      "salt",
		TriggerTimeout:   30 * time.Second,
		TriggerAttempts:  3,
		sources:          make(map[string]string),
	}
	for _, a := range attributes {
		c.sources[a.name] = "default"
	}
	return c
}

// Load loads configuration from file and environment variables.
// Environment variables take precedence over file values.
func Load() (*InventoryConfig, error) {
	config := NewDefault()

	configPath := os.Getenv("INVENTORY_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	config.configFilePath = filepath.Join(configPath, ConfigFileName)

	if data, err := os.ReadFile(config.configFilePath); err == nil {
		var fileConfig InventoryConfig
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", config.configFilePath, err)
		}
		config.applyFileConfig(&fileConfig)
	}

	if err := config.applyEnvConfig(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *InventoryConfig) applyFileConfig(file *InventoryConfig) {
	for _, a := range attributes {
		if a.isSet(file) {
			_ = a.set(c, a.get(file))
			c.sources[a.name] = "file"
		}
	}
}

func (c *InventoryConfig) applyEnvConfig() error {
	// DATABASE_URL is honoured for compatibility with the migration tooling
	if val := os.Getenv("DATABASE_URL"); val != "" {
		c.DatabaseURL = val
		c.sources["database_url"] = "environment"
	}
	for _, a := range attributes {
		val := os.Getenv(a.env)
		if val == "" {
			continue
		}
		if err := a.set(c, val); err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, a.env, val, err)
		}
		c.sources[a.name] = "environment"
	}
	return nil
}

// ConfigFilePath returns the path to the config file
func (c *InventoryConfig) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *InventoryConfig) Source(name string) string {
	if c.sources == nil {
		return "default"
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return "default"
}

// Address returns the listen address of the ingestion API
func (c *InventoryConfig) Address() string {
	return c.BindAddress + ":" + c.Port
}

// Validate validates the configuration
func (c *InventoryConfig) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%w: database_url is required (set DATABASE_URL)", ErrInvalidConfig)
	}

	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("%w: database_driver must be %s or %s, got %q", ErrInvalidConfig, DriverPostgres, DriverSQLite, c.DatabaseDriver)
	}

	if c.StatementTimeout <= 0 {
		return fmt.Errorf("%w: statement_timeout must be positive", ErrInvalidConfig)
	}
	if c.AuditTimeout < c.StatementTimeout {
		return fmt.Errorf("%w: audit_timeout must not be shorter than statement_timeout", ErrInvalidConfig)
	}

	if p, err := strconv.Atoi(c.Port); err != nil || p < 0 || p > 65535 {
		return fmt.Errorf("%w: invalid port %q", ErrInvalidConfig, c.Port)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: invalid log_level %q", ErrInvalidConfig, c.LogLevel)
	}

	switch c.TriggerMode {
	case TriggerAuto, TriggerShell:
	case TriggerSaltAPI:
		if c.SaltAPIURL == "" {
			return fmt.Errorf("%w: trigger_mode %s requires salt_api_url", ErrInvalidConfig, TriggerSaltAPI)
		}
	default:
		return fmt.Errorf("%w: invalid trigger_mode %q", ErrInvalidConfig, c.TriggerMode)
	}

	if c.SaltAPIURL != "" {
		if u, err := url.Parse(c.SaltAPIURL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: invalid salt_api_url %q", ErrInvalidConfig, c.SaltAPIURL)
		}
	}

	if c.TriggerTimeout <= 0 {
		return fmt.Errorf("%w: trigger_timeout must be positive", ErrInvalidConfig)
	}
	if c.TriggerAttempts < 1 {
		return fmt.Errorf("%w: trigger_attempts must be at least 1", ErrInvalidConfig)
	}

	return nil
}

// Attributes returns all configuration attributes with their values and sources.
// Secrets are masked and database_url has its password redacted.
func (c *InventoryConfig) Attributes() []Attribute {
	result := make([]Attribute, 0, len(attributes))
	for _, a := range attributes {
		value := a.get(c)
		switch {
		case a.secret && value != "":
			value = "********"
		case a.name == "database_url":
			value = redactURL(value)
		}
		result = append(result, Attribute{Name: a.name, Value: value, Source: c.Source(a.name)})
	}
	return result
}

// FormatText returns a text representation of the configuration
func (c *InventoryConfig) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-24s %-40s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-24s %-40s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-24s %-40s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *InventoryConfig) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
