// Package config loads emvqr settings from YAML with EMVQR_ environment
// overrides.
package config

import (
	"fmt"
	"regexp"
	"time"

	"emvqr/internal/registry"
	"emvqr/internal/storage"
)

// Config is the full emvqr configuration.
type Config struct {
	Log        LogConfig      `yaml:"log" mapstructure:"log"`
	Policy     PolicyConfig   `yaml:"policy" mapstructure:"policy"`
	API        APIConfig      `yaml:"api" mapstructure:"api"`
	Render     RenderConfig   `yaml:"render" mapstructure:"render"`
	SQLite     SQLiteConfig   `yaml:"sqlite" mapstructure:"sqlite"`
	Postgres   DatabaseConfig `yaml:"postgres" mapstructure:"postgres"`
	ClickHouse DatabaseConfig `yaml:"clickhouse" mapstructure:"clickhouse"`
	NATS       NATSConfig     `yaml:"nats" mapstructure:"nats"`
}

// LogConfig selects the zerolog level and output format.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // console or json
}

// PolicyConfig holds the deployment expectations the validator checks against.
type PolicyConfig struct {
	Country          string `yaml:"country" mapstructure:"country"`
	Currency         string `yaml:"currency" mapstructure:"currency"`
	AccountLength    int    `yaml:"account_length" mapstructure:"account_length"`
	ReferencePattern string `yaml:"reference_pattern" mapstructure:"reference_pattern"`
	HexRuns          bool   `yaml:"hex_runs" mapstructure:"hex_runs"` // flag bare hex runs without a 62/05 match
}

// APIConfig configures the REST server.
type APIConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	AuthEnabled bool     `yaml:"auth_enabled" mapstructure:"auth_enabled"`
	APIKeys     []string `yaml:"api_keys" mapstructure:"api_keys"`
}

// RenderConfig configures bitmap regeneration after a repair.
type RenderConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Scale   int           `yaml:"scale" mapstructure:"scale"`
}

// SQLiteConfig configures the local check history.
type SQLiteConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// DatabaseConfig configures a server-side database connection.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Database string `yaml:"database" mapstructure:"database"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
}

// NATSConfig configures the payment-record feed.
type NATSConfig struct {
	URL           string `yaml:"url" mapstructure:"url"`
	Subject       string `yaml:"subject" mapstructure:"subject"`
	ResultSubject string `yaml:"result_subject" mapstructure:"result_subject"`
	Queue         string `yaml:"queue" mapstructure:"queue"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	st := storage.DefaultConfig()
	p := registry.DefaultPolicy()

	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Policy: PolicyConfig{
			Country:          p.Country,
			Currency:         p.Currency,
			AccountLength:    p.AccountLength,
			ReferencePattern: registry.DefaultReferencePattern.String(),
		},
		API: APIConfig{
			Port: 8080,
		},
		Render: RenderConfig{
			Enabled: true,
			Timeout: 5 * time.Second,
			Scale:   8,
		},
		SQLite: SQLiteConfig{
			Enabled: st.SQLite.Enabled,
			Path:    st.SQLite.Path,
		},
		Postgres: DatabaseConfig{
			Host:     st.Postgres.Host,
			Port:     st.Postgres.Port,
			Database: st.Postgres.Database,
			User:     st.Postgres.User,
			Password: st.Postgres.Password,
		},
		ClickHouse: DatabaseConfig{
			Host:     st.ClickHouse.Host,
			Port:     st.ClickHouse.Port,
			Database: st.ClickHouse.Database,
			User:     st.ClickHouse.User,
			Password: st.ClickHouse.Password,
		},
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			Subject:       "payments.qr.check",
			ResultSubject: "payments.qr.checked",
			Queue:         "emvqr",
		},
	}
}

// ValidationPolicy builds the validator policy. An empty reference pattern
// keeps the built-in one.
func (c *Config) ValidationPolicy() (registry.Policy, error) {
	p := registry.DefaultPolicy()
	p.Country = c.Policy.Country
	p.Currency = c.Policy.Currency
	p.AccountLength = c.Policy.AccountLength
	p.HexRuns = c.Policy.HexRuns

	if c.Policy.ReferencePattern != "" && c.Policy.ReferencePattern != registry.DefaultReferencePattern.String() {
		re, err := regexp.Compile(c.Policy.ReferencePattern)
		if err != nil {
			return p, fmt.Errorf("policy.reference_pattern: %w", err)
		}
		p.ReferencePattern = re
	}
	return p, nil
}

// Storage converts the database sections into storage settings.
func (c *Config) Storage() storage.Config {
	return storage.Config{
		SQLite: storage.SQLiteConfig{
			Enabled: c.SQLite.Enabled,
			Path:    c.SQLite.Path,
		},
		Postgres: storage.PostgresConfig{
			Enabled:  c.Postgres.Enabled,
			Host:     c.Postgres.Host,
			Port:     c.Postgres.Port,
			Database: c.Postgres.Database,
			User:     c.Postgres.User,
			Password: c.Postgres.Password,
		},
		ClickHouse: storage.ClickHouseConfig{
			Enabled:  c.ClickHouse.Enabled,
			Host:     c.ClickHouse.Host,
			Port:     c.ClickHouse.Port,
			Database: c.ClickHouse.Database,
			User:     c.ClickHouse.User,
			Password: c.ClickHouse.Password,
		},
	}
}
