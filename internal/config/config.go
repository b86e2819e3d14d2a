package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/udisondev/attrsys/internal/attribute"
	"github.com/udisondev/attrsys/internal/tag"
)

// Sim holds all configuration for the attrsim daemon.
type Sim struct {
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	// Modifier catalog (YAML), see internal/data.
	CatalogPath string `yaml:"catalog_path" env:"CATALOG_PATH"`

	// Simulation
	TickInterval        time.Duration `yaml:"tick_interval" env:"TICK_INTERVAL"`
	ReplicationInterval time.Duration `yaml:"replication_interval" env:"REPLICATION_INTERVAL"`
	HistoryRetention    time.Duration `yaml:"history_retention" env:"HISTORY_RETENTION"`
	ClockSkew           float64       `yaml:"clock_skew" env:"CLOCK_SKEW"` // seconds, mirror -> authority
	Rotation            []string      `yaml:"rotation"`                    // modifier classes applied in turn, one per tick
	RegenOnStart        []string      `yaml:"regen_on_start"`              // attribute tags regenerating from the start

	// Every simulated entity starts with these attributes.
	Entities   int                        `yaml:"entities" env:"ENTITIES"`
	Attributes []attribute.FloatAttribute `yaml:"attributes"`
	Structs    []StructSeed               `yaml:"structs"`

	Metrics  MetricsConfig  `yaml:"metrics" envPrefix:"METRICS_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DB_"`
}

// StructSeed declares a struct attribute created on every entity.
type StructSeed struct {
	Tag     tag.Tag `yaml:"tag"`
	Type    string  `yaml:"type"`
	Handler string  `yaml:"handler"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Address string `yaml:"address" env:"ADDRESS"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
// When disabled, settled attributes are not persisted.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	DBName   string `yaml:"dbname" env:"NAME"`
	SSLMode  string `yaml:"sslmode" env:"SSLMODE"`
	MaxConns int32  `yaml:"max_conns" env:"MAX_CONNS"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ATTRSYS_"

// DefaultSim returns Sim config with sensible defaults.
func DefaultSim() Sim {
	return Sim{
		LogLevel:            "info",
		CatalogPath:         "config/modifiers.yaml",
		TickInterval:        time.Second,
		ReplicationInterval: 250 * time.Millisecond,
		HistoryRetention:    time.Minute,
		Entities:            2,
		Metrics: MetricsConfig{
			Address: "127.0.0.1:9120",
		},
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "attrsys",
			Password: "attrsys",
			DBName:   "attrsys",
			SSLMode:  "disable",
			MaxConns: 4,
		},
	}
}

// LoadSim loads config from a YAML file, then applies ATTRSYS_* environment
// overrides. If the file doesn't exist, defaults are used.
func LoadSim(path string) (Sim, error) {
	cfg := DefaultSim()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseEnv applies ATTRSYS_* environment variables to target.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks values that would make the daemon misbehave.
func (c Sim) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval)
	}
	if c.ReplicationInterval <= 0 {
		return fmt.Errorf("replication_interval must be positive, got %s", c.ReplicationInterval)
	}
	if c.Entities < 1 {
		return fmt.Errorf("entities must be at least 1, got %d", c.Entities)
	}
	for i, a := range c.Attributes {
		if !a.Tag.IsValid() {
			return fmt.Errorf("attributes[%d]: missing tag", i)
		}
	}
	for i, st := range c.Structs {
		if !st.Tag.IsValid() || st.Type == "" {
			return fmt.Errorf("structs[%d]: tag and type are required", i)
		}
	}
	return nil
}
