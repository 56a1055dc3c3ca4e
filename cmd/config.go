package cmd

import (
	"errors"
	"fmt"
	"strings"

	"db-transfer/internal/dialect"
	"db-transfer/internal/engine"
	"db-transfer/internal/gateway"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
)

// SourceConfig is one entry of the sources list.
type SourceConfig struct {
	Name   string `mapstructure:"name"`
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Schema string `mapstructure:"schema"`
	Active *bool  `mapstructure:"active"` // omitted means active
}

func (s SourceConfig) IsActive() bool {
	return s.Active == nil || *s.Active
}

type SettingsConfig struct {
	BatchSize      int      `mapstructure:"batch_size"`
	Workers        int      `mapstructure:"workers"`
	Tables         []string `mapstructure:"tables"`
	ConnectRetries int      `mapstructure:"connect_retries"`
}

type Config struct {
	Sources     []SourceConfig           `mapstructure:"sources"`
	Destination gateway.ClickHouseConfig `mapstructure:"destination"`
	Settings    SettingsConfig           `mapstructure:"settings"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("destination.host", "127.0.0.1")
	v.SetDefault("destination.port", 9000)
	v.SetDefault("destination.database", "default")
	v.SetDefault("destination.username", "default")
	v.SetDefault("destination.password", "")
	v.SetDefault("destination.secure", false)
	v.SetDefault("destination.skip_verify", false)
	v.SetDefault("destination.cluster", "")
	v.SetDefault("destination.compress", true)
	v.SetDefault("destination.block_size", gateway.DefaultBlockSize)
	v.SetDefault("destination.read_timeout", 300)
	v.SetDefault("destination.write_timeout", 1800)

	v.SetDefault("settings.batch_size", engine.DefaultBatchSize)
	v.SetDefault("settings.workers", 1)
	v.SetDefault("settings.tables", []string{})
	v.SetDefault("settings.connect_retries", 3)
}

// LoadConfig decodes and validates the configuration held by v.
func LoadConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks everything a run needs before any connection is opened.
func (c *Config) Validate() error {
	var errs []error

	active := c.ActiveSources()
	if len(active) == 0 {
		errs = append(errs, fmt.Errorf("no active source found in config"))
	}

	seen := make(map[string]bool)
	for i, src := range active {
		label := src.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
			errs = append(errs, fmt.Errorf("source %s: name is required", label))
		}
		if strings.ContainsAny(src.Name, ":,") {
			errs = append(errs, fmt.Errorf("source %s: name cannot contain ':' or ','", label))
		}
		if seen[strings.ToLower(src.Name)] {
			errs = append(errs, fmt.Errorf("source %s: duplicate name", label))
		}
		seen[strings.ToLower(src.Name)] = true

		if !dialect.Supported(src.Driver) {
			errs = append(errs, fmt.Errorf("source %s: unsupported driver %q", label, src.Driver))
		}
		if src.DSN == "" {
			errs = append(errs, fmt.Errorf("source %s: dsn is required", label))
			continue
		}
		if dialect.DriverName(src.Driver) == "mysql" {
			if err := checkMysqlDSN(src); err != nil {
				errs = append(errs, fmt.Errorf("source %s: %w", label, err))
			}
		}
	}

	if c.Destination.Host == "" {
		errs = append(errs, fmt.Errorf("destination.host is required"))
	}
	if c.Destination.Database == "" {
		errs = append(errs, fmt.Errorf("destination.database is required"))
	}
	if c.Settings.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("settings.batch_size must be positive, got %d", c.Settings.BatchSize))
	}
	if block := c.Destination.EffectiveBlockSize(); c.Settings.BatchSize > block {
		errs = append(errs, fmt.Errorf("settings.batch_size %d exceeds destination.block_size %d: a failed batch would leave rows behind",
			c.Settings.BatchSize, block))
	}
	if c.Settings.Workers < 1 {
		errs = append(errs, fmt.Errorf("settings.workers must be at least 1, got %d", c.Settings.Workers))
	}
	if c.Settings.ConnectRetries < 0 {
		errs = append(errs, fmt.Errorf("settings.connect_retries cannot be negative"))
	}

	return errors.Join(errs...)
}

// checkMysqlDSN rejects DSNs that select no database when no schema is
// configured either, since MySQL's schema is the database.
func checkMysqlDSN(src SourceConfig) error {
	parsed, err := mysql.ParseDSN(src.DSN)
	if err != nil {
		return fmt.Errorf("invalid mysql dsn: %w", err)
	}
	if parsed.DBName == "" && src.Schema == "" {
		return fmt.Errorf("no database selected in DSN")
	}
	return nil
}

func (c *Config) ActiveSources() []SourceConfig {
	var active []SourceConfig
	for _, src := range c.Sources {
		if src.IsActive() {
			active = append(active, src)
		}
	}
	return active
}

// SourceSpecs converts the active sources for engine.Connect.
func (c *Config) SourceSpecs() []engine.SourceSpec {
	active := c.ActiveSources()
	specs := make([]engine.SourceSpec, 0, len(active))
	for _, src := range active {
		specs = append(specs, engine.SourceSpec{
			Name:   src.Name,
			Driver: src.Driver,
			DSN:    src.DSN,
			Schema: src.Schema,
		})
	}
	return specs
}
