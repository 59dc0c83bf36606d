package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"dataset-service/internal/generator"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Generator   generator.Options `mapstructure:"generator"`
	CatalogPath string            `mapstructure:"catalog_path"`
	Store       StoreConfig       `mapstructure:"store"`
	Validation  ValidationConfig  `mapstructure:"validation"`
	Export      ExportConfig      `mapstructure:"export"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Server      ServerConfig      `mapstructure:"server"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// StoreConfig selects and addresses the relational store.
type StoreConfig struct {
	Driver   string         `mapstructure:"driver"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// SQLiteConfig holds the sqlite file location. ":memory:" keeps the store
// in process memory.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig holds database-related configuration
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`
	Schema   string `mapstructure:"schema"`
}

// ValidationConfig holds the validator tolerances.
type ValidationConfig struct {
	TotalTolerance    string  `mapstructure:"total_tolerance"`
	MixTolerance      float64 `mapstructure:"mix_tolerance"`
	VarianceTolerance float64 `mapstructure:"variance_tolerance"`
}

// ExportConfig controls where exchange files and reports are written.
type ExportConfig struct {
	Dir          string `mapstructure:"dir"`
	ReportFormat string `mapstructure:"report_format"`
}

// NATSConfig holds NATS configuration. An empty URL disables events.
type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Stream  string `mapstructure:"stream"`
	Subject string `mapstructure:"subject"`
}

// RedisConfig holds report cache configuration. An empty address disables
// the cache.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTL      int    `mapstructure:"ttl"` // seconds
}

// MetricsConfig holds metrics output configuration.
type MetricsConfig struct {
	TextfilePath string `mapstructure:"textfile_path"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// LoadConfig loads configuration from an optional .env file, an optional
// config file and DATASET_* environment variables, in increasing order of
// precedence. An explicit path must exist.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/dataset-service")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("DATASET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file: defaults and env vars only.
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.Generator = config.Generator.WithDefaults()

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// setDefaults registers every scalar key so env variables can override it.
// Distribution tables stay empty here and fall back to the generator
// defaults.
func setDefaults(v *viper.Viper) {
	g := generator.DefaultOptions()
	v.SetDefault("generator.seed", g.Seed)
	v.SetDefault("generator.customers", g.Customers)
	v.SetDefault("generator.orders", g.Orders)
	v.SetDefault("generator.start_date", g.StartDate)
	v.SetDefault("generator.end_date", g.EndDate)
	v.SetDefault("generator.id_width", g.IDWidth)
	v.SetDefault("generator.price_variance_fraction", g.PriceVarianceFraction)
	v.SetDefault("generator.price_variance_rate", g.PriceVarianceRate)
	v.SetDefault("generator.top_customer_fraction", g.TopCustomerFraction)
	v.SetDefault("generator.top_order_share", g.TopOrderShare)
	v.SetDefault("generator.ship_delay_min", g.ShipDelayMin)
	v.SetDefault("generator.ship_delay_max", g.ShipDelayMax)
	v.SetDefault("generator.transit_days", g.TransitDays)
	v.SetDefault("generator.seasonal_attempts", g.SeasonalAttempts)
	v.SetDefault("generator.corporate_quantity_tilt", g.CorporateQuantityTilt)
	v.SetDefault("catalog_path", "")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite.path", "techhub.db")
	v.SetDefault("store.postgres.host", "localhost")
	v.SetDefault("store.postgres.port", "5432")
	v.SetDefault("store.postgres.user", "postgres")
	v.SetDefault("store.postgres.password", "")
	v.SetDefault("store.postgres.name", "techhub")
	v.SetDefault("store.postgres.ssl_mode", "disable")
	v.SetDefault("store.postgres.schema", "techhub")

	v.SetDefault("validation.total_tolerance", "0.02")
	v.SetDefault("validation.mix_tolerance", 0.02)
	v.SetDefault("validation.variance_tolerance", 0.02)

	v.SetDefault("export.dir", "data")
	v.SetDefault("export.report_format", "json")

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.stream", "DATASET_EVENTS")
	v.SetDefault("nats.subject", "dataset")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 86400)

	v.SetDefault("metrics.textfile_path", "")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("logging.level", "info")
}

func validateConfig(config *Config) error {
	switch config.Store.Driver {
	case "sqlite":
		if config.Store.SQLite.Path == "" {
			return fmt.Errorf("store.sqlite.path is required")
		}
	case "postgres":
		if config.Store.Postgres.Host == "" || config.Store.Postgres.Name == "" {
			return fmt.Errorf("store.postgres.host and store.postgres.name are required")
		}
	default:
		return fmt.Errorf("unsupported store driver %q", config.Store.Driver)
	}

	switch config.Export.ReportFormat {
	case "json", "yaml":
	default:
		return fmt.Errorf("unsupported report format %q", config.Export.ReportFormat)
	}

	tol, err := decimal.NewFromString(config.Validation.TotalTolerance)
	if err != nil || tol.IsNegative() {
		return fmt.Errorf("validation.total_tolerance must be a non-negative amount, got %q", config.Validation.TotalTolerance)
	}
	if config.Validation.MixTolerance < 0 || config.Validation.VarianceTolerance < 0 {
		return fmt.Errorf("validation tolerances must be non-negative")
	}
	if config.Redis.TTL < 0 {
		return fmt.Errorf("redis.ttl must be non-negative")
	}

	return config.Generator.Validate()
}
