// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	defaultJWTSecret          = "your-secret-key-change-in-production"
	defaultSupervisorPassword = "generasia"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	StoreDriver     string `mapstructure:"STORE_DRIVER"`
	StoreQuotaBytes int64  `mapstructure:"STORE_QUOTA_BYTES"`
	StoreNamespace  string `mapstructure:"STORE_NAMESPACE"`
	StoreCodec      string `mapstructure:"STORE_CODEC"`

	RedisURL string `mapstructure:"REDIS_URL"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`
	SQLitePath string `mapstructure:"SQLITE_PATH"`

	DBSchemaMode string `mapstructure:"DB_SCHEMA_MODE"`

	PollInterval time.Duration `mapstructure:"POLL_INTERVAL"`
	PublishDelay time.Duration `mapstructure:"PUBLISH_DELAY"`

	JWTSecret          string        `mapstructure:"JWT_SECRET"`
	SessionTTL         time.Duration `mapstructure:"SESSION_TTL"`
	SupervisorName     string        `mapstructure:"SUPERVISOR_NAME"`
	SupervisorPassword string        `mapstructure:"SUPERVISOR_PASSWORD"`

	TracingEnabled  bool   `mapstructure:"TRACING_ENABLED"`
	TracingExporter string `mapstructure:"TRACING_EXPORTER"`
	TracingEndpoint string `mapstructure:"TRACING_ENDPOINT"`

	ImageMaxUploadSizeMB int `mapstructure:"IMAGE_MAX_UPLOAD_MB"`
	ImageMaxDimension    int `mapstructure:"IMAGE_MAX_DIMENSION"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	viper.SetDefault("STORE_DRIVER", DriverMemory)
	viper.SetDefault("STORE_QUOTA_BYTES", 5*1024*1024)
	viper.SetDefault("STORE_NAMESPACE", "opcdiary")
	viper.SetDefault("STORE_CODEC", "json")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "opcdiary")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("SQLITE_PATH", "opcdiary.db")
	viper.SetDefault("DB_SCHEMA_MODE", "sql")
	viper.SetDefault("POLL_INTERVAL", "2s")
	viper.SetDefault("PUBLISH_DELAY", "800ms")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("SESSION_TTL", "24h")
	viper.SetDefault("SUPERVISOR_NAME", "daniel")
	viper.SetDefault("SUPERVISOR_PASSWORD", defaultSupervisorPassword)
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("TRACING_ENDPOINT", "localhost:4318")
	viper.SetDefault("IMAGE_MAX_UPLOAD_MB", 5)
	viper.SetDefault("IMAGE_MAX_DIMENSION", 1024)
}

func (c *Config) normalize() {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	c.StoreCodec = strings.ToLower(strings.TrimSpace(c.StoreCodec))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.DBSchemaMode = strings.ToLower(strings.TrimSpace(c.DBSchemaMode))
	c.TracingExporter = strings.ToLower(strings.TrimSpace(c.TracingExporter))
}

// IsProduction reports whether the production checks apply.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.SupervisorName == "" || c.SupervisorPassword == "" {
		return errors.New("SUPERVISOR_NAME and SUPERVISOR_PASSWORD are required")
	}

	switch c.StoreDriver {
	case DriverMemory, DriverSQLite:
	case DriverRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis store")
		}
	case DriverPostgres:
		if c.StoreCodec == "cbor" {
			// Postgres text columns reject the NUL bytes CBOR produces.
			return errors.New("STORE_CODEC=cbor is not supported with the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.StoreCodec != "json" && c.StoreCodec != "cbor" {
		return fmt.Errorf("unknown STORE_CODEC %q", c.StoreCodec)
	}
	if c.DBSchemaMode != "" && c.DBSchemaMode != "sql" && c.DBSchemaMode != "auto" {
		return fmt.Errorf("unknown DB_SCHEMA_MODE %q", c.DBSchemaMode)
	}
	if c.StoreQuotaBytes <= 0 {
		return errors.New("STORE_QUOTA_BYTES must be positive")
	}
	if c.PollInterval <= 0 {
		return errors.New("POLL_INTERVAL must be positive")
	}
	if c.ImageMaxUploadSizeMB <= 0 || c.ImageMaxDimension <= 0 {
		return errors.New("IMAGE_MAX_UPLOAD_MB and IMAGE_MAX_DIMENSION must be positive")
	}
	if c.TracingEnabled && c.TracingExporter != "stdout" && c.TracingExporter != "otlp" {
		return fmt.Errorf("unknown TRACING_EXPORTER %q", c.TracingExporter)
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.SupervisorPassword == defaultSupervisorPassword {
			return errors.New("SUPERVISOR_PASSWORD must be changed from the default value in production")
		}
		if c.StoreDriver == DriverPostgres && (c.DBPassword == "password" || c.DBPassword == "") {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.StoreDriver == DriverPostgres && (c.DBSSLMode == "disable" || c.DBSSLMode == "") {
			log.Println("WARNING: DB_SSLMODE is 'disable' in production. It is highly recommended to use SSL for database connections.")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
