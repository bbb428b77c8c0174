// Package config loads runtime settings from the environment, an optional
// .env file and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config is the complete runtime configuration.
type Config struct {
	Port    int    `mapstructure:"port"`
	Version string `mapstructure:"version"`

	StorageDriver string `mapstructure:"storage_driver"`
	DatabaseURL   string `mapstructure:"database_url"`
	AutoMigrate   bool   `mapstructure:"auto_migrate"`
	Seed          bool   `mapstructure:"seed"`

	JWTSecret    string        `mapstructure:"jwt_secret"`
	JWKSURL      string        `mapstructure:"jwks_url"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
	SecureCookie bool          `mapstructure:"secure_cookie"`
	LoginRate    float64       `mapstructure:"login_rate"`
	LoginBurst   int           `mapstructure:"login_burst"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	MinioEndpoint  string `mapstructure:"minio_endpoint"`
	MinioAccessKey string `mapstructure:"minio_access_key"`
	MinioSecretKey string `mapstructure:"minio_secret_key"`
	MinioBucket    string `mapstructure:"minio_bucket"`
	MinioUseSSL    bool   `mapstructure:"minio_use_ssl"`

	SimulatedLatency time.Duration `mapstructure:"simulated_latency"`
	ImportRowDelay   time.Duration `mapstructure:"import_row_delay"`
	ComposeTTL       time.Duration `mapstructure:"compose_ttl"`

	LogLevel string `mapstructure:"log_level"`
	LogDev   bool   `mapstructure:"log_dev"`
	LogFile  string `mapstructure:"log_file"`

	Swagger bool `mapstructure:"swagger"`
}

var keys = map[string]any{
	"port":    8080,
	"version": "1.0.0",

	"storage_driver": DriverMemory,
	"database_url":   "",
	"auto_migrate":   true,
	"seed":           true,

	"jwt_secret":    "",
	"jwks_url":      "",
	"token_ttl":     "8h",
	"secure_cookie": false,
	"login_rate":    5.0,
	"login_burst":   10,

	"redis_addr":     "",
	"redis_password": "",
	"redis_db":       0,

	"minio_endpoint":   "",
	"minio_access_key": "",
	"minio_secret_key": "",
	"minio_bucket":     "healthcrm-attachments",
	"minio_use_ssl":    false,

	"simulated_latency": "300ms",
	"import_row_delay":  "50ms",
	"compose_ttl":       "30m",

	"log_level": "info",
	"log_dev":   false,
	"log_file":  "",

	"swagger": true,
}

// Load reads the configuration. envFiles are loaded with godotenv first
// (missing files are ignored); CONFIG_FILE names an optional YAML file whose
// values the environment overrides.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, def := range keys {
		v.SetDefault(key, def)
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, err
		}
	}

	if err := v.BindEnv("config_file", "CONFIG_FILE"); err != nil {
		return nil, err
	}
	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Port))
	}
	switch c.StorageDriver {
	case DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.StorageDriver))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.ComposeTTL <= 0 {
		errs = append(errs, errors.New("COMPOSE_TTL must be positive"))
	}
	if c.SimulatedLatency < 0 || c.ImportRowDelay < 0 {
		errs = append(errs, errors.New("delays cannot be negative"))
	}
	if c.MinioEndpoint != "" && (c.MinioAccessKey == "" || c.MinioSecretKey == "") {
		errs = append(errs, errors.New("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required with MINIO_ENDPOINT"))
	}
	return errors.Join(errs...)
}
