// Package config reads runtime settings from the environment and an optional
// .env file.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"fraternitybase/registry/internal/constants"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	AppEnv string

	DBDriver   string
	PGHost     string
	PGPort     string
	PGUser     string
	PGDB       string
	PGPassword string
	SQLitePath string

	EncryptionKey string
	HashKey       string
	Organization  string
	NameFallback  bool

	RedisEnabled  bool
	RedisHost     string
	RedisPort     string
	RedisPassword string

	HTTPPort     string
	ExportOutput string
}

// Load reads .env files (if present) into the process environment and then
// resolves every key through viper, so real environment variables win.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// missing files are fine
		_ = godotenv.Load(f)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		AppEnv:        v.GetString("APP_ENV"),
		DBDriver:      strings.ToLower(v.GetString("DB_DRIVER")),
		PGHost:        v.GetString("PG_HOST"),
		PGPort:        v.GetString("PG_PORT"),
		PGUser:        v.GetString("PG_USER"),
		PGDB:          v.GetString("PG_DB"),
		PGPassword:    v.GetString("PG_PASSWORD"),
		SQLitePath:    v.GetString("SQLITE_PATH"),
		EncryptionKey: v.GetString("ROSTER_ENCRYPTION_KEY"),
		HashKey:       v.GetString("ROSTER_HASH_KEY"),
		Organization:  v.GetString("ROSTER_ORGANIZATION"),
		NameFallback:  v.GetBool("ROSTER_NAME_FALLBACK"),
		RedisEnabled:  v.GetBool("REDIS_ENABLED"),
		RedisHost:     v.GetString("REDIS_HOST"),
		RedisPort:     v.GetString("REDIS_PORT"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		HTTPPort:      v.GetString("HTTP_PORT"),
		ExportOutput:  v.GetString("EXPORT_OUTPUT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("PG_HOST", "localhost")
	v.SetDefault("PG_PORT", "5432")
	v.SetDefault("SQLITE_PATH", "registry.db")
	v.SetDefault("ROSTER_ORGANIZATION", constants.DefaultOrganization)
	v.SetDefault("ROSTER_NAME_FALLBACK", false)
	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("EXPORT_OUTPUT", "travel_map_data.json")
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.EncryptionKey) == "" {
		return fmt.Errorf("%w: ROSTER_ENCRYPTION_KEY is required", constants.ErrValidation)
	}
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("%w: unsupported DB_DRIVER %q", constants.ErrValidation, c.DBDriver)
	}
	if strings.TrimSpace(c.Organization) == "" {
		return fmt.Errorf("%w: ROSTER_ORGANIZATION must not be empty", constants.ErrValidation)
	}
	return nil
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == DriverSQLite {
		return c.SQLitePath
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDB)
}

// RedisAddr is host:port for the Redis client.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "prod" || c.AppEnv == "production"
}
