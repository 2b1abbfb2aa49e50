package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultEnvFile is the dotenv file Load reads when present.
const DefaultEnvFile = ".env"

// envBindings maps configuration keys to the environment variables that set them.
var envBindings = map[string]string{
	"database.driver":            "TEST_DB_DRIVER",
	"database.host":              "TEST_DB_HOST",
	"database.port":              "TEST_DB_PORT",
	"database.user":              "TEST_DB_USER",
	"database.password":          "TEST_DB_PASSWORD",
	"database.name":              "TEST_DB_NAME",
	"database.sslmode":           "TEST_DB_SSLMODE",
	"database.schema_path":       "TEST_DB_SCHEMA_PATH",
	"database.truncate_on_close": "TEST_DB_TRUNCATE_ON_CLOSE",
	"database.connect_timeout":   "TEST_DB_CONNECT_TIMEOUT",
	"log.level":                  "LOG_LEVEL",
	"log.format":                 "LOG_FORMAT",
}

// Load reads configuration from the environment, seeding it from ./.env
// when that file exists. Variables already present in the environment
// take precedence over values in the file.
func Load() (*Config, error) {
	return LoadFromEnvFile(DefaultEnvFile)
}

// LoadFromEnvFile is Load with an explicit dotenv path. A missing file is not
// an error; an unreadable or malformed one is.
func LoadFromEnvFile(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Database.Port == 0 {
		cfg.Database.Port = cfg.Database.EffectivePort()
	}
	if cfg.Database.User == "" {
		cfg.Database.User = cfg.Database.EffectiveUser()
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "petcare_test")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.schema_path", "")
	v.SetDefault("database.truncate_on_close", true)
	v.SetDefault("database.connect_timeout", "5s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
