package config

import "time"

// Config holds all harness configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Log      LogConfig      `mapstructure:"log"      validate:"required"`
}

// DatabaseConfig describes the isolated test database the harness owns.
// For the sqlite driver, Name is the database file path and the network
// fields are ignored.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"   validate:"required,oneof=postgres mysql sqlite"`
	Host     string `mapstructure:"host"     validate:"required_unless=Driver sqlite"`
	Port     int    `mapstructure:"port"     validate:"gte=0,lt=65536"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"     validate:"required"`
	SSLMode  string `mapstructure:"sslmode"  validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`

	// SchemaPath overrides the embedded schema for the configured driver.
	SchemaPath string `mapstructure:"schema_path"`

	// TruncateOnClose empties every table when a session ends.
	TruncateOnClose bool `mapstructure:"truncate_on_close"`

	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"gt=0"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// Default ports and users per driver, used when none is configured.
const (
	DefaultPostgresPort = 5432
	DefaultMySQLPort    = 3306

	DefaultPostgresUser = "postgres"
	DefaultMySQLUser    = "root"
)

// EffectivePort returns the configured port or the driver's default.
func (c DatabaseConfig) EffectivePort() int {
	if c.Port != 0 {
		return c.Port
	}
	switch c.Driver {
	case "mysql":
		return DefaultMySQLPort
	case "postgres":
		return DefaultPostgresPort
	}
	return 0
}

// EffectiveUser returns the configured user or the driver's superuser.
func (c DatabaseConfig) EffectiveUser() string {
	if c.User != "" {
		return c.User
	}
	switch c.Driver {
	case "mysql":
		return DefaultMySQLUser
	case "postgres":
		return DefaultPostgresUser
	}
	return ""
}
