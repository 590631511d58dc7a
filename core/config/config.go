package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"asset-tracker/core/database"
	"asset-tracker/core/events"
	"asset-tracker/core/logger"
	"asset-tracker/core/server"
	"asset-tracker/core/storage"
	"asset-tracker/core/tracking"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the tracker's configuration, one section per component.
type Config struct {
	Server   server.Config   `mapstructure:"server"`
	Storage  storage.Config  `mapstructure:"storage"`
	Log      logger.Config   `mapstructure:"log"`
	Database database.Config `mapstructure:"database"`
	Tracking tracking.Config `mapstructure:"tracking"`
	Bus      events.Config   `mapstructure:"bus"`
}

// LoadConfig reads <path>/.env, overlays the environment
// (TRACKING_STORE_TIMEOUT sets tracking.store_timeout) on the struct tag
// defaults, and validates the result.
func LoadConfig(path string) (*Config, error) {
	envPath := ".env"
	if path != "." {
		envPath = path + "/.env"
	}
	// A missing .env is normal outside local development.
	_ = godotenv.Overload(envPath)

	v := viper.New()
	setDefaults(v, reflect.TypeOf(Config{}), "")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every setting the tracker cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Rooms(); err != nil {
		errs = append(errs, err)
	}
	if c.Tracking.MaxCommitAttempts < 1 {
		errs = append(errs, fmt.Errorf("tracking.max_commit_attempts must be at least 1, got %d", c.Tracking.MaxCommitAttempts))
	}
	if c.Tracking.StoreTimeout <= 0 {
		errs = append(errs, fmt.Errorf("tracking.store_timeout must be positive, got %s", c.Tracking.StoreTimeout))
	}
	if c.Tracking.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("tracking.shutdown_timeout must be positive, got %s", c.Tracking.ShutdownTimeout))
	}
	switch c.Database.Driver {
	case database.DriverMySQL, database.DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	if c.Storage.Retain < 0 {
		errs = append(errs, fmt.Errorf("storage.retain must not be negative, got %d", c.Storage.Retain))
	}
	return errors.Join(errs...)
}

// Rooms parses the configured room list.
func (c *Config) Rooms() (*tracking.Rooms, error) {
	rooms, err := tracking.ParseRooms(c.Tracking.Rooms)
	if err != nil {
		return nil, fmt.Errorf("tracking.rooms: %w", err)
	}
	return rooms, nil
}

// setDefaults registers every mapstructure key of t with its default tag so
// AutomaticEnv can resolve it. time.Duration fields are scalars.
func setDefaults(v *viper.Viper, t reflect.Type, prefix string) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := field.Tag.Get("mapstructure")
		if name == "" {
			continue
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		if field.Type.Kind() == reflect.Struct {
			setDefaults(v, field.Type, key)
			continue
		}
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
