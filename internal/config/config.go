// Package config loads lineage settings from defaults, an optional YAML file
// and LINEAGE_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/roach88/lineage/internal/store"
)

// EnvPrefix is the prefix of every environment override, e.g. LINEAGE_STORAGE_BACKEND.
const EnvPrefix = "LINEAGE"

// Error codes attached to configuration errors.
const (
	CodeReadFailure  = "config.load.read_failure"
	CodeDecodeFailed = "config.load.decode_failure"
	CodeInvalidValue = "config.validate.invalid_value"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the top-level lineage configuration.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Session SessionConfig `mapstructure:"session"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Log     LogConfig     `mapstructure:"log"`
}

// StorageConfig selects and locates the backend.
type StorageConfig struct {
	Backend string      `mapstructure:"backend" validate:"oneof=sqlite badger graphdb"`
	Path    string      `mapstructure:"path" validate:"required_if=Backend sqlite"`
	Graph   GraphConfig `mapstructure:"graph"`
}

// GraphConfig addresses a Bolt server for the graphdb backend.
type GraphConfig struct {
	URI      string `mapstructure:"uri" validate:"omitempty,uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// SessionConfig describes the writer recorded with every session.
type SessionConfig struct {
	Originator string `mapstructure:"originator"`
	Program    string `mapstructure:"program"`
}

// EngineConfig tunes the engine.
type EngineConfig struct {
	Retry RetryConfig `mapstructure:"retry"`
}

// RetryConfig bounds the retry of storage conflicts.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" validate:"min=1"`
	BaseDelay   time.Duration `mapstructure:"base_delay" validate:"gt=0"`
	MaxDelay    time.Duration `mapstructure:"max_delay" validate:"gtefield=BaseDelay"`
}

// CacheConfig controls the object cache used by read commands.
type CacheConfig struct {
	Enabled    bool  `mapstructure:"enabled"`
	MaxEntries int64 `mapstructure:"max_entries" validate:"min=1"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", "lineage.db")
	v.SetDefault("storage.graph.uri", "")
	v.SetDefault("storage.graph.username", "")
	v.SetDefault("storage.graph.password", "")
	v.SetDefault("storage.graph.database", "")
	v.SetDefault("session.originator", "")
	v.SetDefault("session.program", "")
	v.SetDefault("engine.retry.max_attempts", 64)
	v.SetDefault("engine.retry.base_delay", time.Millisecond)
	v.SetDefault("engine.retry.max_delay", 100*time.Millisecond)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_entries", 10000)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
}

// SetupEnv binds LINEAGE_* variables, with "." in keys mapped to "_".
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from path (or defaults and environment only when
// path is empty) and validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, oops.Code(CodeReadFailure).In("config").With("path", path).Wrapf(err, "reading config %s", path)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the settings held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, oops.Code(CodeDecodeFailed).In("config").Wrapf(err, "decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and the cross-field rules the struct
// tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return oops.Code(CodeInvalidValue).In("config").Wrapf(err, "validating config")
		}
		for _, fe := range verrs {
			errs = append(errs, fmt.Errorf("%s: rule %q (param %q) failed for value %v",
				fieldPath(fe.Namespace()), fe.Tag(), fe.Param(), fe.Value()))
		}
	}
	if c.Storage.Backend == "graphdb" && c.Storage.Graph.URI == "" {
		errs = append(errs, errors.New("storage.graph.uri: required when storage.backend is graphdb"))
	}
	if len(errs) > 0 {
		return oops.Code(CodeInvalidValue).In("config").Wrapf(errors.Join(errs...), "validating config")
	}
	return nil
}

// StoreConfig returns the backend settings in the form store.Open takes.
func (c *Config) StoreConfig(logger *logrus.Logger) store.Config {
	return store.Config{
		Backend: c.Storage.Backend,
		Path:    c.Storage.Path,
		Graph: store.GraphConfig{
			URI:      c.Storage.Graph.URI,
			Username: c.Storage.Graph.Username,
			Password: c.Storage.Graph.Password,
			Database: c.Storage.Graph.Database,
		},
		Logger: logger,
	}
}

// NewLogger builds a logger writing to w at the configured level and format.
func (l LogConfig) NewLogger(w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return nil, oops.Code(CodeInvalidValue).In("config").With("level", l.Level).Wrapf(err, "log level")
	}
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(level)
	if l.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}
	return logger, nil
}

// fieldPath turns a validator namespace such as "Config.Storage.Backend"
// into the config key "storage.backend".
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	keys := map[string]string{
		"MaxAttempts": "max_attempts",
		"BaseDelay":   "base_delay",
		"MaxDelay":    "max_delay",
		"MaxEntries":  "max_entries",
	}
	for i, p := range parts {
		if k, ok := keys[p]; ok {
			parts[i] = k
			continue
		}
		parts[i] = strings.ToLower(p)
	}
	return strings.Join(parts, ".")
}
