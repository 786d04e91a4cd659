package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/kbukum/callguard/logger"
)

// DefaultsFunc sets viper defaults once files and env vars are read, so it
// can base them on loaded values.
type DefaultsFunc func(v *viper.Viper) error

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string // explicit config file path
	EnvFile    string // explicit .env file path
	EnvPrefix  string // prefix for bound environment variables
	Defaults   []DefaultsFunc
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix namespaces environment variables: with prefix "callguard"
// the key logging.level reads CALLGUARD_LOGGING_LEVEL.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// WithDefaults registers a function that sets defaults before unmarshalling.
func WithDefaults(fn DefaultsFunc) LoaderOption {
	return func(lc *LoaderConfig) { lc.Defaults = append(lc.Defaults, fn) }
}

// LoadConfig loads configuration for a service into cfg, a pointer to a
// struct with mapstructure tags. Precedence, highest first: environment
// variables (including those from the .env file), the YAML file, defaults
// registered with WithDefaults. A missing or unreadable file is logged and
// skipped.
func LoadConfig(serviceName string, cfg any, opts ...LoaderOption) error {
	lc := LoaderConfig{FileSystem: RealFileSystem{}}
	for _, opt := range opts {
		opt(&lc)
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(serviceName, lc)

	v := viper.New()
	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			logger.Warn("Failed to read config file", logger.Fields("file", files.ConfigFile, logger.FieldError, err.Error()))
		}
	}

	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			logger.Warn("Failed to load env file", logger.Fields("file", files.EnvFile, logger.FieldError, err.Error()))
		}
	}

	if err := bindEnv(v, cfg, lc.EnvPrefix); err != nil {
		return fmt.Errorf("failed to bind env for service %s: %w", serviceName, err)
	}

	for _, fn := range lc.Defaults {
		if err := fn(v); err != nil {
			return fmt.Errorf("failed to apply defaults for service %s: %w", serviceName, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for service %s: %w", serviceName, err)
	}

	logger.Debug("Config loaded", logger.Fields(
		"service", serviceName,
		"config_file", files.ConfigFile,
		"env_file", files.EnvFile,
	))
	return nil
}
