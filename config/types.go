// Package config provides configuration management for the signalgrid runtime
package config

import (
	"time"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// String returns the string representation of Environment
func (e Environment) String() string {
	return string(e)
}

// IsValid checks if the environment is valid
func (e Environment) IsValid() bool {
	switch e {
	case EnvDevelopment, EnvTesting, EnvStaging, EnvProduction:
		return true
	default:
		return false
	}
}

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// String returns the string representation of LogLevel
func (l LogLevel) String() string {
	return string(l)
}

// IsValid checks if the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	default:
		return false
	}
}

// LogFormat represents the log output format
type LogFormat string

const (
	LogFormatConsole LogFormat = "console"
	LogFormatJSON    LogFormat = "json"
)

// String returns the string representation of LogFormat
func (f LogFormat) String() string {
	return string(f)
}

// IsValid checks if the log format is valid
func (f LogFormat) IsValid() bool {
	switch f {
	case LogFormatConsole, LogFormatJSON:
		return true
	default:
		return false
	}
}

// Config represents the complete signalgrid configuration
type Config struct {
	// Application configuration
	App AppConfig `yaml:"app" json:"app" toml:"app"`

	// Logging configuration
	Log LogConfig `yaml:"log" json:"log" toml:"log"`

	// Signal dispatch configuration
	Dispatch DispatchConfig `yaml:"dispatch" json:"dispatch" toml:"dispatch"`

	// Lua chip host configuration
	Lua LuaConfig `yaml:"lua" json:"lua" toml:"lua"`

	// Trace export configuration
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry" toml:"telemetry"`

	// Custom configurations (for user-defined services)
	Custom map[string]interface{} `yaml:"custom,omitempty" json:"custom,omitempty" toml:"custom,omitempty"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	// Application name
	Name string `yaml:"name" json:"name" toml:"name" env:"APP_NAME"`

	// Application version
	Version string `yaml:"version" json:"version" toml:"version" env:"APP_VERSION"`

	// Deployment environment
	Environment Environment `yaml:"environment" json:"environment" toml:"environment" env:"ENVIRONMENT"`

	// Debug mode
	Debug bool `yaml:"debug" json:"debug" toml:"debug" env:"DEBUG"`

	// Application description
	Description string `yaml:"description,omitempty" json:"description,omitempty" toml:"description,omitempty"`

	// Application metadata
	Metadata map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty" toml:"metadata,omitempty"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	// Log level
	Level LogLevel `yaml:"level" json:"level" toml:"level" env:"LOG_LEVEL"`

	// Log format (console, json)
	Format LogFormat `yaml:"format" json:"format" toml:"format" env:"LOG_FORMAT"`

	// Include timestamps in log records
	Timestamp bool `yaml:"timestamp" json:"timestamp" toml:"timestamp" env:"LOG_TIMESTAMP"`

	// Disable colored console output
	NoColor bool `yaml:"no_color" json:"no_color" toml:"no_color" env:"LOG_NOCOLOR"`
}

// DispatchConfig contains signal dispatch configuration
type DispatchConfig struct {
	// Log handler errors and panics
	LogFailures bool `yaml:"log_failures" json:"log_failures" toml:"log_failures" env:"DISPATCH_LOG_FAILURES"`

	// Warn about handlers slower than this threshold (zero disables)
	SlowHandlerWarn time.Duration `yaml:"slow_handler_warn" json:"slow_handler_warn" toml:"slow_handler_warn" env:"DISPATCH_SLOW_WARN"`
}

// LuaConfig contains Lua chip host configuration
type LuaConfig struct {
	// Enable the Lua chip host
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled" env:"LUA_ENABLED"`

	// Directory chip scripts are loaded from
	ScriptDir string `yaml:"script_dir" json:"script_dir" toml:"script_dir" env:"LUA_SCRIPT_DIR"`

	// Chip manifest file, resolved against ScriptDir when relative
	Manifest string `yaml:"manifest" json:"manifest" toml:"manifest" env:"LUA_MANIFEST"`
}

// TelemetryConfig contains trace export configuration
type TelemetryConfig struct {
	// Enable span export
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled" env:"OTEL_ENABLED"`

	// OTLP HTTP collector address (host:port)
	Endpoint string `yaml:"endpoint" json:"endpoint" toml:"endpoint" env:"OTEL_ENDPOINT"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "signalgrid-app",
			Version:     "1.0.0",
			Environment: EnvDevelopment,
			Debug:       false,
			Description: "signalgrid application",
		},
		Log: LogConfig{
			Level:     LogLevelInfo,
			Format:    LogFormatConsole,
			Timestamp: true,
			NoColor:   false,
		},
		Dispatch: DispatchConfig{
			LogFailures:     true,
			SlowHandlerWarn: 0,
		},
		Lua: LuaConfig{
			Enabled:   false,
			ScriptDir: "./chips",
			Manifest:  "chips.yaml",
		},
		Telemetry: TelemetryConfig{
			Enabled:  false,
			Endpoint: "",
		},
		Custom: make(map[string]interface{}),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate app config
	if c.App.Name == "" {
		return ErrInvalidAppName
	}
	if !c.App.Environment.IsValid() {
		return ErrInvalidEnvironment
	}

	// Validate log config
	if !c.Log.Level.IsValid() {
		return ErrInvalidLogLevel
	}
	if !c.Log.Format.IsValid() {
		return ErrInvalidLogFormat
	}

	// Validate dispatch config
	if c.Dispatch.SlowHandlerWarn < 0 {
		return ErrInvalidSlowWarn
	}

	// Validate lua config
	if c.Lua.Enabled && c.Lua.ScriptDir == "" {
		return ErrMissingScriptDir
	}

	return nil
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

// GetLogLevel returns the log level
func (c *Config) GetLogLevel() LogLevel {
	return c.Log.Level
}

// IsDebugEnabled returns true if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.App.Environment == EnvDevelopment
}
