// File: internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Env     EnvConfig     `mapstructure:"env" yaml:"env"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the browser instance that hosts the game.
type BrowserConfig struct {
	// Headless controls whether Chrome runs without a visible window.
	Headless bool `mapstructure:"headless" yaml:"headless"`
	// GamePath is the URL of the game page. When empty it defaults to a
	// file:// URL pointing at index_gym.html in the working directory.
	GamePath string `mapstructure:"game_path" yaml:"game_path"`
	// WarmupWait is how long to wait after navigation for the embedded game
	// to finish initializing before any script is evaluated against it.
	WarmupWait time.Duration `mapstructure:"warmup_wait" yaml:"warmup_wait"`
	// NavigationTimeout bounds the initial page load.
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// Args are extra Chrome flags, in "name" or "name=value" form.
	Args []string `mapstructure:"args" yaml:"args"`
}

// EnvConfig tunes the environment-facing behavior.
type EnvConfig struct {
	// SmokeSteps is the number of random actions the smoke command takes.
	SmokeSteps int `mapstructure:"smoke_steps" yaml:"smoke_steps"`
	// SmokeSeed seeds the smoke command's action sampler. Zero means
	// time-based seeding.
	SmokeSeed int64 `mapstructure:"smoke_seed" yaml:"smoke_seed"`
}

// ResolvedGamePath returns the configured game page URL, defaulting to the
// bundled game page in the current working directory.
func (b BrowserConfig) ResolvedGamePath() (string, error) {
	if b.GamePath != "" {
		return b.GamePath, nil
	}
	abs, err := filepath.Abs("index_gym.html")
	if err != nil {
		return "", fmt.Errorf("failed to resolve default game path: %w", err)
	}
	return "file://" + abs, nil
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "climbinggame")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.game_path", "")
	v.SetDefault("browser.warmup_wait", "1s")
	v.SetDefault("browser.navigation_timeout", "30s")

	// -- Env --
	v.SetDefault("env.smoke_steps", 10)
	v.SetDefault("env.smoke_seed", 0)
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Should not happen with defaults alone.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Browser.WarmupWait < 0 {
		return fmt.Errorf("browser.warmup_wait must not be negative")
	}
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be a positive duration")
	}
	if c.Env.SmokeSteps <= 0 {
		return fmt.Errorf("env.smoke_steps must be a positive integer")
	}
	return nil
}
