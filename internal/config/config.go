// Package config handles configuration management using Viper
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Backend  BackendConfig  `mapstructure:"backend"`
	Keyboard KeyboardConfig `mapstructure:"keyboard"`
	Portal   PortalConfig   `mapstructure:"portal"`
	Capture  CaptureConfig  `mapstructure:"capture"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// BackendConfig controls virtual device backend selection
type BackendConfig struct {
	ForcePortal bool `mapstructure:"force_portal"` // Skip the compositor protocols entirely
}

// KeyboardConfig contains typing settings
type KeyboardConfig struct {
	Layout   string `mapstructure:"layout"`    // Keymap used for typing and the native keymap blob
	KeyDelay int    `mapstructure:"key_delay"` // Milliseconds between keys
	KeyHold  int    `mapstructure:"key_hold"`  // Milliseconds a key stays down
}

// PortalConfig contains RemoteDesktop portal settings
type PortalConfig struct {
	Persist      bool   `mapstructure:"persist"`       // Ask the portal to remember the grant
	RestoreToken string `mapstructure:"restore_token"` // Token handed back by a persistent session
}

// CaptureConfig contains screen-cast stream negotiation settings
type CaptureConfig struct {
	NegotiationTimeout int `mapstructure:"negotiation_timeout"` // Seconds, 0 waits forever
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	LogLevel string `mapstructure:"log_level"` // Override LOG_LEVEL env var
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Backend: BackendConfig{
			ForcePortal: false,
		},
		Keyboard: KeyboardConfig{
			Layout:   "us",
			KeyDelay: 20,
			KeyHold:  20,
		},
		Portal: PortalConfig{
			Persist:      false,
			RestoreToken: "",
		},
		Capture: CaptureConfig{
			NegotiationTimeout: 30,
		},
		Logging: LoggingConfig{
			LogLevel: "", // Empty means use LOG_LEVEL env var
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("waydo")
	viper.SetConfigType("toml")

	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			viper.AddConfigPath(filepath.Join(xdg, "waydo"))
		}
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "waydo"))
		}
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("WAYDO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	// The short form predates the config file
	if err := viper.BindEnv("backend.force_portal", "WAYDO_FORCE_PORTAL", "WAYDO_BACKEND_FORCE_PORTAL"); err != nil {
		return fmt.Errorf("failed to bind environment: %w", err)
	}

	viper.SetDefault("backend.force_portal", DefaultConfig.Backend.ForcePortal)

	viper.SetDefault("keyboard.layout", DefaultConfig.Keyboard.Layout)
	viper.SetDefault("keyboard.key_delay", DefaultConfig.Keyboard.KeyDelay)
	viper.SetDefault("keyboard.key_hold", DefaultConfig.Keyboard.KeyHold)

	viper.SetDefault("portal.persist", DefaultConfig.Portal.Persist)
	viper.SetDefault("portal.restore_token", DefaultConfig.Portal.RestoreToken)

	viper.SetDefault("capture.negotiation_timeout", DefaultConfig.Capture.NegotiationTimeout)

	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(configPathOverride != "" && os.IsNotExist(err)) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	return nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		d := DefaultConfig
		return &d
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// Save saves the current configuration to file
func Save() error {
	configPath := GetConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Update replaces the keyboard, portal and capture sections and writes the file.
func Update(c Config) error {
	viper.Set("backend.force_portal", c.Backend.ForcePortal)
	viper.Set("keyboard.layout", c.Keyboard.Layout)
	viper.Set("keyboard.key_delay", c.Keyboard.KeyDelay)
	viper.Set("keyboard.key_hold", c.Keyboard.KeyHold)
	viper.Set("portal.persist", c.Portal.Persist)
	viper.Set("capture.negotiation_timeout", c.Capture.NegotiationTimeout)
	viper.Set("logging.log_level", c.Logging.LogLevel)

	if cfg == nil {
		cfg = &Config{}
	}
	*cfg = c
	return Save()
}

// SaveRestoreToken persists the token returned by a persistent portal session.
func SaveRestoreToken(token string) error {
	if token == "" || token == Get().Portal.RestoreToken {
		return nil
	}
	viper.Set("portal.restore_token", token)
	if cfg != nil {
		cfg.Portal.RestoreToken = token
	}
	return Save()
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "waydo", "waydo.toml")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "waydo.toml"
	}

	return filepath.Join(home, ".config", "waydo", "waydo.toml")
}
