package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Site        SiteConfig        `mapstructure:"site"`
	Preferences PreferencesConfig `mapstructure:"preferences"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// SiteConfig holds image-board connection configuration
type SiteConfig struct {
	Host     string `mapstructure:"host"`     // Board root URL, e.g. https://e926.net
	Username string `mapstructure:"username"` // Login name (also scopes the cache blob)
	APIKey   string `mapstructure:"api_key"`
}

// PreferencesConfig holds user preferences
type PreferencesConfig struct {
	HideUpvoted   bool   `mapstructure:"hide_upvoted"`
	HideDownvoted bool   `mapstructure:"hide_downvoted"`
	PageSize      int    `mapstructure:"page_size"`
	DownloadDir   string `mapstructure:"download_dir"`
	DefaultTags   string `mapstructure:"default_tags"` // initial listing query
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{},
		Preferences: PreferencesConfig{
			HideUpvoted:   false,
			HideDownvoted: true,
			PageSize:      100,
			DownloadDir:   defaultDownloadPath(),
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "favgrid", "favgrid.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "favgrid", "favgrid.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "favgrid")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "favgrid")
	}
}

// defaultCachePath returns the default cache directory for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "favgrid", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "favgrid", "cache")
	}
}

func defaultDownloadPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Downloads")
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("FAVGRID")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the current configuration to file
func SaveConfig(cfg *Config) error {
	configPath := defaultConfigPath()
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to keep snake_case key names
	viper.Set("site.host", cfg.Site.Host)
	viper.Set("site.username", cfg.Site.Username)
	viper.Set("site.api_key", cfg.Site.APIKey)

	viper.Set("preferences.hide_upvoted", cfg.Preferences.HideUpvoted)
	viper.Set("preferences.hide_downvoted", cfg.Preferences.HideDownvoted)
	viper.Set("preferences.page_size", cfg.Preferences.PageSize)
	viper.Set("preferences.download_dir", cfg.Preferences.DownloadDir)
	viper.Set("preferences.default_tags", cfg.Preferences.DefaultTags)

	viper.Set("logging.file", cfg.Logging.File)
	viper.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// IsConfigured returns true if the board host and credentials are set
func (c *Config) IsConfigured() bool {
	return c.Site.Host != "" && c.Site.Username != "" && c.Site.APIKey != ""
}

// GetCachePath returns the cache directory path
func GetCachePath() string {
	return defaultCachePath()
}
