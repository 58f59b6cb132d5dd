package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	appName   = "gallery3"
	envPrefix = "GALLERY3"
)

// Load loads the configuration from file and GALLERY3_* environment variables.
// A missing file is not an error: defaults and the environment still apply,
// which lets "login" bootstrap a fresh install.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, appName))
		}
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, "."+appName))
		}

		v.AddConfigPath("/etc/" + appName + "/")
	}

	usedPath := configPath
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound), errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	} else {
		usedPath = v.ConfigFileUsed()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Path = usedPath
	if cfg.Path == "" {
		cfg.Path = DefaultPath()
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// DefaultPath is where a new config file is written
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appName, "config.yaml")
	}
	return "config.yaml"
}

// SaveCredentials writes host, username and API key into the file at path,
// keeping every other setting already in it.
func SaveCredentials(path string, gallery GalleryConfig) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config: %w", err)
		}
	}

	v.Set("gallery.host", gallery.Host)
	v.Set("gallery.api_key", gallery.APIKey)
	if gallery.Username != "" {
		v.Set("gallery.username", gallery.Username)
	}
	if gallery.BasePath != "" {
		v.Set("gallery.base_path", gallery.BasePath)
	}
	if gallery.Port != 0 {
		v.Set("gallery.port", gallery.Port)
	}
	v.Set("gallery.ssl", gallery.SSL)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return os.Chmod(path, 0o600)
}

// setDefaults sets default configuration values. Every key needs a default
// for AutomaticEnv to reach it through Unmarshal.
func setDefaults(v *viper.Viper) {
	// Gallery defaults
	v.SetDefault("gallery.host", "")
	v.SetDefault("gallery.api_key", "")
	v.SetDefault("gallery.username", "")
	v.SetDefault("gallery.base_path", "/gallery3")
	v.SetDefault("gallery.port", 80)
	v.SetDefault("gallery.ssl", false)
	v.SetDefault("gallery.timeout", 30*time.Second)

	// Upload defaults
	v.SetDefault("upload.space_replacement", "_")
	v.SetDefault("upload.exif_description", false)
	v.SetDefault("upload.concurrency", 4)
	v.SetDefault("upload.recursive", true)

	// Safety defaults
	v.SetDefault("safety.dry_run", false)
	v.SetDefault("safety.confirm_delete", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks if the configuration is valid. Connection details are
// checked separately by RequireConnection since login runs without them.
func validate(cfg *Config) error {
	if cfg.Gallery.Port < 1 || cfg.Gallery.Port > 65535 {
		return fmt.Errorf("invalid gallery.port: %d", cfg.Gallery.Port)
	}
	if cfg.Gallery.Timeout <= 0 {
		return fmt.Errorf("gallery.timeout must be positive")
	}
	if strings.Contains(cfg.Gallery.Host, "://") {
		return fmt.Errorf("gallery.host must be a host name, not a URL: %s", cfg.Gallery.Host)
	}

	if cfg.Upload.Concurrency < 1 {
		return fmt.Errorf("upload.concurrency must be at least 1")
	}
	if strings.ContainsAny(cfg.Upload.SpaceReplacement, "/\\") {
		return fmt.Errorf("upload.space_replacement must not contain path separators")
	}

	for name, expression := range cfg.Filters {
		if strings.TrimSpace(expression) == "" {
			return fmt.Errorf("filter %q has an empty expression", name)
		}
	}

	// Validate logging level
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}

// RequireConnection reports whether the gallery can be reached without logging in.
func (c *Config) RequireConnection() error {
	if c.Gallery.Host == "" {
		return fmt.Errorf("gallery.host is required")
	}
	if c.Gallery.APIKey == "" || c.Gallery.APIKey == "your-api-key-here" {
		return fmt.Errorf("gallery.api_key must be set; run 'gallery3 login' to obtain one")
	}
	return nil
}
