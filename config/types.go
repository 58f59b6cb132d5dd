package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	Gallery GalleryConfig `mapstructure:"gallery"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Filters FilterConfig  `mapstructure:"filters"`
	Safety  SafetyConfig  `mapstructure:"safety"`
	Logging LoggingConfig `mapstructure:"logging"`

	// Path is the file the configuration was read from, or where Save writes
	// when no file existed.
	Path string `mapstructure:"-"`
}

// GalleryConfig holds the Gallery 3 connection details
type GalleryConfig struct {
	Host     string        `mapstructure:"host"`
	APIKey   string        `mapstructure:"api_key"`
	Username string        `mapstructure:"username"`
	BasePath string        `mapstructure:"base_path"`
	Port     int           `mapstructure:"port"`
	SSL      bool          `mapstructure:"ssl"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// UploadConfig controls how local files are sent to the gallery
type UploadConfig struct {
	SpaceReplacement string `mapstructure:"space_replacement"`
	ExifDescription  bool   `mapstructure:"exif_description"`
	Concurrency      int    `mapstructure:"concurrency"`
	Recursive        bool   `mapstructure:"recursive"`
}

// FilterConfig maps saved search names to filter expressions
type FilterConfig map[string]string

// SafetyConfig contains safety-related settings
type SafetyConfig struct {
	DryRun        bool `mapstructure:"dry_run"`
	ConfirmDelete bool `mapstructure:"confirm_delete"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
