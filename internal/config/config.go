// Package config loads TextureLab settings from an optional YAML file and the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nbox/texturelab/internal/crop"
	"github.com/nbox/texturelab/internal/generation"
	"github.com/nbox/texturelab/internal/imaging"
	"github.com/nbox/texturelab/internal/models"
	"github.com/nbox/texturelab/internal/storage"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Gemini     GeminiConfig     `mapstructure:"gemini" yaml:"gemini"`
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
	History    HistoryConfig    `mapstructure:"history" yaml:"history"`
	Generation GenerationConfig `mapstructure:"generation" yaml:"generation"`
	Crop       CropConfig       `mapstructure:"crop" yaml:"crop"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Material   MaterialConfig   `mapstructure:"material" yaml:"material"`
	Upload     UploadConfig     `mapstructure:"upload" yaml:"upload"`
}

// GeminiConfig holds image model settings
type GeminiConfig struct {
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`
	Model      string `mapstructure:"model" yaml:"model"`
	Resolution string `mapstructure:"resolution" yaml:"resolution"`
}

// StorageConfig holds storage settings
type StorageConfig struct {
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
}

// HistoryConfig holds history persistence settings
type HistoryConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// GenerationConfig holds sequencer settings
type GenerationConfig struct {
	Delay time.Duration `mapstructure:"delay" yaml:"delay"`
}

// CropConfig holds crop output settings
type CropConfig struct {
	OutputSize int `mapstructure:"output_size" yaml:"output_size"`
}

// ServerConfig holds HTTP settings
type ServerConfig struct {
	Port string `mapstructure:"port" yaml:"port"`
}

// MaterialConfig holds the defaults of a new project
type MaterialConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	Type string `mapstructure:"type" yaml:"type"`
}

// UploadConfig holds upload limits
type UploadConfig struct {
	MaxBytes  int64 `mapstructure:"max_bytes" yaml:"max_bytes"`
	MaxPixels int   `mapstructure:"max_pixels" yaml:"max_pixels"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to determine config directory: %w", err)
	}

	v.SetDefault("gemini.model", string(models.ModelFlash))
	v.SetDefault("gemini.resolution", string(models.Resolution1K))
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("storage.data_dir", configDir)
	v.SetDefault("history.debounce", storage.DefaultDebounce)
	v.SetDefault("generation.delay", generation.DefaultDelay)
	v.SetDefault("crop.output_size", crop.DefaultOutputSize)
	v.SetDefault("server.port", "8888")
	v.SetDefault("material.name", "nbox_texture_01")
	v.SetDefault("material.type", "Fabric")
	v.SetDefault("upload.max_bytes", 10<<20)
	v.SetDefault("upload.max_pixels", imaging.DefaultMaxPixels)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("TEXTURELAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("gemini.api_key", "TEXTURELAB_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("server.port", "TEXTURELAB_SERVER_PORT", "PORT")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the rest of the application cannot use
func (c *Config) Validate() error {
	if _, ok := models.ParseModel(c.Gemini.Model); !ok {
		return fmt.Errorf("invalid gemini.model: %s", c.Gemini.Model)
	}
	if !models.Resolution(c.Gemini.Resolution).Valid() {
		return fmt.Errorf("invalid gemini.resolution: %s", c.Gemini.Resolution)
	}
	if !models.ValidMaterial(models.Material(c.Material.Type)) {
		return fmt.Errorf("invalid material.type: %s", c.Material.Type)
	}
	if c.Crop.OutputSize < crop.MinSize {
		return fmt.Errorf("crop.output_size must be at least %d", crop.MinSize)
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes must be positive")
	}
	if c.Upload.MaxPixels <= 0 {
		return fmt.Errorf("upload.max_pixels must be positive")
	}
	return nil
}

// Model returns the configured model identifier
func (c *Config) Model() models.Model {
	m, _ := models.ParseModel(c.Gemini.Model)
	return m
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	if configDir := os.Getenv("TEXTURELAB_CONFIG_DIR"); configDir != "" {
		return configDir, nil
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "texturelab"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, ".config", "texturelab"), nil
}

// GetConfigDir returns the configuration directory (exported for other packages)
func GetConfigDir() (string, error) {
	return getConfigDir()
}
