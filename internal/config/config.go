// Package config loads chunkmap's configuration from file and environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Build  BuildConfig  `mapstructure:"build"`
	Mirror MirrorConfig `mapstructure:"mirror"`
	Debug  bool         `mapstructure:"debug"`
}

// BuildConfig contains the client build and manifest emission settings
type BuildConfig struct {
	ProjectDir string   `mapstructure:"project_dir"`
	AppDir     string   `mapstructure:"app_dir"`
	OutDir     string   `mapstructure:"out_dir"`
	Entries    []string `mapstructure:"entries"`
	Production bool     `mapstructure:"production"`

	// SSRManifest and EdgeSSRManifest point at the id tables exported by
	// the sibling SSR builds, keyed by normalized relative module path.
	SSRManifest     string `mapstructure:"ssr_manifest"`
	EdgeSSRManifest string `mapstructure:"edge_ssr_manifest"`
}

// MirrorConfig maps an internal library subtree to its alternate-build
// variant path. Both fields must be set together.
type MirrorConfig struct {
	Subtree string `mapstructure:"subtree"`
	Variant string `mapstructure:"variant"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	viper.SetConfigName("chunkmap")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("CHUNKMAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file (if it exists)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("No config file found, using environment variables and defaults")
	} else {
		log.Info().Str("file", viper.ConfigFileUsed()).Msg("Config file loaded")
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads environment variables from .env file
func loadEnvFile() error {
	locations := []string{
		".env",
		".env.local",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			if err := godotenv.Load(location); err != nil {
				return fmt.Errorf("error loading .env file from %s: %w", location, err)
			}
			log.Info().Str("file", location).Msg(".env file loaded")
			return nil
		}
	}

	return fmt.Errorf("no .env file found")
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("build.project_dir", ".")
	viper.SetDefault("build.app_dir", "app")
	viper.SetDefault("build.out_dir", "dist")
	viper.SetDefault("build.production", false)

	viper.SetDefault("debug", false)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Build.ProjectDir == "" {
		return fmt.Errorf("build.project_dir must not be empty")
	}
	if c.Build.OutDir == "" {
		return fmt.Errorf("build.out_dir must not be empty")
	}
	if (c.Mirror.Subtree == "") != (c.Mirror.Variant == "") {
		return fmt.Errorf("mirror.subtree and mirror.variant must be set together")
	}
	return nil
}
