// Package config loads process-level CLI configuration: default author
// identity and tracing on/off. This is independent of a repository's own
// .telos/config.json, which is repository metadata handled directly by
// internal/repository.
package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// Config is the CLI's resolved configuration, after flags, environment
// variables, and an optional config file have been merged.
type Config struct {
	AuthorName  string `mapstructure:"author_name"`
	AuthorEmail string `mapstructure:"author_email"`
	Trace       bool   `mapstructure:"trace"`
}

// Load resolves configuration from (in increasing precedence) defaults, an
// optional config file at configPath (skipped if empty or missing),
// TELOS_*-prefixed environment variables, and v's own bound flags.
func Load(v *viper.Viper, configPath string) (Config, error) {
	v.SetDefault("author_name", "")
	v.SetDefault("author_email", "")
	v.SetDefault("trace", false)

	v.SetEnvPrefix("TELOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
