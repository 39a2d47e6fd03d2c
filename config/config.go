// Package config implements the Config Loader (SPEC_FULL.md §4.9):
// binds EngineConfig from an optional YAML file and environment
// variables, environment always overriding the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// ListenerConfig is one entry of EngineConfig.Listeners, mirroring
// spec.md §6's listener configuration shape.
type ListenerConfig struct {
	Host   string `mapstructure:"host"`
	Port   string `mapstructure:"port"`
	Prefix string `mapstructure:"prefix"`
	Secure bool   `mapstructure:"secure"`
	Cert   string `mapstructure:"cert"`
	Key    string `mapstructure:"key"`
	// Redirect is the optional plaintext port (spec.md §3/§6's
	// "redirect-port") that 301-redirects to this listener when Secure.
	Redirect string `mapstructure:"redirect-port"`
}

// EngineConfig is SPEC_FULL.md §3's expansion: the bound, immutable
// configuration for one engine instance.
type EngineConfig struct {
	Listeners     []ListenerConfig `mapstructure:"listeners"`
	Debug         bool             `mapstructure:"debug"`
	BodySizeLimit int64            `mapstructure:"bodySizeLimit"`
}

const defaultBodySizeLimit = 100 << 20 // matches router.defaultMaxBodyBytes

// Load reads EngineConfig from the YAML file at path (if path is ""
// or the file doesn't exist, the file is skipped entirely) layered
// under environment variables, which always win (SPEC_FULL.md §4.9).
//
// Recognised environment variables: PORT (overrides the first
// listener's port — spec.md §6's "PORT (default port)"), WIKIHOST_DEBUG,
// WIKIHOST_PREFIX (overrides the first listener's prefix).
func Load(path string) (*EngineConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("wikihost")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("bodySizeLimit", int64(defaultBodySizeLimit))
	v.SetDefault("debug", false)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config: reading %s: %w", path, err)
			}
		}
	}

	var cfg EngineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	applyEnvOverrides(&cfg)

	if len(cfg.Listeners) == 0 {
		cfg.Listeners = []ListenerConfig{{}}
	}

	return &cfg, nil
}

// applyEnvOverrides layers the few environment variables spec.md §6
// names directly on top of whatever viper already bound (file values or
// WIKIHOST_*-prefixed env vars), since PORT and WIKIHOST_PREFIX target a
// specific listener slot rather than a flat EngineConfig field.
func applyEnvOverrides(cfg *EngineConfig) {
	if port := os.Getenv("PORT"); port != "" {
		ensureListener(cfg)
		cfg.Listeners[0].Port = port
	}
	if debug, ok := os.LookupEnv("WIKIHOST_DEBUG"); ok {
		cfg.Debug = debug == "1" || strings.EqualFold(debug, "true")
	}
	if prefix, ok := os.LookupEnv("WIKIHOST_PREFIX"); ok {
		ensureListener(cfg)
		cfg.Listeners[0].Prefix = prefix
	}
}

func ensureListener(cfg *EngineConfig) {
	if len(cfg.Listeners) == 0 {
		cfg.Listeners = append(cfg.Listeners, ListenerConfig{})
	}
}
