package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads config.toml from the
// given directory (if any), and binds environment variables with the
// NEWSCUSS_ prefix.
//
// Config precedence (highest to lowest):
//  1. Environment variables (NEWSCUSS_API_LISTEN, NEWSCUSS_ENGINE_TARGET, ...)
//  2. config.toml file values
//  3. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	} else {
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("NEWSCUSS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("api.listen", d.API.Listen)

	v.SetDefault("engine.target", d.Engine.Target)
	v.SetDefault("engine.stream_timeout", d.Engine.StreamTimeout.Duration)

	v.SetDefault("session.sweep_interval", d.Session.SweepInterval.Duration)
	v.SetDefault("session.max_idle", d.Session.MaxIdle.Duration)
}

// FromViper materializes a Config from a viper instance prepared by
// InitViper.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		Engine: EngineConfig{
			Target:        v.GetString("engine.target"),
			StreamTimeout: Duration{v.GetDuration("engine.stream_timeout")},
		},
		Session: SessionConfig{
			SweepInterval: Duration{v.GetDuration("session.sweep_interval")},
			MaxIdle:       Duration{v.GetDuration("session.max_idle")},
		},
	}
}
