package config

import "time"

const (
	defaultAPIListen     = ":8080"
	defaultEngineTarget  = "http://localhost:8000"
	defaultStreamTimeout = 120 * time.Second
	defaultSweepInterval = 30 * time.Minute
	defaultMaxIdle       = time.Hour
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Engine: EngineConfig{
			Target:        defaultEngineTarget,
			StreamTimeout: Duration{defaultStreamTimeout},
		},
		Session: SessionConfig{
			SweepInterval: Duration{defaultSweepInterval},
			MaxIdle:       Duration{defaultMaxIdle},
		},
	}
}
