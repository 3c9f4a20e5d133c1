package config

import "time"

// Config represents the persistent newscuss configuration stored as
// config.toml. The TOML layout uses sections for logical grouping.
type Config struct {
	API     APIConfig     `toml:"api"`
	Engine  EngineConfig  `toml:"engine"`
	Session SessionConfig `toml:"session"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EngineConfig holds inference engine client settings.
type EngineConfig struct {
	// Target is the engine base URL.
	Target string `toml:"target,omitempty"`

	// StreamTimeout bounds the total duration of one streaming turn.
	StreamTimeout Duration `toml:"stream_timeout,omitempty"`
}

// SessionConfig holds session retention settings.
type SessionConfig struct {
	// SweepInterval is how often idle sessions are reaped.
	SweepInterval Duration `toml:"sweep_interval,omitempty"`

	// MaxIdle is how long a session may stay idle before it is reaped.
	MaxIdle Duration `toml:"max_idle,omitempty"`
}

// Duration wraps time.Duration so values round-trip through TOML as
// strings like "120s" or "1h".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}
