package scan

import "time"

// Config holds the scanning engine configuration.
type Config struct {
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	Concurrency  int           `mapstructure:"concurrency"`
	MaxRate      int           `mapstructure:"max_rate"` // probes per second, 0 = unlimited
	PingFirst    bool          `mapstructure:"ping_first"`
	PingTimeout  time.Duration `mapstructure:"ping_timeout"`
	PingCount    int           `mapstructure:"ping_count"`
}

// DefaultConfig returns the default scanning configuration.
func DefaultConfig() Config {
	return Config{
		ProbeTimeout: time.Second,
		Concurrency:  1000,
		MaxRate:      0,
		PingFirst:    true,
		PingTimeout:  2 * time.Second,
		PingCount:    1,
	}
}
