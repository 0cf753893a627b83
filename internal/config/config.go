// Package config handles corenet client configuration loading and management.
package config

import "time"

// Config holds all client settings.
type Config struct {
	Network   NetworkConfig   `yaml:"network"`
	Session   SessionConfig   `yaml:"session"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// NetworkConfig holds transport-level settings.
type NetworkConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	MaxFrameBytes  int           `yaml:"max_frame_bytes"`
	NoDelay        bool          `yaml:"no_delay"`
}

// SessionConfig holds session state machine settings.
type SessionConfig struct {
	ConnectAttempts   int           `yaml:"connect_attempts"`
	WaitBetweenMillis int           `yaml:"wait_between_attempts_ms"`
	ReconnectKeyGrace time.Duration `yaml:"reconnect_key_grace"`
}

// DiscoveryConfig holds the settings for resolving a game name to an endpoint.
type DiscoveryConfig struct {
	GameName  string `yaml:"game_name"`
	Endpoint  string `yaml:"endpoint"` // discovery document URL for an HTTPDiscoverer, empty for no discovery client
	ClassName string `yaml:"class_name"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Network: NetworkConfig{
			ConnectTimeout: 10 * time.Second,
			MaxFrameBytes:  65535,
			NoDelay:        true,
		},
		Session: SessionConfig{
			ConnectAttempts:   3,
			WaitBetweenMillis: 2000,
			ReconnectKeyGrace: 0,
		},
		Discovery: DiscoveryConfig{
			ClassName: "TCPIPUserManager",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
