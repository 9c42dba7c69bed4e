package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8000,
			Bind: "loopback",
		},
		Model: ModelConfig{
			Region:      "us-east-1",
			ModelID:     "amazon.nova-sonic-v1:0",
			VoiceID:     "tiffany",
			MaxTokens:   1024,
			TopP:        0.9,
			Temperature: 0.7,
		},
		Store: StoreConfig{
			Backend: "sqlite",
		},
		Session: SessionConfig{
			TTLHours:         24,
			ActiveTTLSeconds: 600,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
