package config

// Config is the root configuration for the Robin backend.
type Config struct {
	Server  ServerConfig  `yaml:"server,omitempty"`
	Model   ModelConfig   `yaml:"model,omitempty"`
	Gateway GatewayConfig `yaml:"gateway,omitempty"`
	Redis   RedisConfig   `yaml:"redis,omitempty"`
	Store   StoreConfig   `yaml:"store,omitempty"`
	Session SessionConfig `yaml:"session,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// ServerConfig controls the HTTP/WebSocket server.
type ServerConfig struct {
	Port           int      `yaml:"port,omitempty"`
	Bind           string   `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string   `yaml:"customBindHost,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// ModelConfig selects the Bedrock speech model and its inference settings.
type ModelConfig struct {
	Region      string  `yaml:"region,omitempty"`
	ModelID     string  `yaml:"modelId,omitempty"`
	VoiceID     string  `yaml:"voiceId,omitempty"`
	MaxTokens   int     `yaml:"maxTokens,omitempty"`
	TopP        float64 `yaml:"topP,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
}

// GatewayConfig points at the external tool gateway (MCP over HTTP).
type GatewayConfig struct {
	MCPURL string      `yaml:"mcpUrl,omitempty"`
	OAuth  OAuthConfig `yaml:"oauth,omitempty"`
}

// OAuthConfig holds client-credentials settings for the tool gateway.
type OAuthConfig struct {
	ClientID     string `yaml:"clientId,omitempty"`
	ClientSecret string `yaml:"clientSecret,omitempty"`
	TokenURL     string `yaml:"tokenUrl,omitempty"`
}

// RedisConfig configures the cache and session-active marker store.
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string `yaml:"backend,omitempty"` // "sqlite"
	Path    string `yaml:"path,omitempty"`    // overrides the default data-dir location
}

// SessionConfig defines session retention behavior.
type SessionConfig struct {
	TTLHours         int `yaml:"ttlHours,omitempty"`
	ActiveTTLSeconds int `yaml:"activeTtlSeconds,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
}
