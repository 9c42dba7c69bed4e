package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so secrets can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Gateway.OAuth.ClientID = expandEnvVars(cfg.Gateway.OAuth.ClientID)
	cfg.Gateway.OAuth.ClientSecret = expandEnvVars(cfg.Gateway.OAuth.ClientSecret)
	cfg.Redis.Password = expandEnvVars(cfg.Redis.Password)
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.Bind == "" {
		cfg.Server.Bind = "loopback"
	}
	if cfg.Model.Region == "" {
		cfg.Model.Region = "us-east-1"
	}
	if cfg.Model.ModelID == "" {
		cfg.Model.ModelID = "amazon.nova-sonic-v1:0"
	}
	if cfg.Model.VoiceID == "" {
		cfg.Model.VoiceID = "tiffany"
	}
	if cfg.Model.MaxTokens == 0 {
		cfg.Model.MaxTokens = 1024
	}
	if cfg.Model.TopP == 0 {
		cfg.Model.TopP = 0.9
	}
	if cfg.Model.Temperature == 0 {
		cfg.Model.Temperature = 0.7
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "sqlite"
	}
	if cfg.Session.TTLHours == 0 {
		cfg.Session.TTLHours = 24
	}
	if cfg.Session.ActiveTTLSeconds == 0 {
		cfg.Session.ActiveTTLSeconds = 600
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// applyEnvOverrides reads ROBIN_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ROBIN_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ROBIN_BIND"); v != "" {
		cfg.Server.Bind = v
	}
	if v := os.Getenv("ROBIN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("ROBIN_AWS_REGION"); v != "" {
		cfg.Model.Region = v
	}
	if v := os.Getenv("ROBIN_MODEL_ID"); v != "" {
		cfg.Model.ModelID = v
	}
	if v := os.Getenv("ROBIN_VOICE_ID"); v != "" {
		cfg.Model.VoiceID = v
	}
	if v := os.Getenv("ROBIN_GATEWAY_MCP_URL"); v != "" {
		cfg.Gateway.MCPURL = v
	}
	if v := os.Getenv("ROBIN_OAUTH_CLIENT_ID"); v != "" {
		cfg.Gateway.OAuth.ClientID = v
	}
	if v := os.Getenv("ROBIN_OAUTH_CLIENT_SECRET"); v != "" {
		cfg.Gateway.OAuth.ClientSecret = v
	}
	if v := os.Getenv("ROBIN_OAUTH_TOKEN_URL"); v != "" {
		cfg.Gateway.OAuth.TokenURL = v
	}
	if v := os.Getenv("ROBIN_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("ROBIN_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
}
