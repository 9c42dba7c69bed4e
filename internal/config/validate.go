package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "server.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Server.Port),
		})
	}

	validBinds := []string{"loopback", "lan", "custom"}
	if cfg.Server.Bind != "" && !slices.Contains(validBinds, cfg.Server.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "server.bind",
			Message: fmt.Sprintf("bind must be one of %v, got %q", validBinds, cfg.Server.Bind),
		})
	}

	if cfg.Model.TopP < 0 || cfg.Model.TopP > 1 {
		issues = append(issues, ValidationIssue{
			Path:    "model.topP",
			Message: fmt.Sprintf("topP must be in [0,1], got %v", cfg.Model.TopP),
		})
	}

	if cfg.Model.Temperature < 0 || cfg.Model.Temperature > 2 {
		issues = append(issues, ValidationIssue{
			Path:    "model.temperature",
			Message: fmt.Sprintf("temperature must be in [0,2], got %v", cfg.Model.Temperature),
		})
	}

	if cfg.Gateway.MCPURL != "" {
		if !strings.HasPrefix(cfg.Gateway.MCPURL, "http://") && !strings.HasPrefix(cfg.Gateway.MCPURL, "https://") {
			issues = append(issues, ValidationIssue{
				Path:    "gateway.mcpUrl",
				Message: "must be an http(s) URL",
			})
		}
		if cfg.Gateway.OAuth.ClientID == "" || cfg.Gateway.OAuth.ClientSecret == "" || cfg.Gateway.OAuth.TokenURL == "" {
			issues = append(issues, ValidationIssue{
				Path:    "gateway.oauth",
				Message: "clientId, clientSecret and tokenUrl are required when mcpUrl is set",
			})
		}
	}

	if cfg.Store.Backend != "" && cfg.Store.Backend != "sqlite" {
		issues = append(issues, ValidationIssue{
			Path:    "store.backend",
			Message: fmt.Sprintf("unsupported backend %q", cfg.Store.Backend),
		})
	}

	if cfg.Session.TTLHours < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "session.ttlHours",
			Message: "must be positive",
		})
	}

	return issues
}
