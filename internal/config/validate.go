package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Providers lists the supported completion provider names.
var Providers = []string{"gemini", "genai", "claude", "openai", "ollama"}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	// Gateway
	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Gateway.Port),
		})
	}

	validBinds := []string{"auto", "lan", "loopback", "custom"}
	if cfg.Gateway.Bind != "" && !slices.Contains(validBinds, cfg.Gateway.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Gateway.Bind),
		})
	}

	if cfg.Gateway.WriteTimeoutSeconds > 0 && cfg.Gateway.WriteTimeoutSeconds <= cfg.Provider.TimeoutSeconds {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.writeTimeoutSeconds",
			Message: fmt.Sprintf("must exceed provider.timeoutSeconds (%d), got %d", cfg.Provider.TimeoutSeconds, cfg.Gateway.WriteTimeoutSeconds),
		})
	}

	// Provider
	if !slices.Contains(Providers, cfg.Provider.Name) {
		issues = append(issues, ValidationIssue{
			Path:    "provider.name",
			Message: fmt.Sprintf("must be one of %v, got %q", Providers, cfg.Provider.Name),
		})
	}
	if cfg.Provider.Name != "ollama" && cfg.Provider.APIKey == "" {
		issues = append(issues, ValidationIssue{
			Path:    "provider.apiKey",
			Message: "required (except for ollama)",
		})
	}
	if cfg.Provider.Model == "" {
		issues = append(issues, ValidationIssue{
			Path:    "provider.model",
			Message: "required",
		})
	}
	if cfg.Provider.MaxTokens < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "provider.maxTokens",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Provider.MaxTokens),
		})
	}
	if t := cfg.Provider.Temperature; t != nil && (*t < 0 || *t > 2) {
		issues = append(issues, ValidationIssue{
			Path:    "provider.temperature",
			Message: fmt.Sprintf("must be between 0 and 2, got %g", *t),
		})
	}
	if cfg.Provider.TimeoutSeconds < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "provider.timeoutSeconds",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Provider.TimeoutSeconds),
		})
	}

	// Session
	if cfg.Session.TTLMinutes < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "session.ttlMinutes",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Session.TTLMinutes),
		})
	}
	if cfg.Session.MaxSessions < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "session.maxSessions",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Session.MaxSessions),
		})
	}
	validPolicies := []string{"keep", "rollback"}
	if cfg.Session.OnProviderFailure != "" && !slices.Contains(validPolicies, cfg.Session.OnProviderFailure) {
		issues = append(issues, ValidationIssue{
			Path:    "session.onProviderFailure",
			Message: fmt.Sprintf("must be one of %v, got %q", validPolicies, cfg.Session.OnProviderFailure),
		})
	}

	// Logging
	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}
	validConsoleStyles := []string{"pretty", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	return issues
}
