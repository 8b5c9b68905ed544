package config

import "time"

// Config is the root configuration for ai4cs.
type Config struct {
	Gateway  GatewayConfig  `yaml:"gateway,omitempty"`
	Provider ProviderConfig `yaml:"provider,omitempty"`
	Session  SessionConfig  `yaml:"session,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
	Journal  JournalConfig  `yaml:"journal,omitempty"`
}

// GatewayConfig controls the HTTP/WebSocket server.
type GatewayConfig struct {
	Port                int      `yaml:"port,omitempty"`
	Bind                string   `yaml:"bind,omitempty"` // "auto" | "lan" | "loopback" | "custom"
	CustomBindHost      string   `yaml:"customBindHost,omitempty"`
	AllowedOrigins      []string `yaml:"allowedOrigins,omitempty"`
	ReadTimeoutSeconds  int      `yaml:"readTimeoutSeconds,omitempty"`
	WriteTimeoutSeconds int      `yaml:"writeTimeoutSeconds,omitempty"` // 0 derives from provider.timeoutSeconds
}

// ProviderConfig selects and tunes the completion provider.
type ProviderConfig struct {
	Name           string   `yaml:"name,omitempty"` // "gemini" | "genai" | "claude" | "openai" | "ollama"
	APIKey         string   `yaml:"apiKey,omitempty"`
	Model          string   `yaml:"model,omitempty"`
	Endpoint       string   `yaml:"endpoint,omitempty"` // base URL override
	MaxTokens      int      `yaml:"maxTokens,omitempty"`
	Temperature    *float64 `yaml:"temperature,omitempty"`
	TimeoutSeconds int      `yaml:"timeoutSeconds,omitempty"`
}

// Timeout is the upper bound for one provider call.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// SessionConfig defines consultation session retention.
type SessionConfig struct {
	// TTLMinutes evicts sessions idle for longer than this. 0 keeps sessions
	// for the life of the process.
	TTLMinutes             int    `yaml:"ttlMinutes,omitempty"`
	MaxSessions            int    `yaml:"maxSessions,omitempty"` // 0 = unbounded
	CleanupIntervalSeconds int    `yaml:"cleanupIntervalSeconds,omitempty"`
	OnProviderFailure      string `yaml:"onProviderFailure,omitempty"` // "keep" | "rollback"
}

// TTL returns the idle expiry as a duration.
func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLMinutes) * time.Minute
}

// CleanupInterval returns the sweep period as a duration.
func (s SessionConfig) CleanupInterval() time.Duration {
	return time.Duration(s.CleanupIntervalSeconds) * time.Second
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}

// JournalConfig controls the SQLite audit journal.
type JournalConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"` // defaults to true
	Path    string `yaml:"path,omitempty"`    // defaults to <data>/ai4cs.db
}

// IsEnabled reports whether the journal should be opened.
func (j JournalConfig) IsEnabled() bool {
	return j.Enabled == nil || *j.Enabled
}
