package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Default values shared by Defaults and applyDefaults.
const (
	DefaultPort            = 5000
	DefaultProvider        = "gemini"
	DefaultModel           = "gemini-2.5-flash"
	DefaultMaxTokens       = 2048
	DefaultTemperature     = 0.7
	DefaultTimeoutSeconds  = 120
	DefaultCleanupInterval = 60
	DefaultFailurePolicy   = "keep"
)

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

// defaultModels maps providers to the model used when none is configured.
var defaultModels = map[string]string{
	"gemini": DefaultModel,
	"genai":  DefaultModel,
	"claude": "claude-sonnet-4-5",
	"openai": "gpt-4o-mini",
	"ollama": "llama3",
}
