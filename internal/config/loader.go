package config

import (
	"bytes"
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

// providerKeyEnv names the conventional API key variable for each provider.
var providerKeyEnv = map[string]string{
	"gemini": "GEMINI_API_KEY",
	"genai":  "GEMINI_API_KEY",
	"claude": "ANTHROPIC_API_KEY",
	"openai": "OPENAI_API_KEY",
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return Defaults(), err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Defaults(), &ConfigError{Message: "failed to parse config: " + err.Error()}
		}
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	resolveAPIKey(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// CheckRaw reports whether a generic map decodes cleanly into Config.
// Unknown keys and mistyped values are errors.
func CheckRaw(raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return &ConfigError{Message: "invalid config: " + err.Error()}
	}
	return nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = DefaultPort
	}
	if cfg.Gateway.Bind == "" {
		cfg.Gateway.Bind = "loopback"
	}
	if cfg.Gateway.ReadTimeoutSeconds == 0 {
		cfg.Gateway.ReadTimeoutSeconds = 30
	}

	if cfg.Provider.Name == "" {
		cfg.Provider.Name = DefaultProvider
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = defaultModels[cfg.Provider.Name]
	}
	if cfg.Provider.MaxTokens == 0 {
		cfg.Provider.MaxTokens = DefaultMaxTokens
	}
	if cfg.Provider.Temperature == nil {
		t := DefaultTemperature
		cfg.Provider.Temperature = &t
	}
	if cfg.Provider.TimeoutSeconds == 0 {
		cfg.Provider.TimeoutSeconds = DefaultTimeoutSeconds
	}

	// The gateway must outlive the slowest provider call.
	if cfg.Gateway.WriteTimeoutSeconds == 0 {
		cfg.Gateway.WriteTimeoutSeconds = cfg.Provider.TimeoutSeconds + 10
	}

	if cfg.Session.CleanupIntervalSeconds == 0 {
		cfg.Session.CleanupIntervalSeconds = DefaultCleanupInterval
	}
	if cfg.Session.OnProviderFailure == "" {
		cfg.Session.OnProviderFailure = DefaultFailurePolicy
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = "pretty"
	}
}

// applyEnvOverrides reads AI4CS_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AI4CS_GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = port
		}
	}
	if v := os.Getenv("AI4CS_GATEWAY_BIND"); v != "" {
		cfg.Gateway.Bind = v
	}
	if v := os.Getenv("AI4CS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("AI4CS_PROVIDER"); v != "" {
		cfg.Provider.Name = strings.ToLower(v)
	}
	if v := os.Getenv("AI4CS_MODEL"); v != "" {
		cfg.Provider.Model = v
	}
}

// resolveAPIKey expands ${VAR} references in the key and falls back to the
// provider's conventional environment variable when no key is configured.
func resolveAPIKey(cfg *Config) {
	cfg.Provider.APIKey = expandEnvVars(cfg.Provider.APIKey)
	if cfg.Provider.APIKey != "" {
		return
	}
	if name, ok := providerKeyEnv[cfg.Provider.Name]; ok {
		cfg.Provider.APIKey = os.Getenv(name)
	}
}
