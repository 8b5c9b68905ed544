package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 5000, cfg.Gateway.Port)
	assert.Equal(t, "loopback", cfg.Gateway.Bind)
	assert.Equal(t, 130, cfg.Gateway.WriteTimeoutSeconds)
	assert.Equal(t, "gemini", cfg.Provider.Name)
	assert.Equal(t, "gemini-2.5-flash", cfg.Provider.Model)
	assert.Equal(t, 2048, cfg.Provider.MaxTokens)
	require.NotNil(t, cfg.Provider.Temperature)
	assert.InDelta(t, 0.7, *cfg.Provider.Temperature, 1e-9)
	assert.Equal(t, 2*time.Minute, cfg.Provider.Timeout())
	assert.Equal(t, time.Duration(0), cfg.Session.TTL(), "sessions never expire unless configured")
	assert.Equal(t, 0, cfg.Session.MaxSessions)
	assert.Equal(t, time.Minute, cfg.Session.CleanupInterval())
	assert.Equal(t, "keep", cfg.Session.OnProviderFailure)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Journal.IsEnabled())
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Gateway.Port)
	assert.Equal(t, "gemini", cfg.Provider.Name)
}

func TestLoadValidYAML(t *testing.T) {
	path := writeConfig(t, `
gateway:
  port: 9090
  bind: lan
  allowedOrigins:
    - http://localhost:3000
provider:
  name: claude
  apiKey: sk-test
  timeoutSeconds: 30
  temperature: 0.2
session:
  ttlMinutes: 45
  maxSessions: 500
  onProviderFailure: rollback
logging:
  level: debug
  consoleStyle: json
journal:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Gateway.Port)
	assert.Equal(t, "lan", cfg.Gateway.Bind)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Gateway.AllowedOrigins)
	assert.Equal(t, 40, cfg.Gateway.WriteTimeoutSeconds)
	assert.Equal(t, "claude", cfg.Provider.Name)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Provider.Model)
	assert.Equal(t, "sk-test", cfg.Provider.APIKey)
	assert.InDelta(t, 0.2, *cfg.Provider.Temperature, 1e-9)
	assert.Equal(t, 45*time.Minute, cfg.Session.TTL())
	assert.Equal(t, 500, cfg.Session.MaxSessions)
	assert.Equal(t, "rollback", cfg.Session.OnProviderFailure)
	assert.Equal(t, "json", cfg.Logging.ConsoleStyle)
	assert.False(t, cfg.Journal.IsEnabled())
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "gateway: [unclosed")

	_, err := Load(path)
	require.Error(t, err)
	var ce *ConfigError
	assert.ErrorAs(t, err, &ce)
}

func TestLoadExpandsAPIKeyReference(t *testing.T) {
	t.Setenv("MY_GEMINI_KEY", "from-env")
	path := writeConfig(t, `
provider:
  apiKey: ${MY_GEMINI_KEY}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Provider.APIKey)
}

func TestLoadFallsBackToVendorKeyVariable(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "vendor-key")

	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "vendor-key", cfg.Provider.APIKey)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AI4CS_GATEWAY_PORT", "7001")
	t.Setenv("AI4CS_GATEWAY_BIND", "lan")
	t.Setenv("AI4CS_LOG_LEVEL", "DEBUG")
	t.Setenv("AI4CS_PROVIDER", "ollama")
	t.Setenv("AI4CS_MODEL", "mistral")

	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 7001, cfg.Gateway.Port)
	assert.Equal(t, "lan", cfg.Gateway.Bind)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "ollama", cfg.Provider.Name)
	assert.Equal(t, "mistral", cfg.Provider.Model)
}

func TestEnvOverrideInvalidPortIgnored(t *testing.T) {
	t.Setenv("AI4CS_GATEWAY_PORT", "not-a-number")

	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Gateway.Port)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("AI4CS_TEST_VAR", "value")

	assert.Equal(t, "value", expandEnvVars("${AI4CS_TEST_VAR}"))
	assert.Equal(t, "pre-value-post", expandEnvVars("pre-${AI4CS_TEST_VAR}-post"))
	assert.Equal(t, "${AI4CS_UNSET_VAR_XYZ}", expandEnvVars("${AI4CS_UNSET_VAR_XYZ}"))
	assert.Equal(t, "plain", expandEnvVars("plain"))
}

func TestLoadRawAndSaveRaw(t *testing.T) {
	path := writeConfig(t, "gateway:\n  port: 8000\n")

	raw, err := LoadRaw(path)
	require.NoError(t, err)

	p, err := ParseConfigPath("session.ttlMinutes")
	require.NoError(t, err)
	SetValueAtPath(raw, p, 15)
	require.NoError(t, SaveRaw(path, raw))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Gateway.Port)
	assert.Equal(t, 15, cfg.Session.TTLMinutes)
}

func TestCheckRaw(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]any
		wantErr bool
	}{
		{"empty", map[string]any{}, false},
		{"known keys", map[string]any{"session": map[string]any{"ttlMinutes": 30}}, false},
		{"unknown section", map[string]any{"agents": map[string]any{}}, true},
		{"unknown key", map[string]any{"gateway": map[string]any{"tls": true}}, true},
		{"wrong type", map[string]any{"gateway": map[string]any{"port": "high"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckRaw(tt.raw)
			if tt.wantErr {
				var ce *ConfigError
				assert.ErrorAs(t, err, &ce)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoadRawMissingFile(t *testing.T) {
	raw, err := LoadRaw(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, raw)
}
