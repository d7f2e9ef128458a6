package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushbulletnet/pushbullet/internal/config"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pbctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("PUSHBULLET_API_TOKEN", "o.envtoken")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "o.envtoken", cfg.API.Token)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Zero(t, cfg.API.Retries)
	assert.False(t, cfg.API.Breaker)
	assert.Empty(t, cfg.API.URL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "development", cfg.Env)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.Endpoint)
	assert.True(t, cfg.Telemetry.Insecure)
	assert.Equal(t, 1.0, cfg.Telemetry.Sampling)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
env: production
api:
  token: o.filetoken
  url: https://pb.internal.example.com/v2
  timeout: 3s
  retries: 2
  breaker: true
log:
  level: debug
  pretty: true
telemetry:
  enabled: true
  endpoint: otel-collector:4317
  insecure: false
  sampling: 0.1
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "o.filetoken", cfg.API.Token)
	assert.Equal(t, "https://pb.internal.example.com/v2", cfg.API.URL)
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
	assert.Equal(t, uint64(2), cfg.API.Retries)
	assert.True(t, cfg.API.Breaker)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "otel-collector:4317", cfg.Telemetry.Endpoint)
	assert.False(t, cfg.Telemetry.Insecure)
	assert.InDelta(t, 0.1, cfg.Telemetry.Sampling, 1e-9)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, `
api:
  token: o.filetoken
  timeout: 3s
log:
  level: warn
`)
	t.Setenv("PUSHBULLET_API_TOKEN", "o.envtoken")
	t.Setenv("PUSHBULLET_API_TIMEOUT", "750ms")
	t.Setenv("PUSHBULLET_LOG_PRETTY", "true")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "o.envtoken", cfg.API.Token)
	assert.Equal(t, 750*time.Millisecond, cfg.API.Timeout)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing token",
			wantErr: "Token",
		},
		{
			name:    "bad url",
			env:     map[string]string{"PUSHBULLET_API_TOKEN": "o.t", "PUSHBULLET_API_URL": "not a url"},
			wantErr: "URL",
		},
		{
			name:    "bad log level",
			env:     map[string]string{"PUSHBULLET_API_TOKEN": "o.t", "PUSHBULLET_LOG_LEVEL": "loud"},
			wantErr: "Level",
		},
		{
			name:    "unknown env",
			env:     map[string]string{"PUSHBULLET_API_TOKEN": "o.t", "PUSHBULLET_ENV": "moon"},
			wantErr: "Env",
		},
		{
			name:    "too many retries",
			env:     map[string]string{"PUSHBULLET_API_TOKEN": "o.t", "PUSHBULLET_API_RETRIES": "50"},
			wantErr: "Retries",
		},
		{
			name:    "sampling above one",
			env:     map[string]string{"PUSHBULLET_API_TOKEN": "o.t", "PUSHBULLET_TELEMETRY_SAMPLING": "1.5"},
			wantErr: "Sampling",
		},
		{
			name:    "bad timeout",
			env:     map[string]string{"PUSHBULLET_API_TOKEN": "o.t", "PUSHBULLET_API_TIMEOUT": "soon"},
			wantErr: "unmarshal config failed",
		},
		{
			name:    "malformed yaml",
			file:    "api: [token",
			wantErr: "read config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PUSHBULLET_API_TOKEN", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := ""
			if tt.file != "" {
				path = writeFile(t, tt.file)
			}

			_, err := config.Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent.yaml")
}

func TestValidate_TelemetryEndpointRequiredWhenEnabled(t *testing.T) {
	cfg := config.Default()
	cfg.API.Token = "o.t"
	require.NoError(t, cfg.Validate())

	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Endpoint")
}
