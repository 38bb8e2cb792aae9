package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CLINICDESK_SUPABASE_JWT_SECRET", "secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.ModelName)
	assert.Equal(t, 10, cfg.MaxModelCalls)
	assert.Equal(t, time.Hour, cfg.SessionTTL())
	assert.Equal(t, "clinicdesk.db", cfg.AppointmentsDBPath)
	assert.Equal(t, "https://www.googleapis.com/calendar/v3", cfg.Calendar.BaseURL)
	assert.False(t, cfg.Email.Enabled)
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clinicdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9000"
supabase_jwt_secret: file-secret
provider: anthropic
model_name: claude-sonnet-4-20250514
session_ttl_seconds: 120
email:
  enabled: true
  api_key: sg-key
`), 0o600))
	t.Setenv("CLINICDESK_ADDR", ":9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	// Environment beats the file; the file beats defaults.
	assert.Equal(t, ":9100", cfg.Addr)
	assert.Equal(t, "file-secret", cfg.SupabaseJWTSecret)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, 2*time.Minute, cfg.SessionTTL())
	assert.True(t, cfg.Email.Enabled)
	assert.Equal(t, "sg-key", cfg.Email.APIKey)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			SupabaseJWTSecret:  "secret",
			Provider:           "openai",
			SessionTTLSeconds:  3600,
			AppointmentsDBPath: "clinicdesk.db",
		}
	}

	require.NoError(t, base().Validate())

	cfg := base()
	cfg.SupabaseJWTSecret = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Provider = "mystery"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.SessionTTLSeconds = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Email.Enabled = true
	assert.Error(t, cfg.Validate())
}
