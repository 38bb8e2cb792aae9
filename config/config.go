// Package config loads service configuration. Priority: environment
// variables (CLINICDESK_ prefix) > configuration file > defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Addr        string   `mapstructure:"addr"`
	LogLevel    string   `mapstructure:"log_level"`
	CORSOrigins []string `mapstructure:"cors_origins"`

	// SupabaseJWTSecret verifies patient access tokens. Required.
	SupabaseJWTSecret string `mapstructure:"supabase_jwt_secret"`

	// SupabaseURL and SupabaseAnonKey are handed to the frontend via the
	// public config endpoint. The anon key is publishable by design.
	SupabaseURL     string `mapstructure:"supabase_url"`
	SupabaseAnonKey string `mapstructure:"supabase_anon_key"`

	SessionTTLSeconds  int    `mapstructure:"session_ttl_seconds"`
	SessionDBPath      string `mapstructure:"session_db_path"` // empty keeps sessions in memory
	AppointmentsDBPath string `mapstructure:"appointments_db_path"`

	Provider      string  `mapstructure:"provider"` // "openai" or "anthropic"
	ModelName     string  `mapstructure:"model_name"`
	Temperature   float64 `mapstructure:"temperature"`
	MaxModelCalls int     `mapstructure:"max_model_calls"`

	ClinicConfigPath string `mapstructure:"clinic_config_path"`

	Calendar CalendarConfig `mapstructure:"calendar"`
	Email    EmailConfig    `mapstructure:"email"`
}

// CalendarConfig points at the Google Calendar REST API (or a stand-in).
type CalendarConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIToken       string `mapstructure:"api_token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// EmailConfig points at the SendGrid REST API. Disabled deployments skip
// confirmation emails entirely.
type EmailConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BaseURL     string `mapstructure:"base_url"`
	APIKey      string `mapstructure:"api_key"`
	FromName    string `mapstructure:"from_name"`
	FromAddress string `mapstructure:"from_address"`
}

// SessionTTL returns the configured session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

// Load reads configuration. When path is non-empty that file is read;
// otherwise clinicdesk.yaml is searched in the working directory and missing
// files fall back to defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CLINICDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("clinicdesk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8000")
	v.SetDefault("log_level", "info")
	v.SetDefault("cors_origins", []string{"http://localhost:3000"})

	// Keys without a meaningful default still need to be registered, or
	// AutomaticEnv will not surface them through Unmarshal.
	v.SetDefault("supabase_jwt_secret", "")
	v.SetDefault("supabase_url", "")
	v.SetDefault("supabase_anon_key", "")

	v.SetDefault("session_ttl_seconds", 3600)
	v.SetDefault("session_db_path", "")
	v.SetDefault("appointments_db_path", "clinicdesk.db")

	v.SetDefault("provider", "openai")
	v.SetDefault("model_name", "gpt-4o-mini")
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_model_calls", 10)

	v.SetDefault("clinic_config_path", "clinic.yaml")

	v.SetDefault("calendar.base_url", "https://www.googleapis.com/calendar/v3")
	v.SetDefault("calendar.api_token", "")
	v.SetDefault("calendar.timeout_seconds", 15)

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.base_url", "https://api.sendgrid.com")
	v.SetDefault("email.api_key", "")
	v.SetDefault("email.from_name", "")
	v.SetDefault("email.from_address", "")
}

// Validate fails fast on configuration the service cannot run with.
func (c *Config) Validate() error {
	if c.SupabaseJWTSecret == "" {
		return fmt.Errorf("config: supabase_jwt_secret is required (CLINICDESK_SUPABASE_JWT_SECRET)")
	}
	switch c.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("config: unknown provider %q", c.Provider)
	}
	if c.SessionTTLSeconds <= 0 {
		return fmt.Errorf("config: session_ttl_seconds must be positive")
	}
	if c.AppointmentsDBPath == "" {
		return fmt.Errorf("config: appointments_db_path is required")
	}
	if c.Email.Enabled && c.Email.APIKey == "" {
		return fmt.Errorf("config: email.api_key is required when email is enabled")
	}
	return nil
}
