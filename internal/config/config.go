// Package config provides application configuration with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (QUILL_ prefix, runtime override)
//  2. Config file (./quill.yaml)
//  3. Default values
//
// Sensitive values (API key, client secret, session secret, database
// password) are masked in MarshalJSON and String.
package config

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

var (
	// ErrMissingAPIKey indicates the model provider API key is missing.
	ErrMissingAPIKey = errors.New("missing OpenAI API key")

	// ErrMissingOAuthClient indicates the Google OAuth client is not configured.
	ErrMissingOAuthClient = errors.New("missing OAuth client configuration")

	// ErrMissingSessionSecret indicates the session secret is not set.
	ErrMissingSessionSecret = errors.New("missing session secret")

	// ErrWeakSessionSecret indicates the session secret is too short.
	ErrWeakSessionSecret = errors.New("session secret must be at least 32 bytes")

	// ErrNoModels indicates the model list is empty.
	ErrNoModels = errors.New("at least one model is required")
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON.
type Config struct {
	// HTTP server
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port"`

	// Model provider
	OpenAIAPIKey  string   `mapstructure:"openai_api_key" json:"openai_api_key"` // SENSITIVE
	OpenAIBaseURL string   `mapstructure:"openai_base_url" json:"openai_base_url"`
	Models        []string `mapstructure:"models" json:"models"`

	// Google sign-in
	GoogleClientID     string `mapstructure:"google_client_id" json:"google_client_id"`
	GoogleClientSecret string `mapstructure:"google_client_secret" json:"google_client_secret"` // SENSITIVE
	OAuthRedirectURL   string `mapstructure:"oauth_redirect_url" json:"oauth_redirect_url"`

	// Browser sessions
	SessionSecret string `mapstructure:"session_secret" json:"session_secret"` // SENSITIVE
	SecureCookies bool   `mapstructure:"secure_cookies" json:"secure_cookies"`

	// PostgreSQL
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Chat turn rate limiting
	TurnRate  float64 `mapstructure:"turn_rate" json:"turn_rate"`
	TurnBurst int     `mapstructure:"turn_burst" json:"turn_burst"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("quill")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("QUILL")
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env carry it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "localhost")
	v.SetDefault("port", 8080)

	v.SetDefault("models", []string{"gpt-4o", "gpt-4", "gpt-3.5-turbo"})

	v.SetDefault("oauth_redirect_url", "http://localhost:8080/auth/callback")
	v.SetDefault("secure_cookies", false)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "quill")
	v.SetDefault("postgres_password", "quill_dev_password")
	v.SetDefault("postgres_db_name", "quill")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("turn_rate", 1.0)
	v.SetDefault("turn_burst", 5)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", true)
}

// bindEnvVariables binds keys that have no default value. Viper's
// Unmarshal only sees env-backed keys it already knows about, so
// secrets need explicit binds.
func bindEnvVariables(v *viper.Viper) {
	mustBind := func(key string) {
		if err := v.BindEnv(key); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q: %v", key, err))
		}
	}
	mustBind("openai_api_key")
	mustBind("openai_base_url")
	mustBind("google_client_id")
	mustBind("google_client_secret")
	mustBind("session_secret")
}

// Validate checks the configuration, fail-fast before startup.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return ErrMissingAPIKey
	}
	if c.GoogleClientID == "" || c.GoogleClientSecret == "" {
		return ErrMissingOAuthClient
	}
	if c.SessionSecret == "" {
		return ErrMissingSessionSecret
	}
	if len(c.SessionSecret) < 32 {
		return ErrWeakSessionSecret
	}
	if len(c.Models) == 0 {
		return ErrNoModels
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost,
		c.PostgresPort, c.PostgresDBName, c.PostgresSSLMode)
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Secrets of 8 bytes or
// fewer are fully masked; longer ones keep the first and last two
// characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.OpenAIAPIKey = maskSecret(a.OpenAIAPIKey)
	a.GoogleClientSecret = maskSecret(a.GoogleClientSecret)
	a.SessionSecret = maskSecret(a.SessionSecret)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
