package config

import (
	"errors"
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		OpenAIAPIKey:       "sk-test-key-for-validation",
		GoogleClientID:     "client-id",
		GoogleClientSecret: "client-secret",
		SessionSecret:      strings.Repeat("s", 32),
		Models:             []string{"gpt-4o"},
		PostgresHost:       "localhost",
		PostgresPort:       5432,
		PostgresUser:       "quill",
		PostgresPassword:   "pw",
		PostgresDBName:     "quill",
		PostgresSSLMode:    "disable",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(c *Config) {}, nil},
		{"missing api key", func(c *Config) { c.OpenAIAPIKey = "" }, ErrMissingAPIKey},
		{"missing oauth id", func(c *Config) { c.GoogleClientID = "" }, ErrMissingOAuthClient},
		{"missing oauth secret", func(c *Config) { c.GoogleClientSecret = "" }, ErrMissingOAuthClient},
		{"missing session secret", func(c *Config) { c.SessionSecret = "" }, ErrMissingSessionSecret},
		{"weak session secret", func(c *Config) { c.SessionSecret = "short" }, ErrWeakSessionSecret},
		{"no models", func(c *Config) { c.Models = nil }, ErrNoModels},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	cfg := validConfig()
	want := "postgres://quill:pw@localhost:5432/quill?sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestStringMasksSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.OpenAIAPIKey = "sk-super-secret-value"
	cfg.PostgresPassword = "db-password-value"

	s := cfg.String()
	if strings.Contains(s, "sk-super-secret-value") {
		t.Errorf("API key leaked: %s", s)
	}
	if strings.Contains(s, "db-password-value") {
		t.Errorf("database password leaked: %s", s)
	}
	if !strings.Contains(s, maskedValue) {
		t.Errorf("no masking applied: %s", s)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"short", maskedValue},
		{"12345678", maskedValue},
		{"a-much-longer-secret", "a-<" + maskedValue + ">et"},
	}
	for _, tt := range tests {
		if got := maskSecret(tt.in); got != tt.want {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
