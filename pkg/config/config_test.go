package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"ENVIRONMENT", "JWT_SECRET", "SERVER_PORT", "JWT_TTL_HOURS", "PACKAGE_EXPIRY_SCHEDULE"} {
		t.Setenv(key, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ServerPort != 8080 {
		t.Fatalf("expected port 8080, got %d", cfg.ServerPort)
	}
	if cfg.JWTTTL != 24*time.Hour {
		t.Fatalf("expected 24h jwt ttl, got %v", cfg.JWTTTL)
	}
	if cfg.Schedules.PackageExpiry != "@every 1h" {
		t.Fatalf("unexpected package expiry schedule %q", cfg.Schedules.PackageExpiry)
	}
	if cfg.JWTSecret == "" {
		t.Fatalf("expected a development jwt secret")
	}
}

func TestLoadInvalidNumber(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid SERVER_PORT")
	}
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when JWT_SECRET is missing in production")
	}
}

func TestLoadRequiresLineSecretInProduction(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		token   string
		secret  string
		wantErr bool
	}{
		{"production token without secret", "production", "tok", "", true},
		{"production token with secret", "production", "tok", "sec", false},
		{"production without line channel", "production", "", "", false},
		{"development token without secret", "development", "tok", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", tt.env)
			t.Setenv("JWT_SECRET", "jwt")
			t.Setenv("LINE_CHANNEL_TOKEN", tt.token)
			t.Setenv("LINE_CHANNEL_SECRET", tt.secret)
			cfg, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got secret %q", cfg.Line.ChannelSecret)
				}
				return
			}
			if err != nil {
				t.Fatalf("load failed: %v", err)
			}
		})
	}
}

func TestLineWebhookEnabled(t *testing.T) {
	tests := []struct {
		name   string
		env    string
		secret string
		want   bool
	}{
		{"production with secret", "production", "sec", true},
		{"production without secret", "production", "", false},
		{"development without secret", "development", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.env, Line: LineConfig{ChannelSecret: tt.secret}}
			if got := cfg.LineWebhookEnabled(); got != tt.want {
				t.Fatalf("LineWebhookEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseCSVEnv(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	got := parseCSVEnv("CORS_ALLOWED_ORIGINS", nil)
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", got)
	}
}
