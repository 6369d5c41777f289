package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
}

func TestBackendConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"unknown kind", func(c *Config) { c.Backend.Kind = "cloud" }, "Kind"},
		{"unknown driver", func(c *Config) { c.Backend.Local.Driver = "bolt" }, "Driver"},
		{"empty key", func(c *Config) { c.Backend.Local.Key = "" }, "Key"},
		{"watch needs file driver", func(c *Config) { c.Backend.Local.Watch = true }, "watch requires the file driver"},
		{"remote needs url", func(c *Config) { c.Backend.Kind = BackendRemote }, "BaseURL"},
		{"remote bad url", func(c *Config) {
			c.Backend.Kind = BackendRemote
			c.Backend.Remote.BaseURL = "not a url"
		}, "BaseURL"},
		{"bad search mode", func(c *Config) { c.Search.Mode = "fuzzy" }, "Mode"},
		{"bad id scheme", func(c *Config) { c.Server.IDScheme = "snowflake" }, "IDScheme"},
		{"negative rps", func(c *Config) { c.Server.RateLimitRPS = -1 }, "RateLimitRPS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestBackendConfig_ValidVariants(t *testing.T) {
	file := NewDefaultConfig()
	file.Backend.Local.Driver = DriverFile
	file.Backend.Local.Watch = true
	if err := file.Validate(); err != nil {
		t.Errorf("file driver with watch: %v", err)
	}

	rem := NewDefaultConfig()
	rem.Backend.Kind = BackendRemote
	rem.Backend.Remote.BaseURL = "http://localhost:8000"
	rem.Backend.Local.Driver = "ignored"
	if err := rem.Validate(); err != nil {
		t.Errorf("remote: %v", err)
	}
}
