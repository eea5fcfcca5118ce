package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/chronos/pkg/config"
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

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.Parents.Field != "parent_of" {
		t.Errorf("parents.field = %q", cfg.Parents.Field)
	}
	if len(cfg.Parents.Tags) != 2 || cfg.Parents.Tags[0] != "MOC" || cfg.Parents.Tags[1] != "folder" {
		t.Errorf("parents.tags = %v", cfg.Parents.Tags)
	}
}

func TestParentsConfig_Invalid(t *testing.T) {
	for _, cfg := range []ParentsConfig{
		{Field: "", Tags: []string{"MOC"}},
		{Field: "parent_of"},
		{Field: "parent_of", Tags: []string{"MOC", ""}},
	} {
		if err := cfg.Validate(); err == nil {
			t.Errorf("%+v should fail validation", cfg)
		}
	}
}

func TestEventsConfig_ThrottleTooSmall(t *testing.T) {
	cfg := EventsConfig{Throttle: time.Millisecond}
	if err := cfg.Validate(); err == nil {
		t.Fatal("1ms throttle should fail validation")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("CHRONOS_TEST_TOKEN", "s3cret")
	data := `
app:
  log_level: debug
  http:
    port: 9090
vault:
  path: /tmp/vault
auth:
  mode: token
  token: ${CHRONOS_TEST_TOKEN}
parents:
  field: children
  tags: [hub]
events:
  throttle: 5s
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	if err := config.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.LogLevel != slog.LevelDebug || cfg.App.HTTP.Port != 9090 {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Auth.Token != "s3cret" || !cfg.Auth.AuthEnabled() {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.Parents.Field != "children" || len(cfg.Parents.Tags) != 1 || cfg.Parents.Tags[0] != "hub" {
		t.Errorf("parents = %+v", cfg.Parents)
	}
	if cfg.Events.Throttle != 5*time.Second {
		t.Errorf("events.throttle = %v", cfg.Events.Throttle)
	}
	if cfg.SQLite.Path != "./chronos.db" {
		t.Errorf("sqlite default lost: %q", cfg.SQLite.Path)
	}
}
