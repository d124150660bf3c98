package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("expected default API URL, got %q", cfg.APIURL)
	}
	if cfg.DBPath != "" {
		t.Fatalf("expected empty db path, got %q", cfg.DBPath)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.Workflow.DoneDenied != DoneDeniedForbid {
		t.Fatalf("expected done_denied %q, got %q", DoneDeniedForbid, cfg.Workflow.DoneDenied)
	}
	if cfg.Auth.RequireAuth {
		t.Fatal("auth should be optional by default")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte(`api_url = "http://localhost:9999"
log_level = "warn"

[auth]
require_auth = true

[workflow]
done_roles = ["qa", "manager"]
done_denied = "downgrade"
`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.normalizeWorkflow(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.APIURL != "http://localhost:9999" {
		t.Fatalf("expected api_url 'http://localhost:9999', got %q", cfg.APIURL)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected log_level 'warn', got %q", cfg.LogLevel)
	}
	if !cfg.Auth.RequireAuth {
		t.Fatal("expected require_auth true")
	}
	if strings.Join(cfg.Workflow.DoneRoles, ",") != "QA,MANAGER" {
		t.Fatalf("expected upper-cased roles, got %v", cfg.Workflow.DoneRoles)
	}
	if cfg.Workflow.DoneDenied != DoneDeniedDowngrade {
		t.Fatalf("expected downgrade, got %q", cfg.Workflow.DoneDenied)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFile(filepath.Join(t.TempDir(), "missing.toml"), &cfg); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(configDirEnvKey, dir)
	t.Setenv(apiURLEnvKey, "http://127.0.0.1:9000")
	t.Setenv(dbPathEnvKey, filepath.Join(dir, "env.db"))
	t.Setenv(logLevelEnvKey, "error")
	t.Setenv(jwtSecretEnvKey, "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://127.0.0.1:9000" {
		t.Fatalf("unexpected api url %q", cfg.APIURL)
	}
	if cfg.DBPath != filepath.Join(dir, "env.db") {
		t.Fatalf("unexpected db path %q", cfg.DBPath)
	}
	if cfg.LogLevel != "error" {
		t.Fatalf("unexpected log level %q", cfg.LogLevel)
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Fatalf("unexpected jwt secret %q", cfg.Auth.JWTSecret)
	}
}

func TestLoadRejectsInvalidDoneDenied(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(configDirEnvKey, dir)
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("[workflow]\ndone_denied = \"ignore\"\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(); err == nil {
		t.Fatal("expected invalid done_denied error")
	}
}

func TestSetKeyNested(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)

	if err := SetKey(path, "workflow.done_roles", "QA, MANAGER"); err != nil {
		t.Fatalf("set roles: %v", err)
	}
	if err := SetKey(path, "auth.require_auth", "true"); err != nil {
		t.Fatalf("set require_auth: %v", err)
	}
	if err := SetKey(path, "api_url", "http://localhost:1234"); err != nil {
		t.Fatalf("set api_url: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if strings.Join(cfg.Workflow.DoneRoles, ",") != "QA,MANAGER" {
		t.Fatalf("unexpected roles %v", cfg.Workflow.DoneRoles)
	}
	if !cfg.Auth.RequireAuth {
		t.Fatal("expected require_auth true")
	}
	if cfg.APIURL != "http://localhost:1234" {
		t.Fatalf("unexpected api url %q", cfg.APIURL)
	}
}

func TestSetKeyValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := SetKey(path, "unknown", "x"); err == nil {
		t.Fatal("expected unknown key error")
	}
	if err := SetKey(path, "auth.require_auth", "maybe"); err == nil {
		t.Fatal("expected bool parse error")
	}
	if err := SetKey(path, "workflow.done_denied", "ignore"); err == nil {
		t.Fatal("expected done_denied validation error")
	}
}

func TestGetRedactsSecret(t *testing.T) {
	cfg := Default()
	cfg.Auth.JWTSecret = "hunter2"
	got, err := cfg.Get("auth.jwt_secret")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == "hunter2" {
		t.Fatal("secret must not be printed")
	}
	if _, err := cfg.Get("nope"); err == nil {
		t.Fatal("expected unknown key error")
	}
}
