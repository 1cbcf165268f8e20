package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestLoadConfigMergesEnvOverBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
server:
  port: "8086"
db:
  host: db.internal
  port: 5432
`)
	writeFile(t, dir, "local.yaml", `
db:
  host: localhost
`)

	cfg, err := LoadConfig("local", dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	db, ok := cfg["db"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected db section, got %T", cfg["db"])
	}
	if db["host"] != "localhost" {
		t.Errorf("expected env overlay to win, got %v", db["host"])
	}
	if db["port"] != 5432 {
		t.Errorf("expected base value to survive, got %v", db["port"])
	}

	server, _ := cfg["server"].(map[string]interface{})
	if server["port"] != "8086" {
		t.Errorf("expected untouched base section, got %v", server["port"])
	}
}

func TestLoadConfigSubstitutesSecrets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
db:
  password: ${DB_PASSWORD}
jwt:
  secret: "${JWT_SECRET}"
`)
	writeFile(t, dir, "secrets.env", `
# comment lines are skipped
DB_PASSWORD=hunter2
JWT_SECRET="top-secret"
`)

	cfg, err := LoadConfig("local", dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	db, _ := cfg["db"].(map[string]interface{})
	if db["password"] != "hunter2" {
		t.Errorf("expected secret substitution, got %v", db["password"])
	}
	jwt, _ := cfg["jwt"].(map[string]interface{})
	if jwt["secret"] != "top-secret" {
		t.Errorf("expected quoted secret to be trimmed, got %v", jwt["secret"])
	}
}

func TestLoadConfigMissingBaseFails(t *testing.T) {
	if _, err := LoadConfig("local", t.TempDir()); err == nil {
		t.Fatal("expected an error when base.yaml is missing")
	}
}

func TestLoadConfigMissingEnvOverlayIsOptional(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "server:\n  port: \"8086\"\n")

	if _, err := LoadConfig("production", dir); err != nil {
		t.Fatalf("missing overlay must not fail: %v", err)
	}
}

func TestOverrideDBFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.prod")
	t.Setenv("DB_PORT", "6432")

	cfg := DBConfig{Host: "localhost", Port: 5432, User: "app"}
	OverrideDBFromEnv(&cfg)

	if cfg.Host != "db.prod" || cfg.Port != 6432 {
		t.Errorf("env override not applied: %+v", cfg)
	}
	if cfg.User != "app" {
		t.Errorf("unset vars must not clobber values: %+v", cfg)
	}
}

func TestOverrideServerFromEnvSplitsOrigins(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg := ServerConfig{AllowedOrigins: []string{"http://old.example"}}
	OverrideServerFromEnv(&cfg)

	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.AllowedOrigins)
	}
	if cfg.AllowedOrigins[0] != "https://a.example" || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("origins not trimmed: %v", cfg.AllowedOrigins)
	}
}
