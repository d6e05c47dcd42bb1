package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "config.toml", `
httpAddr = ":8080"
mongoDBName = "blog_dev"
tokenTTL = "30m"
maxUploadMB = 2
kafkaTopic = "logs"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("want httpAddr %q, got %q", ":8080", cfg.HTTPAddr)
	}
	if cfg.MongoDBName != "blog_dev" {
		t.Errorf("want mongoDBName %q, got %q", "blog_dev", cfg.MongoDBName)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Errorf("want tokenTTL %v, got %v", 30*time.Minute, cfg.TokenTTL)
	}
	if cfg.MaxUploadBytes() != 2<<20 {
		t.Errorf("want %d upload bytes, got %d", 2<<20, cfg.MaxUploadBytes())
	}
	if cfg.ServiceName != "blog" || cfg.UploadDir != "uploads" {
		t.Errorf("want defaults kept for unset keys, got %+v", cfg)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("want error for missing config file, got nil")
	}
}

func TestConfig_ApplyEnv(t *testing.T) {
	envFile := writeFile(t, ".env", "MONGO_URI=mongodb://file:27017\nJWT_SECRET=from-file\nPORT=7000\n")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("MONGO_URI", "")
	t.Setenv("MONGO_DB_NAME", "")
	t.Setenv("PORT", "")

	cfg := Default()
	if err := cfg.ApplyEnv(envFile); err != nil {
		t.Fatalf("unexpected error applying env: %v", err)
	}

	if cfg.JWTSecret != "from-env" {
		t.Errorf("want process env to win, got secret %q", cfg.JWTSecret)
	}
	if cfg.MongoURI != "mongodb://file:27017" {
		t.Errorf("want MONGO_URI from env file, got %q", cfg.MongoURI)
	}
	if cfg.HTTPAddr != ":7000" {
		t.Errorf("want httpAddr %q, got %q", ":7000", cfg.HTTPAddr)
	}
	if cfg.MongoDBName != "blog" {
		t.Errorf("want default db name kept, got %q", cfg.MongoDBName)
	}

	missing := Default()
	if err := missing.ApplyEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("want missing env file ignored, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := Default()
	valid.JWTSecret = "secret"
	valid.MongoURI = "mongodb://localhost:27017"

	tests := []struct {
		name    string
		modify  func(c *Config)
		dev     bool
		wantErr error
	}{
		{name: "valid", modify: func(c *Config) {}},
		{name: "missing secret", modify: func(c *Config) { c.JWTSecret = "" }, wantErr: ErrMissingSecret},
		{name: "missing secret in dev", modify: func(c *Config) { c.JWTSecret = "" }, dev: true, wantErr: ErrMissingSecret},
		{name: "missing mongo uri", modify: func(c *Config) { c.MongoURI = "" }, wantErr: ErrMissingMongoURI},
		{name: "missing mongo uri in dev", modify: func(c *Config) { c.MongoURI = "" }, dev: true},
		{name: "negative upload cap", modify: func(c *Config) { c.MaxUploadMB = -1 }, wantErr: ErrInvalidValue},
		{name: "empty upload dir", modify: func(c *Config) { c.UploadDir = "" }, wantErr: ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.modify(&cfg)

			err := cfg.Validate(tt.dev)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("want error %v, got %v", tt.wantErr, err)
			}
		})
	}
}
