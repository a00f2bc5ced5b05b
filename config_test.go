package main

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.BaserowURL != "http://localhost:8010" {
		t.Errorf("Unexpected default URL: %s", cfg.BaserowURL)
	}
	if cfg.DBPath != "project.db" {
		t.Errorf("Unexpected default DB path: %s", cfg.DBPath)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("Unexpected default timeout: %v", cfg.RequestTimeout)
	}
	if cfg.APIToken != "" {
		t.Errorf("Expected empty token by default, got %q", cfg.APIToken)
	}
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("BASEROW_URL", "https://baserow.example.com")
	t.Setenv("BASEROW_API_TOKEN", "secret")
	t.Setenv("TRACKER_DB_PATH", "/tmp/tracker.db")
	t.Setenv("BASEROW_TIMEOUT", "10s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.BaserowURL != "https://baserow.example.com" {
		t.Errorf("URL not read from env: %s", cfg.BaserowURL)
	}
	if cfg.APIToken != "secret" {
		t.Errorf("Token not read from env: %s", cfg.APIToken)
	}
	if cfg.DBPath != "/tmp/tracker.db" {
		t.Errorf("DB path not read from env: %s", cfg.DBPath)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("Timeout not read from env: %v", cfg.RequestTimeout)
	}
}
