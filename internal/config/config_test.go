package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.Backend != BackendXLSX {
		t.Errorf("Expected xlsx backend by default, got %q", cfg.Storage.Backend)
	}
	if cfg.Ledger.KeyIncludesSubmitter {
		t.Error("Duplicate key must exclude the submitter by default")
	}
	if cfg.Ledger.ReportWindowDays != 30 {
		t.Errorf("Expected 30 day report window, got %d", cfg.Ledger.ReportWindowDays)
	}
	if cfg.Ledger.Location() != time.UTC {
		t.Errorf("Expected UTC location, got %v", cfg.Ledger.Location())
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("STORAGE_BACKEND", "POSTGRES")
	t.Setenv("DUPLICATE_KEY_INCLUDES_SUBMITTER", "true")
	t.Setenv("REPORT_WINDOW_DAYS", "7")
	t.Setenv("POLICY_FILE", "/etc/ledger/policy.yaml")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.Backend != BackendPostgres {
		t.Errorf("Expected postgres backend, got %q", cfg.Storage.Backend)
	}
	if !cfg.Ledger.KeyIncludesSubmitter {
		t.Error("Expected submitter in duplicate key")
	}
	if cfg.Ledger.ReportWindowDays != 7 {
		t.Errorf("Expected 7, got %d", cfg.Ledger.ReportWindowDays)
	}
	if cfg.Policy.File != "/etc/ledger/policy.yaml" {
		t.Errorf("Unexpected policy file %q", cfg.Policy.File)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "sheets" }, true},
		{"xlsx without path", func(c *Config) { c.Storage.XLSXPath = "" }, true},
		{"postgres without host", func(c *Config) {
			c.Storage.Backend = BackendPostgres
			c.Database.Host = ""
		}, true},
		{"zero window", func(c *Config) { c.Ledger.ReportWindowDays = 0 }, true},
		{"bad timezone", func(c *Config) { c.Ledger.Timezone = "Mars/Olympus" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Database: DatabaseConfig{Host: "localhost", Name: "ledger"},
				Storage:  StorageConfig{Backend: BackendXLSX, XLSXPath: "ledger.xlsx"},
				Ledger:   LedgerConfig{ReportWindowDays: 30, Timezone: "UTC"},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
