package backend

import (
	"context"
	"path/filepath"
	"testing"

	"gastos/internal/config"
	"gastos/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{DataBackend: "postgres", PostgresDSN: "postgres://x", SeedDir: "seeds"})
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != PostgresBackend || cfg.PostgresDSN != "postgres://x" || cfg.DataDirectory != "seeds" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without dsn", Config{Type: PostgresBackend}, true},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	for _, cfg := range []Config{
		{Type: MemoryBackend, DataDirectory: t.TempDir()},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "gastos.db")},
	} {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			res, err := f.CreateBackend(ctx, cfg)
			if err != nil {
				t.Fatalf("CreateBackend() error = %v", err)
			}
			if res.Publisher != nil {
				t.Error("no publisher expected without AMQP_URL")
			}
			var _ storage.Repository = res.Repository
			if _, err := res.Repository.ListExpenses(ctx); err != nil {
				t.Errorf("ListExpenses() error = %v", err)
			}
			if err := res.Cleanup(); err != nil {
				t.Errorf("Cleanup() error = %v", err)
			}
		})
	}
}

func TestBackendTypes(t *testing.T) {
	if got := GetBackendTypeStrings(); len(got) != 3 {
		t.Errorf("GetBackendTypeStrings() = %v", got)
	}
	if MemoryBackend.Shared() || !SQLiteBackend.Shared() || !PostgresBackend.Shared() {
		t.Error("only sqlite and postgres are shared")
	}
}
