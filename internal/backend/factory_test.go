package backend

import (
	"context"
	"path/filepath"
	"testing"

	"finance/internal/config"
	"finance/internal/ledger"
	"finance/internal/storage"
	"finance/internal/store/file"
	"finance/internal/store/memory"
)

func TestCreateBackend(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		config Config
		check  func(t *testing.T, res *BackendResult)
	}{
		{
			name:   "memory",
			config: Config{Type: MemoryBackend},
			check: func(t *testing.T, res *BackendResult) {
				if _, ok := res.Store.(*memory.Store); !ok {
					t.Fatalf("expected memory store, got %T", res.Store)
				}
			},
		},
		{
			name:   "file",
			config: Config{Type: FileBackend, LedgerFilePath: filepath.Join(dir, "ledger.json")},
			check: func(t *testing.T, res *BackendResult) {
				if _, ok := res.Store.(*file.Store); !ok {
					t.Fatalf("expected file store, got %T", res.Store)
				}
			},
		},
		{
			name:   "sqlite",
			config: Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "finance.db")},
			check: func(t *testing.T, res *BackendResult) {
				if _, ok := res.Store.(*storage.SQLiteRepository); !ok {
					t.Fatalf("expected sqlite repository, got %T", res.Store)
				}
				if res.Cleanup == nil {
					t.Fatal("sqlite backend needs a cleanup function")
				}
			},
		},
	}

	factory := NewFactory(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := factory.CreateBackend(context.Background(), tt.config)
			if err != nil {
				t.Fatalf("CreateBackend() error = %v", err)
			}
			if res.Cleanup != nil {
				defer res.Cleanup()
			}
			tt.check(t, res)

			ctx := context.Background()
			if err := res.Store.Save(ctx, ledger.New().Serialize()); err != nil {
				t.Fatalf("save: %v", err)
			}
			if _, err := res.Store.Load(ctx); err != nil {
				t.Fatalf("load: %v", err)
			}
		})
	}
}

func TestCreateBackendInvalid(t *testing.T) {
	factory := NewFactory(nil)
	if _, err := factory.CreateBackend(context.Background(), Config{Type: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := factory.CreateBackend(context.Background(), Config{Type: SQLiteBackend}); err == nil {
		t.Fatal("expected error for missing sqlite path")
	}
}

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{DataBackend: "file", LedgerFilePath: "/tmp/l.json"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != FileBackend || cfg.LedgerFilePath != "/tmp/l.json" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}
