package factory

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/steveyegge/tempo/internal/storage"
	"github.com/steveyegge/tempo/internal/storage/memory"
)

func TestNew_SQLiteBackend(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := New(ctx, BackendSQLite, Options{Path: dbPath})
	if err != nil {
		t.Fatalf("New(sqlite) failed: %v", err)
	}
	defer store.Close()

	if store == nil {
		t.Fatal("New(sqlite) returned nil store")
	}
}

func TestNew_EmptyBackendDefaultsToSQLite(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")

	store, err := New(ctx, "", Options{Path: dbPath})
	if err != nil {
		t.Fatalf("New('') failed: %v", err)
	}
	defer store.Close()
}

func TestNew_SQLiteRequiresPath(t *testing.T) {
	if _, err := New(context.Background(), BackendSQLite, Options{}); err == nil {
		t.Fatal("sqlite without a path should fail")
	}
}

func TestNew_Memory(t *testing.T) {
	t.Setenv("TEMPO_OTEL_ENABLED", "")
	store, err := New(context.Background(), BackendMemory, Options{})
	if err != nil {
		t.Fatalf("New(memory) failed: %v", err)
	}
	if _, ok := store.(*memory.MemoryStorage); !ok {
		t.Errorf("expected an undecorated memory store with telemetry off, got %T", store)
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(context.Background(), "unknown-backend", Options{})
	if err == nil {
		t.Fatal("New(unknown) should return error")
	}
	if !strings.Contains(err.Error(), "unknown storage backend") {
		t.Errorf("error should mention unknown backend, got: %v", err)
	}
	if !strings.Contains(err.Error(), "sqlite") {
		t.Errorf("error should list supported backends, got: %v", err)
	}
}

func TestRegisterBackend(t *testing.T) {
	called := false
	RegisterBackend("test-backend", func(ctx context.Context, opts Options) (storage.Storage, error) {
		called = true
		return memory.New(), nil
	})
	defer delete(backendRegistry, "test-backend")

	_, _ = New(context.Background(), "test-backend", Options{})
	if !called {
		t.Error("registered backend factory was not called")
	}
}

func TestBackends(t *testing.T) {
	got := strings.Join(Backends(), ",")
	if got != "dolt,memory,sqlite" {
		t.Errorf("Backends() = %s", got)
	}
}
