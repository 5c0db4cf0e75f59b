package storage_test

import (
	"context"
	"testing"

	"github.com/steveyegge/tempo/internal/storage"
	"github.com/steveyegge/tempo/internal/storage/memory"
)

type fakeVersioned struct {
	storage.Storage
	commits []string
}

func (f *fakeVersioned) Commit(_ context.Context, message string) error {
	f.commits = append(f.commits, message)
	return nil
}

func (f *fakeVersioned) CurrentCommit(context.Context) (string, error) {
	return "abc123", nil
}

type wrapper struct {
	storage.Storage
}

func (w wrapper) Unwrap() storage.Storage { return w.Storage }

func TestAsVersioned(t *testing.T) {
	plain := memory.New()
	if _, ok := storage.AsVersioned(plain); ok {
		t.Error("memory storage should not be versioned")
	}

	v := &fakeVersioned{Storage: plain}
	vs, ok := storage.AsVersioned(v)
	if !ok || vs == nil {
		t.Fatal("AsVersioned should accept a versioned store")
	}

	// Decorators are looked through.
	vs, ok = storage.AsVersioned(wrapper{Storage: v})
	if !ok {
		t.Fatal("AsVersioned should unwrap decorators")
	}
	if err := vs.Commit(context.Background(), "m"); err != nil {
		t.Fatal(err)
	}
	if len(v.commits) != 1 {
		t.Errorf("commit did not reach the versioned store: %v", v.commits)
	}

	if _, ok := storage.AsVersioned(wrapper{Storage: plain}); ok {
		t.Error("unwrapping to a plain store should not be versioned")
	}
}
