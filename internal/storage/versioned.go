package storage

import "context"

// VersionedStorage extends Storage with version control capabilities.
// It is implemented by backends that keep history of their own (Dolt).
//
// Not all storage backends support versioning. Use AsVersioned to check
// before calling these operations.
type VersionedStorage interface {
	Storage

	// Commit records all pending changes as one commit. Having nothing to
	// commit is not an error.
	Commit(ctx context.Context, message string) error

	// CurrentCommit returns the hash of the current HEAD commit.
	CurrentCommit(ctx context.Context) (string, error)
}

// Unwrapper is implemented by decorators around a Storage.
type Unwrapper interface {
	Unwrap() Storage
}

// AsVersioned returns s, or the store a chain of decorators wraps, as a
// VersionedStorage.
//
// Example usage:
//
//	vs, ok := storage.AsVersioned(store)
//	if !ok {
//	    return fmt.Errorf("commit requires the dolt backend")
//	}
//	err := vs.Commit(ctx, "tempo: mark done")
func AsVersioned(s Storage) (VersionedStorage, bool) {
	for s != nil {
		if vs, ok := s.(VersionedStorage); ok {
			return vs, true
		}
		u, ok := s.(Unwrapper)
		if !ok {
			break
		}
		s = u.Unwrap()
	}
	return nil, false
}
