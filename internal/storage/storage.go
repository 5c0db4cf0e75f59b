// Package storage provides the interfaces and shared errors of the work item,
// period status and monitoring association stores.
//
// Concrete backends live in sub-packages: memory (tests and ephemeral use),
// sqlite (embedded, the default) and dolt (dolt sql-server or any MySQL
// compatible server). The SQL backends share their implementation through
// sqlstore.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/steveyegge/tempo/internal/types"
)

// ErrNotFound is returned when a requested entity does not exist in the database.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an optimistic concurrency check fails: the
// focus generation moved between the read and the write of a transaction.
var ErrConflict = errors.New("concurrency conflict")

// ErrAlreadyExists is returned when creating an item whose ID is taken.
var ErrAlreadyExists = errors.New("already exists")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage closed")

// Reader holds the read operations shared by Storage and Transaction.
type Reader interface {
	// Work items
	GetItem(ctx context.Context, id string) (*types.WorkItem, error)
	ListItems(ctx context.Context, filter types.ItemFilter) ([]*types.WorkItem, error)
	// EligibleItems returns the open, active items inside the filter's
	// priority band that are due on or before its date, in focus order.
	EligibleItems(ctx context.Context, filter types.EligibilityFilter) ([]*types.WorkItem, error)

	// Period statuses
	GetPeriodStatus(ctx context.Context, itemID string, kind types.PeriodKind, windowStart time.Time) (*types.PeriodStatus, error)
	ListPeriodStatuses(ctx context.Context, itemID string) ([]*types.PeriodStatus, error)
	ListWindowStatuses(ctx context.Context, kind types.PeriodKind, windowStart time.Time) ([]*types.PeriodStatus, error)

	// Monitoring associations
	ListMonitors(ctx context.Context, itemID string) ([]*types.MonitoringAssociation, error)

	// FocusGeneration returns the optimistic concurrency token of the
	// eligible set.
	FocusGeneration(ctx context.Context) (int64, error)
}

// Storage is the interface satisfied by every backend.
// All writes go through RunInTransaction.
type Storage interface {
	Reader

	// RunInTransaction executes fn atomically. Backends retry fn as a whole
	// on transient serialization failures; fn must therefore be safe to run
	// more than once.
	RunInTransaction(ctx context.Context, fn func(tx Transaction) error) error

	// Lifecycle
	Close() error
}

// Transaction provides atomic multi-operation support within a single database transaction.
//
// # Transaction Semantics
//
//   - All operations within the transaction share the same database connection
//   - Changes are not visible to other connections until commit
//   - If fn returns an error, the transaction is rolled back
//   - If fn panics, the transaction is rolled back
//   - On successful return from fn, the transaction is committed
//
// # Example Usage
//
//	err := store.RunInTransaction(ctx, func(tx storage.Transaction) error {
//	    item, err := tx.GetItem(ctx, id)
//	    if err != nil {
//	        return err // Triggers rollback
//	    }
//	    item.Priority = 2
//	    if err := tx.UpdateItem(ctx, item); err != nil {
//	        return err // Triggers rollback
//	    }
//	    return tx.TouchFocusGeneration(ctx) // nil triggers commit
//	})
type Transaction interface {
	Reader

	// Work items
	CreateItem(ctx context.Context, item *types.WorkItem) error
	UpdateItem(ctx context.Context, item *types.WorkItem) error
	// DeleteItem removes the item together with its period statuses and
	// monitoring associations.
	DeleteItem(ctx context.Context, id string) error

	// Period statuses
	UpsertPeriodStatus(ctx context.Context, st *types.PeriodStatus) error
	// InsertPeriodStatusIfAbsent creates the row only when none exists and
	// reports whether it did.
	InsertPeriodStatusIfAbsent(ctx context.Context, st *types.PeriodStatus) (bool, error)

	// Monitoring associations
	AddMonitor(ctx context.Context, assoc *types.MonitoringAssociation) error
	RemoveMonitor(ctx context.Context, itemID string, kind types.PeriodKind) error

	// CompareAndBumpFocusGeneration increments the generation only if it
	// still equals expected, returning ErrConflict otherwise.
	CompareAndBumpFocusGeneration(ctx context.Context, expected int64) error
	// TouchFocusGeneration increments the generation unconditionally. Every
	// write that can change the eligible set calls it.
	TouchFocusGeneration(ctx context.Context) error
}

// HasMonitor reports whether assocs contains kind.
func HasMonitor(assocs []*types.MonitoringAssociation, kind types.PeriodKind) bool {
	for _, a := range assocs {
		if a.PeriodKind == kind {
			return true
		}
	}
	return false
}
