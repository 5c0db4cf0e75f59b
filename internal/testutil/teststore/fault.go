package teststore

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/steveyegge/tempo/internal/storage"
	"github.com/steveyegge/tempo/internal/types"
)

// FaultStore wraps a store and injects failures into its transactions.
// Leave a field nil to pass the call through.
type FaultStore struct {
	storage.Storage

	// FailUpsert is consulted before every UpsertPeriodStatus; a non-nil
	// return aborts the write with that error.
	FailUpsert func(st *types.PeriodStatus) error

	// Conflicts makes the next N CompareAndBumpFocusGeneration calls fail
	// with storage.ErrConflict.
	Conflicts atomic.Int32

	// BeforeCompareAndBump runs just before every compare-and-bump.
	BeforeCompareAndBump func()

	// CASCalls counts compare-and-bump attempts.
	CASCalls atomic.Int32

	// BeforeEligible runs before every EligibleItems read made outside a
	// transaction. It may block.
	BeforeEligible func(filter types.EligibilityFilter)

	// BeforeWindowRead runs before every ListWindowStatuses, inside or
	// outside a transaction.
	BeforeWindowRead func(kind types.PeriodKind)
}

// NewFaultStore wraps s.
func NewFaultStore(s storage.Storage) *FaultStore {
	return &FaultStore{Storage: s}
}

func (f *FaultStore) RunInTransaction(ctx context.Context, fn func(tx storage.Transaction) error) error {
	return f.Storage.RunInTransaction(ctx, func(tx storage.Transaction) error {
		return fn(&faultTx{Transaction: tx, f: f})
	})
}

func (f *FaultStore) EligibleItems(ctx context.Context, filter types.EligibilityFilter) ([]*types.WorkItem, error) {
	if f.BeforeEligible != nil {
		f.BeforeEligible(filter)
	}
	return f.Storage.EligibleItems(ctx, filter)
}

func (f *FaultStore) ListWindowStatuses(ctx context.Context, kind types.PeriodKind, windowStart time.Time) ([]*types.PeriodStatus, error) {
	if f.BeforeWindowRead != nil {
		f.BeforeWindowRead(kind)
	}
	return f.Storage.ListWindowStatuses(ctx, kind, windowStart)
}

type faultTx struct {
	storage.Transaction
	f *FaultStore
}

func (tx *faultTx) UpsertPeriodStatus(ctx context.Context, st *types.PeriodStatus) error {
	if tx.f.FailUpsert != nil {
		if err := tx.f.FailUpsert(st); err != nil {
			return err
		}
	}
	return tx.Transaction.UpsertPeriodStatus(ctx, st)
}

func (tx *faultTx) ListWindowStatuses(ctx context.Context, kind types.PeriodKind, windowStart time.Time) ([]*types.PeriodStatus, error) {
	if tx.f.BeforeWindowRead != nil {
		tx.f.BeforeWindowRead(kind)
	}
	return tx.Transaction.ListWindowStatuses(ctx, kind, windowStart)
}

func (tx *faultTx) CompareAndBumpFocusGeneration(ctx context.Context, expected int64) error {
	tx.f.CASCalls.Add(1)
	if tx.f.BeforeCompareAndBump != nil {
		tx.f.BeforeCompareAndBump()
	}
	for {
		n := tx.f.Conflicts.Load()
		if n <= 0 {
			break
		}
		if tx.f.Conflicts.CompareAndSwap(n, n-1) {
			return storage.ErrConflict
		}
	}
	return tx.Transaction.CompareAndBumpFocusGeneration(ctx, expected)
}
