// Package sqlstore implements storage.Storage on database/sql. The sqlite and
// dolt backends provide a connection and a Dialect; queries, scanning and
// transaction handling live here.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/steveyegge/tempo/internal/debug"
	"github.com/steveyegge/tempo/internal/storage"
	"github.com/steveyegge/tempo/internal/types"
)

const (
	// maxTransactionRetries is the maximum number of retry attempts for
	// transactions that lose a serialization conflict
	maxTransactionRetries = 5
	// initialRetryDelay is the initial delay before retrying a failed transaction
	initialRetryDelay = 50 * time.Millisecond
	maxRetryDelay     = 2 * time.Second
)

// Server mode uses go-sql-driver/mysql, which doesn't retry stale pool
// connections or brief network issues on its own.
const serverRetryMaxElapsed = 30 * time.Second

func newServerRetryBackoff() backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = serverRetryMaxElapsed
	return bo
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements storage.Storage over a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
	closed  atomic.Bool
}

var _ storage.Storage = (*Store)(nil)

// New wraps db and initializes the schema. The Store owns db from here on
// and closes it in Close.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	s := &Store{db: db, dialect: dialect}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if err := s.withRetry(ctx, func() error {
			_, err := s.db.ExecContext(ctx, stmt)
			return err
		}); err != nil {
			return fmt.Errorf("%s: init schema: %w (statement: %s)", s.dialect.Name, err, truncateForError(stmt))
		}
	}
	return nil
}

func truncateForError(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 80 {
		return s[:77] + "..."
	}
	return s
}

// DB exposes the underlying pool for tests and maintenance commands.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database. Subsequent calls return storage.ErrClosed.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return storage.ErrClosed
	}
	return s.db.Close()
}

func (s *Store) checkOpen() error {
	if s.closed.Load() {
		return storage.ErrClosed
	}
	return nil
}

// withRetry executes an operation with retry for transient errors.
// Only active in server mode.
func (s *Store) withRetry(ctx context.Context, op func() error) error {
	if !s.dialect.ServerMode {
		return op()
	}

	bo := newServerRetryBackoff()
	return backoff.Retry(func() error {
		err := op()
		if err != nil && isRetryableError(err) {
			return err // Retryable - backoff will retry
		}
		if err != nil {
			return backoff.Permanent(err) // Non-retryable - stop immediately
		}
		return nil
	}, backoff.WithContext(bo, ctx))
}

// RunInTransaction executes fn within a database transaction.
// If the transaction fails due to a serialization conflict or lock
// contention it is retried as a whole with exponential backoff.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx storage.Transaction) error) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	var lastErr error
	retryDelay := initialRetryDelay

	for attempt := 0; attempt <= maxTransactionRetries; attempt++ {
		if attempt > 0 {
			debug.Logf("%s transaction retry (attempt %d/%d) after %v, waiting %v\n",
				s.dialect.Name, attempt, maxTransactionRetries, lastErr, retryDelay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
			retryDelay *= 2
			if retryDelay > maxRetryDelay {
				retryDelay = maxRetryDelay
			}
		}

		lastErr = s.runTransactionOnce(ctx, fn)
		if lastErr == nil {
			return nil
		}
		// A focus conflict is decided by the caller, not retried here.
		if errors.Is(lastErr, storage.ErrConflict) {
			return lastErr
		}
		if !isSerializationError(lastErr) && !isBusyError(lastErr) && !(s.dialect.ServerMode && isRetryableError(lastErr)) {
			return lastErr
		}
	}

	return fmt.Errorf("transaction failed after %d retries: %w", maxTransactionRetries, lastErr)
}

// runTransactionOnce executes a single transaction attempt
func (s *Store) runTransactionOnce(ctx context.Context, fn func(tx storage.Transaction) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	tx := &sqlTransaction{tx: sqlTx, store: s}

	defer func() {
		if r := recover(); r != nil {
			_ = sqlTx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Reads on the store run outside a transaction with server-mode retry.

func (s *Store) GetItem(ctx context.Context, id string) (*types.WorkItem, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var out *types.WorkItem
	err := s.withRetry(ctx, func() (err error) {
		out, err = getItem(ctx, s.db, id)
		return err
	})
	return out, err
}

func (s *Store) ListItems(ctx context.Context, filter types.ItemFilter) ([]*types.WorkItem, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var out []*types.WorkItem
	err := s.withRetry(ctx, func() (err error) {
		out, err = listItems(ctx, s.db, filter)
		return err
	})
	return out, err
}

func (s *Store) EligibleItems(ctx context.Context, filter types.EligibilityFilter) ([]*types.WorkItem, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var out []*types.WorkItem
	err := s.withRetry(ctx, func() (err error) {
		out, err = eligibleItems(ctx, s.db, filter)
		return err
	})
	return out, err
}

func (s *Store) GetPeriodStatus(ctx context.Context, itemID string, kind types.PeriodKind, windowStart time.Time) (*types.PeriodStatus, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var out *types.PeriodStatus
	err := s.withRetry(ctx, func() (err error) {
		out, err = getPeriodStatus(ctx, s.db, itemID, kind, windowStart)
		return err
	})
	return out, err
}

func (s *Store) ListPeriodStatuses(ctx context.Context, itemID string) ([]*types.PeriodStatus, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var out []*types.PeriodStatus
	err := s.withRetry(ctx, func() (err error) {
		out, err = listPeriodStatuses(ctx, s.db, itemID)
		return err
	})
	return out, err
}

func (s *Store) ListWindowStatuses(ctx context.Context, kind types.PeriodKind, windowStart time.Time) ([]*types.PeriodStatus, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var out []*types.PeriodStatus
	err := s.withRetry(ctx, func() (err error) {
		out, err = listWindowStatuses(ctx, s.db, kind, windowStart)
		return err
	})
	return out, err
}

func (s *Store) ListMonitors(ctx context.Context, itemID string) ([]*types.MonitoringAssociation, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var out []*types.MonitoringAssociation
	err := s.withRetry(ctx, func() (err error) {
		out, err = listMonitors(ctx, s.db, itemID)
		return err
	})
	return out, err
}

func (s *Store) FocusGeneration(ctx context.Context) (int64, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	var out int64
	err := s.withRetry(ctx, func() (err error) {
		out, err = focusGeneration(ctx, s.db)
		return err
	})
	return out, err
}
