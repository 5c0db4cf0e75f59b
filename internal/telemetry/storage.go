package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/steveyegge/tempo/internal/storage"
	"github.com/steveyegge/tempo/internal/types"
)

const storageScopeName = "github.com/steveyegge/tempo/storage"

// InstrumentedStorage wraps storage.Storage with OTel tracing and metrics.
// Every method gets a span and is counted in tempo.storage.* metrics.
// Use WrapStorage to create one; it returns the original store unchanged when
// telemetry is disabled.
type InstrumentedStorage struct {
	inner     storage.Storage
	tracer    trace.Tracer
	ops       metric.Int64Counter
	dur       metric.Float64Histogram
	errs      metric.Int64Counter
	conflicts metric.Int64Counter
}

// WrapStorage returns s decorated with OTel instrumentation.
// When telemetry is disabled, s is returned as-is with zero overhead.
func WrapStorage(s storage.Storage) storage.Storage {
	if !Enabled() {
		return s
	}
	return newInstrumented(s)
}

func newInstrumented(s storage.Storage) *InstrumentedStorage {
	m := Meter(storageScopeName)
	ops, _ := m.Int64Counter("tempo.storage.operations",
		metric.WithDescription("Total storage operations executed"),
	)
	dur, _ := m.Float64Histogram("tempo.storage.operation.duration",
		metric.WithDescription("Storage operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("tempo.storage.errors",
		metric.WithDescription("Total storage operation errors"),
	)
	conflicts, _ := m.Int64Counter("tempo.storage.focus_conflicts",
		metric.WithDescription("Focus generation compare-and-bump conflicts"),
	)
	return &InstrumentedStorage{
		inner:     s,
		tracer:    Tracer(storageScopeName),
		ops:       ops,
		dur:       dur,
		errs:      errs,
		conflicts: conflicts,
	}
}

// Unwrap returns the decorated store.
func (s *InstrumentedStorage) Unwrap() storage.Storage {
	return s.inner
}

// op starts a span and records a metric for the named storage operation.
func (s *InstrumentedStorage) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	all := append([]attribute.KeyValue{attribute.String("db.operation", name)}, attrs...)
	ctx, span := s.tracer.Start(ctx, "storage."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	s.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now()
}

// done ends the span, records duration and optional error.
// ErrNotFound is an answer, not a failure.
func (s *InstrumentedStorage) done(ctx context.Context, span trace.Span, start time.Time, err error, attrs ...attribute.KeyValue) {
	ms := float64(time.Since(start).Milliseconds())
	s.dur.Record(ctx, ms, metric.WithAttributes(attrs...))
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	span.End()
}

// ── Items ───────────────────────────────────────────────────────────────────

func (s *InstrumentedStorage) GetItem(ctx context.Context, id string) (*types.WorkItem, error) {
	attrs := []attribute.KeyValue{attribute.String("tempo.item.id", id)}
	ctx, span, t := s.op(ctx, "GetItem", attrs...)
	v, err := s.inner.GetItem(ctx, id)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStorage) ListItems(ctx context.Context, filter types.ItemFilter) ([]*types.WorkItem, error) {
	ctx, span, t := s.op(ctx, "ListItems")
	v, err := s.inner.ListItems(ctx, filter)
	if err == nil {
		span.SetAttributes(attribute.Int("tempo.result.count", len(v)))
	}
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStorage) EligibleItems(ctx context.Context, filter types.EligibilityFilter) ([]*types.WorkItem, error) {
	attrs := []attribute.KeyValue{
		attribute.Int("tempo.priority.min", filter.MinPriority),
		attribute.Int("tempo.priority.max", filter.MaxPriority),
	}
	ctx, span, t := s.op(ctx, "EligibleItems", attrs...)
	v, err := s.inner.EligibleItems(ctx, filter)
	if err == nil {
		span.SetAttributes(attribute.Int("tempo.result.count", len(v)))
	}
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

// ── Period statuses ─────────────────────────────────────────────────────────

func (s *InstrumentedStorage) GetPeriodStatus(ctx context.Context, itemID string, kind types.PeriodKind, windowStart time.Time) (*types.PeriodStatus, error) {
	attrs := []attribute.KeyValue{
		attribute.String("tempo.item.id", itemID),
		attribute.String("tempo.period", string(kind)),
	}
	ctx, span, t := s.op(ctx, "GetPeriodStatus", attrs...)
	v, err := s.inner.GetPeriodStatus(ctx, itemID, kind, windowStart)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStorage) ListPeriodStatuses(ctx context.Context, itemID string) ([]*types.PeriodStatus, error) {
	attrs := []attribute.KeyValue{attribute.String("tempo.item.id", itemID)}
	ctx, span, t := s.op(ctx, "ListPeriodStatuses", attrs...)
	v, err := s.inner.ListPeriodStatuses(ctx, itemID)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStorage) ListWindowStatuses(ctx context.Context, kind types.PeriodKind, windowStart time.Time) ([]*types.PeriodStatus, error) {
	attrs := []attribute.KeyValue{attribute.String("tempo.period", string(kind))}
	ctx, span, t := s.op(ctx, "ListWindowStatuses", attrs...)
	v, err := s.inner.ListWindowStatuses(ctx, kind, windowStart)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

// ── Monitoring ─────────────────────────────────────────────────────────────

func (s *InstrumentedStorage) ListMonitors(ctx context.Context, itemID string) ([]*types.MonitoringAssociation, error) {
	attrs := []attribute.KeyValue{attribute.String("tempo.item.id", itemID)}
	ctx, span, t := s.op(ctx, "ListMonitors", attrs...)
	v, err := s.inner.ListMonitors(ctx, itemID)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStorage) FocusGeneration(ctx context.Context) (int64, error) {
	ctx, span, t := s.op(ctx, "FocusGeneration")
	v, err := s.inner.FocusGeneration(ctx)
	s.done(ctx, span, t, err)
	return v, err
}

// ── Transactions ────────────────────────────────────────────────────────────

func (s *InstrumentedStorage) RunInTransaction(ctx context.Context, fn func(tx storage.Transaction) error) error {
	ctx, span, t := s.op(ctx, "RunInTransaction")
	err := s.inner.RunInTransaction(ctx, func(tx storage.Transaction) error {
		return fn(&instrumentedTx{Transaction: tx, s: s})
	})
	s.done(ctx, span, t, err)
	return err
}

func (s *InstrumentedStorage) Close() error {
	return s.inner.Close()
}

// instrumentedTx counts writes and focus conflicts inside a transaction.
// Reads pass straight through the embedded Transaction.
type instrumentedTx struct {
	storage.Transaction
	s *InstrumentedStorage
}

func (tx *instrumentedTx) count(ctx context.Context, name string) {
	tx.s.ops.Add(ctx, 1, metric.WithAttributes(attribute.String("db.operation", name)))
}

func (tx *instrumentedTx) CreateItem(ctx context.Context, item *types.WorkItem) error {
	tx.count(ctx, "tx.CreateItem")
	return tx.Transaction.CreateItem(ctx, item)
}

func (tx *instrumentedTx) UpdateItem(ctx context.Context, item *types.WorkItem) error {
	tx.count(ctx, "tx.UpdateItem")
	return tx.Transaction.UpdateItem(ctx, item)
}

func (tx *instrumentedTx) UpsertPeriodStatus(ctx context.Context, st *types.PeriodStatus) error {
	tx.count(ctx, "tx.UpsertPeriodStatus")
	return tx.Transaction.UpsertPeriodStatus(ctx, st)
}

func (tx *instrumentedTx) CompareAndBumpFocusGeneration(ctx context.Context, expected int64) error {
	tx.count(ctx, "tx.CompareAndBumpFocusGeneration")
	err := tx.Transaction.CompareAndBumpFocusGeneration(ctx, expected)
	if errors.Is(err, storage.ErrConflict) {
		tx.s.conflicts.Add(ctx, 1)
	}
	return err
}
