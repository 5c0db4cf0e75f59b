// Package memory implements the storage interface in process memory.
//
// Transactions run under an exclusive lock against a copy of the state that
// replaces the live state only on success, so every transaction is
// serializable and all-or-nothing.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/steveyegge/tempo/internal/storage"
	"github.com/steveyegge/tempo/internal/types"
)

type statusKey struct {
	itemID string
	kind   types.PeriodKind
	window time.Time // UTC window start
}

type monitorKey struct {
	itemID string
	kind   types.PeriodKind
}

type state struct {
	items      map[string]*types.WorkItem
	statuses   map[statusKey]*types.PeriodStatus
	monitors   map[monitorKey]*types.MonitoringAssociation
	generation int64
}

func newState() *state {
	return &state{
		items:    make(map[string]*types.WorkItem),
		statuses: make(map[statusKey]*types.PeriodStatus),
		monitors: make(map[monitorKey]*types.MonitoringAssociation),
	}
}

func (s *state) clone() *state {
	c := &state{
		items:      make(map[string]*types.WorkItem, len(s.items)),
		statuses:   make(map[statusKey]*types.PeriodStatus, len(s.statuses)),
		monitors:   make(map[monitorKey]*types.MonitoringAssociation, len(s.monitors)),
		generation: s.generation,
	}
	for k, v := range s.items {
		c.items[k] = v.Clone()
	}
	for k, v := range s.statuses {
		cp := *v
		c.statuses[k] = &cp
	}
	for k, v := range s.monitors {
		cp := *v
		c.monitors[k] = &cp
	}
	return c
}

// keyFor builds the map key of a status row. UTC drops the location and
// monotonic reading, so equal instants give equal keys, including the
// year-one lifetime window that UnixNano cannot represent.
func keyFor(itemID string, kind types.PeriodKind, windowStart time.Time) statusKey {
	return statusKey{itemID: itemID, kind: kind, window: windowStart.UTC()}
}

// MemoryStorage is an in-memory storage backend.
type MemoryStorage struct {
	mu     sync.RWMutex
	st     *state
	closed bool
}

var _ storage.Storage = (*MemoryStorage)(nil)

// New creates an empty in-memory store.
func New() *MemoryStorage {
	return &MemoryStorage{st: newState()}
}

// read runs fn against the live state under a shared lock.
func (m *MemoryStorage) read(fn func(st *state) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return storage.ErrClosed
	}
	return fn(m.st)
}

func (m *MemoryStorage) GetItem(ctx context.Context, id string) (*types.WorkItem, error) {
	var out *types.WorkItem
	err := m.read(func(st *state) (err error) {
		out, err = st.getItem(id)
		return err
	})
	return out, err
}

func (m *MemoryStorage) ListItems(ctx context.Context, filter types.ItemFilter) ([]*types.WorkItem, error) {
	var out []*types.WorkItem
	err := m.read(func(st *state) error {
		out = st.listItems(filter)
		return nil
	})
	return out, err
}

func (m *MemoryStorage) EligibleItems(ctx context.Context, filter types.EligibilityFilter) ([]*types.WorkItem, error) {
	var out []*types.WorkItem
	err := m.read(func(st *state) error {
		out = st.eligibleItems(filter)
		return nil
	})
	return out, err
}

func (m *MemoryStorage) GetPeriodStatus(ctx context.Context, itemID string, kind types.PeriodKind, windowStart time.Time) (*types.PeriodStatus, error) {
	var out *types.PeriodStatus
	err := m.read(func(st *state) (err error) {
		out, err = st.getPeriodStatus(itemID, kind, windowStart)
		return err
	})
	return out, err
}

func (m *MemoryStorage) ListPeriodStatuses(ctx context.Context, itemID string) ([]*types.PeriodStatus, error) {
	var out []*types.PeriodStatus
	err := m.read(func(st *state) error {
		out = st.listPeriodStatuses(itemID)
		return nil
	})
	return out, err
}

func (m *MemoryStorage) ListWindowStatuses(ctx context.Context, kind types.PeriodKind, windowStart time.Time) ([]*types.PeriodStatus, error) {
	var out []*types.PeriodStatus
	err := m.read(func(st *state) error {
		out = st.listWindowStatuses(kind, windowStart)
		return nil
	})
	return out, err
}

func (m *MemoryStorage) ListMonitors(ctx context.Context, itemID string) ([]*types.MonitoringAssociation, error) {
	var out []*types.MonitoringAssociation
	err := m.read(func(st *state) error {
		out = st.listMonitors(itemID)
		return nil
	})
	return out, err
}

func (m *MemoryStorage) FocusGeneration(ctx context.Context) (int64, error) {
	var out int64
	err := m.read(func(st *state) error {
		out = st.generation
		return nil
	})
	return out, err
}

// RunInTransaction executes fn against a private copy of the state and
// publishes the copy only if fn succeeds.
func (m *MemoryStorage) RunInTransaction(ctx context.Context, fn func(tx storage.Transaction) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return storage.ErrClosed
	}

	work := m.st.clone()
	if err := fn(&memoryTx{st: work}); err != nil {
		return err
	}
	m.st = work
	return nil
}

// Close marks the store closed. Further calls return storage.ErrClosed.
func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// memoryTx implements storage.Transaction over a private state copy.
type memoryTx struct {
	st *state
}

func (t *memoryTx) GetItem(ctx context.Context, id string) (*types.WorkItem, error) {
	return t.st.getItem(id)
}

func (t *memoryTx) ListItems(ctx context.Context, filter types.ItemFilter) ([]*types.WorkItem, error) {
	return t.st.listItems(filter), nil
}

func (t *memoryTx) EligibleItems(ctx context.Context, filter types.EligibilityFilter) ([]*types.WorkItem, error) {
	return t.st.eligibleItems(filter), nil
}

func (t *memoryTx) GetPeriodStatus(ctx context.Context, itemID string, kind types.PeriodKind, windowStart time.Time) (*types.PeriodStatus, error) {
	return t.st.getPeriodStatus(itemID, kind, windowStart)
}

func (t *memoryTx) ListPeriodStatuses(ctx context.Context, itemID string) ([]*types.PeriodStatus, error) {
	return t.st.listPeriodStatuses(itemID), nil
}

func (t *memoryTx) ListWindowStatuses(ctx context.Context, kind types.PeriodKind, windowStart time.Time) ([]*types.PeriodStatus, error) {
	return t.st.listWindowStatuses(kind, windowStart), nil
}

func (t *memoryTx) ListMonitors(ctx context.Context, itemID string) ([]*types.MonitoringAssociation, error) {
	return t.st.listMonitors(itemID), nil
}

func (t *memoryTx) FocusGeneration(ctx context.Context) (int64, error) {
	return t.st.generation, nil
}

func (t *memoryTx) CreateItem(ctx context.Context, item *types.WorkItem) error {
	if _, ok := t.st.items[item.ID]; ok {
		return fmt.Errorf("item %s: %w", item.ID, storage.ErrAlreadyExists)
	}
	t.st.items[item.ID] = item.Clone()
	return nil
}

func (t *memoryTx) UpdateItem(ctx context.Context, item *types.WorkItem) error {
	if _, ok := t.st.items[item.ID]; !ok {
		return fmt.Errorf("item %s: %w", item.ID, storage.ErrNotFound)
	}
	t.st.items[item.ID] = item.Clone()
	return nil
}

func (t *memoryTx) DeleteItem(ctx context.Context, id string) error {
	if _, ok := t.st.items[id]; !ok {
		return fmt.Errorf("item %s: %w", id, storage.ErrNotFound)
	}
	delete(t.st.items, id)
	for k := range t.st.statuses {
		if k.itemID == id {
			delete(t.st.statuses, k)
		}
	}
	for k := range t.st.monitors {
		if k.itemID == id {
			delete(t.st.monitors, k)
		}
	}
	return nil
}

func (t *memoryTx) UpsertPeriodStatus(ctx context.Context, st *types.PeriodStatus) error {
	if _, ok := t.st.items[st.ItemID]; !ok {
		return fmt.Errorf("item %s: %w", st.ItemID, storage.ErrNotFound)
	}
	cp := *st
	cp.WindowStart = st.WindowStart.UTC()
	t.st.statuses[keyFor(st.ItemID, st.PeriodKind, st.WindowStart)] = &cp
	return nil
}

func (t *memoryTx) InsertPeriodStatusIfAbsent(ctx context.Context, st *types.PeriodStatus) (bool, error) {
	if _, ok := t.st.items[st.ItemID]; !ok {
		return false, fmt.Errorf("item %s: %w", st.ItemID, storage.ErrNotFound)
	}
	key := keyFor(st.ItemID, st.PeriodKind, st.WindowStart)
	if _, ok := t.st.statuses[key]; ok {
		return false, nil
	}
	cp := *st
	cp.WindowStart = st.WindowStart.UTC()
	t.st.statuses[key] = &cp
	return true, nil
}

func (t *memoryTx) AddMonitor(ctx context.Context, assoc *types.MonitoringAssociation) error {
	if _, ok := t.st.items[assoc.ItemID]; !ok {
		return fmt.Errorf("item %s: %w", assoc.ItemID, storage.ErrNotFound)
	}
	key := monitorKey{itemID: assoc.ItemID, kind: assoc.PeriodKind}
	if _, ok := t.st.monitors[key]; ok {
		return nil
	}
	cp := *assoc
	t.st.monitors[key] = &cp
	return nil
}

func (t *memoryTx) RemoveMonitor(ctx context.Context, itemID string, kind types.PeriodKind) error {
	delete(t.st.monitors, monitorKey{itemID: itemID, kind: kind})
	return nil
}

func (t *memoryTx) CompareAndBumpFocusGeneration(ctx context.Context, expected int64) error {
	if t.st.generation != expected {
		return fmt.Errorf("focus generation is %d, expected %d: %w", t.st.generation, expected, storage.ErrConflict)
	}
	t.st.generation++
	return nil
}

func (t *memoryTx) TouchFocusGeneration(ctx context.Context) error {
	t.st.generation++
	return nil
}

// state accessors return copies so callers never alias stored records.

func (s *state) getItem(id string) (*types.WorkItem, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", id, storage.ErrNotFound)
	}
	return item.Clone(), nil
}

func (s *state) listItems(filter types.ItemFilter) []*types.WorkItem {
	var idSet map[string]bool
	if len(filter.IDs) > 0 {
		idSet = make(map[string]bool, len(filter.IDs))
		for _, id := range filter.IDs {
			idSet[id] = true
		}
	}

	var out []*types.WorkItem
	for _, item := range s.items {
		if filter.HomePeriod != nil && item.HomePeriod != *filter.HomePeriod {
			continue
		}
		if filter.MonitoredIn != nil {
			if _, ok := s.monitors[monitorKey{itemID: item.ID, kind: *filter.MonitoredIn}]; !ok {
				continue
			}
		}
		if idSet != nil && !idSet[item.ID] {
			continue
		}
		out = append(out, item.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

func (s *state) eligibleItems(filter types.EligibilityFilter) []*types.WorkItem {
	var out []*types.WorkItem
	for _, item := range s.items {
		if item.ID == filter.ExcludeID {
			continue
		}
		if !types.IsEligible(item, filter.MinPriority, filter.MaxPriority, filter.DueOnOrBefore) {
			continue
		}
		out = append(out, item.Clone())
	}
	types.SortForFocus(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

func (s *state) getPeriodStatus(itemID string, kind types.PeriodKind, windowStart time.Time) (*types.PeriodStatus, error) {
	st, ok := s.statuses[keyFor(itemID, kind, windowStart)]
	if !ok {
		return nil, fmt.Errorf("status %s/%s/%s: %w", itemID, kind, windowStart.UTC().Format(time.RFC3339), storage.ErrNotFound)
	}
	cp := *st
	return &cp, nil
}

func (s *state) listPeriodStatuses(itemID string) []*types.PeriodStatus {
	var out []*types.PeriodStatus
	for k, v := range s.statuses {
		if k.itemID == itemID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sortStatuses(out)
	return out
}

func (s *state) listWindowStatuses(kind types.PeriodKind, windowStart time.Time) []*types.PeriodStatus {
	w := windowStart.UTC()
	var out []*types.PeriodStatus
	for k, v := range s.statuses {
		if k.kind == kind && k.window == w {
			cp := *v
			out = append(out, &cp)
		}
	}
	sortStatuses(out)
	return out
}

func (s *state) listMonitors(itemID string) []*types.MonitoringAssociation {
	var out []*types.MonitoringAssociation
	for k, v := range s.monitors {
		if k.itemID == itemID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodKind < out[j].PeriodKind })
	return out
}

func sortStatuses(out []*types.PeriodStatus) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].ItemID != out[j].ItemID {
			return out[i].ItemID < out[j].ItemID
		}
		if out[i].PeriodKind != out[j].PeriodKind {
			return out[i].PeriodKind < out[j].PeriodKind
		}
		return out[i].WindowStart.Before(out[j].WindowStart)
	})
}
