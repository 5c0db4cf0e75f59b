// Package export writes the item set as JSON lines, one Record per item.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/steveyegge/tempo/internal/storage"
	"github.com/steveyegge/tempo/internal/types"
)

// Record is one exported line.
type Record struct {
	Item     *types.WorkItem    `json:"item"`
	Monitors []types.PeriodKind `json:"monitors,omitempty"`
}

// Collect reads every item and its monitoring associations, in ID order.
func Collect(ctx context.Context, r storage.Reader) ([]*Record, error) {
	items, err := r.ListItems(ctx, types.ItemFilter{})
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	slices.SortFunc(items, func(a, b *types.WorkItem) int { return strings.Compare(a.ID, b.ID) })

	recs := make([]*Record, 0, len(items))
	for _, it := range items {
		assocs, err := r.ListMonitors(ctx, it.ID)
		if err != nil {
			return nil, fmt.Errorf("list monitors for %s: %w", it.ID, err)
		}
		rec := &Record{Item: it}
		for _, a := range assocs {
			rec.Monitors = append(rec.Monitors, a.PeriodKind)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Encode writes recs to w as JSON lines.
func Encode(w io.Writer, recs []*Record) error {
	enc := json.NewEncoder(w)
	for _, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode %s: %w", rec.Item.ID, err)
		}
	}
	return nil
}

// WriteFile replaces path with recs. Readers see either the old file or the
// complete new one.
func WriteFile(path string, recs []*Record) error {
	var buf bytes.Buffer
	if err := Encode(&buf, recs); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	// atomic.WriteFile doesn't set permissions for new files
	if err := os.Chmod(path, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to set export permissions: %v\n", err)
	}
	return nil
}
