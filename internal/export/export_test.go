package export

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/tempo/internal/storage"
	"github.com/steveyegge/tempo/internal/testutil/teststore"
	"github.com/steveyegge/tempo/internal/types"
)

func seed(t *testing.T, env *teststore.Env) (a, b *types.WorkItem) {
	t.Helper()
	a = env.CreateItemWith("b item", types.PeriodDaily, 2, teststore.Date(2025, 6, 12))
	b = env.CreateItem("a item", types.PeriodOneTime)
	env.Write(func(tx storage.Transaction) error {
		return tx.AddMonitor(env.Ctx, &types.MonitoringAssociation{ItemID: a.ID, PeriodKind: types.PeriodWeekly, CreatedAt: env.Now})
	})
	return a, b
}

func TestCollect(t *testing.T) {
	for _, backend := range teststore.Backends {
		t.Run(backend, func(t *testing.T) {
			env := teststore.NewEnv(t, backend)
			a, b := seed(t, env)

			recs, err := Collect(env.Ctx, env.Store)
			require.NoError(t, err)
			require.Len(t, recs, 2)

			byID := map[string]*Record{recs[0].Item.ID: recs[0], recs[1].Item.ID: recs[1]}
			assert.Less(t, recs[0].Item.ID, recs[1].Item.ID, "records are in ID order")
			assert.Equal(t, []types.PeriodKind{types.PeriodWeekly}, byID[a.ID].Monitors)
			assert.Empty(t, byID[b.ID].Monitors)
		})
	}
}

func TestWriteFileReplacesAtomically(t *testing.T) {
	env := teststore.NewEnv(t, teststore.SQLite)
	seed(t, env)
	recs, err := Collect(env.Ctx, env.Store)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "items.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0o644))
	require.NoError(t, WriteFile(path, recs))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lines := 0
	for scanner.Scan() {
		var rec Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec), "line %d", lines+1)
		assert.NotEmpty(t, rec.Item.ID)
		lines++
	}
	assert.Equal(t, 2, lines)

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestManifest(t *testing.T) {
	recs := []*Record{
		{Item: &types.WorkItem{ID: "a", HomePeriod: types.PeriodDaily}, Monitors: []types.PeriodKind{types.PeriodWeekly, types.PeriodMonthly}},
		{Item: &types.WorkItem{ID: "b", HomePeriod: types.PeriodDaily}},
		{Item: &types.WorkItem{ID: "c", HomePeriod: types.PeriodHabit}},
	}
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	m := NewManifest(recs, now)
	assert.Equal(t, 3, m.Items)
	assert.Equal(t, 2, m.Monitors)
	assert.Equal(t, map[string]int{"daily": 2, "habit": 1}, m.ByPeriod)

	dir := t.TempDir()
	jsonl := filepath.Join(dir, "backup.jsonl")
	assert.Equal(t, filepath.Join(dir, "backup.manifest.json"), ManifestPath(jsonl))
	require.NoError(t, WriteManifest(jsonl, m))

	data, err := os.ReadFile(ManifestPath(jsonl))
	require.NoError(t, err)
	var back Manifest
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, now.Equal(back.ExportedAt))
	assert.Equal(t, m.ByPeriod, back.ByPeriod)
}
