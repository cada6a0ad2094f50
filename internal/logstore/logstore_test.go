package logstore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridsight/control-plane/pkg/models"
)

type entry struct {
	Seq int `json:"seq"`
}

func backends(t *testing.T, capacity int) map[string]Log[entry] {
	t.Helper()
	dir := t.TempDir()

	db, err := OpenSQLite(filepath.Join(dir, "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sqlLog, err := NewSQLiteLog[entry](db, "entries", capacity)
	require.NoError(t, err)

	return map[string]Log[entry]{
		"memory": NewMemoryLog[entry](capacity),
		"file":   NewFileLog[entry](filepath.Join(dir, "entries.json"), capacity),
		"sqlite": sqlLog,
	}
}

func seqs(entries []entry) []int {
	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = e.Seq
	}
	return out
}

func TestLog_KeepsMostRecentInOrder(t *testing.T) {
	ctx := context.Background()
	for name, l := range backends(t, 5) {
		t.Run(name, func(t *testing.T) {
			for i := 1; i <= 12; i++ {
				require.NoError(t, l.Append(ctx, entry{Seq: i}))
			}
			all, err := l.Recent(ctx, 0)
			require.NoError(t, err)
			assert.Equal(t, []int{8, 9, 10, 11, 12}, seqs(all))
			assert.Equal(t, 5, l.Capacity())

			last, err := l.Recent(ctx, 3)
			require.NoError(t, err)
			assert.Equal(t, []int{10, 11, 12}, seqs(last))
		})
	}
}

func TestLog_EmptyRecent(t *testing.T) {
	ctx := context.Background()
	for name, l := range backends(t, 3) {
		t.Run(name, func(t *testing.T) {
			got, err := l.Recent(ctx, 10)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestLog_NonPositiveCapacityRetainsNothing(t *testing.T) {
	ctx := context.Background()
	for _, capacity := range []int{0, -1} {
		for name, l := range backends(t, capacity) {
			t.Run(name, func(t *testing.T) {
				for i := 1; i <= 3; i++ {
					require.NoError(t, l.Append(ctx, entry{Seq: i}))
				}
				got, err := l.Recent(ctx, 0)
				require.NoError(t, err)
				assert.Empty(t, got)
			})
		}
	}
}

func TestLog_ConcurrentAppendsAreNotLost(t *testing.T) {
	ctx := context.Background()
	for name, l := range backends(t, 500) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for w := 0; w < 20; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < 10; i++ {
						assert.NoError(t, l.Append(ctx, entry{Seq: w*10 + i}))
					}
				}(w)
			}
			wg.Wait()

			got, err := l.Recent(ctx, 0)
			require.NoError(t, err)
			assert.Len(t, got, 200)
		})
	}
}

func TestFileLog_SharedAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "alerts.json")
	a := NewFileLog[entry](path, 10)
	b := NewFileLog[entry](path, 10)

	require.NoError(t, a.Append(ctx, entry{Seq: 1}))
	require.NoError(t, b.Append(ctx, entry{Seq: 2}))

	got, err := a.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seqs(got))
}

func TestFileLog_CorruptFileStartsFresh(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	l := NewFileLog[entry](path, 3)
	got, err := l.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, l.Append(ctx, entry{Seq: 7}))
	got, err = l.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{7}, seqs(got))
}

func TestFileLog_NoTempFilesLeft(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	l := NewFileLog[entry](filepath.Join(dir, "memory.json"), 2)
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Append(ctx, entry{Seq: i}))
	}
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestNewSQLiteLog_RejectsBadTable(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "x.sqlite"))
	require.NoError(t, err)
	defer db.Close()

	_, err = NewSQLiteLog[entry](db, "alerts; DROP TABLE x", 5)
	assert.Error(t, err)
}

func TestOpen_Backends(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []Backend{BackendJSON, BackendSQLite, BackendMemory} {
		t.Run(string(backend), func(t *testing.T) {
			logs, err := Open(backend, t.TempDir(), DefaultCapacities)
			require.NoError(t, err)
			defer logs.Close()

			require.NoError(t, logs.Alerts.Append(ctx, models.AlertRecord{ID: "abc12345", Severity: models.PriorityP0}))
			got, err := logs.Alerts.Recent(ctx, 0)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "abc12345", got[0].ID)
			assert.Equal(t, 50, logs.Alerts.Capacity())
			assert.Equal(t, 10, logs.Memory.Capacity())
		})
	}

	_, err := Open("postgres", t.TempDir(), DefaultCapacities)
	assert.Error(t, err)
}
