package journal

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	tests := []struct {
		name    string
		dbPath  string
		wantErr bool
	}{
		{
			name:    "creates database successfully",
			dbPath:  filepath.Join(t.TempDir(), "runs.db"),
			wantErr: false,
		},
		{
			name:    "handles in-memory database",
			dbPath:  ":memory:",
			wantErr: false,
		},
		{
			name:    "returns error for invalid path",
			dbPath:  "/invalid/nonexistent/deep/path/runs.db",
			wantErr: true,
		},
		{
			name:    "creates parent directories if needed",
			dbPath:  filepath.Join(t.TempDir(), "history", "runs.db"),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewStore(tt.dbPath)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, store)
			defer store.Close()

			exists, err := store.tableExists("runs")
			require.NoError(t, err)
			assert.True(t, exists, "runs table should exist")

			indexed, err := store.indexExists("idx_runs_started_at")
			require.NoError(t, err)
			assert.True(t, indexed, "started_at index should exist")

			assert.Equal(t, tt.dbPath, store.dbPath)
		})
	}
}

func TestRecordRun(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	run := &Run{
		RunID:     "9f2c1a34-0000-4000-8000-000000000001",
		Root:      "/data/documents",
		StartedAt: time.Now(),
		Duration:  1500 * time.Millisecond,
		Total:     10,
		Skipped:   4,
		Succeeded: 3,
		Failed:    2,
		Errored:   1,
	}

	require.NoError(t, store.RecordRun(ctx, run))
	assert.Greater(t, run.ID, int64(0), "ID should be filled in")

	runs, err := store.RecentRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.RunID, got.RunID)
	assert.Equal(t, run.Root, got.Root)
	assert.WithinDuration(t, run.StartedAt, got.StartedAt, time.Second)
	assert.Equal(t, run.Duration, got.Duration)
	assert.Equal(t, 10, got.Total)
	assert.Equal(t, 4, got.Skipped)
	assert.Equal(t, 3, got.Succeeded)
	assert.Equal(t, 2, got.Failed)
	assert.Equal(t, 1, got.Errored)
}

func TestRecordRunDuplicateRunID(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	run := &Run{RunID: "same-id", Root: "/data", StartedAt: time.Now()}
	require.NoError(t, store.RecordRun(ctx, run))

	dup := &Run{RunID: "same-id", Root: "/data", StartedAt: time.Now()}
	assert.Error(t, store.RecordRun(ctx, dup))
}

func TestRecentRunsOrderAndLimit(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		run := &Run{
			RunID:     fmt.Sprintf("run-%d", i),
			Root:      "/data",
			StartedAt: time.Now(),
		}
		require.NoError(t, store.RecordRun(ctx, run))
	}

	runs, err := store.RecentRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-3", runs[0].RunID, "newest run should be first")
	assert.Equal(t, "run-1", runs[2].RunID)

	limited, err := store.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "run-3", limited[0].RunID)
	assert.Equal(t, "run-2", limited[1].RunID)
}

func TestRecentRunsEmpty(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.RecentRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestPrune(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		run := &Run{
			RunID:     fmt.Sprintf("run-%d", i),
			Root:      "/data",
			StartedAt: time.Now(),
		}
		require.NoError(t, store.RecordRun(ctx, run))
	}

	deleted, err := store.Prune(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	runs, err := store.RecentRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-5", runs[0].RunID)
	assert.Equal(t, "run-4", runs[1].RunID)
}

func TestPruneKeepForever(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	run := &Run{RunID: "run-1", Root: "/data", StartedAt: time.Now()}
	require.NoError(t, store.RecordRun(ctx, run))

	deleted, err := store.Prune(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	deleted, err = store.Prune(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted, "keep larger than row count deletes nothing")
}

func TestReopenExistingDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	store, err := NewStore(dbPath)
	require.NoError(t, err)
	run := &Run{RunID: "run-1", Root: "/data", StartedAt: time.Now()}
	require.NoError(t, store.RecordRun(context.Background(), run))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	runs, err := reopened.RecentRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)
}
