package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendFillsDefaults(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := &Record{RunID: "run-1", Iteration: 1, Type: "tool_call_result", Health: "OK", Message: "read main.go"}
	require.NoError(t, store.Append(ctx, rec))
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestRecentFiltersAndOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	seed := []*Record{
		{RunID: "run-1", Iteration: 1, Type: "assistant_text", Health: "OK", Message: "a", CreatedAt: base},
		{RunID: "run-1", Iteration: 1, Type: "tool_call_result", Health: "WARN", Message: "b", CreatedAt: base.Add(time.Second)},
		{RunID: "run-2", Iteration: 1, Type: "tool_call_result", Health: "OK", Message: "c", CreatedAt: base.Add(2 * time.Second)},
	}
	for _, rec := range seed {
		require.NoError(t, store.Append(ctx, rec))
	}

	all, err := store.Recent(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].Message, "most recent first")

	byRun, err := store.Recent(ctx, Filter{RunID: "run-1"})
	require.NoError(t, err)
	assert.Len(t, byRun, 2)

	byType, err := store.Recent(ctx, Filter{Type: "tool_call_result", Limit: 1})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "c", byType[0].Message)
}

func TestRecentEmptyStore(t *testing.T) {
	store := openTestStore(t)
	recs, err := store.Recent(context.Background(), Filter{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, recs)
}
