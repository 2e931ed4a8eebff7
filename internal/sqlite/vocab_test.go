package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func openTestStore(t *testing.T) *VocabStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "vocab.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddCountsAccumulates(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.AddCounts(ctx, map[string]int{"hello": 2, "world": 1}))
	require.NoError(t, s.AddCounts(ctx, map[string]int{"world": 3, "cup": 1}))

	got, err := s.GlobalCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"hello": 2, "world": 4, "cup": 1}, got)
}

// Pass one writes batches from every pipeline worker at once; overlapping
// write transactions must queue rather than fail with a busy error.
func TestAddCountsConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	const writers = 8
	const batches = 5

	var g errgroup.Group
	for w := 0; w < writers; w++ {
		g.Go(func() error {
			for b := 0; b < batches; b++ {
				batch := map[string]int{
					"shared":                    1,
					fmt.Sprintf("worker-%d", w): 1,
				}
				if err := s.AddCounts(ctx, batch); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	got, err := s.GlobalCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, writers*batches, got["shared"])
	for w := 0; w < writers; w++ {
		assert.Equal(t, batches, got[fmt.Sprintf("worker-%d", w)])
	}
}

func TestAddCountsEmptyBatch(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.AddCounts(ctx, nil))

	got, err := s.GlobalCounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.AddCounts(ctx, map[string]int{"x": 1}))
	require.NoError(t, s.Reset(ctx))

	got, err := s.GlobalCounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSaveSummaryUpserts(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.SaveSummary(ctx, map[string]int64{"bad_records": 1}))
	require.NoError(t, s.SaveSummary(ctx, map[string]int64{"bad_records": 5, "duplicates": 2}))

	var value int64
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM run_summary WHERE counter = ?`, "bad_records",
	).Scan(&value)
	require.NoError(t, err)
	assert.Equal(t, int64(5), value)
}
