package db

import (
	"path/filepath"
	"testing"
	"time"

	"convbench/internal/benchmark"
	"convbench/internal/conv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun(id string, ts time.Time, value float64) benchmark.Run {
	p := conv.MustParams(1, 768, 18, 18, 192, 768, 1, 1, [2]int{0, 0}, [2]int{1, 1}, [2]int{1, 1}, 1)
	return benchmark.Run{
		ID:        id,
		Timestamp: ts,
		Commit:    "abc123",
		Results: []benchmark.ComparisonResult{
			{
				Scenario:  "origin",
				Reducer:   "sum",
				Value:     value,
				StartedAt: ts,
				Elapsed:   1500 * time.Millisecond,
				Samples: []benchmark.Sample{
					{Label: "conv-192", Params: p, Millis: value / 2, Runs: []float64{value / 2, value}},
				},
			},
			{Scenario: "opt", Reducer: "min", Value: value / 3, StartedAt: ts, Samples: []benchmark.Sample{}},
		},
	}
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	defer store.Close()

	latest, err := store.LoadLatest()
	require.NoError(t, err)
	assert.Nil(t, latest)

	runs, err := store.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, runs)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(sampleRun("run-2", base.Add(time.Hour), 0.2)))
	require.NoError(t, store.Save(sampleRun("run-1", base, 0.1)))

	runs, err = store.LoadAll()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.True(t, runs[0].Timestamp.Equal(base))
	assert.Equal(t, "abc123", runs[0].Commit)

	require.Len(t, runs[0].Results, 2)
	origin := runs[0].Results[0]
	assert.Equal(t, "origin", origin.Scenario)
	assert.Equal(t, "sum", origin.Reducer)
	assert.InDelta(t, 0.1, origin.Value, 1e-12)
	assert.Equal(t, 1500*time.Millisecond, origin.Elapsed)
	require.Len(t, origin.Samples, 1)
	assert.Equal(t, 768, origin.Samples[0].Params.Cg)
	assert.Equal(t, []float64{0.05, 0.1}, origin.Samples[0].Runs)
	assert.Equal(t, "opt", runs[0].Results[1].Scenario)

	latest, err = store.LoadLatest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "run-2", latest.ID)
	assert.Len(t, latest.Results, 2)

	assert.Error(t, store.Save(sampleRun("run-1", base, 0.3)), "duplicate run ids are rejected")
	runs, err = store.LoadAll()
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(sampleRun("run-1", time.Now(), 0.1)))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()
	latest, err := store.LoadLatest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "run-1", latest.ID)
}

func TestNewStore(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(StoreConfig{Type: "sqlite", ConnectionString: filepath.Join(dir, "h.db")})
	require.NoError(t, err)
	_, ok := store.(*SQLiteStore)
	assert.True(t, ok, "Expected a SQLiteStore instance")
	store.Close()

	store, err = NewStore(StoreConfig{ConnectionString: filepath.Join(dir, "h.json")})
	require.NoError(t, err)
	require.NoError(t, store.Save(sampleRun("run-1", time.Now(), 0.1)))
	latest, err := store.LoadLatest()
	require.NoError(t, err)
	assert.Equal(t, "run-1", latest.ID)
	assert.NoError(t, store.Close())

	_, err = NewStore(StoreConfig{Type: "postgres"})
	assert.ErrorContains(t, err, "connection string is required")

	_, err = NewStore(StoreConfig{Type: "mongo"})
	assert.ErrorContains(t, err, "unsupported store type: mongo")
}

func TestDollarPlaceholders(t *testing.T) {
	assert.Equal(t, "INSERT INTO runs (a, b) VALUES ($1, $2)", dollarPlaceholders("INSERT INTO runs (a, b) VALUES (?, ?)"))
	assert.Equal(t, "SELECT 1", dollarPlaceholders("SELECT 1"))
}
