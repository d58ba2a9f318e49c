package storage

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/secantlab/internal/secant"
)

func sampleRun() *Run {
	return &Run{
		ID:         "abc12345",
		Expression: "z^2 - 4",
		Timestamp:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Seed:       7,
		Result: &secant.RunResult{
			ID:         "abc12345",
			Root:       secant.Point{Real: 2},
			Iterations: 1,
			Converged:  true,
			Trace: secant.Trace{
				Trajectory: []secant.Point{{Real: 1}, {Real: 3}, {Real: 2}},
				Errors:     []float64{3, 5, 1e-15},
			},
			FinalError:         1e-15,
			FinalRelativeError: 0.5,
			ConvergenceType:    "insufficient_data",
			Elapsed:            1500,
			Config:             secant.DefaultConfig(),
		},
	}
}

func newStore(t *testing.T) *Store {
	t.Helper()
	st := New(t.TempDir())
	require.NoError(t, st.Init())
	t.Cleanup(func() { st.Close() })
	return st
}

func TestStoreSaveLoad(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	run := sampleRun()

	require.NoError(t, st.Save(ctx, *run))

	got, err := st.Load(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Expression, got.Expression)
	assert.Equal(t, run.Seed, got.Seed)
	assert.True(t, run.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, run.Result, got.Result)
}

func TestStoreLoadUnknown(t *testing.T) {
	st := newStore(t)
	_, err := st.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	uninit := New(t.TempDir())
	_, err = uninit.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreList(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	older := sampleRun()
	older.ID = "older"
	older.Timestamp = older.Timestamp.Add(-time.Hour)
	newer := sampleRun()
	newer.ID = "newer"
	newer.Result.Converged = false

	require.NoError(t, st.Save(ctx, *older))
	require.NoError(t, st.Save(ctx, *newer))

	runs, err := st.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "newer", runs[0].ID)
	assert.False(t, runs[0].Converged)
	assert.Equal(t, "older", runs[1].ID)
	assert.Equal(t, "perturbation_hybrid", runs[1].Strategy)
	assert.Equal(t, secant.Point{Real: 2}, runs[1].Root)
}

func TestStoreSaveReplacesAndDefaults(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	run := sampleRun()
	run.ID = ""
	run.Timestamp = time.Time{}
	require.NoError(t, st.Save(ctx, *run))

	run.Expression = "z^2 - 9"
	require.NoError(t, st.Save(ctx, *run))

	runs, err := st.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.Result.ID, runs[0].ID)
	assert.Equal(t, "z^2 - 9", runs[0].Expression)

	assert.Error(t, st.Save(ctx, Run{ID: "x"}))
}

func TestStoreDelete(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, *sampleRun()))

	require.NoError(t, st.Delete(ctx, "abc12345"))
	assert.ErrorIs(t, st.Delete(ctx, "abc12345"), ErrNotFound)
}

func TestExportGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	var js bytes.Buffer
	require.NoError(t, ExportJSON(&js, sampleRun()))
	g.Assert(t, "export_json", js.Bytes())

	var csv bytes.Buffer
	require.NoError(t, ExportCSV(&csv, sampleRun()))
	g.Assert(t, "export_csv", csv.Bytes())
}
