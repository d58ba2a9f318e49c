package experiment

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/secantlab/internal/analysis"
	"github.com/san-kum/secantlab/internal/optim"
	"github.com/san-kum/secantlab/internal/secant"
	"github.com/san-kum/secantlab/internal/storage"
)

func newSolver(t *testing.T, opts ...Option) *Solver {
	t.Helper()
	opts = append([]Option{WithSeed(1), WithLogger(slog.New(slog.DiscardHandler))}, opts...)
	s, err := NewSolver(secant.DefaultConfig(), opts...)
	require.NoError(t, err)
	return s
}

func mustCompile(t *testing.T, src string) Problem {
	t.Helper()
	p, err := Compile(src)
	require.NoError(t, err)
	return p
}

func TestNewSolverRejectsInvalidConfig(t *testing.T) {
	cfg := secant.DefaultConfig()
	cfg.Tolerance = 0
	_, err := NewSolver(cfg)
	assert.ErrorIs(t, err, secant.ErrInvalidConfig)

	s := newSolver(t)
	assert.ErrorIs(t, s.Configure(cfg), secant.ErrInvalidConfig)
	assert.Equal(t, secant.DefaultConfig(), s.Config())
}

func TestExecuteRecordsRun(t *testing.T) {
	s := newSolver(t)
	p := mustCompile(t, "z^3 - 1")

	res, err := s.Execute(context.Background(), p, secant.Point{Real: 0.5, Imag: 0.5}, secant.Point{Real: 1})
	require.NoError(t, err)
	require.True(t, res.Converged)
	assert.NotEmpty(t, res.ConvergenceType)

	stats := s.Statistics()
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.ConvergedRuns)
	assert.Equal(t, 1, stats.HistoryCount)
	require.Len(t, stats.Roots, 1)
	assert.Less(t, stats.Roots[0].Root.Dist(secant.Point{Real: 1}), 1e-6)

	rep, err := s.Report(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, "z^3 - 1", rep.Expression)
	assert.Same(t, res, rep.Result)
}

func TestExecuteMergesGlobalRoots(t *testing.T) {
	s := newSolver(t)
	p := mustCompile(t, "2*z - 4")
	ctx := context.Background()

	for _, seeds := range [][2]secant.Point{
		{{Real: 0}, {Real: 1}},
		{{Real: 5, Imag: 1}, {Real: -3}},
	} {
		res, err := s.Execute(ctx, p, seeds[0], seeds[1])
		require.NoError(t, err)
		require.True(t, res.Converged)
	}

	roots := s.Statistics().Roots
	require.Len(t, roots, 1)
	assert.Equal(t, 2, roots[0].Hits)
}

func TestExecuteUnconvergedIsNotAnError(t *testing.T) {
	s := newSolver(t)
	cfg := secant.DefaultConfig()
	cfg.MaxIterations = 5
	require.NoError(t, s.Configure(cfg))

	res, err := s.Execute(context.Background(), mustCompile(t, "z^2 + 1"), secant.Point{Real: 3}, secant.Point{Real: 4})
	require.NoError(t, err)
	assert.False(t, res.Converged)

	stats := s.Statistics()
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Zero(t, stats.ConvergedRuns)
	assert.Empty(t, stats.Roots)
}

func TestExecuteRejectsInvalidSeed(t *testing.T) {
	s := newSolver(t)
	_, err := s.Execute(context.Background(), mustCompile(t, "z"), secant.Point{Real: math.NaN()}, secant.Point{})
	assert.ErrorIs(t, err, secant.ErrInvalidSeed)
	assert.Zero(t, s.Statistics().TotalRuns)
}

func TestAdaptiveStateWrittenBack(t *testing.T) {
	s := newSolver(t)
	cfg := secant.DefaultConfig()
	cfg.Strategy = secant.StrategyPerturbation
	cfg.MaxIterations = 30
	require.NoError(t, s.Configure(cfg))

	res, err := s.Execute(context.Background(), mustCompile(t, "1"), secant.Point{Real: 0.1}, secant.Point{Real: 0.2})
	require.NoError(t, err)
	require.Positive(t, res.Cycles)
	assert.Equal(t, res.Cycles, s.Adaptive().Cycles)

	require.NoError(t, s.Configure(cfg))
	assert.Equal(t, secant.DefaultAdaptive(), s.Adaptive())
}

func TestReportUnknownRun(t *testing.T) {
	s := newSolver(t)
	_, err := s.Report(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownRun)
}

func TestReportFromStore(t *testing.T) {
	st := storage.New(t.TempDir())
	require.NoError(t, st.Init())
	defer st.Close()
	ctx := context.Background()

	first := newSolver(t, WithStore(st))
	res, err := first.Execute(ctx, mustCompile(t, "z^2 - 4"), secant.Point{Real: 1}, secant.Point{Real: 3})
	require.NoError(t, err)

	second := newSolver(t, WithStore(st))
	rep, err := second.Report(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "z^2 - 4", rep.Expression)
	assert.Equal(t, res.Root, rep.Result.Root)

	_, err = second.Report(ctx, "missing")
	assert.ErrorIs(t, err, ErrUnknownRun)
}

type failingStore struct{ saves int }

func (f *failingStore) Save(context.Context, storage.Run) error {
	f.saves++
	return errors.New("disk full")
}

func (f *failingStore) Load(context.Context, string) (*storage.Run, error) {
	return nil, errors.New("disk full")
}

func TestStoreFailureDoesNotFailRun(t *testing.T) {
	fs := &failingStore{}
	s := newSolver(t, WithStore(fs))
	ctx := context.Background()

	res, err := s.Execute(ctx, mustCompile(t, "z - 1"), secant.Point{}, secant.Point{Real: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, fs.saves)

	_, err = s.Report(ctx, res.ID)
	assert.NoError(t, err, "history lookups never reach the store")

	_, err = s.Report(ctx, "other")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownRun)
}

func TestSearchGoesThroughSolver(t *testing.T) {
	s := newSolver(t)
	cfg := optim.DefaultGridConfig()
	cfg.Points = 4

	res, err := s.Search(context.Background(), mustCompile(t, "z^2 - 4"), cfg)
	require.NoError(t, err)
	assert.Equal(t, 16, res.Processed)

	stats := s.Statistics()
	assert.Equal(t, 16, stats.TotalRuns)
	assert.Equal(t, 16, stats.HistoryCount)
	assert.Equal(t, res.Converged, stats.ConvergedRuns)
	for _, r := range stats.Roots {
		d := min(r.Root.Dist(secant.Point{Real: 2}), r.Root.Dist(secant.Point{Real: -2}))
		assert.Less(t, d, 1e-6)
	}

	_, err = s.Report(context.Background(), "grid_0_0")
	assert.NoError(t, err)
}

func TestSensitivity(t *testing.T) {
	s := newSolver(t)
	scan, err := s.Sensitivity(mustCompile(t, "z - 1"), secant.Point{Real: 1}, nil, analysis.DefaultSamplesPerLevel)
	require.NoError(t, err)
	assert.Equal(t, analysis.VeryStable, scan.Stability)

	_, err = s.Sensitivity(mustCompile(t, "z"), secant.Point{}, nil, 0)
	assert.ErrorIs(t, err, analysis.ErrInvalidScan)
}

func TestHistoryLimit(t *testing.T) {
	s := newSolver(t, WithHistoryLimit(2))
	p := mustCompile(t, "z - 1")
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		res, err := s.Execute(ctx, p, secant.Point{}, secant.Point{Real: 2})
		require.NoError(t, err)
		ids = append(ids, res.ID)
	}

	assert.Len(t, s.History(), 2)
	_, err := s.Report(ctx, ids[0])
	assert.ErrorIs(t, err, ErrUnknownRun)
	_, err = s.Report(ctx, ids[2])
	assert.NoError(t, err)
	assert.Equal(t, 3, s.Statistics().TotalRuns)
}

func TestReset(t *testing.T) {
	s := newSolver(t)
	_, err := s.Execute(context.Background(), mustCompile(t, "z - 1"), secant.Point{}, secant.Point{Real: 2})
	require.NoError(t, err)

	s.Reset()
	stats := s.Statistics()
	assert.Zero(t, stats.TotalRuns)
	assert.Zero(t, stats.HistoryCount)
	assert.Empty(t, stats.Roots)
}
