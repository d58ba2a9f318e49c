package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/san-kum/secantlab/internal/analysis"
	"github.com/san-kum/secantlab/internal/expr"
	"github.com/san-kum/secantlab/internal/metrics"
	"github.com/san-kum/secantlab/internal/optim"
	"github.com/san-kum/secantlab/internal/secant"
	"github.com/san-kum/secantlab/internal/storage"
)

const (
	// GlobalMergeDistance merges roots across all runs of a solver.
	GlobalMergeDistance = 0.01

	DefaultHistoryLimit = 10000
)

var ErrUnknownRun = errors.New("experiment: unknown run")

// Problem is a function to solve together with its source text.
type Problem struct {
	Expression string
	Eval       secant.Evaluator
}

// Compile parses expression into a Problem.
func Compile(expression string) (Problem, error) {
	e, err := expr.Parse(expression)
	if err != nil {
		return Problem{}, err
	}
	return Problem{Expression: e.String(), Eval: e.Evaluator()}, nil
}

// RunStore persists finished runs. *storage.Store satisfies it.
type RunStore interface {
	Save(ctx context.Context, run storage.Run) error
	Load(ctx context.Context, id string) (*storage.Run, error)
}

type Option func(*Solver)

func WithLogger(l *slog.Logger) Option {
	return func(s *Solver) { s.logger = l }
}

func WithStore(st RunStore) Option {
	return func(s *Solver) { s.store = st }
}

func WithCollector(c *metrics.Collector) Option {
	return func(s *Solver) { s.collector = c }
}

// WithSeed makes the solver reproducible: run k draws from seed+k.
func WithSeed(seed int64) Option {
	return func(s *Solver) { s.seed = seed }
}

// WithHistoryLimit caps the in-memory history; the oldest runs go first.
func WithHistoryLimit(n int) Option {
	return func(s *Solver) { s.historyLimit = n }
}

type entry struct {
	expression string
	seed       int64
	result     *secant.RunResult
}

// Solver owns the configuration, the adaptive strategy state, the run
// history, the global root registry and the statistics shared by every
// run it executes. All methods are safe for concurrent use.
type Solver struct {
	mu           sync.Mutex
	cfg          secant.Config
	adaptive     secant.Adaptive
	history      []*entry
	byID         map[string]*entry
	historyLimit int
	runs         int64
	seed         int64

	roots     *secant.Registry
	stats     *metrics.Stats
	collector *metrics.Collector
	store     RunStore
	logger    *slog.Logger
}

func NewSolver(cfg secant.Config, opts ...Option) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Solver{
		cfg:          cfg,
		adaptive:     secant.DefaultAdaptive(),
		byID:         make(map[string]*entry),
		historyLimit: DefaultHistoryLimit,
		roots:        secant.NewRegistry(),
		stats:        metrics.NewStats(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Configure replaces the solver configuration and resets the adaptive
// state. History, roots and statistics are kept.
func (s *Solver) Configure(cfg secant.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.adaptive = secant.DefaultAdaptive()
	return nil
}

func (s *Solver) Config() secant.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Solver) Adaptive() secant.Adaptive {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adaptive
}

func (s *Solver) nextSeedLocked() int64 {
	s.runs++
	if s.seed == 0 {
		return time.Now().UnixNano()
	}
	return s.seed + s.runs
}

// Execute runs the secant iteration for p from the two seeds and records
// the outcome in the history, the global registry and the statistics.
func (s *Solver) Execute(ctx context.Context, p Problem, seed0, seed1 secant.Point) (*secant.RunResult, error) {
	return s.execute(ctx, p, seed0, seed1, "", nil)
}

// ExecuteID is Execute with a caller-chosen run id. An empty id gets a
// generated one.
func (s *Solver) ExecuteID(ctx context.Context, p Problem, seed0, seed1 secant.Point, id string) (*secant.RunResult, error) {
	return s.execute(ctx, p, seed0, seed1, id, nil)
}

func (s *Solver) execute(ctx context.Context, p Problem, seed0, seed1 secant.Point, id string, rng secant.Rand) (*secant.RunResult, error) {
	s.mu.Lock()
	cfg := s.cfg
	snap := s.adaptive
	var seed int64
	if rng == nil {
		seed = s.nextSeedLocked()
		rng = secant.NewRand(seed)
	}
	s.mu.Unlock()

	opts := []secant.Option{
		secant.WithRand(rng),
		secant.WithAdaptive(&snap),
		secant.WithLogger(s.logger),
	}
	if id != "" {
		opts = append(opts, secant.WithID(id))
	}

	res, err := secant.Run(ctx, seed0, seed1, cfg, p.Eval, opts...)
	if err != nil {
		return res, err
	}
	analysis.Annotate(res)

	s.mu.Lock()
	s.adaptive = snap
	e := &entry{expression: p.Expression, seed: seed, result: res}
	s.history = append(s.history, e)
	s.byID[res.ID] = e
	if s.historyLimit > 0 && len(s.history) > s.historyLimit {
		old := s.history[0]
		s.history = s.history[1:]
		if s.byID[old.result.ID] == old {
			delete(s.byID, old.result.ID)
		}
	}
	s.mu.Unlock()

	s.stats.Observe(res)
	s.roots.MergeResult(res, GlobalMergeDistance)
	s.collector.ObserveRun(res)
	s.collector.SetRoots(s.roots.Len())

	s.logger.Debug("run finished",
		"id", res.ID, "converged", res.Converged, "iterations", res.Iterations,
		"root", res.Root.String(), "type", res.ConvergenceType)

	if s.store != nil {
		run := storage.Run{ID: res.ID, Expression: p.Expression, Timestamp: time.Now(), Seed: seed, Result: res}
		if err := s.store.Save(ctx, run); err != nil {
			s.logger.Warn("failed to persist run", "id", res.ID, "err", err)
		}
	}
	return res, nil
}

// Search runs a grid search for p. Every lattice run goes through the
// solver, so it shows up in the history, registry and statistics.
func (s *Solver) Search(ctx context.Context, p Problem, cfg optim.GridConfig) (*optim.GridResult, error) {
	if cfg.Seed == 0 {
		s.mu.Lock()
		if s.seed != 0 {
			cfg.Seed = s.nextSeedLocked()
		}
		s.mu.Unlock()
	}

	run := func(ctx context.Context, cell optim.Cell, rng secant.Rand) (*secant.RunResult, error) {
		return s.execute(ctx, p, cell.Seed0, cell.Seed1, cell.ID, rng)
	}
	res, err := optim.NewGridSearch(cfg, run, s.logger).Search(ctx)
	if res != nil {
		s.collector.ObserveSearch(res.Elapsed)
	}
	return res, err
}

// Sensitivity scans how |f| reacts to noise around root.
func (s *Solver) Sensitivity(p Problem, root secant.Point, levels []float64, samples int) (*analysis.SensitivityScan, error) {
	s.mu.Lock()
	seed := s.nextSeedLocked()
	s.mu.Unlock()

	scan, err := analysis.Sensitivity(p.Eval, root, levels, samples, secant.NewRand(seed))
	if err != nil {
		return nil, err
	}
	s.collector.ObserveSensitivity(scan.Stability)
	return scan, nil
}

// Report describes a past run with advice for improving it.
type Report struct {
	RunID           string               `json:"run_id"`
	Expression      string               `json:"expression"`
	GeneratedAt     time.Time            `json:"generated_at"`
	Result          *secant.RunResult    `json:"result"`
	Convergence     analysis.Convergence `json:"convergence"`
	Recommendations []string             `json:"recommendations"`
}

// Report looks the run up in the history, then in the store. An id found
// in neither yields ErrUnknownRun.
func (s *Solver) Report(ctx context.Context, id string) (*Report, error) {
	s.mu.Lock()
	e, ok := s.byID[id]
	s.mu.Unlock()

	if !ok {
		if s.store == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRun, id)
		}
		run, err := s.store.Load(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRun, id)
		}
		if err != nil {
			return nil, err
		}
		e = &entry{expression: run.Expression, seed: run.Seed, result: run.Result}
	}

	return &Report{
		RunID:           id,
		Expression:      e.expression,
		GeneratedAt:     time.Now(),
		Result:          e.result,
		Convergence:     analysis.Analyze(e.result.Trace.Errors, e.result.Trace.Trajectory),
		Recommendations: analysis.Recommend(e.result),
	}, nil
}

// Statistics is the solver-wide summary.
type Statistics struct {
	metrics.Summary
	Roots        []secant.RootRecord `json:"roots"`
	HistoryCount int                 `json:"history_count"`
}

func (s *Solver) Statistics() Statistics {
	s.mu.Lock()
	n := len(s.history)
	s.mu.Unlock()
	return Statistics{
		Summary:      s.stats.Value(),
		Roots:        s.roots.Records(),
		HistoryCount: n,
	}
}

// History returns the recorded runs, oldest first.
func (s *Solver) History() []*secant.RunResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*secant.RunResult, len(s.history))
	for i, e := range s.history {
		out[i] = e.result
	}
	return out
}

// Reset clears history, roots, statistics and adaptive state.
func (s *Solver) Reset() {
	s.mu.Lock()
	s.history = nil
	s.byID = make(map[string]*entry)
	s.adaptive = secant.DefaultAdaptive()
	s.mu.Unlock()
	s.roots.Reset()
	s.stats.Reset()
	s.collector.SetRoots(0)
}
