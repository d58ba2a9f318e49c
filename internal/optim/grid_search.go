package optim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/san-kum/secantlab/internal/secant"
)

const (
	DefaultGridPoints    = 30
	DefaultDedupDistance = 0.05

	// MaxGridPoints bounds the lattice side; a search runs at most
	// MaxGridPoints² cells.
	MaxGridPoints = 1000

	// SeedOffset separates the two seeds of every lattice cell.
	SeedOffset = 0.02
)

var ErrInvalidRegion = errors.New("optim: invalid search region")

type Region struct {
	XMin float64 `json:"x_min" yaml:"x_min"`
	XMax float64 `json:"x_max" yaml:"x_max"`
	YMin float64 `json:"y_min" yaml:"y_min"`
	YMax float64 `json:"y_max" yaml:"y_max"`
}

func DefaultRegion() Region {
	return Region{XMin: -2, XMax: 2, YMin: -2, YMax: 2}
}

func (r Region) Validate() error {
	for _, v := range []float64{r.XMin, r.XMax, r.YMin, r.YMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite bound in %+v", ErrInvalidRegion, r)
		}
	}
	if r.XMin > r.XMax || r.YMin > r.YMax {
		return fmt.Errorf("%w: min exceeds max in %+v", ErrInvalidRegion, r)
	}
	return nil
}

type GridConfig struct {
	Region        Region  `json:"region" yaml:"region"`
	Points        int     `json:"n_points" yaml:"n_points"`
	DedupDistance float64 `json:"dedup_distance" yaml:"dedup_distance"`
	Parallel      bool    `json:"parallel" yaml:"parallel"`
	Workers       int     `json:"workers,omitempty" yaml:"workers,omitempty"`
	// Seed drives the per-cell random sources; cell k uses Seed+k.
	// Zero draws a fresh seed from the clock.
	Seed int64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

func DefaultGridConfig() GridConfig {
	return GridConfig{
		Region:        DefaultRegion(),
		Points:        DefaultGridPoints,
		DedupDistance: DefaultDedupDistance,
		Parallel:      true,
		Workers:       secant.DefaultWorkers,
	}
}

func (c GridConfig) Validate() error {
	if err := c.Region.Validate(); err != nil {
		return err
	}
	if c.Points <= 0 || c.Points > MaxGridPoints {
		return fmt.Errorf("%w: n_points must be in [1, %d], got %d", ErrInvalidRegion, MaxGridPoints, c.Points)
	}
	if !(c.DedupDistance > 0) || math.IsInf(c.DedupDistance, 0) {
		return fmt.Errorf("%w: dedup_distance must be positive, got %g", ErrInvalidRegion, c.DedupDistance)
	}
	return nil
}

// Cell is one lattice site of a grid search.
type Cell struct {
	ID    string
	I, J  int
	Seed0 secant.Point
	Seed1 secant.Point
}

// Runner executes one secant run for a lattice cell.
type Runner func(ctx context.Context, cell Cell, rng secant.Rand) (*secant.RunResult, error)

type GridResult struct {
	Roots     []secant.RootRecord `json:"roots"`
	Processed int                 `json:"points_processed"`
	Converged int                 `json:"converged"`
	Elapsed   time.Duration       `json:"elapsed"`
}

type GridSearch struct {
	cfg    GridConfig
	run    Runner
	logger *slog.Logger
}

func NewGridSearch(cfg GridConfig, run Runner, logger *slog.Logger) *GridSearch {
	if logger == nil {
		logger = slog.Default()
	}
	return &GridSearch{cfg: cfg, run: run, logger: logger}
}

// Cells returns the n×n lattice in row-major order. Cell (i,j) sits at
// x = linspace(XMin, XMax)[i], y = linspace(YMin, YMax)[j].
func (g *GridSearch) Cells() []Cell {
	n := g.cfg.Points
	xs := linspace(g.cfg.Region.XMin, g.cfg.Region.XMax, n)
	ys := linspace(g.cfg.Region.YMin, g.cfg.Region.YMax, n)

	cells := make([]Cell, 0, n*n)
	for i, x := range xs {
		for j, y := range ys {
			cells = append(cells, Cell{
				ID:    fmt.Sprintf("grid_%d_%d", i, j),
				I:     i,
				J:     j,
				Seed0: secant.Point{Real: x, Imag: y},
				Seed1: secant.Point{Real: x + SeedOffset, Imag: y + SeedOffset},
			})
		}
	}
	return cells
}

// Search runs every lattice cell and folds converged roots into a
// run-local registry. Cells whose run fails or does not converge are
// counted as processed and otherwise dropped. Cancellation stops dispatch
// and returns the partial result with ctx.Err().
func (g *GridSearch) Search(ctx context.Context) (*GridResult, error) {
	if g.run == nil {
		return nil, errors.New("optim: nil runner")
	}
	if err := g.cfg.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	cells := g.Cells()
	workers := 1
	if g.cfg.Parallel {
		workers = g.cfg.Workers
		if workers <= 0 {
			workers = secant.DefaultWorkers
		}
	}
	base := g.cfg.Seed
	if base == 0 {
		base = time.Now().UnixNano()
	}

	g.logger.Info("grid search started",
		"cells", len(cells), "workers", workers, "dedup", g.cfg.DedupDistance)

	registry := secant.NewRegistry()
	var (
		mu        sync.Mutex
		processed int
		converged int
	)

	secant.ParallelFor(ctx, len(cells), workers, func(k int) {
		cell := cells[k]
		res, err := g.run(ctx, cell, secant.NewRand(base+int64(k)))

		mu.Lock()
		defer mu.Unlock()
		processed++
		if err != nil {
			g.logger.Debug("grid cell failed", "id", cell.ID, "err", err)
			return
		}
		if res.Converged {
			converged++
			registry.MergeResult(res, g.cfg.DedupDistance)
		}
	})

	out := &GridResult{
		Roots:     registry.Records(),
		Processed: processed,
		Converged: converged,
		Elapsed:   time.Since(start),
	}

	g.logger.Info("grid search finished",
		"processed", out.Processed, "roots", len(out.Roots), "elapsed", out.Elapsed)

	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}

func linspace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}
