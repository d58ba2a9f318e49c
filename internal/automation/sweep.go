package automation

import (
	"context"
	"math/rand"
	"time"

	"github.com/san-kum/secantlab/internal/experiment"
	"github.com/san-kum/secantlab/internal/secant"
)

// SweepResult is the outcome of one strategy in a strategy sweep.
type SweepResult struct {
	Strategy secant.Strategy   `json:"strategy"`
	Result   *secant.RunResult `json:"result"`
}

// RunSweep solves p from the same seeds once per anti-cycle strategy.
func RunSweep(ctx context.Context, env *Env, p experiment.Problem, seeds experiment.SeedPair) ([]SweepResult, error) {
	base := env.Solver.Config()
	defer env.Solver.Configure(base)

	results := make([]SweepResult, 0, len(secant.Strategies()))
	for _, s := range secant.Strategies() {
		cfg := base
		cfg.Strategy = s
		if err := env.Solver.Configure(cfg); err != nil {
			return results, err
		}
		res, err := env.Solver.Execute(ctx, p, seeds.X0, seeds.X1)
		if err != nil {
			return results, err
		}
		results = append(results, SweepResult{Strategy: s, Result: res})
		env.logger().Debug("sweep", "strategy", s.String(), "converged", res.Converged, "iterations", res.Iterations)
	}
	return results, nil
}

// MonteCarloConfig defines randomized seed trials around a base pair.
type MonteCarloConfig struct {
	Base         experiment.SeedPair
	Perturbation float64
	NumTrials    int
	Seed         int64
}

type MonteCarloResult struct {
	TrialID    int                 `json:"trial"`
	Seeds      experiment.SeedPair `json:"seeds"`
	Converged  bool                `json:"converged"`
	Root       secant.Point        `json:"root"`
	Iterations int                 `json:"iterations"`
	Cycles     int                 `json:"cycles"`
}

// RunMonteCarlo perturbs both seeds uniformly by up to ±Perturbation on
// each axis and solves p once per trial.
func RunMonteCarlo(ctx context.Context, env *Env, p experiment.Problem, cfg *MonteCarloConfig) ([]MonteCarloResult, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	jitter := func(pt secant.Point) secant.Point {
		return secant.Point{
			Real: pt.Real + (rng.Float64()-0.5)*2*cfg.Perturbation,
			Imag: pt.Imag + (rng.Float64()-0.5)*2*cfg.Perturbation,
		}
	}

	results := make([]MonteCarloResult, 0, cfg.NumTrials)
	for trial := 0; trial < cfg.NumTrials; trial++ {
		seeds := experiment.SeedPair{X0: jitter(cfg.Base.X0), X1: jitter(cfg.Base.X1)}
		res, err := env.Solver.Execute(ctx, p, seeds.X0, seeds.X1)
		if err != nil {
			return results, err
		}
		results = append(results, MonteCarloResult{
			TrialID:    trial,
			Seeds:      seeds,
			Converged:  res.Converged,
			Root:       res.Root,
			Iterations: res.Iterations,
			Cycles:     res.Cycles,
		})
	}
	return results, nil
}

// MonteCarloStats counts converged and failed trials.
func MonteCarloStats(results []MonteCarloResult) (converged int, failed int) {
	for _, r := range results {
		if r.Converged {
			converged++
		} else {
			failed++
		}
	}
	return
}
