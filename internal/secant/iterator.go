package secant

import (
	"context"
	"log/slog"
	"math"
	"math/cmplx"
	"time"

	"github.com/google/uuid"
)

const (
	singularThreshold = 1e-15
	derivativeStep    = 1e-8
	// cycleWarmup is the last iteration before cycle detection starts.
	cycleWarmup = 10

	fallbackOffset   = 0.01
	derivativeOffset = 0.1
)

type runOptions struct {
	id       string
	rng      Rand
	adaptive *Adaptive
	logger   *slog.Logger
	window   int
}

// Option customizes a single Run.
type Option func(*runOptions)

// WithID tags the run; by default a short random id is generated.
func WithID(id string) Option {
	return func(o *runOptions) { o.id = id }
}

// WithRand injects the random source used by strategies and fallbacks.
func WithRand(rng Rand) Option {
	return func(o *runOptions) { o.rng = rng }
}

// WithAdaptive shares an adaptive state with the run. The run mutates it in
// place, so the caller must not hand the same value to concurrent runs.
func WithAdaptive(a *Adaptive) Option {
	return func(o *runOptions) { o.adaptive = a }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *runOptions) { o.logger = l }
}

// WithCycleWindow overrides the cycle detector window.
func WithCycleWindow(n int) Option {
	return func(o *runOptions) { o.window = n }
}

// Run performs one secant search from seed0 and seed1.
//
// Each step applies cfg.Strategy, takes a secant step (or a derivative or
// perturbed-midpoint fallback when the denominator vanishes), records the
// new point and its error, and stops once the error drops below the
// tolerance. After the warm-up, a detected cycle reseeds both iterates; the
// reset consumes the iteration it happened on.
//
// Errors are returned only for invalid input and context cancellation. On
// cancellation the partial result is returned together with the error.
func Run(ctx context.Context, seed0, seed1 Point, cfg Config, f Evaluator, opts ...Option) (*RunResult, error) {
	o := runOptions{window: DefaultCycleWindow}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = uuid.NewString()[:8]
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, ErrNilEvaluator
	}
	if !seed0.IsValid() || !seed1.IsValid() {
		return nil, &RunError{ID: o.id, Seed0: seed0, Seed1: seed1, Wrapped: ErrInvalidSeed}
	}

	if o.rng == nil {
		o.rng = NewRand(0)
	}
	if o.adaptive == nil {
		a := DefaultAdaptive()
		o.adaptive = &a
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	start := time.Now()
	eval := Safe(f)

	it := iterate{x0: seed0.Complex(), x1: seed1.Complex()}
	it.fx0, it.fx1 = eval(it.x0), eval(it.x1)

	steps := cfg.MaxIterations
	res := &RunResult{
		ID:     o.id,
		Config: cfg,
		Trace: Trace{
			Trajectory: make([]Point, 0, steps+2),
			Errors:     make([]float64, 0, steps+2),
		},
	}
	res.Trace.Trajectory = append(res.Trace.Trajectory, seed0, seed1)
	res.Trace.Errors = append(res.Trace.Errors, magnitude(it.fx0), magnitude(it.fx1))

	prev, last := it.x0, it.x1
	var runErr error

	for k := 1; k <= steps; k++ {
		if err := ctx.Err(); err != nil {
			runErr = &RunError{ID: o.id, Seed0: seed0, Seed1: seed1, Iteration: k, Wrapped: err}
			break
		}

		cfg.Strategy.apply(&it, k, eval, o.rng, o.adaptive)

		next := nextPoint(&it, cfg.NumericDerivative, eval, o.rng)
		fnext := eval(next)
		e := magnitude(fnext)

		res.Trace.Trajectory = append(res.Trace.Trajectory, P(next))
		res.Trace.Errors = append(res.Trace.Errors, e)
		prev, last = last, next

		if e < cfg.Tolerance {
			res.Converged = true
			res.Iterations = k
			break
		}

		if k > cycleWarmup && o.adaptive.Detect(res.Trace.Errors, o.window) {
			reseed(&it, eval, o.rng)
			res.Cycles++
			o.logger.Debug("cycle detected, reseeding",
				"run", o.id,
				"iteration", k,
				"x0", P(it.x0).String(),
				"x1", P(it.x1).String(),
			)
			continue
		}

		it.x0, it.fx0 = it.x1, it.fx1
		it.x1, it.fx1 = next, fnext
	}

	if !res.Converged {
		res.Iterations = len(res.Trace.Errors) - 2
	}
	res.Root = P(last)
	res.FinalError = res.Trace.Errors[len(res.Trace.Errors)-1]
	res.FinalRelativeError = cmplx.Abs(last-prev) / math.Max(cmplx.Abs(last), ErrorFloor)
	res.Elapsed = time.Since(start)

	return res, runErr
}

// nextPoint computes the secant update, falling back to a Newton step on a
// numeric derivative or to a perturbed midpoint when the denominator
// vanishes. The returned point is always finite.
func nextPoint(it *iterate, numericDerivative bool, f Evaluator, rng Rand) complex128 {
	d := it.fx1 - it.fx0
	if cmplx.Abs(d) >= singularThreshold {
		if next := it.x1 - it.fx1*(it.x1-it.x0)/d; finite(next) {
			return next
		}
		return midpoint(it, fallbackOffset, rng)
	}

	if numericDerivative {
		if deriv := Derivative(f, it.x1, derivativeStep); finite(deriv) && cmplx.Abs(deriv) > singularThreshold {
			if next := it.x1 - it.fx1/deriv; finite(next) {
				return next
			}
		}
		return midpoint(it, derivativeOffset, rng)
	}
	return midpoint(it, fallbackOffset, rng)
}

func midpoint(it *iterate, w float64, rng Rand) complex128 {
	m := (it.x0+it.x1)/2 + uniformOffset(rng, w)
	if !finite(m) {
		return uniformOffset(rng, ResetBox)
	}
	return m
}
