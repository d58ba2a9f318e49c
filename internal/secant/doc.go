// Package secant implements a complex-plane secant root finder that is
// hardened against the method's classic failure modes.
//
// The package provides the numerical core of secantlab:
//
//   - [Point]: immutable complex coordinate with a JSON form
//   - [Evaluator]: the user function f(z), wrapped by [Safe]
//   - [Strategy]: closed set of anti-cycle perturbation policies
//   - [Adaptive]: cycle counter and perturbation scale shared with the strategies
//   - [Run]: one secant search from two seed points
//   - [Registry]: distance-based root deduplication with hit counters
//   - [ParallelFor]: bounded worker pool used by grid searches
//
// # Example
//
//	f := func(z complex128) complex128 { return z*z*z - 1 }
//	res, err := secant.Run(ctx, secant.P(0.5+0.5i), secant.P(1), secant.DefaultConfig(), f)
//	if err == nil && res.Converged {
//	    fmt.Println(res.Root)
//	}
//
// # Numerical safety
//
// Function evaluations are floor-clamped in magnitude to avoid degenerate
// zero-division: every recorded error lies in [ErrorFloor, ErrorCeiling],
// and a non-finite or panicking evaluation is replaced by [Sentinel].
// Numerical faults never surface as errors; only invalid input and
// context cancellation do.
//
// # Thread Safety
//
// [Run] keeps all iteration state local to the call. The [Evaluator] must be
// a pure function of its input. [Registry] is safe for concurrent use.
// [Adaptive] and [Rand] values must not be shared between concurrent runs.
package secant
