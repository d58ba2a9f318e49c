// Package analysis characterizes finished secant runs and discovered roots.
//
//   - [Analyze]: convergence order, ratio and type from an error trace
//   - [Annotate]: writes the analysis back into a [secant.RunResult]
//   - [Sensitivity]: noise scan of |f| around a candidate root
//   - [Recommend]: human-readable advice for a run
//
// # Convergence Order
//
// For consecutive errors e[i-1], e[i], e[i+1] the empirical order is
//
//	p ≈ log(e[i+1]/e[i]) / log(e[i]/e[i-1])
//
// A healthy secant run approaches the golden ratio (~1.618):
//
//	c := analysis.Analyze(res.Trace.Errors, res.Trace.Trajectory)
//	if c.Type == analysis.QuadraticLike {
//	    // superlinear secant convergence
//	}
package analysis
