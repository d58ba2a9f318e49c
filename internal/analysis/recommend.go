package analysis

import "github.com/san-kum/secantlab/internal/secant"

const (
	slowRatioThreshold = 1.5
	looseErrorLimit    = 1e-6
	longTrajectory     = 50
)

// Recommend suggests configuration changes for a finished run.
func Recommend(res *secant.RunResult) []string {
	var out []string
	if !res.Converged {
		out = append(out,
			"raise the iteration cap",
			"try a different anti-cycle strategy",
			"move the seed points",
		)
	}
	if res.ConvergenceRatio > slowRatioThreshold {
		out = append(out, "errors shrink slowly or grow; consider another method")
	}
	if res.FinalError > looseErrorLimit {
		out = append(out, "final error is above 1e-6; check the tolerance and the seed points")
	}
	if len(res.Trace.Trajectory) > longTrajectory {
		out = append(out, "long trajectory; start closer to the root")
	}
	if (Convergence{Type: res.ConvergenceType}).Oscillating() {
		out = append(out, "oscillations detected; use the reset or hybrid strategy")
	}
	return out
}
