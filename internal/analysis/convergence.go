package analysis

import (
	"math"
	"strings"

	"github.com/san-kum/secantlab/internal/secant"
)

// Convergence type tags.
const (
	QuadraticLike    = "quadratic_like"
	Superlinear      = "superlinear"
	Linear           = "linear"
	SlowOrDivergent  = "slow_or_divergent"
	InsufficientData = "insufficient_data"

	// OscillationSuffix is appended when the trajectory keeps reversing.
	OscillationSuffix = "_with_oscillations"
)

const (
	minSamples        = 4
	minOscillationLen = 10
	reversalCosine    = -0.5
	reversalShare     = 0.3
	minDisplacement   = 1e-10
	minLogQuotient    = 1e-12
)

type Convergence struct {
	Type      string    `json:"type"`
	Ratio     float64   `json:"ratio"`
	Order     float64   `json:"order"`
	Orders    []float64 `json:"orders,omitempty"`
	Reversals int       `json:"reversals"`
}

// Oscillating reports whether the type carries the oscillation qualifier.
func (c Convergence) Oscillating() bool {
	return strings.HasSuffix(c.Type, OscillationSuffix)
}

// Analyze estimates the convergence order and ratio of an error trace and
// classifies it. Fewer than four errors yield InsufficientData.
//
// Order is the unweighted mean of the per-step estimates in Orders. A
// single step taken while the error barely moves can produce an estimate
// in the thousands, so early outliers may dominate Order even when the
// tail settles near the golden ratio. Inspect Orders for the per-step
// picture.
func Analyze(errs []float64, trajectory []secant.Point) Convergence {
	if len(errs) < minSamples {
		return Convergence{Type: InsufficientData}
	}

	var c Convergence
	ratioSum, ratioN := 0.0, 0
	for i := 1; i < len(errs)-1; i++ {
		prev, next := quotient(errs[i], errs[i-1]), quotient(errs[i+1], errs[i])
		if next > 0 {
			ratioSum += next
			ratioN++
		}
		if prev <= 0 || next <= 0 {
			continue
		}
		lp := math.Log(prev)
		if math.Abs(lp) < minLogQuotient {
			continue
		}
		if p := math.Log(next) / lp; !math.IsNaN(p) && !math.IsInf(p, 0) {
			c.Orders = append(c.Orders, p)
		}
	}
	if ratioN > 0 {
		c.Ratio = ratioSum / float64(ratioN)
	}
	c.Order = mean(c.Orders)
	c.Type = classifyOrder(c.Order)

	if len(trajectory) > minOscillationLen {
		c.Reversals = Reversals(trajectory)
		if float64(c.Reversals) > reversalShare*float64(len(trajectory)) {
			c.Type += OscillationSuffix
		}
	}
	return c
}

// Annotate runs Analyze on the run's trace and stores the outcome in res.
func Annotate(res *secant.RunResult) Convergence {
	c := Analyze(res.Trace.Errors, res.Trace.Trajectory)
	res.ConvergenceType = c.Type
	res.ConvergenceRatio = c.Ratio
	res.ConvergenceOrder = c.Order
	return c
}

func classifyOrder(p float64) string {
	switch {
	case p >= 1.5 && p < 1.7:
		return QuadraticLike
	case p >= 1.1 && p < 1.5:
		return Superlinear
	case p > 0.8 && p < 1.1:
		return Linear
	default:
		return SlowOrDivergent
	}
}

// Reversals counts consecutive displacement pairs pointing in roughly
// opposite directions (cosine similarity below -0.5).
func Reversals(trajectory []secant.Point) int {
	n := 0
	for i := 1; i < len(trajectory)-1; i++ {
		ax, ay := trajectory[i].Real-trajectory[i-1].Real, trajectory[i].Imag-trajectory[i-1].Imag
		bx, by := trajectory[i+1].Real-trajectory[i].Real, trajectory[i+1].Imag-trajectory[i].Imag
		na, nb := math.Hypot(ax, ay), math.Hypot(bx, by)
		if na <= minDisplacement || nb <= minDisplacement {
			continue
		}
		if (ax*bx+ay*by)/(na*nb) < reversalCosine {
			n++
		}
	}
	return n
}

func quotient(num, den float64) float64 {
	if den <= 0 || num <= 0 {
		return 0
	}
	q := num / den
	if math.IsInf(q, 0) || math.IsNaN(q) {
		return 0
	}
	return q
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}
