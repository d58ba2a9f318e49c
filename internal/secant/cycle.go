package secant

import "math"

const (
	// DefaultCycleWindow is the number of trailing errors inspected.
	DefaultCycleWindow = 10

	stagnationRatio = 0.01
	flatnessStdDev  = 1e-10
	oscillationRate = 0.8
)

// Detect inspects the trailing window of errors and reports whether the run
// is stagnating or oscillating. A detection increments the shared cycle
// counter; a clean window lets it decay toward zero. Histories shorter
// than the window are never flagged and leave the counter untouched.
func (a *Adaptive) Detect(errs []float64, window int) bool {
	if window < 2 || len(errs) < window {
		return false
	}
	if isCycle(errs[len(errs)-window:]) {
		a.Cycles++
		return true
	}
	if a.Cycles > 0 {
		a.Cycles--
	}
	return false
}

func isCycle(last []float64) bool {
	first, end := last[0], last[len(last)-1]
	if math.Abs(end-first)/(first+ErrorFloor) < stagnationRatio {
		return true
	}

	diffs := make([]float64, len(last)-1)
	for i := range diffs {
		diffs[i] = last[i+1] - last[i]
	}
	if stdDev(diffs) < flatnessStdDev {
		return true
	}

	// A full sign flip between consecutive differences contributes 2.
	jumps := 0.0
	for i := 1; i < len(diffs); i++ {
		jumps += math.Abs(sign(diffs[i]) - sign(diffs[i-1]))
	}
	return jumps > oscillationRate*float64(len(last))
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func stdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	v := 0.0
	for _, x := range xs {
		v += (x - mean) * (x - mean)
	}
	return math.Sqrt(v / float64(len(xs)))
}
