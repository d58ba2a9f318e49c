package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/san-kum/secantlab/internal/secant"
)

// Stability classes for a sensitivity scan.
const (
	VeryStable          = "very_stable"
	Stable              = "stable"
	ModeratelySensitive = "moderately_sensitive"
	VerySensitive       = "very_sensitive"
)

const (
	DefaultSamplesPerLevel = 5

	MaxSamplesPerLevel = 10000
	MaxNoiseLevels     = 64
)

// DefaultNoiseLevels are the perturbation half-widths scanned by default.
var DefaultNoiseLevels = []float64{1e-15, 1e-12, 1e-9, 1e-6, 1e-3}

var ErrInvalidScan = errors.New("analysis: invalid sensitivity scan")

type Sample struct {
	Perturbed   secant.Point `json:"perturbed"`
	Value       float64      `json:"value"`
	Sensitivity float64      `json:"sensitivity"`
}

type LevelStats struct {
	Noise   float64  `json:"noise"`
	Mean    float64  `json:"mean"`
	StdDev  float64  `json:"stddev"`
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
	Samples []Sample `json:"samples"`
}

type SensitivityScan struct {
	Root            secant.Point `json:"root"`
	Value           float64      `json:"value"`
	SamplesPerLevel int          `json:"samples_per_level"`
	Levels          []LevelStats `json:"levels"`
	Global          float64      `json:"global"`
	Stability       string       `json:"stability"`
}

// Sensitivity perturbs root uniformly within [-level, level]² for every
// noise level and measures how far |f| moves from |f(root)|: relative
// deviation normally, absolute deviation when |f(root)| is below the
// error floor. An empty levels slice scans DefaultNoiseLevels.
func Sensitivity(f secant.Evaluator, root secant.Point, levels []float64, samples int, rng secant.Rand) (*SensitivityScan, error) {
	if f == nil {
		return nil, secant.ErrNilEvaluator
	}
	if !root.IsValid() {
		return nil, fmt.Errorf("%w: root %v is not finite", ErrInvalidScan, root)
	}
	if samples <= 0 || samples > MaxSamplesPerLevel {
		return nil, fmt.Errorf("%w: samples per level must be in [1, %d], got %d", ErrInvalidScan, MaxSamplesPerLevel, samples)
	}
	if len(levels) > MaxNoiseLevels {
		return nil, fmt.Errorf("%w: at most %d noise levels, got %d", ErrInvalidScan, MaxNoiseLevels, len(levels))
	}
	if len(levels) == 0 {
		levels = DefaultNoiseLevels
	}
	for _, l := range levels {
		if !(l >= 0) || math.IsInf(l, 0) {
			return nil, fmt.Errorf("%w: noise level %g", ErrInvalidScan, l)
		}
	}
	if rng == nil {
		rng = secant.NewRand(0)
	}

	eval := secant.Safe(f)
	z := root.Complex()
	orig := cmplx.Abs(eval(z))

	scan := &SensitivityScan{
		Root:            root,
		Value:           orig,
		SamplesPerLevel: samples,
		Levels:          make([]LevelStats, 0, len(levels)),
	}

	globalSum := 0.0
	for _, level := range levels {
		st := LevelStats{
			Noise:   level,
			Min:     math.Inf(1),
			Max:     math.Inf(-1),
			Samples: make([]Sample, 0, samples),
		}
		values := make([]float64, 0, samples)
		for i := 0; i < samples; i++ {
			dz := complex((2*rng.Float64()-1)*level, (2*rng.Float64()-1)*level)
			v := cmplx.Abs(eval(z + dz))
			s := math.Abs(v - orig)
			if orig >= secant.ErrorFloor {
				s /= orig
			}
			st.Samples = append(st.Samples, Sample{Perturbed: secant.P(z + dz), Value: v, Sensitivity: s})
			values = append(values, s)
			st.Min = math.Min(st.Min, s)
			st.Max = math.Max(st.Max, s)
		}
		st.Mean = mean(values)
		st.StdDev = stdDev(values, st.Mean)
		globalSum += st.Mean
		scan.Levels = append(scan.Levels, st)
	}

	scan.Global = globalSum / float64(len(levels))
	scan.Stability = classifyStability(scan.Global)
	return scan, nil
}

func classifyStability(g float64) string {
	switch {
	case g < 0.1:
		return VeryStable
	case g < 1.0:
		return Stable
	case g < 10.0:
		return ModeratelySensitive
	default:
		return VerySensitive
	}
}

func stdDev(xs []float64, m float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	v := 0.0
	for _, x := range xs {
		v += (x - m) * (x - m)
	}
	return math.Sqrt(v / float64(len(xs)))
}
