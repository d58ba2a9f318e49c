package secant

import (
	"fmt"
	"math"
	"math/cmplx"
	"time"
)

const (
	DefaultTolerance     = 1e-12
	DefaultMaxIterations = 200

	// ErrorFloor is the smallest error magnitude ever recorded.
	ErrorFloor = 1e-15
	// ErrorCeiling caps the magnitude recorded for non-finite evaluations.
	ErrorCeiling = 1e30
)

// Sentinel replaces any evaluation that is non-finite or panics.
var Sentinel = complex(ErrorCeiling, 0)

type Point struct {
	Real float64 `json:"real" yaml:"real"`
	Imag float64 `json:"imag" yaml:"imag"`
}

func P(z complex128) Point {
	return Point{Real: real(z), Imag: imag(z)}
}

func (p Point) Complex() complex128 {
	return complex(p.Real, p.Imag)
}

func (p Point) IsValid() bool {
	return finite(p.Complex())
}

// Dist is the Euclidean distance between two points of the plane.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.Real-q.Real, p.Imag-q.Imag)
}

func (p Point) Abs() float64 {
	return math.Hypot(p.Real, p.Imag)
}

func (p Point) Add(q Point) Point {
	return Point{Real: p.Real + q.Real, Imag: p.Imag + q.Imag}
}

func (p Point) String() string {
	return fmt.Sprintf("%.6g%+.6gi", p.Real, p.Imag)
}

type Config struct {
	Tolerance         float64  `json:"tolerance"`
	MaxIterations     int      `json:"max_iterations"`
	Strategy          Strategy `json:"strategy"`
	NumericDerivative bool     `json:"use_numeric_derivative"`
}

func DefaultConfig() Config {
	return Config{
		Tolerance:         DefaultTolerance,
		MaxIterations:     DefaultMaxIterations,
		Strategy:          StrategyPerturbationHybrid,
		NumericDerivative: false,
	}
}

func (c Config) Validate() error {
	if !(c.Tolerance > 0) || math.IsInf(c.Tolerance, 0) {
		return fmt.Errorf("%w: tolerance must be positive, got %g", ErrInvalidConfig, c.Tolerance)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("%w: max iterations must be positive, got %d", ErrInvalidConfig, c.MaxIterations)
	}
	if !c.Strategy.valid() {
		return fmt.Errorf("%w: %w: %d", ErrInvalidConfig, ErrUnknownStrategy, int(c.Strategy))
	}
	return nil
}

// Trace is the ordered record of visited points and their error
// magnitudes. It starts with the two seeds, so both slices always hold
// Iterations+2 entries.
type Trace struct {
	Trajectory []Point   `json:"trajectory"`
	Errors     []float64 `json:"errors"`
}

type RunResult struct {
	ID                 string        `json:"id"`
	Root               Point         `json:"root"`
	Iterations         int           `json:"iterations"`
	Converged          bool          `json:"converged"`
	Trace              Trace         `json:"trace"`
	FinalError         float64       `json:"final_error"`
	FinalRelativeError float64       `json:"final_relative_error"`
	Cycles             int           `json:"cycles"`
	ConvergenceType    string        `json:"convergence_type"`
	ConvergenceRatio   float64       `json:"convergence_ratio"`
	ConvergenceOrder   float64       `json:"convergence_order"`
	Elapsed            time.Duration `json:"elapsed"`
	Config             Config        `json:"config"`
}

func finite(z complex128) bool {
	return !cmplx.IsNaN(z) && !cmplx.IsInf(z)
}

// magnitude converts an evaluation into a recordable error.
func magnitude(w complex128) float64 {
	if !finite(w) {
		return ErrorCeiling
	}
	m := cmplx.Abs(w)
	if m < ErrorFloor {
		return ErrorFloor
	}
	if m > ErrorCeiling {
		return ErrorCeiling
	}
	return m
}
