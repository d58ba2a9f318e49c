package secant

import (
	"math/rand"
	"time"
)

// Evaluator is the user function f(z). It must be safe to call from
// several goroutines at once.
type Evaluator func(z complex128) complex128

// Rand is the random source used by strategies and fallbacks. *rand.Rand
// satisfies it; inject a seeded one for reproducible trajectories.
type Rand interface {
	Float64() float64
}

// NewRand returns a source seeded with seed, or with the clock when seed
// is zero.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Safe wraps f so that panics and non-finite values come back as Sentinel.
func Safe(f Evaluator) Evaluator {
	return func(z complex128) (w complex128) {
		defer func() {
			if recover() != nil {
				w = Sentinel
			}
		}()
		w = f(z)
		if !finite(w) {
			return Sentinel
		}
		return w
	}
}

// Derivative estimates f'(z) with centered differences of step h along
// both axes, combined as (df/dx - i·df/dy)/2.
func Derivative(f Evaluator, z complex128, h float64) complex128 {
	hr := complex(h, 0)
	hi := complex(0, h)
	dfdx := (f(z+hr) - f(z-hr)) / complex(2*h, 0)
	dfdy := (f(z+hi) - f(z-hi)) / complex(2*h, 0)
	return (dfdx - 1i*dfdy) / 2
}

// uniformOffset draws a point uniformly from [-w, w]².
func uniformOffset(rng Rand, w float64) complex128 {
	return complex((2*rng.Float64()-1)*w, (2*rng.Float64()-1)*w)
}
