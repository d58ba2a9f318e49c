package secant

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"
)

// Strategy selects the anti-cycle policy applied at the top of every
// iteration. The set is closed and apply switches over every case.
type Strategy int

const (
	StrategyPerturbation Strategy = iota
	StrategyReset
	StrategyHybrid
	StrategyPerturbationHybrid
	StrategyAdaptive
)

var strategyNames = [...]string{
	StrategyPerturbation:       "perturbation",
	StrategyReset:              "reset",
	StrategyHybrid:             "hybrid",
	StrategyPerturbationHybrid: "perturbation_hybrid",
	StrategyAdaptive:           "adaptive",
}

const (
	// DefaultPerturbation is the initial base magnitude of random offsets.
	DefaultPerturbation = 1e-8
	// GrowthFactor scales the base magnitude once the cycle counter passes
	// AdaptiveCycleLimit.
	GrowthFactor       = 1.1
	AdaptiveCycleLimit = 5

	// ResetBox bounds the square [-ResetBox, ResetBox]² that reset seeds
	// are drawn from.
	ResetBox = 2.0
)

// Strategies lists every supported strategy in declaration order.
func Strategies() []Strategy {
	return []Strategy{StrategyPerturbation, StrategyReset, StrategyHybrid, StrategyPerturbationHybrid, StrategyAdaptive}
}

func ParseStrategy(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return StrategyPerturbationHybrid, nil
	}
	for i, n := range strategyNames {
		if n == name {
			return Strategy(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

func (s Strategy) valid() bool {
	return s >= StrategyPerturbation && s <= StrategyAdaptive
}

func (s Strategy) String() string {
	if !s.valid() {
		return fmt.Sprintf("strategy(%d)", int(s))
	}
	return strategyNames[s]
}

func (s Strategy) MarshalText() ([]byte, error) {
	if !s.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(s))
	}
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Adaptive is the state shared between the cycle detector and the adaptive
// strategies: a persistent cycle counter and the base perturbation scale.
type Adaptive struct {
	Cycles int     `json:"cycles"`
	Scale  float64 `json:"scale"`
}

func DefaultAdaptive() Adaptive {
	return Adaptive{Scale: DefaultPerturbation}
}

// iterate holds the four values a strategy may rewrite.
type iterate struct {
	x0, x1   complex128
	fx0, fx1 complex128
}

// apply runs the strategy for iteration k, possibly moving x0/x1 and
// re-evaluating them through f.
func (s Strategy) apply(it *iterate, k int, f Evaluator, rng Rand, a *Adaptive) {
	switch s {
	case StrategyPerturbation:
		if k%10 == 0 {
			it.x1 += uniformOffset(rng, a.Scale)
			it.fx1 = f(it.x1)
		}
	case StrategyReset:
		if k > 20 && k%15 == 0 {
			reseed(it, f, rng)
		}
	case StrategyHybrid:
		if k%12 == 0 {
			it.x1 += uniformOffset(rng, a.Scale/10)
			it.fx1 = f(it.x1)
		}
		if k > 30 && k%25 == 0 {
			it.x0 = (it.x0 + it.x1) / 2
			it.fx0 = f(it.x0)
		}
	case StrategyPerturbationHybrid, StrategyAdaptive:
		if a.Cycles > AdaptiveCycleLimit {
			a.Scale *= GrowthFactor
			a.Cycles = 0
		}
		if k%8 == 0 {
			mag := a.Scale * (1 + float64(k)/100)
			it.x1 += cmplx.Rect(mag, rng.Float64()*2*math.Pi)
			it.fx1 = f(it.x1)
		}
	}
}

// reseed draws both iterates uniformly from the reset box.
func reseed(it *iterate, f Evaluator, rng Rand) {
	it.x0 = uniformOffset(rng, ResetBox)
	it.x1 = uniformOffset(rng, ResetBox)
	it.fx0 = f(it.x0)
	it.fx1 = f(it.x1)
}
