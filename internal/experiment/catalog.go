package experiment

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/secantlab/internal/expr"
	"github.com/san-kum/secantlab/internal/secant"
)

var (
	ErrUnknownFunction = errors.New("experiment: unknown function")
	ErrInvalidParams   = errors.New("experiment: invalid generator parameter")
)

// Generator size limits.
const (
	MaxWeierstrassTerms = 100
	MaxModes            = 64
)

// SeedPair is a suggested pair of starting points.
type SeedPair struct {
	X0 secant.Point `json:"x0" yaml:"x0"`
	X1 secant.Point `json:"x1" yaml:"x1"`
}

// Example is a named test problem with known-good seeds.
type Example struct {
	Name        string     `json:"name"`
	Expression  string     `json:"expression"`
	Description string     `json:"description"`
	Difficulty  string     `json:"difficulty"`
	Seeds       []SeedPair `json:"seeds"`
}

// Pathological is a generated hard problem.
type Pathological struct {
	Kind            string             `json:"kind"`
	Expression      string             `json:"expression"`
	Description     string             `json:"description"`
	Characteristics map[string]any     `json:"characteristics"`
	Params          map[string]float64 `json:"params"`
}

type generator struct {
	defaults map[string]float64
	build    func(p map[string]float64) (src, desc string, traits map[string]any)
}

// Catalog holds example problems and pathological function generators.
type Catalog struct {
	examples   []Example
	problems   map[string]Problem
	generators map[string]generator
}

func seeds(pairs ...[4]float64) []SeedPair {
	out := make([]SeedPair, len(pairs))
	for i, p := range pairs {
		out[i] = SeedPair{X0: secant.Point{Real: p[0], Imag: p[1]}, X1: secant.Point{Real: p[2], Imag: p[3]}}
	}
	return out
}

func NewCatalog() *Catalog {
	c := &Catalog{
		problems:   make(map[string]Problem),
		generators: make(map[string]generator),
	}

	c.examples = []Example{
		{
			Name:        "cubic_roots_of_unity",
			Expression:  "z^3 - 1",
			Description: "cubic with roots 1 and -0.5±0.866i",
			Difficulty:  "low",
			Seeds:       seeds([4]float64{0.5, 0.5, 1, 0}, [4]float64{-0.5, 0.5, -1, 0}),
		},
		{
			Name:        "complex_sine",
			Expression:  "sin(z) - z/2",
			Description: "complex sine with a linear term",
			Difficulty:  "medium",
			Seeds:       seeds([4]float64{1, 1, 2, 0.5}, [4]float64{-1, -1, -2, -0.5}),
		},
		{
			Name:        "complex_exponential",
			Expression:  "exp(z) - 1",
			Description: "exponential with a root at 0",
			Difficulty:  "low",
			Seeds:       seeds([4]float64{0.5, 0.5, 1, 0}, [4]float64{-0.5, -0.5, -1, 0}),
		},
		{
			Name:        "quartic",
			Expression:  "z^4 - 5*z^2 + 4",
			Description: "quartic with four real roots ±1, ±2",
			Difficulty:  "medium",
			Seeds:       seeds([4]float64{0.5, 0.5, 1.5, 0}, [4]float64{-0.5, 0.5, -1.5, 0}),
		},
		{
			Name:        "imaginary_pair",
			Expression:  "z^2 + 1",
			Description: "quadratic with roots ±i and no real root",
			Difficulty:  "low",
			Seeds:       seeds([4]float64{0.5, 0.5, 0, 1.5}, [4]float64{-0.5, -0.5, 0, -1.5}),
		},
	}

	c.generators["weierstrass"] = generator{
		defaults: map[string]float64{"a": 0.5, "b": 7, "terms": 10},
		build: func(p map[string]float64) (string, string, map[string]any) {
			n := int(p["terms"])
			terms := make([]string, 0, n)
			for k := 0; k < n; k++ {
				terms = append(terms, fmt.Sprintf("%s*cos(%s*pi*z)",
					num(math.Pow(p["a"], float64(k))), num(math.Pow(p["b"], float64(k)))))
			}
			return strings.Join(terms, " + "),
				fmt.Sprintf("Weierstrass function (a=%g, b=%g, %d terms)", p["a"], p["b"], n),
				map[string]any{"continuous": true, "differentiable": false, "oscillatory": true, "difficulty": "high"}
		},
	}
	c.generators["oscillatory"] = generator{
		defaults: map[string]float64{"frequency": 20, "amplitude": 1},
		build: func(p map[string]float64) (string, string, map[string]any) {
			return fmt.Sprintf("%s*sin(%s*z)/(z + 1e-10)", num(p["amplitude"]), num(p["frequency"])),
				fmt.Sprintf("oscillatory function (frequency=%g, amplitude=%g)", p["frequency"], p["amplitude"]),
				map[string]any{"continuous": true, "differentiable": true, "oscillatory": true,
					"frequency": p["frequency"], "difficulty": "medium_high"}
		},
	}
	c.generators["nonsmooth"] = generator{
		defaults: map[string]float64{"threshold": 0.1},
		build: func(p map[string]float64) (string, string, map[string]any) {
			return fmt.Sprintf("(z^3 - 1)*step(abs(z) - %s)", num(p["threshold"])),
				fmt.Sprintf("non-smooth function with a jump at |z|=%g", p["threshold"]),
				map[string]any{"continuous": false, "differentiable": false, "oscillatory": false,
					"discontinuity_at": p["threshold"], "difficulty": "high"}
		},
	}
	c.generators["multimodal"] = generator{
		defaults: map[string]float64{"modes": 5},
		build: func(p map[string]float64) (string, string, map[string]any) {
			n := int(p["modes"])
			factors := make([]string, 0, n)
			for k := 0; k < n; k++ {
				angle := 2 * math.Pi * float64(k) / float64(n)
				factors = append(factors, fmt.Sprintf("(z - (%s + %s*i))", num(math.Cos(angle)), num(math.Sin(angle))))
			}
			return strings.Join(factors, "*"),
				fmt.Sprintf("multimodal function with %d roots of unity", n),
				map[string]any{"continuous": true, "differentiable": true, "multimodal": true,
					"roots": n, "difficulty": "medium"}
		},
	}
	c.generators["ill_conditioned"] = generator{
		defaults: map[string]float64{"condition": 1e12},
		build: func(p map[string]float64) (string, string, map[string]any) {
			delta := 1 / p["condition"]
			return fmt.Sprintf("(z - 1)*(z - (1 + %s))", num(delta)),
				fmt.Sprintf("ill-conditioned function (condition ~%.0e)", p["condition"]),
				map[string]any{"continuous": true, "differentiable": true, "ill_conditioned": true,
					"condition_number": p["condition"], "difficulty": "very_high"}
		},
	}

	for _, ex := range c.examples {
		e := expr.MustParse(ex.Expression)
		c.problems[ex.Name] = Problem{Expression: e.String(), Eval: e.Evaluator()}
	}
	return c
}

func num(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if strings.HasPrefix(s, "-") {
		return "(" + s + ")"
	}
	return s
}

func (c *Catalog) Examples() []Example {
	out := make([]Example, len(c.examples))
	copy(out, c.examples)
	return out
}

// ExampleProblem returns the compiled function of a named example.
func (c *Catalog) ExampleProblem(name string) (Problem, error) {
	p, ok := c.problems[name]
	if !ok {
		return Problem{}, fmt.Errorf("%w: example %q", ErrUnknownFunction, name)
	}
	return p, nil
}

func (c *Catalog) Example(name string) (Example, error) {
	for _, e := range c.examples {
		if e.Name == name {
			return e, nil
		}
	}
	return Example{}, fmt.Errorf("%w: example %q", ErrUnknownFunction, name)
}

// Kinds lists the pathological generator names.
func (c *Catalog) Kinds() []string {
	names := make([]string, 0, len(c.generators))
	for name := range c.generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pathological builds a hard function of the given kind. Missing
// parameters take the generator's defaults; unknown ones are rejected.
func (c *Catalog) Pathological(kind string, params map[string]float64) (*Pathological, error) {
	g, ok := c.generators[kind]
	if !ok {
		return nil, fmt.Errorf("%w: pathological kind %q", ErrUnknownFunction, kind)
	}

	p := make(map[string]float64, len(g.defaults))
	for k, v := range g.defaults {
		p[k] = v
	}
	for k, v := range params {
		if _, ok := g.defaults[k]; !ok {
			return nil, fmt.Errorf("%w: %s has no parameter %q", ErrUnknownFunction, kind, k)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s parameter %q must be finite", ErrInvalidParams, kind, k)
		}
		p[k] = v
	}
	if err := checkParams(kind, p); err != nil {
		return nil, err
	}

	src, desc, traits := g.build(p)
	return &Pathological{
		Kind:            kind,
		Expression:      src,
		Description:     desc,
		Characteristics: traits,
		Params:          p,
	}, nil
}

func checkParams(kind string, p map[string]float64) error {
	switch kind {
	case "weierstrass":
		if p["terms"] < 1 || p["terms"] > MaxWeierstrassTerms {
			return fmt.Errorf("%w: weierstrass terms must be in [1, %d], got %g", ErrInvalidParams, MaxWeierstrassTerms, p["terms"])
		}
	case "multimodal":
		if p["modes"] < 1 || p["modes"] > MaxModes {
			return fmt.Errorf("%w: multimodal modes must be in [1, %d], got %g", ErrInvalidParams, MaxModes, p["modes"])
		}
	case "ill_conditioned":
		if p["condition"] == 0 {
			return fmt.Errorf("%w: ill_conditioned condition must be non-zero", ErrInvalidParams)
		}
	}
	return nil
}
