package experiment

import (
	"context"
	"math"
	"math/cmplx"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/secantlab/internal/expr"
	"github.com/san-kum/secantlab/internal/secant"
)

func TestExamplesCompile(t *testing.T) {
	c := NewCatalog()
	require.NotEmpty(t, c.Examples())

	for _, ex := range c.Examples() {
		t.Run(ex.Name, func(t *testing.T) {
			e, err := expr.Parse(ex.Expression)
			require.NoError(t, err)
			require.NotEmpty(t, ex.Seeds)
			for _, sp := range ex.Seeds {
				v := e.Eval(sp.X0.Complex())
				assert.False(t, cmplx.IsNaN(v) || cmplx.IsInf(v))
			}
		})
	}
}

func TestCubicExampleConverges(t *testing.T) {
	c := NewCatalog()
	ex, err := c.Example("cubic_roots_of_unity")
	require.NoError(t, err)

	s := newSolver(t)
	p := mustCompile(t, ex.Expression)
	roots := []complex128{1, complex(-0.5, math.Sqrt(3)/2), complex(-0.5, -math.Sqrt(3)/2)}

	for _, sp := range ex.Seeds {
		res, err := s.Execute(context.Background(), p, sp.X0, sp.X1)
		require.NoError(t, err)
		require.True(t, res.Converged)
		assert.Less(t, res.FinalError, secant.DefaultTolerance)

		best := math.Inf(1)
		for _, r := range roots {
			best = math.Min(best, cmplx.Abs(res.Root.Complex()-r))
		}
		assert.Less(t, best, 1e-6)
	}

	_, err = c.Example("nope")
	assert.ErrorIs(t, err, ErrUnknownFunction)
}

func TestPathologicalDefaults(t *testing.T) {
	c := NewCatalog()
	assert.Equal(t, []string{"ill_conditioned", "multimodal", "nonsmooth", "oscillatory", "weierstrass"}, c.Kinds())

	for _, kind := range c.Kinds() {
		t.Run(kind, func(t *testing.T) {
			p, err := c.Pathological(kind, nil)
			require.NoError(t, err)
			assert.Equal(t, kind, p.Kind)
			assert.NotEmpty(t, p.Description)
			assert.NotEmpty(t, p.Characteristics)
			_, err = expr.Parse(p.Expression)
			assert.NoError(t, err, p.Expression)
		})
	}
}

func TestPathologicalValues(t *testing.T) {
	c := NewCatalog()
	eval := func(kind string, params map[string]float64, z complex128) complex128 {
		t.Helper()
		p, err := c.Pathological(kind, params)
		require.NoError(t, err)
		return expr.MustParse(p.Expression).Eval(z)
	}

	w, err := c.Pathological("weierstrass", nil)
	require.NoError(t, err)
	assert.Equal(t, 9, strings.Count(w.Expression, " + "))
	assert.Equal(t, 7.0, w.Params["b"])

	assert.InDelta(t, 0, cmplx.Abs(eval("multimodal", nil, 1)), 1e-12)
	assert.InDelta(t, 0, cmplx.Abs(eval("multimodal", nil, cmplx.Rect(1, 2*math.Pi/5))), 1e-12)
	assert.InDelta(t, 0, cmplx.Abs(eval("multimodal", map[string]float64{"modes": 3}, complex(-0.5, math.Sqrt(3)/2))), 1e-12)

	assert.Equal(t, complex(0, 0), eval("ill_conditioned", nil, 1))
	assert.Equal(t, complex(0, 0), eval("nonsmooth", nil, 0.05))
	assert.Equal(t, complex(7, 0), eval("nonsmooth", nil, 2))

	osc := eval("oscillatory", map[string]float64{"frequency": 1, "amplitude": 2}, math.Pi/2)
	assert.InDelta(t, 2/(math.Pi/2), real(osc), 1e-9)
}

func TestPathologicalErrors(t *testing.T) {
	c := NewCatalog()

	_, err := c.Pathological("chaotic", nil)
	assert.ErrorIs(t, err, ErrUnknownFunction)

	_, err = c.Pathological("oscillatory", map[string]float64{"phase": 1})
	assert.ErrorIs(t, err, ErrUnknownFunction)

	_, err = c.Pathological("ill_conditioned", map[string]float64{"condition": math.Inf(1)})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestPathologicalParamLimits(t *testing.T) {
	c := NewCatalog()
	tests := []struct {
		kind   string
		params map[string]float64
		ok     bool
	}{
		{"weierstrass", map[string]float64{"terms": 0}, false},
		{"weierstrass", map[string]float64{"terms": MaxWeierstrassTerms}, true},
		{"weierstrass", map[string]float64{"terms": MaxWeierstrassTerms + 1}, false},
		{"weierstrass", map[string]float64{"terms": 1e20}, false},
		{"multimodal", map[string]float64{"modes": 0}, false},
		{"multimodal", map[string]float64{"modes": MaxModes}, true},
		{"multimodal", map[string]float64{"modes": 1e10}, false},
		{"ill_conditioned", map[string]float64{"condition": 0}, false},
	}

	for _, tt := range tests {
		_, err := c.Pathological(tt.kind, tt.params)
		if tt.ok {
			assert.NoError(t, err, "%s %v", tt.kind, tt.params)
		} else {
			assert.ErrorIs(t, err, ErrInvalidParams, "%s %v", tt.kind, tt.params)
		}
	}
}

func TestExampleProblem(t *testing.T) {
	c := NewCatalog()
	p, err := c.ExampleProblem("cubic_roots_of_unity")
	require.NoError(t, err)
	assert.Equal(t, "z^3 - 1", p.Expression)
	assert.Equal(t, complex(0, 0), p.Eval(1))

	_, err = c.ExampleProblem("nope")
	assert.ErrorIs(t, err, ErrUnknownFunction)
}
