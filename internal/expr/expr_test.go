package expr

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEval(t *testing.T) {
	tests := []struct {
		src  string
		z    complex128
		want complex128
	}{
		{"z", 2 + 1i, 2 + 1i},
		{"z^3 - 1", 1, 0},
		{"z**3 - 1", 2, 7},
		{"z^2 + 1", 1i, 0},
		{"-z^2", 3, -9},
		{"2^3^2", 0, 512},
		{"2z + 1", 1i, 1 + 2i},
		{"3(z+1)", 1, 6},
		{"1/2*z", 4, 2},
		{"z/2/2", 8, 2},
		{"i*i", 0, -1},
		{"2i + 0.5j", 0, 2.5i},
		{"1e-3*z", 1000, 1},
		{"z - (1+2i)", 1 + 2i, 0},
		{"exp(z) - 1", 0, 0},
		{"sin(z) - z/2", 0, 0},
		{"abs(z)", 3 + 4i, 5},
		{"re(z) + im(z)", 3 + 4i, 7},
		{"conj(z)", 1 + 1i, 1 - 1i},
		{"pow(z, 2)", 1i, -1},
		{"step(abs(z) - 0.1)", 0.05, 0},
		{"step(abs(z) - 0.1)", 1, 1},
		{"z^4 - 5*z^2 + 4", 2, 0},
		{"+z", 5, 5},
		{"cos(pi*z)", 1, -1},
		{"log(e)", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			e, err := Parse(tt.src)
			require.NoError(t, err)
			got := e.Eval(tt.z)
			assert.InDelta(t, real(tt.want), real(got), 1e-12)
			assert.InDelta(t, imag(tt.want), imag(got), 1e-12)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		src  string
		want error
	}{
		{"", ErrEmpty},
		{"   ", ErrEmpty},
		{"z +", ErrSyntax},
		{"(z + 1", ErrSyntax},
		{"z)", ErrSyntax},
		{"z $ 2", ErrSyntax},
		{"pow(z)", ErrSyntax},
		{"sin(z, z)", ErrSyntax},
		{"foo(z)", ErrUnknownName},
		{"x + 1", ErrUnknownName},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := Parse(tt.src)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestPowIntegerExponentsAreExact(t *testing.T) {
	z := complex(1.1, -0.3)
	assert.Equal(t, z*z*z, pow(z, 3))
	assert.Equal(t, complex(1, 0), pow(z, 0))
	assert.InDelta(t, 0, cmplx.Abs(pow(z, -2)*z*z-1), 1e-15)

	half := pow(4, 0.5)
	assert.InDelta(t, 2, real(half), 1e-12)
}

func TestCompileReturnsEvaluator(t *testing.T) {
	f, err := Compile("z^2 - 4")
	require.NoError(t, err)
	assert.Equal(t, complex(0, 0), f(2))
	assert.Equal(t, complex(0, 0), f(-2))

	_, err = Compile("z^")
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestExprString(t *testing.T) {
	e := MustParse("  z^2 ")
	assert.Equal(t, "z^2", e.String())
	assert.Panics(t, func() { MustParse("(") })
}

func TestDivisionByZeroIsNotFinite(t *testing.T) {
	e := MustParse("1/z")
	v := e.Eval(0)
	assert.True(t, cmplx.IsInf(v) || cmplx.IsNaN(v) || math.IsInf(real(v), 0))
}

func TestFunctionsSorted(t *testing.T) {
	names := Functions()
	assert.Contains(t, names, "sin")
	assert.IsIncreasing(t, names)
}
