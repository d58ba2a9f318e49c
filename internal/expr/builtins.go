package expr

import (
	"math"
	"math/cmplx"
	"sort"
)

var constants = map[string]complex128{
	"pi": complex(math.Pi, 0),
	"e":  complex(math.E, 0),
	"i":  1i,
	"j":  1i,
}

type builtin struct {
	arity int
	fn    func(args []complex128) complex128
}

func unary(f func(complex128) complex128) builtin {
	return builtin{arity: 1, fn: func(a []complex128) complex128 { return f(a[0]) }}
}

var functions = map[string]builtin{
	"sin":  unary(cmplx.Sin),
	"cos":  unary(cmplx.Cos),
	"tan":  unary(cmplx.Tan),
	"sinh": unary(cmplx.Sinh),
	"cosh": unary(cmplx.Cosh),
	"tanh": unary(cmplx.Tanh),
	"exp":  unary(cmplx.Exp),
	"log":  unary(cmplx.Log),
	"ln":   unary(cmplx.Log),
	"sqrt": unary(cmplx.Sqrt),
	"conj": unary(cmplx.Conj),
	"abs":  unary(func(z complex128) complex128 { return complex(cmplx.Abs(z), 0) }),
	"re":   unary(func(z complex128) complex128 { return complex(real(z), 0) }),
	"im":   unary(func(z complex128) complex128 { return complex(imag(z), 0) }),
	// step is 1 where the real part is positive and 0 elsewhere.
	"step": unary(func(z complex128) complex128 {
		if real(z) > 0 {
			return 1
		}
		return 0
	}),
	"pow": {arity: 2, fn: func(a []complex128) complex128 { return pow(a[0], a[1]) }},
}

// Functions lists the names of the supported functions.
func Functions() []string {
	names := make([]string, 0, len(functions))
	for n := range functions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// pow keeps small integer exponents exact; cmplx.Pow goes through log/exp.
func pow(x, y complex128) complex128 {
	if imag(y) == 0 {
		n := real(y)
		if n == math.Trunc(n) && math.Abs(n) <= 64 {
			k := int(n)
			r := complex(1, 0)
			b := x
			if k < 0 {
				k = -k
				b = 1 / x
			}
			for ; k > 0; k >>= 1 {
				if k&1 == 1 {
					r *= b
				}
				b *= b
			}
			return r
		}
	}
	return cmplx.Pow(x, y)
}
