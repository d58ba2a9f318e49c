// Package expr compiles textual functions of a complex variable z into
// evaluators for the secant solver.
//
//	f, err := expr.Compile("z^3 - 1")
//	res, err := secant.Run(ctx, seed0, seed1, cfg, f)
package expr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/san-kum/secantlab/internal/secant"
)

var (
	ErrSyntax      = errors.New("expr: syntax error")
	ErrUnknownName = errors.New("expr: unknown name")
	ErrEmpty       = errors.New("expr: empty expression")
)

type node func(z complex128) complex128

// Expr is a compiled expression in the variable z.
type Expr struct {
	src  string
	root node
}

// Parse compiles src. The grammar accepts numbers (with an optional i or j
// suffix for imaginary literals), the variable z, the constants pi, e and
// i, the operators + - * / ^ ** with the usual precedence (^ binds tighter
// than unary minus and is right associative), implicit multiplication such
// as 2z or 3(z+1), and calls to the functions listed by Functions.
func Parse(src string) (*Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, ErrEmpty
	}
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected %s at %d", ErrSyntax, t, t.pos)
	}
	return &Expr{src: strings.TrimSpace(src), root: root}, nil
}

// MustParse is Parse for expressions known to be valid.
func MustParse(src string) *Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Expr) String() string { return e.src }

func (e *Expr) Eval(z complex128) complex128 { return e.root(z) }

// Evaluator returns the expression as a secant evaluator. Compiled
// expressions hold no mutable state and are safe for concurrent use.
func (e *Expr) Evaluator() secant.Evaluator { return secant.Evaluator(e.root) }

// Compile parses src and returns its evaluator.
func Compile(src string) (secant.Evaluator, error) {
	e, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return e.Evaluator(), nil
}
