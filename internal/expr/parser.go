package expr

import (
	"fmt"
	"strings"
)

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isOp(s string) bool {
	t := p.peek()
	return t.kind == tokOp && t.text == s
}

// expr := term { ("+" | "-") term }
func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.isOp("+") || p.isOp("-") {
		op := p.next().text
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		l, r := left, right
		if op == "+" {
			left = func(z complex128) complex128 { return l(z) + r(z) }
		} else {
			left = func(z complex128) complex128 { return l(z) - r(z) }
		}
	}
	return left, nil
}

// term := unary { ("*" | "/" | implicit) unary }
func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch t := p.peek(); {
		case p.isOp("*") || p.isOp("/"):
			op = p.next().text
		case t.kind == tokNumber || t.kind == tokImag || t.kind == tokIdent || t.kind == tokLParen:
			op = "*"
		default:
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		l, r := left, right
		if op == "*" {
			left = func(z complex128) complex128 { return l(z) * r(z) }
		} else {
			left = func(z complex128) complex128 { return l(z) / r(z) }
		}
	}
}

// unary := ("-" | "+") unary | power
func (p *parser) parseUnary() (node, error) {
	if p.isOp("-") {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return func(z complex128) complex128 { return -operand(z) }, nil
	}
	if p.isOp("+") {
		p.next()
		return p.parseUnary()
	}
	return p.parsePower()
}

// power := primary [ "^" unary ]
func (p *parser) parsePower() (node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if !p.isOp("^") {
		return base, nil
	}
	p.next()
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return func(z complex128) complex128 { return pow(base(z), exp(z)) }, nil
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		v := complex(t.num, 0)
		return func(complex128) complex128 { return v }, nil
	case tokImag:
		v := complex(0, t.num)
		return func(complex128) complex128 { return v }, nil
	case tokLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case tokIdent:
		return p.parseIdent(t)
	default:
		return nil, fmt.Errorf("%w: unexpected %s at %d", ErrSyntax, t, t.pos)
	}
}

func (p *parser) parseIdent(t token) (node, error) {
	name := strings.ToLower(t.text)
	if p.peek().kind == tokLParen {
		fn, ok := functions[name]
		if !ok {
			return nil, fmt.Errorf("%w: function %q at %d", ErrUnknownName, t.text, t.pos)
		}
		p.next()
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		if len(args) != fn.arity {
			return nil, fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrSyntax, name, fn.arity, len(args))
		}
		return func(z complex128) complex128 {
			vals := make([]complex128, len(args))
			for i, a := range args {
				vals[i] = a(z)
			}
			return fn.fn(vals)
		}, nil
	}

	if name == "z" {
		return func(z complex128) complex128 { return z }, nil
	}
	if v, ok := constants[name]; ok {
		return func(complex128) complex128 { return v }, nil
	}
	return nil, fmt.Errorf("%w: %q at %d", ErrUnknownName, t.text, t.pos)
}

func (p *parser) parseArgs() ([]node, error) {
	var args []node
	if p.peek().kind == tokRParen {
		p.next()
		return args, nil
	}
	for {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.peek().kind == tokComma {
			p.next()
			continue
		}
		return args, p.expect(tokRParen)
	}
}

func (p *parser) expect(kind tokenKind) error {
	if t := p.next(); t.kind != kind {
		return fmt.Errorf("%w: unexpected %s at %d", ErrSyntax, t, t.pos)
	}
	return nil
}
