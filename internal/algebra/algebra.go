// Package algebra checks mathematical equivalence of free-form
// expressions, e.g. "b+4" ≡ "4+b". Expressions are parsed into an AST
// and compared by evaluation over a fixed grid of sample assignments;
// anything unparsable is simply not equivalent, never an error.
package algebra

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Checker tests expressions for mathematical equality.
type Checker struct {
	// Tolerance is the relative tolerance for numeric comparison.
	Tolerance float64
	// Samples is the number of assignments tried per comparison.
	Samples int
}

// NewChecker returns a Checker with defaults suited to curriculum-scale
// expressions (small polynomials and fractions).
func NewChecker() *Checker {
	return &Checker{Tolerance: 1e-9, Samples: 8}
}

// AreEquivalent reports whether two expressions are mathematically
// equal. A parse failure on either side yields false.
func (c *Checker) AreEquivalent(a, b string) bool {
	ea, err := Parse(a)
	if err != nil {
		return false
	}
	eb, err := Parse(b)
	if err != nil {
		return false
	}

	vars := unionVars(ea.Vars(), eb.Vars())

	valid := 0
	for trial := 0; trial < c.Samples; trial++ {
		env := sampleEnv(vars, trial)
		va, errA := ea.Eval(env)
		vb, errB := eb.Eval(env)
		if errA != nil || errB != nil {
			// Singular point (division by zero etc.) — try another.
			continue
		}
		if !closeEnough(va, vb, c.Tolerance) {
			return false
		}
		valid++
	}
	// Require a few agreeing samples before claiming equivalence.
	return valid >= 3
}

func closeEnough(a, b, tol float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return false
	}
	diff := math.Abs(a - b)
	scale := math.Max(math.Abs(a), math.Abs(b))
	if scale < 1 {
		scale = 1
	}
	return diff <= tol*scale
}

// sampleEnv assigns a deterministic, irrational-looking value to each
// variable. Values avoid 0, 1 and small integers so that distinct
// polynomials rarely collide across the whole grid.
func sampleEnv(vars []string, trial int) map[string]float64 {
	env := make(map[string]float64, len(vars))
	for i, v := range vars {
		// Spread assignments across trials and variables.
		base := 1.318 + 0.774*float64(i+1) + 1.237*float64(trial)
		if trial%2 == 1 {
			base = -base
		}
		env[v] = base
	}
	return env
}

func unionVars(a, b []string) []string {
	set := map[string]struct{}{}
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		set[v] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Expr is a parsed expression node.
type Expr interface {
	Eval(env map[string]float64) (float64, error)
	appendVars(set map[string]struct{})
}

// Vars lists the distinct variables of an expression.
func exprVars(e Expr) []string {
	set := map[string]struct{}{}
	e.appendVars(set)
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

type numNode float64

func (n numNode) Eval(map[string]float64) (float64, error) { return float64(n), nil }
func (n numNode) appendVars(map[string]struct{})           {}

type varNode string

func (v varNode) Eval(env map[string]float64) (float64, error) {
	val, ok := env[string(v)]
	if !ok {
		return 0, fmt.Errorf("unbound variable %q", string(v))
	}
	return val, nil
}
func (v varNode) appendVars(set map[string]struct{}) { set[string(v)] = struct{}{} }

type binNode struct {
	op    byte
	left  Expr
	right Expr
}

func (b binNode) Eval(env map[string]float64) (float64, error) {
	l, err := b.left.Eval(env)
	if err != nil {
		return 0, err
	}
	r, err := b.right.Eval(env)
	if err != nil {
		return 0, err
	}
	switch b.op {
	case '+':
		return l + r, nil
	case '-':
		return l - r, nil
	case '*':
		return l * r, nil
	case '/':
		if math.Abs(r) < 1e-12 {
			return 0, fmt.Errorf("division by zero")
		}
		return l / r, nil
	case '^':
		return math.Pow(l, r), nil
	}
	return 0, fmt.Errorf("unknown operator %q", b.op)
}

func (b binNode) appendVars(set map[string]struct{}) {
	b.left.appendVars(set)
	b.right.appendVars(set)
}

type negNode struct{ inner Expr }

func (n negNode) Eval(env map[string]float64) (float64, error) {
	v, err := n.inner.Eval(env)
	return -v, err
}
func (n negNode) appendVars(set map[string]struct{}) { n.inner.appendVars(set) }

// parsedExpr wraps the root node with its variable list.
type parsedExpr struct {
	root Expr
}

func (p *parsedExpr) Eval(env map[string]float64) (float64, error) { return p.root.Eval(env) }
func (p *parsedExpr) Vars() []string                               { return exprVars(p.root) }

// Parse parses an arithmetic/algebraic expression. Supported syntax:
// numbers, identifiers, + - * / ^, parentheses, unary minus, and
// implicit multiplication ("2b", "3(x+1)", "(a)(b)").
func Parse(s string) (*parsedExpr, error) {
	p := &parser{input: normalizeInput(s)}
	root, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("unexpected %q at offset %d", p.input[p.pos], p.pos)
	}
	return &parsedExpr{root: root}, nil
}

// normalizeInput maps unicode arithmetic symbols to their ASCII forms.
func normalizeInput(s string) string {
	r := strings.NewReplacer("×", "*", "·", "*", "÷", "/", "−", "-")
	return r.Replace(strings.TrimSpace(s))
}

type parser struct {
	input string
	pos   int
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) peek() (byte, bool) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

func (p *parser) parseSum() (Expr, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for {
		ch, ok := p.peek()
		if !ok || (ch != '+' && ch != '-') {
			return left, nil
		}
		p.pos++
		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		left = binNode{op: ch, left: left, right: right}
	}
}

func (p *parser) parseProduct() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		ch, ok := p.peek()
		if !ok {
			return left, nil
		}
		switch {
		case ch == '*' || ch == '/':
			p.pos++
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = binNode{op: ch, left: left, right: right}
		case ch == '(' || isIdentStart(rune(ch)) || unicode.IsDigit(rune(ch)):
			// Implicit multiplication: 2b, 3(x+1), (a)(b).
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = binNode{op: '*', left: left, right: right}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	ch, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	if ch == '-' {
		p.pos++
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return negNode{inner: inner}, nil
	}
	if ch == '+' {
		p.pos++
		return p.parseUnary()
	}
	return p.parsePower()
}

func (p *parser) parsePower() (Expr, error) {
	base, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	ch, ok := p.peek()
	if ok && ch == '^' {
		p.pos++
		// Right-associative.
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return binNode{op: '^', left: base, right: exp}, nil
	}
	return base, nil
}

func (p *parser) parseAtom() (Expr, error) {
	ch, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of expression")
	}

	if ch == '(' {
		p.pos++
		inner, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		closing, ok := p.peek()
		if !ok || closing != ')' {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return inner, nil
	}

	if unicode.IsDigit(rune(ch)) || ch == '.' {
		start := p.pos
		for p.pos < len(p.input) && (unicode.IsDigit(rune(p.input[p.pos])) || p.input[p.pos] == '.') {
			p.pos++
		}
		n, err := strconv.ParseFloat(p.input[start:p.pos], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", p.input[start:p.pos])
		}
		return numNode(n), nil
	}

	if isIdentStart(rune(ch)) {
		// Single-letter variables: "ab" means a*b, handled by implicit
		// multiplication in parseProduct.
		p.pos++
		return varNode(string(ch)), nil
	}

	return nil, fmt.Errorf("unexpected %q at offset %d", ch, p.pos)
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r)
}
