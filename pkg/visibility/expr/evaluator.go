package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Evaluator is a small, dependency-free evaluator for visibleWhen rules.
//
// Supported operators:
// - boolean checks: `subscribe`, `!subscribe`
// - equality: `plan == "pro"`, `plan != 'free'`, `count == 3`, `agree == true`
// - ordering: `age >= 18`, `score < 10.5`
// - composition: `a && b`, `a || (b && !c)`
//
// Identifiers are field keys; dotted paths traverse nested maps. Compiled
// rules are cached per rule string.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]Rule
}

func New() *Evaluator {
	return &Evaluator{cache: make(map[string]Rule)}
}

// Visible satisfies visibility.Evaluator. An empty rule is always visible.
func (e *Evaluator) Visible(_ string, rule string, values map[string]any) (bool, error) {
	compiled, err := e.compile(rule)
	if err != nil {
		return false, err
	}
	return compiled.Eval(values)
}

func (e *Evaluator) compile(rule string) (Rule, error) {
	e.mu.RLock()
	compiled, ok := e.cache[rule]
	e.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	compiled, err := Compile(rule)
	if err != nil {
		return Rule{}, err
	}

	e.mu.Lock()
	e.cache[rule] = compiled
	e.mu.Unlock()
	return compiled, nil
}

// Rule is a parsed visibility expression.
type Rule struct {
	root exprNode
}

// Compile parses rule once so callers (including schema linting) can surface
// syntax errors ahead of evaluation.
func Compile(rule string) (Rule, error) {
	trimmed := strings.TrimSpace(rule)
	if trimmed == "" {
		return Rule{}, nil
	}
	tokens, err := tokenize(trimmed)
	if err != nil {
		return Rule{}, err
	}
	if len(tokens) == 0 {
		return Rule{}, nil
	}
	root, err := parseExpression(tokens)
	if err != nil {
		return Rule{}, err
	}
	return Rule{root: root}, nil
}

// Eval evaluates the rule against values. The zero Rule evaluates to true.
func (r Rule) Eval(values map[string]any) (bool, error) {
	if r.root == nil {
		return true, nil
	}
	return r.root.eval(values)
}

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenEq
	tokenNeq
	tokenLt
	tokenLte
	tokenGt
	tokenGte
	tokenAnd
	tokenOr
	tokenNot
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	raw  string
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0

	peek := func(offset int) byte {
		if i+offset >= len(input) {
			return 0
		}
		return input[i+offset]
	}

	for i < len(input) {
		ch := input[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case ch == '(':
			tokens = append(tokens, token{kind: tokenLParen, raw: "("})
			i++
		case ch == ')':
			tokens = append(tokens, token{kind: tokenRParen, raw: ")"})
			i++
		case ch == '!' && peek(1) == '=':
			tokens = append(tokens, token{kind: tokenNeq, raw: "!="})
			i += 2
		case ch == '!':
			tokens = append(tokens, token{kind: tokenNot, raw: "!"})
			i++
		case ch == '=':
			if peek(1) != '=' {
				return nil, errors.New("visibility/expr: unexpected '='; use '=='")
			}
			tokens = append(tokens, token{kind: tokenEq, raw: "=="})
			i += 2
		case ch == '<' || ch == '>':
			kind, raw := tokenLt, "<"
			if ch == '>' {
				kind, raw = tokenGt, ">"
			}
			if peek(1) == '=' {
				kind++
				raw += "="
				i++
			}
			tokens = append(tokens, token{kind: kind, raw: raw})
			i++
		case ch == '&':
			if peek(1) != '&' {
				return nil, errors.New("visibility/expr: unexpected '&'; use '&&'")
			}
			tokens = append(tokens, token{kind: tokenAnd, raw: "&&"})
			i += 2
		case ch == '|':
			if peek(1) != '|' {
				return nil, errors.New("visibility/expr: unexpected '|'; use '||'")
			}
			tokens = append(tokens, token{kind: tokenOr, raw: "||"})
			i += 2
		case ch == '"' || ch == '\'':
			value, width, err := readString(input[i:])
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokenString, raw: value})
			i += width
		default:
			start := i
			for i < len(input) && !isDelimiter(input[i]) {
				i++
			}
			tokens = append(tokens, classifyWord(input[start:i]))
		}
	}

	return tokens, nil
}

func readString(input string) (string, int, error) {
	quote := input[0]
	escaped := false
	for j := 1; j < len(input); j++ {
		c := input[j]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c != quote {
			continue
		}
		body := input[1:j]
		if quote == '\'' {
			body = strings.ReplaceAll(strings.ReplaceAll(body, `\'`, `'`), `"`, `\"`)
		}
		value, err := strconv.Unquote(`"` + body + `"`)
		if err != nil {
			return "", 0, fmt.Errorf("visibility/expr: invalid string literal: %w", err)
		}
		return value, j + 1, nil
	}
	return "", 0, errors.New("visibility/expr: unterminated string literal")
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '(', ')', '!', '=', '&', '|', '<', '>', '"', '\'':
		return true
	}
	return false
}

func classifyWord(raw string) token {
	switch strings.ToLower(raw) {
	case "true", "false":
		return token{kind: tokenBool, raw: strings.ToLower(raw)}
	case "null", "undefined":
		return token{kind: tokenNull, raw: "null"}
	}
	if _, err := strconv.ParseFloat(raw, 64); err == nil {
		return token{kind: tokenNumber, raw: raw}
	}
	return token{kind: tokenIdentifier, raw: raw}
}

type exprNode interface {
	eval(values map[string]any) (bool, error)
}

type exprOr struct{ left, right exprNode }

func (n exprOr) eval(values map[string]any) (bool, error) {
	ok, err := n.left.eval(values)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(values)
}

type exprAnd struct{ left, right exprNode }

func (n exprAnd) eval(values map[string]any) (bool, error) {
	ok, err := n.left.eval(values)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(values)
}

type exprNot struct{ inner exprNode }

func (n exprNot) eval(values map[string]any) (bool, error) {
	ok, err := n.inner.eval(values)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

type exprTruthy struct{ identifier string }

func (n exprTruthy) eval(values map[string]any) (bool, error) {
	value, ok := lookup(values, n.identifier)
	return ok && truthy(value), nil
}

type exprCompare struct {
	identifier string
	op         tokenKind
	literal    token
}

func (n exprCompare) eval(values map[string]any) (bool, error) {
	value, _ := lookup(values, n.identifier)

	switch n.op {
	case tokenLt, tokenLte, tokenGt, tokenGte:
		want, err := strconv.ParseFloat(n.literal.raw, 64)
		if n.literal.kind != tokenNumber || err != nil {
			return false, fmt.Errorf("visibility/expr: %s needs a number, got %q", n.opString(), n.literal.raw)
		}
		got, ok := coerceNumber(value)
		if !ok {
			return false, nil
		}
		switch n.op {
		case tokenLt:
			return got < want, nil
		case tokenLte:
			return got <= want, nil
		case tokenGt:
			return got > want, nil
		default:
			return got >= want, nil
		}
	}

	var equal bool
	switch n.literal.kind {
	case tokenNull:
		equal = value == nil || value == ""
	case tokenBool:
		got, _ := coerceBool(value)
		equal = got == (n.literal.raw == "true")
	case tokenNumber:
		want, _ := strconv.ParseFloat(n.literal.raw, 64)
		got, ok := coerceNumber(value)
		equal = ok && got == want
	default:
		equal = coerceString(value) == n.literal.raw
	}
	if n.op == tokenNeq {
		return !equal, nil
	}
	return equal, nil
}

func (n exprCompare) opString() string {
	switch n.op {
	case tokenEq:
		return "=="
	case tokenNeq:
		return "!="
	case tokenLt:
		return "<"
	case tokenLte:
		return "<="
	case tokenGt:
		return ">"
	case tokenGte:
		return ">="
	default:
		return "?"
	}
}

type tokenStream struct {
	tokens []token
	pos    int
}

func parseExpression(tokens []token) (exprNode, error) {
	stream := &tokenStream{tokens: tokens}
	node, err := parseOr(stream)
	if err != nil {
		return nil, err
	}
	if stream.pos < len(stream.tokens) {
		return nil, fmt.Errorf("visibility/expr: unexpected token %q", stream.tokens[stream.pos].raw)
	}
	return node, nil
}

func parseOr(stream *tokenStream) (exprNode, error) {
	left, err := parseAnd(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenOr) {
		right, err := parseAnd(stream)
		if err != nil {
			return nil, err
		}
		left = exprOr{left: left, right: right}
	}
	return left, nil
}

func parseAnd(stream *tokenStream) (exprNode, error) {
	left, err := parseUnary(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenAnd) {
		right, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		left = exprAnd{left: left, right: right}
	}
	return left, nil
}

func parseUnary(stream *tokenStream) (exprNode, error) {
	if stream.match(tokenNot) {
		inner, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		return exprNot{inner: inner}, nil
	}
	return parsePrimary(stream)
}

func parsePrimary(stream *tokenStream) (exprNode, error) {
	if stream.match(tokenLParen) {
		inner, err := parseOr(stream)
		if err != nil {
			return nil, err
		}
		if !stream.match(tokenRParen) {
			return nil, errors.New("visibility/expr: missing closing ')'")
		}
		return inner, nil
	}

	ident, ok := stream.consume(tokenIdentifier)
	if !ok {
		if stream.pos >= len(stream.tokens) {
			return nil, errors.New("visibility/expr: empty expression")
		}
		return nil, fmt.Errorf("visibility/expr: expected identifier, got %q", stream.tokens[stream.pos].raw)
	}

	for _, op := range []tokenKind{tokenEq, tokenNeq, tokenLt, tokenLte, tokenGt, tokenGte} {
		if !stream.match(op) {
			continue
		}
		lit, err := stream.consumeLiteral()
		if err != nil {
			return nil, err
		}
		return exprCompare{identifier: ident.raw, op: op, literal: lit}, nil
	}

	return exprTruthy{identifier: ident.raw}, nil
}

func (s *tokenStream) match(kind tokenKind) bool {
	if s.pos >= len(s.tokens) || s.tokens[s.pos].kind != kind {
		return false
	}
	s.pos++
	return true
}

func (s *tokenStream) consume(kind tokenKind) (token, bool) {
	if s.pos >= len(s.tokens) || s.tokens[s.pos].kind != kind {
		return token{}, false
	}
	out := s.tokens[s.pos]
	s.pos++
	return out, true
}

func (s *tokenStream) consumeLiteral() (token, error) {
	if s.pos >= len(s.tokens) {
		return token{}, errors.New("visibility/expr: missing literal")
	}
	tok := s.tokens[s.pos]
	s.pos++
	switch tok.kind {
	case tokenString, tokenNumber, tokenBool, tokenNull:
		return tok, nil
	case tokenIdentifier:
		// Bare words compare as strings: plan == pro.
		return token{kind: tokenString, raw: tok.raw}, nil
	default:
		return token{}, fmt.Errorf("visibility/expr: expected literal, got %q", tok.raw)
	}
}
