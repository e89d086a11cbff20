package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// EmailPattern is the shape synthesized for email fields: local@domain.tld
// with no whitespace and a single @.
const EmailPattern = `^[^\s@]+@[^\s@]+\.[^\s@]+$`

// MatchTimeout bounds a single pattern match. A match that runs out of time
// counts as a mismatch.
const MatchTimeout = 100 * time.Millisecond

const delimitedFlags = "gimsuy"

// Pattern is a compiled field pattern along with its original spelling.
// Patterns use JavaScript regular expression syntax, lookaround and
// backreferences included.
type Pattern struct {
	Source string
	Body   string
	Flags  string
	sticky bool
	re     *regexp2.Regexp
}

// MatchString reports whether value matches anywhere, like RegExp.test.
// With the y flag the match must start at the beginning of value.
func (p *Pattern) MatchString(value string) bool {
	if p == nil || p.re == nil {
		return true
	}
	if p.sticky {
		m, err := p.re.FindStringMatch(value)
		return err == nil && m != nil && m.Index == 0
	}
	ok, err := p.re.MatchString(value)
	return err == nil && ok
}

// Regexp exposes the compiled expression.
func (p *Pattern) Regexp() *regexp2.Regexp {
	if p == nil {
		return nil
	}
	return p.re
}

func (p *Pattern) String() string {
	if p == nil {
		return ""
	}
	return p.Source
}

// PatternError reports a pattern that could not be compiled.
type PatternError struct {
	Source string
	Err    error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("validation: invalid pattern %q: %v", e.Source, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// ParsePattern compiles a field pattern. Two spellings are accepted: the
// delimited form "/body/flags" and a raw expression. Delimited flags map onto
// the engine's i, m, s and u options; g does not change single-value
// matching and y anchors the match at the start. Repeated flags are rejected.
func ParsePattern(raw string) (*Pattern, error) {
	if body, flags, ok := splitDelimited(raw); ok {
		options, err := flagOptions(flags)
		if err != nil {
			return nil, &PatternError{Source: raw, Err: err}
		}
		re, err := compile(body, options)
		if err != nil {
			return nil, &PatternError{Source: raw, Err: err}
		}
		return &Pattern{Source: raw, Body: body, Flags: flags, sticky: strings.ContainsRune(flags, 'y'), re: re}, nil
	}

	re, err := compile(raw, regexp2.ECMAScript)
	if err != nil {
		return nil, &PatternError{Source: raw, Err: err}
	}
	return &Pattern{Source: raw, Body: raw, re: re}, nil
}

// MustParsePattern panics when raw does not compile.
func MustParsePattern(raw string) *Pattern {
	p, err := ParsePattern(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func compile(body string, options regexp2.RegexOptions) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(body, options)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = MatchTimeout
	return re, nil
}

// splitDelimited recognises "/body/flags": a leading slash, the last slash
// closing the body, only known flag letters after it and no line breaks in
// the body.
func splitDelimited(raw string) (body, flags string, ok bool) {
	if !strings.HasPrefix(raw, "/") {
		return "", "", false
	}
	end := strings.LastIndexByte(raw, '/')
	if end == 0 {
		return "", "", false
	}
	body, flags = raw[1:end], raw[end+1:]
	if strings.ContainsAny(body, "\n\r") {
		return "", "", false
	}
	if strings.Trim(flags, delimitedFlags) != "" {
		return "", "", false
	}
	return body, flags, true
}

func flagOptions(flags string) (regexp2.RegexOptions, error) {
	options := regexp2.RegexOptions(regexp2.ECMAScript)
	seen := make(map[rune]struct{}, len(flags))
	for _, flag := range flags {
		if _, dup := seen[flag]; dup {
			return 0, fmt.Errorf("duplicate flag %q", flag)
		}
		seen[flag] = struct{}{}
		switch flag {
		case 'i':
			options |= regexp2.IgnoreCase
		case 'm':
			options |= regexp2.Multiline
		case 's':
			options |= regexp2.Singleline
		case 'u':
			options |= regexp2.Unicode
		}
	}
	return options, nil
}
