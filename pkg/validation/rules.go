package validation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/goliatone/go-formblocks/pkg/schema"
)

// RuleKind names a synthesized constraint.
type RuleKind string

const (
	RuleRequired  RuleKind = "required"
	RuleMin       RuleKind = "min"
	RuleMax       RuleKind = "max"
	RuleMinLength RuleKind = "minLength"
	RuleMaxLength RuleKind = "maxLength"
	RulePattern   RuleKind = "pattern"
)

// Rule is one constraint with the message shown when it fails. Bound is set
// for min/max, Length for minLength/maxLength and Pattern for pattern rules.
type Rule struct {
	Kind    RuleKind
	Message string
	Bound   float64
	Length  int
	Pattern *Pattern
}

// Violation is the first failing rule for a field value.
type Violation struct {
	Field   string
	Rule    RuleKind
	Message string
}

func (v *Violation) Error() string {
	return v.Message
}

// RuleSet holds the ordered rules derived for one field.
type RuleSet struct {
	field   string
	name    string
	rules   []Rule
	dropped []error
}

// Field returns the key of the field the rules were derived for.
func (s RuleSet) Field() string { return s.field }

// Len returns the number of active rules.
func (s RuleSet) Len() int { return len(s.rules) }

// Rules returns a copy of the active rules in evaluation order.
func (s RuleSet) Rules() []Rule {
	return append([]Rule(nil), s.rules...)
}

// Get returns the rule of the given kind.
func (s RuleSet) Get(kind RuleKind) (Rule, bool) {
	for _, rule := range s.rules {
		if rule.Kind == kind {
			return rule, true
		}
	}
	return Rule{}, false
}

// Has reports whether a rule of the given kind is active.
func (s RuleSet) Has(kind RuleKind) bool {
	_, ok := s.Get(kind)
	return ok
}

// Dropped lists pattern errors swallowed during synthesis.
func (s RuleSet) Dropped() []error {
	return append([]error(nil), s.dropped...)
}

// Synthesize derives the rule set for field. It never fails: a pattern that
// does not compile is left out and reported through Dropped.
func Synthesize(field schema.FieldSpec) RuleSet {
	name := field.DisplayName()
	set := RuleSet{field: field.Key(), name: name}

	if field.Required {
		set.rules = append(set.rules, Rule{Kind: RuleRequired, Message: name + " is required"})
	}
	if field.Min != nil {
		set.rules = append(set.rules, Rule{
			Kind:    RuleMin,
			Bound:   *field.Min,
			Message: fmt.Sprintf("%s must be at least %s", name, formatNumber(*field.Min)),
		})
	}
	if field.Max != nil {
		set.rules = append(set.rules, Rule{
			Kind:    RuleMax,
			Bound:   *field.Max,
			Message: fmt.Sprintf("%s must be at most %s", name, formatNumber(*field.Max)),
		})
	}
	if field.MinLength != nil {
		set.rules = append(set.rules, Rule{
			Kind:    RuleMinLength,
			Length:  *field.MinLength,
			Message: fmt.Sprintf("%s must be at least %d characters", name, *field.MinLength),
		})
	}
	if field.MaxLength != nil {
		set.rules = append(set.rules, Rule{
			Kind:    RuleMaxLength,
			Length:  *field.MaxLength,
			Message: fmt.Sprintf("%s must be at most %d characters", name, *field.MaxLength),
		})
	}

	var pattern *Rule
	if field.Type == schema.FieldTypeEmail {
		pattern = &Rule{
			Kind:    RulePattern,
			Pattern: MustParsePattern(EmailPattern),
			Message: name + " must be a valid email address",
		}
	}
	if field.Pattern != "" {
		compiled, err := ParsePattern(field.Pattern)
		if err != nil {
			set.dropped = append(set.dropped, err)
		} else {
			pattern = &Rule{Kind: RulePattern, Pattern: compiled, Message: name + " is invalid"}
		}
	}
	if pattern != nil {
		set.rules = append(set.rules, *pattern)
	}

	return set
}

// Check evaluates value against the rules in order and returns the first
// *Violation, or nil when the value is acceptable. Only the required rule
// looks at empty values; the others skip nil and "".
func (s RuleSet) Check(value any) error {
	for _, rule := range s.rules {
		if rule.Kind != RuleRequired && isBlank(value) {
			return nil
		}
		if ok := rule.accepts(value); !ok {
			return &Violation{Field: s.field, Rule: rule.Kind, Message: s.messageFor(rule, value)}
		}
	}
	return nil
}

func (s RuleSet) messageFor(rule Rule, value any) string {
	if rule.Kind == RuleMin || rule.Kind == RuleMax {
		if _, ok := numeric(value); !ok {
			return s.name + " must be a number"
		}
	}
	return rule.Message
}

func (r Rule) accepts(value any) bool {
	switch r.Kind {
	case RuleRequired:
		return !isEmpty(value)
	case RuleMin:
		n, ok := numeric(value)
		return ok && n >= r.Bound
	case RuleMax:
		n, ok := numeric(value)
		return ok && n <= r.Bound
	case RuleMinLength:
		text, ok := textOf(value)
		return !ok || utf8.RuneCountInString(text) >= r.Length
	case RuleMaxLength:
		text, ok := textOf(value)
		return !ok || utf8.RuneCountInString(text) <= r.Length
	case RulePattern:
		text, ok := textOf(value)
		return !ok || r.Pattern.MatchString(text)
	default:
		return true
	}
}

func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	default:
		return false
	}
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	default:
		return false
	}
}

func numeric(value any) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case int32:
		f = float64(v)
	case json.Number:
		return schema.ParseNumber(v.String())
	case string:
		return schema.ParseNumber(v)
	default:
		return 0, false
	}
	return f, schema.IsFinite(f)
}

func textOf(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case float64:
		return formatNumber(v), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	default:
		return "", false
	}
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
