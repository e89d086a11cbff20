// Package widgets picks the input control used to present a form field.
package widgets

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formblocks/pkg/schema"
)

// Built-in widget identifiers exposed by the registry.
const (
	WidgetInput    = "input"
	WidgetPassword = "password"
	WidgetTextarea = "textarea"
	WidgetSelect   = "select"
	WidgetCheckbox = "checkbox"
)

// Matcher decides whether a widget should handle the supplied field.
type Matcher func(field schema.FieldSpec) bool

type rule struct {
	name     string
	priority int
	match    Matcher
	order    int
}

// Registry selects widgets for fields based on registered matchers. Higher
// priority wins; ties fall back to registration order. Fields nothing matches
// use WidgetInput.
type Registry struct {
	mu    sync.RWMutex
	rules []rule
}

// NewRegistry constructs a registry with the built-in widget matchers
// registered.
func NewRegistry() *Registry {
	reg := &Registry{}
	reg.registerBuiltins()
	return reg
}

// Register adds a widget matcher with the provided name and priority. Higher
// priority values take precedence.
func (r *Registry) Register(name string, priority int, matcher Matcher) {
	if r == nil || matcher == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, rule{
		name:     trimmed,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Resolve returns the widget name for a field.
func (r *Registry) Resolve(field schema.FieldSpec) string {
	if r == nil {
		return WidgetInput
	}
	r.mu.RLock()
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(field) {
			return entry.name
		}
	}
	return WidgetInput
}

func (r *Registry) registerBuiltins() {
	for _, builtin := range []struct {
		name      string
		priority  int
		fieldType schema.FieldType
	}{
		{WidgetCheckbox, 90, schema.FieldTypeCheckbox},
		{WidgetSelect, 80, schema.FieldTypeSelect},
		{WidgetTextarea, 70, schema.FieldTypeTextarea},
		{WidgetPassword, 60, schema.FieldTypePassword},
	} {
		fieldType := builtin.fieldType
		r.Register(builtin.name, builtin.priority, func(field schema.FieldSpec) bool {
			return field.Type == fieldType
		})
	}
}
