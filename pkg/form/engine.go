// Package form implements the per-block form engine: it owns the submission
// record, validates it with synthesized rule sets, runs onSubmit logic through
// a sandbox and tracks the resulting message.
package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/goliatone/go-formblocks/pkg/sandbox"
	"github.com/goliatone/go-formblocks/pkg/schema"
	"github.com/goliatone/go-formblocks/pkg/visibility"
	"github.com/goliatone/go-formblocks/pkg/visibility/expr"
)

// ErrUnknownField is returned when a key does not belong to any field.
var ErrUnknownField = errors.New("form: unknown field")

// Submission is the outcome of one Submit call.
type Submission struct {
	State  State
	Values map[string]any
	Errors map[string]string
	Result *Result
	// Outcome is only meaningful when Evaluated is true.
	Outcome   sandbox.Outcome
	Evaluated bool
}

// FieldView is the presentation state of one visible field.
type FieldView struct {
	Spec  schema.FieldSpec
	Key   string
	Value any
	Error string
}

// Engine owns the submission record of one form block. Methods are safe to
// call from multiple goroutines, but edits and submits are expected to come
// from a single event loop.
type Engine struct {
	mu sync.RWMutex

	block   schema.FormBlock
	version int
	derived derivation

	values    map[string]any
	errors    map[string]string
	result    *Result
	state     State
	submitted bool
	seq       uint64

	evaluator      sandbox.Evaluator
	visibility     visibility.Evaluator
	observers      []Observer
	logger         *slog.Logger
	strictPatterns bool
}

// New builds an engine for block. It only fails when strict patterns are
// enabled and a field pattern does not compile.
func New(block schema.FormBlock, opts ...Option) (*Engine, error) {
	e := &Engine{
		block:  block,
		errors: make(map[string]string),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.evaluator == nil {
		e.evaluator = sandbox.New(sandbox.WithLogger(e.logger))
	}
	if e.visibility == nil {
		e.visibility = expr.New()
	}

	d := e.derive()
	if err := e.checkPatterns(d); err != nil {
		return nil, err
	}
	e.values = maps.Clone(d.defaults)
	return e, nil
}

// Block returns the form block with its current field list.
func (e *Engine) Block() schema.FormBlock {
	e.mu.RLock()
	defer e.mu.RUnlock()
	block := e.block
	block.Fields = append([]schema.FieldSpec(nil), e.block.Fields...)
	return block
}

// SetFields replaces the field list. Derived keys, rules and defaults are
// recomputed once; values for keys that survive are kept, new keys start at
// their default and removed keys are dropped.
func (e *Engine) SetFields(fields []schema.FieldSpec) error {
	e.mu.Lock()
	prevBlock, prevVersion := e.block, e.version
	e.block.Fields = append([]schema.FieldSpec(nil), fields...)
	e.version++

	d := e.derive()
	if err := e.checkPatterns(d); err != nil {
		e.block, e.version = prevBlock, prevVersion
		e.mu.Unlock()
		return err
	}

	next := maps.Clone(d.defaults)
	for key := range next {
		if value, ok := e.values[key]; ok {
			next[key] = value
		}
	}
	e.values = next
	maps.DeleteFunc(e.errors, func(key string, _ string) bool {
		_, ok := d.byKey[key]
		return !ok
	})
	transitions := e.setState(Idle)
	e.mu.Unlock()

	e.notify(transitions)
	return nil
}

// Defaults returns the memoized default record.
func (e *Engine) Defaults() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.derive().defaults)
}

// Keys returns the unique field keys in declaration order.
func (e *Engine) Keys() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.derive().order...)
}

// Values returns a copy of the submission record.
func (e *Engine) Values() map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneValues(e.values)
}

// Value returns the current value of key.
func (e *Engine) Value(key string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	value, ok := e.values[key]
	return value, ok
}

// Errors returns a copy of the per-field error messages.
func (e *Engine) Errors() map[string]string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return maps.Clone(e.errors)
}

// Result returns the last submission message, or nil.
func (e *Engine) Result() *Result {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.result == nil {
		return nil
	}
	out := *e.result
	return &out
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// IsSubmitting reports whether onSubmit logic is running.
func (e *Engine) IsSubmitting() bool {
	return e.State() == Submitting
}

// SubmitLabel is the submit button caption for the current state.
func (e *Engine) SubmitLabel() string {
	if e.IsSubmitting() {
		return "Submitting..."
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.block.SubmitText
}

// Fields returns presentation views for the visible fields in declaration
// order.
func (e *Engine) Fields() []FieldView {
	e.mu.Lock()
	defer e.mu.Unlock()

	d := e.derive()
	views := make([]FieldView, 0, len(e.block.Fields))
	for idx, field := range e.block.Fields {
		if !e.visible(field, d.keys[idx]) {
			continue
		}
		key := d.keys[idx]
		views = append(views, FieldView{
			Spec:  field,
			Key:   key,
			Value: e.values[key],
			Error: e.errors[key],
		})
	}
	return views
}

// SetValue stores value under key after coercing it to the field's type and
// moves the form back to Idle. Once the form has been submitted, the edited
// key is revalidated immediately.
func (e *Engine) SetValue(key string, value any) error {
	e.mu.Lock()
	d := e.derive()
	indexes, ok := d.byKey[key]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownField, key)
	}

	// Colliding fields share the record slot; the last declared one owns it.
	owner := e.block.Fields[indexes[len(indexes)-1]]
	e.values[key] = Coerce(owner, value)

	if e.submitted {
		if msg := e.checkKey(d, key); msg != "" {
			e.errors[key] = msg
		} else {
			delete(e.errors, key)
		}
	}
	transitions := e.setState(Idle)
	e.mu.Unlock()

	e.notify(transitions)
	return nil
}

// ValidateField checks value against every field that owns key without
// touching the record. It returns the first *validation.Violation.
func (e *Engine) ValidateField(key string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	d := e.derive()
	indexes, ok := d.byKey[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	owner := e.block.Fields[indexes[len(indexes)-1]]
	coerced := Coerce(owner, value)
	for _, idx := range indexes {
		if err := d.rules[idx].Check(coerced); err != nil {
			return err
		}
	}
	return nil
}

// Reset restores the defaults, clears errors and the result, and returns to
// Idle. An evaluation still running when Reset is called is discarded.
func (e *Engine) Reset() {
	e.mu.Lock()
	d := e.derive()
	e.values = maps.Clone(d.defaults)
	e.errors = make(map[string]string)
	e.result = nil
	e.submitted = false
	e.seq++
	transitions := e.setState(Idle)
	e.mu.Unlock()

	e.notify(transitions)
}

// Submit validates every visible field and, when all pass, runs the block's
// onSubmit logic at most once. Logic runs without holding the engine lock so
// readers can observe IsSubmitting.
func (e *Engine) Submit(ctx context.Context) Submission {
	if ctx == nil {
		ctx = context.Background()
	}

	e.mu.Lock()
	var transitions []transition
	formID := e.block.ID()
	e.submitted = true
	e.seq++
	seq := e.seq
	transitions = append(transitions, e.setState(Validating)...)

	d := e.derive()
	errs := e.validate(d)
	if len(errs) > 0 {
		e.errors = errs
		e.result = nil
		transitions = append(transitions, e.setState(Rejected)...)
		sub := e.snapshot()
		e.mu.Unlock()

		e.logger.Debug("form submit rejected by validation", "form", formID, "errors", len(errs))
		e.notify(transitions)
		return sub
	}

	e.errors = make(map[string]string)
	transitions = append(transitions, e.setState(Submitting)...)
	logic := e.block.OnSubmit
	values := cloneValues(e.values)
	order := d.order
	e.mu.Unlock()
	e.notify(transitions)
	transitions = nil

	var (
		outcome   sandbox.Outcome
		evaluated bool
	)
	if logic != "" {
		outcome = e.evaluator.Evaluate(ctx, logic, cloneValues(values))
		evaluated = true
	}

	e.mu.Lock()
	if e.seq != seq || e.state != Submitting {
		sub := e.snapshot()
		e.mu.Unlock()
		return sub
	}

	switch outcome.Kind {
	case sandbox.Rejected:
		e.result = &Result{Message: outcome.Message, IsError: true}
		transitions = e.setState(Rejected)
	case sandbox.Faulted:
		e.result = &Result{Message: "Submission error: " + outcome.Message, IsError: true}
		transitions = e.setState(Rejected)
	default:
		e.result = &Result{Message: acceptedMessage(order, values)}
		transitions = e.setState(Accepted)
	}
	sub := e.snapshot()
	sub.Outcome, sub.Evaluated = outcome, evaluated
	e.mu.Unlock()

	e.logger.Debug("form submitted", "form", formID, "state", sub.State.String(), "logic", evaluated)
	e.notify(transitions)
	return sub
}

func (e *Engine) validate(d derivation) map[string]string {
	errs := make(map[string]string)
	for idx, field := range e.block.Fields {
		key := d.keys[idx]
		if _, done := errs[key]; done {
			continue
		}
		if !e.visible(field, key) {
			continue
		}
		if err := d.rules[idx].Check(e.values[key]); err != nil {
			errs[key] = err.Error()
		}
	}
	return errs
}

func (e *Engine) checkKey(d derivation, key string) string {
	for _, idx := range d.byKey[key] {
		if !e.visible(e.block.Fields[idx], key) {
			continue
		}
		if err := d.rules[idx].Check(e.values[key]); err != nil {
			return err.Error()
		}
	}
	return ""
}

func (e *Engine) visible(field schema.FieldSpec, key string) bool {
	if field.VisibleWhen == "" {
		return true
	}
	ok, err := e.visibility.Visible(key, field.VisibleWhen, e.values)
	if err != nil {
		e.logger.Warn("visibility rule failed; showing field", "field", key, "rule", field.VisibleWhen, "error", err)
		return true
	}
	return ok
}

func (e *Engine) snapshot() Submission {
	sub := Submission{
		State:  e.state,
		Values: cloneValues(e.values),
		Errors: maps.Clone(e.errors),
	}
	if e.result != nil {
		result := *e.result
		sub.Result = &result
	}
	return sub
}

type transition struct{ from, to State }

func (e *Engine) setState(next State) []transition {
	if e.state == next {
		return nil
	}
	prev := e.state
	e.state = next
	return []transition{{from: prev, to: next}}
}

func (e *Engine) notify(transitions []transition) {
	for _, t := range transitions {
		for _, observer := range e.observers {
			observer(t.from, t.to)
		}
	}
}

func (e *Engine) checkPatterns(d derivation) error {
	if !e.strictPatterns {
		return nil
	}
	var dropped []error
	for _, set := range d.rules {
		dropped = append(dropped, set.Dropped()...)
	}
	if len(dropped) == 0 {
		return nil
	}
	return fmt.Errorf("form: %w", errors.Join(dropped...))
}
