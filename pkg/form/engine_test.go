package form

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formblocks/pkg/sandbox"
	"github.com/goliatone/go-formblocks/pkg/schema"
)

const ageSchema = `{"type":"form","fields":[{"label":"Age","type":"number","min":18,"required":true}],"onSubmit":"if (values.age < 21) return 'Too young';"}`

func mustForm(t *testing.T, raw string) schema.FormBlock {
	t.Helper()
	doc, err := schema.ParseString(raw)
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	block, ok := doc.Blocks[0].(schema.FormBlock)
	if !ok {
		t.Fatalf("expected form block, got %T", doc.Blocks[0])
	}
	return block
}

func mustEngine(t *testing.T, raw string, opts ...Option) *Engine {
	t.Helper()
	engine, err := New(mustForm(t, raw), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return engine
}

// countingEvaluator wraps the real sandbox and records invocations.
type countingEvaluator struct {
	mu    sync.Mutex
	calls int
	inner sandbox.Evaluator
}

func (c *countingEvaluator) Evaluate(ctx context.Context, source string, values map[string]any) sandbox.Outcome {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.inner.Evaluate(ctx, source, values)
}

func TestEngine_AgeScenario(t *testing.T) {
	t.Parallel()

	counter := &countingEvaluator{inner: sandbox.New()}
	engine := mustEngine(t, ageSchema, WithEvaluator(counter))

	if err := engine.SetValue("age", "17"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	sub := engine.Submit(context.Background())
	if sub.State != Rejected || sub.Evaluated || counter.calls != 0 {
		t.Fatalf("expected validation rejection without logic, got %+v (calls=%d)", sub, counter.calls)
	}
	if diff := cmp.Diff(map[string]string{"age": "Age must be at least 18"}, sub.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if sub.Result != nil {
		t.Fatalf("validation failure must clear the result, got %+v", sub.Result)
	}

	_ = engine.SetValue("age", 20)
	sub = engine.Submit(context.Background())
	if counter.calls != 1 {
		t.Fatalf("expected one logic call, got %d", counter.calls)
	}
	want := &Result{Message: "Too young", IsError: true}
	if sub.State != Rejected || !sub.Evaluated || len(sub.Errors) != 0 {
		t.Fatalf("unexpected submission %+v", sub)
	}
	if diff := cmp.Diff(want, sub.Result); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}

	_ = engine.SetValue("age", 25.0)
	sub = engine.Submit(context.Background())
	if sub.State != Accepted {
		t.Fatalf("expected Accepted, got %s", sub.State)
	}
	wantMessage := "Submitted!\n{\n  \"age\": 25\n}"
	if sub.Result == nil || sub.Result.Message != wantMessage || sub.Result.IsError {
		t.Fatalf("unexpected result %+v", sub.Result)
	}
	if counter.calls != 2 {
		t.Fatalf("expected two logic calls, got %d", counter.calls)
	}
}

func TestEngine_FaultedLogic(t *testing.T) {
	t.Parallel()

	engine := mustEngine(t, `{"type":"form","fields":[{"name":"x"}],"onSubmit":"throw new Error('boom')"}`)
	sub := engine.Submit(context.Background())
	want := &Result{Message: "Submission error: boom", IsError: true}
	if diff := cmp.Diff(want, sub.Result); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
	if sub.State != Rejected || sub.Outcome.Kind != sandbox.Faulted {
		t.Fatalf("unexpected submission %+v", sub)
	}
}

func TestEngine_AcceptedMessageKeepsDeclarationOrder(t *testing.T) {
	t.Parallel()

	engine := mustEngine(t, `{"type":"form","fields":[
		{"name":"zeta"},
		{"label":"Alpha <One>","type":"checkbox"},
		{"name":"tags","defaultValue":["a","b"]}
	]}`)
	_ = engine.SetValue("zeta", "z")

	sub := engine.Submit(context.Background())
	want := "Submitted!\n{\n  \"zeta\": \"z\",\n  \"alpha_one\": false,\n  \"tags\": [\n    \"a\",\n    \"b\"\n  ]\n}"
	if sub.Result == nil {
		t.Fatalf("expected result")
	}
	if diff := cmp.Diff(want, sub.Result.Message); diff != "" {
		t.Fatalf("message mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_ResetRestoresDefaults(t *testing.T) {
	t.Parallel()

	engine := mustEngine(t, `{"type":"form","fields":[
		{"label":"Email","type":"email","required":true},
		{"name":"agree","type":"checkbox"},
		{"name":"plan","type":"select","defaultValue":"pro","options":["free","pro"]}
	]}`)
	defaults := engine.Defaults()
	wantDefaults := map[string]any{"email": "", "agree": false, "plan": "pro"}
	if diff := cmp.Diff(wantDefaults, defaults); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}

	_ = engine.SetValue("email", "bad")
	_ = engine.SetValue("agree", "on")
	_ = engine.SetValue("plan", "free")
	engine.Submit(context.Background())
	if len(engine.Errors()) == 0 {
		t.Fatalf("expected errors before reset")
	}

	engine.Reset()
	engine.Reset()

	if diff := cmp.Diff(defaults, engine.Values()); diff != "" {
		t.Fatalf("values after reset mismatch (-want +got):\n%s", diff)
	}
	if len(engine.Errors()) != 0 || engine.Result() != nil || engine.State() != Idle {
		t.Fatalf("reset should clear errors, result and state")
	}
}

func TestEngine_SetValue(t *testing.T) {
	t.Parallel()

	engine := mustEngine(t, `{"type":"form","fields":[
		{"name":"n","type":"number"},
		{"name":"c","type":"checkbox"},
		{"name":"s"}
	]}`)

	steps := []struct {
		key   string
		value any
		want  any
	}{
		{"n", "42", 42.0},
		{"n", " ", ""},
		{"n", "abc", "abc"},
		{"c", "true", true},
		{"c", "", false},
		{"s", 3.5, "3.5"},
		{"s", nil, ""},
	}
	for _, step := range steps {
		if err := engine.SetValue(step.key, step.value); err != nil {
			t.Fatalf("SetValue(%q): %v", step.key, err)
		}
		got, _ := engine.Value(step.key)
		if got != step.want {
			t.Fatalf("SetValue(%q, %v) stored %#v, want %#v", step.key, step.value, got, step.want)
		}
	}

	if err := engine.SetValue("missing", 1); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestEngine_RevalidatesAfterFirstSubmit(t *testing.T) {
	t.Parallel()

	engine := mustEngine(t, `{"type":"form","fields":[{"label":"Name","required":true}]}`)

	_ = engine.SetValue("name", "")
	if len(engine.Errors()) != 0 {
		t.Fatalf("edits before the first submit must not validate")
	}

	engine.Submit(context.Background())
	if engine.Errors()["name"] != "Name is required" {
		t.Fatalf("expected required error, got %v", engine.Errors())
	}

	_ = engine.SetValue("name", "Ada")
	if len(engine.Errors()) != 0 {
		t.Fatalf("edit after submit should clear the fixed error, got %v", engine.Errors())
	}
	if engine.State() != Idle {
		t.Fatalf("edit should return to Idle, got %s", engine.State())
	}
}

func TestEngine_KeyCollisionLastWriteWins(t *testing.T) {
	t.Parallel()

	engine := mustEngine(t, `{"type":"form","fields":[
		{"label":"Code","type":"number","defaultValue":1,"max":5},
		{"name":"code","type":"text","minLength":3}
	]}`)

	if got := engine.Keys(); len(got) != 1 || got[0] != "code" {
		t.Fatalf("expected a single shared key, got %v", got)
	}
	if got, _ := engine.Value("code"); got != "" {
		t.Fatalf("last field's default should win, got %#v", got)
	}

	// The text field owns coercion; both fields validate the shared value.
	_ = engine.SetValue("code", "12")
	sub := engine.Submit(context.Background())
	if sub.Errors["code"] != "Code must be at most 5" {
		t.Fatalf("expected first colliding field's message, got %v", sub.Errors)
	}

	_ = engine.SetValue("code", "4")
	sub = engine.Submit(context.Background())
	if sub.Errors["code"] != "code must be at least 3 characters" {
		t.Fatalf("expected second colliding field's message, got %v", sub.Errors)
	}
}

func TestEngine_HiddenFieldsSkipValidation(t *testing.T) {
	t.Parallel()

	engine := mustEngine(t, `{"type":"form","fields":[
		{"name":"subscribe","type":"checkbox"},
		{"label":"Email","type":"email","required":true,"visibleWhen":"subscribe == true"}
	]}`)

	if views := engine.Fields(); len(views) != 1 || views[0].Key != "subscribe" {
		t.Fatalf("expected only the checkbox to be visible, got %+v", views)
	}
	if sub := engine.Submit(context.Background()); sub.State != Accepted {
		t.Fatalf("hidden required field should not block submit, got %+v", sub)
	}

	_ = engine.SetValue("subscribe", true)
	if views := engine.Fields(); len(views) != 2 {
		t.Fatalf("expected email to be visible, got %+v", views)
	}
	sub := engine.Submit(context.Background())
	if sub.Errors["email"] != "Email is required" {
		t.Fatalf("expected required error once visible, got %+v", sub)
	}
}

func TestEngine_ObserverSeesTransitions(t *testing.T) {
	t.Parallel()

	type step struct{ From, To State }
	var seen []step
	engine := mustEngine(t, ageSchema, WithObserver(func(from, to State) {
		seen = append(seen, step{from, to})
	}))

	_ = engine.SetValue("age", 30)
	engine.Submit(context.Background())
	engine.Reset()

	want := []step{
		{Idle, Validating},
		{Validating, Submitting},
		{Submitting, Accepted},
		{Accepted, Idle},
	}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Fatalf("transitions mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_IsSubmittingDuringLogic(t *testing.T) {
	t.Parallel()

	var engine *Engine
	var during bool
	evaluator := sandbox.EvaluatorFunc(func(context.Context, string, map[string]any) sandbox.Outcome {
		during = engine.IsSubmitting()
		return sandbox.NoOpinionOutcome()
	})
	engine = mustEngine(t, `{"type":"form","fields":[],"onSubmit":"return;"}`, WithEvaluator(evaluator))

	sub := engine.Submit(context.Background())
	if !during {
		t.Fatalf("expected IsSubmitting while logic runs")
	}
	if sub.State != Accepted || engine.IsSubmitting() {
		t.Fatalf("unexpected final state %s", sub.State)
	}
	if sub.Result.Message != "Submitted!\n{}" {
		t.Fatalf("unexpected message %q", sub.Result.Message)
	}
}

func TestEngine_StrictPatterns(t *testing.T) {
	t.Parallel()

	block := mustForm(t, `{"type":"form","fields":[{"name":"zip","pattern":"([0-9]"}]}`)
	if _, err := New(block); err != nil {
		t.Fatalf("lenient engine should accept malformed patterns: %v", err)
	}
	if _, err := New(block, WithStrictPatterns(true)); err == nil {
		t.Fatalf("strict engine should reject malformed patterns")
	}
}

func TestEngine_NonFiniteNumbersAreNotNumbers(t *testing.T) {
	t.Parallel()

	for _, raw := range []any{"Infinity", "-Inf", "NaN", "0x20", "1e400", math.Inf(1), math.NaN()} {
		counter := &countingEvaluator{inner: sandbox.New()}
		engine := mustEngine(t, ageSchema, WithEvaluator(counter))

		_ = engine.SetValue("age", raw)
		sub := engine.Submit(context.Background())
		if sub.State != Rejected || sub.Evaluated || counter.calls != 0 {
			t.Fatalf("%v: expected validation rejection, got %+v", raw, sub)
		}
		if diff := cmp.Diff(map[string]string{"age": "Age must be a number"}, sub.Errors); diff != "" {
			t.Fatalf("%v: errors mismatch (-want +got):\n%s", raw, diff)
		}
	}

	engine := mustEngine(t, `{"type":"form","fields":[{"label":"Age","type":"number"}]}`)
	_ = engine.SetValue("age", "NaN")
	sub := engine.Submit(context.Background())
	if sub.State != Accepted {
		t.Fatalf("expected acceptance without rules, got %+v", sub)
	}
	if got, _ := engine.Value("age"); got != "NaN" {
		t.Fatalf("expected NaN kept as text, got %#v", got)
	}
}

func TestEngine_LookaheadPatternRejects(t *testing.T) {
	t.Parallel()

	engine := mustEngine(t, `{"type":"form","fields":[{"label":"Password","type":"password","pattern":"^(?=.*\\d).{8,}$"}]}`,
		WithStrictPatterns(true))

	_ = engine.SetValue("password", "abcdefgh")
	sub := engine.Submit(context.Background())
	if sub.State != Rejected {
		t.Fatalf("expected rejection, got %s", sub.State)
	}
	if diff := cmp.Diff(map[string]string{"password": "Password is invalid"}, sub.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	_ = engine.SetValue("password", "abcdefg1")
	if sub := engine.Submit(context.Background()); sub.State != Accepted {
		t.Fatalf("expected acceptance, got %s %v", sub.State, sub.Errors)
	}
}

func TestEngine_SetFieldsRederives(t *testing.T) {
	t.Parallel()

	engine := mustEngine(t, `{"type":"form","fields":[{"name":"a"},{"name":"b"}]}`)
	_ = engine.SetValue("a", "kept")
	firstVersion := engine.derived.version

	fields := []schema.FieldSpec{
		{Index: 0, Name: "a"},
		{Index: 1, Name: "c", Type: schema.FieldTypeCheckbox},
	}
	if err := engine.SetFields(fields); err != nil {
		t.Fatalf("SetFields: %v", err)
	}

	want := map[string]any{"a": "kept", "c": false}
	if diff := cmp.Diff(want, engine.Values()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if engine.Keys(); engine.derived.version == firstVersion {
		t.Fatalf("expected derivation to be rebuilt")
	}
}
