package sandbox

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestEvaluate_Outcomes(t *testing.T) {
	t.Parallel()

	eval := New()
	ageCheck := "return values.age < 21 ? 'Too young' : undefined;"

	cases := []struct {
		name   string
		source string
		values map[string]any
		want   Outcome
	}{
		{name: "rejects", source: ageCheck, values: map[string]any{"age": 18}, want: RejectedOutcome("Too young")},
		{name: "no opinion", source: ageCheck, values: map[string]any{"age": 25}, want: NoOpinionOutcome()},
		{name: "thrown error", source: "throw new Error('boom')", want: FaultedOutcome("boom")},
		{name: "thrown string", source: "throw 'nope'", want: FaultedOutcome("nope")},
		{name: "number return", source: "return 42;", want: NoOpinionOutcome()},
		{name: "empty body", source: "", want: NoOpinionOutcome()},
		{name: "empty string", source: "return '';", want: RejectedOutcome("")},
		{name: "nested values", source: "return values.profile.tags.join(',');", values: map[string]any{
			"profile": map[string]any{"tags": []any{"a", "b"}},
		}, want: RejectedOutcome("a,b")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := eval.Evaluate(context.Background(), tc.source, tc.values)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("outcome mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEvaluate_Faults(t *testing.T) {
	t.Parallel()

	eval := New(WithTimeout(50*time.Millisecond), WithMaxCallStack(64))

	cases := []struct {
		name     string
		source   string
		contains string
	}{
		{name: "syntax", source: "return (", contains: "syntax error"},
		{name: "reference", source: "return missing.value;", contains: "missing"},
		{name: "timeout", source: "while (true) {}", contains: "timed out"},
		{name: "recursion", source: "function f() { return f(); } return f();"},
		{name: "eval removed", source: "return eval('1');", contains: "eval"},
		{name: "strict mode", source: "undeclared = 1;", contains: "undeclared"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := eval.Evaluate(context.Background(), tc.source, map[string]any{})
			if got.Kind != Faulted {
				t.Fatalf("expected Faulted, got %s", got)
			}
			if got.Message == "" || !strings.Contains(got.Message, tc.contains) {
				t.Fatalf("message %q does not contain %q", got.Message, tc.contains)
			}
		})
	}
}

func TestEvaluate_Cancellation(t *testing.T) {
	t.Parallel()

	eval := New(WithTimeout(5 * time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := eval.Evaluate(ctx, "return 'x';", nil); got.Kind != Faulted || !strings.Contains(got.Message, "cancelled") {
		t.Fatalf("expected cancelled fault, got %s", got)
	}

	ctx, cancel = context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	start := time.Now()
	got := eval.Evaluate(ctx, "while (true) {}", nil)
	if got.Kind != Faulted {
		t.Fatalf("expected Faulted, got %s", got)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("cancellation took %s", elapsed)
	}
}

func TestEvaluate_DoesNotMutateValues(t *testing.T) {
	t.Parallel()

	values := map[string]any{"name": "ada", "tags": []any{"x"}}
	got := New().Evaluate(context.Background(), "values.name = 'bob'; values.tags.push('y');", values)
	if got.Kind != NoOpinion {
		t.Fatalf("expected NoOpinion, got %s", got)
	}
	want := map[string]any{"name": "ada", "tags": []any{"x"}}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Fatalf("values mutated (-want +got):\n%s", diff)
	}
}

func TestEvaluate_UnserializableValues(t *testing.T) {
	t.Parallel()

	got := New().Evaluate(context.Background(), "return 'x';", map[string]any{"ch": make(chan int)})
	if got.Kind != Faulted {
		t.Fatalf("expected Faulted, got %s", got)
	}
}
