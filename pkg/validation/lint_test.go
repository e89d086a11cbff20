package validation

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLint_ValidDocument(t *testing.T) {
	t.Parallel()

	raw := `[
		{"type":"text","text":"hello","format":"markdown"},
		{"type":"image","src":"/logo.png","alt":"Logo"},
		{"type":"form","fields":[
			{"label":"Email","type":"email","required":true},
			{"name":"age","type":"number","min":18,"visibleWhen":"email != ''"}
		]}
	]`

	result := Lint([]byte(raw), LintOptions{})
	if !result.Valid || len(result.Issues) != 0 {
		t.Fatalf("expected clean result, got %+v", result)
	}
}

func TestLint_ParseFailureIsError(t *testing.T) {
	t.Parallel()

	result := Lint([]byte("not json"), LintOptions{})
	if result.Valid {
		t.Fatalf("expected invalid result")
	}
	if len(result.Errors()) != 1 || result.Errors()[0].Message == "" {
		t.Fatalf("expected one error issue with a message, got %+v", result.Issues)
	}
}

func TestLint_Warnings(t *testing.T) {
	t.Parallel()

	raw := `[
		{"type":"video"},
		{"type":"image"},
		{"type":"form","fields":[
			{"label":"Name","type":"text"},
			{"name":"name","type":"date","minLength":"three"}
		]}
	]`

	result := Lint([]byte(raw), LintOptions{})
	if !result.Valid {
		t.Fatalf("warnings must not invalidate the document: %+v", result.Errors())
	}

	paths := make(map[string]bool)
	for _, issue := range result.Issues {
		if issue.Severity != SeverityWarning {
			t.Fatalf("unexpected severity for %+v", issue)
		}
		paths[issue.Path] = true
	}
	for _, want := range []string{"/0/type", "/1/src", "/2/fields", "/2/fields/1/type", "/2/fields/1/minLength"} {
		if !paths[want] {
			t.Fatalf("missing issue at %s; got %+v", want, result.Issues)
		}
	}

	var collision SchemaIssue
	for _, issue := range result.Issues {
		if issue.Path == "/2/fields" {
			collision = issue
		}
	}
	want := SchemaIssue{
		Path:     "/2/fields",
		Field:    "name",
		Message:  `fields 0, 1 share key "name"; the last value wins`,
		Severity: SeverityWarning,
	}
	if diff := cmp.Diff(want, collision); diff != "" {
		t.Fatalf("collision issue mismatch (-want +got):\n%s", diff)
	}
}

func TestLint_StrictPatterns(t *testing.T) {
	t.Parallel()

	raw := `{"type":"form","fields":[{"name":"zip","pattern":"([0-9]"}]}`

	lenient := Lint([]byte(raw), LintOptions{})
	if !lenient.Valid || len(lenient.Issues) != 1 || lenient.Issues[0].Path != "/fields/0/pattern" {
		t.Fatalf("expected one pattern warning, got %+v", lenient)
	}

	strict := Lint([]byte(raw), LintOptions{StrictPatterns: true})
	if strict.Valid {
		t.Fatalf("strict patterns should invalidate the document")
	}
	if !strings.Contains(strict.Issues[0].Message, `invalid pattern "([0-9]"`) {
		t.Fatalf("unexpected message %q", strict.Issues[0].Message)
	}
}

func TestLint_VisibleWhenSyntax(t *testing.T) {
	t.Parallel()

	raw := `{"type":"form","fields":[{"name":"a","visibleWhen":"plan = 'pro'"}]}`
	result := Lint([]byte(raw), LintOptions{})
	if result.Valid {
		t.Fatalf("expected visibleWhen syntax error")
	}
	if got := result.Errors()[0]; got.Path != "/fields/0/visibleWhen" || got.Field != "a" {
		t.Fatalf("unexpected issue %+v", got)
	}
}
