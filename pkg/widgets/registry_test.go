package widgets

import (
	"testing"

	"github.com/goliatone/go-formblocks/pkg/schema"
)

func TestResolve_Builtins(t *testing.T) {
	reg := NewRegistry()

	cases := map[schema.FieldType]string{
		schema.FieldTypeText:     WidgetInput,
		schema.FieldTypeEmail:    WidgetInput,
		schema.FieldTypeNumber:   WidgetInput,
		schema.FieldTypePassword: WidgetPassword,
		schema.FieldTypeTextarea: WidgetTextarea,
		schema.FieldTypeSelect:   WidgetSelect,
		schema.FieldTypeCheckbox: WidgetCheckbox,
	}
	for fieldType, want := range cases {
		if got := reg.Resolve(schema.FieldSpec{Type: fieldType}); got != want {
			t.Fatalf("Resolve(%s) = %q, want %q", fieldType, got, want)
		}
	}
}

func TestResolve_PriorityAndOrder(t *testing.T) {
	reg := NewRegistry()
	longText := func(field schema.FieldSpec) bool {
		return field.Type == schema.FieldTypeText && field.MaxLength != nil && *field.MaxLength > 200
	}
	reg.Register(WidgetTextarea, 10, longText)
	reg.Register("never", 10, longText)
	reg.Register("select-override", 85, func(field schema.FieldSpec) bool { return field.Type == schema.FieldTypeSelect })

	limit := 500
	if got := reg.Resolve(schema.FieldSpec{Type: schema.FieldTypeText, MaxLength: &limit}); got != WidgetTextarea {
		t.Fatalf("expected the first equal-priority rule to win, got %q", got)
	}
	if got := reg.Resolve(schema.FieldSpec{Type: schema.FieldTypeSelect}); got != "select-override" {
		t.Fatalf("expected higher priority rule to win, got %q", got)
	}
}

func TestResolve_EmptyRegistry(t *testing.T) {
	var reg *Registry
	if got := reg.Resolve(schema.FieldSpec{Type: schema.FieldTypeSelect}); got != WidgetInput {
		t.Fatalf("nil registry resolved %q", got)
	}
	(&Registry{}).Register("", 1, func(schema.FieldSpec) bool { return true })
}
