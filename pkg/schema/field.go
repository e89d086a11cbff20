package schema

import "github.com/goliatone/go-formblocks/pkg/fieldkey"

// FieldType enumerates the input kinds a form field can take. Unrecognised
// types decode to FieldTypeText.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeEmail    FieldType = "email"
	FieldTypePassword FieldType = "password"
	FieldTypeNumber   FieldType = "number"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeSelect   FieldType = "select"
	FieldTypeCheckbox FieldType = "checkbox"
)

// ParseFieldType maps a raw type tag onto the closed FieldType set. The
// boolean reports whether the tag was recognised.
func ParseFieldType(raw string) (FieldType, bool) {
	switch FieldType(raw) {
	case FieldTypeText, FieldTypeEmail, FieldTypePassword, FieldTypeNumber,
		FieldTypeTextarea, FieldTypeSelect, FieldTypeCheckbox:
		return FieldType(raw), true
	default:
		return FieldTypeText, false
	}
}

// Option is a single choice of a select field.
type Option struct {
	Value string
	Label string
}

// DefaultTextareaRows is used when a textarea field omits rows.
const DefaultTextareaRows = 4

// FieldSpec is the declarative descriptor of one form field. Pointer fields
// are nil when the attribute was absent. DefaultValue is only meaningful when
// HasDefault is true.
type FieldSpec struct {
	Index        int
	Name         string
	Label        string
	Type         FieldType
	RawType      string
	Required     bool
	Min          *float64
	Max          *float64
	MinLength    *int
	MaxLength    *int
	Pattern      string
	Options      []Option
	Placeholder  string
	DefaultValue any
	HasDefault   bool
	Rows         int
	VisibleWhen  string
}

// Key returns the normalized submission-record key for the field.
func (f FieldSpec) Key() string {
	return fieldkey.Derive(f.Name, f.Label, f.Index)
}

// DisplayName returns the label, then the name, then "Field". It is the
// subject of synthesized validation messages.
func (f FieldSpec) DisplayName() string {
	if f.Label != "" {
		return f.Label
	}
	if f.Name != "" {
		return f.Name
	}
	return "Field"
}

// Caption returns the text shown next to the input: label, name, then key.
func (f FieldSpec) Caption() string {
	if f.Label != "" {
		return f.Label
	}
	if f.Name != "" {
		return f.Name
	}
	return f.Key()
}

// Default returns the initial value of the field: the explicit default when
// present, false for checkboxes, and the empty string otherwise.
func (f FieldSpec) Default() any {
	if f.HasDefault {
		return f.DefaultValue
	}
	if f.Type == FieldTypeCheckbox {
		return false
	}
	return ""
}

// InputType returns the HTML input type used for single-line inputs. It keeps
// unrecognised raw tags (for example "date") so browsers can still render
// them, but only when the tag is a plain lowercase token.
func (f FieldSpec) InputType() string {
	if f.RawType != "" && f.RawType != string(f.Type) && isToken(f.RawType) {
		return f.RawType
	}
	return string(f.Type)
}

// TextareaRows returns Rows or DefaultTextareaRows.
func (f FieldSpec) TextareaRows() int {
	if f.Rows > 0 {
		return f.Rows
	}
	return DefaultTextareaRows
}

func isToken(raw string) bool {
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		if (ch < 'a' || ch > 'z') && ch != '-' {
			return false
		}
	}
	return raw != ""
}
