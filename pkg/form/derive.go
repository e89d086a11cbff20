package form

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formblocks/pkg/schema"
	"github.com/goliatone/go-formblocks/pkg/validation"
)

// derivation is everything computed from the field list alone. It is rebuilt
// only when the field list version changes.
type derivation struct {
	version  int
	ready    bool
	keys     []string
	order    []string
	byKey    map[string][]int
	rules    []validation.RuleSet
	defaults map[string]any
}

// derive returns the memoized derivation for the current field list. Callers
// must hold the write lock.
func (e *Engine) derive() derivation {
	if e.derived.ready && e.derived.version == e.version {
		return e.derived
	}

	fields := e.block.Fields
	d := derivation{
		version:  e.version,
		ready:    true,
		keys:     make([]string, len(fields)),
		byKey:    make(map[string][]int, len(fields)),
		rules:    make([]validation.RuleSet, len(fields)),
		defaults: make(map[string]any, len(fields)),
	}
	for idx, field := range fields {
		key := field.Key()
		d.keys[idx] = key
		if _, seen := d.byKey[key]; !seen {
			d.order = append(d.order, key)
		}
		d.byKey[key] = append(d.byKey[key], idx)
		d.rules[idx] = validation.Synthesize(field)
		// Later fields overwrite earlier ones that share a key.
		d.defaults[key] = field.Default()
	}
	e.derived = d
	return d
}

// Coerce converts a raw input value to the representation stored for field:
// booleans for checkboxes, float64 for numeric input on number fields and
// strings for everything else. Number fields keep non-numeric text so
// validation can report it.
func Coerce(field schema.FieldSpec, value any) any {
	switch field.Type {
	case schema.FieldTypeCheckbox:
		return coerceBool(value)
	case schema.FieldTypeNumber:
		return coerceNumber(value)
	default:
		return coerceString(value)
	}
}

func coerceBool(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		trimmed := strings.TrimSpace(v)
		if parsed, err := strconv.ParseBool(trimmed); err == nil {
			return parsed
		}
		return trimmed != "" && !strings.EqualFold(trimmed, "off")
	case float64:
		return v != 0
	case int:
		return v != 0
	default:
		return true
	}
}

// coerceNumber keeps anything that is not a finite decimal as text, so
// NaN and infinities never reach the record as numbers.
func coerceNumber(value any) any {
	switch v := value.(type) {
	case nil:
		return ""
	case float64:
		return finiteOrText(v)
	case float32:
		return finiteOrText(float64(v))
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		if f, ok := schema.ParseNumber(v.String()); ok {
			return f
		}
		return v.String()
	case string:
		if strings.TrimSpace(v) == "" {
			return ""
		}
		if f, ok := schema.ParseNumber(v); ok {
			return f
		}
		return v
	default:
		return fmt.Sprint(v)
	}
}

func finiteOrText(f float64) any {
	if schema.IsFinite(f) {
		return f
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func coerceString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func cloneValues(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return cloneValues(typed)
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	default:
		return typed
	}
}

// acceptedMessage renders the success message: "Submitted!" followed by the
// record as two-space indented JSON with keys in declaration order.
func acceptedMessage(order []string, values map[string]any) string {
	return "Submitted!\n" + orderedJSON(order, values)
}

func orderedJSON(order []string, values map[string]any) string {
	if len(order) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, key := range order {
		buf.WriteString("  ")
		buf.WriteString(indentedValue(key))
		buf.WriteString(": ")
		buf.WriteString(indentedValue(values[key]))
		if i < len(order)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteByte('}')
	return buf.String()
}

func indentedValue(value any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("  ", "  ")
	if err := enc.Encode(value); err != nil {
		return "null"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
