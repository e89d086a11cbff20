package schema

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseNumber reads text the way a number input does: optional sign,
// decimal digits and exponent, surrounding spaces ignored. NaN, infinities,
// hex floats and out-of-range values are not numbers.
func ParseNumber(text string) (float64, bool) {
	trimmed := strings.TrimSpace(text)
	digits := strings.TrimLeft(trimmed, "+-")
	if len(digits) > 1 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		return 0, false
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || !IsFinite(f) {
		return 0, false
	}
	return f, true
}

// IsFinite reports whether f is neither NaN nor infinite.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// stringValue renders scalars as text. Objects, arrays and null report false.
func stringValue(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	default:
		return "", false
	}
}

func numberValue(value any) (float64, bool) {
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		return ParseNumber(v)
	default:
		return 0, false
	}
}

func floatPointer(value any) *float64 {
	if value == nil {
		return nil
	}
	f, ok := numberValue(value)
	if !ok || !IsFinite(f) {
		return nil
	}
	return &f
}

// intPointer truncates like a length attribute does. Bounds beyond the int
// range clamp to it.
func intPointer(value any) *int {
	f := floatPointer(value)
	if f == nil {
		return nil
	}
	var n int
	switch {
	case *f >= math.MaxInt:
		n = math.MaxInt
	case *f <= math.MinInt:
		n = math.MinInt
	default:
		n = int(*f)
	}
	return &n
}

// truthy follows JSON-as-JavaScript truthiness: false, 0, "" and null are
// falsy; every object and array is truthy.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	default:
		if f, ok := numberValue(v); ok {
			return f != 0 && !math.IsNaN(f)
		}
		return true
	}
}

func identifier(value any) string {
	if !truthy(value) {
		return ""
	}
	id, _ := stringValue(value)
	return id
}

// plainValue converts json.Number leaves to float64 so defaults land in the
// submission record as ordinary Go values.
func plainValue(value any) any {
	switch v := value.(type) {
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = plainValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = plainValue(item)
		}
		return out
	default:
		return v
	}
}
