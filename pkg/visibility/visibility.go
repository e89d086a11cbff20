// Package visibility decides whether a form field is shown for the current
// submission record. Hidden fields are skipped by validation and omitted
// from field views but keep their values.
package visibility

// Evaluator determines whether a field is visible based on its rule string
// and the current values.
type Evaluator interface {
	Visible(fieldKey, rule string, values map[string]any) (bool, error)
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(fieldKey, rule string, values map[string]any) (bool, error)

// Visible delegates to the underlying function.
func (fn EvaluatorFunc) Visible(fieldKey, rule string, values map[string]any) (bool, error) {
	return fn(fieldKey, rule, values)
}

// Always treats every field as visible.
var Always Evaluator = EvaluatorFunc(func(string, string, map[string]any) (bool, error) {
	return true, nil
})
