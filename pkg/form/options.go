package form

import (
	"log/slog"

	"github.com/goliatone/go-formblocks/pkg/sandbox"
	"github.com/goliatone/go-formblocks/pkg/visibility"
)

// Option configures an Engine.
type Option func(*Engine)

// WithEvaluator sets the evaluator used for onSubmit logic. Defaults to a
// goja-backed sandbox with default limits.
func WithEvaluator(evaluator sandbox.Evaluator) Option {
	return func(e *Engine) {
		if evaluator != nil {
			e.evaluator = evaluator
		}
	}
}

// WithObserver registers a state change hook.
func WithObserver(observer Observer) Option {
	return func(e *Engine) {
		if observer != nil {
			e.observers = append(e.observers, observer)
		}
	}
}

// WithVisibility sets the evaluator for visibleWhen rules. Defaults to the
// expression evaluator in visibility/expr.
func WithVisibility(evaluator visibility.Evaluator) Option {
	return func(e *Engine) {
		if evaluator != nil {
			e.visibility = evaluator
		}
	}
}

// WithLogger sets the logger used for submit and visibility records.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithStrictPatterns makes New and SetFields fail on malformed field
// patterns instead of dropping them.
func WithStrictPatterns(strict bool) Option {
	return func(e *Engine) {
		e.strictPatterns = strict
	}
}
