// Package sandbox runs schema-supplied onSubmit logic against a copy of the
// submitted values.
//
// Each call gets a fresh JavaScript runtime with no host bindings. The logic
// is the body of a function taking a single `values` argument; returning a
// string rejects the submission with that message and anything else lets it
// through. Every failure mode (syntax errors, thrown values, timeouts,
// cancellation, runtime panics) is reported as a Faulted outcome rather than
// an error, so callers never have to guard the call.
package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dop251/goja"
)

const (
	// DefaultTimeout bounds a single evaluation.
	DefaultTimeout = 250 * time.Millisecond
	// DefaultMaxCallStack caps JavaScript call depth.
	DefaultMaxCallStack = 256
)

// Evaluator runs logic source against a values record.
type Evaluator interface {
	Evaluate(ctx context.Context, source string, values map[string]any) Outcome
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(ctx context.Context, source string, values map[string]any) Outcome

// Evaluate delegates to the underlying function.
func (fn EvaluatorFunc) Evaluate(ctx context.Context, source string, values map[string]any) Outcome {
	return fn(ctx, source, values)
}

// Option configures the goja-backed evaluator.
type Option func(*JSEvaluator)

// WithTimeout sets the hard time bound. Non-positive values keep the default.
func WithTimeout(timeout time.Duration) Option {
	return func(e *JSEvaluator) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

// WithMaxCallStack caps the call stack depth. Non-positive values keep the
// default.
func WithMaxCallStack(depth int) Option {
	return func(e *JSEvaluator) {
		if depth > 0 {
			e.maxCallStack = depth
		}
	}
}

// WithLogger routes fault records to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *JSEvaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// JSEvaluator evaluates logic with goja. It holds configuration only and is
// safe for concurrent use.
type JSEvaluator struct {
	timeout      time.Duration
	maxCallStack int
	logger       *slog.Logger
}

var _ Evaluator = (*JSEvaluator)(nil)

// New constructs a JSEvaluator.
func New(opts ...Option) *JSEvaluator {
	e := &JSEvaluator{
		timeout:      DefaultTimeout,
		maxCallStack: DefaultMaxCallStack,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Timeout reports the configured time bound.
func (e *JSEvaluator) Timeout() time.Duration { return e.timeout }

// Evaluate runs source once. It never panics and never returns an error;
// failures surface as Faulted outcomes.
func (e *JSEvaluator) Evaluate(ctx context.Context, source string, values map[string]any) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = FaultedOutcome(fmt.Sprint(r))
		}
		if outcome.Kind == Faulted {
			e.logger.Warn("submit logic faulted", "message", outcome.Message)
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return FaultedOutcome(interruptMessage(err, e.timeout))
	}

	payload, err := json.Marshal(values)
	if err != nil {
		return FaultedOutcome(fmt.Sprintf("values are not serializable: %v", err))
	}

	program, err := goja.Compile("onSubmit", wrap(source), true)
	if err != nil {
		return FaultedOutcome(errorMessage(err, e.timeout))
	}

	vm := goja.New()
	vm.SetMaxCallStackSize(e.maxCallStack)
	if err := vm.GlobalObject().Delete("eval"); err != nil {
		return FaultedOutcome(err.Error())
	}

	timer := time.AfterFunc(e.timeout, func() { vm.Interrupt(errTimeout) })
	defer timer.Stop()
	stop := context.AfterFunc(ctx, func() { vm.Interrupt(ctx.Err()) })
	defer stop()

	fnValue, err := vm.RunProgram(program)
	if err != nil {
		return FaultedOutcome(errorMessage(err, e.timeout))
	}
	fn, ok := goja.AssertFunction(fnValue)
	if !ok {
		return FaultedOutcome("logic did not compile to a function")
	}

	arg, err := parseJSON(vm, payload)
	if err != nil {
		return FaultedOutcome(errorMessage(err, e.timeout))
	}

	result, err := fn(goja.Undefined(), arg)
	if err != nil {
		return FaultedOutcome(errorMessage(err, e.timeout))
	}
	if message, ok := result.Export().(string); ok {
		return RejectedOutcome(message)
	}
	return NoOpinionOutcome()
}

var errTimeout = errors.New("timeout")

func wrap(source string) string {
	return "(function(values){\"use strict\"; " + source + "\n})"
}

// parseJSON builds values as plain script objects so logic cannot reach the
// host map.
func parseJSON(vm *goja.Runtime, payload []byte) (goja.Value, error) {
	parse, ok := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("parse"))
	if !ok {
		return nil, errors.New("JSON.parse is unavailable")
	}
	return parse(goja.Undefined(), vm.ToValue(string(payload)))
}

func errorMessage(err error, timeout time.Duration) string {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok {
			return interruptMessage(cause, timeout)
		}
		return fmt.Sprintf("logic interrupted: %v", interrupted.Value())
	}

	var exception *goja.Exception
	if errors.As(err, &exception) {
		return thrownMessage(exception.Value())
	}

	var syntax *goja.CompilerSyntaxError
	if errors.As(err, &syntax) {
		return "syntax error: " + syntax.Message
	}
	return err.Error()
}

func interruptMessage(cause error, timeout time.Duration) string {
	if errors.Is(cause, errTimeout) {
		return fmt.Sprintf("logic timed out after %s", timeout)
	}
	return fmt.Sprintf("logic cancelled: %v", cause)
}

// thrownMessage prefers the message property of thrown Error objects and
// falls back to the string form of any other thrown value.
func thrownMessage(value goja.Value) string {
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return "logic threw " + fmt.Sprint(value)
	}
	if obj, ok := value.(*goja.Object); ok {
		if message := obj.Get("message"); message != nil && !goja.IsUndefined(message) {
			if text := message.String(); text != "" {
				return text
			}
		}
	}
	return value.String()
}
