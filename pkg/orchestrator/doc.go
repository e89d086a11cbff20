// Package orchestrator wires the source → parse → transform → dispatch →
// render pipeline, providing dependency injection friendly helpers for
// consumers that prefer a single entry point.
package orchestrator
