// Package store persists the schema text being edited. Backends hold a
// single document and treat it as opaque text; parsing happens downstream.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no schema has been stored yet.
var ErrNotFound = errors.New("store: schema not found")

// DefaultSchema is the document shown before anything has been saved.
const DefaultSchema = `{
  "type": "form",
  "fields": [
    { "label": "Email", "type": "email", "required": true },
    { "label": "Age", "type": "number", "min": 18 }
  ],
  "submitText": "Register",
  "onSubmit": "if (values.age < 21) return 'Too young';"
}`

// Store reads and writes the current schema text.
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, text string) error
}

// GetOrDefault returns the stored text, or fallback when nothing is stored.
func GetOrDefault(ctx context.Context, s Store, fallback string) (string, error) {
	text, err := s.Get(ctx)
	if errors.Is(err, ErrNotFound) {
		return fallback, nil
	}
	return text, err
}
