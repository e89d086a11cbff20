// Package validation derives per-field rule sets from declarative field specs
// and evaluates submitted values against them. Rules run in a fixed order
// (required, min/max, minLength/maxLength, pattern) and stop at the first
// failure so each field reports a single message.
//
// The package also lints whole schema documents (Lint) for authoring
// problems the lenient parser tolerates: wrong attribute types, unknown block
// types, malformed patterns and colliding field keys.
package validation
