// Package schema defines the declarative block document consumed by the
// dispatcher: a single block or an ordered list of blocks, each tagged by a
// "type" discriminator. Block and field types are closed enumerations; any
// unrecognised block tag decodes to UnknownBlock and any unrecognised field
// type falls back to FieldTypeText while keeping the raw tag for presentation.
//
// Parsing either fully succeeds or returns a *ParseError. Attribute decoding
// is lenient and mirrors JSON truthiness, so `"required": 1` marks a field as
// required and numeric bounds accept numeric strings.
package schema
