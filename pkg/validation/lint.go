package validation

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/xeipuuv/gojsonschema"

	"github.com/goliatone/go-formblocks/pkg/schema"
	"github.com/goliatone/go-formblocks/pkg/visibility/expr"
)

//go:embed schemas/block.json
var blockSchemaJSON string

var blockSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(blockSchemaJSON))
})

// Severity grades a lint issue. Only errors make a document invalid.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// SchemaIssue is a lint finding located by JSON pointer.
type SchemaIssue struct {
	Path     string   `json:"path,omitempty"`
	Field    string   `json:"field,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// SchemaValidationResult captures lint outcomes for a schema document.
type SchemaValidationResult struct {
	Valid  bool          `json:"valid"`
	Issues []SchemaIssue `json:"issues,omitempty"`
}

// Errors returns only the error-severity issues.
func (r SchemaValidationResult) Errors() []SchemaIssue {
	return lo.Filter(r.Issues, func(issue SchemaIssue, _ int) bool {
		return issue.Severity == SeverityError
	})
}

// LintOptions configures Lint.
type LintOptions struct {
	// StrictPatterns reports malformed field patterns as errors instead of
	// warnings.
	StrictPatterns bool
}

// Lint checks raw schema text. Parse failures are errors; shape problems the
// renderer tolerates (unknown block types, unrecognised field types, colliding
// keys) are warnings.
func Lint(raw []byte, opts LintOptions) SchemaValidationResult {
	doc, err := schema.Parse(raw)
	if err != nil {
		return finish([]SchemaIssue{{Message: issueMessage(err), Severity: SeverityError}})
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return finish([]SchemaIssue{{Message: issueMessage(err), Severity: SeverityError}})
	}
	elements, ok := decoded.([]any)
	if !ok {
		elements = []any{decoded}
	}

	var issues []SchemaIssue
	for idx, block := range doc.Blocks {
		prefix := ""
		if doc.List {
			prefix = "/" + strconv.Itoa(idx)
		}
		if idx < len(elements) {
			issues = append(issues, shapeIssues(prefix, elements[idx])...)
		}
		issues = append(issues, blockIssues(prefix, block, opts)...)
	}
	return finish(issues)
}

func finish(issues []SchemaIssue) SchemaValidationResult {
	valid := !lo.SomeBy(issues, func(issue SchemaIssue) bool {
		return issue.Severity == SeverityError
	})
	return SchemaValidationResult{Valid: valid, Issues: issues}
}

func shapeIssues(prefix string, element any) []SchemaIssue {
	compiled, err := blockSchema()
	if err != nil {
		return []SchemaIssue{{Path: prefix, Message: "block schema: " + err.Error(), Severity: SeverityError}}
	}
	result, err := compiled.Validate(gojsonschema.NewGoLoader(element))
	if err != nil {
		return []SchemaIssue{{Path: prefix, Message: err.Error(), Severity: SeverityError}}
	}
	if result.Valid() {
		return nil
	}

	var issues []SchemaIssue
	for _, resultErr := range result.Errors() {
		// if/then wrappers repeat the branch failure; keep the concrete ones.
		switch resultErr.Type() {
		case "condition_then", "condition_else", "number_all_of":
			continue
		}
		path := prefix + pointerFromField(resultErr.Field())
		if property, ok := resultErr.Details()["property"].(string); ok && resultErr.Type() == "required" {
			path += "/" + property
		}
		issues = append(issues, SchemaIssue{
			Path:     path,
			Field:    fieldPathFromPointer(path),
			Message:  resultErr.Description(),
			Severity: SeverityWarning,
		})
	}
	return issues
}

func blockIssues(prefix string, block schema.Block, opts LintOptions) []SchemaIssue {
	switch typed := block.(type) {
	case schema.UnknownBlock:
		return []SchemaIssue{{
			Path:     prefix + "/type",
			Message:  fmt.Sprintf("unknown block type %q", typed.Type),
			Severity: SeverityWarning,
		}}
	case schema.FormBlock:
		return formIssues(prefix, typed, opts)
	default:
		return nil
	}
}

func formIssues(prefix string, form schema.FormBlock, opts LintOptions) []SchemaIssue {
	var issues []SchemaIssue

	patternSeverity := SeverityWarning
	if opts.StrictPatterns {
		patternSeverity = SeverityError
	}

	for _, field := range form.Fields {
		base := fmt.Sprintf("%s/fields/%d", prefix, field.Index)
		for _, dropped := range Synthesize(field).Dropped() {
			issues = append(issues, SchemaIssue{
				Path:     base + "/pattern",
				Field:    field.Key(),
				Message:  issueMessage(dropped),
				Severity: patternSeverity,
			})
		}
		if field.VisibleWhen != "" {
			if _, err := expr.Compile(field.VisibleWhen); err != nil {
				issues = append(issues, SchemaIssue{
					Path:     base + "/visibleWhen",
					Field:    field.Key(),
					Message:  issueMessage(err),
					Severity: SeverityError,
				})
			}
		}
	}

	keys := lo.Map(form.Fields, func(field schema.FieldSpec, _ int) string { return field.Key() })
	for _, key := range lo.FindDuplicates(keys) {
		positions := lo.FilterMap(form.Fields, func(field schema.FieldSpec, _ int) (string, bool) {
			return strconv.Itoa(field.Index), field.Key() == key
		})
		issues = append(issues, SchemaIssue{
			Path:     prefix + "/fields",
			Field:    key,
			Message:  fmt.Sprintf("fields %s share key %q; the last value wins", strings.Join(positions, ", "), key),
			Severity: SeverityWarning,
		})
	}
	return issues
}

func issueMessage(err error) string {
	var perr *PatternError
	if errors.As(err, &perr) {
		return fmt.Sprintf("invalid pattern %q: %v", perr.Source, perr.Err)
	}
	msg := strings.TrimSpace(err.Error())
	msg = strings.TrimPrefix(msg, "schema: ")
	msg = strings.TrimPrefix(msg, "visibility/expr: ")
	return msg
}

// pointerFromField turns gojsonschema's dotted context ("fields.1.min",
// "(root)") into a JSON pointer suffix.
func pointerFromField(field string) string {
	field = strings.TrimPrefix(field, "(root)")
	field = strings.TrimPrefix(field, ".")
	if field == "" {
		return ""
	}
	parts := strings.Split(field, ".")
	for i, part := range parts {
		part = strings.ReplaceAll(part, "~", "~0")
		parts[i] = strings.ReplaceAll(part, "/", "~1")
	}
	return "/" + strings.Join(parts, "/")
}

func fieldPathFromPointer(pointer string) string {
	trimmed := strings.TrimPrefix(strings.TrimSpace(pointer), "/")
	if trimmed == "" {
		return ""
	}
	parts := strings.Split(trimmed, "/")
	for i, part := range parts {
		part = strings.ReplaceAll(part, "~1", "/")
		parts[i] = strings.ReplaceAll(part, "~0", "~")
	}
	return strings.Join(parts, ".")
}
