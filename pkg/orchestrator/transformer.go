package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/goliatone/go-formblocks/pkg/schema"
)

// Transformer mutates a parsed document before its blocks are dispatched.
// Implementations can relabel fields, change submit captions, or perform
// arbitrary rewrites.
type Transformer interface {
	Transform(ctx context.Context, doc *schema.Document) error
}

// TransformerFunc adapts plain functions to the Transformer interface.
type TransformerFunc func(ctx context.Context, doc *schema.Document) error

// Transform executes the wrapped function when non-nil.
func (fn TransformerFunc) Transform(ctx context.Context, doc *schema.Document) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, doc)
}

// JSONPresetTransformer applies declarative overrides loaded from a JSON file.
// Forms are matched by block id and fields by submission key:
//
//	{
//	  "forms": {
//	    "register": {
//	      "title": "Join us",
//	      "submitText": "Sign up",
//	      "fields": {"email": {"label": "Work email", "placeholder": "you@company.com"}}
//	    }
//	  }
//	}
type JSONPresetTransformer struct {
	document jsonTransformDocument
}

type jsonTransformDocument struct {
	Forms map[string]jsonFormPatch `json:"forms"`
}

type jsonFormPatch struct {
	Title       string                    `json:"title"`
	Description string                    `json:"description"`
	SubmitText  string                    `json:"submitText"`
	Fields      map[string]jsonFieldPatch `json:"fields"`
}

type jsonFieldPatch struct {
	Label       string `json:"label"`
	Placeholder string `json:"placeholder"`
	Rename      string `json:"rename"`
	Required    *bool  `json:"required"`
}

// NewJSONPresetTransformer constructs a transformer from raw JSON bytes.
func NewJSONPresetTransformer(data []byte) (*JSONPresetTransformer, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("json preset transformer: document is empty")
	}
	var document jsonTransformDocument
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("json preset transformer: parse document: %w", err)
	}
	return &JSONPresetTransformer{document: document}, nil
}

// NewJSONPresetTransformerFromFS loads a JSON transformer document from the
// provided filesystem path.
func NewJSONPresetTransformerFromFS(fsys fs.FS, path string) (*JSONPresetTransformer, error) {
	if fsys == nil {
		return nil, errors.New("json preset transformer: filesystem is nil")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("json preset transformer: path is required")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("json preset transformer: read %s: %w", path, err)
	}
	return NewJSONPresetTransformer(data)
}

// Transform applies the declarative patches onto the supplied document. A
// patch naming a form or field the document does not have is an error.
func (t *JSONPresetTransformer) Transform(ctx context.Context, doc *schema.Document) error {
	if doc == nil {
		return errors.New("json preset transformer: document is nil")
	}
	for id, patch := range t.document.Forms {
		if err := ctx.Err(); err != nil {
			return err
		}
		idx := findForm(doc.Blocks, id)
		if idx < 0 {
			return fmt.Errorf("json preset transformer: form %q not found", id)
		}
		form := doc.Blocks[idx].(schema.FormBlock)
		if err := applyFormPatch(&form, patch); err != nil {
			return fmt.Errorf("json preset transformer: form %q: %w", id, err)
		}
		doc.Blocks[idx] = form
	}
	return nil
}

func applyFormPatch(form *schema.FormBlock, patch jsonFormPatch) error {
	if patch.Title != "" {
		form.Title = patch.Title
	}
	if patch.Description != "" {
		form.Description = patch.Description
	}
	if patch.SubmitText != "" {
		form.SubmitText = patch.SubmitText
	}
	if len(patch.Fields) == 0 {
		return nil
	}

	fields := append([]schema.FieldSpec(nil), form.Fields...)
	for key, fieldPatch := range patch.Fields {
		matched := false
		for idx := range fields {
			if fields[idx].Key() != key {
				continue
			}
			applyFieldPatch(&fields[idx], fieldPatch)
			matched = true
		}
		if !matched {
			return fmt.Errorf("field %q not found", key)
		}
	}
	form.Fields = fields
	return nil
}

func applyFieldPatch(field *schema.FieldSpec, patch jsonFieldPatch) {
	if patch.Label != "" {
		field.Label = patch.Label
	}
	if patch.Placeholder != "" {
		field.Placeholder = patch.Placeholder
	}
	if patch.Required != nil {
		field.Required = *patch.Required
	}
	if strings.TrimSpace(patch.Rename) != "" {
		field.Name = strings.TrimSpace(patch.Rename)
	}
}

func findForm(blocks []schema.Block, id string) int {
	for idx, block := range blocks {
		if form, ok := block.(schema.FormBlock); ok && form.BlockID == id {
			return idx
		}
	}
	return -1
}
