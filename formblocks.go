// Package formblocks renders JSON block schemas (text, images and forms) and
// runs form submissions through synthesized validation and a sandboxed
// onSubmit evaluator.
package formblocks

import (
	"context"
	"io/fs"

	"github.com/goliatone/go-formblocks/pkg/blocks"
	"github.com/goliatone/go-formblocks/pkg/orchestrator"
	"github.com/goliatone/go-formblocks/pkg/render"
	"github.com/goliatone/go-formblocks/pkg/renderers/vanilla"
	"github.com/goliatone/go-formblocks/pkg/schema"
	"github.com/goliatone/go-formblocks/pkg/validation"
)

// RenderOptions aliases render.RenderOptions for callers using the top-level
// helpers.
type RenderOptions = render.RenderOptions

// Render dispatches schema input (text, bytes or a parsed document) into a
// block tree. It never fails: bad input becomes error nodes in the tree.
func Render(input any, options ...blocks.Option) blocks.Tree {
	return blocks.NewDispatcher(options...).Render(input)
}

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// RenderHTML reads schema text from source and renders it with the vanilla
// HTML renderer.
func RenderHTML(ctx context.Context, source schema.Source, opts RenderOptions, options ...orchestrator.Option) ([]byte, error) {
	return orchestrator.New(options...).Generate(ctx, orchestrator.Request{
		Source:        source,
		Renderer:      vanilla.Name,
		RenderOptions: opts,
	})
}

// RenderHTMLString is RenderHTML for inline schema text.
func RenderHTMLString(ctx context.Context, text string, opts RenderOptions, options ...orchestrator.Option) ([]byte, error) {
	return RenderHTML(ctx, schema.SourceFromString(text), opts, options...)
}

// Lint checks schema text without rendering it.
func Lint(raw []byte, opts validation.LintOptions) validation.SchemaValidationResult {
	return validation.Lint(raw, opts)
}

// EmbeddedTemplates exposes the built-in vanilla renderer templates so callers
// can reuse or extend them without importing the renderer package directly.
func EmbeddedTemplates() fs.FS {
	return vanilla.TemplatesFS()
}

// StylesheetFS exposes the base stylesheet of the HTML renderer.
func StylesheetFS() fs.FS {
	return vanilla.AssetsFS()
}
