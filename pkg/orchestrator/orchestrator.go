package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-formblocks/pkg/blocks"
	"github.com/goliatone/go-formblocks/pkg/render"
	"github.com/goliatone/go-formblocks/pkg/renderers/vanilla"
	"github.com/goliatone/go-formblocks/pkg/schema"
	theme "github.com/goliatone/go-theme"
)

const defaultRendererName = vanilla.Name

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithDispatcher injects a configured block dispatcher.
func WithDispatcher(dispatcher *blocks.Dispatcher) Option {
	return func(o *Orchestrator) {
		o.dispatcher = dispatcher
	}
}

// WithRegistry injects a renderer registry.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithDefaultRenderer overrides the renderer used when a request omits an
// explicit Renderer field.
func WithDefaultRenderer(name string) Option {
	return func(o *Orchestrator) {
		o.defaultRenderer = name
	}
}

// WithSchemaTransformer registers a Transformer that can mutate parsed
// documents before blocks are dispatched.
func WithSchemaTransformer(t Transformer) Option {
	return func(o *Orchestrator) {
		o.transformer = t
	}
}

// WithThemeSelector passes a go-theme selector to the default vanilla
// renderer. It has no effect when WithRegistry is used.
func WithThemeSelector(selector theme.ThemeSelector) Option {
	return func(o *Orchestrator) {
		o.vanillaOptions = append(o.vanillaOptions, vanilla.WithThemeSelector(selector))
	}
}

// WithVanillaOptions forwards options to the default vanilla renderer. It has
// no effect when WithRegistry is used.
func WithVanillaOptions(options ...vanilla.Option) Option {
	return func(o *Orchestrator) {
		o.vanillaOptions = append(o.vanillaOptions, options...)
	}
}

// WithLogger sets the logger used for pipeline diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Orchestrator coordinates the full pipeline from schema text to rendered
// output. It applies sensible defaults (vanilla renderer, embedded templates)
// while remaining open to dependency injection for advanced callers.
type Orchestrator struct {
	dispatcher      *blocks.Dispatcher
	registry        *render.Registry
	defaultRenderer string
	transformer     Transformer
	vanillaOptions  []vanilla.Option
	logger          *slog.Logger
	initialiseErr   error
}

// New constructs an Orchestrator applying any provided options. Missing
// dependencies are initialised with the built-in implementations so callers can
// start with a single constructor call.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		defaultRenderer: defaultRendererName,
		logger:          slog.Default(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

// Request describes the inputs required to render a block document.
type Request struct {
	// Source identifies where the schema text lives. Optional when Document
	// is supplied.
	Source schema.Source

	// Document allows callers to bypass reading and parsing when they already
	// have a parsed document.
	Document *schema.Document

	// Renderer names the renderer to use. If empty, the orchestrator falls back
	// to the configured default renderer.
	Renderer string

	// RenderOptions carries per-request presentation settings.
	RenderOptions render.RenderOptions
}

// Build reads, parses, transforms and dispatches the request document. Schema
// text that fails to parse is not an error here: the tree carries a schema
// error node instead, the same as rendering it directly.
func (o *Orchestrator) Build(ctx context.Context, req Request) (blocks.Tree, error) {
	if ctx == nil {
		return blocks.Tree{}, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return blocks.Tree{}, err
	}
	if err := o.initialiseErr; err != nil {
		return blocks.Tree{}, err
	}

	doc, raw, err := o.resolveDocument(ctx, req)
	if err != nil {
		return blocks.Tree{}, err
	}
	if doc == nil {
		o.logger.Debug("schema did not parse", "source", location(req.Source))
		return o.dispatcher.Render(raw), nil
	}

	if o.transformer != nil {
		if err := o.transformer.Transform(ctx, doc); err != nil {
			return blocks.Tree{}, fmt.Errorf("orchestrator: transform document: %w", err)
		}
	}
	return o.dispatcher.Render(doc), nil
}

// Generate executes the build sequence and hands the tree to the selected
// renderer, returning its bytes (HTML for the default vanilla renderer).
func (o *Orchestrator) Generate(ctx context.Context, req Request) ([]byte, error) {
	tree, err := o.Build(ctx, req)
	if err != nil {
		return nil, err
	}

	renderer, err := o.rendererFor(req.Renderer)
	if err != nil {
		return nil, err
	}

	output, err := renderer.Render(ctx, tree, req.RenderOptions)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: render output: %w", err)
	}
	return output, nil
}

// Registry exposes the renderer registry, e.g. to register extra renderers.
func (o *Orchestrator) Registry() *render.Registry {
	return o.registry
}

// resolveDocument returns the parsed document, or nil plus the raw text when
// the text does not parse.
func (o *Orchestrator) resolveDocument(ctx context.Context, req Request) (*schema.Document, []byte, error) {
	if req.Document != nil {
		doc := *req.Document
		doc.Blocks = append([]schema.Block(nil), req.Document.Blocks...)
		return &doc, nil, nil
	}
	if req.Source == nil {
		return nil, nil, errors.New("orchestrator: source or document is required")
	}
	raw, err := schema.Read(ctx, req.Source)
	if err != nil {
		return nil, nil, fmt.Errorf("orchestrator: read schema: %w", err)
	}
	doc, err := schema.Parse(raw)
	if err != nil {
		return nil, raw, nil
	}
	return &doc, nil, nil
}

func (o *Orchestrator) rendererFor(name string) (render.Renderer, error) {
	if o.registry == nil {
		return nil, errors.New("orchestrator: renderer registry is nil")
	}

	target := name
	if target == "" {
		target = o.defaultRenderer
	}

	if target != "" {
		renderer, err := o.registry.Get(target)
		if err == nil {
			return renderer, nil
		}
		if name != "" {
			return nil, fmt.Errorf("orchestrator: renderer %q: %w", name, err)
		}
	}

	names := o.registry.List()
	if len(names) == 0 {
		return nil, errors.New("orchestrator: no renderers registered")
	}

	renderer, err := o.registry.Get(names[0])
	if err != nil {
		return nil, fmt.Errorf("orchestrator: renderer %q: %w", names[0], err)
	}
	return renderer, nil
}

func (o *Orchestrator) applyDefaults() {
	if o.dispatcher == nil {
		o.dispatcher = blocks.NewDispatcher(blocks.WithLogger(o.logger))
	}
	if o.registry == nil {
		o.registry = render.NewRegistry()
		renderer, err := vanilla.New(o.vanillaOptions...)
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: default renderer: %w", err)
		} else {
			o.registry.MustRegister(renderer)
		}
	}
	if o.defaultRenderer == "" {
		o.defaultRenderer = defaultRendererName
	}
}

func location(src schema.Source) string {
	if src == nil {
		return ""
	}
	return src.Location()
}
