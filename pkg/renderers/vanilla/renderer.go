package vanilla

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	gotemplatepkg "github.com/goliatone/go-template"
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formblocks/pkg/blocks"
	"github.com/goliatone/go-formblocks/pkg/render"
	rendertemplate "github.com/goliatone/go-formblocks/pkg/render/template"
	gotemplate "github.com/goliatone/go-formblocks/pkg/render/template/gotemplate"
	"github.com/goliatone/go-formblocks/pkg/widgets"
)

// Name is the registry name of the HTML renderer.
const Name = "vanilla"

// Partial keys looked up in theme.RendererConfig.Partials. Values are either
// template names in the bundle or inline template content.
const (
	PartialPrefix   = "blocks."
	PartialPage     = "page"
	PartialFragment = "fragment"
)

var defaultTemplates = map[string]string{
	string(blocks.NodeText):         "templates/text.tmpl",
	string(blocks.NodeImage):        "templates/image.tmpl",
	string(blocks.NodeMissingImage): "templates/missing_image.tmpl",
	string(blocks.NodeForm):         "templates/form.tmpl",
	string(blocks.NodeUnknownBlock): "templates/notice.tmpl",
	string(blocks.NodeSchemaError):  "templates/notice.tmpl",
	string(blocks.NodeFault):        "templates/notice.tmpl",
	PartialPage:                     "templates/page.tmpl",
	PartialFragment:                 "templates/fragment.tmpl",
}

type Option func(*config)

// Template engines selectable with WithTemplateEngine.
const (
	EnginePongo2     = "pongo2"
	EngineGoTemplate = "go-template"
)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	engine           string
	selector         theme.ThemeSelector
	manifests        []*theme.Manifest
	defaultTheme     string
	defaultVariant   string
	stylesheet       string
	widgets          *widgets.Registry
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS. Names are
// resolved the same way as the embedded bundle ("templates/form.tmpl").
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithTemplateEngine picks the engine behind the built-in templates:
// EnginePongo2 (default) or EngineGoTemplate. WithTemplateRenderer wins over
// both.
func WithTemplateEngine(name string) Option {
	return func(cfg *config) {
		if name = strings.TrimSpace(name); name != "" {
			cfg.engine = name
		}
	}
}

// WithThemeSelector replaces the built-in manifest selector.
func WithThemeSelector(selector theme.ThemeSelector) Option {
	return func(cfg *config) {
		if selector != nil {
			cfg.selector = selector
		}
	}
}

// WithThemes adds manifests to the built-in set. A manifest named like a
// built-in theme replaces it.
func WithThemes(manifests ...*theme.Manifest) Option {
	return func(cfg *config) {
		cfg.manifests = append(cfg.manifests, manifests...)
	}
}

// WithDefaultTheme sets the theme and variant used when a render call does
// not name one.
func WithDefaultTheme(name, variant string) Option {
	return func(cfg *config) {
		if name != "" {
			cfg.defaultTheme = name
			cfg.defaultVariant = variant
		}
	}
}

// WithWidgetRegistry replaces the registry that picks each field's control.
func WithWidgetRegistry(registry *widgets.Registry) Option {
	return func(cfg *config) {
		if registry != nil {
			cfg.widgets = registry
		}
	}
}

// WithStylesheet overrides the CSS inlined into standalone pages.
func WithStylesheet(css string) Option {
	return func(cfg *config) {
		cfg.stylesheet = css
	}
}

// Renderer turns a block tree into HTML, one template per node kind.
type Renderer struct {
	templates  rendertemplate.TemplateRenderer
	selector   theme.ThemeSelector
	widgets    *widgets.Registry
	stylesheet string
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the vanilla renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{
		templateFS:     TemplatesFS(),
		engine:         EnginePongo2,
		defaultTheme:   DefaultTheme,
		defaultVariant: DefaultVariant,
		stylesheet:     defaultStylesheet(),
		widgets:        widgets.NewRegistry(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}

	renderer := cfg.templateRenderer
	if renderer == nil {
		engine, err := newTemplateEngine(cfg)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: configure template renderer: %w", err)
		}
		renderer = engine
	}

	selector := cfg.selector
	if selector == nil {
		manifests := append(BuiltinThemes(), cfg.manifests...)
		selector = NewManifestSelector(cfg.defaultTheme, cfg.defaultVariant, manifests...)
	}

	return &Renderer{templates: renderer, selector: selector, widgets: cfg.widgets, stylesheet: cfg.stylesheet}, nil
}

func newTemplateEngine(cfg config) (rendertemplate.TemplateRenderer, error) {
	options := []gotemplate.Option{
		gotemplate.WithFS(cfg.templateFS),
		gotemplate.WithExtension(".tmpl"),
	}
	switch cfg.engine {
	case EnginePongo2:
		return gotemplate.New(options...)
	case EngineGoTemplate:
		options = append(options, gotemplate.WithPostHook(trimPartial))
		return gotemplate.NewHooked(options...)
	default:
		return nil, fmt.Errorf("unknown template engine %q", cfg.engine)
	}
}

// trimPartial drops the trailing newline template files end with so joined
// partials do not accumulate blank lines.
func trimPartial(ctx *gotemplatepkg.HookContext) (string, error) {
	return strings.TrimRight(ctx.Output, "\n"), nil
}

func (r *Renderer) Name() string {
	return Name
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render emits one fragment per node, wrapped in a themed root element or,
// when options.Standalone is set, a complete HTML page.
func (r *Renderer) Render(ctx context.Context, tree blocks.Tree, options render.RenderOptions) ([]byte, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("vanilla renderer: template renderer is nil")
	}

	cfg, err := r.themeConfig(options)
	if err != nil {
		return nil, err
	}

	var body strings.Builder
	for _, node := range tree.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := r.renderNode(cfg, node)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: render %s block %q: %w", node.Kind(), node.Key(), err)
		}
		body.WriteString(strings.TrimRight(out, "\n"))
		body.WriteString("\n")
	}

	fragment, err := r.templates.Render(partial(cfg, PartialFragment), map[string]any{
		"theme":       cfg.Theme,
		"variant":     cfg.Variant,
		"inline_vars": inlineVarsFor(cfg, options.Standalone),
		"body":        strings.TrimRight(body.String(), "\n"),
	})
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render fragment: %w", err)
	}
	if !options.Standalone {
		return []byte(fragment), nil
	}

	title := options.Title
	if title == "" {
		title = "Form blocks"
	}
	var stylesheet string
	if cfg.AssetURL != nil {
		stylesheet = cfg.AssetURL(ThemeAssetStylesheet)
	}
	page, err := r.templates.Render(partial(cfg, PartialPage), map[string]any{
		"title":      title,
		"stylesheet": stylesheet,
		"css_vars":   cssVarsBlock(cfg.CSSVars),
		"base_css":   r.stylesheet,
		"body":       strings.TrimRight(fragment, "\n"),
	})
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render page: %w", err)
	}
	return []byte(page), nil
}

func (r *Renderer) themeConfig(options render.RenderOptions) (*theme.RendererConfig, error) {
	if options.Theme != nil {
		return options.Theme, nil
	}
	selection, err := r.selector.Select(options.ThemeName, options.ThemeVariant)
	if err != nil {
		return nil, err
	}
	cfg := RendererConfig(selection)
	if cfg == nil {
		return &theme.RendererConfig{Theme: selection.Theme, Variant: selection.Variant}, nil
	}
	return cfg, nil
}

func (r *Renderer) renderNode(cfg *theme.RendererConfig, node blocks.Node) (string, error) {
	name := partial(cfg, PartialPrefix+string(node.Kind()))
	switch n := node.(type) {
	case blocks.TextNode:
		data := map[string]any{"key": n.NodeKey, "text": n.Text}
		if n.Markdown {
			data["html"] = renderMarkdown(n.Text)
		}
		return r.templates.Render(name, data)
	case blocks.ImageNode:
		return r.templates.Render(name, map[string]any{"key": n.NodeKey, "src": n.Src, "alt": n.Alt})
	case blocks.MissingImageNode:
		return r.templates.Render(name, map[string]any{"key": n.NodeKey, "alt": n.Alt, "message": n.Message})
	case blocks.FormNode:
		return r.templates.Render(name, newFormView(n, r.widgets))
	case blocks.UnknownBlockNode:
		return r.templates.Render(name, notice(n.NodeKey, "warning", n.Message))
	case blocks.SchemaErrorNode:
		return r.templates.Render(name, notice(n.NodeKey, "error", n.Message))
	case blocks.FaultNode:
		return r.templates.Render(name, notice(n.NodeKey, "error", n.Message))
	default:
		return "", fmt.Errorf("unsupported node %T", node)
	}
}

func notice(key, tone, message string) map[string]any {
	return map[string]any{"key": key, "tone": tone, "message": message}
}

// partial resolves a template for key, preferring a theme override. Node
// kinds are looked up without the "blocks." prefix in the defaults.
func partial(cfg *theme.RendererConfig, key string) string {
	if cfg != nil {
		if override := strings.TrimSpace(cfg.Partials[key]); override != "" {
			return override
		}
	}
	return defaultTemplates[strings.TrimPrefix(key, PartialPrefix)]
}

// Standalone pages carry variables in a :root rule instead.
func inlineVarsFor(cfg *theme.RendererConfig, standalone bool) string {
	if standalone {
		return ""
	}
	return inlineVars(cfg.CSSVars)
}
