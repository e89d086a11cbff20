package vanilla_test

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	theme "github.com/goliatone/go-theme"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formblocks/pkg/blocks"
	"github.com/goliatone/go-formblocks/pkg/render"
	"github.com/goliatone/go-formblocks/pkg/renderers/vanilla"
	"github.com/goliatone/go-formblocks/pkg/schema"
	"github.com/goliatone/go-formblocks/pkg/testsupport"
	"github.com/goliatone/go-formblocks/pkg/widgets"
)

func mustRenderer(t *testing.T, opts ...vanilla.Option) *vanilla.Renderer {
	t.Helper()
	renderer, err := vanilla.New(opts...)
	if err != nil {
		t.Fatalf("vanilla.New: %v", err)
	}
	return renderer
}

func renderString(t *testing.T, renderer *vanilla.Renderer, tree blocks.Tree, options render.RenderOptions) string {
	t.Helper()
	out, err := renderer.Render(context.Background(), tree, options)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return string(out)
}

func assertContains(t *testing.T, html string, fragments ...string) {
	t.Helper()
	for _, fragment := range fragments {
		if !strings.Contains(html, fragment) {
			t.Fatalf("expected output to contain %q\n%s", fragment, html)
		}
	}
}

func assertNotContains(t *testing.T, html string, fragments ...string) {
	t.Helper()
	for _, fragment := range fragments {
		if strings.Contains(html, fragment) {
			t.Fatalf("expected output not to contain %q\n%s", fragment, html)
		}
	}
}

func TestRenderer_Metadata(t *testing.T) {
	t.Parallel()

	renderer := mustRenderer(t)
	if renderer.Name() != "vanilla" {
		t.Fatalf("unexpected name %q", renderer.Name())
	}
	if renderer.ContentType() != "text/html; charset=utf-8" {
		t.Fatalf("unexpected content type %q", renderer.ContentType())
	}
}

func TestRenderer_PlainTextIsEscaped(t *testing.T) {
	t.Parallel()

	tree := blocks.NewDispatcher().Render(`[{"type":"text","text":"<b>hi</b> & bye"}]`)
	html := renderString(t, mustRenderer(t), tree, render.RenderOptions{})

	assertContains(t, html, `data-block-key="0"`, "&lt;b&gt;hi&lt;/b&gt; &amp; bye")
	assertNotContains(t, html, "<b>hi</b>")
}

func TestRenderer_MarkdownIsSanitized(t *testing.T) {
	t.Parallel()

	tree := blocks.NewDispatcher().Render(`{"type":"text","format":"markdown","text":"**bold** <script>alert(1)</script>"}`)
	html := renderString(t, mustRenderer(t), tree, render.RenderOptions{})

	assertContains(t, html, "<strong>bold</strong>")
	assertNotContains(t, html, "<script", "&lt;p&gt;")
}

func TestRenderer_ImageAndMissingImage(t *testing.T) {
	t.Parallel()

	tree := blocks.NewDispatcher().Render(`[{"type":"image","src":"/cat.png","alt":"A cat"},{"type":"image","alt":"Nothing"}]`)
	html := renderString(t, mustRenderer(t), tree, render.RenderOptions{})

	assertContains(t, html,
		`<img src="/cat.png" alt="A cat" loading="lazy">`,
		`aria-label="Nothing"`,
		blocks.MissingImageMessage,
	)
}

func TestRenderer_Notices(t *testing.T) {
	t.Parallel()

	renderer := mustRenderer(t)

	unknown := renderString(t, renderer, blocks.NewDispatcher().Render(`{"type":"video"}`), render.RenderOptions{})
	assertContains(t, unknown, "fb-notice--warning", "Unknown block type: video")

	broken := renderString(t, renderer, blocks.NewDispatcher().Render(`{`), render.RenderOptions{})
	assertContains(t, broken, "fb-notice--error", `data-block-key="schema-error"`, "Invalid schema: ")
}

func TestRenderer_FormView(t *testing.T) {
	t.Parallel()

	doc := testsupport.LoadDocument(t, "../../schema/testdata/register.json")
	tree := blocks.NewDispatcher().Render(doc)
	forms := tree.Forms()
	if len(forms) != 1 {
		t.Fatalf("expected one form, got %d", len(forms))
	}

	html := renderString(t, mustRenderer(t), tree, render.RenderOptions{})
	assertContains(t, html,
		`data-state="idle"`,
		"<h3>Register</h3>",
		`<label for="fb-register-email">Email<span class="fb-required"> *</span></label>`,
		`type="email" id="fb-register-email" name="email" value="" required>`,
		`min="18"`,
		`<option value="">Select...</option>`,
		`<option value="pro">Pro plan</option>`,
		`type="checkbox" id="fb-register-newsletter" name="newsletter" value="true">`,
		`type="date"`,
		`>Register</button>`,
	)
	assertNotContains(t, html, "fb-result", "fb-error")
}

func TestRenderer_GoTemplateEngineMatchesPongo2(t *testing.T) {
	t.Parallel()

	doc := testsupport.LoadDocument(t, "../../schema/testdata/register.json")
	tree := blocks.NewDispatcher().Render(doc)
	options := render.RenderOptions{Standalone: true, Title: "Register"}

	pongo := renderString(t, mustRenderer(t), tree, options)
	hooked := renderString(t, mustRenderer(t, vanilla.WithTemplateEngine(vanilla.EngineGoTemplate)), tree, options)

	if diff := cmp.Diff(strings.TrimRight(pongo, "\n"), hooked); diff != "" {
		t.Fatalf("engine output mismatch (-pongo2 +go-template):\n%s", diff)
	}
	if strings.HasSuffix(hooked, "\n") {
		t.Fatalf("expected post hook to trim trailing newline")
	}
	assertContains(t, hooked, "<title>Register</title>", `id="fb-register-email"`)
}

func TestRenderer_UnknownTemplateEngine(t *testing.T) {
	t.Parallel()

	_, err := vanilla.New(vanilla.WithTemplateEngine("jinja"))
	if err == nil || !strings.Contains(err.Error(), `"jinja"`) {
		t.Fatalf("expected unknown engine error, got %v", err)
	}
}

func TestRenderer_FormErrorsAndResult(t *testing.T) {
	t.Parallel()

	tree := blocks.NewDispatcher().Render(`{"type":"form","id":"signup","fields":[{"label":"Email","type":"email","required":true},{"name":"bio","type":"textarea","rows":6,"defaultValue":"<hi>"}]}`)
	engine := tree.Forms()[0].Engine

	rejected := engine.Submit(context.Background())
	if diff := cmp.Diff(map[string]string{"email": "Email is required"}, rejected.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	renderer := mustRenderer(t)
	html := renderString(t, renderer, tree, render.RenderOptions{})
	assertContains(t, html,
		`data-state="rejected"`,
		"fb-field--invalid",
		`<p class="fb-error" id="fb-signup-email-error">Email is required</p>`,
		`rows="6"`,
		"&lt;hi&gt;</textarea>",
	)

	if err := engine.SetValue("email", "ada@example.com"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	engine.Submit(context.Background())

	html = renderString(t, renderer, tree, render.RenderOptions{})
	assertContains(t, html, `data-state="accepted"`, "fb-result--ok", "Submitted!")
	assertNotContains(t, html, "fb-error")
}

func TestRenderer_ThemeVariables(t *testing.T) {
	t.Parallel()

	renderer := mustRenderer(t)
	tree := blocks.NewDispatcher().Render(`{"type":"text","text":"hi"}`)

	fragment := renderString(t, renderer, tree, render.RenderOptions{})
	assertContains(t, fragment, `data-theme="formblocks"`, `data-variant="light"`, "--fb-color-accent: #fe8ec8")

	page := renderString(t, renderer, tree, render.RenderOptions{
		Standalone:   true,
		Title:        "Demo <1>",
		ThemeVariant: "dark",
	})
	assertContains(t, page,
		"<!DOCTYPE html>",
		"<title>Demo &lt;1&gt;</title>",
		":root {",
		"--fb-color-surface: #1f2937;",
		".fb-form {",
	)

	if _, err := renderer.Render(context.Background(), tree, render.RenderOptions{ThemeName: "missing"}); err == nil {
		t.Fatalf("expected unknown theme error")
	}
	if _, err := renderer.Render(context.Background(), tree, render.RenderOptions{ThemeName: "plain", ThemeVariant: "dark"}); err == nil {
		t.Fatalf("expected unknown variant error")
	}
}

func TestRenderer_ThemePartialOverride(t *testing.T) {
	t.Parallel()

	custom := &theme.Manifest{
		Name:      "custom",
		Version:   "0.1.0",
		Tokens:    map[string]string{"color-accent": "red;}<x>"},
		Templates: map[string]string{"blocks.text": `<span class="custom">{{ text }}</span>`},
		Assets: theme.Assets{
			Prefix: "https://cdn.example.com/themes",
			Files:  map[string]string{vanilla.ThemeAssetStylesheet: "custom.css"},
		},
	}
	renderer := mustRenderer(t, vanilla.WithThemes(custom), vanilla.WithDefaultTheme("custom", ""))
	tree := blocks.NewDispatcher().Render(`{"type":"text","text":"hi"}`)

	fragment := renderString(t, renderer, tree, render.RenderOptions{})
	assertContains(t, fragment, `<span class="custom">hi</span>`, `style="--fb-color-accent: redx"`)

	page := renderString(t, renderer, tree, render.RenderOptions{Standalone: true})
	assertContains(t, page, `<link rel="stylesheet" href="https://cdn.example.com/themes/custom.css">`)
}

func TestRenderer_TemplatesFS(t *testing.T) {
	t.Parallel()

	files := fstest.MapFS{}
	for _, name := range []string{"text", "image", "missing_image", "form", "notice", "page", "fragment"} {
		files["templates/"+name+".tmpl"] = &fstest.MapFile{Data: []byte(name + ":{{ key }}{{ body|safe }}")}
	}
	renderer := mustRenderer(t, vanilla.WithTemplatesFS(files))

	html := renderString(t, renderer, blocks.NewDispatcher().Render(`[{"type":"text","text":"x"},{"type":"nope"}]`), render.RenderOptions{})
	if diff := cmp.Diff("fragment:text:0\nnotice:1", html); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestManifestSelector(t *testing.T) {
	t.Parallel()

	selector := vanilla.NewManifestSelector(vanilla.DefaultTheme, vanilla.DefaultVariant, vanilla.BuiltinThemes()...)
	if diff := cmp.Diff([]string{"formblocks", "plain"}, selector.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	selection, err := selector.Select("", "")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if selection.Theme != "formblocks" || selection.Variant != "light" {
		t.Fatalf("unexpected selection %s/%s", selection.Theme, selection.Variant)
	}

	dark, err := selector.Select("formblocks", "dark")
	if err != nil {
		t.Fatalf("Select dark: %v", err)
	}
	cfg := vanilla.RendererConfig(dark)
	if got := cfg.CSSVars["--fb-color-surface"]; got != "#1f2937" {
		t.Fatalf("variant token not applied, got %q", got)
	}
	if got := cfg.Tokens["color-accent"]; got != "#fe8ec8" {
		t.Fatalf("base token lost, got %q", got)
	}
	if cfg.AssetURL(vanilla.ThemeAssetStylesheet) != "" {
		t.Fatalf("expected no stylesheet asset for built-in theme")
	}
}

func TestRenderer_WidgetRegistry(t *testing.T) {
	t.Parallel()

	registry := widgets.NewRegistry()
	registry.Register(widgets.WidgetTextarea, 100, func(field schema.FieldSpec) bool {
		return field.MaxLength != nil && *field.MaxLength > 200
	})
	renderer := mustRenderer(t, vanilla.WithWidgetRegistry(registry))
	tree := blocks.NewDispatcher().Render(`{"type":"form","id":"f","fields":[{"name":"bio","maxLength":500},{"name":"secret","type":"password"}]}`)

	html := renderString(t, renderer, tree, render.RenderOptions{})
	assertContains(t, html,
		`<textarea id="fb-f-bio" name="bio" rows="4" maxlength="500"></textarea>`,
		`<input type="password" id="fb-f-secret" name="secret" value="">`,
	)
}
