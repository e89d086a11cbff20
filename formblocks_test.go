package formblocks_test

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	formblocks "github.com/goliatone/go-formblocks"
	"github.com/goliatone/go-formblocks/pkg/blocks"
	"github.com/goliatone/go-formblocks/pkg/form"
	"github.com/goliatone/go-formblocks/pkg/validation"
)

func TestRender_FormRoundTrip(t *testing.T) {
	t.Parallel()

	tree := formblocks.Render(`{"type":"form","fields":[{"label":"Age","type":"number","min":18,"required":true}],"onSubmit":"if (values.age < 21) return 'Too young';"}`)
	forms := tree.Forms()
	if len(forms) != 1 {
		t.Fatalf("expected one form, got %d", len(forms))
	}
	engine := forms[0].Engine

	if err := engine.SetValue("age", "20"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if sub := engine.Submit(context.Background()); sub.State != form.Rejected || sub.Result.Message != "Too young" {
		t.Fatalf("unexpected submission %+v", sub)
	}
	if err := engine.SetValue("age", "25"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if sub := engine.Submit(context.Background()); sub.State != form.Accepted {
		t.Fatalf("expected accepted, got %+v", sub)
	}
}

func TestRender_Empty(t *testing.T) {
	t.Parallel()

	if tree := formblocks.Render(""); tree.Len() != 0 {
		t.Fatalf("expected empty tree, got %+v", tree.Nodes)
	}
	if tree := formblocks.Render("   "); tree.Len() != 1 || tree.Nodes[0].Kind() != blocks.NodeSchemaError {
		t.Fatalf("expected whitespace to be a schema error, got %+v", tree.Nodes)
	}
	if tree := formblocks.Render(`{"type":"video"}`); tree.Nodes[0].Kind() != blocks.NodeUnknownBlock {
		t.Fatalf("expected unknown block node, got %+v", tree.Nodes)
	}
}

func TestRenderHTMLString(t *testing.T) {
	t.Parallel()

	out, err := formblocks.RenderHTMLString(context.Background(), `[{"type":"text","text":"Welcome"},{"type":"image"}]`, formblocks.RenderOptions{Standalone: true, Title: "Home"})
	if err != nil {
		t.Fatalf("RenderHTMLString: %v", err)
	}
	html := string(out)
	for _, want := range []string{"<title>Home</title>", "Welcome", blocks.MissingImageMessage} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected %q in output\n%s", want, html)
		}
	}
}

func TestLint(t *testing.T) {
	t.Parallel()

	result := formblocks.Lint([]byte(`{"type":"form","fields":[{"name":"a","pattern":"("}]}`), validation.LintOptions{StrictPatterns: true})
	if result.Valid || len(result.Errors()) != 1 {
		t.Fatalf("expected one error, got %+v", result)
	}
}

func TestEmbeddedAssets(t *testing.T) {
	t.Parallel()

	if _, err := fs.Stat(formblocks.EmbeddedTemplates(), "templates/form.tmpl"); err != nil {
		t.Fatalf("form template missing: %v", err)
	}
	if _, err := fs.Stat(formblocks.StylesheetFS(), "formblocks.css"); err != nil {
		t.Fatalf("stylesheet missing: %v", err)
	}
}
