package render

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formblocks/pkg/blocks"
)

type stubRenderer struct{ name string }

func (s stubRenderer) Name() string        { return s.name }
func (s stubRenderer) ContentType() string { return "text/plain" }
func (s stubRenderer) Render(_ context.Context, tree blocks.Tree, _ RenderOptions) ([]byte, error) {
	return []byte(s.name + ":" + string(rune('0'+tree.Len()))), nil
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.MustRegister(stubRenderer{name: "tui"})
	registry.MustRegister(stubRenderer{name: "html"})

	if err := registry.Register(stubRenderer{name: "html"}); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if err := registry.Register(nil); err == nil {
		t.Fatalf("expected nil renderer error")
	}
	if diff := cmp.Diff([]string{"html", "tui"}, registry.List()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	tree := blocks.Tree{Nodes: []blocks.Node{blocks.TextNode{NodeKey: "0", Text: "hi"}}}
	out, err := registry.Render(context.Background(), "", tree, RenderOptions{})
	if err != nil || string(out) != "tui:1" {
		t.Fatalf("default renderer: got %q, %v", out, err)
	}

	if err := registry.SetDefault("html"); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	if got, _ := registry.Get(""); got.Name() != "html" {
		t.Fatalf("expected html default, got %s", got.Name())
	}

	if _, err := registry.Get("pdf"); !errors.Is(err, ErrRendererNotFound) {
		t.Fatalf("expected ErrRendererNotFound, got %v", err)
	}
}
