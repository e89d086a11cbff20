// Package render defines the presentation seam: renderers turn a block tree
// into bytes (HTML, terminal text, ...) and are looked up by name.
package render

import (
	"context"

	"github.com/goliatone/go-formblocks/pkg/blocks"
)

// Renderer converts a block tree into a byte representation.
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, tree blocks.Tree, options RenderOptions) ([]byte, error)
}
