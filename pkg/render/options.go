package render

import theme "github.com/goliatone/go-theme"

// RenderOptions carry per-call presentation settings.
type RenderOptions struct {
	// Title is used by renderers that emit a full document.
	Title string
	// Standalone asks for a complete document (for HTML, <html> with
	// stylesheet) instead of a fragment.
	Standalone bool
	// ThemeName and ThemeVariant pick a theme from the renderer's selector.
	// Empty values fall back to the renderer defaults.
	ThemeName    string
	ThemeVariant string
	// Theme, when set, is used as-is and skips theme selection.
	Theme *theme.RendererConfig
}
