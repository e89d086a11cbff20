package vanilla

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	theme "github.com/goliatone/go-theme"
)

const (
	// DefaultTheme and DefaultVariant are used when a render call does not
	// name a theme.
	DefaultTheme   = "formblocks"
	DefaultVariant = "light"

	// ThemeAssetStylesheet names the optional manifest asset linked from
	// standalone pages.
	ThemeAssetStylesheet = "vanilla.stylesheet"

	cssVarPrefix = "--fb-"
)

// BuiltinThemes returns the manifests shipped with the renderer.
func BuiltinThemes() []*theme.Manifest {
	return []*theme.Manifest{
		{
			Name:    DefaultTheme,
			Version: "1.0.0",
			Tokens: map[string]string{
				"color-surface":   "#fefddd",
				"color-accent":    "#fe8ec8",
				"color-secondary": "#628afb",
				"color-text":      "#111827",
				"color-muted":     "#6b7280",
				"color-error":     "#b91c1c",
				"color-warning":   "#b45309",
				"color-success":   "#15803d",
				"radius":          "0",
				"shadow":          "5px 5px 0 rgba(0, 0, 0, 1)",
			},
			Variants: map[string]theme.Variant{
				"light": {},
				"dark": {
					Tokens: map[string]string{
						"color-surface": "#1f2937",
						"color-text":    "#f9fafb",
						"color-muted":   "#9ca3af",
						"color-error":   "#f87171",
						"color-success": "#4ade80",
						"shadow":        "5px 5px 0 rgba(255, 255, 255, 0.8)",
					},
				},
			},
		},
		{
			Name:    "plain",
			Version: "1.0.0",
			Tokens: map[string]string{
				"color-surface":   "transparent",
				"color-accent":    "#e5e7eb",
				"color-secondary": "#f3f4f6",
				"color-text":      "inherit",
				"color-muted":     "#9ca3af",
				"color-error":     "#dc2626",
				"color-warning":   "#d97706",
				"color-success":   "#16a34a",
				"radius":          "4px",
				"shadow":          "none",
			},
		},
	}
}

// ManifestSelector resolves themes from a fixed manifest set. It implements
// theme.ThemeSelector.
type ManifestSelector struct {
	manifests      map[string]*theme.Manifest
	defaultTheme   string
	defaultVariant string
}

// NewManifestSelector indexes manifests by name. Later manifests replace
// earlier ones with the same name.
func NewManifestSelector(defaultTheme, defaultVariant string, manifests ...*theme.Manifest) *ManifestSelector {
	s := &ManifestSelector{
		manifests:      make(map[string]*theme.Manifest, len(manifests)),
		defaultTheme:   defaultTheme,
		defaultVariant: defaultVariant,
	}
	for _, manifest := range manifests {
		if manifest != nil && manifest.Name != "" {
			s.manifests[manifest.Name] = manifest
		}
	}
	return s
}

// Select returns the named theme and variant, falling back to the selector
// defaults for empty arguments. A variant the manifest does not declare is
// an error.
func (s *ManifestSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	if name == "" {
		name = s.defaultTheme
	}
	manifest, ok := s.manifests[name]
	if !ok {
		return nil, fmt.Errorf("vanilla renderer: unknown theme %q (have %s)", name, strings.Join(s.Names(), ", "))
	}
	if variant == "" && name == s.defaultTheme {
		variant = s.defaultVariant
	}
	if variant != "" {
		if _, ok := manifest.Variants[variant]; !ok {
			return nil, fmt.Errorf("vanilla renderer: theme %q has no variant %q", name, variant)
		}
	}
	return &theme.Selection{Theme: name, Variant: variant, Manifest: manifest}, nil
}

// Names lists the known theme names.
func (s *ManifestSelector) Names() []string {
	return slices.Sorted(maps.Keys(s.manifests))
}

// RendererConfig flattens a selection into tokens, CSS variables, partial
// overrides and an asset resolver. Variant values override the base
// manifest.
func RendererConfig(selection *theme.Selection) *theme.RendererConfig {
	if selection == nil || selection.Manifest == nil {
		return nil
	}
	manifest := selection.Manifest

	tokens := maps.Clone(manifest.Tokens)
	partials := maps.Clone(manifest.Templates)
	files := maps.Clone(manifest.Assets.Files)
	prefix := manifest.Assets.Prefix

	if variant, ok := manifest.Variants[selection.Variant]; ok {
		tokens = merge(tokens, variant.Tokens)
		partials = merge(partials, variant.Templates)
		files = merge(files, variant.Assets.Files)
		if variant.Assets.Prefix != "" {
			prefix = variant.Assets.Prefix
		}
	}

	cssVars := make(map[string]string, len(tokens))
	for key, value := range tokens {
		cssVars[cssVarPrefix+key] = value
	}

	return &theme.RendererConfig{
		Theme:    selection.Theme,
		Variant:  selection.Variant,
		Tokens:   tokens,
		CSSVars:  cssVars,
		Partials: partials,
		AssetURL: func(key string) string {
			file, ok := files[key]
			if !ok || file == "" {
				return ""
			}
			if prefix == "" || strings.Contains(file, "://") {
				return file
			}
			return strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(file, "/")
		},
	}
}

func merge(base, override map[string]string) map[string]string {
	if base == nil {
		base = make(map[string]string, len(override))
	}
	maps.Copy(base, override)
	return base
}

// cssVarsBlock renders variables as a :root rule for standalone pages.
func cssVarsBlock(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(":root {\n")
	for _, key := range slices.Sorted(maps.Keys(vars)) {
		b.WriteString("  ")
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(cssValue(vars[key]))
		b.WriteString(";\n")
	}
	b.WriteString("}")
	return b.String()
}

// inlineVars renders variables as a style attribute value for fragments.
func inlineVars(vars map[string]string) string {
	parts := make([]string, 0, len(vars))
	for _, key := range slices.Sorted(maps.Keys(vars)) {
		parts = append(parts, key+": "+cssValue(vars[key]))
	}
	return strings.Join(parts, "; ")
}

// cssValue keeps token values from closing the surrounding rule or tag.
func cssValue(value string) string {
	return strings.NewReplacer("<", "", ">", "", ";", "", "{", "", "}", "").Replace(value)
}
