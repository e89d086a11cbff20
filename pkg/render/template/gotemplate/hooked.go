package gotemplate

import (
	"errors"
	"fmt"

	"github.com/flosch/pongo2/v6"
	gotemplatepkg "github.com/goliatone/go-template"

	"github.com/goliatone/go-formblocks/pkg/render/template"
)

var _ template.TemplateRenderer = (*gotemplatepkg.Engine)(nil)

// NewHooked builds a github.com/goliatone/go-template engine from the same
// options as New. It renders the same pongo2 syntax and additionally runs
// the hooks registered with WithPostHook.
func NewHooked(options ...Option) (*gotemplatepkg.Engine, error) {
	cfg := newConfig(options)
	if cfg.baseDir == "" && cfg.templates == nil {
		return nil, errors.New("gotemplate: need to provide either base dir or fs.FS")
	}

	native := []gotemplatepkg.Option{gotemplatepkg.WithExtension(cfg.extension)}
	if cfg.baseDir != "" {
		native = append(native, gotemplatepkg.WithBaseDir(cfg.baseDir))
	}
	if cfg.templates != nil {
		native = append(native, gotemplatepkg.WithFS(cfg.templates))
	}
	if len(cfg.globalData) > 0 {
		native = append(native, gotemplatepkg.WithGlobalData(cfg.globalData))
	}
	if len(cfg.filters) > 0 {
		funcs := make(map[string]any, len(cfg.filters))
		for name, fn := range cfg.filters {
			funcs[name] = pongo2.FilterFunction(fn)
		}
		native = append(native, gotemplatepkg.WithTemplateFunc(funcs))
	}
	native = append(native, cfg.native...)

	engine, err := gotemplatepkg.NewRenderer(native...)
	if err != nil {
		return nil, fmt.Errorf("gotemplate: build go-template engine: %w", err)
	}
	registerDefaultFilters()
	for _, hook := range cfg.postHooks {
		engine.RegisterPostHook(hook)
	}
	return engine, nil
}
