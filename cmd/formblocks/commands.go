package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"

	"github.com/goliatone/go-formblocks/pkg/orchestrator"
	"github.com/goliatone/go-formblocks/pkg/render"
	"github.com/goliatone/go-formblocks/pkg/renderers/tui"
	"github.com/goliatone/go-formblocks/pkg/renderers/vanilla"
	"github.com/goliatone/go-formblocks/pkg/schema"
	"github.com/goliatone/go-formblocks/pkg/validation"
)

// errLintFailed is returned when lint found errors, after they were printed.
var errLintFailed = errors.New("schema has errors")

func (a *app) renderCommand() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Render a schema (HTML by default)",
		ArgsUsage: "[schema.json | -]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "renderer", Aliases: []string{"r"}, Usage: "renderer name (vanilla, tui); overrides the config"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file (stdout if empty)"},
			&cli.StringFlag{Name: "theme", Usage: "theme name"},
			&cli.StringFlag{Name: "variant", Usage: "theme variant"},
			&cli.StringFlag{Name: "title", Usage: "page title for standalone output"},
			&cli.BoolFlag{Name: "standalone", Usage: "emit a complete HTML page"},
			&cli.StringFlag{Name: "templates", Usage: "directory with template overrides"},
			&cli.StringFlag{Name: "engine", Usage: "template engine (pongo2, go-template); overrides the config"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rt, err := a.runtime(ctx, cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			src, err := a.source(rt, cmd.Args().First())
			if err != nil {
				return err
			}
			var options []orchestrator.Option
			if dir := cmd.String("templates"); dir != "" {
				options = append(options, orchestrator.WithVanillaOptions(vanilla.WithTemplatesDir(dir)))
			}
			if engine := cmd.String("engine"); engine != "" {
				options = append(options, orchestrator.WithVanillaOptions(vanilla.WithTemplateEngine(engine)))
			}
			rendererName := cmd.String("renderer")
			if rendererName == "" {
				rendererName = rt.cfg.Render.Renderer
			}
			orch := rt.orchestrator(options...)
			if rendererName == tui.Name {
				if err := orch.Registry().Register(tui.New()); err != nil {
					return err
				}
			}

			theme := cmd.String("theme")
			if theme == "" {
				theme = rt.cfg.Render.Theme
			}
			variant := cmd.String("variant")
			if variant == "" && !cmd.IsSet("theme") {
				variant = rt.cfg.Render.Variant
			}

			out, err := orch.Generate(ctx, orchestrator.Request{
				Source:   src,
				Renderer: rendererName,
				RenderOptions: render.RenderOptions{
					Title:        cmd.String("title"),
					Standalone:   cmd.Bool("standalone"),
					ThemeName:    theme,
					ThemeVariant: variant,
				},
			})
			if errors.Is(err, tui.ErrAborted) {
				return nil
			}
			if err != nil {
				return err
			}

			if path := cmd.String("output"); path != "" {
				if err := os.WriteFile(path, out, 0o644); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
				rt.logger.Info("rendered schema", "source", src.Location(), "output", path)
				return nil
			}
			_, err = fmt.Fprintln(a.stdout, string(out))
			return err
		},
	}
}

func (a *app) lintCommand() *cli.Command {
	return &cli.Command{
		Name:      "lint",
		Usage:     "Check a schema and report problems",
		ArgsUsage: "[schema.json | -]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "strict", Usage: "treat unusable field patterns as errors"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rt, err := a.runtime(ctx, cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			src, err := a.source(rt, cmd.Args().First())
			if err != nil {
				return err
			}
			raw, err := schema.Read(ctx, src)
			if err != nil {
				return err
			}

			result := validation.Lint(raw, validation.LintOptions{
				StrictPatterns: cmd.Bool("strict") || rt.cfg.Validation.StrictPatterns,
			})
			for _, issue := range result.Issues {
				path := issue.Path
				if path == "" {
					path = "/"
				}
				fmt.Fprintf(a.stdout, "%s %s: %s\n", issue.Severity, path, issue.Message)
			}
			if !result.Valid {
				return errLintFailed
			}
			if len(result.Issues) == 0 {
				fmt.Fprintln(a.stdout, "ok")
			}
			return nil
		},
	}
}

func (a *app) fillCommand() *cli.Command {
	return &cli.Command{
		Name:      "fill",
		Usage:     "Fill and submit the schema's forms in the terminal",
		ArgsUsage: "[schema.json | -]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Value: string(tui.OutputFormatJSON), Usage: "output format (json, form, pretty)"},
			&cli.IntFlag{Name: "attempts", Usage: "maximum submit attempts per form (0 = ask)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			format, ok := tui.ParseOutputFormat(cmd.String("format"))
			if !ok {
				return fmt.Errorf("unknown output format %q", cmd.String("format"))
			}

			rt, err := a.runtime(ctx, cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			src, err := a.source(rt, cmd.Args().First())
			if err != nil {
				return err
			}

			orch := rt.orchestrator()
			renderer := tui.New(
				tui.WithOutputFormat(format),
				tui.WithMaxAttempts(int(cmd.Int("attempts"))),
				tui.WithTheme(tui.Theme{ErrorPrefix: "✗ "}),
			)
			if err := orch.Registry().Register(renderer); err != nil {
				return err
			}

			out, err := orch.Generate(ctx, orchestrator.Request{Source: src, Renderer: tui.Name})
			if errors.Is(err, tui.ErrAborted) {
				return nil
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.stdout, string(out))
			return err
		},
	}
}

func (a *app) schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Read or replace the stored schema",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Print the stored schema (the default schema when empty)",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					rt, err := a.runtime(ctx, cmd)
					if err != nil {
						return err
					}
					defer rt.close()

					text, err := defaultingStore{rt.store}.Get(ctx)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(a.stdout, strings.TrimRight(text, "\n"))
					return err
				},
			},
			{
				Name:      "set",
				Usage:     "Store a schema read from a file or stdin",
				ArgsUsage: "<schema.json | ->",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Usage: "store even when lint reports errors"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					arg := cmd.Args().First()
					if arg == "" {
						return errors.New("schema set: a file path or - is required")
					}
					rt, err := a.runtime(ctx, cmd)
					if err != nil {
						return err
					}
					defer rt.close()

					var raw []byte
					if arg == "-" {
						raw, err = io.ReadAll(a.stdin)
					} else {
						raw, err = os.ReadFile(arg)
					}
					if err != nil {
						return fmt.Errorf("read schema: %w", err)
					}

					if result := validation.Lint(raw, validation.LintOptions{}); !result.Valid && !cmd.Bool("force") {
						for _, issue := range result.Errors() {
							fmt.Fprintf(a.stderr, "%s %s: %s\n", issue.Severity, issue.Path, issue.Message)
						}
						return errLintFailed
					}
					if err := rt.store.Set(ctx, string(raw)); err != nil {
						return err
					}
					rt.logger.Info("schema stored", "store", rt.cfg.Store.Kind, "bytes", len(raw))
					return nil
				},
			},
		},
	}
}
