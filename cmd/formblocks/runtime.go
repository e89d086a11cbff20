package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	cli "github.com/urfave/cli/v3"

	"github.com/goliatone/go-formblocks/internal/config"
	"github.com/goliatone/go-formblocks/internal/logging"
	"github.com/goliatone/go-formblocks/pkg/blocks"
	"github.com/goliatone/go-formblocks/pkg/form"
	"github.com/goliatone/go-formblocks/pkg/orchestrator"
	"github.com/goliatone/go-formblocks/pkg/renderers/vanilla"
	"github.com/goliatone/go-formblocks/pkg/sandbox"
	"github.com/goliatone/go-formblocks/pkg/schema"
	"github.com/goliatone/go-formblocks/pkg/store"
)

// runtime is the per-invocation wiring built from config and flags.
type runtime struct {
	cfg    config.Config
	logger *slog.Logger
	store  store.Store
	close  func()
}

func (a *app) runtime(ctx context.Context, cmd *cli.Command) (*runtime, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if cmd.IsSet("log-level") {
		cfg.Log.Level = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		cfg.Log.Format = cmd.String("log-format")
	}
	logger := logging.WithModule(logging.New(a.stderr, cfg.Log.Level, cfg.Log.Format), "formblocks")
	slog.SetDefault(logger)

	rt := &runtime{cfg: cfg, logger: logger, close: func() {}}
	switch cfg.Store.Kind {
	case "memory":
		rt.store = store.NewMemoryStore()
	case "file":
		fileStore, err := store.NewFileStore(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		rt.store = fileStore
	case "redis":
		redisStore, client, err := store.DialRedis(ctx, store.RedisOptions{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
			Key:      cfg.Store.Redis.Key,
		})
		if err != nil {
			return nil, err
		}
		rt.store = redisStore
		rt.close = func() {
			if err := client.Close(); err != nil {
				logger.Warn("close redis client", "error", err)
			}
		}
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Store.Kind)
	}
	logger.Debug("runtime ready", "store", cfg.Store.Kind, "sandbox_timeout", cfg.Sandbox.Timeout)
	return rt, nil
}

func (rt *runtime) dispatcher() *blocks.Dispatcher {
	evaluator := sandbox.New(
		sandbox.WithTimeout(rt.cfg.Sandbox.Timeout),
		sandbox.WithMaxCallStack(rt.cfg.Sandbox.MaxCallStack),
		sandbox.WithLogger(rt.logger),
	)
	return blocks.NewDispatcher(
		blocks.WithLogger(rt.logger),
		blocks.WithFormOptions(
			form.WithEvaluator(evaluator),
			form.WithStrictPatterns(rt.cfg.Validation.StrictPatterns),
			form.WithLogger(rt.logger),
		),
	)
}

func (rt *runtime) orchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	base := []orchestrator.Option{
		orchestrator.WithDispatcher(rt.dispatcher()),
		orchestrator.WithLogger(rt.logger),
		orchestrator.WithVanillaOptions(
			vanilla.WithDefaultTheme(rt.cfg.Render.Theme, rt.cfg.Render.Variant),
			vanilla.WithTemplateEngine(rt.cfg.Render.Engine),
		),
	}
	return orchestrator.New(append(base, options...)...)
}

// source resolves the schema argument: a file path, "-" for stdin, or the
// configured store when empty.
func (a *app) source(rt *runtime, arg string) (schema.Source, error) {
	switch arg {
	case "":
		return schema.SourceFromStore(defaultingStore{rt.store}, "store:"+rt.cfg.Store.Kind), nil
	case "-":
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return schema.SourceFromString(string(data)), nil
	default:
		return schema.SourceFromFile(arg), nil
	}
}

// defaultingStore serves store.DefaultSchema until something is saved.
type defaultingStore struct {
	store store.Store
}

func (s defaultingStore) Get(ctx context.Context) (string, error) {
	return store.GetOrDefault(ctx, s.store, store.DefaultSchema)
}
