package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/lineage/internal/cache"
	"github.com/roach88/lineage/internal/config"
	"github.com/roach88/lineage/internal/engine"
	"github.com/roach88/lineage/internal/ir"
	"github.com/roach88/lineage/internal/store"

	// Backends register themselves with store.Open.
	_ "github.com/roach88/lineage/internal/store/graphdb"
	_ "github.com/roach88/lineage/internal/store/kv"
	_ "github.com/roach88/lineage/internal/store/sqlite"
)

// defaultProgram is recorded in sessions when the config names none.
const defaultProgram = "lineage"

// env is everything a command needs to talk to one store.
type env struct {
	cfg     *config.Config
	logger  *logrus.Logger
	backend store.Backend
	engine  *engine.Engine
	objects *cache.ObjectCache // nil when caching is disabled
	out     *OutputFormatter
}

// loadConfig layers the root flags over file, environment and defaults.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	v := viper.New()
	config.SetDefaults(v)
	config.SetupEnv(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to read config %s", opts.ConfigFile), err)
		}
	}
	if opts.Backend != "" {
		v.Set("storage.backend", opts.Backend)
	}
	if opts.Database != "" {
		v.Set("storage.path", opts.Database)
	}
	if opts.Verbose {
		v.Set("log.level", "debug")
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}

// openEnv loads configuration, opens the backend and starts a session.
// The caller must Close the returned env.
func openEnv(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger, err := cfg.Log.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid log configuration", err)
	}

	backend, err := store.Open(ctx, cfg.StoreConfig(logger))
	if err != nil {
		return nil, WrapExitError(ExitUnavailable, fmt.Sprintf("failed to open %s store", cfg.Storage.Backend), err)
	}

	program := cfg.Session.Program
	if program == "" {
		program = defaultProgram
	}
	engineOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithProgram(program, ir.EngineVersion),
		engine.WithRetryPolicy(engine.RetryPolicy{
			MaxAttempts: cfg.Engine.Retry.MaxAttempts,
			BaseDelay:   cfg.Engine.Retry.BaseDelay,
			MaxDelay:    cfg.Engine.Retry.MaxDelay,
		}),
	}
	if cfg.Session.Originator != "" {
		engineOpts = append(engineOpts, engine.WithOriginator(cfg.Session.Originator))
	}
	eng, err := engine.New(ctx, backend, engineOpts...)
	if err != nil {
		backend.Close()
		return nil, WrapExitError(ExitUnavailable, "failed to start session", err)
	}

	e := &env{
		cfg:     cfg,
		logger:  logger,
		backend: backend,
		engine:  eng,
		out:     newFormatter(opts, cmd),
	}
	if cfg.Cache.Enabled {
		e.objects, err = cache.New(eng, cfg.Cache.MaxEntries)
		if err != nil {
			e.Close()
			return nil, WrapExitError(ExitCommandError, "failed to create object cache", err)
		}
	}
	return e, nil
}

// objectInfo reads an identity record through the cache when one is
// configured and fills in the current version.
func (e *env) objectInfo(ctx context.Context, id ir.ObjectID) (ir.Object, error) {
	if e.objects == nil {
		return e.engine.GetObjectInfo(ctx, id)
	}
	obj, err := e.objects.Get(ctx, id)
	if err != nil {
		return ir.Object{}, err
	}
	obj.Version, err = e.engine.GetVersion(ctx, id)
	if err != nil {
		return ir.Object{}, err
	}
	return obj, nil
}

// Close releases the cache and the backend.
func (e *env) Close() {
	if e.objects != nil {
		e.objects.Close()
	}
	if err := e.backend.Close(); err != nil {
		e.logger.WithError(err).Warn("closing store")
	}
}

// withEnv runs fn against a freshly opened env and maps engine errors to
// exit codes.
func withEnv(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := openEnv(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := fn(ctx, e); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return err
		}
		return e.out.Fail(err)
	}
	return nil
}
