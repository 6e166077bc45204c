package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"kanban/config"
	"kanban/domain"
	"kanban/notify"
	"kanban/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type options struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "kanban",
		Short:        "Manage a kanban board from the terminal",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("KANBAN_CONFIG"), "path to a YAML config file")

	root.AddCommand(
		newShowCmd(opts),
		newTaskCmd(opts),
		newColumnCmd(opts),
		newExportCmd(opts),
		newTUICmd(opts),
		newWatchCmd(opts),
	)
	return root
}

// env is everything a subcommand needs to read and change the board.
type env struct {
	cfg      config.Config
	backend  *storage.Backend
	store    *storage.Adapter
	manager  *domain.Manager
	pub      notify.Publisher
	closePub func()
	logger   *log.Logger
}

func openEnv(ctx context.Context, opts *options) (*env, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger := log.StandardLogger()
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	backend, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	pub, closePub, err := notify.Open(cfg, backend.Redis, logger)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("notify: %w", err)
	}
	return &env{
		cfg:      cfg,
		backend:  backend,
		store:    storage.NewAdapter(backend, cfg.Storage.Key, logger),
		manager:  domain.NewManager(nil),
		pub:      pub,
		closePub: closePub,
		logger:   logger,
	}, nil
}

func (e *env) Close() {
	e.closePub()
	if err := e.backend.Close(); err != nil {
		e.logger.Warnf("close storage: %v", err)
	}
}

// apply runs one command against the stored board, saves the result and
// announces it. It reports false when the command changed nothing.
func (e *env) apply(ctx context.Context, typ string, data any) (domain.Board, bool, error) {
	b, err := e.load(ctx)
	if err != nil {
		return b, false, err
	}
	cmd, err := domain.NewCommand(typ, data)
	if err != nil {
		return b, false, err
	}
	cmd.IdempotencyKey = uuid.NewString()
	cmd.Timestamp = time.Now().UnixMilli()

	next, changed, err := e.manager.Apply(b, cmd)
	if err != nil || !changed {
		return b, false, err
	}
	if err := e.store.SaveErr(ctx, next); err != nil {
		return b, false, err
	}
	if evType, ok := domain.EventForCommand(typ); ok {
		if err := e.pub.Publish(ctx, domain.NewEvent(evType, cmd.IdempotencyKey, next)); err != nil {
			e.logger.WithError(err).Warn("publish board event failed")
		}
	}
	return next, true, nil
}

func (e *env) load(ctx context.Context) (domain.Board, error) {
	b, err := e.store.LoadErr(ctx)
	if err != nil {
		return b, fmt.Errorf("load board: %w", err)
	}
	return b, nil
}

// run opens an env for the duration of fn.
func run(cmd *cobra.Command, opts *options, fn func(ctx context.Context, e *env) error) error {
	ctx := cmd.Context()
	e, err := openEnv(ctx, opts)
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(ctx, e)
}
