package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"kanban/api"
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

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:          "kanban-api",
		Short:        "Serve the board over HTTP",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("KANBAN_CONFIG"), "path to a YAML config file")
	return root
}

// serve runs the api until ctx is cancelled.
func serve(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	backend, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer backend.Close()

	logger := log.StandardLogger()
	store := storage.NewAdapter(backend, cfg.Storage.Key, logger)
	board := store.Load(ctx)

	pub, closePub, err := notify.Open(cfg, backend.Redis, logger)
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	defer closePub()

	var deduper api.Deduper
	if backend.Redis != nil {
		deduper = api.NewRedisDeduper(backend.Redis, cfg.Server.DeduperTTL)
	} else {
		deduper = api.NewMemoryDeduper(cfg.Server.DeduperTTL)
	}

	svc := api.NewBoardService(board, domain.NewManager(nil), store, pub, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderContentEncoding},
	}))
	if cfg.Server.Pprof {
		pprof.Register(e)
	}
	api.Register(e, svc, deduper, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(cfg.Server.Addr)
	}()
	log.WithFields(log.Fields{
		"addr":    cfg.Server.Addr,
		"backend": cfg.Storage.Backend,
		"key":     cfg.Storage.Key,
	}).Info("kanban api started")

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
	log.Info("kanban api stopped")
	return nil
}
