package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"kanban/config"
	"kanban/notify"
	"kanban/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:          "storage-init",
		Short:        "Create the tables, queues and directories the api expects",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if cfg.Debug {
				log.SetLevel(log.DebugLevel)
			}
			log.Info("storage init starting")

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			if err := run(ctx, cfg); err != nil {
				return fmt.Errorf("storage init: %w", err)
			}
			log.Info("storage init complete")
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("KANBAN_CONFIG"), "path to a YAML config file")
	return root
}

// run creates whatever the configured backend and event targets need to
// exist before the api starts. Existing resources are left alone.
func run(ctx context.Context, cfg config.Config) error {
	if cfg.Storage.Tables != "" && cfg.Storage.Table != "" {
		if err := createTable(ctx, cfg.Storage.Tables, cfg.Storage.Table); err != nil {
			return err
		}
	}
	if cfg.Events.Queue != "" {
		if err := createQueue(ctx, cfg.Storage.Tables, cfg.Events.Queue); err != nil {
			return err
		}
	}
	if cfg.Storage.MySQL != "" {
		kv, err := storage.OpenSQLKV(ctx, cfg.Storage.MySQL)
		if err != nil {
			return err
		}
		defer kv.Close()
		log.Info("mysql schema ready")
	}
	if cfg.Storage.Backend == config.BackendFile {
		if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
			return err
		}
		log.WithField("dir", cfg.Storage.DataDir).Info("data dir ready")
	}
	return nil
}

func createTable(ctx context.Context, connStr, name string) error {
	kv, err := storage.NewTableKV(connStr, name)
	if err != nil {
		return err
	}
	if err := kv.EnsureTable(ctx); err != nil {
		return err
	}
	log.WithField("table", name).Info("table ready")
	return nil
}

func createQueue(ctx context.Context, connStr, name string) error {
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, name, notify.QueueClientOptions())
	if err != nil {
		return err
	}
	_, err = q.Create(ctx, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if !(errors.As(err, &respErr) && respErr.ErrorCode == "QueueAlreadyExists") {
			return err
		}
	}
	log.WithField("queue", name).Info("queue ready")
	return nil
}
