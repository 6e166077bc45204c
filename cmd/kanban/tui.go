package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"kanban/domain"
	"kanban/notify"
	"kanban/tui"
)

func newTUICmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, func(ctx context.Context, e *env) error {
				// the screen belongs to bubbletea, so logs go to a file
				logFile, err := openLogFile(e.cfg.Storage.DataDir)
				if err != nil {
					return err
				}
				defer logFile.Close()
				e.logger.SetOutput(logFile)
				defer e.logger.SetOutput(os.Stderr)

				b, err := e.load(ctx)
				if err != nil {
					return err
				}
				model := tui.New(b, e.manager, e.store, e.logger)
				p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

				if e.cfg.Events.Channel != "" && e.backend.Redis != nil {
					subCtx, cancel := context.WithCancel(ctx)
					defer cancel()
					go notify.Subscribe(subCtx, e.backend.Redis, e.cfg.Events.Channel, e.logger, func(ev domain.BoardEvent) {
						if ev.Board != nil {
							p.Send(tui.BoardMsg{Board: *ev.Board})
							return
						}
						b, err := e.load(subCtx)
						if err != nil {
							e.logger.WithError(err).Warn("reload after event failed")
							return
						}
						p.Send(tui.BoardMsg{Board: b})
					})
				}

				_, err = p.Run()
				return err
			})
		},
	}
}

func openLogFile(dir string) (*os.File, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return os.OpenFile(filepath.Join(dir, "kanban.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
