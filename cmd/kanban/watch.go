package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"kanban/domain"
	"kanban/notify"
)

func newWatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print board events as they are published",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, func(ctx context.Context, e *env) error {
				if e.cfg.Events.Channel == "" || e.backend.Redis == nil {
					return errors.New("watch needs EVENTS_CHANNEL and REDIS_CONNECTION_STRING")
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "watching %s, ctrl+c to stop\n", e.cfg.Events.Channel)
				out := cmd.OutOrStdout()
				notify.Subscribe(ctx, e.backend.Redis, e.cfg.Events.Channel, e.logger, func(ev domain.BoardEvent) {
					printEvent(out, ev)
				})
				return nil
			})
		},
	}
}

func printEvent(w io.Writer, ev domain.BoardEvent) {
	at := time.UnixMilli(ev.Time).Format(time.RFC3339)
	line := fmt.Sprintf("%s %-16s %s", at, ev.Type, ev.Cause)
	if ev.Board != nil {
		line += fmt.Sprintf(" columns=%d tasks=%d", len(ev.Board.ColumnOrder), len(ev.Board.Tasks))
	}
	fmt.Fprintln(w, line)
}
