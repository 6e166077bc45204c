package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"kanban/domain"
)

func newShowCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, func(ctx context.Context, e *env) error {
				b, err := e.load(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					enc := sonic.ConfigStd.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(b)
				}
				printBoard(cmd.OutOrStdout(), b)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the stored JSON snapshot")
	return cmd
}

func printBoard(w io.Writer, b domain.Board) {
	for _, col := range b.OrderedColumns() {
		fmt.Fprintf(w, "%s [%s]\n", col.Title, col.ID)
		tasks := b.TasksIn(col.ID)
		if len(tasks) == 0 {
			fmt.Fprintln(w, "  (empty)")
		}
		for i, task := range tasks {
			fmt.Fprintf(w, "  %d. %s [%s]\n", i, task.Content, task.ID)
		}
	}
}

// report prints the outcome of a single command.
func report(cmd *cobra.Command, changed bool, done string) {
	if !changed {
		fmt.Fprintln(cmd.OutOrStdout(), "nothing changed")
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), done)
}

func newTaskCmd(opts *options) *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Add, edit, move or remove tasks",
	}

	task.AddCommand(&cobra.Command{
		Use:   "add <column-id> <content>...",
		Short: "Append a task to a column",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, e *env) error {
				data := domain.AddTaskData{ColumnID: args[0], Content: strings.Join(args[1:], " ")}
				_, changed, err := e.apply(ctx, domain.CmdAddTask, data)
				if err != nil {
					return err
				}
				report(cmd, changed, "task added")
				return nil
			})
		},
	})

	task.AddCommand(&cobra.Command{
		Use:   "edit <task-id> <content>...",
		Short: "Replace a task's content",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, e *env) error {
				data := domain.EditTaskData{TaskID: args[0], Content: strings.Join(args[1:], " ")}
				_, changed, err := e.apply(ctx, domain.CmdEditTask, data)
				if err != nil {
					return err
				}
				report(cmd, changed, "task updated")
				return nil
			})
		},
	})

	task.AddCommand(&cobra.Command{
		Use:     "rm <task-id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, e *env) error {
				b, err := e.load(ctx)
				if err != nil {
					return err
				}
				t, ok := b.Tasks[args[0]]
				if !ok {
					return fmt.Errorf("unknown task %q", args[0])
				}
				data := domain.DeleteTaskData{TaskID: t.ID, ColumnID: t.Column}
				_, changed, err := e.apply(ctx, domain.CmdDeleteTask, data)
				if err != nil {
					return err
				}
				report(cmd, changed, "task deleted")
				return nil
			})
		},
	})

	task.AddCommand(&cobra.Command{
		Use:   "mv <task-id> <column-id> [index]",
		Short: "Move a task to a column, at the end unless an index is given",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, e *env) error {
				b, err := e.load(ctx)
				if err != nil {
					return err
				}
				t, ok := b.Tasks[args[0]]
				if !ok {
					return fmt.Errorf("unknown task %q", args[0])
				}
				index := len(b.Columns[args[1]].TaskIDs)
				if len(args) == 3 {
					n, err := strconv.Atoi(args[2])
					if err != nil || n < 0 {
						return fmt.Errorf("invalid index %q", args[2])
					}
					index = n
				}
				data := domain.MoveTaskData{TaskID: t.ID, SourceColumnID: t.Column, DestColumnID: args[1], DestIndex: index}
				_, changed, err := e.apply(ctx, domain.CmdMoveTask, data)
				if err != nil {
					return err
				}
				report(cmd, changed, "task moved")
				return nil
			})
		},
	})

	return task
}

func newColumnCmd(opts *options) *cobra.Command {
	column := &cobra.Command{
		Use:   "column",
		Short: "Add, rename, reorder or remove columns",
	}

	column.AddCommand(&cobra.Command{
		Use:   "add <title>...",
		Short: "Append a column",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, e *env) error {
				_, changed, err := e.apply(ctx, domain.CmdAddColumn, domain.AddColumnData{Title: strings.Join(args, " ")})
				if err != nil {
					return err
				}
				report(cmd, changed, "column added")
				return nil
			})
		},
	})

	column.AddCommand(&cobra.Command{
		Use:   "rename <column-id> <title>...",
		Short: "Change a column's title",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, e *env) error {
				data := domain.RenameColumnData{ColumnID: args[0], Title: strings.Join(args[1:], " ")}
				_, changed, err := e.apply(ctx, domain.CmdRenameColumn, data)
				if err != nil {
					return err
				}
				report(cmd, changed, "column renamed")
				return nil
			})
		},
	})

	column.AddCommand(&cobra.Command{
		Use:     "rm <column-id>",
		Aliases: []string{"delete"},
		Short:   "Delete a column and every task in it",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, e *env) error {
				_, changed, err := e.apply(ctx, domain.CmdDeleteColumn, domain.DeleteColumnData{ColumnID: args[0]})
				if err != nil {
					return err
				}
				report(cmd, changed, "column deleted")
				return nil
			})
		},
	})

	column.AddCommand(&cobra.Command{
		Use:   "mv <column-id> <index>",
		Short: "Move a column to a position in the board order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 0 {
				return fmt.Errorf("invalid index %q", args[1])
			}
			return run(cmd, opts, func(ctx context.Context, e *env) error {
				_, changed, err := e.apply(ctx, domain.CmdReorderColumns, domain.ReorderColumnsData{ColumnID: args[0], DestIndex: n})
				if err != nil {
					return err
				}
				report(cmd, changed, "column moved")
				return nil
			})
		},
	})

	return column
}
