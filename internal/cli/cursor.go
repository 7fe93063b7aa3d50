package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/antonio/obsidian-task-archiver/internal/editor"
)

func newTaskCmd(app *App) *cobra.Command {
	var line, column int

	cmd := &cobra.Command{
		Use:   "task FILE",
		Short: "Archive the single task at a cursor position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runCursorOp(cmd, args[0], line, column, func(arch cursorArchiver, path string, ed editor.Editor) (string, error) {
				return arch.ArchiveTaskAtCursor(path, ed)
			})
		},
	}

	cmd.Flags().IntVar(&line, "line", 0, "cursor line (0-based)")
	cmd.Flags().IntVar(&column, "column", 0, "cursor column")
	return cmd
}

func newHeadingCmd(app *App) *cobra.Command {
	var line, column int

	cmd := &cobra.Command{
		Use:   "heading FILE",
		Short: "Archive the heading at a cursor position with its entire sub-tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runCursorOp(cmd, args[0], line, column, func(arch cursorArchiver, path string, ed editor.Editor) (string, error) {
				return arch.ArchiveHeadingAtCursor(path, ed)
			})
		},
	}

	cmd.Flags().IntVar(&line, "line", 0, "cursor line (0-based)")
	cmd.Flags().IntVar(&column, "column", 0, "cursor column")
	return cmd
}

type cursorArchiver interface {
	ArchiveTaskAtCursor(string, editor.Editor) (string, error)
	ArchiveHeadingAtCursor(string, editor.Editor) (string, error)
}

// runCursorOp loads the document into an editor buffer, runs the operation
// at the given position, and writes the mutated buffer back.
func (app *App) runCursorOp(cmd *cobra.Command, path string, line, column int, op func(cursorArchiver, string, editor.Editor) (string, error)) error {
	arch, v, err := app.newArchiver()
	if err != nil {
		return err
	}
	if ok, err := v.Exists(path); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("document not found: %s", path)
	}
	lines, err := v.ReadLines(path)
	if err != nil {
		return err
	}
	buf := editor.NewBuffer(lines, arch.Settings().Indent())
	buf.SetCursor(editor.Position{Line: line, Column: column})

	report, err := op(arch, path, buf)
	if err != nil {
		return err
	}
	if err := v.WriteLines(path, buf.Lines()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), report)
	return nil
}
