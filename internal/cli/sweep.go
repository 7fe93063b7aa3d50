package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/antonio/obsidian-task-archiver/internal/extract"
)

func newSweepCmd(app *App) *cobra.Command {
	var deep bool

	cmd := &cobra.Command{
		Use:   "sweep FILE",
		Short: "Move completed tasks from FILE to their configured destinations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arch, v, err := app.newArchiver()
			if err != nil {
				return err
			}
			if ok, err := v.Exists(args[0]); err != nil {
				return err
			} else if !ok {
				return fmt.Errorf("document not found: %s", args[0])
			}
			report, err := arch.ArchiveMatching(args[0], mode(deep))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&deep, "deep", false, "test every nested task independently instead of whole top-level items")
	return cmd
}

func newDeleteCmd(app *App) *cobra.Command {
	var deep bool

	cmd := &cobra.Command{
		Use:   "delete FILE",
		Short: "Delete completed tasks from FILE instead of archiving them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arch, v, err := app.newArchiver()
			if err != nil {
				return err
			}
			if ok, err := v.Exists(args[0]); err != nil {
				return err
			} else if !ok {
				return fmt.Errorf("document not found: %s", args[0])
			}
			report, err := arch.DeleteMatching(args[0], mode(deep))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&deep, "deep", false, "test every nested task independently instead of whole top-level items")
	return cmd
}

func mode(deep bool) extract.Mode {
	if deep {
		return extract.Deep
	}
	return extract.Shallow
}
