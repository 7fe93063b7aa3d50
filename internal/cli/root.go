// Package cli wires the archiver into cobra commands.
package cli

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/antonio/obsidian-task-archiver/internal/archiver"
	"github.com/antonio/obsidian-task-archiver/internal/config"
	"github.com/antonio/obsidian-task-archiver/internal/vault"
)

// App carries the persistent flags shared by every command.
type App struct {
	VaultRoot    string
	SettingsPath string
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "archiver",
		Short:        "Archive completed checklist items out of markdown documents",
		SilenceUsage: true,
		Example: `  # Move completed tasks in a document into its archive section
  archiver sweep notes/daily.md

  # Same extraction, but discard the tasks
  archiver delete notes/daily.md

  # Archive the single task or heading at a cursor position
  archiver task notes/daily.md --line 12
  archiver heading notes/daily.md --line 3

  # Serve the HTTP API for editor integrations
  archiver serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.VaultRoot, "vault", ".", "vault root directory documents are resolved against")
	cmd.PersistentFlags().StringVar(&app.SettingsPath, "settings", "", "path to the YAML archiver settings file")

	cmd.AddCommand(newSweepCmd(app))
	cmd.AddCommand(newDeleteCmd(app))
	cmd.AddCommand(newTaskCmd(app))
	cmd.AddCommand(newHeadingCmd(app))
	cmd.AddCommand(newServeCmd(app))

	return cmd
}

// Execute runs the CLI and returns a process exit code.
func Execute(args []string) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// newArchiver builds the orchestrator and vault from the persistent flags.
func (app *App) newArchiver() (*archiver.Archiver, *vault.Vault, error) {
	settings, err := config.LoadSettings(app.SettingsPath)
	if err != nil {
		return nil, nil, err
	}
	v := vault.New(app.VaultRoot)
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return archiver.New(v, settings, log, time.Hour), v, nil
}
