package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/antonio/obsidian-task-archiver/internal/api"
	"github.com/antonio/obsidian-task-archiver/internal/archiver"
	"github.com/antonio/obsidian-task-archiver/internal/config"
	"github.com/antonio/obsidian-task-archiver/internal/vault"
)

func newServeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the archiver HTTP API for editor integrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(app)
		},
	}
}

func runServe(app *App) error {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	// Persistent flags override the environment when set.
	if app.VaultRoot != "." {
		cfg.VaultRoot = app.VaultRoot
	}
	if app.SettingsPath != "" {
		cfg.SettingsPath = app.SettingsPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	settings, err := config.LoadSettings(cfg.SettingsPath)
	if err != nil {
		return err
	}

	v := vault.New(cfg.VaultRoot)
	arch := archiver.New(v, settings, log, cfg.OpTTL)
	srv := api.NewServer(arch, v, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Periodic op-log eviction.
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				arch.Ops().Cleanup()
			}
		}
	}()

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting archiver", "port", cfg.Port, "vault", cfg.VaultRoot)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
