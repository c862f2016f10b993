package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"classgrid/internal/config"
	appLog "classgrid/internal/log"
	"classgrid/internal/source"
	"classgrid/internal/store"
)

const version = "0.3.0"

func main() {
	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "classgrid",
		Short:         "Weekly class schedule viewer",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "./config.yaml", "path to config file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newPrintCmd(&configPath))
	root.AddCommand(newTUICmd(&configPath))
	root.AddCommand(newCaptureCmd(&configPath))
	root.AddCommand(newICSCmd(&configPath))
	return root
}

// app is the wired-up set of collaborators shared by every command.
type app struct {
	cfg   *config.Config
	store *store.Store
}

func loadApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	appLog.Setup(cfg.LogLevel, cfg.LogFormat)

	sources := make([]source.Source, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		sources = append(sources, source.Source{
			ID:     s.ID,
			Name:   s.Name,
			URL:    s.URL,
			Path:   s.Path,
			Format: s.Format,
		})
	}
	loader := source.NewLoader(source.NewFetcher(cfg.CacheDir), sources, source.SheetOptions{
		Name:        cfg.Sheet.Name,
		HeaderRow:   cfg.Sheet.HeaderRow,
		UpdatedCell: cfg.Sheet.UpdatedCell,
	})

	st := store.New(loader, store.Options{
		PreferredLocation: cfg.PreferredLocation,
		WeekStart:         cfg.WeekStart,
		Programs:          cfg.Programs,
		BeginnerKeywords:  cfg.BeginnerKeywords,
	})

	appLog.Info("effective config",
		"config_path", configPath,
		"listen", cfg.Listen,
		"sources", len(cfg.Sources),
		"preferred_location", cfg.PreferredLocation,
		"week_start", cfg.WeekStart,
		"breakpoint", cfg.Breakpoint,
		"refresh", cfg.RefreshCron,
	)
	return &app{cfg: cfg, store: st}, nil
}

// mustLoad performs the first reload for one-shot commands, which have
// nothing to show without data.
func (a *app) mustLoad(ctx context.Context) error {
	if err := a.store.Reload(ctx); err != nil {
		if errors.Is(err, source.ErrUnavailable) {
			return fmt.Errorf("no schedule data: %w", err)
		}
		return err
	}
	return nil
}
