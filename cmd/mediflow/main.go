package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mediflow/mediflow/internal/adherence"
	"github.com/mediflow/mediflow/internal/app"
	"github.com/mediflow/mediflow/internal/config"
	"github.com/mediflow/mediflow/internal/lookup"
	"github.com/mediflow/mediflow/internal/notify"
	"github.com/mediflow/mediflow/internal/sched"
	"github.com/mediflow/mediflow/internal/storage"
	"github.com/mediflow/mediflow/internal/update"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mediflow failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	repo, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer repo.DB().Close()
	if err := storage.MigrateUp(repo.DB()); err != nil {
		return err
	}

	engine := notify.NewEngine(64)
	engine.Start()
	defer engine.Stop()

	service := app.NewService(repo, sched.New(engine), adherence.NewLedger(repo), cfg)

	ctx := context.Background()
	user, err := service.EnsureUser(ctx, cfg.UserName)
	if err != nil {
		return err
	}
	if err := service.Startup(ctx, user.ID); err != nil {
		// Unarmed reminders are repaired on the next reconcile; keep going.
		log.Printf("mediflow: startup left warnings: %v", err)
	}

	finder := lookup.NewClient(cfg.LookupBaseURL)
	program := tea.NewProgram(update.NewModel(service, finder, engine.C(), user.ID))
	if _, err := program.Run(); err != nil {
		return err
	}
	return nil
}
