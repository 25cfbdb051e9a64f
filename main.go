package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/sadopc/nexus/internal/api"
	"github.com/sadopc/nexus/internal/config"
	"github.com/sadopc/nexus/internal/focus"
	"github.com/sadopc/nexus/internal/model"
	"github.com/sadopc/nexus/internal/store"
	"github.com/sadopc/nexus/internal/tasks"
	"github.com/sadopc/nexus/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	// The TUI owns the terminal, so logs go to a file.
	if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	logFile, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	logger := log.NewWithOptions(logFile, log.Options{
		Level:           cfg.LogLevel(),
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})

	dbPath := cfg.Storage.DBPath
	if dbPath == "" {
		if dbPath, err = store.DefaultDBPath(); err != nil {
			return err
		}
	}
	s, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	bridge := tui.NewBridge()

	client, err := api.New(cfg.API.BaseURL, cfg.API.Token,
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(logger.WithPrefix("api")),
		api.WithUnauthorized(bridge.Unauthorized),
	)
	if err != nil {
		return err
	}

	ctl := tasks.New(client,
		tasks.WithCache(s),
		tasks.WithNotify(bridge.Tasks),
		tasks.WithLogger(logger.WithPrefix("tasks")),
		tasks.WithWriteTimeout(cfg.API.WriteTimeout),
	)
	defer ctl.Close()

	work := s.GetIntSetting(store.SettingPomodoroWork, int(model.DefaultFocusDuration/time.Second))
	timer := focus.New(time.Duration(work)*time.Second,
		focus.WithRecorder(client),
		focus.WithJournal(s),
		focus.WithNotify(bridge.Focus),
		focus.WithLogger(logger.WithPrefix("focus")),
	)
	defer timer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("starting", "api", cfg.API.BaseURL, "db", dbPath)

	app := tui.NewApp(tui.Deps{
		Ctx:    ctx,
		Store:  s,
		Tasks:  ctl,
		Timer:  timer,
		Bridge: bridge,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
