// OncoSight TUI - terminal client for the OncoSight clinical assistant.
//
// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/oncosight/oncosight-tui/internal/api"
	"github.com/oncosight/oncosight-tui/internal/auth"
	"github.com/oncosight/oncosight-tui/internal/chat"
	"github.com/oncosight/oncosight-tui/internal/cli"
	"github.com/oncosight/oncosight-tui/internal/config"
	"github.com/oncosight/oncosight-tui/internal/health"
	"github.com/oncosight/oncosight-tui/internal/storage"
	"github.com/oncosight/oncosight-tui/internal/ui"
	"github.com/oncosight/oncosight-tui/internal/ui/styles"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file (default ~/.oncosight/config.toml)")
		plain      = flag.Bool("plain", false, "line mode instead of the full-screen interface")
		chatID     = flag.String("chat", "", "resume the given chat id")
		modeFlag   = flag.String("mode", "", "agent mode: general, patient, research")
		baseURL    = flag.String("server", "", "backend base URL (overrides config)")
		version    = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Printf("oncosight-tui %s (%s)\n", Version, GitCommit)
		return
	}

	if err := run(*configPath, *plain, *chatID, *modeFlag, *baseURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, plain bool, chatID, modeFlag, baseURL string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if baseURL != "" {
		cfg.Server.BaseURL = baseURL
	}
	if modeFlag != "" {
		cfg.Agent.Mode = modeFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	stateDir := cfg.StateDir()
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	closeLog, err := setupLogging(stateDir)
	if err != nil {
		return err
	}
	defer closeLog()
	log.Printf("oncosight-tui %s starting, server %s", Version, cfg.Server.BaseURL)

	// Wiring: client <-> session manager form a loop through the
	// TokenSource interface.
	client := api.NewClient(cfg.Server.BaseURL).WithTimeout(cfg.Timeout())
	session := auth.NewManager(client, auth.NewFileStore(stateDir))
	client.WithTokenSource(session)

	historyClient := chat.NewHistoryClient(client, func() string {
		if id := session.Identity(); id != nil {
			return id.UserID
		}
		return ""
	})

	mode, err := chat.ParseMode(cfg.Agent.Mode)
	if err != nil {
		return err
	}
	engine := chat.NewEngine(client, session, historyClient, mode)
	engine.SetDeepTimeout(cfg.DeepTimeout())
	if cfg.UI.Greeting != "" {
		engine.SetGreeting(cfg.UI.Greeting)
	}

	monitor := health.NewMonitor(client, cfg.HealthInterval())
	monitor.Start()
	defer monitor.Stop()

	cache, err := storage.Open(stateDir)
	if err != nil {
		// The recents cache is an optimization; run without it.
		log.Printf("chat cache unavailable: %v", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	// Restore a persisted session. Outages keep the stored tokens and
	// proceed; the user can retry from inside the app.
	ctx := context.Background()
	if err := session.Bootstrap(ctx); err != nil && !errors.Is(err, auth.ErrUnauthenticated) {
		log.Printf("session restore deferred: %v", err)
	}

	// Config hot reload adjusts the agent mode of a running session.
	stopWatch := make(chan struct{})
	defer close(stopWatch)
	watchPath := configPath
	if watchPath == "" {
		watchPath = config.DefaultPath()
	}
	if err := config.Watch(watchPath, func(next config.Config) {
		if m, err := chat.ParseMode(next.Agent.Mode); err == nil {
			engine.SetMode(m)
		}
		engine.SetDeepTimeout(next.DeepTimeout())
	}, stopWatch); err != nil {
		log.Printf("config watch unavailable: %v", err)
	}

	if plain || cfg.UI.PlainMode {
		return runPlain(ctx, stateDir, session, engine, historyClient, monitor, chatID)
	}
	return runTUI(ctx, cfg, session, engine, historyClient, monitor, cache, chatID)
}

// =============================================================================
// FRONTENDS
// =============================================================================

func runTUI(ctx context.Context, cfg config.Config, session *auth.Manager, engine *chat.Engine,
	historyClient *chat.HistoryClient, monitor *health.Monitor, cache *storage.Cache, chatID string) error {

	if chatID != "" && session.Authenticated() {
		engine.Open(ctx, chatID)
	}

	app := ui.NewApp(ui.Deps{
		Session: session,
		Engine:  engine,
		History: historyClient,
		Monitor: monitor,
		Cache:   cache,
		Theme:   styles.NewTheme(cfg.UI.Theme),
	})

	program := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("interface error: %w", err)
	}
	return nil
}

func runPlain(ctx context.Context, stateDir string, session *auth.Manager, engine *chat.Engine,
	historyClient *chat.HistoryClient, monitor *health.Monitor, chatID string) error {

	repl := cli.New(stateDir, session, engine, historyClient, monitor)
	defer repl.Close()

	if err := repl.EnsureLogin(ctx); err != nil {
		return err
	}
	if chatID != "" {
		engine.Open(ctx, chatID)
	}
	return repl.Run(ctx)
}

// =============================================================================
// LOGGING
// =============================================================================

// setupLogging sends the standard logger to a file: stdout and stderr
// belong to the terminal interface.
func setupLogging(stateDir string) (func(), error) {
	path := filepath.Join(stateDir, "oncosight.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.SetOutput(f)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	return func() { f.Close() }, nil
}
