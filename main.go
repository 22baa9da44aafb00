// memobot TUI - a terminal chat assistant for finding a thesis topic.
//
// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/memobot/memobot-tui/internal/cli"
	"github.com/memobot/memobot-tui/internal/config"
	"github.com/memobot/memobot-tui/internal/engine"
	"github.com/memobot/memobot-tui/internal/storage"
	"github.com/memobot/memobot-tui/internal/transport"
	"github.com/memobot/memobot-tui/internal/ui/chat"
	"github.com/memobot/memobot-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI(args)
	case cli.CmdSessions:
		exitOnError(cli.HandleSessions(args))
	case cli.CmdExport:
		exitOnError(cli.HandleExport(args))
	case cli.CmdDelete:
		exitOnError(cli.HandleDelete(args))
	case cli.CmdConfig:
		exitOnError(cli.HandleConfig(args))
	case cli.CmdVersion:
		cli.HandleVersion()
	case cli.CmdHelp:
		cli.PrintUsage()
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erreur : %v\n", err)
		os.Exit(1)
	}
}

// runTUI starts the chat interface.
func runTUI(args cli.Args) {
	cfg, err := loadConfig(args)
	exitOnError(err)
	if args.Offline {
		cfg.OfflineMode = true
	}

	adapter := buildAdapter(cfg)
	store := openStore(cfg)
	if store != nil {
		defer store.Close()
	}

	snaps, sink := chat.NewSnapshotChannel()
	eng := engine.New(adapter, sink, engine.Config{
		Timeout:      time.Duration(cfg.Session.TimeoutSecs) * time.Second,
		MaxAttempts:  cfg.Session.MaxAttempts,
		BackoffBase:  time.Duration(cfg.Session.BackoffBaseMs) * time.Millisecond,
		BackoffMax:   time.Duration(cfg.Session.BackoffMaxMs) * time.Millisecond,
		HistoryTurns: cfg.Session.HistoryTurns,
		Greeting:     engine.DefaultGreeting,
	})

	theme := styles.NewTheme(cfg.UI.Theme)
	model := chat.New(eng, store, snaps, theme, chat.Options{
		ExportDir:       exportDir(),
		ShowSuggestions: cfg.UI.ShowSuggestions,
	})

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Erreur : %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(args cli.Args) (*config.Config, error) {
	if args.ConfigPath != "" {
		return config.LoadFromPath(args.ConfigPath)
	}
	return config.Load()
}

// buildAdapter picks the transport: HTTP backend or scripted offline replies.
func buildAdapter(cfg *config.Config) transport.Adapter {
	if cfg.OfflineMode {
		return transport.NewScriptAdapter()
	}
	return transport.NewClient(cfg.Backend.URL, cfg.Backend.APIToken).
		WithRatePerMinute(cfg.Backend.RatePerMinute)
}

// openStore opens transcript persistence; the chat still works without it.
func openStore(cfg *config.Config) *storage.TranscriptStore {
	path := cfg.Storage.DBPath
	if path == "" {
		var err error
		path, err = storage.DefaultPath()
		if err != nil {
			log.Printf("persistance désactivée : %v", err)
			return nil
		}
	}

	store, err := storage.Open(path)
	if err != nil {
		log.Printf("persistance désactivée : %v", err)
		return nil
	}
	if cfg.Storage.MaxSessions > 0 {
		store.MaxSessions = cfg.Storage.MaxSessions
	}
	return store
}

// exportDir returns where Markdown exports land (~/.memobot/exports).
func exportDir() string {
	dir, err := config.ConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "exports")
}
