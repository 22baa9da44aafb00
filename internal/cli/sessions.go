// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions.go - transcript management commands.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/memobot/memobot-tui/internal/config"
	"github.com/memobot/memobot-tui/internal/storage"
	"github.com/memobot/memobot-tui/internal/util"
)

// openStore opens the transcript store from config.
func openStore(args Args) (*storage.TranscriptStore, error) {
	cfg, err := loadConfig(args)
	if err != nil {
		return nil, err
	}

	path := cfg.Storage.DBPath
	if path == "" {
		path, err = storage.DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	store, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.MaxSessions > 0 {
		store.MaxSessions = cfg.Storage.MaxSessions
	}
	return store, nil
}

func loadConfig(args Args) (*config.Config, error) {
	if args.ConfigPath != "" {
		return config.LoadFromPath(args.ConfigPath)
	}
	return config.Load()
}

// HandleSessions lists saved transcripts, or shows one with "show <id>".
func HandleSessions(args Args) error {
	store, err := openStore(args)
	if err != nil {
		return err
	}
	defer store.Close()

	if args.Subcommand == "show" {
		if len(args.Raw) < 2 {
			return errors.New("usage: memobot sessions show <id>")
		}
		return showSession(store, args.Raw[1])
	}

	metas, err := store.List()
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println("Aucune conversation sauvegardée.")
		return nil
	}

	fmt.Printf("%-24s %-40s %8s  %s\n", "ID", "TITRE", "MESSAGES", "MODIFIÉE")
	for _, meta := range metas {
		fmt.Printf("%-24s %-40s %8d  %s\n",
			util.TruncateWidth(meta.ID, 24),
			util.TruncateWidth(meta.Title, 40),
			meta.MessageCount,
			meta.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// showSession prints one transcript to stdout.
func showSession(store *storage.TranscriptStore, sessionID string) error {
	messages, err := store.Load(sessionID)
	if err != nil {
		return err
	}

	for _, msg := range messages {
		fmt.Printf("[%s] %s: %s\n",
			msg.CreatedAt.Format("15:04"),
			msg.Role.DisplayName(),
			msg.Text)
	}
	return nil
}

// HandleExport writes a transcript as Markdown.
func HandleExport(args Args) error {
	if len(args.Raw) < 1 {
		return errors.New("usage: memobot export <id> [path]")
	}
	sessionID := args.Raw[0]

	store, err := openStore(args)
	if err != nil {
		return err
	}
	defer store.Close()

	md, err := store.ExportMarkdown(sessionID)
	if err != nil {
		return err
	}

	path := sessionID + ".md"
	if len(args.Raw) >= 2 {
		path = args.Raw[1]
	}
	if err := util.AtomicWriteFile(path, []byte(md), 0644); err != nil {
		return err
	}

	abs, _ := filepath.Abs(path)
	fmt.Printf("Exporté vers %s\n", abs)
	return nil
}

// HandleDelete removes a saved transcript.
func HandleDelete(args Args) error {
	if len(args.Raw) < 1 {
		return errors.New("usage: memobot delete <id>")
	}

	store, err := openStore(args)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(args.Raw[0]); err != nil {
		return err
	}
	fmt.Printf("Conversation %s supprimée.\n", args.Raw[0])
	return nil
}

// HandleConfig shows or initializes the configuration.
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}
		fmt.Print(cfg.String())
		return nil

	case "init":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("le fichier %s existe déjà", path)
		}
		if err := config.Save(config.Default()); err != nil {
			return err
		}
		fmt.Printf("Configuration créée : %s\n", path)
		return nil

	case "path":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	default:
		return fmt.Errorf("sous-commande config inconnue : %s", args.Subcommand)
	}
}
