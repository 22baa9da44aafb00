// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command routing for memobot.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdSessions
	CmdExport
	CmdDelete
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Offline    bool
	ConfigPath string

	// Command-specific
	Subcommand string
	Raw        []string
}

const usageText = `memobot - assistant de choix de sujet de mémoire

Usage:
  memobot                      Démarrer le chat (TUI)
  memobot sessions             Lister les conversations sauvegardées
  memobot sessions show <id>   Afficher une conversation
  memobot export <id> [path]   Exporter une conversation en Markdown
  memobot delete <id>          Supprimer une conversation
  memobot config [show|init]   Configuration
  memobot version              Afficher la version

Flags:
  --offline          Mode hors-ligne (réponses locales scriptées)
  --config <path>    Charger la configuration depuis ce fichier

Environment:
  MEMOBOT_BACKEND_URL   URL du backend
  MEMOBOT_API_TOKEN     Jeton d'authentification
  MEMOBOT_OFFLINE       "1" pour le mode hors-ligne
`

// Parse reads os.Args and returns the command to run plus its arguments.
func Parse() (Command, Args) {
	args := Args{}
	rest := make([]string, 0, len(os.Args)-1)

	// Global flags first; everything else stays positional.
	argv := os.Args[1:]
	for i := 0; i < len(argv); i++ {
		switch argv[i] {
		case "--offline":
			args.Offline = true
		case "--config":
			if i+1 < len(argv) {
				i++
				args.ConfigPath = argv[i]
			}
		case "-h", "--help", "help":
			return CmdHelp, args
		default:
			rest = append(rest, argv[i])
		}
	}

	if len(rest) == 0 {
		return CmdTUI, args
	}

	cmd := strings.ToLower(rest[0])
	args.Raw = rest[1:]
	if len(args.Raw) > 0 {
		args.Subcommand = args.Raw[0]
	}

	switch cmd {
	case "sessions", "session", "list":
		return CmdSessions, args
	case "export":
		return CmdExport, args
	case "delete", "rm":
		return CmdDelete, args
	case "config":
		return CmdConfig, args
	case "version", "-v", "--version":
		return CmdVersion, args
	default:
		fmt.Fprintf(os.Stderr, "commande inconnue : %s\n\n", rest[0])
		return CmdHelp, args
	}
}

// PrintUsage writes the usage text to stdout.
func PrintUsage() {
	fmt.Print(usageText)
}

// HandleVersion prints version information.
func HandleVersion() {
	fmt.Printf("memobot %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}
