package main

import (
	"fmt"
	"os"

	"github.com/awnumar/memguard"

	"github.com/Laticee/amnesia/cmd/amnesia/commands"
	"github.com/Laticee/amnesia/internal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		memguard.Purge()
		os.Exit(1)
	}
	memguard.Purge()
}

func run() error {
	cfg := &config.Config{}

	rootCmd := commands.NewRootCommand(cfg,
		fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date))

	rootCmd.AddCommand(
		commands.NewInspectCommand(cfg),
		commands.NewShredCommand(cfg),
		commands.NewDoctorCommand(cfg),
		commands.NewKeyringCommand(cfg),
		commands.NewCompletionCommand(cfg),
	)

	return rootCmd.Execute()
}
