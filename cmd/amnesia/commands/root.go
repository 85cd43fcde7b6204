// Package commands implements the amnesia CLI. The root command runs
// the editing session; everything the editing surface does goes through
// the session controller so idle-timer resets stay centralized.
package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Laticee/amnesia/internal/config"
	"github.com/Laticee/amnesia/internal/logging"
)

// NewRootCommand builds the root command. Running it without a
// subcommand starts an editing session, optionally loading a saved
// note.
func NewRootCommand(cfg *config.Config, version string) *cobra.Command {
	var (
		configFile     string
		noColor        bool
		debug          bool
		nonInteractive bool

		ttl        time.Duration
		idle       time.Duration
		stealthOn  bool
		useKeyring bool
		readOnly   bool
	)

	cmd := &cobra.Command{
		Use:   "amnesia [file]",
		Short: "Volatile-first secure notepad",
		Long: `amnesia keeps your note in RAM only. Nothing touches disk unless you
explicitly save, and saves are password-encrypted containers. The note
is wiped when you exit, when the TTL expires, or when you go idle.

Editor input is line oriented. Plain lines are appended to the note;
lines starting with ':' are commands:

  :p          print the note
  :w <file>   save as an encrypted container
  :ro         make the note read-only
  :rw         make a loaded (read-only) note editable
  :blur       mask the note in RAM (requires stealth encryption)
  :focus      unmask the note
  :status     show session status
  :q          wipe and exit`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Logger = logging.New(debug, noColor)
			cfg.Path = configFile
			cfg.NonInteractive = nonInteractive
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			p := editorParams{
				stealthOn:  cfg.Options.StealthEncryption,
				ttl:        cfg.Options.TTL.Std(),
				idle:       cfg.Options.IdleTimeout.Std(),
				useKeyring: useKeyring,
				readOnly:   readOnly,
			}
			// Flags override the config file.
			if cmd.Flags().Changed("ttl") {
				p.ttl = ttl
			}
			if cmd.Flags().Changed("idle") {
				p.idle = idle
			}
			if cmd.Flags().Changed("stealth") {
				p.stealthOn = stealthOn
			}
			if len(args) == 1 {
				p.path = args[0]
			}

			return runEditor(cfg, p)
		},
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default: user config dir)")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Never prompt; read passwords from AMNESIA_PASSWORD")

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Self-destruct after this duration (e.g. 10m)")
	cmd.Flags().DurationVar(&idle, "idle", config.DefaultIdleTimeout, "Wipe after this much inactivity")
	cmd.Flags().BoolVar(&stealthOn, "stealth", false, "Mask the RAM buffer with a volatile-only key while idle")
	cmd.Flags().BoolVar(&useKeyring, "keyring", false, "Cache the save password in the OS keyring")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Start the session read-only")

	return cmd
}
