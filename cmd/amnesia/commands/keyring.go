package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Laticee/amnesia/internal/config"
	amErrors "github.com/Laticee/amnesia/internal/errors"
	"github.com/Laticee/amnesia/internal/keychain"
)

// NewKeyringCommand creates the keyring command for managing cached
// save passwords.
func NewKeyringCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyring",
		Short: "Manage cached note passwords",
		Long: `Manage save passwords cached in the OS keyring.

Passwords are cached only when a session runs with --keyring, one entry
per note file. The stealth key and derived encryption keys are never
stored anywhere.`,
	}

	cmd.AddCommand(newKeyringCheckCommand(cfg))
	cmd.AddCommand(newKeyringClearCommand(cfg))

	return cmd
}

func newKeyringCheckCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Check whether a password is cached for a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := keychain.Lookup(args[0])
			if errors.Is(err, keychain.ErrNotFound) {
				fmt.Fprintf(cmd.OutOrStdout(), "No cached password for %s\n", args[0])
				return nil
			}
			if err != nil {
				return amErrors.UserError{
					Message:    "Keyring lookup failed",
					Suggestion: "Run 'amnesia doctor' to check keyring availability",
					Err:        err,
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password cached for %s\n", args[0])
			return nil
		},
	}
}

func newKeyringClearCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <file>",
		Short: "Remove the cached password for a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := keychain.Clear(args[0]); err != nil {
				return amErrors.UserError{
					Message:    "Keyring clear failed",
					Suggestion: "Run 'amnesia doctor' to check keyring availability",
					Err:        err,
				}
			}
			cfg.Logger.Info("Cleared cached password for %s", args[0])
			return nil
		},
	}
}
