package commands

import (
	"bytes"
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"golang.org/x/term"

	"github.com/Laticee/amnesia/internal/config"
	amErrors "github.com/Laticee/amnesia/internal/errors"
)

// passwordEnvVar lets scripts and tests supply the password without a
// terminal.
const passwordEnvVar = "AMNESIA_PASSWORD"

// promptPassword reads a password without echo. The surface loop owns
// stdin, so prompting always goes through the controlling terminal.
// With confirm set the password is asked twice and must match.
func promptPassword(cfg *config.Config, prompt string, confirm bool) ([]byte, error) {
	if env := os.Getenv(passwordEnvVar); env != "" {
		return []byte(env), nil
	}
	if cfg.NonInteractive {
		return nil, amErrors.UserError{
			Message:    "No password available in non-interactive mode",
			Suggestion: "Set the " + passwordEnvVar + " environment variable",
		}
	}

	password, err := readFromTTY(prompt)
	if err != nil {
		return nil, err
	}
	if !confirm {
		return password, nil
	}

	again, err := readFromTTY("Confirm password: ")
	if err != nil {
		memguard.WipeBytes(password)
		return nil, err
	}
	defer memguard.WipeBytes(again)

	if !bytes.Equal(password, again) {
		memguard.WipeBytes(password)
		return nil, amErrors.UserError{
			Message: "Passwords do not match",
		}
	}
	return password, nil
}

func readFromTTY(prompt string) ([]byte, error) {
	tty, err := os.Open("/dev/tty")
	if err != nil {
		return nil, amErrors.UserError{
			Message:    "Cannot prompt for a password without a terminal",
			Suggestion: "Set the " + passwordEnvVar + " environment variable",
			Err:        err,
		}
	}
	defer tty.Close()

	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(tty.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return password, nil
}
