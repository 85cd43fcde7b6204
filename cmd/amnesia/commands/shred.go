package commands

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Laticee/amnesia/internal/config"
	amErrors "github.com/Laticee/amnesia/internal/errors"
	"github.com/Laticee/amnesia/internal/keychain"
)

// NewShredCommand creates the shred command for destroying saved
// containers on disk.
func NewShredCommand(cfg *config.Config) *cobra.Command {
	var (
		force  bool
		passes int
	)

	cmd := &cobra.Command{
		Use:   "shred <file> [file...]",
		Short: "Securely delete saved notes",
		Long: `Securely delete encrypted note containers to prevent recovery.

The file is overwritten with random data multiple times before removal,
and any password cached in the OS keyring for it is cleared. This
operation is irreversible.

Security note: SSDs with wear leveling may retain copies of old blocks.
For strong guarantees rely on full-disk encryption; shred is a
best-effort cleanup on top of that.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if passes < 1 || passes > 10 {
				return amErrors.UserError{
					Message:    "Invalid number of passes",
					Suggestion: "Passes must be between 1 and 10",
				}
			}
			if !force && !confirmShred(cmd, args) {
				cfg.Logger.Info("Operation cancelled")
				return nil
			}
			return shredFiles(cfg, args, passes)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation prompt")
	cmd.Flags().IntVarP(&passes, "passes", "n", 3, "Number of overwrite passes")

	return cmd
}

func confirmShred(cmd *cobra.Command, paths []string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "Files to be securely deleted:\n")
	for _, path := range paths {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", path)
	}
	fmt.Fprint(cmd.OutOrStdout(), "This operation is IRREVERSIBLE. Continue? (y/N): ")

	var response string
	_, _ = fmt.Fscanln(cmd.InOrStdin(), &response)
	response = strings.ToLower(response)
	return response == "y" || response == "yes"
}

func shredFiles(cfg *config.Config, paths []string, passes int) error {
	var failed int
	for _, path := range paths {
		if err := shredFile(path, passes); err != nil {
			cfg.Logger.Error("Failed to shred %s: %v", path, err)
			failed++
			continue
		}
		// Drop the cached password too; the container it unlocked is gone.
		if err := keychain.Clear(path); err != nil {
			cfg.Logger.Debug("keyring clear for %s: %v", path, err)
		}
		cfg.Logger.Info("Shredded %s (%d passes)", path, passes)
	}

	if failed > 0 {
		return amErrors.UserError{
			Message:    fmt.Sprintf("Failed to shred %d of %d files", failed, len(paths)),
			Suggestion: "Check file permissions and that the files exist",
		}
	}
	return nil
}

func shredFile(path string, passes int) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	size := info.Size()
	if size == 0 {
		return os.Remove(path)
	}

	// Saved containers are written read-only.
	if err := os.Chmod(path, 0o600); err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}

	for pass := 0; pass < passes; pass++ {
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			_ = file.Close()
			return err
		}
		if err := overwriteRandom(file, size); err != nil {
			_ = file.Close()
			return err
		}
		if err := file.Sync(); err != nil {
			_ = file.Close()
			return err
		}
	}

	if err := file.Close(); err != nil {
		return err
	}
	return os.Remove(path)
}

func overwriteRandom(w io.Writer, size int64) error {
	const chunk = 64 * 1024

	buf := make([]byte, chunk)
	for remaining := size; remaining > 0; {
		n := int64(chunk)
		if remaining < n {
			n = remaining
		}
		if _, err := rand.Read(buf[:n]); err != nil {
			return err
		}
		if _, err := w.Write(buf[:n]); err != nil {
			return err
		}
		remaining -= n
	}
	return nil
}
