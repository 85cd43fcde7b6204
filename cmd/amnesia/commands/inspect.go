package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Laticee/amnesia/internal/config"
	"github.com/Laticee/amnesia/internal/container"
	amErrors "github.com/Laticee/amnesia/internal/errors"
)

// NewInspectCommand creates the inspect command, which prints a
// container's readable header without asking for a password or
// attempting any decryption.
func NewInspectCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show an encrypted note's header",
		Long: `Print the format version and key-derivation parameters recorded in an
encrypted note container. No password is needed and nothing is
decrypted; the only content-related value shown is the ciphertext size.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := container.ReadFile(args[0])
			if err != nil {
				return amErrors.UserError{
					Message:    fmt.Sprintf("Cannot read %s", args[0]),
					Suggestion: "Check the file path",
					Err:        err,
				}
			}

			hdr, err := container.ParseHeader(data)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "File:\t%s\n", args[0])
			fmt.Fprintf(w, "Format version:\t%d\n", hdr.Version)
			fmt.Fprintf(w, "KDF:\tArgon2id\n")
			fmt.Fprintf(w, "  time cost:\t%d\n", hdr.Params.Time)
			fmt.Fprintf(w, "  memory:\t%d KiB\n", hdr.Params.MemoryKiB)
			fmt.Fprintf(w, "  parallelism:\t%d\n", hdr.Params.Parallelism)
			fmt.Fprintf(w, "Cipher:\tChaCha20-Poly1305\n")
			fmt.Fprintf(w, "Ciphertext:\t%d bytes\n", hdr.CiphertextSize)
			return w.Flush()
		},
	}
	return cmd
}
