package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Laticee/amnesia/internal/config"
	"github.com/Laticee/amnesia/internal/guard"
	"github.com/Laticee/amnesia/internal/keychain"
	"github.com/Laticee/amnesia/internal/secure"
)

type checkResult struct {
	Name   string
	OK     bool
	Detail string
}

// NewDoctorCommand creates the doctor command, which probes the
// platform protections an editing session will rely on.
func NewDoctorCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check platform security features",
		Long: `Verify the protections an editing session depends on.

This command checks:
- memory locking (mlock) for the note buffer
- core dump suppression
- OS keyring availability (used only with --keyring)
- configuration file validity

A failed check does not prevent editing; sessions run in a degraded
mode and warn about what is missing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results := []checkResult{
				checkMlock(),
				checkCoreDumps(cfg),
				checkKeyring(),
				checkConfig(cfg),
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "CHECK\tSTATUS\tDETAIL\n")
			for _, r := range results {
				status := "✓ ok"
				if !r.OK {
					status = "✗ degraded"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, status, r.Detail)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			healthy := 0
			for _, r := range results {
				if r.OK {
					healthy++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d/%d checks passed\n", healthy, len(results))
			return nil
		},
	}

	return cmd
}

func checkMlock() checkResult {
	buf := secure.Allocate(4096)
	defer buf.Wipe()

	if !buf.Locked() {
		return checkResult{
			Name:   "memory locking",
			Detail: "mlock failed; note bytes may reach swap (check RLIMIT_MEMLOCK)",
		}
	}
	return checkResult{
		Name:   "memory locking",
		OK:     true,
		Detail: "note buffer pages stay out of swap",
	}
}

func checkCoreDumps(cfg *config.Config) checkResult {
	g := guard.Harden(cfg.Logger)
	if st := g.Status(); !st.CoreDumpsDisabled {
		return checkResult{
			Name:   "core dumps",
			Detail: fmt.Sprintf("could not set RLIMIT_CORE to 0: %v", st.Err),
		}
	}

	limit, err := guard.CoreDumpLimit()
	if err != nil || limit != 0 {
		return checkResult{
			Name:   "core dumps",
			Detail: fmt.Sprintf("RLIMIT_CORE readback is %d, expected 0", limit),
		}
	}
	return checkResult{
		Name:   "core dumps",
		OK:     true,
		Detail: "RLIMIT_CORE is 0, crashes leave no memory image",
	}
}

func checkKeyring() checkResult {
	if !keychain.Available() {
		return checkResult{
			Name:   "os keyring",
			Detail: "no keyring backend reachable; --keyring will not work",
		}
	}
	return checkResult{
		Name:   "os keyring",
		OK:     true,
		Detail: "password caching with --keyring is available",
	}
}

func checkConfig(cfg *config.Config) checkResult {
	if err := cfg.Load(); err != nil {
		return checkResult{
			Name:   "configuration",
			Detail: err.Error(),
		}
	}
	return checkResult{
		Name:   "configuration",
		OK:     true,
		Detail: fmt.Sprintf("idle timeout %s, stealth %t", cfg.Options.IdleTimeout.Std(), cfg.Options.StealthEncryption),
	}
}
