// Package cli implements the hatchery command line.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"hatchery/internal/config"
)

// RootOptions holds flags shared by every command.
type RootOptions struct {
	As          string
	Format      string
	DumpMetrics bool

	// LoadConfig is replaced in tests.
	LoadConfig func() (config.Config, error)
}

// ValidFormats lists the accepted --format values.
var ValidFormats = []string{"text", "json"}

// NewRootCommand builds the hatchery command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{LoadConfig: config.Load})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hatchery",
		Short: "Creature registry with breeding and escrow",
		Long: `hatchery mints, transfers and breeds creatures identified by 16-byte genomes.

Storage, escrow, authentication and archive backends are selected with
HATCHERY_ environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.As, "as", "", "account performing the operation")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVar(&opts.DumpMetrics, "dump-metrics", false, "print Prometheus metrics after the command")

	cmd.AddCommand(
		newCreateCommand(opts),
		newTransferCommand(opts),
		newBreedCommand(opts),
		newLookupCommand(opts),
		newListCommand(opts),
		newCountCommand(opts),
		newOwnerOfCommand(opts),
		newReserveCommand(opts),
		newReleaseCommand(opts),
		newTransferReservedCommand(opts),
		newDispatchCommand(opts),
		newArchiveCommand(opts),
	)
	return cmd
}
