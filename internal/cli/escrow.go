package cli

import (
	"github.com/spf13/cobra"

	"hatchery/internal/command"
	"hatchery/pkg/domain"
)

func newReserveCommand(opts *RootOptions) *cobra.Command {
	var amount uint64
	cmd := &cobra.Command{
		Use:   "reserve",
		Short: "Reserve funds of --as",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return execute(c, opts, command.Command{Kind: command.KindReserve, Amount: domain.Balance(amount)}, true)
		},
	}
	cmd.Flags().Uint64Var(&amount, "amount", 0, "amount to reserve")
	return cmd
}

func newReleaseCommand(opts *RootOptions) *cobra.Command {
	var amount uint64
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Release reserved funds of --as",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return execute(c, opts, command.Command{Kind: command.KindRelease, Amount: domain.Balance(amount)}, true)
		},
	}
	cmd.Flags().Uint64Var(&amount, "amount", 0, "amount to release")
	return cmd
}

func newTransferReservedCommand(opts *RootOptions) *cobra.Command {
	var (
		amount uint64
		to     string
	)
	cmd := &cobra.Command{
		Use:   "transfer-reserved",
		Short: "Pay reserved funds of --as into another account's free balance",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return execute(c, opts, command.Command{
				Kind: command.KindTransferReserved, To: domain.AccountID(to), Amount: domain.Balance(amount),
			}, true)
		},
	}
	cmd.Flags().Uint64Var(&amount, "amount", 0, "amount to pay")
	cmd.Flags().StringVar(&to, "to", "", "recipient account")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
