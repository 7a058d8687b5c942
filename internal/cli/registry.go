package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"hatchery/internal/command"
	"hatchery/pkg/domain"
)

var errNoCaller = errors.New("--as is required")

// execute runs cmd as the --as account through the command layer.
func execute(c *cobra.Command, opts *RootOptions, cmd command.Command, needsCaller bool) error {
	caller := domain.AccountID(opts.As)
	if needsCaller && caller == "" {
		return errNoCaller
	}
	return run(c, opts, func(ctx context.Context, rt *runtime) error {
		resp, err := rt.dispatcher.Execute(ctx, caller, cmd)
		if err != nil {
			return err
		}
		return writeResponse(c.OutOrStdout(), opts.Format, resp)
	})
}

func parseID(arg string) (domain.CreatureID, error) {
	return domain.ParseCreatureID(arg)
}

func newCreateCommand(opts *RootOptions) *cobra.Command {
	var amount uint64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Mint a creature for --as",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return execute(c, opts, command.Command{Kind: command.KindCreate, Amount: domain.Balance(amount)}, true)
		},
	}
	cmd.Flags().Uint64Var(&amount, "amount", 0, "reserve this deposit, retracting the creature if it cannot be covered")
	return cmd
}

func newTransferCommand(opts *RootOptions) *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "transfer <id>",
		Short: "Transfer a creature owned by --as",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return execute(c, opts, command.Command{Kind: command.KindTransfer, To: domain.AccountID(to), ID: id}, true)
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "recipient account")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newBreedCommand(opts *RootOptions) *cobra.Command {
	var amount uint64
	cmd := &cobra.Command{
		Use:   "breed <parent1> <parent2>",
		Short: "Breed two creatures owned by --as",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			p1, err := parseID(args[0])
			if err != nil {
				return err
			}
			p2, err := parseID(args[1])
			if err != nil {
				return err
			}
			return execute(c, opts, command.Command{
				Kind: command.KindBreed, Parent1: p1, Parent2: p2, Amount: domain.Balance(amount),
			}, true)
		},
	}
	cmd.Flags().Uint64Var(&amount, "amount", 0, "reserve this deposit, retracting the child if it cannot be covered")
	return cmd
}

func newLookupCommand(opts *RootOptions) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "lookup <id>",
		Short: "Show a creature held by --owner (default --as)",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return execute(c, opts, command.Command{Kind: command.KindLookup, Owner: domain.AccountID(owner), ID: id}, owner == "")
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "account to look under")
	return cmd
}

func newListCommand(opts *RootOptions) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List creatures of --owner (default --as) in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return execute(c, opts, command.Command{Kind: command.KindList, Owner: domain.AccountID(owner)}, owner == "")
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "account to list")
	return cmd
}

func newCountCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the highest allocated creature id",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return execute(c, opts, command.Command{Kind: command.KindCount}, false)
		},
	}
}

func newOwnerOfCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "owner-of <id>",
		Short: "Print the owner of a creature",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return execute(c, opts, command.Command{Kind: command.KindOwnerOf, ID: id}, false)
		},
	}
}
