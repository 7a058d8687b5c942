package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newArchiveCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Export, list and restore registry snapshots",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "export",
			Short: "Write the current registry state to the archive",
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, _ []string) error {
				return run(c, opts, func(ctx context.Context, rt *runtime) error {
					archiver, err := rt.archiver(ctx)
					if err != nil {
						return err
					}
					info, err := archiver.Export(ctx)
					if err != nil {
						return err
					}
					if opts.Format == "json" {
						return json.NewEncoder(c.OutOrStdout()).Encode(info)
					}
					_, err = fmt.Fprintln(c.OutOrStdout(), info.Key)
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List archived snapshots, oldest first",
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, _ []string) error {
				return run(c, opts, func(ctx context.Context, rt *runtime) error {
					archiver, err := rt.archiver(ctx)
					if err != nil {
						return err
					}
					infos, err := archiver.List(ctx)
					if err != nil {
						return err
					}
					if opts.Format == "json" {
						return json.NewEncoder(c.OutOrStdout()).Encode(infos)
					}
					for _, info := range infos {
						if _, err := fmt.Fprintf(c.OutOrStdout(), "%s\t%d\n", info.Key, info.Size); err != nil {
							return err
						}
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "restore <key>",
			Short: "Replace the registry state with an archived snapshot",
			Args:  cobra.ExactArgs(1),
			RunE: func(c *cobra.Command, args []string) error {
				return run(c, opts, func(ctx context.Context, rt *runtime) error {
					archiver, err := rt.archiver(ctx)
					if err != nil {
						return err
					}
					if err := archiver.Restore(ctx, args[0]); err != nil {
						return err
					}
					_, err = fmt.Fprintf(c.OutOrStdout(), "restored %s, counter %d\n", args[0], rt.store.CreatureCount())
					return err
				})
			},
		},
	)
	return cmd
}
