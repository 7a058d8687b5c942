package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"hatchery/pkg/domain"
)

func newDispatchCommand(opts *RootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Authenticate and run a JSON request",
		Long: `Read a request {"account","namespace","nonce","signature","body"} from
--file or stdin, authenticate it with the configured mode and run its body.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			var in io.Reader = c.InOrStdin()
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				in = f
			}
			var req domain.Request
			if err := json.NewDecoder(in).Decode(&req); err != nil {
				return fmt.Errorf("decode request: %w", err)
			}
			return run(c, opts, func(ctx context.Context, rt *runtime) error {
				resp, err := rt.dispatcher.Dispatch(ctx, req)
				if err != nil {
					return err
				}
				return writeResponse(c.OutOrStdout(), opts.Format, resp)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "request file (default stdin)")
	return cmd
}
