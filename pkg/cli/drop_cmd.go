package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDropCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drop <node>",
		Short: "Remove a node's table from the lake catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := opts.service()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			if err := s.Drop(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dropped %s\n", args[0])
			return nil
		},
	}
}
