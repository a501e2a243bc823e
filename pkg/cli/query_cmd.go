package cli

import (
	"github.com/spf13/cobra"
)

func newQueryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a read-only SQL statement against the lake catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := opts.service()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			res, err := s.Query(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			renderTable(cmd.OutOrStdout(), res.Columns, res.Rows)
			return nil
		},
	}
}
