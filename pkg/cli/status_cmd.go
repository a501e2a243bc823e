package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status [pipeline-id]",
		Short: "Show recent pipelines, or the actions of one pipeline",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := opts.service()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				actions, err := s.Actions(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(actions))
				for _, a := range actions {
					rows = append(rows, []string{
						strconv.Itoa(a.ExecutionOrder),
						a.NodeName,
						string(a.Status),
						formatWindow(a.Since, a.Until),
						formatErr(a.Error),
					})
				}
				renderTable(out, []string{"ORDER", "NODE", "STATUS", "WINDOW", "ERROR"}, rows)
				return nil
			}

			pipelines, err := s.Pipelines(cmd.Context(), limit)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(pipelines))
			for _, p := range pipelines {
				rows = append(rows, []string{
					p.ID,
					strconv.FormatInt(p.GraphID, 10),
					string(p.Status),
					p.StartedAt.UTC().Format(time.RFC3339),
					formatFinished(p.FinishedAt),
				})
			}
			renderTable(out, []string{"PIPELINE", "GRAPH", "STATUS", "STARTED", "FINISHED"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Max pipelines to list")
	return cmd
}

func formatWindow(since, until *time.Time) string {
	if since == nil && until == nil {
		return ""
	}
	const layout = "2006-01-02 15:04"
	s, u := "", ""
	if since != nil {
		s = since.UTC().Format(layout)
	}
	if until != nil {
		u = until.UTC().Format(layout)
	}
	return "[" + s + ", " + u + ")"
}

func formatErr(msg *string) string {
	if msg == nil {
		return ""
	}
	return *msg
}

func formatFinished(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
