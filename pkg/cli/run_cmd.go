package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/featherbox/featherbox/internal/domain"
	"github.com/featherbox/featherbox/internal/runner"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		only              []string
		parallelism       int
		continueOnFailure bool
		retryAttempts     int
		retryDelay        time.Duration
		deadline          time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a differential pipeline against the latest graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := opts.service()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			res, err := s.Run(cmd.Context(), runner.RunOptions{
				Only:              only,
				Parallelism:       parallelism,
				ContinueOnFailure: continueOnFailure,
				RetryAttempts:     retryAttempts,
				RetryDelay:        retryDelay,
				Deadline:          deadline,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			cls := res.Classification
			fmt.Fprintf(out, "Pipeline %s (graph %d): %s\n", res.PipelineID, res.GraphID, res.Status)
			fmt.Fprintf(out, "  added=%d modified=%d removed=%d unchanged=%d\n",
				len(cls.Added), len(cls.Modified), len(cls.Removed), len(cls.Unchanged))
			fmt.Fprintf(out, "  drops=%d actions=%d filtered=%d\n",
				res.Drops, res.LiveActions, res.Filtered)

			if res.Status != domain.PipelineCompleted {
				return fmt.Errorf("pipeline %s finished %s", res.PipelineID, res.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&only, "only", nil, "Run only the named nodes; skip the rest of the affected set")
	cmd.Flags().IntVar(&parallelism, "parallelism", 0, "Max concurrent actions per level (0 = number of CPUs)")
	cmd.Flags().BoolVar(&continueOnFailure, "continue-on-failure", false, "Keep independent branches running after a failure")
	cmd.Flags().IntVar(&retryAttempts, "retry-attempts", 3, "Retries for retryable action errors (negative disables)")
	cmd.Flags().DurationVar(&retryDelay, "retry-delay", time.Second, "Initial retry back-off delay")
	cmd.Flags().DurationVar(&deadline, "deadline", 0, "Overall run deadline (0 = none)")
	return cmd
}
