package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/featherbox/featherbox/internal/runner"
	"github.com/featherbox/featherbox/internal/schedule"
)

func newScheduleCmd(opts *rootOptions) *cobra.Command {
	var cronExpr string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run migrate and run periodically on a cron schedule",
		Long:  "Runs until interrupted. Each tick re-derives the graph from the current\nconfiguration, commits it, and executes a differential run.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, cfg, err := opts.service()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			expr := cronExpr
			if expr == "" {
				expr = cfg.Project.Schedule
			}
			if expr == "" {
				return fmt.Errorf("no schedule: set project schedule or pass --cron")
			}

			log := opts.logger()
			job := func(ctx context.Context) error {
				if _, err := s.Migrate(ctx); err != nil {
					return err
				}
				res, err := s.Run(ctx, runner.RunOptions{})
				if err != nil {
					return err
				}
				log.Info("scheduled run finished",
					"pipeline", res.PipelineID, "status", string(res.Status))
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sched := schedule.New(log)
			if err := sched.Start(ctx, expr, job); err != nil {
				return err
			}
			log.Info("scheduler started", "cron", expr)
			sched.Wait(ctx)
			log.Info("scheduler stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&cronExpr, "cron", "", "Cron expression (overrides the project schedule)")
	return cmd
}
