package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/flipscout/internal/bootstrap"
)

func schedulerCommand() *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Run recurring scans on the configured cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.New(configPath())
			if err != nil {
				return err
			}
			defer app.Close()

			sched := app.Scheduler()
			if err := sched.Start(); err != nil {
				return err
			}
			if runNow {
				sched.RunOnce()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			sched.Stop()
			return nil
		},
	}

	cmd.Flags().BoolVar(&runNow, "run-now", false, "run one sweep immediately on startup")
	return cmd
}
