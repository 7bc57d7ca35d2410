package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jonesrussell/flipscout/internal/config"
	"github.com/jonesrussell/flipscout/internal/database"
	"github.com/jonesrussell/flipscout/internal/logger"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath())
			if err != nil {
				return err
			}

			log, err := logger.New(cfg.Logging)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			return database.RunMigrations(cfg.Database, log)
		},
	}
}
