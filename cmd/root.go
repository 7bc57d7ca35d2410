// Package cmd implements the flipscout command-line interface.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/flipscout/internal/config"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "flipscout",
		Short: "Marketplace arbitrage scanner",
		Long: `Flipscout scans online marketplaces for underpriced listings,
scores their resale potential, and surfaces buying opportunities.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yml, overridden by CONFIG_PATH)",
	)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("flipscout version 1.0.0")
		},
	})

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(scanCommand())
	rootCmd.AddCommand(schedulerCommand())
	rootCmd.AddCommand(migrateCommand())
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.GetConfigPath("config.yml")
}
