package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/flipscout/internal/bootstrap"
	"github.com/jonesrussell/flipscout/internal/domain"
)

func scanCommand() *cobra.Command {
	var (
		platform string
		keywords string
		category string
		location string
		minPrice float64
		maxPrice float64
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a one-off marketplace scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.New(configPath())
			if err != nil {
				return err
			}
			defer app.Close()

			params := domain.SearchParams{
				Keywords: keywords,
				Category: category,
				Location: location,
				MinPrice: minPrice,
				MaxPrice: maxPrice,
				Limit:    limit,
			}

			result, err := app.Scanner.RunScan(
				cmd.Context(),
				app.Config.Service.OwnerID,
				domain.Platform(platform),
				params,
			)
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&platform, "platform", "craigslist", "marketplace to scan (ebay, craigslist, facebook, offerup)")
	cmd.Flags().StringVar(&keywords, "keywords", "", "search keywords (required)")
	cmd.Flags().StringVar(&category, "category", "", "marketplace category")
	cmd.Flags().StringVar(&location, "location", "", "location filter")
	cmd.Flags().Float64Var(&minPrice, "min-price", 0, "minimum asking price")
	cmd.Flags().Float64Var(&maxPrice, "max-price", 0, "maximum asking price")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum results (capped)")
	_ = cmd.MarkFlagRequired("keywords")

	return cmd
}
