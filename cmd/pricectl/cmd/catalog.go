package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"electricity-compare/internal/bootstrap"
	"electricity-compare/internal/jobs"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Contract catalog management",
}

var catalogSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror the contract catalog feed into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			if app.CatalogSync == nil {
				return errors.New("catalog feed not configured: set CATALOG_URL")
			}
			job := jobs.Job{
				Name: jobs.JobCatalogSync,
				Run: func(ctx context.Context) error {
					report, err := app.CatalogSync.Sync(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "run %s: postcodes=%d failed=%d malformed=%d contracts=%d active=%d components=%d futures=%d\n",
						report.RunID, report.Postcodes, report.FailedPostcodes, report.Malformed,
						report.Applied.Contracts, report.Applied.ActiveContracts,
						report.Applied.ComponentsInserted, report.Applied.Futures)
					return nil
				},
			}
			return app.Scheduler.Exec(ctx, job)
		})
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogSyncCmd)
}
