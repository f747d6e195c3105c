package cmd

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"electricity-compare/internal/bootstrap"
	"electricity-compare/internal/jobs"
	spotprice "electricity-compare/internal/spotprice/domain"
)

var (
	spotRegions   []string
	backfillFrom  string
	backfillTo    string
	aggregateType string
	recalcFrom    string
	recalcTo      string
)

var spotCmd = &cobra.Command{
	Use:   "spot",
	Short: "Spot price ingest and aggregation",
}

var spotIngestLatestCmd = &cobra.Command{
	Use:   "ingest-latest",
	Short: "Fetch the newest day-ahead prices",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			regions := regionsOrDefault(app)
			var errs []error
			for _, region := range regions {
				report, err := app.Ingestion.IngestLatest(ctx, region)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", region, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: received=%d hours=%d inserted=%d skipped=%d malformed=%d\n",
					region, report.Received, report.Hours, report.Inserted, report.Skipped, report.Malformed)
			}
			return errors.Join(errs...)
		})
	},
}

var spotBackfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Ingest a historic date range in monthly chunks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			from, err := parseDate(backfillFrom, app.Location)
			if err != nil {
				return err
			}
			to, err := parseDate(backfillTo, app.Location)
			if err != nil {
				return err
			}
			for _, region := range regionsOrDefault(app) {
				job := jobs.Job{
					Name: "spot-backfill-" + region,
					Run: func(ctx context.Context) error {
						report, err := app.Ingestion.Backfill(ctx, region, from, to)
						if report != nil {
							printBackfill(cmd, report.Region, report.Inserted, report.Failed, len(report.Chunks))
						}
						return err
					},
				}
				if err := app.Scheduler.Exec(ctx, job); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

var spotAggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Recompute spot price averages",
	Long: `Recompute averages of one period type, or of every type when --type is
omitted. With --from and --to every calendar period overlapping the range is
rebuilt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			regions := regionsOrDefault(app)
			if recalcFrom != "" || recalcTo != "" {
				from, err := parseDate(recalcFrom, app.Location)
				if err != nil {
					return err
				}
				to, err := parseDate(recalcTo, app.Location)
				if err != nil {
					return err
				}
				for _, region := range regions {
					n, err := app.Aggregation.RecalculateRange(ctx, region, from, to)
					if err != nil {
						return fmt.Errorf("%s: %w", region, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d averages written\n", region, n)
				}
				return nil
			}
			if aggregateType == "" {
				return app.Scheduler.Exec(ctx, jobs.AveragesJob("", app.Aggregation, regions))
			}
			for _, region := range regions {
				n, err := app.Aggregation.CalculateByType(ctx, region, aggregateType)
				if err != nil {
					return fmt.Errorf("%s: %w", region, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d %s averages written\n", region, n, aggregateType)
			}
			return nil
		})
	},
}

var spotAveragesCmd = &cobra.Command{
	Use:   "averages",
	Short: "Print the latest averages",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "REGION\tPERIOD\tKEY\tAVG\tAVG+VAT\tMIN\tMAX\tHOURS")
			for _, region := range regionsOrDefault(app) {
				latest, err := app.Aggregation.GetLatestAverages(ctx, region)
				if err != nil {
					app.Logger.Warn("latest averages failed", zap.String("region", region), zap.Error(err))
					continue
				}
				if latest == nil {
					continue
				}
				for _, avg := range []*spotprice.SpotPriceAverage{latest.Daily, latest.Monthly, latest.Rolling30d, latest.Rolling365d} {
					if avg == nil {
						continue
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n", region, avg.PeriodType, avg.TimeKey,
						avg.AvgWithoutTax.StringFixed(3), avg.AvgWithTax.StringFixed(3),
						avg.Min.StringFixed(3), avg.Max.StringFixed(3), avg.HoursCount)
				}
			}
			return w.Flush()
		})
	},
}

func init() {
	rootCmd.AddCommand(spotCmd)
	spotCmd.AddCommand(spotIngestLatestCmd, spotBackfillCmd, spotAggregateCmd, spotAveragesCmd)

	spotCmd.PersistentFlags().StringSliceVarP(&spotRegions, "region", "r", nil, "regions (default: configured regions)")

	spotBackfillCmd.Flags().StringVar(&backfillFrom, "from", "", "start date, inclusive")
	spotBackfillCmd.Flags().StringVar(&backfillTo, "to", "", "end date, exclusive")
	_ = spotBackfillCmd.MarkFlagRequired("from")
	_ = spotBackfillCmd.MarkFlagRequired("to")

	spotAggregateCmd.Flags().StringVarP(&aggregateType, "type", "t", "", "period type: daily, monthly, yearly, rolling_30d, rolling_365d")
	spotAggregateCmd.Flags().StringVar(&recalcFrom, "from", "", "rebuild periods from this date")
	spotAggregateCmd.Flags().StringVar(&recalcTo, "to", "", "rebuild periods up to this date")
	spotAggregateCmd.MarkFlagsRequiredTogether("from", "to")
}

func regionsOrDefault(app *bootstrap.App) []string {
	if len(spotRegions) > 0 {
		return spotRegions
	}
	return app.Config.Regions
}

func printBackfill(cmd *cobra.Command, region string, inserted, failed, chunks int) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: chunks=%d failed=%d inserted=%d\n", region, chunks, failed, inserted)
}
