package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"electricity-compare/internal/bootstrap"
	contractapp "electricity-compare/internal/contracts/application"
	contracts "electricity-compare/internal/contracts/domain"
)

var (
	comparePostcode    string
	compareConsumption int
	compareFuseSize    string
	compareLimit       int
	costContractID     string
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Rank the contracts offered in a postcode",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			req := contractapp.RankRequest{Postcode: comparePostcode, Consumption: compareConsumption}
			if compareFuseSize != "" {
				req.FuseSize = &compareFuseSize
			}
			result, err := app.Ranker.Rank(ctx, req)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tCONTRACT\tCOMPANY\tMODEL\tTOTAL EUR\tMONTHLY EUR")
			for i, ranked := range result.Ranked {
				if compareLimit > 0 && i >= compareLimit {
					break
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", ranked.Rank, ranked.Contract.Name, ranked.Contract.CompanySlug,
					ranked.Result.PricingModel, ranked.Result.TotalCost.StringFixed(2), ranked.Result.AvgMonthlyCost.StringFixed(2))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d ranked, %d excluded at %d kWh/year\n",
				len(result.Ranked), len(result.Excluded), result.AnnualConsumptionKWh)
			return nil
		})
	},
}

var costCmd = &cobra.Command{
	Use:   "cost",
	Short: "Price one contract for an annual consumption",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			req := contractapp.CostRequest{ContractID: costContractID, Usage: contracts.NewUsage(compareConsumption)}
			if compareFuseSize != "" {
				req.FuseSize = &compareFuseSize
			}
			result, err := app.Engine.CalculateCost(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		})
	},
}

func init() {
	rootCmd.AddCommand(compareCmd, costCmd)

	compareCmd.Flags().StringVarP(&comparePostcode, "postcode", "p", "", "five digit postcode")
	compareCmd.Flags().IntVar(&compareLimit, "limit", 0, "show at most this many contracts")
	_ = compareCmd.MarkFlagRequired("postcode")

	costCmd.Flags().StringVar(&costContractID, "contract", "", "contract id")
	_ = costCmd.MarkFlagRequired("contract")

	for _, c := range []*cobra.Command{compareCmd, costCmd} {
		c.Flags().IntVarP(&compareConsumption, "consumption", "c", 5000, "annual consumption in kWh")
		c.Flags().StringVar(&compareFuseSize, "fuse-size", "", "main fuse size, e.g. 3x25A")
	}
}
