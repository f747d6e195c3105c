package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"electricity-compare/internal/estimator"
)

var estimateParams struct {
	buildingType string
	heating      string
	area         int
	residents    int
	waterHeater  bool
	saunaPerWeek int
	evKmPerWeek  int
	cooling      bool
}

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate the annual consumption of a household",
	RunE: func(cmd *cobra.Command, args []string) error {
		buildingType, err := estimator.ParseBuildingType(estimateParams.buildingType)
		if err != nil {
			return err
		}
		heating, err := estimator.ParseHeatingMethod(estimateParams.heating)
		if err != nil {
			return err
		}
		result, err := estimator.EstimateConsumption(estimator.BuildingParams{
			BuildingType:        buildingType,
			AreaM2:              estimateParams.area,
			Residents:           estimateParams.residents,
			HeatingMethod:       heating,
			ElectricWaterHeater: estimateParams.waterHeater,
			SaunaPerWeek:        estimateParams.saunaPerWeek,
			EVKmPerWeek:         estimateParams.evKmPerWeek,
			Cooling:             estimateParams.cooling,
		})
		if err != nil {
			return err
		}
		usage := result.Usage
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "total:        %d kWh\n", usage.Total)
		fmt.Fprintf(out, "basic living: %d kWh\n", usage.BasicLiving)
		printPart := func(label string, v *int) {
			if v != nil {
				fmt.Fprintf(out, "%-13s %d kWh\n", label+":", *v)
			}
		}
		printPart("room heating", usage.RoomHeating)
		printPart("water", usage.Water)
		printPart("sauna", usage.Sauna)
		printPart("vehicle", usage.ElectricityVehicle)
		printPart("cooling", usage.Cooling)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(estimateCmd)

	f := estimateCmd.Flags()
	f.StringVar(&estimateParams.buildingType, "building-type", "apartment", "apartment, row_house or detached")
	f.StringVar(&estimateParams.heating, "heating", "district", "primary heating method")
	f.IntVar(&estimateParams.area, "area", 0, "living area in m2")
	f.IntVar(&estimateParams.residents, "residents", 1, "number of residents")
	f.BoolVar(&estimateParams.waterHeater, "water-heater", false, "electric water heater")
	f.IntVar(&estimateParams.saunaPerWeek, "sauna", 0, "electric sauna uses per week")
	f.IntVar(&estimateParams.evKmPerWeek, "ev-km", 0, "electric vehicle km per week")
	f.BoolVar(&estimateParams.cooling, "cooling", false, "air conditioning")
	_ = estimateCmd.MarkFlagRequired("area")
}
