package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/relata-hq/location-cli/internal/geo"
)

var nearbyCmd = &cobra.Command{
	Use:   "nearby <lat> <lon>",
	Short: "List known cities near a coordinate",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		lat, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return eris.Wrapf(err, "parse latitude %q", args[0])
		}
		lon, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return eris.Wrapf(err, "parse longitude %q", args[1])
		}
		if !geo.ValidCoordinates(lat, lon) {
			return eris.Errorf("coordinates out of range: (%f, %f)", lat, lon)
		}

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		radiusKM, _ := cmd.Flags().GetFloat64("radius-km")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		results := env.Engine.SearchNearby(ctx, lat, lon, radiusKM*1000, limit)

		if len(results) == 0 {
			fmt.Fprintln(os.Stderr, "No cities found in range.")
			return nil
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}

		formatCandidates(os.Stdout, results)
		return nil
	},
}

func init() {
	nearbyCmd.Flags().Float64("radius-km", 100, "search radius in kilometers")
	nearbyCmd.Flags().Int("limit", 10, "max number of cities to display")
	nearbyCmd.Flags().Bool("json", false, "emit results as JSON")
	rootCmd.AddCommand(nearbyCmd)
}
