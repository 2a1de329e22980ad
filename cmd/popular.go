package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var popularCmd = &cobra.Command{
	Use:   "popular",
	Short: "List the default popular-city suggestions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		lang, _ := cmd.Flags().GetString("lang")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		results := env.Engine.Popular(ctx, lang, limit)

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
	popularCmd.Flags().String("lang", "en", "session language (BCP 47)")
	popularCmd.Flags().Int("limit", 8, "number of suggestions")
	popularCmd.Flags().Bool("json", false, "emit results as JSON")
	rootCmd.AddCommand(popularCmd)
}
