package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/relata-hq/location-cli/internal/geo"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Resolve a free-text location query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		lang, _ := cmd.Flags().GetString("lang")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		query := strings.Join(args, " ")
		results := env.Engine.Search(ctx, query, lang, limit)

		if len(results) == 0 {
			if wait := env.Engine.Advisory(query).Wait; wait > 0 {
				fmt.Fprintf(os.Stderr, "No results. Providers are throttled; try again in %s.\n", wait.Round(time.Second))
				return nil
			}
			fmt.Fprintln(os.Stderr, "No results found.")
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
	searchCmd.Flags().String("lang", "en", "session language (BCP 47, e.g. it, pt-BR)")
	searchCmd.Flags().Int("limit", 10, "max number of candidates to display")
	searchCmd.Flags().Bool("json", false, "emit results as JSON")
	rootCmd.AddCommand(searchCmd)
}

// formatCandidates writes a tabular candidate list to w.
func formatCandidates(out io.Writer, results []geo.Candidate) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tCOUNTRY\tREGION\tLAT\tLON\tPOPULATION")
	_, _ = fmt.Fprintln(w, "----\t-------\t------\t---\t---\t----------")

	for _, c := range results {
		name := c.Name
		if c.LocalizedName != "" {
			name = fmt.Sprintf("%s (%s)", c.LocalizedName, c.Name)
		}

		pop := ""
		if c.Population > 0 {
			pop = fmt.Sprintf("%d", c.Population)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.4f\t%.4f\t%s\n",
			name,
			c.Country,
			c.Region,
			c.Latitude,
			c.Longitude,
			pop,
		)
	}
	_ = w.Flush()
}
