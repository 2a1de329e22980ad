package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/relata-hq/location-cli/internal/config"
)

var (
	cfg *config.Config

	// offline skips all network tiers; resolution runs entirely on the
	// bundled gazetteer and static list.
	offline bool
)

var rootCmd = &cobra.Command{
	Use:   "location-cli",
	Short: "City and place name resolution",
	Long:  "Resolves free-text location queries through a tiered provider chain: GeoDB Cities, Nominatim, a bundled fuzzy gazetteer, and a static fallback list.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "skip network providers, resolve from local data only")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
