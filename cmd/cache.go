package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/relata-hq/location-cli/internal/throttle"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the result cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard every cached result set",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Engine.ClearCache(ctx); err != nil {
			return err
		}
		fmt.Println("Cache cleared.")
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size and throttle state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Engine.CacheLen(ctx)
		if err != nil {
			return err
		}

		formatCacheStats(os.Stdout, n, env.Engine.ThrottleSnapshot())
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	rootCmd.AddCommand(cacheCmd)
}

func formatCacheStats(out io.Writer, entries int, keys map[string]throttle.State) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Cached entries:\t%d\n", entries)
	_, _ = fmt.Fprintf(w, "Throttled keys:\t%d\n", len(keys))
	for key, st := range keys {
		if st.Failures == 0 {
			continue
		}
		_, _ = fmt.Fprintf(w, "  %s\tfailures=%d\n", key, st.Failures)
	}
	_ = w.Flush()
}
