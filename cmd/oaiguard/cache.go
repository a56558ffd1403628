package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/oaiguard/internal/config"
	"github.com/steveyegge/oaiguard/internal/storage"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or prune the history cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show history cache size and age",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(ctx context.Context, c storage.HistoryCache) error {
			st, err := c.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Database: %s\n", cfg.HistoryPath())
			fmt.Printf("Entries:  %d\n", st.Entries)
			if st.Entries > 0 {
				fmt.Printf("Oldest:   %s\n", st.Oldest.Format(time.RFC3339))
				fmt.Printf("Newest:   %s\n", st.Newest.Format(time.RFC3339))
			}
			return nil
		})
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete history entries older than a duration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("older-than")
		age := cfg.HistoryRetention
		if cmd.Flags().Changed("older-than") || age == 0 {
			d, err := config.ParseDuration(raw)
			if err != nil {
				return fmt.Errorf("invalid --older-than %q: %w", raw, err)
			}
			age = d
		}
		if age <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}
		return withCache(func(ctx context.Context, c storage.HistoryCache) error {
			n, err := c.Prune(ctx, time.Now().Add(-age))
			if err != nil {
				return err
			}
			fmt.Printf("Pruned %d entr%s older than %s\n", n, plural(n, "y", "ies"), age)
			return nil
		})
	},
}

func init() {
	cachePruneCmd.Flags().String("older-than", "30d", "Age threshold (e.g. 720h, 30d or seconds)")
	cacheCmd.AddCommand(cacheStatsCmd, cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}

func withCache(fn func(ctx context.Context, c storage.HistoryCache) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	c, err := storage.NewHistoryCache(ctx, storage.Config{Path: cfg.HistoryPath()})
	if err != nil {
		return fmt.Errorf("failed to open history cache: %w", err)
	}
	defer c.Close()
	return fn(ctx, c)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
