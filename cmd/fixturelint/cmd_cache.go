package main

import (
	"fmt"
	"time"

	"fixturelint/internal/store"

	"github.com/spf13/cobra"
)

func (a *app) newCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the result cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show result cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := store.Open(a.cfg.Cache.Path)
			if err != nil {
				return err
			}
			defer cache.Close()

			stats, err := cache.Stats(cmdContext(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Path:    %s\n", stats.Path)
			fmt.Fprintf(a.out, "Entries: %d\n", stats.Entries)
			fmt.Fprintf(a.out, "Files:   %d\n", stats.Files)
			fmt.Fprintf(a.out, "Hits:    %d\n", stats.Hits)
			fmt.Fprintf(a.out, "Size:    %d bytes\n", stats.SizeBytes)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := store.Open(a.cfg.Cache.Path)
			if err != nil {
				return err
			}
			defer cache.Close()

			if err := cache.Clear(cmdContext(cmd)); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Cleared %s\n", a.cfg.Cache.Path)
			return nil
		},
	}

	var olderThan time.Duration
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete cached results older than --older-than",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := store.Open(a.cfg.Cache.Path)
			if err != nil {
				return err
			}
			defer cache.Close()

			n, err := cache.Prune(cmdContext(cmd), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Pruned %d entries\n", n)
			return nil
		},
	}
	pruneCmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age of entries to delete")

	cacheCmd.AddCommand(statsCmd, clearCmd, pruneCmd)
	return cacheCmd
}
