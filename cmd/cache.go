package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/dedup"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and reset the cross-cycle dedup cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the persisted dedup cache size",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := dedup.New()
		c.Load(cfg.State.DedupPath)
		fmt.Printf("Snapshot: %s\n", cfg.State.DedupPath)
		fmt.Printf("Entries: %d\n", c.Size())
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the dedup snapshot so the next session starts cold",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.Remove(cfg.State.DedupPath); err != nil {
			if os.IsNotExist(err) {
				fmt.Println("No snapshot to clear.")
				return nil
			}
			return err
		}
		fmt.Println("Dedup snapshot cleared.")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
