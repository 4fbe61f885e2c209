package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/corpus"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/cursor"
)

var cursorsCmd = &cobra.Command{
	Use:   "cursors",
	Short: "Show keyword coverage progress per platform and tier",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := corpus.Load(cfg.State.KeywordsPath)
		if err != nil {
			return err
		}
		progress := cursor.NewStore(c, cfg.State.CursorPath).Progress()
		if len(progress) == 0 {
			fmt.Println("No cursors yet; run a scan first.")
			return nil
		}

		keys := make([]string, 0, len(progress))
		for k := range progress {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			p := progress[k]
			fmt.Printf("%-28s offset %5d  completed cycles %d\n", k, p.Start, p.CompletedCycles)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cursorsCmd)
}
