package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/monitoring"
)

var statusLookback int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show detection metrics for the lookback window",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		snap, err := monitoring.NewCollector(st).Collect(ctx, statusLookback)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLookback, "lookback", 24, "lookback window in hours")
	rootCmd.AddCommand(statusCmd)
}
