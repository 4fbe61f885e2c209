package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/model"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/store"
)

// bulkImporter is the fast path offered by the Postgres driver.
type bulkImporter interface {
	ImportDetections(ctx context.Context, detections []model.Detection) (int64, error)
}

var importCmd = &cobra.Command{
	Use:   "import <detections.json>",
	Short: "Load exported detection records into the store",
	Long:  "Reads a JSON array of detection records, typically exported from another instance, and loads it idempotently: rows whose listing URL is already present are skipped.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}
		var detections []model.Detection
		if err := json.Unmarshal(data, &detections); err != nil {
			return eris.Wrapf(err, "parse %s", args[0])
		}
		if len(detections) == 0 {
			fmt.Println("Nothing to import.")
			return nil
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		written, skipped, err := importDetections(ctx, st, detections)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d detections (%d duplicates skipped)\n", written, skipped)
		return nil
	},
}

func importDetections(ctx context.Context, st store.Store, detections []model.Detection) (written, skipped int64, err error) {
	if bulk, ok := st.(bulkImporter); ok {
		written, err = bulk.ImportDetections(ctx, detections)
		return written, int64(len(detections)) - written, err
	}

	for _, d := range detections {
		res, err := st.InsertDetection(ctx, d)
		if err != nil {
			return written, skipped, eris.Wrapf(err, "import detection %s", d.EvidenceID)
		}
		if res == store.ResultDuplicate {
			skipped++
		} else {
			written++
		}
	}
	return written, skipped, nil
}

func init() {
	rootCmd.AddCommand(importCmd)
}
