package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/corpus"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/model"
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Inspect and import the multilingual keyword corpus",
}

var keywordsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print corpus size, language, and tier breakdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := corpus.Load(cfg.State.KeywordsPath)
		if err != nil {
			return err
		}

		fmt.Printf("Corpus version: %s\n", c.Version())
		fmt.Printf("Terms: %d\n", c.Size())
		fmt.Printf("Languages: %d (%s)\n", len(c.Languages()), strings.Join(c.Languages(), ", "))
		for _, tier := range []model.Tier{model.TierCritical, model.TierHigh, model.TierMedium, model.TierGeneral} {
			fmt.Printf("Tier %s: %d\n", tier, len(c.ByTier(tier)))
		}
		return nil
	},
}

var keywordsImportOut string

var keywordsImportCmd = &cobra.Command{
	Use:   "import <spreadsheet.xlsx>",
	Short: "Convert an analyst keyword spreadsheet to the corpus file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := corpus.FromXLSX(args[0])
		if err != nil {
			return err
		}

		out := keywordsImportOut
		if out == "" {
			out = cfg.State.KeywordsPath
		}
		if err := corpus.WriteFile(f, out); err != nil {
			return err
		}

		// Reload through the normal path so dedup and tiering validation run.
		c, err := corpus.Load(out)
		if err != nil {
			return eris.Wrap(err, "imported corpus failed validation")
		}
		fmt.Printf("Imported %d terms across %d languages to %s\n", c.Size(), len(c.Languages()), out)
		return nil
	},
}

func init() {
	keywordsImportCmd.Flags().StringVar(&keywordsImportOut, "out", "", "output path (default configured keywords file)")
	keywordsCmd.AddCommand(keywordsStatsCmd, keywordsImportCmd)
	rootCmd.AddCommand(keywordsCmd)
}
