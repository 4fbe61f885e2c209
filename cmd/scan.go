package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/adapter"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/corpus"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/cursor"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/dedup"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/headless"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/monitoring"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/scheduler"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/scorer"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/sink"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/supervisor"
	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/pkg/ebay"
)

var (
	scanOnce     bool
	scanDuration time.Duration
	scanBatch    int
	scanRunTag   string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run the continuous marketplace scan session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		c, err := corpus.Load(cfg.State.KeywordsPath)
		if err != nil {
			return eris.Wrap(err, "load keyword corpus")
		}
		zap.L().Info("keyword corpus loaded",
			zap.Int("terms", c.Size()),
			zap.Int("languages", len(c.Languages())),
			zap.String("version", c.Version()),
		)

		scoreCfg, err := scorer.LoadConfig(cfg.State.IndicatorsPath)
		if err != nil {
			return eris.Wrap(err, "load indicator config")
		}
		engine, err := scorer.NewEngine(scoreCfg)
		if err != nil {
			return eris.Wrap(err, "build scorer")
		}

		if err := os.MkdirAll(filepath.Dir(cfg.State.CursorPath), 0o755); err != nil {
			return eris.Wrap(err, "create state dir")
		}
		cursors := cursor.NewStore(c, cfg.State.CursorPath)
		cache := dedup.New()
		cache.Load(cfg.State.DedupPath)

		reg, err := buildRegistry()
		if err != nil {
			return err
		}

		runTag := scanRunTag
		if runTag == "" {
			runTag = cfg.Scan.RunTag
		}

		batch := scanBatch
		if batch == 0 {
			batch = cfg.Scan.BatchSize
		}
		sched := scheduler.New(scheduler.Config{
			BatchSize:       batch,
			DemoteThreshold: cfg.Scan.DemoteThreshold,
			DemoteCooldown:  cfg.Scan.DemoteCooldown(),
		}, reg, cursors, cache, engine, sink.New(st, runTag))

		duration := scanDuration
		if duration == 0 {
			duration = cfg.Scan.Duration()
		}
		superCfg := supervisor.Config{
			Duration:          duration,
			DedupSnapshotPath: cfg.State.DedupPath,
		}
		if scanOnce {
			superCfg.MaxCycles = 1
		}

		// Background alert checker runs for the life of the session.
		alerter := monitoring.NewAlerter(monitoringConfig(), st)
		checker := monitoring.NewChecker(monitoring.NewCollector(st), alerter, monitoringConfig())
		checkCtx, stopChecker := context.WithCancel(ctx)
		defer stopChecker()
		go checker.Run(checkCtx)

		stats, err := supervisor.New(superCfg, sched, cache, cursors, st).Run(ctx)
		if err != nil {
			zap.L().Warn("state flush incomplete on shutdown", zap.Error(err))
		}

		fmt.Print(supervisor.FormatReport(stats))
		return nil
	},
}

// buildRegistry wires every platform scanner. Headless-only platforms are
// registered even without a browser endpoint; they skip their cycles until
// one is configured.
func buildRegistry() (*adapter.Registry, error) {
	reg := adapter.NewRegistry()

	var browser headless.Browser
	if cfg.Browser.Endpoint != "" {
		remote, err := headless.NewRemote(cfg.Browser.Endpoint, headless.WithToken(cfg.Browser.Token))
		if err != nil {
			return nil, eris.Wrap(err, "init browser")
		}
		browser = remote
	}

	var ebayOpts []adapter.EbayOption
	if cfg.Backfill.Enabled {
		cutoff := time.Now().UTC().AddDate(0, 0, -cfg.Backfill.Days)
		ebayOpts = append(ebayOpts, adapter.WithListedAfter(cutoff))
		zap.L().Info("historical backfill enabled", zap.Time("listed_after", cutoff))
	}
	ebayClient := ebay.NewClient(cfg.Ebay.AppID, cfg.Ebay.CertID,
		ebay.WithBaseURL(cfg.Ebay.BaseURL),
		ebay.WithAuthBaseURL(cfg.Ebay.AuthBaseURL),
		ebay.WithMarketplace(cfg.Ebay.Marketplace),
	)

	adapters := []adapter.Adapter{
		adapter.NewEbay(ebayClient, ebayOpts...),
		adapter.NewCraigslist(),
		adapter.NewOLX(),
		adapter.NewMarktplaats(),
		adapter.NewMercadoLibre(),
		adapter.NewGumtree(),
		adapter.NewAvito(),
		adapter.NewMercari(),
		adapter.NewAliExpress(browser),
		adapter.NewTaobao(browser),
		adapter.NewFacebook(browser),
	}
	for _, a := range adapters {
		if err := reg.RegisterDefault(a); err != nil {
			return nil, eris.Wrapf(err, "register %s", a.Name())
		}
	}
	return reg, nil
}

func monitoringConfig() monitoring.Config {
	return monitoring.Config{
		WebhookURL:             cfg.Monitoring.WebhookURL,
		ReviewBacklogThreshold: cfg.Monitoring.ReviewBacklogThreshold,
		SilenceAfterHours:      cfg.Monitoring.SilenceAfterHours,
		LookbackHours:          cfg.Monitoring.LookbackHours,
		CheckIntervalSecs:      cfg.Monitoring.CheckIntervalSecs,
	}
}

func init() {
	scanCmd.Flags().BoolVar(&scanOnce, "once", false, "run a single cycle and exit")
	scanCmd.Flags().DurationVar(&scanDuration, "duration", 0, "session budget (overrides config)")
	scanCmd.Flags().IntVar(&scanBatch, "batch-size", 0, "keywords per cycle (overrides config)")
	scanCmd.Flags().StringVar(&scanRunTag, "run-tag", "", "evidence ID run tag (default generated)")
	rootCmd.AddCommand(scanCmd)
}
