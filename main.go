package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"walletflow/config"
	"walletflow/ledger"
	"walletflow/logger"
	"walletflow/models"
	"walletflow/processor"
	"walletflow/reader/birdeye"
	"walletflow/writer"
)

// notableRankCutoff bounds which top-list entries and exits get their own log
// line; churn deeper in the list is only counted.
const notableRankCutoff = 100

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", config.DefaultConfigPath, "Path to configuration file")
	reconcileOnly := flag.Bool("reconcile-only", false, "Skip fetching; reconcile the last snapshot into the ledger")
	flag.Parse()

	cfg, err := config.LoadConfig(config.ResolveConfigPath(*configPath))
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	logger.InitCloudWatch(cfg.Storage.S3.Region, "", cfg.Logging.DashboardName)

	runID := uuid.New().String()
	log.WithFields(logger.Fields{
		"service": cfg.Walletflow.Name,
		"version": cfg.Walletflow.Version,
		"run_id":  runID,
	}).Info("starting walletflow")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	if err := run(ctx, cfg, *reconcileOnly, log); err != nil {
		log.WithError(err).Error("run failed")
		logger.ReportNow(context.Background(), log)
		os.Exit(1)
	}

	logger.ReportNow(context.Background(), log)
	log.Info("walletflow run completed")
}

func run(ctx context.Context, cfg *config.Config, reconcileOnly bool, log *logger.Log) error {
	runDate := time.Now()
	snapshotWriter := writer.NewSnapshotWriter(cfg)

	var snapshot []models.TraderMetrics
	var err error
	if reconcileOnly {
		snapshot, err = snapshotWriter.Load()
		if err != nil {
			return err
		}
		log.WithFields(logger.Fields{"traders": len(snapshot)}).Info("loaded existing snapshot")
	} else {
		client := birdeye.NewClient(cfg)
		fetcher := processor.NewHoldingsFetcher(cfg, client)
		builder := processor.NewSnapshotBuilder(cfg, client, fetcher)

		snapshot, err = builder.Build(ctx)
		if err != nil {
			return err
		}
		if err := snapshotWriter.Write(snapshot); err != nil {
			return err
		}
	}

	store := ledger.NewStore(cfg)
	reconciler := ledger.NewReconciler(cfg, store)
	records, summary, err := reconciler.Reconcile(snapshot, runDate)
	if err != nil {
		return err
	}
	logSummary(log, summary)

	snapshotPnL := make(map[string]float64, len(snapshot))
	for _, m := range snapshot {
		snapshotPnL[m.Address] = m.PnL
	}
	if err := writer.NewCrystalizedWriter(cfg).Write(records, snapshotPnL); err != nil {
		return err
	}

	if cfg.Storage.S3.Enabled && !reconcileOnly {
		archiver, err := writer.NewArchiver(cfg)
		if err != nil {
			return err
		}
		// Archive failures do not invalidate the local outputs.
		if err := archiver.Archive(ctx, snapshot, runDate); err != nil {
			log.WithError(err).Warn("failed to archive snapshot")
		}
		if err := archiver.ArchiveLedger(ctx, store.Path(), runDate); err != nil {
			log.WithError(err).Warn("failed to archive ledger")
		}
	}

	return nil
}

func logSummary(log *logger.Log, summary *ledger.Summary) {
	log.WithComponent("main").WithFields(logger.Fields{
		"new_wallets":     summary.NewWallets,
		"updated_wallets": summary.UpdatedWallets,
		"dropped_top":     len(summary.Dropped),
		"added_top":       len(summary.Added),
	}).Info("ledger update summary")

	entry := log.WithComponent("main")
	entry.LogMetric("reconciler", "NewWallets", summary.NewWallets, "gauge", nil)
	entry.LogMetric("reconciler", "UpdatedWallets", summary.UpdatedWallets, "gauge", nil)
	entry.LogMetric("reconciler", "SignificantChanges", len(summary.SignificantChanges), "gauge", nil)
	entry.LogMetric("reconciler", "TopListDropped", len(summary.Dropped), "gauge", nil)
	entry.LogMetric("reconciler", "TopListAdded", len(summary.Added), "gauge", nil)

	for _, change := range summary.SignificantChanges {
		log.WithComponent("main").WithFields(logger.Fields{
			"wallet":     change.Wallet,
			"old_score":  change.OldScore,
			"new_score":  change.NewScore,
			"change_pct": change.ChangePct * 100,
		}).Info("significant score change")
	}
	for _, w := range summary.Dropped {
		if w.Rank <= notableRankCutoff {
			log.WithComponent("main").WithFields(logger.Fields{
				"wallet":   w.Wallet,
				"was_rank": w.Rank,
			}).Info("notable drop from top list")
		}
	}
	for _, w := range summary.Added {
		if w.Rank <= notableRankCutoff {
			log.WithComponent("main").WithFields(logger.Fields{
				"wallet": w.Wallet,
				"rank":   w.Rank,
			}).Info("notable addition to top list")
		}
	}
}
