package processor

import (
	"context"
	"fmt"
	"sort"

	"walletflow/config"
	"walletflow/logger"
	"walletflow/models"
)

// maxDisplayHoldings caps how many positions a snapshot row carries.
const maxDisplayHoldings = 5

// TraderSource is the slice of the upstream client the builder needs.
type TraderSource interface {
	TopTraders(ctx context.Context, limit int) ([]models.TopTrader, error)
}

// SnapshotBuilder produces one run's qualified-trader snapshot: fetch, score,
// dedupe, sort, enrich with holdings, filter. Retries live in the client; the
// builder makes a single pass.
type SnapshotBuilder struct {
	config   *config.Config
	source   TraderSource
	scorer   *Scorer
	holdings *HoldingsFetcher
	log      *logger.Log
}

func NewSnapshotBuilder(cfg *config.Config, source TraderSource, holdings *HoldingsFetcher) *SnapshotBuilder {
	return &SnapshotBuilder{
		config:   cfg,
		source:   source,
		scorer:   NewScorer(cfg),
		holdings: holdings,
		log:      logger.GetLogger(),
	}
}

// Build runs the pipeline and returns qualified traders ordered descending by
// trading score. An error is returned only when no traders could be fetched
// at all; partial upstream failures surface as a smaller snapshot.
func (b *SnapshotBuilder) Build(ctx context.Context) ([]models.TraderMetrics, error) {
	log := b.log.WithComponent("snapshot_builder")

	raw, err := b.source.TopTraders(ctx, b.config.Analysis.TopGainersLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch traders: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no traders fetched")
	}
	log.WithFields(logger.Fields{"fetched": len(raw)}).Info("fetched raw traders")

	// Score and dedupe in fetch order: the first occurrence that yields
	// metrics wins and later duplicates are silently discarded. Rejected
	// records do not claim the address.
	seen := make(map[string]struct{}, len(raw))
	scored := make([]models.TraderMetrics, 0, len(raw))
	for _, t := range raw {
		if _, dup := seen[t.Address]; dup {
			continue
		}

		metrics, ok := b.scorer.Score(t)
		if !ok {
			continue
		}
		seen[t.Address] = struct{}{}
		scored = append(scored, metrics)
	}
	log.WithFields(logger.Fields{
		"scored":   len(scored),
		"rejected": len(raw) - len(scored),
	}).Info("scored traders")

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].TradingScore > scored[j].TradingScore
	})

	// Holdings enrichment dominates wall-clock time: one upstream call per
	// wallet, paced by the client's rate limiter.
	minHoldings := b.config.Analysis.MinSignificantHoldings
	qualified := make([]models.TraderMetrics, 0, len(scored))
	for i, m := range scored {
		positions := b.holdings.Holdings(ctx, m.Address)
		if len(positions) < minHoldings {
			continue
		}
		if len(positions) > maxDisplayHoldings {
			positions = positions[:maxDisplayHoldings]
		}
		m.TopHoldings = positions
		qualified = append(qualified, m)

		if (i+1)%10 == 0 {
			log.WithFields(logger.Fields{"processed": i + 1, "total": len(scored)}).Info("holdings enrichment progress")
		}
	}

	log.WithFields(logger.Fields{"qualified": len(qualified)}).Info("snapshot built")
	return qualified, nil
}
