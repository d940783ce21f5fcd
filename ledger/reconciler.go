package ledger

import (
	"fmt"
	"math"
	"sort"
	"time"

	"walletflow/config"
	"walletflow/logger"
	"walletflow/models"
)

const (
	historyWeight  = 0.7
	incomingWeight = 0.3

	// Relative score movement above this fraction is reported as notable.
	significantChangeRatio = 0.2
)

// ChangeEvent records a wallet whose blended score moved more than the
// significance threshold in one run. ChangePct is signed: negative for a
// score drop.
type ChangeEvent struct {
	Wallet    string
	OldScore  float64
	NewScore  float64
	ChangePct float64
}

// RankedWallet is a wallet with its position in a score-ordered ledger.
// Rank is 1-based and computed from the sorted ledger, so it is stable for a
// given ledger state.
type RankedWallet struct {
	Wallet string
	Rank   int
	Score  float64
}

// Summary reports what one reconciliation did to the ledger.
type Summary struct {
	RunDate            time.Time
	NewWallets         int
	UpdatedWallets     int
	SignificantChanges []ChangeEvent
	Dropped            []RankedWallet
	Added              []RankedWallet
}

// Reconciler folds one run's snapshot into the persistent ledger: existing
// wallets get an exponentially weighted blend favoring history, new wallets
// are inserted at their incoming score, and top-N churn is derived for
// reporting.
type Reconciler struct {
	store *Store
	topN  int
	log   *logger.Log
}

func NewReconciler(cfg *config.Config, store *Store) *Reconciler {
	return &Reconciler{
		store: store,
		topN:  cfg.Analysis.TopWallets,
		log:   logger.GetLogger(),
	}
}

// Reconcile loads the ledger, applies the snapshot, persists the result and
// returns the updated records ordered descending by composite score.
func (r *Reconciler) Reconcile(snapshot []models.TraderMetrics, runDate time.Time) ([]models.LedgerRecord, *Summary, error) {
	log := r.log.WithComponent("reconciler")

	records, err := r.store.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load ledger: %w", err)
	}

	sortByScore(records)
	previousTop := topRanks(records, r.topN)

	index := make(map[string]int, len(records))
	for i, rec := range records {
		index[rec.WalletAddress] = i
	}

	summary := &Summary{RunDate: runDate}
	for _, m := range snapshot {
		i, exists := index[m.Address]
		if !exists {
			rec := models.LedgerRecord{
				WalletAddress:  m.Address,
				CompositeScore: m.TradingScore,
				Appearances:    1,
			}
			rec.Touch(runDate)
			index[m.Address] = len(records)
			records = append(records, rec)
			summary.NewWallets++
			continue
		}

		old := records[i].CompositeScore
		blended := old*historyWeight + m.TradingScore*incomingWeight
		records[i].CompositeScore = blended
		records[i].Appearances++
		records[i].Touch(runDate)
		summary.UpdatedWallets++

		if changePct, significant := relativeChange(old, blended); significant {
			summary.SignificantChanges = append(summary.SignificantChanges, ChangeEvent{
				Wallet:    m.Address,
				OldScore:  old,
				NewScore:  blended,
				ChangePct: changePct,
			})
		}
	}

	sortByScore(records)
	newTop := topRanks(records, r.topN)

	for wallet, rank := range previousTop {
		if _, still := newTop[wallet]; !still {
			summary.Dropped = append(summary.Dropped, rank)
		}
	}
	for wallet, rank := range newTop {
		if _, was := previousTop[wallet]; !was {
			summary.Added = append(summary.Added, rank)
		}
	}
	sort.Slice(summary.Dropped, func(i, j int) bool { return summary.Dropped[i].Rank < summary.Dropped[j].Rank })
	sort.Slice(summary.Added, func(i, j int) bool { return summary.Added[i].Rank < summary.Added[j].Rank })

	if err := r.store.Save(records); err != nil {
		return nil, nil, fmt.Errorf("save ledger: %w", err)
	}

	log.WithFields(logger.Fields{
		"new":                 summary.NewWallets,
		"updated":             summary.UpdatedWallets,
		"significant_changes": len(summary.SignificantChanges),
		"dropped":             len(summary.Dropped),
		"added":               len(summary.Added),
	}).Info("ledger reconciled")

	return records, summary, nil
}

// relativeChange reports the signed fractional score movement and whether its
// magnitude crosses the significance threshold. A zero old score is treated
// as a full change.
func relativeChange(old, updated float64) (float64, bool) {
	if old == 0 {
		return 1, true
	}
	pct := (updated - old) / old
	return pct, math.Abs(pct) > significantChangeRatio
}

func sortByScore(records []models.LedgerRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CompositeScore > records[j].CompositeScore
	})
}

// topRanks maps the first n wallets of a score-sorted ledger to their 1-based
// rank.
func topRanks(records []models.LedgerRecord, n int) map[string]RankedWallet {
	if n > len(records) {
		n = len(records)
	}
	ranks := make(map[string]RankedWallet, n)
	for i := 0; i < n; i++ {
		ranks[records[i].WalletAddress] = RankedWallet{
			Wallet: records[i].WalletAddress,
			Rank:   i + 1,
			Score:  records[i].CompositeScore,
		}
	}
	return ranks
}
