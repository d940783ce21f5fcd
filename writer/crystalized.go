package writer

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	appconfig "walletflow/config"
	"walletflow/logger"
	"walletflow/models"
)

const walletLinkPrefix = "https://gmgn.ai/sol/address/"

var crystalizedHeader = []string{
	"Appearances", "Wallet", "Wallet_Address", "SOL_Balance", "Token_Value_SOL",
	"Token_Count", "Win_Rate_30d", "pnl_7d_percent", "pnl_7d_usd", "win_rate", "score",
}

// CrystalizedWriter emits the top-N ledger projection consumed by the
// downstream display surface. Balance and win-rate fields are placeholders
// the pipeline does not track; 7-day PnL is carried from the current snapshot
// when the wallet appeared in it and zero otherwise.
type CrystalizedWriter struct {
	config *appconfig.Config
	log    *logger.Log
}

func NewCrystalizedWriter(cfg *appconfig.Config) *CrystalizedWriter {
	return &CrystalizedWriter{
		config: cfg,
		log:    logger.GetLogger(),
	}
}

func (w *CrystalizedWriter) Path() string {
	return filepath.Join(w.config.Output.Dir, w.config.Output.CrystalizedFile)
}

// Write projects the top-N records of a score-sorted ledger into the output
// file. snapshotPnL maps wallet address to the current run's PnL.
func (w *CrystalizedWriter) Write(records []models.LedgerRecord, snapshotPnL map[string]float64) error {
	topN := w.config.Analysis.TopWallets
	if topN > len(records) {
		topN = len(records)
	}

	rows := make([][]string, 0, topN)
	for _, rec := range records[:topN] {
		row := models.CrystalizedRow{
			Appearances:   rec.Appearances,
			Wallet:        walletLinkPrefix + rec.WalletAddress,
			WalletAddress: rec.WalletAddress,
			PnL7dPercent:  "+0.00%",
			PnL7dUsd:      formatUSD(snapshotPnL[rec.WalletAddress]),
			WinRate:       "0.00%",
			Score:         rec.CompositeScore,
		}
		rows = append(rows, []string{
			strconv.Itoa(row.Appearances),
			row.Wallet,
			row.WalletAddress,
			formatPlaceholder(row.SolBalance),
			formatPlaceholder(row.TokenValueSol),
			formatPlaceholder(row.TokenCount),
			formatPlaceholder(row.WinRate30d),
			row.PnL7dPercent,
			row.PnL7dUsd,
			row.WinRate,
			strconv.FormatFloat(row.Score, 'f', -1, 64),
		})
	}

	if err := writeCSVAtomic(w.config.Output.Dir, w.config.Output.CrystalizedFile, crystalizedHeader, rows); err != nil {
		return fmt.Errorf("write crystalized list: %w", err)
	}

	w.log.WithComponent("crystalized_writer").WithFields(logger.Fields{
		"wallets": topN,
		"path":    w.Path(),
	}).Info("crystalized list written")
	return nil
}

func formatPlaceholder(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// formatUSD renders a currency amount as "+$1,234" with thousands grouping,
// matching the downstream surface's expected display format.
func formatUSD(v float64) string {
	n := int64(v + 0.5)
	if v < 0 {
		n = int64(v - 0.5)
	}

	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}

	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return "+$" + sign + b.String()
}
