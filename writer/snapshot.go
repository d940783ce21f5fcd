package writer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	appconfig "walletflow/config"
	"walletflow/logger"
	"walletflow/models"
)

var snapshotHeader = []string{
	"Wallet", "PnL", "Volume", "Trade_Count", "Efficiency_Score", "Trading_Score",
	"Top_Holding_1", "Top_Holding_2", "Top_Holding_3", "Top_Holding_4", "Top_Holding_5",
}

// SnapshotWriter persists one run's qualified-trader snapshot as a CSV file,
// overwriting the previous run's output.
type SnapshotWriter struct {
	config *appconfig.Config
	log    *logger.Log
}

func NewSnapshotWriter(cfg *appconfig.Config) *SnapshotWriter {
	return &SnapshotWriter{
		config: cfg,
		log:    logger.GetLogger(),
	}
}

func (w *SnapshotWriter) Path() string {
	return filepath.Join(w.config.Output.Dir, w.config.Output.SnapshotFile)
}

// Write replaces the snapshot file atomically with one row per trader, in the
// order given.
func (w *SnapshotWriter) Write(snapshot []models.TraderMetrics) error {
	log := w.log.WithComponent("snapshot_writer")

	rows := make([][]string, 0, len(snapshot))
	for _, m := range snapshot {
		row := []string{
			m.Address,
			strconv.FormatFloat(m.PnL, 'f', -1, 64),
			strconv.FormatFloat(m.Volume, 'f', -1, 64),
			strconv.Itoa(m.TradeCount),
			strconv.FormatFloat(m.EfficiencyScore, 'f', -1, 64),
			strconv.FormatFloat(m.TradingScore, 'f', -1, 64),
		}
		for i := 0; i < 5; i++ {
			if i < len(m.TopHoldings) {
				row = append(row, m.TopHoldings[i])
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}

	if err := writeCSVAtomic(w.config.Output.Dir, w.config.Output.SnapshotFile, snapshotHeader, rows); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	log.WithFields(logger.Fields{"traders": len(snapshot), "path": w.Path()}).Info("snapshot written")
	return nil
}

// Load reads a previously written snapshot back. Reconcile-only runs use
// this to fold the last analysis into the ledger without refetching; a
// missing file is a hard error for that mode.
func (w *SnapshotWriter) Load() ([]models.TraderMetrics, error) {
	f, err := os.Open(w.Path())
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	snapshot := make([]models.TraderMetrics, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) != len(snapshotHeader) {
			return nil, fmt.Errorf("snapshot row %d: expected %d columns, got %d", i+2, len(snapshotHeader), len(row))
		}
		pnl, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("snapshot row %d: parse pnl: %w", i+2, err)
		}
		volume, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("snapshot row %d: parse volume: %w", i+2, err)
		}
		tradeCount, err := strconv.Atoi(row[3])
		if err != nil {
			return nil, fmt.Errorf("snapshot row %d: parse trade_count: %w", i+2, err)
		}
		efficiency, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("snapshot row %d: parse efficiency_score: %w", i+2, err)
		}
		trading, err := strconv.ParseFloat(row[5], 64)
		if err != nil {
			return nil, fmt.Errorf("snapshot row %d: parse trading_score: %w", i+2, err)
		}

		m := models.TraderMetrics{
			Address:         row[0],
			PnL:             pnl,
			Volume:          volume,
			TradeCount:      tradeCount,
			EfficiencyScore: efficiency,
			TradingScore:    trading,
		}
		for _, h := range row[6:] {
			if h != "" {
				m.TopHoldings = append(m.TopHoldings, h)
			}
		}
		snapshot = append(snapshot, m)
	}
	return snapshot, nil
}

// writeCSVAtomic writes header plus rows to dir/file through a temp file and
// rename, so readers never observe a partially written output.
func writeCSVAtomic(dir, file string, header []string, rows [][]string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, file+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	cw := csv.NewWriter(tmp)
	if err := cw.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(dir, file)); err != nil {
		return fmt.Errorf("replace output file: %w", err)
	}
	return nil
}
