package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"walletflow/config"
	"walletflow/logger"
	"walletflow/models"
)

var ledgerHeader = []string{"wallet_address", "composite_score", "last_seen", "appearances"}

// Store persists the historical wallet ledger as a CSV file. The ledger is
// loaded fully at reconciliation start and rewritten fully at the end; writes
// go through a temp file and rename so a crash never leaves a truncated
// ledger behind.
type Store struct {
	dir  string
	file string
	log  *logger.Log
}

func NewStore(cfg *config.Config) *Store {
	return &Store{
		dir:  cfg.Ledger.Dir,
		file: cfg.Ledger.File,
		log:  logger.GetLogger(),
	}
}

func (s *Store) Path() string {
	return filepath.Join(s.dir, s.file)
}

// Load reads all ledger records. A missing file is the first-run case and
// returns an empty ledger, not an error.
func (s *Store) Load() ([]models.LedgerRecord, error) {
	f, err := os.Open(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			s.log.WithComponent("ledger_store").Info("no existing ledger, starting fresh")
			return nil, nil
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	records := make([]models.LedgerRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) != len(ledgerHeader) {
			return nil, fmt.Errorf("ledger row %d: expected %d columns, got %d", i+2, len(ledgerHeader), len(row))
		}
		score, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("ledger row %d: parse composite_score: %w", i+2, err)
		}
		appearances, err := strconv.Atoi(row[3])
		if err != nil {
			return nil, fmt.Errorf("ledger row %d: parse appearances: %w", i+2, err)
		}
		records = append(records, models.LedgerRecord{
			WalletAddress:  row[0],
			CompositeScore: score,
			LastSeen:       row[2],
			Appearances:    appearances,
		})
	}

	s.log.WithComponent("ledger_store").WithFields(logger.Fields{"records": len(records)}).Info("loaded ledger")
	return records, nil
}

// Save rewrites the whole ledger atomically.
func (s *Store) Save(records []models.LedgerRecord) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, s.file+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	defer os.Remove(tmp.Name())

	writer := csv.NewWriter(tmp)
	if err := writer.Write(ledgerHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("write ledger header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.WalletAddress,
			strconv.FormatFloat(r.CompositeScore, 'f', -1, 64),
			r.LastSeen,
			strconv.Itoa(r.Appearances),
		}
		if err := writer.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("write ledger row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp ledger: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.Path()); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}

	s.log.WithComponent("ledger_store").WithFields(logger.Fields{"records": len(records)}).Info("saved ledger")
	return nil
}
