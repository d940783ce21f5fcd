package models

import "time"

// LedgerDateLayout is the date format used for the last_seen column.
const LedgerDateLayout = "2006-01-02"

// LedgerRecord is one persistent row of the historical wallet ledger,
// keyed by wallet address. Records are created on first appearance and
// updated on every later one; they are never deleted.
type LedgerRecord struct {
	WalletAddress  string
	CompositeScore float64
	LastSeen       string
	Appearances    int
}

// Touch updates the last_seen column to the given run date.
func (r *LedgerRecord) Touch(runDate time.Time) {
	r.LastSeen = runDate.Format(LedgerDateLayout)
}

// CrystalizedRow is the display projection of one top-N ledger record.
// It is regenerated each run and never persisted as state; fields the
// pipeline does not track are zero placeholders for the downstream surface.
type CrystalizedRow struct {
	Appearances   int
	Wallet        string
	WalletAddress string
	SolBalance    float64
	TokenValueSol float64
	TokenCount    float64
	WinRate30d    float64
	PnL7dPercent  string
	PnL7dUsd      string
	WinRate       string
	Score         float64
}
