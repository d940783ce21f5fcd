package ledger

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"walletflow/config"
	"walletflow/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(&config.Config{
		Ledger: config.LedgerConfig{
			Dir:  t.TempDir(),
			File: "all_wallets.csv",
		},
	})
}

func TestStoreLoadMissingFile(t *testing.T) {
	s := testStore(t)
	records, err := s.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty ledger, got %d records", len(records))
	}
}

func TestStoreRoundTrip(t *testing.T) {
	s := testStore(t)
	records := []models.LedgerRecord{
		{WalletAddress: "W1", CompositeScore: 62.5, LastSeen: "2026-08-29", Appearances: 3},
		{WalletAddress: "W2", CompositeScore: 48.123456789, LastSeen: "2026-08-28", Appearances: 1},
	}

	if err := s.Save(records); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(loaded, records) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, records)
	}
}

func TestStoreSaveLeavesNoTempFiles(t *testing.T) {
	s := testStore(t)
	if err := s.Save([]models.LedgerRecord{{WalletAddress: "W1", CompositeScore: 10, LastSeen: "2026-08-29", Appearances: 1}}); err != nil {
		t.Fatalf("save: %v", err)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != s.file {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("unexpected directory contents: %v", names)
	}
}

func TestStoreLoadRejectsMalformedRows(t *testing.T) {
	s := testStore(t)
	path := filepath.Join(s.dir, s.file)
	if err := os.WriteFile(path, []byte("wallet_address,composite_score,last_seen,appearances\nW1,not-a-number,2026-08-29,1\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := s.Load(); err == nil {
		t.Fatal("expected error for malformed score")
	}
}
