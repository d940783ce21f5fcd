package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestGainersResponseDecode(t *testing.T) {
	payload := `{
		"success": true,
		"data": {
			"items": [
				{"address": "WalletA", "pnl": 125000.5, "volume": 400000, "trade_count": 42}
			]
		}
	}`
	var resp GainersResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Success {
		t.Fatal("expected success flag")
	}
	if len(resp.Data.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(resp.Data.Items))
	}
	item := resp.Data.Items[0]
	if item.Address != "WalletA" || item.PnL != 125000.5 || item.TradeCount != 42 {
		t.Fatalf("unexpected item: %+v", item)
	}
}

func TestWalletTokenListResponseDecode(t *testing.T) {
	payload := `{
		"success": false,
		"message": "wallet not found",
		"data": {"items": []}
	}`
	var resp WalletTokenListResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Success {
		t.Fatal("expected success=false")
	}
	if resp.Message != "wallet not found" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
}

func TestLedgerRecordTouch(t *testing.T) {
	rec := LedgerRecord{WalletAddress: "WalletA", LastSeen: "2024-01-01"}
	rec.Touch(time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC))
	if rec.LastSeen != "2025-06-15" {
		t.Fatalf("unexpected last_seen: %s", rec.LastSeen)
	}
}
