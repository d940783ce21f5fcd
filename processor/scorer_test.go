package processor

import (
	"math"
	"testing"

	"walletflow/config"
	"walletflow/models"
)

func testAnalysisConfig() *config.Config {
	return &config.Config{
		Analysis: config.AnalysisConfig{
			TopGainersLimit:             30,
			BotTransactionThreshold:     350,
			SignificantHoldingThreshold: 9000,
			MinSignificantHoldings:      2,
			ExcludedSymbols:             []string{"SOL", "USDC"},
		},
	}
}

func TestScoreRejectsBots(t *testing.T) {
	s := NewScorer(testAnalysisConfig())

	tests := []struct {
		name       string
		tradeCount int
		want       bool
	}{
		{"zero trades", 0, false},
		{"over threshold", 351, false},
		{"at threshold", 350, true},
		{"normal", 42, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := s.Score(models.TopTrader{Address: "W1", PnL: 1000, Volume: 10000, TradeCount: tt.tradeCount})
			if ok != tt.want {
				t.Errorf("accepted = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestScoreBounds(t *testing.T) {
	s := NewScorer(testAnalysisConfig())

	tests := []struct {
		name   string
		trader models.TopTrader
	}{
		{"deep loss", models.TopTrader{Address: "W1", PnL: -500000, Volume: 10000, TradeCount: 5}},
		{"huge winner", models.TopTrader{Address: "W2", PnL: 50000000, Volume: 1000, TradeCount: 3}},
		{"zero volume", models.TopTrader{Address: "W3", PnL: 1000, Volume: 0, TradeCount: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := s.Score(tt.trader)
			if !ok {
				t.Fatal("trader unexpectedly rejected")
			}
			if m.EfficiencyScore < 0 || m.EfficiencyScore > 100 {
				t.Errorf("EfficiencyScore out of bounds: %f", m.EfficiencyScore)
			}
			if m.TradingScore < 0 || m.TradingScore > 100 {
				t.Errorf("TradingScore out of bounds: %f", m.TradingScore)
			}
		})
	}
}

func TestScoreKnownValues(t *testing.T) {
	s := NewScorer(testAnalysisConfig())

	// efficiency = (5000/100000)*200 = 10
	// pnl_score  = 5000/100000 = 0.05
	// activity   = (1000-1000)/19000*100 = 0
	m, ok := s.Score(models.TopTrader{Address: "W1", PnL: 5000, Volume: 100000, TradeCount: 5})
	if !ok {
		t.Fatal("trader unexpectedly rejected")
	}
	if math.Abs(m.EfficiencyScore-10) > 1e-9 {
		t.Errorf("EfficiencyScore = %f, want 10", m.EfficiencyScore)
	}
	want := 10*0.33 + 0.05*0.33
	if math.Abs(m.TradingScore-want) > 1e-9 {
		t.Errorf("TradingScore = %f, want %f", m.TradingScore, want)
	}
}

func TestScoreZeroVolumeEfficiency(t *testing.T) {
	s := NewScorer(testAnalysisConfig())

	m, ok := s.Score(models.TopTrader{Address: "W1", PnL: 250000, Volume: 0, TradeCount: 10})
	if !ok {
		t.Fatal("trader unexpectedly rejected")
	}
	if m.EfficiencyScore != 0 {
		t.Errorf("EfficiencyScore = %f, want 0 for zero volume", m.EfficiencyScore)
	}
}
