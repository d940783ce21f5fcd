package processor

import (
	"walletflow/config"
	"walletflow/models"
)

// Scorer converts raw trader records into bounded composite metrics and
// rejects bot-like accounts. Scoring is pure: no I/O, no state beyond the
// configured thresholds.
type Scorer struct {
	botThreshold int
}

func NewScorer(cfg *config.Config) *Scorer {
	return &Scorer{
		botThreshold: cfg.Analysis.BotTransactionThreshold,
	}
}

// Score derives metrics for one trader. The second return value is false when
// the record looks like a bot: zero trades, or more trades over the window
// than a human trader plausibly makes.
func (s *Scorer) Score(t models.TopTrader) (models.TraderMetrics, bool) {
	if t.TradeCount == 0 || t.TradeCount > s.botThreshold {
		return models.TraderMetrics{}, false
	}

	// Capital efficiency: pnl relative to volume, scaled so 50% return hits
	// the cap.
	var efficiency float64
	if t.Volume > 0 {
		efficiency = clamp((t.PnL / t.Volume) * 200)
	}

	// Absolute profit: $10m maps to the cap.
	pnlScore := clamp(t.PnL / 100000)

	// Per-trade consistency: $1k per trade scores zero, $20k per trade caps.
	profitPerTrade := t.PnL / float64(t.TradeCount)
	activity := clamp((profitPerTrade - 1000) / 19000 * 100)

	return models.TraderMetrics{
		Address:         t.Address,
		PnL:             t.PnL,
		Volume:          t.Volume,
		TradeCount:      t.TradeCount,
		EfficiencyScore: efficiency,
		TradingScore:    efficiency*0.33 + pnlScore*0.33 + activity*0.34,
	}, true
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
