package models

// TopTrader represents one raw entry from the Birdeye gainers-losers
// listing. It is ephemeral and exists only during one fetch cycle.
type TopTrader struct {
	Address    string  `json:"address"`
	PnL        float64 `json:"pnl"`
	Volume     float64 `json:"volume"`
	TradeCount int     `json:"trade_count"`
}

// TraderMetrics holds the scored view of a trader. TopHoldings stays nil
// until the holdings enrichment step runs and is never mutated afterwards.
type TraderMetrics struct {
	Address         string
	PnL             float64
	Volume          float64
	TradeCount      int
	EfficiencyScore float64
	TradingScore    float64
	TopHoldings     []string
}
