package models

// GainersResponse is the envelope returned by the Birdeye
// /trader/gainers-losers endpoint. Non-success or missing data is treated
// as a fetch failure at the client boundary; nothing downstream ever sees
// a partially decoded payload.
type GainersResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    GainersData `json:"data"`
}

// GainersData wraps the items array of a gainers-losers page.
type GainersData struct {
	Items []TopTrader `json:"items"`
}

// WalletTokenListResponse is the envelope returned by the Birdeye
// /v1/wallet/token_list endpoint.
type WalletTokenListResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    WalletTokenData `json:"data"`
}

// WalletTokenData wraps the holdings array for one wallet.
type WalletTokenData struct {
	Wallet string         `json:"wallet,omitempty"`
	Items  []HoldingEntry `json:"items"`
}

// HoldingEntry is a single token position of a wallet. Only the symbol and
// USD value survive past the holdings filter; the rest of the upstream
// fields are ignored on purpose.
type HoldingEntry struct {
	Symbol   string  `json:"symbol"`
	ValueUsd float64 `json:"valueUsd"`
}
