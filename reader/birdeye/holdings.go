package birdeye

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"walletflow/logger"
	"walletflow/models"
)

const walletTokenListPath = "/v1/wallet/token_list"

// WalletTokenList fetches the raw token positions of one wallet under the
// retry policy. Callers decide how to degrade when the typed error signals
// retry exhaustion.
func (c *Client) WalletTokenList(ctx context.Context, wallet string) ([]models.HoldingEntry, error) {
	params := url.Values{}
	params.Set("wallet", wallet)

	log := c.log.WithComponent("holdings_reader").WithFields(logger.Fields{"wallet": wallet})
	log.Info("fetching holdings for wallet")

	var items []models.HoldingEntry
	err := c.withRetries(ctx, "wallet_token_list", func() error {
		body, err := c.get(ctx, "wallet_token_list", walletTokenListPath, params)
		if err != nil {
			return err
		}

		var resp models.WalletTokenListResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return &TransientError{Endpoint: "wallet_token_list", Err: fmt.Errorf("decode response: %w", err)}
		}
		if !resp.Success {
			return &FatalError{Endpoint: "wallet_token_list", Reason: resp.Message}
		}

		items = resp.Data.Items
		logger.IncrementHoldingsRead(len(body))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return items, nil
}
