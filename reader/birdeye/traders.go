package birdeye

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"walletflow/logger"
	"walletflow/models"
)

const gainersLosersPath = "/trader/gainers-losers"

// TopTraders fetches up to limit raw trader records from the paginated
// gainers-losers listing. Pages that exhaust their retries are skipped so a
// flaky upstream degrades the result instead of aborting the run; an empty
// page means the listing is exhausted and stops the walk early.
func (c *Client) TopTraders(ctx context.Context, limit int) ([]models.TopTrader, error) {
	log := c.log.WithComponent("trader_reader")
	pageSize := c.config.Source.PageSize

	traders := make([]models.TopTrader, 0, limit)
	for offset := 0; offset < limit; offset += pageSize {
		if ctx.Err() != nil {
			return traders, ctx.Err()
		}

		page, size, err := c.gainersPage(ctx, offset, pageSize)
		if err != nil {
			// The page is the unit of work: fatal or retry-exhausted pages
			// are skipped and the walk continues with partial data.
			log.WithError(err).WithFields(logger.Fields{"offset": offset}).Error("failed to fetch trader page")
			continue
		}
		if len(page) == 0 {
			log.WithFields(logger.Fields{"offset": offset}).Info("trader listing exhausted")
			break
		}

		traders = append(traders, page...)
		logger.IncrementTraderPage(size)
		log.WithFields(logger.Fields{"fetched": len(traders)}).Info("fetched traders so far")
	}

	return traders, nil
}

// gainersPage fetches and decodes one page of the listing under the retry
// policy, returning the items and the payload size.
func (c *Client) gainersPage(ctx context.Context, offset, pageSize int) ([]models.TopTrader, int, error) {
	params := url.Values{}
	params.Set("type", c.config.Analysis.TimeWindow)
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(pageSize))

	var items []models.TopTrader
	var size int
	err := c.withRetries(ctx, "gainers_losers", func() error {
		body, err := c.get(ctx, "gainers_losers", gainersLosersPath, params)
		if err != nil {
			return err
		}

		var resp models.GainersResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return &TransientError{Endpoint: "gainers_losers", Err: fmt.Errorf("decode response: %w", err)}
		}
		if !resp.Success {
			return &FatalError{Endpoint: "gainers_losers", Reason: resp.Message}
		}

		items = resp.Data.Items
		size = len(body)
		return nil
	})
	return items, size, err
}
