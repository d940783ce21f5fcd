package processor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"walletflow/config"
	"walletflow/logger"
	"walletflow/models"
)

// TokenLister is the slice of the upstream client the holdings fetcher needs.
type TokenLister interface {
	WalletTokenList(ctx context.Context, wallet string) ([]models.HoldingEntry, error)
}

// HoldingsFetcher resolves a wallet's significant token positions into display
// strings. Results are memoized per wallet for the lifetime of one fetcher
// instance; a fetcher is built per run and discarded with it.
type HoldingsFetcher struct {
	client    TokenLister
	threshold float64
	excluded  map[string]struct{}
	cache     map[string][]string
	log       *logger.Log
}

func NewHoldingsFetcher(cfg *config.Config, client TokenLister) *HoldingsFetcher {
	excluded := make(map[string]struct{}, len(cfg.Analysis.ExcludedSymbols))
	for _, sym := range cfg.Analysis.ExcludedSymbols {
		excluded[strings.ToUpper(sym)] = struct{}{}
	}

	return &HoldingsFetcher{
		client:    client,
		threshold: cfg.Analysis.SignificantHoldingThreshold,
		excluded:  excluded,
		cache:     make(map[string][]string),
		log:       logger.GetLogger(),
	}
}

// Holdings returns the wallet's significant positions as formatted strings,
// sorted descending by USD value. A fetch failure after retries yields an
// empty slice: callers cannot tell "no significant holdings" from "holdings
// unavailable", and downstream filtering treats both as unqualified.
func (h *HoldingsFetcher) Holdings(ctx context.Context, wallet string) []string {
	if cached, ok := h.cache[wallet]; ok {
		return cached
	}

	log := h.log.WithComponent("holdings_fetcher")

	items, err := h.client.WalletTokenList(ctx, wallet)
	if err != nil {
		log.WithError(err).WithFields(logger.Fields{"wallet": wallet}).Error("failed to fetch holdings")
		h.cache[wallet] = nil
		return nil
	}

	significant := make([]models.HoldingEntry, 0, len(items))
	for _, item := range items {
		if item.ValueUsd < h.threshold || item.Symbol == "" {
			continue
		}
		if _, skip := h.excluded[strings.ToUpper(item.Symbol)]; skip {
			continue
		}
		significant = append(significant, item)
	}

	sort.SliceStable(significant, func(i, j int) bool {
		return significant[i].ValueUsd > significant[j].ValueUsd
	})

	formatted := make([]string, 0, len(significant))
	for _, item := range significant {
		formatted = append(formatted, fmt.Sprintf("%s %.2fm", item.Symbol, item.ValueUsd/1e6))
	}

	h.cache[wallet] = formatted
	return formatted
}
