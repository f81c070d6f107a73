package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alejandrodnm/makerbot/internal/domain"
)

const (
	gammaMarketsPath = "/markets"
	gammaPageLimit   = 100
)

// FetchCryptoMarkets devuelve los mercados activos del catálogo cuya
// question contiene el keyword y la clase de duración dados, en el orden
// estable en que los devuelve Gamma.
//
// Implementa ports.MarketProvider.
func (c *Client) FetchCryptoMarkets(ctx context.Context, keyword, durationClass string) ([]domain.Instrument, error) {
	url := fmt.Sprintf("%s%s?active=true&closed=false&limit=%d",
		c.gammaBase, gammaMarketsPath, gammaPageLimit)

	var resp gammaMarketsResponse
	if err := c.get(ctx, c.gammaLimiter, url, &resp); err != nil {
		return nil, fmt.Errorf("gamma.FetchCryptoMarkets: %w", err)
	}

	var instruments []domain.Instrument
	for _, gm := range resp {
		if !gm.Active || gm.Closed {
			continue
		}
		if !matchesTarget(gm.Question, keyword, durationClass) {
			continue
		}
		inst, ok := mapGammaMarket(gm)
		if !ok {
			slog.Debug("gamma: market missing token ids, skipped", "condition_id", gm.ConditionID)
			continue
		}
		instruments = append(instruments, inst)
	}

	slog.Debug("gamma: crypto markets fetched",
		"total", len(resp),
		"matched", len(instruments),
		"keyword", keyword,
		"duration", durationClass,
	)
	return instruments, nil
}

// matchesTarget comprueba símbolo y duración contra la question del mercado.
// La duración matchea tanto la forma corta ("15m") como la larga
// ("15 minute"), igual que el catálogo las escribe.
func matchesTarget(question, keyword, durationClass string) bool {
	q := strings.ToLower(question)
	if !strings.Contains(q, strings.ToLower(keyword)) {
		return false
	}
	if durationClass == "" {
		return true
	}
	short := strings.ToLower(durationClass)
	long := strings.Replace(short, "m", " minute", 1)
	if strings.HasSuffix(short, "h") {
		long = strings.Replace(short, "h", " hour", 1)
	}
	return strings.Contains(q, short) || strings.Contains(q, long)
}
