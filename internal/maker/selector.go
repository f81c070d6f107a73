package maker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/makerbot/internal/domain"
	"github.com/alejandrodnm/makerbot/internal/ports"
)

// SelectInstrument resuelve el mercado contra el que cotiza el engine.
// Se llama UNA vez al arrancar: el catálogo devuelve los mercados activos en
// orden estable y nos quedamos con el primero que matchea. No hay re-selección
// si el mercado cierra a mitad de sesión — el rollover queda fuera de alcance.
func SelectInstrument(ctx context.Context, markets ports.MarketProvider, keyword, durationClass string) (domain.Instrument, error) {
	candidates, err := markets.FetchCryptoMarkets(ctx, keyword, durationClass)
	if err != nil {
		return domain.Instrument{}, fmt.Errorf("maker.SelectInstrument: fetch markets: %w", err)
	}
	if len(candidates) == 0 {
		return domain.Instrument{}, fmt.Errorf("maker.SelectInstrument: %w (keyword=%q duration=%q)",
			domain.ErrNoActiveInstrument, keyword, durationClass)
	}

	inst := candidates[0]

	strike, err := domain.ExtractStrike(inst.Question)
	if err != nil {
		return domain.Instrument{}, fmt.Errorf("maker.SelectInstrument: %w", err)
	}
	inst.Strike = strike

	slog.Info("maker: instrument selected",
		"question", inst.Question,
		"strike", strike,
		"conditionID", inst.ConditionID,
		"negRisk", inst.NegRisk,
		"candidates", len(candidates))
	return inst, nil
}
