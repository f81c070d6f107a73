package ports

import (
	"context"

	"github.com/alejandrodnm/makerbot/internal/domain"
)

// MarketProvider obtiene del catálogo los mercados cripto activos que
// matchean el símbolo y la clase de duración objetivo. El orden de la lista
// es el estable que devuelve el catálogo — sin ranking adicional.
type MarketProvider interface {
	FetchCryptoMarkets(ctx context.Context, keyword, durationClass string) ([]domain.Instrument, error)
}
