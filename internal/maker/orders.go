package maker

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/makerbot/internal/domain"
	"github.com/alejandrodnm/makerbot/internal/ports"
)

// Lifecycle es el dueño del tracked set de órdenes descansando. Solo el
// goroutine del scheduler lo toca, así que no necesita locking.
//
// El set es best-effort: un cancel que falla se loguea y se olvida igualmente
// (la orden puede seguir viva en el exchange hasta el CancelAll de shutdown),
// nunca se retiene una entrada stale duplicada.
type Lifecycle struct {
	executor   ports.OrderExecutor
	instrument domain.Instrument
	tracked    []domain.RestingOrder
}

// NewLifecycle crea el gestor de órdenes para un instrumento fijo.
func NewLifecycle(executor ports.OrderExecutor, instrument domain.Instrument) *Lifecycle {
	return &Lifecycle{executor: executor, instrument: instrument}
}

// Replace ejecuta un ciclo completo de cancel/replace:
//  1. cancela las órdenes trackeadas una a una (fallos no fatales),
//  2. construye el QuoteIntent alrededor del fair price,
//  3. consulta el fee rate actual — obligatorio antes de CADA submit,
//  4. somete buy y sell de forma independiente: el fallo de un lado no
//     bloquea ni revierte el otro.
//
// Devuelve el intent y los order ids aceptados (vacío = ese lado falló).
func (l *Lifecycle) Replace(ctx context.Context, fairPrice float64, spreadBPS int, size float64) (domain.QuoteIntent, string, string) {
	l.cancelTracked(ctx)

	intent := domain.BuildQuote(fairPrice, spreadBPS, size)

	feeBps, err := l.executor.FeeRate(ctx, l.instrument.YesTokenID)
	if err != nil {
		slog.Warn("maker: fee rate query failed, assuming 0", "err", err)
		feeBps = 0
	}

	buyID := l.submit(ctx, domain.SideBuy, intent.BuyPrice, intent.Size, feeBps)
	sellID := l.submit(ctx, domain.SideSell, intent.SellPrice, intent.Size, feeBps)
	return intent, buyID, sellID
}

// Flatten cancela las órdenes trackeadas sin reponer nada. Es el camino del
// veto del gate: retirar exposición mientras el fair está en la zona de fees.
func (l *Lifecycle) Flatten(ctx context.Context) {
	l.cancelTracked(ctx)
}

// Shutdown cancela TODAS las órdenes abiertas del wallet en el exchange,
// no solo las trackeadas. Best-effort: se usa en la transición a Stopped
// incluso en caminos de error.
func (l *Lifecycle) Shutdown(ctx context.Context) {
	if err := l.executor.CancelAll(ctx); err != nil {
		slog.Warn("maker: cancel-all on shutdown failed", "err", err)
	}
	l.tracked = l.tracked[:0]
}

// Tracked devuelve una copia del tracked set actual.
func (l *Lifecycle) Tracked() []domain.RestingOrder {
	out := make([]domain.RestingOrder, len(l.tracked))
	copy(out, l.tracked)
	return out
}

// cancelTracked cancela una a una y vacía el set pase lo que pase.
func (l *Lifecycle) cancelTracked(ctx context.Context) {
	for _, o := range l.tracked {
		if err := l.executor.CancelOrder(ctx, o.OrderID); err != nil {
			slog.Warn("maker: cancel failed", "orderID", o.OrderID, "side", o.Side, "err", err)
		}
	}
	l.tracked = l.tracked[:0]
}

// submit firma y somete un lado del quote. Devuelve "" si el exchange lo
// rechazó — el llamador decide qué hacer con el hueco.
func (l *Lifecycle) submit(ctx context.Context, side domain.Side, price, size float64, feeBps int) string {
	placed, err := l.executor.PlaceOrder(ctx, domain.PlaceOrderRequest{
		TokenID:    l.instrument.YesTokenID,
		Side:       side,
		Price:      price,
		Size:       size,
		FeeRateBps: feeBps,
		NegRisk:    l.instrument.NegRisk,
	})
	if err != nil {
		slog.Warn("maker: submit failed", "side", side, "price", price, "err", err)
		return ""
	}

	l.tracked = append(l.tracked, domain.RestingOrder{
		OrderID:  placed.OrderID,
		Side:     side,
		Price:    price,
		Size:     size,
		PlacedAt: time.Now(),
	})

	slog.Debug("maker: order resting",
		"orderID", placed.OrderID, "side", side, "price", price, "size", size)
	return placed.OrderID
}
