package ports

import (
	"context"

	"github.com/alejandrodnm/makerbot/internal/domain"
)

// PriceFeed mantiene una suscripción persistente a la fuente de precios de
// referencia y expone el último sample recibido.
type PriceFeed interface {
	// Start arranca la conexión en background. Bloquea hasta recibir el
	// primer sample o hasta agotar el timeout de arranque; devuelve el
	// control en ambos casos (la salud se comprueba aparte con Healthy).
	Start(ctx context.Context) error

	// Current devuelve el último PriceSample aceptado. ok es false si aún
	// no llegó ninguno o si el más reciente supera la ventana de staleness.
	Current() (domain.PriceSample, bool)

	// Healthy devuelve true si el feed está corriendo y no está stale.
	Healthy() bool

	// OnUpdate registra un listener invocado en cada tick aceptado.
	// Los errores del listener se aíslan y loguean, nunca tumban el feed.
	OnUpdate(fn func(domain.PriceSample))

	// Stop termina la conexión y cualquier retry pendiente. Idempotente.
	Stop()
}
