package dryrun

// executor.go — OrderExecutor simulado para dry-run.
//
// Nunca toca la red: fabrica order IDs locales y mantiene el set de órdenes
// "abiertas" en memoria para que el ciclo cancel/replace del engine se
// comporte igual que en live.

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/alejandrodnm/makerbot/internal/domain"
)

// Executor implementa ports.OrderExecutor sin efectos externos.
type Executor struct {
	balance float64
	feeBps  int

	mu   sync.Mutex
	open map[string]domain.PlaceOrderRequest
}

// NewExecutor crea un executor dry-run con el balance ficticio dado.
func NewExecutor(balance float64, feeBps int) *Executor {
	return &Executor{
		balance: balance,
		feeBps:  feeBps,
		open:    make(map[string]domain.PlaceOrderRequest),
	}
}

// PlaceOrder registra la orden localmente y devuelve un ID fabricado.
func (e *Executor) PlaceOrder(_ context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error) {
	id := "dry-" + uuid.NewString()

	e.mu.Lock()
	e.open[id] = req
	e.mu.Unlock()

	slog.Info("[DRY-RUN] would place order",
		"side", req.Side,
		"price", req.Price,
		"size", req.Size,
		"fee_bps", req.FeeRateBps,
		"order_id", id,
	)
	return domain.PlacedOrder{OrderID: id, Status: "LIVE"}, nil
}

// CancelOrder borra la orden del set local.
func (e *Executor) CancelOrder(_ context.Context, orderID string) error {
	e.mu.Lock()
	delete(e.open, orderID)
	e.mu.Unlock()

	slog.Debug("[DRY-RUN] would cancel order", "order_id", orderID)
	return nil
}

// CancelAll vacía el set local.
func (e *Executor) CancelAll(context.Context) error {
	e.mu.Lock()
	n := len(e.open)
	e.open = make(map[string]domain.PlaceOrderRequest)
	e.mu.Unlock()

	slog.Info("[DRY-RUN] would cancel all orders", "count", n)
	return nil
}

// GetOpenOrders devuelve los IDs del set local.
func (e *Executor) GetOpenOrders(context.Context) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]string, 0, len(e.open))
	for id := range e.open {
		ids = append(ids, id)
	}
	return ids, nil
}

// FeeRate devuelve el fee configurado al construir el executor.
func (e *Executor) FeeRate(context.Context, string) (int, error) {
	return e.feeBps, nil
}

// GetBalance devuelve el balance ficticio.
func (e *Executor) GetBalance(context.Context) (float64, error) {
	return e.balance, nil
}
