package ports

import (
	"context"

	"github.com/alejandrodnm/makerbot/internal/domain"
)

// OrderExecutor places, cancels, and monitors orders on the Polymarket CLOB.
type OrderExecutor interface {
	// PlaceOrder signs and submits a limit maker order to the CLOB.
	PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error)

	// CancelOrder cancels a specific order by its CLOB order ID.
	CancelOrder(ctx context.Context, orderID string) error

	// CancelAll cancels all open orders for this wallet.
	CancelAll(ctx context.Context) error

	// GetOpenOrders returns the IDs of all currently open orders.
	GetOpenOrders(ctx context.Context) ([]string, error)

	// FeeRate returns the current fee rate in bps for a token. Must be
	// queried before every submission — fee-enabled markets reject orders
	// signed without it.
	FeeRate(ctx context.Context, tokenID string) (int, error)

	// GetBalance returns the available USDC balance.
	GetBalance(ctx context.Context) (float64, error)
}

// ApprovalProvisioner verifies and sets the on-chain token allowances the
// exchange contracts need before live trading.
type ApprovalProvisioner interface {
	// EnsureApprovals checks ERC-20 and ERC-1155 approvals and submits the
	// missing ones. Called once at startup in live mode.
	EnsureApprovals(ctx context.Context) error
}
