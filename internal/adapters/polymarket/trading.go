package polymarket

// trading.go — Real order execution via Polymarket CLOB API.
//
// Implements ports.OrderExecutor using AuthClient for L1/L2 auth.
// All orders are placed as GTC (good-till-cancelled) limit makers.

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/alejandrodnm/makerbot/internal/domain"
)

// TradingClient implements ports.OrderExecutor.
type TradingClient struct {
	auth *AuthClient
}

// NewTradingClient creates a TradingClient over an authenticated client.
func NewTradingClient(auth *AuthClient) *TradingClient {
	return &TradingClient{auth: auth}
}

// PlaceOrder signs and submits a maker limit order to the CLOB.
// req.FeeRateBps is included in the signed payload; callers must query
// FeeRate for the token immediately before calling.
func (tc *TradingClient) PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error) {
	if err := tc.auth.EnsureCreds(ctx); err != nil {
		return domain.PlacedOrder{}, fmt.Errorf("place order: creds: %w", err)
	}

	signed, err := tc.auth.buildSignedOrder(req)
	if err != nil {
		return domain.PlacedOrder{}, fmt.Errorf("place order: sign: %w", err)
	}

	body := clobOrderRequest{
		Order: clobOrderBody{
			Salt:          json.Number(signed.Order.Salt.String()),
			Maker:         signed.Order.Maker.Hex(),
			Signer:        signed.Order.Signer.Hex(),
			Taker:         signed.Order.Taker.Hex(),
			TokenID:       req.TokenID,
			MakerAmount:   signed.Order.MakerAmount.String(),
			TakerAmount:   signed.Order.TakerAmount.String(),
			Expiration:    signed.Order.Expiration.String(),
			Nonce:         signed.Order.Nonce.String(),
			FeeRateBps:    signed.Order.FeeRateBps.String(),
			Side:          string(req.Side),
			SignatureType: int(signed.Order.SignatureType.Int64()),
			Signature:     "0x" + hex.EncodeToString(signed.Signature),
		},
		Owner:     tc.auth.creds.APIKey,
		OrderType: "GTC",
	}

	var resp clobOrderResponse
	if err := tc.auth.doL2(ctx, http.MethodPost, "/order", body, &resp); err != nil {
		return domain.PlacedOrder{}, fmt.Errorf("place order: post: %w", err)
	}

	if !resp.Success || resp.ErrorMsg != "" {
		return domain.PlacedOrder{}, fmt.Errorf("place order: clob error: %s", resp.ErrorMsg)
	}

	return domain.PlacedOrder{OrderID: resp.OrderID, Status: resp.Status}, nil
}

// CancelOrder cancels a single order by its CLOB order ID.
func (tc *TradingClient) CancelOrder(ctx context.Context, orderID string) error {
	if err := tc.auth.EnsureCreds(ctx); err != nil {
		return fmt.Errorf("cancel order: creds: %w", err)
	}

	path := "/order/" + orderID
	if err := tc.auth.doL2(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	return nil
}

// CancelAll cancels all open orders for this wallet.
func (tc *TradingClient) CancelAll(ctx context.Context) error {
	if err := tc.auth.EnsureCreds(ctx); err != nil {
		return fmt.Errorf("cancel all: creds: %w", err)
	}

	if err := tc.auth.doL2(ctx, http.MethodDelete, "/orders", nil, nil); err != nil {
		return fmt.Errorf("cancel all: %w", err)
	}
	return nil
}

// GetOpenOrders returns the IDs of all currently open orders.
func (tc *TradingClient) GetOpenOrders(ctx context.Context) ([]string, error) {
	if err := tc.auth.EnsureCreds(ctx); err != nil {
		return nil, fmt.Errorf("get orders: creds: %w", err)
	}

	var resp clobOrdersResponse
	if err := tc.auth.doL2(ctx, http.MethodGet, "/orders", nil, &resp); err != nil {
		return nil, fmt.Errorf("get orders: %w", err)
	}

	ids := make([]string, 0, len(resp.Data))
	for _, o := range resp.Data {
		ids = append(ids, o.ID)
	}
	return ids, nil
}

// FeeRate queries the current fee rate in bps for a token.
// Markets without fees report 0.
func (tc *TradingClient) FeeRate(ctx context.Context, tokenID string) (int, error) {
	url := fmt.Sprintf("%s/fee-rate?token_id=%s", tc.auth.clobBase, tokenID)

	var resp clobFeeRateResponse
	if err := tc.auth.get(ctx, tc.auth.clobLimiter, url, &resp); err != nil {
		return 0, fmt.Errorf("fee rate: %w", err)
	}

	if resp.BaseFee == "" {
		return 0, nil
	}
	bps, err := resp.BaseFee.Int64()
	if err != nil {
		return 0, fmt.Errorf("fee rate: parse %q: %w", resp.BaseFee, err)
	}
	return int(bps), nil
}

// GetBalance returns the available USDC balance in the CLOB.
func (tc *TradingClient) GetBalance(ctx context.Context) (float64, error) {
	if err := tc.auth.EnsureCreds(ctx); err != nil {
		return 0, fmt.Errorf("get balance: creds: %w", err)
	}

	var resp clobBalanceResponse
	if err := tc.auth.doL2(ctx, http.MethodGet, "/balance-allowance?asset_type=COLLATERAL", nil, &resp); err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}

	// El balance viene en unidades de 6 decimales (micro-USDC)
	raw, err := strconv.ParseFloat(resp.Balance, 64)
	if err != nil {
		return 0, fmt.Errorf("get balance: parse %q: %w", resp.Balance, err)
	}
	return raw / 1e6, nil
}
