package polymarket

import "encoding/json"

// DTOs raw de la API de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// --- Gamma API ---

// gammaMarketsResponse es la respuesta de GET /markets de Gamma.
type gammaMarketsResponse []gammaMarket

// gammaMarket es un mercado del catálogo. Gamma codifica algunos campos de
// array como strings JSON anidados (clobTokenIds, outcomes).
type gammaMarket struct {
	ConditionID  string `json:"conditionId"`
	Question     string `json:"question"`
	Slug         string `json:"slug"`
	ClobTokenIDs string `json:"clobTokenIds"` // JSON string: ["yes_id","no_id"]
	Outcomes     string `json:"outcomes"`     // JSON string: ["Yes","No"]
	NegRisk      bool   `json:"negRisk"`
	Active       bool   `json:"active"`
	Closed       bool   `json:"closed"`
	EndDateISO   string `json:"endDateIso"`
}

// --- CLOB API ---

// clobOrderRequest es el JSON body de POST /order.
type clobOrderRequest struct {
	Order     clobOrderBody `json:"order"`
	Owner     string        `json:"owner"`
	OrderType string        `json:"orderType"`
}

type clobOrderBody struct {
	Salt          json.Number `json:"salt"`
	Maker         string      `json:"maker"`
	Signer        string      `json:"signer"`
	Taker         string      `json:"taker"`
	TokenID       string      `json:"tokenId"`
	MakerAmount   string      `json:"makerAmount"`
	TakerAmount   string      `json:"takerAmount"`
	Expiration    string      `json:"expiration"`
	Nonce         string      `json:"nonce"`
	FeeRateBps    string      `json:"feeRateBps"`
	Side          string      `json:"side"`
	SignatureType int         `json:"signatureType"`
	Signature     string      `json:"signature"`
}

type clobOrderResponse struct {
	ErrorMsg string `json:"errorMsg"`
	OrderID  string `json:"orderID"`
	Status   string `json:"status"`
	Success  bool   `json:"success"`
}

type clobOpenOrder struct {
	ID      string `json:"id"`
	AssetID string `json:"asset_id"`
	Side    string `json:"side"`
	Price   string `json:"price"`
	Status  string `json:"status"`
}

type clobOrdersResponse struct {
	Data       []clobOpenOrder `json:"data"`
	NextCursor string          `json:"next_cursor"`
}

// clobFeeRateResponse es la respuesta de GET /fee-rate.
type clobFeeRateResponse struct {
	BaseFee json.Number `json:"base_fee"`
}

// clobBalanceResponse es la respuesta de GET /balance-allowance.
type clobBalanceResponse struct {
	Balance string `json:"balance"`
}
