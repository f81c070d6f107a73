package domain

import "time"

// Side es el lado de una orden en el CLOB.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// RestingOrder es una orden que el engine cree que sigue viva en el exchange.
// El tracked set es best-effort: tras un fallo parcial de cancel/submit puede
// quedar inconsistente hasta que el siguiente ciclo lo reconcilie.
type RestingOrder struct {
	OrderID  string
	Side     Side
	Price    float64
	Size     float64
	PlacedAt time.Time
}

// PlaceOrderRequest son los parámetros de una orden maker GTC.
// FeeRateBps debe consultarse al exchange justo antes de cada submit:
// omitirlo hace que mercados con fees rechacen (o costeen mal) la orden.
type PlaceOrderRequest struct {
	TokenID    string
	Side       Side
	Price      float64
	Size       float64
	FeeRateBps int
	NegRisk    bool
}

// PlacedOrder es el resultado de un submit aceptado por el CLOB.
type PlacedOrder struct {
	OrderID string
	Status  string
}
