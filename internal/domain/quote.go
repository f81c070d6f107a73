package domain

// QuoteIntent es el par de precios que el engine quiere dejar descansando en
// el book. Se recalcula en cada ciclo de requote y nunca se persiste.
type QuoteIntent struct {
	BuyPrice  float64
	SellPrice float64
	Size      float64
}

// BuildQuote construye el QuoteIntent alrededor del fair price con el spread
// configurado. Ambos lados quedan clampeados al rango operable, así que con
// fair prices extremos el intent puede degenerar (buy == sell == 0.99).
func BuildQuote(fairPrice float64, spreadBPS int, size float64) QuoteIntent {
	spread := float64(spreadBPS) / 10000.0
	return QuoteIntent{
		BuyPrice:  ClampPrice(fairPrice - spread/2),
		SellPrice: ClampPrice(fairPrice + spread/2),
		Size:      size,
	}
}
