package domain

import "math"

// Bandas del modelo de fair value, en dólares de distancia al strike.
const (
	linearBandUSD = 100.0
	midBandUSD    = 300.0
	farBandUSD    = 500.0

	linearSlope = 0.01 // 1% de probabilidad por cada $100 dentro de la banda lineal
)

// FairPrice estima la probabilidad de que el precio de referencia cierre por
// encima del strike, expresada como precio YES en [0.01, 0.99].
//
// El modelo es una función determinista por tramos sobre d = ref − strike,
// simétrica alrededor de 0.50:
//
//	|d| < 100   → 0.50 ± (|d|/100)·0.01
//	|d| < 300   → 0.60 / 0.40
//	|d| < 500   → 0.75 / 0.25
//	|d| ≥ 500   → 0.90 / 0.10
//
// Es total sobre cualquier par (referencePrice, strike) y no tiene efectos
// secundarios.
func FairPrice(referencePrice, strike float64) float64 {
	d := referencePrice - strike
	abs := math.Abs(d)

	// Las bandas escalonadas devuelven sus constantes directamente: derivar
	// el lado bajo restando (0.50 − 0.40) introduce error de redondeo IEEE
	// y 0.10 dejaría de ser exacto.
	var p float64
	switch {
	case abs < linearBandUSD:
		p = 0.50
		delta := abs / linearBandUSD * linearSlope
		if d > 0 {
			p += delta
		} else if d < 0 {
			p -= delta
		}
	case abs < midBandUSD:
		p = pick(d, 0.60, 0.40)
	case abs < farBandUSD:
		p = pick(d, 0.75, 0.25)
	default:
		p = pick(d, 0.90, 0.10)
	}

	// Clamp defensivo: la tabla no puede salirse del rango hoy, pero el
	// invariante debe sobrevivir a futuros cambios del modelo.
	return ClampPrice(p)
}

// pick elige la constante de banda según el signo de la distancia al strike.
func pick(d, above, below float64) float64 {
	if d > 0 {
		return above
	}
	return below
}

// ClampPrice limita un precio de probabilidad al rango operable del book.
func ClampPrice(p float64) float64 {
	return math.Max(0.01, math.Min(0.99, p))
}
