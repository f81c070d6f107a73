package domain

import "math"

// AllowQuote decide si el fair price está lo bastante lejos del punto 0.50
// como para que cotizar sea rentable después de fees.
//
// El taker fee del exchange tiene su máximo exactamente en 0.50, así que
// cotizar dentro de la zona |fair − 0.50| < minEdge/2 pierde dinero. Este
// gate es un veto duro, no una reducción de tamaño: cuando devuelve false el
// scheduler cancela las órdenes activas y no coloca nuevas.
//
// El límite usa estrictamente menor-que: a distancia exactamente minEdge/2
// se permite cotizar.
func AllowQuote(fairPrice float64, minEdgeBPS int) bool {
	distance := math.Abs(fairPrice - 0.50)
	minEdge := float64(minEdgeBPS) / 10000.0
	return distance >= minEdge/2
}
