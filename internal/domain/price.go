package domain

import "time"

// StalenessWindow es la edad máxima de un PriceSample antes de tratarlo
// como ausente.
const StalenessWindow = 10 * time.Second

// PriceSample es una observación inmutable del precio de referencia.
// Cada tick del feed crea un sample nuevo que reemplaza al anterior;
// nunca se muta uno existente.
type PriceSample struct {
	Value      float64
	ObservedAt time.Time
}

// Age devuelve la antigüedad del sample respecto a now.
func (s PriceSample) Age(now time.Time) time.Duration {
	return now.Sub(s.ObservedAt)
}

// Fresh devuelve true si el sample sigue dentro de la ventana de staleness.
func (s PriceSample) Fresh(now time.Time) bool {
	return s.Age(now) <= StalenessWindow
}
