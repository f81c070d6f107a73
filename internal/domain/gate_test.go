package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowQuote_FeeDangerZone(t *testing.T) {
	// min_edge 200 bps → zona vetada |fair − 0.50| < 0.01
	assert.False(t, AllowQuote(0.50, 200))
	assert.True(t, AllowQuote(0.60, 200))
	assert.True(t, AllowQuote(0.40, 200))
}

func TestAllowQuote_Boundary(t *testing.T) {
	// Distancia 0.009 queda dentro de la zona; 0.011 fuera.
	assert.False(t, AllowQuote(0.491, 200))
	assert.False(t, AllowQuote(0.509, 200))
	assert.True(t, AllowQuote(0.489, 200))
	assert.True(t, AllowQuote(0.511, 200))

	// En el límite exacto (distancia == minEdge/2) se permite cotizar:
	// el veto usa estrictamente menor-que.
	assert.True(t, AllowQuote(0.51, 200))
	assert.True(t, AllowQuote(0.49, 200))
}

func TestAllowQuote_ZeroEdge(t *testing.T) {
	// Sin edge mínimo configurado no hay zona vetada
	assert.True(t, AllowQuote(0.50, 0))
}

func TestBuildQuote(t *testing.T) {
	q := BuildQuote(0.60, 50, 20)
	assert.InDelta(t, 0.5975, q.BuyPrice, 1e-9)
	assert.InDelta(t, 0.6025, q.SellPrice, 1e-9)
	assert.Equal(t, 20.0, q.Size)
}

func TestBuildQuote_ClampsAtExtremes(t *testing.T) {
	q := BuildQuote(0.99, 400, 10)
	assert.Equal(t, 0.97, q.BuyPrice)
	assert.Equal(t, 0.99, q.SellPrice)

	q = BuildQuote(0.01, 400, 10)
	assert.Equal(t, 0.01, q.BuyPrice)
	assert.Equal(t, 0.03, q.SellPrice)
}
