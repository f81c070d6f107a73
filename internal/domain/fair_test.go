package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFairPrice_AtStrike(t *testing.T) {
	assert.Equal(t, 0.50, FairPrice(83000, 83000))
}

func TestFairPrice_LinearBand(t *testing.T) {
	// 1% por cada $100 dentro de la banda lineal
	assert.InDelta(t, 0.509, FairPrice(83090, 83000), 1e-9)
	assert.InDelta(t, 0.491, FairPrice(82910, 83000), 1e-9)
	assert.InDelta(t, 0.505, FairPrice(83050, 83000), 1e-9)
}

func TestFairPrice_StepBands(t *testing.T) {
	assert.Equal(t, 0.60, FairPrice(83100, 83000))
	assert.Equal(t, 0.60, FairPrice(83299, 83000))
	assert.Equal(t, 0.75, FairPrice(83300, 83000))
	assert.Equal(t, 0.75, FairPrice(83400, 83000))
	assert.Equal(t, 0.90, FairPrice(83500, 83000))
	assert.Equal(t, 0.90, FairPrice(95000, 83000))

	assert.Equal(t, 0.40, FairPrice(82900, 83000))
	assert.Equal(t, 0.25, FairPrice(82700, 83000))
	assert.Equal(t, 0.10, FairPrice(82500, 83000))
	assert.Equal(t, 0.10, FairPrice(1000, 83000))
}

func TestFairPrice_BoundaryCases(t *testing.T) {
	// Los bordes exactos de banda pertenecen a la banda superior
	assert.Equal(t, 0.90, FairPrice(83000+500, 83000))
	assert.Equal(t, 0.10, FairPrice(83000-500, 83000))
	assert.Equal(t, 0.75, FairPrice(83000+300, 83000))
	assert.Equal(t, 0.25, FairPrice(83000-300, 83000))
}

func TestFairPrice_AlwaysInRange(t *testing.T) {
	strikes := []float64{0, 1, 100, 83000, 1e9, -50}
	refs := []float64{-1e12, -83000, 0, 0.5, 82999.99, 83000, 83001, 1e12}
	for _, k := range strikes {
		for _, r := range refs {
			p := FairPrice(r, k)
			assert.GreaterOrEqual(t, p, 0.01, "ref=%g strike=%g", r, k)
			assert.LessOrEqual(t, p, 0.99, "ref=%g strike=%g", r, k)
		}
	}
}

func TestFairPrice_MonotoneInReference(t *testing.T) {
	const strike = 83000.0
	prev := 0.0
	// Barrido denso alrededor del strike, incluyendo los bordes de banda
	for ref := strike - 700; ref <= strike+700; ref += 0.5 {
		p := FairPrice(ref, strike)
		assert.GreaterOrEqual(t, p, prev, "ref=%g", ref)
		prev = p
	}
}

func TestClampPrice(t *testing.T) {
	assert.Equal(t, 0.01, ClampPrice(-3))
	assert.Equal(t, 0.01, ClampPrice(0.005))
	assert.Equal(t, 0.50, ClampPrice(0.50))
	assert.Equal(t, 0.99, ClampPrice(0.995))
	assert.Equal(t, 0.99, ClampPrice(42))
}
