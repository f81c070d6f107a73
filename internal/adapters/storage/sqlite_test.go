package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/makerbot/internal/adapters/storage"
	"github.com/alejandrodnm/makerbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeCycle(action domain.CycleAction, price float64) domain.CycleRecord {
	rec := domain.CycleRecord{
		At:        time.Now().UTC().Truncate(time.Second),
		Price:     price,
		Strike:    83000,
		FairPrice: 0.60,
		Action:    action,
		Size:      10,
	}
	if action == domain.ActionQuote {
		rec.BuyOrderID = "order-buy"
		rec.SellOrderID = "order-sell"
		rec.BuyPrice = 0.59
		rec.SellPrice = 0.61
	}
	return rec
}

func TestSQLiteStorage_SaveAndGetCycles(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()

	err = db.SaveCycle(ctx, "sess-1", makeCycle(domain.ActionQuote, 83200))
	require.NoError(t, err)
	err = db.SaveCycle(ctx, "sess-1", makeCycle(domain.ActionFlatten, 83010))
	require.NoError(t, err)

	cycles, err := db.GetCycles(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, cycles, 2)

	// Orden de inserción preservado
	assert.Equal(t, domain.ActionQuote, cycles[0].Action)
	assert.Equal(t, "order-buy", cycles[0].BuyOrderID)
	assert.InDelta(t, 0.61, cycles[0].SellPrice, 0.0001)
	assert.Equal(t, domain.ActionFlatten, cycles[1].Action)
	assert.Empty(t, cycles[1].BuyOrderID)
}

func TestSQLiteStorage_GetCycles_UnknownSession(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	cycles, err := db.GetCycles(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, cycles)
}

func TestSQLiteStorage_SessionUpsert(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	summary := domain.SessionSummary{
		SessionID: "sess-9",
		Question:  "Will BTC be above $83,000?",
		Strike:    83000,
		StartedAt: time.Now().UTC().Truncate(time.Second),
		DryRun:    true,
	}

	// Fila inicial al arrancar
	require.NoError(t, db.SaveSession(ctx, summary))

	// Resumen final al parar — misma fila, actualizada
	summary.StoppedAt = summary.StartedAt.Add(5 * time.Minute)
	summary.Cycles = 12
	summary.Quotes = 8
	summary.Flattens = 4
	summary.Trades = 16
	summary.LastPrice = 83412.5
	summary.StopReason = "context cancelled"
	require.NoError(t, db.SaveSession(ctx, summary))

	// No hay forma pública de leer sessions; basta con que el upsert no falle
	// y que los ciclos de otra sesión no se mezclen.
	cycles, err := db.GetCycles(ctx, "sess-9")
	require.NoError(t, err)
	assert.Empty(t, cycles)
}

func TestSQLiteStorage_SessionsIsolated(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.SaveCycle(ctx, "sess-a", makeCycle(domain.ActionQuote, 83100)))
	require.NoError(t, db.SaveCycle(ctx, "sess-b", makeCycle(domain.ActionQuote, 83200)))

	cycles, err := db.GetCycles(ctx, "sess-a")
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.InDelta(t, 83100, cycles[0].Price, 0.001)
}
