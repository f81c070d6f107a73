package ports

import (
	"context"

	"github.com/alejandrodnm/makerbot/internal/domain"
)

// Storage persiste los ciclos de requote y el resumen de cada sesión.
type Storage interface {
	// SaveCycle registra un ciclo disparado (quote o flatten).
	SaveCycle(ctx context.Context, sessionID string, rec domain.CycleRecord) error

	// SaveSession inserta o actualiza el resumen de la sesión.
	SaveSession(ctx context.Context, summary domain.SessionSummary) error

	// GetCycles devuelve los ciclos registrados de una sesión, en orden.
	GetCycles(ctx context.Context, sessionID string) ([]domain.CycleRecord, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
