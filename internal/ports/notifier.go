package ports

import "github.com/alejandrodnm/makerbot/internal/domain"

// Notifier presenta la actividad del engine al usuario.
type Notifier interface {
	// NotifyCycle imprime una línea compacta por ciclo disparado.
	NotifyCycle(rec domain.CycleRecord)

	// Summary imprime la tabla de resumen al terminar la sesión.
	Summary(summary domain.SessionSummary)
}
