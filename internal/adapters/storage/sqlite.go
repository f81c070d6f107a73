package storage

// sqlite.go — persistencia ligera de sesiones y ciclos de requote.
//
// Estrategia:
//   - `sessions`: UNA fila por sesión (UPSERT). Se actualiza al parar con el
//     resumen final y la razón de parada.
//   - `cycles`: una fila por ciclo disparado (quote o flatten). Un tick que no
//     dispara ningún trigger no escribe nada — en una sesión normal la enorme
//     mayoría de ticks no cambian nada.
//   - Prune automático al arrancar: sessions > 30d y sus ciclos asociados.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/makerbot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Una fila por sesión del bot
CREATE TABLE IF NOT EXISTS sessions (
    session_id  TEXT PRIMARY KEY,
    question    TEXT,
    strike      REAL     NOT NULL DEFAULT 0,
    started_at  DATETIME NOT NULL,
    stopped_at  DATETIME,
    cycles      INTEGER  NOT NULL DEFAULT 0,
    quotes      INTEGER  NOT NULL DEFAULT 0,
    flattens    INTEGER  NOT NULL DEFAULT 0,
    trades      INTEGER  NOT NULL DEFAULT 0,
    last_price  REAL     NOT NULL DEFAULT 0,
    stop_reason TEXT,
    dry_run     INTEGER  NOT NULL DEFAULT 0
);

-- Una fila por ciclo disparado
CREATE TABLE IF NOT EXISTS cycles (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id    TEXT     NOT NULL,
    at            DATETIME NOT NULL,
    price         REAL     NOT NULL DEFAULT 0,
    strike        REAL     NOT NULL DEFAULT 0,
    fair_price    REAL     NOT NULL DEFAULT 0,
    action        TEXT     NOT NULL,
    buy_order_id  TEXT,
    sell_order_id TEXT,
    buy_price     REAL     NOT NULL DEFAULT 0,
    sell_price    REAL     NOT NULL DEFAULT 0,
    size          REAL     NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_sessions_start ON sessions(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_cycles_session ON cycles(session_id, at);
`

const retentionSessions = 30 * 24 * time.Hour // sesiones: 30 días

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia sesiones antiguas.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveCycle registra un ciclo disparado.
func (s *SQLiteStorage) SaveCycle(ctx context.Context, sessionID string, rec domain.CycleRecord) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO cycles
			(session_id, at, price, strike, fair_price, action,
			 buy_order_id, sell_order_id, buy_price, sell_price, size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sessionID,
		rec.At.UTC(),
		rec.Price,
		rec.Strike,
		rec.FairPrice,
		string(rec.Action),
		rec.BuyOrderID,
		rec.SellOrderID,
		rec.BuyPrice,
		rec.SellPrice,
		rec.Size,
	); err != nil {
		return fmt.Errorf("storage.SaveCycle: insert: %w", err)
	}
	return nil
}

// SaveSession inserta o actualiza el resumen de la sesión.
// Se llama al arrancar (fila inicial) y al parar (resumen final).
func (s *SQLiteStorage) SaveSession(ctx context.Context, summary domain.SessionSummary) error {
	dryRun := 0
	if summary.DryRun {
		dryRun = 1
	}
	var stoppedAt *time.Time
	if !summary.StoppedAt.IsZero() {
		t := summary.StoppedAt.UTC()
		stoppedAt = &t
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions
			(session_id, question, strike, started_at, stopped_at,
			 cycles, quotes, flattens, trades, last_price, stop_reason, dry_run)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			stopped_at  = excluded.stopped_at,
			cycles      = excluded.cycles,
			quotes      = excluded.quotes,
			flattens    = excluded.flattens,
			trades      = excluded.trades,
			last_price  = excluded.last_price,
			stop_reason = excluded.stop_reason
	`,
		summary.SessionID,
		summary.Question,
		summary.Strike,
		summary.StartedAt.UTC(),
		stoppedAt,
		summary.Cycles,
		summary.Quotes,
		summary.Flattens,
		summary.Trades,
		summary.LastPrice,
		summary.StopReason,
		dryRun,
	); err != nil {
		return fmt.Errorf("storage.SaveSession: upsert %s: %w", summary.SessionID, err)
	}
	return nil
}

// GetCycles devuelve los ciclos de una sesión en orden cronológico.
func (s *SQLiteStorage) GetCycles(ctx context.Context, sessionID string) ([]domain.CycleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT at, price, strike, fair_price, action,
		       buy_order_id, sell_order_id, buy_price, sell_price, size
		FROM cycles
		WHERE session_id = ?
		ORDER BY at, id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetCycles: query: %w", err)
	}
	defer rows.Close()

	var recs []domain.CycleRecord
	for rows.Next() {
		var rec domain.CycleRecord
		var at, action string

		if err := rows.Scan(
			&at,
			&rec.Price,
			&rec.Strike,
			&rec.FairPrice,
			&action,
			&rec.BuyOrderID,
			&rec.SellOrderID,
			&rec.BuyPrice,
			&rec.SellPrice,
			&rec.Size,
		); err != nil {
			return nil, fmt.Errorf("storage.GetCycles: scan row: %w", err)
		}

		rec.At, _ = time.Parse(time.RFC3339, at)
		rec.Action = domain.CycleAction(action)
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld elimina sesiones antiguas y sus ciclos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionSessions)
	s.db.ExecContext(ctx, `
		DELETE FROM cycles WHERE session_id IN
			(SELECT session_id FROM sessions WHERE started_at < ?)
	`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM sessions WHERE started_at < ?`, cutoff)
}
