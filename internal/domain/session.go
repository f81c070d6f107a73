package domain

import "time"

// CycleAction es lo que el scheduler decidió hacer en un tick disparado.
type CycleAction string

const (
	ActionQuote   CycleAction = "QUOTE"   // cancel/replace completado
	ActionFlatten CycleAction = "FLATTEN" // veto del gate: cancelar sin reponer
)

// CycleRecord es el resultado de un ciclo de requote disparado.
type CycleRecord struct {
	At          time.Time
	Price       float64
	Strike      float64
	FairPrice   float64
	Action      CycleAction
	BuyOrderID  string // vacío si el submit de ese lado falló o no hubo quote
	SellOrderID string
	BuyPrice    float64
	SellPrice   float64
	Size        float64
}

// SessionSummary resume una ejecución completa del engine.
type SessionSummary struct {
	SessionID   string
	Question    string
	Strike      float64
	StartedAt   time.Time
	StoppedAt   time.Time
	Cycles      int     // ticks disparados
	Quotes      int     // ciclos que terminaron en QUOTE
	Flattens    int     // ciclos vetados por el gate
	Trades      int     // órdenes aceptadas por el exchange
	LastPrice   float64 // último precio de referencia visto
	StopReason  string
	DryRun      bool
}
