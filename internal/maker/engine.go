package maker

// engine.go — el requote scheduler: el loop de control del bot.
//
// Máquina de estados: Idle → Selecting → Streaming → Stopped. Stopped es
// terminal — para volver a correr hay que construir un engine nuevo.
//
// En Streaming un tick de 1s lee el último sample del feed. Sin sample (o
// stale) el tick se salta. Con sample se evalúa la política de requote:
//   - nunca se cotizó, O
//   - pasó el intervalo de requote, O
//   - el precio se movió ≥ threshold desde el último quote.
// En disparo: fair price → gate → replace (o flatten si el gate veta).
//
// El loop es single-threaded: el único estado compartido con el feed es el
// sample slot atómico dentro del propio feed.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/alejandrodnm/makerbot/internal/domain"
	"github.com/alejandrodnm/makerbot/internal/ports"
	"github.com/google/uuid"
)

// State es el estado del scheduler.
type State int32

const (
	StateIdle State = iota
	StateSelecting
	StateStreaming
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelecting:
		return "selecting"
	case StateStreaming:
		return "streaming"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

var (
	// ErrNotRestartable indica que Run ya se llamó sobre esta instancia.
	ErrNotRestartable = errors.New("engine already ran, construct a new one")

	// ErrSafetyLimit marca una parada deliberada por límite de seguridad.
	// No es un fallo: Run devuelve nil tras pararse por esto.
	ErrSafetyLimit = errors.New("safety limit reached")
)

const shutdownTimeout = 10 * time.Second

// Config son los parámetros del scheduler, inmutables tras la construcción.
type Config struct {
	Keyword              string
	DurationClass        string
	SpreadBPS            int
	MinEdgeBPS           int
	PositionSize         float64
	RequoteInterval      time.Duration
	PriceChangeThreshold float64
	MaxDailyLoss         float64 // 0 = sin límite
	MaxDailyTrades       int     // 0 = sin límite
	DryRun               bool
	TickInterval         time.Duration
}

// Engine es el requote scheduler. Una instancia = una sesión.
type Engine struct {
	cfg      Config
	feed     ports.PriceFeed
	markets  ports.MarketProvider
	executor ports.OrderExecutor
	store    ports.Storage
	notify   ports.Notifier

	// now es inyectable para tests deterministas de la política de triggers.
	now func() time.Time

	state atomic.Int32

	sessionID  string
	instrument domain.Instrument
	orders     *Lifecycle

	lastRequoteAt   time.Time
	lastQuotedPrice float64
	hasQuoted       bool

	lossBase    float64
	lossBaseSet bool

	startedAt time.Time
	lastPrice float64
	cycles    int
	quotes    int
	flattens  int
	trades    int
}

// New construye un engine listo para Run.
func New(feed ports.PriceFeed, markets ports.MarketProvider, executor ports.OrderExecutor,
	store ports.Storage, notify ports.Notifier, cfg Config) *Engine {

	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}

	return &Engine{
		cfg:       cfg,
		feed:      feed,
		markets:   markets,
		executor:  executor,
		store:     store,
		notify:    notify,
		now:       time.Now,
		sessionID: uuid.NewString(),
	}
}

// State devuelve el estado actual del scheduler.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// SessionID devuelve el id de esta sesión.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// Run ejecuta la sesión completa: selección, streaming y loop de requote.
// Bloquea hasta que el ctx se cancele, ocurra un error fatal o se alcance un
// límite de seguridad. Siempre pasa por la transición de stop (cancelar
// órdenes, parar el stream) antes de devolver, incluso en caminos de error.
func (e *Engine) Run(ctx context.Context) error {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateSelecting)) {
		return fmt.Errorf("maker.Run: %w", ErrNotRestartable)
	}

	inst, err := SelectInstrument(ctx, e.markets, e.cfg.Keyword, e.cfg.DurationClass)
	if err != nil {
		// Fallo de selección: fatal antes de tocar el exchange, no hay nada
		// que cancelar todavía.
		e.state.Store(int32(StateStopped))
		return err
	}
	e.instrument = inst
	e.orders = NewLifecycle(e.executor, inst)

	e.startedAt = e.now()
	e.saveSession(ctx, "", time.Time{})

	if balance, err := e.executor.GetBalance(ctx); err != nil {
		slog.Warn("maker: balance query failed, daily-loss limit disabled", "err", err)
	} else {
		e.lossBase = balance
		e.lossBaseSet = true
		slog.Info("maker: session start", "sessionID", e.sessionID, "balance", balance, "dryRun", e.cfg.DryRun)
	}

	if err := e.feed.Start(ctx); err != nil {
		return e.stop("price stream start failed", fmt.Errorf("maker.Run: start feed: %w", err))
	}
	if !e.feed.Healthy() {
		return e.stop("price stream unhealthy at startup",
			fmt.Errorf("maker.Run: no price received within the startup window"))
	}

	e.state.Store(int32(StateStreaming))
	slog.Info("maker: streaming",
		"strike", inst.Strike,
		"spreadBps", e.cfg.SpreadBPS,
		"minEdgeBps", e.cfg.MinEdgeBPS,
		"requoteInterval", e.cfg.RequoteInterval)

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return e.stop("context cancelled", nil)
		case <-ticker.C:
			if err := e.tick(ctx); err != nil {
				if errors.Is(err, ErrSafetyLimit) {
					slog.Warn("maker: deliberate stop", "reason", err)
					return e.stop(err.Error(), nil)
				}
				return e.stop("fatal error in loop", err)
			}
		}
	}
}

// tick procesa un ciclo del scheduler. Devuelve error solo en condiciones
// que deben parar el loop; los fallos transitorios se absorben y loguean.
func (e *Engine) tick(ctx context.Context) error {
	sample, ok := e.feed.Current()
	if !ok {
		// Sin sample fresco no podemos actuar — skip, sin error.
		slog.Debug("maker: no fresh price, skipping tick")
		return nil
	}

	now := e.now()
	e.lastPrice = sample.Value

	if !e.shouldRequote(now, sample.Value) {
		return nil
	}

	e.cycles++
	fair := domain.FairPrice(sample.Value, e.instrument.Strike)

	rec := domain.CycleRecord{
		At:        now,
		Price:     sample.Value,
		Strike:    e.instrument.Strike,
		FairPrice: fair,
	}

	if !domain.AllowQuote(fair, e.cfg.MinEdgeBPS) {
		// Veto del gate: retirar exposición sin reponer. No se actualiza
		// last_quoted_price — el flatten no cuenta como quote.
		e.orders.Flatten(ctx)
		e.flattens++
		rec.Action = domain.ActionFlatten
	} else {
		intent, buyID, sellID := e.orders.Replace(ctx, fair, e.cfg.SpreadBPS, e.cfg.PositionSize)
		e.quotes++
		if buyID != "" {
			e.trades++
		}
		if sellID != "" {
			e.trades++
		}

		rec.Action = domain.ActionQuote
		rec.BuyOrderID = buyID
		rec.SellOrderID = sellID
		rec.BuyPrice = intent.BuyPrice
		rec.SellPrice = intent.SellPrice
		rec.Size = intent.Size

		e.lastRequoteAt = now
		e.lastQuotedPrice = sample.Value
		e.hasQuoted = true
	}

	e.notify.NotifyCycle(rec)
	if err := e.store.SaveCycle(ctx, e.sessionID, rec); err != nil {
		slog.Warn("maker: save cycle failed", "err", err)
	}

	return e.checkSafety(ctx)
}

// shouldRequote evalúa la política de triggers. Los dos comparadores de
// boundary son ≥ a propósito: movimiento exactamente en el threshold dispara.
func (e *Engine) shouldRequote(now time.Time, price float64) bool {
	if !e.hasQuoted {
		return true
	}
	if now.Sub(e.lastRequoteAt) >= e.cfg.RequoteInterval {
		return true
	}
	change := math.Abs(price-e.lastQuotedPrice) / e.lastQuotedPrice
	return change >= e.cfg.PriceChangeThreshold
}

// checkSafety comprueba los límites diarios. Superarlos devuelve
// ErrSafetyLimit — una parada deliberada, no un fallo.
func (e *Engine) checkSafety(ctx context.Context) error {
	if e.cfg.MaxDailyTrades > 0 && e.trades >= e.cfg.MaxDailyTrades {
		return fmt.Errorf("%w: %d trades ≥ max %d", ErrSafetyLimit, e.trades, e.cfg.MaxDailyTrades)
	}

	if e.cfg.MaxDailyLoss > 0 && e.lossBaseSet {
		balance, err := e.executor.GetBalance(ctx)
		if err != nil {
			slog.Warn("maker: balance query failed during safety check", "err", err)
			return nil
		}
		if loss := e.lossBase - balance; loss >= e.cfg.MaxDailyLoss {
			return fmt.Errorf("%w: loss $%.2f ≥ max $%.2f", ErrSafetyLimit, loss, e.cfg.MaxDailyLoss)
		}
	}
	return nil
}

// stop es la transición única a Stopped: cancelar todas las órdenes del
// wallet, parar el stream y persistir el resumen. Se ejecuta también en los
// caminos de error — nunca se dejan órdenes descansando desatendidas.
func (e *Engine) stop(reason string, cause error) error {
	e.state.Store(int32(StateStopped))

	// El ctx del loop puede estar ya cancelado; el shutdown usa uno propio.
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	e.orders.Shutdown(ctx)
	e.feed.Stop()

	summary := e.summary(reason)
	if err := e.store.SaveSession(ctx, summary); err != nil {
		slog.Warn("maker: save session failed", "err", err)
	}
	e.notify.Summary(summary)

	slog.Info("maker: stopped",
		"reason", reason,
		"cycles", e.cycles,
		"quotes", e.quotes,
		"flattens", e.flattens,
		"trades", e.trades)
	return cause
}

func (e *Engine) summary(reason string) domain.SessionSummary {
	return domain.SessionSummary{
		SessionID:  e.sessionID,
		Question:   e.instrument.Question,
		Strike:     e.instrument.Strike,
		StartedAt:  e.startedAt,
		StoppedAt:  e.now(),
		Cycles:     e.cycles,
		Quotes:     e.quotes,
		Flattens:   e.flattens,
		Trades:     e.trades,
		LastPrice:  e.lastPrice,
		StopReason: reason,
		DryRun:     e.cfg.DryRun,
	}
}

// saveSession persiste la fila inicial de la sesión (best-effort).
func (e *Engine) saveSession(ctx context.Context, reason string, stoppedAt time.Time) {
	s := e.summary(reason)
	s.StoppedAt = stoppedAt
	if err := e.store.SaveSession(ctx, s); err != nil {
		slog.Warn("maker: save initial session failed", "err", err)
	}
}
