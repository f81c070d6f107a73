package binance

// feed.go — Binance WebSocket ticker feed.
//
// Mantiene una suscripción al canal @ticker de un único símbolo y publica el
// último precio como un snapshot inmutable en un slot atómico. El productor
// (goroutine de conexión) y el consumidor (scheduler) solo comparten ese
// slot — nunca hay lecturas parciales.
//
// Reconexión: backoff fijo de 5 s, reintentos ilimitados mientras el feed
// siga en running. La pérdida de conexión nunca es fatal.

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alejandrodnm/makerbot/internal/domain"
)

const (
	defaultReconnectWait = 5 * time.Second
	defaultStartTimeout  = 10 * time.Second
)

// Config controla la conexión del feed.
type Config struct {
	// URL es el endpoint base del stream, ej. wss://stream.binance.com:9443/ws.
	URL    string
	Symbol string

	// StaleAfter es la ventana de staleness. Por defecto domain.StalenessWindow.
	StaleAfter time.Duration
	// ReconnectWait es la espera fija entre reintentos de conexión.
	ReconnectWait time.Duration
	// StartTimeout es cuánto bloquea Start esperando el primer sample.
	StartTimeout time.Duration
}

// Feed implementa ports.PriceFeed contra el stream de tickers de Binance.
type Feed struct {
	cfg Config

	latest  atomic.Pointer[domain.PriceSample]
	running atomic.Bool

	first     chan struct{}
	firstOnce sync.Once
	done      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	mu        sync.Mutex
	conn      *websocket.Conn
	listeners []func(domain.PriceSample)
}

// tickerMessage es el formato del canal 24hrTicker de Binance.
// Solo nos interesa el último precio ("c", como string).
type tickerMessage struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	LastPrice string `json:"c"`
}

// NewFeed crea un Feed sin conectar. Llamar Start para arrancar.
func NewFeed(cfg Config) *Feed {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = domain.StalenessWindow
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = defaultReconnectWait
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = defaultStartTimeout
	}
	return &Feed{
		cfg:   cfg,
		first: make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// OnUpdate registra un listener invocado sincrónicamente en cada tick
// aceptado. Debe llamarse antes de Start.
func (f *Feed) OnUpdate(fn func(domain.PriceSample)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
}

// Start arranca la conexión en background y bloquea hasta recibir el primer
// sample o agotar el timeout de arranque. Devuelve el control en ambos
// casos; la salud se comprueba aparte con Healthy.
func (f *Feed) Start(ctx context.Context) error {
	if !f.running.CompareAndSwap(false, true) {
		slog.Warn("binance: feed already running")
		return nil
	}

	f.wg.Add(1)
	go f.run()

	select {
	case <-f.first:
		sample, _ := f.Current()
		slog.Info("binance: feed started", "symbol", f.cfg.Symbol, "price", sample.Value)
	case <-time.After(f.cfg.StartTimeout):
		slog.Warn("binance: feed started but no price received yet", "symbol", f.cfg.Symbol)
	case <-ctx.Done():
		f.Stop()
		return fmt.Errorf("binance.Start: %w", ctx.Err())
	}
	return nil
}

// Current devuelve el último sample aceptado. ok es false si no llegó
// ninguno todavía o si el más reciente supera la ventana de staleness.
func (f *Feed) Current() (domain.PriceSample, bool) {
	p := f.latest.Load()
	if p == nil {
		return domain.PriceSample{}, false
	}
	if time.Since(p.ObservedAt) > f.cfg.StaleAfter {
		return domain.PriceSample{}, false
	}
	return *p, true
}

// Healthy devuelve true si el feed está corriendo y el último sample es fresco.
func (f *Feed) Healthy() bool {
	if !f.running.Load() {
		return false
	}
	_, ok := f.Current()
	return ok
}

// Stop termina la conexión y cualquier retry pendiente. Idempotente.
func (f *Feed) Stop() {
	f.stopOnce.Do(func() {
		f.running.Store(false)
		close(f.done)

		f.mu.Lock()
		if f.conn != nil {
			f.conn.Close()
		}
		f.mu.Unlock()

		f.wg.Wait()
		slog.Info("binance: feed stopped", "symbol", f.cfg.Symbol)
	})
}

// run es el loop de conexión: conecta, lee hasta fallo, espera y reconecta.
func (f *Feed) run() {
	defer f.wg.Done()

	url := fmt.Sprintf("%s/%s@ticker", f.cfg.URL, strings.ToLower(f.cfg.Symbol))

	for f.running.Load() {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			slog.Error("binance: connect failed", "err", err)
			if !f.sleep(f.cfg.ReconnectWait) {
				return
			}
			continue
		}

		f.mu.Lock()
		f.conn = conn
		f.mu.Unlock()
		slog.Info("binance: connected", "symbol", f.cfg.Symbol)

		f.readLoop(conn)

		conn.Close()
		f.mu.Lock()
		f.conn = nil
		f.mu.Unlock()

		if !f.running.Load() {
			return
		}
		slog.Warn("binance: connection lost, reconnecting", "wait", f.cfg.ReconnectWait)
		if !f.sleep(f.cfg.ReconnectWait) {
			return
		}
	}
}

// readLoop consume mensajes hasta que la conexión falle.
func (f *Feed) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if f.running.Load() {
				slog.Error("binance: read error", "err", err)
			}
			return
		}
		f.accept(raw)
	}
}

// accept parsea un mensaje y, si trae un precio estrictamente positivo,
// publica el sample y notifica a los listeners. Los mensajes malformados se
// descartan y loguean, nunca tumban el feed.
func (f *Feed) accept(raw []byte) {
	var msg tickerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		slog.Debug("binance: malformed message dropped", "err", err)
		return
	}
	if msg.EventType != "24hrTicker" {
		return
	}

	price, err := strconv.ParseFloat(msg.LastPrice, 64)
	if err != nil {
		slog.Debug("binance: unparsable price dropped", "raw", msg.LastPrice)
		return
	}
	if price <= 0 {
		return
	}

	sample := domain.PriceSample{Value: price, ObservedAt: time.Now()}
	f.latest.Store(&sample)
	f.firstOnce.Do(func() { close(f.first) })

	f.notify(sample)
}

// notify invoca los listeners aislando panics: un listener roto no puede
// tumbar la goroutine de recepción.
func (f *Feed) notify(sample domain.PriceSample) {
	f.mu.Lock()
	listeners := f.listeners
	f.mu.Unlock()

	for _, fn := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("binance: listener panic isolated", "panic", r)
				}
			}()
			fn(sample)
		}()
	}
}

// sleep espera d o hasta que Stop cierre done. Devuelve false si hay que parar.
func (f *Feed) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-f.done:
		return false
	}
}
