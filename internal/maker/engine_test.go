package maker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alejandrodnm/makerbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeFeed struct {
	mu       sync.Mutex
	sample   domain.PriceSample
	ok       bool
	healthy  bool
	stopped  bool
	startErr error
}

func (f *fakeFeed) Start(_ context.Context) error { return f.startErr }

func (f *fakeFeed) Current() (domain.PriceSample, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sample, f.ok
}

func (f *fakeFeed) Healthy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.healthy
}

func (f *fakeFeed) OnUpdate(_ func(domain.PriceSample)) {}

func (f *fakeFeed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeFeed) publish(price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sample = domain.PriceSample{Value: price, ObservedAt: time.Now()}
	f.ok = true
	f.healthy = true
}

type fakeExecutor struct {
	mu             sync.Mutex
	open           map[string]domain.PlaceOrderRequest
	placed         []domain.PlaceOrderRequest
	cancelled      []string
	cancelAllCalls int
	failCancel     map[string]bool
	failPlace      map[domain.Side]bool
	balance        float64
	feeBps         int
	nextID         int
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		open:       make(map[string]domain.PlaceOrderRequest),
		failCancel: make(map[string]bool),
		failPlace:  make(map[domain.Side]bool),
		balance:    500,
	}
}

func (x *fakeExecutor) PlaceOrder(_ context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.failPlace[req.Side] {
		return domain.PlacedOrder{}, errors.New("exchange rejected order")
	}
	x.nextID++
	id := fmt.Sprintf("ord-%d", x.nextID)
	x.open[id] = req
	x.placed = append(x.placed, req)
	return domain.PlacedOrder{OrderID: id, Status: "live"}, nil
}

func (x *fakeExecutor) CancelOrder(_ context.Context, orderID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.failCancel[orderID] {
		return errors.New("cancel failed")
	}
	delete(x.open, orderID)
	x.cancelled = append(x.cancelled, orderID)
	return nil
}

func (x *fakeExecutor) CancelAll(_ context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.cancelAllCalls++
	x.open = make(map[string]domain.PlaceOrderRequest)
	return nil
}

func (x *fakeExecutor) GetOpenOrders(_ context.Context) ([]string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	ids := make([]string, 0, len(x.open))
	for id := range x.open {
		ids = append(ids, id)
	}
	return ids, nil
}

func (x *fakeExecutor) FeeRate(_ context.Context, _ string) (int, error) {
	return x.feeBps, nil
}

func (x *fakeExecutor) GetBalance(_ context.Context) (float64, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.balance, nil
}

func (x *fakeExecutor) openCount() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.open)
}

type fakeMarkets struct {
	instruments []domain.Instrument
	err         error
}

func (m *fakeMarkets) FetchCryptoMarkets(_ context.Context, _, _ string) ([]domain.Instrument, error) {
	return m.instruments, m.err
}

type fakeStore struct {
	mu       sync.Mutex
	cycles   []domain.CycleRecord
	sessions []domain.SessionSummary
}

func (s *fakeStore) SaveCycle(_ context.Context, _ string, rec domain.CycleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles = append(s.cycles, rec)
	return nil
}

func (s *fakeStore) SaveSession(_ context.Context, summary domain.SessionSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, summary)
	return nil
}

func (s *fakeStore) GetCycles(_ context.Context, _ string) ([]domain.CycleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CycleRecord(nil), s.cycles...), nil
}

func (s *fakeStore) Close() error { return nil }

type fakeNotifier struct {
	mu        sync.Mutex
	cycles    []domain.CycleRecord
	summaries []domain.SessionSummary
}

func (n *fakeNotifier) NotifyCycle(rec domain.CycleRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cycles = append(n.cycles, rec)
}

func (n *fakeNotifier) Summary(s domain.SessionSummary) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries = append(n.summaries, s)
}

// --- helpers ---

var testInstrument = domain.Instrument{
	ConditionID: "0xbtc15m",
	Question:    "Will BTC be above $83,000 at 3:15 PM ET?",
	Strike:      83000,
	YesTokenID:  "token_yes",
	NoTokenID:   "token_no",
}

func testConfig() Config {
	return Config{
		Keyword:              "btc",
		DurationClass:        "15m",
		SpreadBPS:            200,
		MinEdgeBPS:           200,
		PositionSize:         10,
		RequoteInterval:      5 * time.Second,
		PriceChangeThreshold: 0.001,
		DryRun:               true,
		TickInterval:         time.Second,
	}
}

func newTestEngine(cfg Config) (*Engine, *fakeFeed, *fakeExecutor, *fakeStore, *fakeNotifier) {
	feed := &fakeFeed{}
	exec := newFakeExecutor()
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	markets := &fakeMarkets{instruments: []domain.Instrument{testInstrument}}

	e := New(feed, markets, exec, store, notifier, cfg)
	e.instrument = testInstrument
	e.orders = NewLifecycle(exec, testInstrument)
	return e, feed, exec, store, notifier
}

// --- requote trigger policy ---

func TestShouldRequote_NeverQuoted(t *testing.T) {
	e, _, _, _, _ := newTestEngine(testConfig())
	assert.True(t, e.shouldRequote(time.Now(), 83000))
}

func TestShouldRequote_PriceChangeBoundary(t *testing.T) {
	e, _, _, _, _ := newTestEngine(testConfig())
	now := time.Now()
	e.hasQuoted = true
	e.lastQuotedPrice = 50000
	e.lastRequoteAt = now

	// 0.1% exacto dispara (≥ estricto), un dólar menos no
	assert.True(t, e.shouldRequote(now, 50050))
	assert.False(t, e.shouldRequote(now, 50049))

	// Movimiento a la baja, mismo boundary
	assert.True(t, e.shouldRequote(now, 49950))
	assert.False(t, e.shouldRequote(now, 49951))
}

func TestShouldRequote_IntervalElapsed(t *testing.T) {
	e, _, _, _, _ := newTestEngine(testConfig())
	now := time.Now()
	e.hasQuoted = true
	e.lastQuotedPrice = 50000
	e.lastRequoteAt = now.Add(-5 * time.Second)

	// Intervalo cumplido exactamente → dispara aunque el precio no se movió
	assert.True(t, e.shouldRequote(now, 50000))

	e.lastRequoteAt = now.Add(-4 * time.Second)
	assert.False(t, e.shouldRequote(now, 50000))
}

// --- tick behavior ---

func TestTick_SkipsWithoutFreshSample(t *testing.T) {
	e, _, exec, store, _ := newTestEngine(testConfig())

	require.NoError(t, e.tick(context.Background()))

	assert.Zero(t, e.cycles)
	assert.Empty(t, exec.placed)
	assert.Empty(t, store.cycles)
}

func TestTick_GateVetoFlattens(t *testing.T) {
	e, feed, exec, store, _ := newTestEngine(testConfig())

	// Primero un quote legítimo para tener órdenes descansando
	feed.publish(83400) // fair 0.75
	require.NoError(t, e.tick(context.Background()))
	require.Equal(t, 2, exec.openCount())
	require.True(t, e.hasQuoted)
	lastQuoted := e.lastQuotedPrice

	// Precio vuelve a la zona de fees: fair 0.5008, distancia 0.0008 < 0.01
	feed.publish(83008)
	require.NoError(t, e.tick(context.Background()))

	assert.Equal(t, 0, exec.openCount(), "flatten debe cancelar sin reponer")
	assert.Equal(t, 1, e.flattens)
	assert.Equal(t, lastQuoted, e.lastQuotedPrice, "flatten no actualiza el último quote")

	require.Len(t, store.cycles, 2)
	assert.Equal(t, domain.ActionFlatten, store.cycles[1].Action)
	assert.Empty(t, store.cycles[1].BuyOrderID)
}

func TestTick_QuotePricesStraddleFair(t *testing.T) {
	e, feed, exec, _, notifier := newTestEngine(testConfig())

	feed.publish(83400) // fair 0.75
	require.NoError(t, e.tick(context.Background()))

	require.Len(t, notifier.cycles, 1)
	rec := notifier.cycles[0]
	assert.Equal(t, domain.ActionQuote, rec.Action)
	assert.InDelta(t, 0.74, rec.BuyPrice, 1e-9)  // 0.75 − 200bps/2
	assert.InDelta(t, 0.76, rec.SellPrice, 1e-9) // 0.75 + 200bps/2
	assert.InDelta(t, 10, rec.Size, 1e-9)
	assert.NotEmpty(t, rec.BuyOrderID)
	assert.NotEmpty(t, rec.SellOrderID)

	// Ambos lados cotizan el token YES
	for _, req := range exec.placed {
		assert.Equal(t, "token_yes", req.TokenID)
	}
}

func TestTick_EndToEndScenario(t *testing.T) {
	// strike=83000, precios [83000, 83090, 83400] a t=0,1,2 con interval=5s,
	// threshold=0.1%, min_edge=200bps. Los fairs son 0.50, 0.509, 0.75: los
	// dos primeros caen dentro de la zona de fees (distancia < 0.01) y se
	// aplanan; solo el tercero cotiza.
	e, feed, exec, store, _ := newTestEngine(testConfig())

	base := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	elapsed := 0
	e.now = func() time.Time { return base.Add(time.Duration(elapsed) * time.Second) }

	for i, price := range []float64{83000, 83090, 83400} {
		elapsed = i
		feed.publish(price)
		require.NoError(t, e.tick(context.Background()))
	}

	assert.Equal(t, 3, e.cycles, "los tres ticks disparan (nunca se cotizó)")
	assert.Equal(t, 2, e.flattens)
	assert.Equal(t, 1, e.quotes)
	assert.Equal(t, 2, exec.openCount())

	require.Len(t, store.cycles, 3)
	assert.Equal(t, domain.ActionFlatten, store.cycles[0].Action)
	assert.InDelta(t, 0.50, store.cycles[0].FairPrice, 1e-9)
	assert.Equal(t, domain.ActionFlatten, store.cycles[1].Action)
	assert.InDelta(t, 0.509, store.cycles[1].FairPrice, 1e-9)
	assert.Equal(t, domain.ActionQuote, store.cycles[2].Action)
	assert.InDelta(t, 0.75, store.cycles[2].FairPrice, 1e-9)
}

// --- safety limits ---

func TestTick_TradeLimitStops(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDailyTrades = 2
	e, feed, _, _, _ := newTestEngine(cfg)

	feed.publish(83400)
	err := e.tick(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSafetyLimit)
}

func TestTick_DailyLossStops(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDailyLoss = 50
	e, feed, exec, _, _ := newTestEngine(cfg)
	e.lossBase = 500
	e.lossBaseSet = true

	feed.publish(83400)
	require.NoError(t, e.tick(context.Background()))

	// El balance cae por debajo del límite antes del siguiente ciclo
	exec.mu.Lock()
	exec.balance = 449
	exec.mu.Unlock()

	elapsed := e.now().Add(6 * time.Second)
	e.now = func() time.Time { return elapsed }
	feed.publish(83400)

	err := e.tick(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSafetyLimit)
}

// --- full run ---

func TestRun_StopsOnContextCancel(t *testing.T) {
	cfg := testConfig()
	cfg.TickInterval = 10 * time.Millisecond
	feed := &fakeFeed{}
	feed.publish(83400)
	exec := newFakeExecutor()
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	markets := &fakeMarkets{instruments: []domain.Instrument{testInstrument}}

	e := New(feed, markets, exec, store, notifier, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	time.Sleep(80 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Equal(t, StateStopped, e.State())
	assert.True(t, feed.stopped, "shutdown debe parar el stream")
	assert.Equal(t, 1, exec.cancelAllCalls, "shutdown debe cancelar todo en el exchange")
	assert.Equal(t, 0, exec.openCount())

	// Fila inicial + resumen final
	store.mu.Lock()
	require.GreaterOrEqual(t, len(store.sessions), 2)
	final := store.sessions[len(store.sessions)-1]
	store.mu.Unlock()
	assert.Equal(t, "context cancelled", final.StopReason)
	assert.False(t, final.StoppedAt.IsZero())

	notifier.mu.Lock()
	assert.Len(t, notifier.summaries, 1)
	notifier.mu.Unlock()
}

func TestRun_UnhealthyFeedIsFatal(t *testing.T) {
	// El feed arranca pero nunca entrega un primer sample: la sesión debe
	// abortar con error tras cancelar órdenes y parar el stream.
	feed := &fakeFeed{}
	exec := newFakeExecutor()
	store := &fakeStore{}
	markets := &fakeMarkets{instruments: []domain.Instrument{testInstrument}}

	e := New(feed, markets, exec, store, &fakeNotifier{}, testConfig())

	err := e.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no price received")

	assert.Equal(t, StateStopped, e.State())
	assert.True(t, feed.stopped, "el stream debe pararse aunque el arranque falle")
	assert.Equal(t, 1, exec.cancelAllCalls, "el shutdown siempre cancela en el exchange")

	store.mu.Lock()
	final := store.sessions[len(store.sessions)-1]
	store.mu.Unlock()
	assert.Equal(t, "price stream unhealthy at startup", final.StopReason)
}

func TestRun_FeedStartErrorIsFatal(t *testing.T) {
	feed := &fakeFeed{startErr: errors.New("dial ws: connection refused")}
	exec := newFakeExecutor()
	markets := &fakeMarkets{instruments: []domain.Instrument{testInstrument}}

	e := New(feed, markets, exec, &fakeStore{}, &fakeNotifier{}, testConfig())

	err := e.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, StateStopped, e.State())
	assert.Equal(t, 1, exec.cancelAllCalls)
}

func TestRun_NotRestartable(t *testing.T) {
	feed := &fakeFeed{}
	exec := newFakeExecutor()
	markets := &fakeMarkets{err: errors.New("catalog down")}

	e := New(feed, markets, exec, &fakeStore{}, &fakeNotifier{}, testConfig())

	err := e.Run(context.Background())
	require.Error(t, err) // fallo de selección: fatal

	err = e.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotRestartable)
}

func TestRun_SelectionFailureIsFatal(t *testing.T) {
	feed := &fakeFeed{}
	markets := &fakeMarkets{instruments: nil}

	e := New(feed, markets, newFakeExecutor(), &fakeStore{}, &fakeNotifier{}, testConfig())

	err := e.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoActiveInstrument)
	assert.Equal(t, StateStopped, e.State())
}
