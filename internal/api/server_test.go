package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kosheduteam/signalengine/config"
	"github.com/kosheduteam/signalengine/internal/backtest"
	"github.com/kosheduteam/signalengine/internal/bus/memorybus"
	"github.com/kosheduteam/signalengine/internal/domain"
)

// fakeStore implements store.Store with in-memory fixtures, avoiding any
// real database dependency for these handler tests.
type fakeStore struct {
	healthErr error
	signal    domain.TradingSignal
	history   []domain.TradingSignal
	orders    []domain.Order
	bars      []domain.OHLCBar
	backtests map[string]domain.BacktestResult
}

func newFakeStore() *fakeStore {
	return &fakeStore{backtests: make(map[string]domain.BacktestResult)}
}

func (f *fakeStore) HealthCheck(ctx context.Context) error { return f.healthErr }
func (f *fakeStore) SaveArticle(ctx context.Context, a domain.Article) error { return nil }
func (f *fakeStore) SaveSentiment(ctx context.Context, s domain.Sentiment) error { return nil }
func (f *fakeStore) SaveEvent(ctx context.Context, e domain.Event) error { return nil }
func (f *fakeStore) SaveBar(ctx context.Context, b domain.OHLCBar) error { return nil }
func (f *fakeStore) SaveIndicatorSnapshot(ctx context.Context, s domain.IndicatorSnapshot) error {
	return nil
}
func (f *fakeStore) SaveRegimeSnapshot(ctx context.Context, s domain.RegimeSnapshot) error {
	return nil
}
func (f *fakeStore) SaveCMSResult(ctx context.Context, r domain.CMSResult) error { return nil }
func (f *fakeStore) SaveSignal(ctx context.Context, s domain.TradingSignal) error { return nil }
func (f *fakeStore) CurrentSignal(ctx context.Context, symbol string) (domain.TradingSignal, error) {
	if f.signal.Symbol == "" {
		return domain.TradingSignal{}, context.DeadlineExceeded
	}
	return f.signal, nil
}
func (f *fakeStore) SignalHistory(ctx context.Context, symbol string, start, end time.Time, limit int) ([]domain.TradingSignal, error) {
	return f.history, nil
}
func (f *fakeStore) SaveOrder(ctx context.Context, o domain.Order) error { return nil }
func (f *fakeStore) Orders(ctx context.Context, status string, limit int) ([]domain.Order, error) {
	return f.orders, nil
}
func (f *fakeStore) SavePosition(ctx context.Context, p domain.Position) error { return nil }
func (f *fakeStore) SaveTrade(ctx context.Context, t domain.Trade) error       { return nil }
func (f *fakeStore) SaveBacktestResult(ctx context.Context, r domain.BacktestResult) error {
	f.backtests[r.ID] = r
	return nil
}
func (f *fakeStore) BacktestResult(ctx context.Context, id string) (domain.BacktestResult, error) {
	r, ok := f.backtests[id]
	if !ok {
		return domain.BacktestResult{}, context.DeadlineExceeded
	}
	return r, nil
}
func (f *fakeStore) BarsRange(ctx context.Context, symbol string, start, end time.Time) ([]domain.OHLCBar, error) {
	return f.bars, nil
}
func (f *fakeStore) SentimentsRange(ctx context.Context, symbol string, start, end time.Time) ([]domain.Sentiment, error) {
	return nil, nil
}
func (f *fakeStore) EventsRange(ctx context.Context, symbol string, start, end time.Time) ([]domain.Event, error) {
	return nil, nil
}

func testServer(t *testing.T, st *fakeStore) *Server {
	t.Helper()
	b := memorybus.New()
	runner := backtest.New(config.CMSWeights{}, 100)
	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 0, AllowedOrigins: "*"}
	return New(cfg, st, b, runner)
}

func TestHandleHealth_OK(t *testing.T) {
	s := testServer(t, newFakeStore())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
}

func TestHandleHealth_DegradedOnStoreFailure(t *testing.T) {
	st := newFakeStore()
	st.healthErr = context.DeadlineExceeded
	s := testServer(t, st)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var body map[string]any
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["status"] != "degraded" {
		t.Errorf("expected status degraded, got %v", body["status"])
	}
}

func TestCurrentSignal_RequiresSymbol(t *testing.T) {
	s := testServer(t, newFakeStore())

	req := httptest.NewRequest(http.MethodGet, "/signal/current", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var body map[string]any
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["request_id"] == "" || body["request_id"] == nil {
		t.Errorf("expected a request_id in the error response, got %v", body)
	}
}

func TestCurrentSignal_ReturnsStoredSignal(t *testing.T) {
	st := newFakeStore()
	st.signal = domain.TradingSignal{Symbol: "AAPL", SignalClass: domain.ClassBuy, Price: 150}
	s := testServer(t, st)

	req := httptest.NewRequest(http.MethodGet, "/signal/current?symbol=AAPL", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var signal domain.TradingSignal
	if err := json.Unmarshal(w.Body.Bytes(), &signal); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if signal.Symbol != "AAPL" || signal.SignalClass != domain.ClassBuy {
		t.Errorf("unexpected signal: %+v", signal)
	}
}

func TestCreateBacktest_NoBarsReturns404(t *testing.T) {
	s := testServer(t, newFakeStore())

	body, _ := json.Marshal(map[string]any{
		"symbol": "AAPL",
		"start":  time.Now().Add(-48 * time.Hour).Format(time.RFC3339),
		"end":    time.Now().Format(time.RFC3339),
	})
	req := httptest.NewRequest(http.MethodPost, "/backtest", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for empty bar history, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateBacktest_AndFetchRoundTrip(t *testing.T) {
	st := newFakeStore()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		st.bars = append(st.bars, domain.OHLCBar{
			Symbol: "AAPL", Timestamp: start.Add(time.Duration(i) * 24 * time.Hour),
			Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000,
		})
	}
	s := testServer(t, st)

	reqBody, _ := json.Marshal(map[string]any{
		"symbol": "AAPL",
		"start":  start.Format(time.RFC3339),
		"end":    start.Add(60 * 24 * time.Hour).Format(time.RFC3339),
	})
	req := httptest.NewRequest(http.MethodPost, "/backtest", bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	id := created["id"]
	if id == "" {
		t.Fatal("expected a non-empty backtest id")
	}

	getReq := httptest.NewRequest(http.MethodGet, "/backtest/"+id, nil)
	getW := httptest.NewRecorder()
	s.router.ServeHTTP(getW, getReq)
	if getW.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching the created backtest, got %d: %s", getW.Code, getW.Body.String())
	}
}

func TestAuthMiddleware_RejectsMissingToken(t *testing.T) {
	st := newFakeStore()
	b := memorybus.New()
	runner := backtest.New(config.CMSWeights{}, 100)
	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 0, AllowedOrigins: "*", AuthToken: "shared-secret"}
	s := New(cfg, st, b, runner)

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a bearer token, got %d", w.Code)
	}
}
