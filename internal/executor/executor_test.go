package executor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kosheduteam/signalengine/config"
	"github.com/kosheduteam/signalengine/internal/broker"
	"github.com/kosheduteam/signalengine/internal/broker/simbroker"
	"github.com/kosheduteam/signalengine/internal/bus/memorybus"
	"github.com/kosheduteam/signalengine/internal/domain"
)

// spyBroker is a broker.Broker whose orders never reach a terminal status on
// their own, so a placed order stays outstanding until something explicitly
// cancels it — used to observe the daily-loss breach's cancellation path.
type spyBroker struct {
	mu        sync.Mutex
	nextID    int
	cancelled []string
}

func (b *spyBroker) PlaceOrder(ctx context.Context, req broker.PlaceOrderRequest) (broker.PlaceOrderResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	return broker.PlaceOrderResult{BrokerOrderID: "spy-order"}, nil
}

func (b *spyBroker) OrderStatus(ctx context.Context, brokerOrderID string) (broker.OrderStatusResult, error) {
	return broker.OrderStatusResult{Status: domain.OrderSubmitted}, nil
}

func (b *spyBroker) Cancel(ctx context.Context, brokerOrderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancelled = append(b.cancelled, brokerOrderID)
	return nil
}

func (b *spyBroker) Positions(ctx context.Context) ([]broker.Position, error) { return nil, nil }

func (b *spyBroker) Margins(ctx context.Context, symbol string) (broker.Margin, error) {
	return broker.Margin{Available: 1e18}, nil
}

func (b *spyBroker) cancelledIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.cancelled...)
}

func testConfig() *config.Config {
	return &config.Config{
		CMS: config.CMSConfig{ThresholdBuy: 50, ThresholdSell: 50},
		Risk: config.RiskConfig{
			PerTradeFraction:    0.02,
			MaxPositionFraction: 0.25,
			ATRStopMultiplier:   1.5,
		},
		Trading: config.TradingConfig{
			MaxDailyTrades:     20,
			MaxDailyLoss:       500,
			MaxPositionSize:    1_000_000,
			AutoTradingEnabled: true,
		},
		Breakers: config.BreakersConfig{
			Broker: config.CollaboratorBreaker{FailureThreshold: 5, RecoverySeconds: 30},
		},
		Retry: config.RetryConfig{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond},
	}
}

func buySignal(symbol string, price, cms float64) domain.TradingSignal {
	return domain.TradingSignal{
		ID:          "sig-1",
		Symbol:      symbol,
		SignalClass: domain.ClassBuy,
		Price:       price,
		CMSScore:    cms,
		Confidence:  0.8,
		Timestamp:   time.Now(),
	}
}

func newTestExecutor(t *testing.T, equity float64) (*Executor, *simbroker.Broker) {
	t.Helper()
	prices := map[string]float64{"AAPL": 150.0}
	brk := simbroker.New(func(symbol string) (float64, error) { return prices[symbol], nil })
	e := New(testConfig(), brk, memorybus.New(), nil, equity)
	e.OnPrice("AAPL", 150.0)
	e.OnIndicator("AAPL", 2.0) // ATR=2.0
	return e, brk
}

func TestOnSignal_HoldIsIgnored(t *testing.T) {
	e, _ := newTestExecutor(t, 100000)
	reason := e.OnSignal(context.Background(), domain.TradingSignal{SignalClass: domain.ClassHold}, time.Now())
	if reason != "" {
		t.Errorf("expected HOLD to be a silent no-op, got reason %q", reason)
	}
}

func TestOnSignal_TradingDisabledFailsFirstGate(t *testing.T) {
	e, _ := newTestExecutor(t, 100000)
	e.disableTrading("test")

	reason := e.OnSignal(context.Background(), buySignal("AAPL", 150, 60), time.Now())
	if reason != ReasonTradingDisabled {
		t.Errorf("expected %q, got %q", ReasonTradingDisabled, reason)
	}
}

func TestOnSignal_CMSBelowThresholdFailsGate(t *testing.T) {
	e, _ := newTestExecutor(t, 100000)
	reason := e.OnSignal(context.Background(), buySignal("AAPL", 150, 30), time.Now())
	if reason != ReasonCMSThreshold {
		t.Errorf("expected %q, got %q", ReasonCMSThreshold, reason)
	}
}

func TestOnSignal_MaxDailyTradesGate(t *testing.T) {
	e, _ := newTestExecutor(t, 100000)
	e.trading.MaxDailyTrades = 0
	reason := e.OnSignal(context.Background(), buySignal("AAPL", 150, 60), time.Now())
	if reason != ReasonMaxDailyTrades {
		t.Errorf("expected %q, got %q", ReasonMaxDailyTrades, reason)
	}
}

func TestOnSignal_OppositePositionGate(t *testing.T) {
	e, _ := newTestExecutor(t, 100000)
	e.openPositions["AAPL"] = &domain.Position{Symbol: "AAPL", Side: domain.SideSell, Open: true, Quantity: 1, EntryPrice: 150}

	reason := e.OnSignal(context.Background(), buySignal("AAPL", 150, 60), time.Now())
	if reason != ReasonOppositePosition {
		t.Errorf("expected %q, got %q", ReasonOppositePosition, reason)
	}
}

func TestSizePosition_CapsAtMaxPositionFraction(t *testing.T) {
	e, _ := newTestExecutor(t, 1000) // tiny equity forces the fraction cap
	sizing := e.sizePosition(buySignal("AAPL", 150, 60), 2.0)

	maxValue := 1000 * e.risk.MaxPositionFraction
	if sizing.Value > maxValue+1e-9 {
		t.Errorf("position value %v exceeds max_position_fraction cap %v", sizing.Value, maxValue)
	}
}

func TestHandleFill_OpenThenCloseRecordsTradeAndPnL(t *testing.T) {
	e, _ := newTestExecutor(t, 100000)

	openOrder := domain.Order{ID: "o1", Symbol: "AAPL", Side: domain.SideBuy, Status: domain.OrderFilled, FilledQuantity: 10, AveragePrice: 150}
	sizing := domain.PositionSize{StopLossPrice: 147, TakeProfitPrice: 156}
	e.handleFill(context.Background(), openOrder, buySignal("AAPL", 150, 60), sizing)

	if _, ok := e.openPositions["AAPL"]; !ok {
		t.Fatal("expected an open position to be tracked after the opening fill")
	}

	closeOrder := domain.Order{ID: "o2", Symbol: "AAPL", Side: domain.SideSell, Status: domain.OrderFilled, FilledQuantity: 10, AveragePrice: 160}
	closeSignal := domain.TradingSignal{Symbol: "AAPL", SignalClass: domain.ClassSell, Price: 160}
	e.handleFill(context.Background(), closeOrder, closeSignal, domain.PositionSize{})

	if _, ok := e.openPositions["AAPL"]; ok {
		t.Error("expected the position to be closed and removed")
	}
	if got := e.DailyPnL(); got != 100 { // (160-150)*10
		t.Errorf("expected daily P&L 100, got %v", got)
	}
}

// TestDailyLossLimit_DisablesTradingAndRejectsSubsequentSignals is the
// literal scenario: daily loss hits max_daily_loss after a trade close,
// auto_trading flips false, and any subsequent BUY/SELL signal fails
// admission with reason "trading_disabled".
func TestDailyLossLimit_DisablesTradingAndRejectsSubsequentSignals(t *testing.T) {
	e, _ := newTestExecutor(t, 100000)
	e.trading.MaxDailyLoss = 500

	openOrder := domain.Order{ID: "o1", Symbol: "AAPL", Side: domain.SideBuy, Status: domain.OrderFilled, FilledQuantity: 100, AveragePrice: 150}
	e.handleFill(context.Background(), openOrder, buySignal("AAPL", 150, 60), domain.PositionSize{})

	// Close at a loss large enough to breach the daily limit: (150-145)*100 = 500 loss.
	closeOrder := domain.Order{ID: "o2", Symbol: "AAPL", Side: domain.SideSell, Status: domain.OrderFilled, FilledQuantity: 100, AveragePrice: 145}
	closeSignal := domain.TradingSignal{Symbol: "AAPL", SignalClass: domain.ClassSell, Price: 145}
	e.handleFill(context.Background(), closeOrder, closeSignal, domain.PositionSize{})

	if e.TradingEnabled() {
		t.Fatal("expected trading to be disabled after the daily loss limit breach")
	}

	reason := e.OnSignal(context.Background(), buySignal("AAPL", 150, 60), time.Now())
	if reason != ReasonTradingDisabled {
		t.Errorf("expected subsequent signal to be rejected with %q, got %q", ReasonTradingDisabled, reason)
	}
}

// TestDailyLossLimit_CancelsOutstandingOrders asserts §4.G step 5's "disable
// trading and cancel all open orders": an order placed on one symbol and
// still outstanding (never reaching a terminal broker status) must be
// cancelled the moment a different symbol's closing fill breaches the daily
// loss limit.
func TestDailyLossLimit_CancelsOutstandingOrders(t *testing.T) {
	spy := &spyBroker{}
	e := New(testConfig(), spy, memorybus.New(), nil, 100000)
	e.trading.MaxDailyLoss = 500
	e.OnPrice("MSFT", 300.0)
	e.OnIndicator("MSFT", 2.0)

	reason := e.OnSignal(context.Background(), buySignal("MSFT", 300, 60), time.Now())
	if reason != "" {
		t.Fatalf("expected admission to succeed, got reason %q", reason)
	}
	time.Sleep(10 * time.Millisecond) // let placeOrder's synchronous portion register the outstanding order

	openOrder := domain.Order{ID: "o1", Symbol: "AAPL", Side: domain.SideBuy, Status: domain.OrderFilled, FilledQuantity: 100, AveragePrice: 150}
	e.handleFill(context.Background(), openOrder, buySignal("AAPL", 150, 60), domain.PositionSize{})
	closeOrder := domain.Order{ID: "o2", Symbol: "AAPL", Side: domain.SideSell, Status: domain.OrderFilled, FilledQuantity: 100, AveragePrice: 145}
	closeSignal := domain.TradingSignal{Symbol: "AAPL", SignalClass: domain.ClassSell, Price: 145}
	e.handleFill(context.Background(), closeOrder, closeSignal, domain.PositionSize{})

	cancelled := spy.cancelledIDs()
	if len(cancelled) != 1 || cancelled[0] != "spy-order" {
		t.Errorf("expected the outstanding MSFT order to be cancelled on breach, got %v", cancelled)
	}
}

func TestOnSignal_SuccessfulAdmissionPlacesOrderAndTracksDailyCount(t *testing.T) {
	e, _ := newTestExecutor(t, 100000)
	reason := e.OnSignal(context.Background(), buySignal("AAPL", 150, 60), time.Now())
	if reason != "" {
		t.Fatalf("expected admission to succeed, got reason %q", reason)
	}

	time.Sleep(10 * time.Millisecond) // let placeOrder's synchronous portion run

	e.mu.RLock()
	count := e.dailyTradeCount
	e.mu.RUnlock()
	if count != 1 {
		t.Errorf("expected daily trade count to be 1, got %d", count)
	}
}
