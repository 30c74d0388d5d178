// Package executor implements the order executor (§4.G): it consumes
// BUY/SELL trading signals, runs them through a six-gate admission
// pipeline, sizes and places orders through the broker collaborator, polls
// for fills, and maintains the daily trade counter, daily P&L, and
// trading-enabled flag. Grounded on the teacher's internal/risk.RiskManager
// (mutex-guarded daily counters, single-owner mutation) and
// internal/order.OrderManager (order lifecycle tracking), generalized from
// Binance-specific types to the abstract broker.Broker interface.
package executor

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kosheduteam/signalengine/config"
	"github.com/kosheduteam/signalengine/internal/apperr"
	"github.com/kosheduteam/signalengine/internal/broker"
	"github.com/kosheduteam/signalengine/internal/bus"
	"github.com/kosheduteam/signalengine/internal/domain"
	"github.com/kosheduteam/signalengine/internal/logging"
	"github.com/kosheduteam/signalengine/internal/resilience"
)

const component = "executor"

// Admission gate failure reasons (§4.G step 1, in gate order). "trading_disabled"
// is the literal reason S4 requires subsequent signals to fail with once the
// daily loss limit trips.
const (
	ReasonTradingDisabled   = "trading_disabled"
	ReasonMaxDailyTrades    = "max_daily_trades_reached"
	ReasonMaxPositionSize   = "max_position_size_exceeded"
	ReasonCMSThreshold      = "cms_threshold_not_met"
	ReasonInsufficientMargin = "insufficient_margin"
	ReasonOppositePosition  = "opposite_position_open"
)

const defaultPollInterval = 2 * time.Second

// Store is the minimal persistence surface the executor needs; writes are
// best-effort: a store failure is logged and the write is not retried, and
// it never blocks order placement or fill handling.
type Store interface {
	SaveOrder(ctx context.Context, order domain.Order) error
	SavePosition(ctx context.Context, position domain.Position) error
	SaveTrade(ctx context.Context, trade domain.Trade) error
}

// symbolMarket is the executor's own view of a symbol's current price and
// ATR, fed through OnPrice/OnIndicator independently of the signal itself
// (the signal only advertises price, not ATR).
type symbolMarket struct {
	mu    sync.Mutex
	price float64
	atr   float64
}

// Executor is the per-process order executor (§4.G). One Executor instance
// owns trading state across all symbols; per-symbol open positions are
// tracked in a map guarded by the same mutex as the daily counters, matching
// the teacher's RiskManager's single-lock simplicity (admission checks are
// infrequent enough that per-symbol sharding isn't warranted here, unlike
// the aggregator's high-frequency per-symbol fan-in).
type Executor struct {
	risk    config.RiskConfig
	trading config.TradingConfig
	cms     config.CMSConfig

	broker  broker.Broker
	b       bus.Bus
	store   Store
	breaker *resilience.Breaker
	retrier *resilience.Retrier
	log     *logging.Logger

	accountEquity float64
	pollInterval  time.Duration

	mu                 sync.RWMutex
	tradingEnabled     bool
	dailyTradeCount    int
	dailyPnL           float64
	dailyReset         time.Time
	currentExposure    float64
	openPositions      map[string]*domain.Position
	openOrders         map[string]string // symbol -> outstanding (non-terminal) broker order ID
	markets            map[string]*symbolMarket
}

// New creates an Executor. accountEquity is the simulated or reported
// account balance used for risk-fraction position sizing (§4.G / §9).
func New(cfg *config.Config, b broker.Broker, bu bus.Bus, store Store, accountEquity float64) *Executor {
	brk := resilience.NewBreaker("executor.broker", resilience.BreakerConfig{
		FailureThreshold: cfg.Breakers.Broker.FailureThreshold,
		RecoveryTimeout:  time.Duration(cfg.Breakers.Broker.RecoverySeconds) * time.Second,
	})
	retrier := resilience.NewRetrier(resilience.RetryConfig{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
	})

	e := &Executor{
		risk:           cfg.Risk,
		trading:        cfg.Trading,
		cms:            cfg.CMS,
		broker:         b,
		b:              bu,
		store:          store,
		breaker:        brk,
		retrier:        retrier,
		log:            logging.WithComponent(component),
		accountEquity:  accountEquity,
		pollInterval:   defaultPollInterval,
		tradingEnabled: cfg.Trading.AutoTradingEnabled,
		dailyReset:     time.Now().UTC().Truncate(24 * time.Hour),
		openPositions:  make(map[string]*domain.Position),
		openOrders:     make(map[string]string),
		markets:        make(map[string]*symbolMarket),
	}

	brk.OnTrip(func(reason string) {
		e.disableTrading(reason)
	})

	return e
}

func (e *Executor) marketFor(symbol string) *symbolMarket {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.markets[symbol]
	if !ok {
		m = &symbolMarket{}
		e.markets[symbol] = m
	}
	return m
}

// OnPrice records the latest traded price for symbol. Admission and sizing
// compute notional and quantity from the signal's own Price, not from this
// recorded value.
func (e *Executor) OnPrice(symbol string, price float64) {
	m := e.marketFor(symbol)
	m.mu.Lock()
	m.price = price
	m.mu.Unlock()
}

// OnIndicator records the latest ATR for symbol, used by the position sizer
// (§9: `risk_amount / (ATR * atr_stop_multiplier)`).
func (e *Executor) OnIndicator(symbol string, atr float64) {
	m := e.marketFor(symbol)
	m.mu.Lock()
	m.atr = atr
	m.mu.Unlock()
}

// TradingEnabled reports the current value of the trading-enabled flag.
func (e *Executor) TradingEnabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tradingEnabled
}

// DailyPnL reports the current day's realized P&L.
func (e *Executor) DailyPnL() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dailyPnL
}

func (e *Executor) checkDailyReset(now time.Time) {
	today := now.UTC().Truncate(24 * time.Hour)
	if today.After(e.dailyReset) {
		e.dailyTradeCount = 0
		e.dailyPnL = 0
		e.dailyReset = today
	}
}

// admissionCheck runs the six ordered admission gates (§4.G step 1) against
// signal and the proposed notional/quantity, returning the first failing
// gate's reason, or "" if every gate passes.
func (e *Executor) admissionCheck(ctx context.Context, signal domain.TradingSignal, quantity float64, margin broker.Margin) string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.tradingEnabled {
		return ReasonTradingDisabled
	}
	if e.dailyTradeCount >= e.trading.MaxDailyTrades {
		return ReasonMaxDailyTrades
	}

	notional := quantity * signal.Price
	if e.currentExposure+notional > e.trading.MaxPositionSize {
		return ReasonMaxPositionSize
	}

	switch signal.SignalClass {
	case domain.ClassBuy:
		if !(signal.CMSScore > e.cms.ThresholdBuy) {
			return ReasonCMSThreshold
		}
	case domain.ClassSell:
		if !(signal.CMSScore < -e.cms.ThresholdSell) {
			return ReasonCMSThreshold
		}
	}

	if margin.Available < notional {
		return ReasonInsufficientMargin
	}

	if pos, ok := e.openPositions[signal.Symbol]; ok && pos.Open {
		opposite := (signal.SignalClass == domain.ClassBuy && pos.Side == domain.SideSell) ||
			(signal.SignalClass == domain.ClassSell && pos.Side == domain.SideBuy)
		if opposite {
			return ReasonOppositePosition
		}
	}

	return ""
}

// sizePosition computes quantity and risk levels from the signal's price,
// symbol's ATR, and risk config (§9: `risk_amount/(ATR*atr_stop_multiplier)`,
// capped by `max_position_fraction` of account equity).
func (e *Executor) sizePosition(signal domain.TradingSignal, atr float64) domain.PositionSize {
	if atr <= 0 || signal.Price <= 0 {
		return domain.PositionSize{}
	}

	riskAmount := e.accountEquity * e.risk.PerTradeFraction
	stopDistance := atr * e.risk.ATRStopMultiplier
	if stopDistance <= 0 {
		return domain.PositionSize{}
	}

	quantity := riskAmount / stopDistance

	maxValue := e.accountEquity * e.risk.MaxPositionFraction
	maxQuantity := maxValue / signal.Price
	if quantity > maxQuantity {
		quantity = maxQuantity
	}
	if quantity < 0 {
		quantity = 0
	}

	const riskRewardRatio = 2.0
	var stopLoss, takeProfit float64
	switch signal.SignalClass {
	case domain.ClassBuy:
		stopLoss = signal.Price - stopDistance
		takeProfit = signal.Price + riskRewardRatio*stopDistance
	case domain.ClassSell:
		stopLoss = signal.Price + stopDistance
		takeProfit = signal.Price - riskRewardRatio*stopDistance
	}

	return domain.PositionSize{
		Shares:          quantity,
		Value:           quantity * signal.Price,
		RiskAmount:      riskAmount,
		StopLossPrice:   stopLoss,
		TakeProfitPrice: takeProfit,
		RiskRewardRatio: riskRewardRatio,
	}
}

// OnSignal is the executor's entry point for one BUY/SELL/HOLD signal (§4.G).
// HOLD signals are ignored. Returns the admission-gate failure reason (""
// on success or on HOLD) so callers/tests can assert on it directly.
func (e *Executor) OnSignal(ctx context.Context, signal domain.TradingSignal, now time.Time) string {
	if signal.SignalClass == domain.ClassHold {
		return ""
	}

	m := e.marketFor(signal.Symbol)
	m.mu.Lock()
	atr := m.atr
	m.mu.Unlock()

	sizing := e.sizePosition(signal, atr)

	var margin broker.Margin
	if e.broker != nil {
		var err error
		margin, err = e.broker.Margins(ctx, signal.Symbol)
		if err != nil {
			e.log.Warn("margin lookup failed, treating as zero available", "symbol", signal.Symbol, "error", err.Error())
		}
	}

	e.mu.Lock()
	e.checkDailyReset(now)
	e.mu.Unlock()

	reason := e.admissionCheck(ctx, signal, sizing.Shares, margin)
	if reason != "" {
		e.log.Info("signal rejected at admission", "symbol", signal.Symbol, "class", string(signal.SignalClass), "reason", reason)
		return reason
	}

	side := domain.SideBuy
	if signal.SignalClass == domain.ClassSell {
		side = domain.SideSell
	}

	orderType := domain.OrderMarket
	if signal.LimitPrice != nil {
		orderType = domain.OrderLimit
	}

	req := broker.PlaceOrderRequest{
		Symbol:     signal.Symbol,
		Side:       side,
		Type:       orderType,
		Quantity:   sizing.Shares,
		LimitPrice: signal.LimitPrice,
	}

	if err := e.placeOrder(ctx, signal, req, sizing); err != nil {
		e.log.Error("order placement failed", "symbol", signal.Symbol, "error", err.Error())
		if apperr.KindOf(err) == apperr.Auth {
			e.breaker.Trip(err.Error())
		}
		return "placement_failed"
	}

	return ""
}

// placeOrder submits req through the breaker+retrier wrapper, persists the
// resulting order, and starts the status-polling loop.
func (e *Executor) placeOrder(ctx context.Context, signal domain.TradingSignal, req broker.PlaceOrderRequest, sizing domain.PositionSize) error {
	allowed, reason := e.breaker.Allow()
	if !allowed {
		return apperr.New(apperr.Transient, component, "broker breaker open").WithContext("reason", reason)
	}

	var result broker.PlaceOrderResult
	err := e.retrier.Do(ctx, func() error {
		r, placeErr := e.broker.PlaceOrder(ctx, req)
		if placeErr != nil {
			e.breaker.RecordFailure(placeErr.Error())
			return placeErr
		}
		result = r
		return nil
	})
	if err != nil {
		return err
	}
	e.breaker.RecordSuccess()

	now := time.Now().UTC()
	order := domain.Order{
		ID:             uuid.NewString(),
		BrokerOrderID:  result.BrokerOrderID,
		Symbol:         req.Symbol,
		Side:           req.Side,
		Type:           req.Type,
		Quantity:       req.Quantity,
		LimitPrice:     req.LimitPrice,
		Status:         domain.OrderSubmitted,
		SourceSignalID: signal.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	e.mu.Lock()
	e.dailyTradeCount++
	e.openOrders[order.Symbol] = order.BrokerOrderID
	e.mu.Unlock()

	e.saveOrder(ctx, order)

	go e.pollUntilTerminal(ctx, order, signal, sizing)

	return nil
}

// pollUntilTerminal polls the broker every pollInterval until the order
// reaches a terminal state or ctx is cancelled (§4.G step 4 / §5
// cancellation model: finish the current message, then exit).
func (e *Executor) pollUntilTerminal(ctx context.Context, order domain.Order, signal domain.TradingSignal, sizing domain.PositionSize) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status, err := e.broker.OrderStatus(ctx, order.BrokerOrderID)
			if err != nil {
				e.log.Warn("order status poll failed", "order_id", order.ID, "error", err.Error())
				continue
			}
			e.applyStatus(ctx, &order, status, signal, sizing)
			if status.Status.Terminal() {
				return
			}
		}
	}
}

// applyStatus advances order's status, persists the transition, and routes
// to fill handling on a newly observed fill (§4.G step 5).
func (e *Executor) applyStatus(ctx context.Context, order *domain.Order, status broker.OrderStatusResult, signal domain.TradingSignal, sizing domain.PositionSize) {
	if !order.Status.CanTransition(status.Status) {
		return
	}
	wasFilled := order.Status == domain.OrderFilled
	order.Status = status.Status
	order.FilledQuantity = status.FilledQuantity
	order.AveragePrice = status.AveragePrice
	order.UpdatedAt = time.Now().UTC()

	e.saveOrder(ctx, *order)
	e.publishOrderUpdate(ctx, *order)

	if status.Status.Terminal() {
		e.mu.Lock()
		if e.openOrders[order.Symbol] == order.BrokerOrderID {
			delete(e.openOrders, order.Symbol)
		}
		e.mu.Unlock()
	}

	if status.Status == domain.OrderFilled && !wasFilled {
		e.handleFill(ctx, *order, signal, sizing)
	}
}

// handleFill opens or closes a position, records a trade on close, updates
// the daily P&L, and trips the daily-loss halt if it has been crossed
// (§4.G step 5).
func (e *Executor) handleFill(ctx context.Context, order domain.Order, signal domain.TradingSignal, sizing domain.PositionSize) {
	e.mu.Lock()
	existing, hasOpen := e.openPositions[order.Symbol]
	e.mu.Unlock()

	now := time.Now().UTC()

	if hasOpen && existing.Open && existing.Side != order.Side {
		// Closing fill: opposite side of an open position.
		pnl := closingPnL(*existing, order.AveragePrice, order.FilledQuantity)

		trade := domain.Trade{
			ID:         uuid.NewString(),
			Symbol:     order.Symbol,
			Side:       existing.Side,
			EntryPrice: existing.EntryPrice,
			ExitPrice:  order.AveragePrice,
			Quantity:   order.FilledQuantity,
			EntryAt:    existing.EntryAt,
			ExitAt:     now,
			PnL:        pnl,
		}

		existing.Open = false
		existing.ExitAt = &now
		existing.ExitPrice = order.AveragePrice

		e.mu.Lock()
		e.dailyPnL += pnl
		e.currentExposure -= existing.Quantity * existing.EntryPrice
		if e.currentExposure < 0 {
			e.currentExposure = 0
		}
		delete(e.openPositions, order.Symbol)
		breached := e.dailyPnL <= -e.trading.MaxDailyLoss
		e.mu.Unlock()

		e.saveTrade(ctx, trade)
		e.savePosition(ctx, *existing)

		if breached {
			e.onDailyLossBreached(ctx)
		}
		return
	}

	// Opening fill: new position.
	pos := domain.Position{
		ID:          uuid.NewString(),
		Symbol:      order.Symbol,
		Side:        order.Side,
		EntryPrice:  order.AveragePrice,
		Quantity:    order.FilledQuantity,
		InitialStop: sizing.StopLossPrice,
		CurrentStop: sizing.StopLossPrice,
		TakeProfit:  sizing.TakeProfitPrice,
		Open:        true,
		EntryAt:     now,
	}

	e.mu.Lock()
	e.openPositions[order.Symbol] = &pos
	e.currentExposure += pos.Quantity * pos.EntryPrice
	e.mu.Unlock()

	e.savePosition(ctx, pos)
}

// closingPnL computes the realized P&L of closing an existing position at
// exitPrice for exitQuantity units.
func closingPnL(existing domain.Position, exitPrice, exitQuantity float64) float64 {
	qty := math.Min(existing.Quantity, exitQuantity)
	if existing.Side == domain.SideBuy {
		return (exitPrice - existing.EntryPrice) * qty
	}
	return (existing.EntryPrice - exitPrice) * qty
}

// onDailyLossBreached disables trading, cancels every open order, and
// raises a critical alert (§4.G step 5 / S4).
func (e *Executor) onDailyLossBreached(ctx context.Context) {
	e.disableTrading("daily_loss_limit_breached")
	e.CancelAllOpenOrders(ctx, e.outstandingOrderIDs())
	e.publishAlert(ctx, "critical", "daily loss limit breached: trading disabled")
}

// outstandingOrderIDs snapshots the broker order IDs still awaiting a
// terminal status across all symbols.
func (e *Executor) outstandingOrderIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.openOrders))
	for _, id := range e.openOrders {
		ids = append(ids, id)
	}
	return ids
}

// disableTrading flips the trading-enabled flag off; callers include the
// daily-loss breach handler and the broker breaker's OnTrip hook (§4.G:
// "fatal broker errors ... disable automatic trading until operator
// intervention").
func (e *Executor) disableTrading(reason string) {
	e.mu.Lock()
	e.tradingEnabled = false
	e.mu.Unlock()
	e.log.Error("trading disabled", "reason", reason)
}

func (e *Executor) saveOrder(ctx context.Context, order domain.Order) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveOrder(ctx, order); err != nil {
		e.log.Warn("failed to persist order", "order_id", order.ID, "error", err.Error())
	}
}

func (e *Executor) savePosition(ctx context.Context, pos domain.Position) {
	if e.store == nil {
		return
	}
	if err := e.store.SavePosition(ctx, pos); err != nil {
		e.log.Warn("failed to persist position", "position_id", pos.ID, "error", err.Error())
	}
}

func (e *Executor) saveTrade(ctx context.Context, trade domain.Trade) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveTrade(ctx, trade); err != nil {
		e.log.Warn("failed to persist trade", "trade_id", trade.ID, "error", err.Error())
	}
}

func (e *Executor) publishOrderUpdate(ctx context.Context, order domain.Order) {
	if e.b == nil {
		return
	}
	payload, err := bus.MarshalOrderUpdate(bus.OrderUpdateMessage{
		OrderID:  order.ID,
		Symbol:   order.Symbol,
		Status:   string(order.Status),
		Filled:   order.FilledQuantity,
		AvgPrice: order.AveragePrice,
	})
	if err != nil {
		e.log.Error("failed to marshal order update", "order_id", order.ID, "error", err.Error())
		return
	}
	if err := e.b.Publish(ctx, bus.ChannelOrderUpdates, payload); err != nil {
		e.log.Error("failed to publish order update", "order_id", order.ID, "error", err.Error())
	}
}

func (e *Executor) publishAlert(ctx context.Context, severity, message string) {
	if e.b == nil {
		return
	}
	payload, err := bus.MarshalAlert(bus.AlertMessage{
		Severity:  severity,
		Component: component,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		e.log.Error("failed to marshal alert", "error", err.Error())
		return
	}
	if err := e.b.Publish(ctx, bus.ChannelAlerts, payload); err != nil {
		e.log.Error("failed to publish alert", "error", err.Error())
	}
}

// CancelAllOpenOrders is exposed so callers (including tests and the daily
// loss handler's documented behavior) can explicitly drive "cancel all open
// orders" independent of the polling goroutine's own terminal detection.
func (e *Executor) CancelAllOpenOrders(ctx context.Context, brokerOrderIDs []string) {
	for _, id := range brokerOrderIDs {
		if err := e.broker.Cancel(ctx, id); err != nil {
			e.log.Warn("failed to cancel order during halt", "broker_order_id", id, "error", err.Error())
		}
	}
}
