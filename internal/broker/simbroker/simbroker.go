// Package simbroker is the simulation-mode broker.Broker (§6: "Simulation
// mode returns a synthetic identifier when no broker is configured"),
// filling every order immediately at a caller-supplied reference price.
// Grounded on the teacher's simulation/paper-trading code paths scattered
// through internal/order and internal/bot, consolidated here behind the
// abstract broker.Broker interface.
package simbroker

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/kosheduteam/signalengine/internal/broker"
	"github.com/kosheduteam/signalengine/internal/domain"
)

// PriceOracle supplies the current reference price for symbol, used to fill
// simulated market orders. Typically backed by the latest price bar seen
// on the bus.
type PriceOracle func(symbol string) (float64, error)

type simOrder struct {
	req    broker.PlaceOrderRequest
	status broker.OrderStatusResult
}

// Broker is a synthetic, always-fills broker for simulation mode and
// backtesting-adjacent manual testing.
type Broker struct {
	mu     sync.Mutex
	orders map[string]*simOrder
	prices PriceOracle
}

// New creates a simulation Broker. prices supplies the fill price for
// market orders; if nil, market orders fill at 0 (callers should always
// supply a real oracle in practice).
func New(prices PriceOracle) *Broker {
	return &Broker{orders: make(map[string]*simOrder), prices: prices}
}

// PlaceOrder synthesizes an order ID and fills the order immediately at the
// request's limit price (if set) or the oracle's current price.
func (b *Broker) PlaceOrder(ctx context.Context, req broker.PlaceOrderRequest) (broker.PlaceOrderResult, error) {
	fillPrice := 0.0
	if req.LimitPrice != nil {
		fillPrice = *req.LimitPrice
	} else if b.prices != nil {
		if p, err := b.prices(req.Symbol); err == nil {
			fillPrice = p
		}
	}

	id := uuid.NewString()

	b.mu.Lock()
	b.orders[id] = &simOrder{
		req: req,
		status: broker.OrderStatusResult{
			Status:         domain.OrderFilled,
			FilledQuantity: req.Quantity,
			AveragePrice:   fillPrice,
		},
	}
	b.mu.Unlock()

	return broker.PlaceOrderResult{BrokerOrderID: id}, nil
}

// OrderStatus returns the (always-terminal) status of a simulated order.
func (b *Broker) OrderStatus(ctx context.Context, brokerOrderID string) (broker.OrderStatusResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[brokerOrderID]
	if !ok {
		return broker.OrderStatusResult{}, apperrNotFound(brokerOrderID)
	}
	return o.status, nil
}

// Cancel is a no-op in simulation mode: every order has already filled by
// the time it could be cancelled.
func (b *Broker) Cancel(ctx context.Context, brokerOrderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.orders[brokerOrderID]; !ok {
		return apperrNotFound(brokerOrderID)
	}
	return nil
}

// Positions always returns empty: the simulation broker does not track
// open positions (the executor's own Position records are authoritative in
// simulation mode).
func (b *Broker) Positions(ctx context.Context) ([]broker.Position, error) {
	return nil, nil
}

// Margins reports unlimited availability, since simulation mode never
// rejects on margin.
func (b *Broker) Margins(ctx context.Context, symbol string) (broker.Margin, error) {
	return broker.Margin{Available: 1e18, Required: 0}, nil
}
