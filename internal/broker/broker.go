// Package broker defines the abstract order-execution collaborator (§6):
// place/status/cancel/positions/margins, the same five operations the
// executor (§4.G) drives through a circuit breaker and retrier. Two
// implementations are provided: simbroker (simulation mode, synthetic
// order IDs) and restbroker (a real HTTP broker, request-signed).
package broker

import (
	"context"

	"github.com/kosheduteam/signalengine/internal/domain"
)

// PlaceOrderRequest is the executor's order placement request (§4.G: MARKET
// unless the signal carries a limit price).
type PlaceOrderRequest struct {
	Symbol     string
	Side       domain.OrderSide
	Type       domain.OrderType
	Quantity   float64
	LimitPrice *float64
}

// PlaceOrderResult carries the broker's assigned order identifier.
type PlaceOrderResult struct {
	BrokerOrderID string
}

// OrderStatusResult is the broker's current view of a previously placed
// order, polled by the executor until terminal (§4.G).
type OrderStatusResult struct {
	Status         domain.OrderStatus
	FilledQuantity float64
	AveragePrice   float64
}

// Position is the broker's view of one open position.
type Position struct {
	Symbol   string
	Side     domain.OrderSide
	Quantity float64
	EntryPrice float64
}

// Margin is the broker's margin requirement/availability for a symbol.
type Margin struct {
	Available float64
	Required  float64
}

// Broker is the abstract order-execution collaborator (§6).
type Broker interface {
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (PlaceOrderResult, error)
	OrderStatus(ctx context.Context, brokerOrderID string) (OrderStatusResult, error)
	Cancel(ctx context.Context, brokerOrderID string) error
	Positions(ctx context.Context) ([]Position, error)
	Margins(ctx context.Context, symbol string) (Margin, error)
}
