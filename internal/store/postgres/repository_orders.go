package postgres

import (
	"context"

	"github.com/kosheduteam/signalengine/internal/domain"
)

// SaveOrder upserts an order by ID, satisfying internal/executor.Store —
// the executor calls this both on placement and on every status
// transition, so it must update in place rather than insert-only.
func (db *DB) SaveOrder(ctx context.Context, order domain.Order) error {
	const query = `
		INSERT INTO orders (
			id, broker_order_id, symbol, side, order_type, quantity, limit_price,
			status, filled_quantity, average_price, source_signal_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			broker_order_id = EXCLUDED.broker_order_id, status = EXCLUDED.status,
			filled_quantity = EXCLUDED.filled_quantity, average_price = EXCLUDED.average_price,
			updated_at = EXCLUDED.updated_at
	`
	_, err := db.Pool.Exec(ctx, query,
		order.ID, order.BrokerOrderID, order.Symbol, string(order.Side), string(order.Type),
		order.Quantity, order.LimitPrice, string(order.Status), order.FilledQuantity,
		order.AveragePrice, nullableID(order.SourceSignalID), order.CreatedAt, order.UpdatedAt,
	)
	return err
}

// Orders returns up to limit orders, optionally filtered by status, most
// recent first.
func (db *DB) Orders(ctx context.Context, status string, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, broker_order_id, symbol, side, order_type, quantity, limit_price,
		       status, filled_quantity, average_price, COALESCE(source_signal_id::text, ''), created_at, updated_at
		FROM orders
	`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2`
		args = append(args, status, limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		var o domain.Order
		var side, orderType, orderStatus string
		if err := rows.Scan(
			&o.ID, &o.BrokerOrderID, &o.Symbol, &side, &orderType, &o.Quantity, &o.LimitPrice,
			&orderStatus, &o.FilledQuantity, &o.AveragePrice, &o.SourceSignalID, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, err
		}
		o.Side = domain.OrderSide(side)
		o.Type = domain.OrderType(orderType)
		o.Status = domain.OrderStatus(orderStatus)
		out = append(out, o)
	}
	return out, rows.Err()
}

// nullableID returns nil for an empty string so the column stores SQL NULL
// instead of an empty-string UUID, which postgres would reject.
func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}
