package postgres

import (
	"context"

	"github.com/kosheduteam/signalengine/internal/domain"
)

// SavePosition upserts a position by ID, satisfying internal/executor.Store
// — called when a position opens and when it closes.
func (db *DB) SavePosition(ctx context.Context, p domain.Position) error {
	const query = `
		INSERT INTO positions (id, symbol, side, entry_price, quantity, initial_stop, current_stop, take_profit, open, entry_at, exit_at, exit_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			current_stop = EXCLUDED.current_stop, take_profit = EXCLUDED.take_profit,
			open = EXCLUDED.open, exit_at = EXCLUDED.exit_at, exit_price = EXCLUDED.exit_price
	`
	_, err := db.Pool.Exec(ctx, query,
		p.ID, p.Symbol, string(p.Side), p.EntryPrice, p.Quantity, p.InitialStop, p.CurrentStop,
		p.TakeProfit, p.Open, p.EntryAt, p.ExitAt, p.ExitPrice,
	)
	return err
}
