package postgres

import (
	"context"

	"github.com/kosheduteam/signalengine/internal/domain"
)

// SaveTrade inserts a closed round-trip trade, satisfying
// internal/executor.Store (live trades) and internal/backtest.Store
// (simulated trades, persisted as part of a BacktestResult's JSONB payload
// rather than individually — see SaveBacktestResult).
func (db *DB) SaveTrade(ctx context.Context, trade domain.Trade) error {
	const query = `
		INSERT INTO trades (id, symbol, side, entry_price, exit_price, quantity, entry_at, exit_at, pnl)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := db.Pool.Exec(ctx, query, trade.ID, trade.Symbol, string(trade.Side), trade.EntryPrice, trade.ExitPrice, trade.Quantity, trade.EntryAt, trade.ExitAt, trade.PnL)
	return err
}
