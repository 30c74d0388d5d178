package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kosheduteam/signalengine/internal/domain"
)

// SaveSignal inserts an emitted trading signal, satisfying
// internal/aggregator.Store.
func (db *DB) SaveSignal(ctx context.Context, signal domain.TradingSignal) error {
	positionSize, err := json.Marshal(signal.PositionSize)
	if err != nil {
		positionSize = []byte("{}")
	}

	const query = `
		INSERT INTO signals (id, symbol, signal_class, price, cms_score, confidence, position_size, reasons, explanation, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = db.Pool.Exec(ctx, query,
		signal.ID, signal.Symbol, string(signal.SignalClass), signal.Price, signal.CMSScore,
		signal.Confidence, positionSize, signal.Reasons, signal.Explanation, signal.Timestamp,
	)
	return err
}

// CurrentSignal returns the most recently emitted signal for symbol.
func (db *DB) CurrentSignal(ctx context.Context, symbol string) (domain.TradingSignal, error) {
	const query = `
		SELECT id, symbol, signal_class, price, cms_score, confidence, position_size, reasons, explanation, timestamp
		FROM signals
		WHERE symbol = $1
		ORDER BY timestamp DESC
		LIMIT 1
	`
	row := db.Pool.QueryRow(ctx, query, symbol)
	return scanSignal(row)
}

// SignalHistory returns up to limit signals for symbol between start and
// end, most recent first.
func (db *DB) SignalHistory(ctx context.Context, symbol string, start, end time.Time, limit int) ([]domain.TradingSignal, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
		SELECT id, symbol, signal_class, price, cms_score, confidence, position_size, reasons, explanation, timestamp
		FROM signals
		WHERE symbol = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp DESC
		LIMIT $4
	`
	rows, err := db.Pool.Query(ctx, query, symbol, start, end, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TradingSignal
	for rows.Next() {
		signal, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, signal)
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSignal(row scannable) (domain.TradingSignal, error) {
	var signal domain.TradingSignal
	var signalClass string
	var positionSize []byte

	err := row.Scan(
		&signal.ID, &signal.Symbol, &signalClass, &signal.Price, &signal.CMSScore,
		&signal.Confidence, &positionSize, &signal.Reasons, &signal.Explanation, &signal.Timestamp,
	)
	if err != nil {
		return domain.TradingSignal{}, err
	}
	signal.SignalClass = domain.SignalClass(signalClass)
	_ = json.Unmarshal(positionSize, &signal.PositionSize)
	return signal, nil
}
