package postgres

import (
	"context"
	"time"

	"github.com/kosheduteam/signalengine/internal/domain"
)

// BarsRange returns a symbol's OHLC bars in [start, end], ascending by
// timestamp, satisfying internal/store.Store — the data feed for
// POST /backtest.
func (db *DB) BarsRange(ctx context.Context, symbol string, start, end time.Time) ([]domain.OHLCBar, error) {
	const query = `
		SELECT symbol, timestamp, open, high, low, close, volume
		FROM prices
		WHERE symbol = $1 AND timestamp BETWEEN $2 AND $3
		ORDER BY timestamp ASC
	`
	rows, err := db.Pool.Query(ctx, query, symbol, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []domain.OHLCBar
	for rows.Next() {
		var b domain.OHLCBar
		if err := rows.Scan(&b.Symbol, &b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// SentimentsRange returns the sentiment scores derived from articles
// tagged with symbol, in [start, end]. sentiment_scores has no symbol
// column of its own — it inherits the tagging of its parent article —
// so this joins through articles.symbols the same way the aggregator's
// ingestion path resolves which symbols a sentiment applies to.
func (db *DB) SentimentsRange(ctx context.Context, symbol string, start, end time.Time) ([]domain.Sentiment, error) {
	const query = `
		SELECT s.article_id, s.score, s.confidence, s.keywords_positive, s.keywords_negative, s.timestamp
		FROM sentiment_scores s
		JOIN articles a ON a.id = s.article_id
		WHERE $1 = ANY(a.symbols) AND s.timestamp BETWEEN $2 AND $3
		ORDER BY s.timestamp ASC
	`
	rows, err := db.Pool.Query(ctx, query, symbol, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Sentiment
	for rows.Next() {
		var s domain.Sentiment
		if err := rows.Scan(&s.ArticleID, &s.Score, &s.Confidence, &s.KeywordsPositive, &s.KeywordsNegative, &s.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// EventsRange returns the broker/news events derived from articles tagged
// with symbol, in [start, end], joined the same way as SentimentsRange.
func (db *DB) EventsRange(ctx context.Context, symbol string, start, end time.Time) ([]domain.Event, error) {
	const query = `
		SELECT e.id, e.article_id, e.event_type, e.severity, e.keywords, e.timestamp, e.high_priority
		FROM events e
		JOIN articles a ON a.id = e.article_id
		WHERE $1 = ANY(a.symbols) AND e.timestamp BETWEEN $2 AND $3
		ORDER BY e.timestamp ASC
	`
	rows, err := db.Pool.Query(ctx, query, symbol, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		var eventType string
		if err := rows.Scan(&e.ID, &e.ArticleID, &eventType, &e.Severity, &e.Keywords, &e.Timestamp, &e.HighPriority); err != nil {
			return nil, err
		}
		e.EventType = domain.EventType(eventType)
		out = append(out, e)
	}
	return out, rows.Err()
}
