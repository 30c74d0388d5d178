package postgres

import (
	"context"
	"encoding/json"

	"github.com/kosheduteam/signalengine/internal/domain"
)

// SaveArticle inserts an article, ignoring a duplicate ID (articles are
// immutable once ingested).
func (db *DB) SaveArticle(ctx context.Context, article domain.Article) error {
	const query = `
		INSERT INTO articles (id, title, body, source, published_at, symbols)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := db.Pool.Exec(ctx, query, article.ID, article.Title, article.Body, article.Source, article.PublishedAt, article.Symbols)
	return err
}

// SaveSentiment inserts one article's sentiment score.
func (db *DB) SaveSentiment(ctx context.Context, sentiment domain.Sentiment) error {
	const query = `
		INSERT INTO sentiment_scores (id, article_id, score, confidence, keywords_positive, keywords_negative, timestamp)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
	`
	_, err := db.Pool.Exec(ctx, query, sentiment.ArticleID, sentiment.Score, sentiment.Confidence, sentiment.KeywordsPositive, sentiment.KeywordsNegative, sentiment.Timestamp)
	return err
}

// SaveEvent inserts one extracted event.
func (db *DB) SaveEvent(ctx context.Context, event domain.Event) error {
	const query = `
		INSERT INTO events (id, article_id, event_type, severity, keywords, high_priority, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := db.Pool.Exec(ctx, query, event.ID, event.ArticleID, string(event.EventType), event.Severity, event.Keywords, event.HighPriority, event.Timestamp)
	return err
}

// SaveBar upserts one OHLC bar.
func (db *DB) SaveBar(ctx context.Context, bar domain.OHLCBar) error {
	const query = `
		INSERT INTO prices (symbol, timestamp, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, timestamp) DO UPDATE SET
			open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low,
			close = EXCLUDED.close, volume = EXCLUDED.volume
	`
	_, err := db.Pool.Exec(ctx, query, bar.Symbol, bar.Timestamp, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	return err
}

// SaveIndicatorSnapshot upserts one symbol/timestamp's derived indicator set.
func (db *DB) SaveIndicatorSnapshot(ctx context.Context, s domain.IndicatorSnapshot) error {
	const query = `
		INSERT INTO indicators (
			symbol, timestamp, rsi, macd_line, macd_signal, macd_histogram,
			bollinger_upper, bollinger_middle, bollinger_lower,
			sma_20, sma_50, ema_12, ema_26, atr,
			rsi_signal, macd_signal_class, bollinger_signal
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (symbol, timestamp) DO UPDATE SET
			rsi = EXCLUDED.rsi, macd_line = EXCLUDED.macd_line, macd_signal = EXCLUDED.macd_signal,
			macd_histogram = EXCLUDED.macd_histogram, bollinger_upper = EXCLUDED.bollinger_upper,
			bollinger_middle = EXCLUDED.bollinger_middle, bollinger_lower = EXCLUDED.bollinger_lower,
			sma_20 = EXCLUDED.sma_20, sma_50 = EXCLUDED.sma_50, ema_12 = EXCLUDED.ema_12,
			ema_26 = EXCLUDED.ema_26, atr = EXCLUDED.atr, rsi_signal = EXCLUDED.rsi_signal,
			macd_signal_class = EXCLUDED.macd_signal_class, bollinger_signal = EXCLUDED.bollinger_signal
	`
	_, err := db.Pool.Exec(ctx, query,
		s.Symbol, s.Timestamp, s.RSI, s.MACD.Line, s.MACD.Signal, s.MACD.Histogram,
		s.Bollinger.Upper, s.Bollinger.Middle, s.Bollinger.Lower,
		s.SMA20, s.SMA50, s.EMA12, s.EMA26, s.ATR,
		string(s.RSISignal), string(s.MACDSignal), string(s.BollingerSignal),
	)
	return err
}

// SaveRegimeSnapshot upserts one symbol/timestamp's regime classification.
func (db *DB) SaveRegimeSnapshot(ctx context.Context, s domain.RegimeSnapshot) error {
	const query = `
		INSERT INTO regimes (
			symbol, timestamp, regime, confidence, bull_score, bear_score,
			neutral_score, panic_score, sentiment_index, volatility_index, trend_strength
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (symbol, timestamp) DO UPDATE SET
			regime = EXCLUDED.regime, confidence = EXCLUDED.confidence,
			bull_score = EXCLUDED.bull_score, bear_score = EXCLUDED.bear_score,
			neutral_score = EXCLUDED.neutral_score, panic_score = EXCLUDED.panic_score,
			sentiment_index = EXCLUDED.sentiment_index, volatility_index = EXCLUDED.volatility_index,
			trend_strength = EXCLUDED.trend_strength
	`
	_, err := db.Pool.Exec(ctx, query,
		s.Symbol, s.Timestamp, string(s.Regime), s.Confidence,
		s.Components.Bull, s.Components.Bear, s.Components.Neutral, s.Components.Panic,
		s.Inputs.SentimentIndex, s.Inputs.VolatilityIndex, s.Inputs.TrendStrength,
	)
	return err
}

// SaveCMSResult upserts one symbol/timestamp's fused CMS output, storing
// the contribution breakdown as JSONB for explainability (§4.E/§8.8).
func (db *DB) SaveCMSResult(ctx context.Context, r domain.CMSResult) error {
	contributions, err := json.Marshal(r.Contributions)
	if err != nil {
		contributions = []byte("[]")
	}

	const query = `
		INSERT INTO cms_results (symbol, timestamp, cms_score, signal_class, confidence, dominant_component, explanation, contributions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, timestamp) DO UPDATE SET
			cms_score = EXCLUDED.cms_score, signal_class = EXCLUDED.signal_class,
			confidence = EXCLUDED.confidence, dominant_component = EXCLUDED.dominant_component,
			explanation = EXCLUDED.explanation, contributions = EXCLUDED.contributions
	`
	_, err = db.Pool.Exec(ctx, query, r.Symbol, r.Timestamp, r.CMSScore, string(r.SignalClass), r.Confidence, r.DominantName, r.Explanation, contributions)
	return err
}
