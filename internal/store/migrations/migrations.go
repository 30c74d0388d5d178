// Package migrations holds the inline SQL schema for the relational store
// (§3), grounded on the teacher's internal/database.DB.RunMigrations
// pattern: an ordered slice of idempotent CREATE TABLE IF NOT EXISTS /
// CREATE INDEX IF NOT EXISTS statements, executed in order.
package migrations

// Statements is the ordered list of migration statements. Every table
// carries the uuid `id`, `created_at` columns described in SPEC_FULL's
// storage-layer parity note.
var Statements = []string{
	`CREATE TABLE IF NOT EXISTS articles (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		source VARCHAR(100) NOT NULL,
		published_at TIMESTAMPTZ NOT NULL,
		symbols TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at)`,

	`CREATE TABLE IF NOT EXISTS sentiment_scores (
		id UUID PRIMARY KEY,
		article_id UUID NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
		score DOUBLE PRECISION NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		keywords_positive TEXT[] NOT NULL DEFAULT '{}',
		keywords_negative TEXT[] NOT NULL DEFAULT '{}',
		timestamp TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sentiment_scores_article ON sentiment_scores(article_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sentiment_scores_timestamp ON sentiment_scores(timestamp)`,

	`CREATE TABLE IF NOT EXISTS events (
		id UUID PRIMARY KEY,
		article_id UUID NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
		event_type VARCHAR(30) NOT NULL,
		severity DOUBLE PRECISION NOT NULL,
		keywords TEXT[] NOT NULL DEFAULT '{}',
		high_priority BOOLEAN NOT NULL DEFAULT FALSE,
		timestamp TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_article ON events(article_id)`,
	`CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_events_high_priority ON events(high_priority)`,

	`CREATE TABLE IF NOT EXISTS prices (
		symbol VARCHAR(20) NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		open DOUBLE PRECISION NOT NULL,
		high DOUBLE PRECISION NOT NULL,
		low DOUBLE PRECISION NOT NULL,
		close DOUBLE PRECISION NOT NULL,
		volume DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (symbol, timestamp)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_prices_timestamp ON prices(timestamp)`,

	`CREATE TABLE IF NOT EXISTS indicators (
		symbol VARCHAR(20) NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		rsi DOUBLE PRECISION,
		macd_line DOUBLE PRECISION,
		macd_signal DOUBLE PRECISION,
		macd_histogram DOUBLE PRECISION,
		bollinger_upper DOUBLE PRECISION,
		bollinger_middle DOUBLE PRECISION,
		bollinger_lower DOUBLE PRECISION,
		sma_20 DOUBLE PRECISION,
		sma_50 DOUBLE PRECISION,
		ema_12 DOUBLE PRECISION,
		ema_26 DOUBLE PRECISION,
		atr DOUBLE PRECISION,
		rsi_signal VARCHAR(20),
		macd_signal_class VARCHAR(20),
		bollinger_signal VARCHAR(20),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (symbol, timestamp)
	)`,

	`CREATE TABLE IF NOT EXISTS regimes (
		symbol VARCHAR(20) NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		regime VARCHAR(10) NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		bull_score DOUBLE PRECISION NOT NULL,
		bear_score DOUBLE PRECISION NOT NULL,
		neutral_score DOUBLE PRECISION NOT NULL,
		panic_score DOUBLE PRECISION NOT NULL,
		sentiment_index DOUBLE PRECISION NOT NULL,
		volatility_index DOUBLE PRECISION NOT NULL,
		trend_strength DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (symbol, timestamp)
	)`,

	`CREATE TABLE IF NOT EXISTS cms_results (
		symbol VARCHAR(20) NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		cms_score DOUBLE PRECISION NOT NULL,
		signal_class VARCHAR(10) NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		dominant_component VARCHAR(20) NOT NULL,
		explanation TEXT NOT NULL,
		contributions JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (symbol, timestamp)
	)`,

	`CREATE TABLE IF NOT EXISTS signals (
		id UUID PRIMARY KEY,
		symbol VARCHAR(20) NOT NULL,
		signal_class VARCHAR(10) NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		cms_score DOUBLE PRECISION NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		position_size JSONB,
		reasons TEXT[] NOT NULL DEFAULT '{}',
		explanation TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_signals_symbol_timestamp ON signals(symbol, timestamp DESC)`,

	`CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		broker_order_id VARCHAR(100),
		symbol VARCHAR(20) NOT NULL,
		side VARCHAR(4) NOT NULL,
		order_type VARCHAR(10) NOT NULL,
		quantity DOUBLE PRECISION NOT NULL,
		limit_price DOUBLE PRECISION,
		status VARCHAR(20) NOT NULL,
		filled_quantity DOUBLE PRECISION NOT NULL DEFAULT 0,
		average_price DOUBLE PRECISION NOT NULL DEFAULT 0,
		source_signal_id UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders(symbol)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,

	`CREATE TABLE IF NOT EXISTS positions (
		id UUID PRIMARY KEY,
		symbol VARCHAR(20) NOT NULL,
		side VARCHAR(4) NOT NULL,
		entry_price DOUBLE PRECISION NOT NULL,
		quantity DOUBLE PRECISION NOT NULL,
		initial_stop DOUBLE PRECISION,
		current_stop DOUBLE PRECISION,
		take_profit DOUBLE PRECISION,
		open BOOLEAN NOT NULL DEFAULT TRUE,
		entry_at TIMESTAMPTZ NOT NULL,
		exit_at TIMESTAMPTZ,
		exit_price DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_positions_symbol_open ON positions(symbol, open)`,

	`CREATE TABLE IF NOT EXISTS trades (
		id UUID PRIMARY KEY,
		symbol VARCHAR(20) NOT NULL,
		side VARCHAR(4) NOT NULL,
		entry_price DOUBLE PRECISION NOT NULL,
		exit_price DOUBLE PRECISION NOT NULL,
		quantity DOUBLE PRECISION NOT NULL,
		entry_at TIMESTAMPTZ NOT NULL,
		exit_at TIMESTAMPTZ NOT NULL,
		pnl DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_exit_at ON trades(exit_at)`,

	`CREATE TABLE IF NOT EXISTS backtest_results (
		id UUID PRIMARY KEY,
		symbol VARCHAR(20) NOT NULL,
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ NOT NULL,
		initial_capital DOUBLE PRECISION NOT NULL,
		position_size_fraction DOUBLE PRECISION NOT NULL,
		threshold_buy DOUBLE PRECISION NOT NULL,
		threshold_sell DOUBLE PRECISION NOT NULL,
		status VARCHAR(20) NOT NULL,
		message TEXT,
		trades JSONB NOT NULL DEFAULT '[]',
		equity_curve JSONB NOT NULL DEFAULT '[]',
		total_return DOUBLE PRECISION,
		sharpe DOUBLE PRECISION,
		max_drawdown DOUBLE PRECISION,
		win_rate DOUBLE PRECISION,
		total_trades INT,
		avg_duration_hours DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_backtest_results_symbol ON backtest_results(symbol)`,
}
