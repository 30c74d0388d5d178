// Package store defines the relational persistence surface (§3/§6): the
// full Store interface every durable entity flows through, implemented by
// internal/store/postgres. Individual components (aggregator, executor,
// backtest) each declare their own narrower Store interface and are
// satisfied structurally by postgres.DB — this package's interface exists
// for the collaborators (internal/api, cmd/signalengine) that need the
// whole surface in one place.
package store

import (
	"context"
	"time"

	"github.com/kosheduteam/signalengine/internal/domain"
)

// Store is the complete relational persistence surface spanning every
// entity named in §3: articles and their derived sentiment/events, OHLC
// bars and derived indicators, regime snapshots, CMS results, trading
// signals, orders, positions, trades, and backtest results.
type Store interface {
	HealthCheck(ctx context.Context) error

	SaveArticle(ctx context.Context, article domain.Article) error
	SaveSentiment(ctx context.Context, sentiment domain.Sentiment) error
	SaveEvent(ctx context.Context, event domain.Event) error
	SaveBar(ctx context.Context, bar domain.OHLCBar) error
	SaveIndicatorSnapshot(ctx context.Context, snapshot domain.IndicatorSnapshot) error
	SaveRegimeSnapshot(ctx context.Context, snapshot domain.RegimeSnapshot) error
	SaveCMSResult(ctx context.Context, result domain.CMSResult) error

	SaveSignal(ctx context.Context, signal domain.TradingSignal) error
	CurrentSignal(ctx context.Context, symbol string) (domain.TradingSignal, error)
	SignalHistory(ctx context.Context, symbol string, start, end time.Time, limit int) ([]domain.TradingSignal, error)

	SaveOrder(ctx context.Context, order domain.Order) error
	Orders(ctx context.Context, status string, limit int) ([]domain.Order, error)

	SavePosition(ctx context.Context, position domain.Position) error
	SaveTrade(ctx context.Context, trade domain.Trade) error

	SaveBacktestResult(ctx context.Context, result domain.BacktestResult) error
	BacktestResult(ctx context.Context, id string) (domain.BacktestResult, error)

	// BarsRange, SentimentsRange and EventsRange replay a symbol's
	// already-ingested history back out, in ascending timestamp order,
	// for internal/api's POST /backtest handler to feed into
	// internal/backtest.Runner.Run.
	BarsRange(ctx context.Context, symbol string, start, end time.Time) ([]domain.OHLCBar, error)
	SentimentsRange(ctx context.Context, symbol string, start, end time.Time) ([]domain.Sentiment, error)
	EventsRange(ctx context.Context, symbol string, start, end time.Time) ([]domain.Event, error)
}
