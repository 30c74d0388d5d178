package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/kosheduteam/signalengine/config"
	"github.com/kosheduteam/signalengine/internal/domain"
)

func testWeights() config.CMSWeights {
	return config.CMSWeights{Sentiment: 0.4, Volatility: 0.3, Trend: 0.2, Event: 0.1}
}

func flatBars(symbol string, n int, price float64, start time.Time) []domain.OHLCBar {
	bars := make([]domain.OHLCBar, n)
	for i := 0; i < n; i++ {
		bars[i] = domain.OHLCBar{
			Symbol:    symbol,
			Timestamp: start.Add(time.Duration(i) * 24 * time.Hour),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    1000,
		}
	}
	return bars
}

// TestRun_ZeroTradesOverFlatSeries is the literal scenario: 250 trading
// days with a perfectly flat price series (so the trend and volatility
// components never move the CMS score off zero) produce zero trades and an
// all-zero metrics block, with a persisted result carrying a generated ID.
func TestRun_ZeroTradesOverFlatSeries(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := flatBars("AAPL", 250, 100, start)

	cfg := domain.BacktestConfig{
		Symbol:               "AAPL",
		Start:                start,
		End:                  start.Add(400 * 24 * time.Hour),
		InitialCapital:       10000,
		PositionSizeFraction: 1.0,
		ThresholdBuy:         50,
		ThresholdSell:        50,
	}

	store := &recordingStore{}
	r := New(testWeights(), 100)
	result := r.Run(context.Background(), cfg, bars, nil, nil, store)

	if result.ID == "" {
		t.Fatal("expected a generated result ID")
	}
	if result.Status != domain.BacktestCompleted {
		t.Errorf("expected status completed, got %s", result.Status)
	}
	if len(result.Trades) != 0 {
		t.Fatalf("expected zero trades on a flat series, got %d", len(result.Trades))
	}

	m := result.Metrics
	if m.TotalReturn != 0 || m.Sharpe != 0 || m.MaxDrawdown != 0 || m.WinRate != 0 || m.TotalTrades != 0 || m.AvgDuration != 0 {
		t.Errorf("expected all-zero metrics for zero trades, got %+v", m)
	}
	if len(result.Equity) != 250 {
		t.Errorf("expected one equity point per bar, got %d", len(result.Equity))
	}
	if store.saved == nil {
		t.Fatal("expected the result to be persisted")
	}
	if store.saved.ID != result.ID {
		t.Errorf("persisted result ID mismatch: got %s want %s", store.saved.ID, result.ID)
	}
}

// TestRun_TrendReversalProducesRoundTripTrade builds a series that rises
// then falls, which should cross the (deliberately low) buy threshold on
// the way up and the sell threshold on the way down, producing a single
// closed round-trip trade with a populated entry/exit price and timestamp.
func TestRun_TrendReversalProducesRoundTripTrade(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var bars []domain.OHLCBar

	price := 100.0
	for i := 0; i < 60; i++ {
		bars = append(bars, domain.OHLCBar{Symbol: "AAPL", Timestamp: start.Add(time.Duration(i) * 24 * time.Hour), Open: price, High: price, Low: price, Close: price, Volume: 1000})
	}
	for i := 60; i < 100; i++ {
		price += 2
		bars = append(bars, domain.OHLCBar{Symbol: "AAPL", Timestamp: start.Add(time.Duration(i) * 24 * time.Hour), Open: price, High: price, Low: price, Close: price, Volume: 1000})
	}
	for i := 100; i < 140; i++ {
		price -= 2
		bars = append(bars, domain.OHLCBar{Symbol: "AAPL", Timestamp: start.Add(time.Duration(i) * 24 * time.Hour), Open: price, High: price, Low: price, Close: price, Volume: 1000})
	}

	cfg := domain.BacktestConfig{
		Symbol:               "AAPL",
		Start:                start,
		End:                  start.Add(200 * 24 * time.Hour),
		InitialCapital:       10000,
		PositionSizeFraction: 1.0,
		ThresholdBuy:         1,
		ThresholdSell:        1,
	}

	r := New(testWeights(), 100)
	result := r.Run(context.Background(), cfg, bars, nil, nil, nil)

	if len(result.Trades) == 0 {
		t.Fatal("expected the uptrend-then-downtrend to produce at least one round-trip trade")
	}
	for _, tr := range result.Trades {
		if tr.EntryPrice == 0 || tr.ExitPrice == 0 {
			t.Errorf("expected non-zero entry/exit prices, got %+v", tr)
		}
		if tr.EntryAt.IsZero() || tr.ExitAt.IsZero() {
			t.Errorf("expected non-zero entry/exit timestamps, got %+v", tr)
		}
		if !tr.ExitAt.After(tr.EntryAt) {
			t.Errorf("expected exit to follow entry, got entry=%s exit=%s", tr.EntryAt, tr.ExitAt)
		}
		if tr.Quantity <= 0 {
			t.Errorf("expected a positive quantity, got %v", tr.Quantity)
		}
	}
	if result.Metrics.TotalTrades != len(result.Trades) {
		t.Errorf("metrics total_trades %d does not match len(trades) %d", result.Metrics.TotalTrades, len(result.Trades))
	}
}

// TestRun_NoLookAhead verifies that feeding a sentiment observation dated
// after the replay window's end never influences any emitted trade: the
// same series replayed with and without a late, out-of-window sentiment
// spike must produce identical results.
func TestRun_NoLookAhead(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := flatBars("AAPL", 80, 100, start)

	cfg := domain.BacktestConfig{
		Symbol:               "AAPL",
		Start:                start,
		End:                  start.Add(80 * 24 * time.Hour),
		InitialCapital:       10000,
		PositionSizeFraction: 1.0,
		ThresholdBuy:         50,
		ThresholdSell:        50,
	}

	r := New(testWeights(), 100)
	baseline := r.Run(context.Background(), cfg, bars, nil, nil, nil)

	// A sentiment sample timestamped far beyond the last bar must not be
	// visible to any feature computed during the replay.
	future := []domain.Sentiment{{ArticleID: "late", Score: 1, Confidence: 1, Timestamp: start.Add(1000 * 24 * time.Hour)}}
	withFuture := r.Run(context.Background(), cfg, bars, future, nil, nil)

	if len(baseline.Trades) != len(withFuture.Trades) {
		t.Fatalf("a future-dated sentiment sample changed the trade count: %d vs %d", len(baseline.Trades), len(withFuture.Trades))
	}
	if baseline.Metrics.TotalReturn != withFuture.Metrics.TotalReturn {
		t.Errorf("a future-dated sentiment sample changed total_return: %v vs %v", baseline.Metrics.TotalReturn, withFuture.Metrics.TotalReturn)
	}
}

type recordingStore struct {
	saved *domain.BacktestResult
}

func (s *recordingStore) SaveBacktestResult(ctx context.Context, result domain.BacktestResult) error {
	s.saved = &result
	return nil
}
