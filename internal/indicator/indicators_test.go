package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/kosheduteam/signalengine/internal/domain"
)

func bar(symbol string, t int, close float64) domain.OHLCBar {
	return domain.OHLCBar{
		Symbol:    symbol,
		Timestamp: time.Unix(int64(t)*60, 0).UTC(),
		Open:      close,
		High:      close + 0.01,
		Low:       close - 0.01,
		Close:     close,
		Volume:    100,
	}
}

func flatBars(n int, price float64) []domain.OHLCBar {
	bars := make([]domain.OHLCBar, n)
	for i := 0; i < n; i++ {
		bars[i] = bar("TEST", i, price)
	}
	return bars
}

func TestSnapshot_InsufficientData(t *testing.T) {
	bars := flatBars(10, 100)
	_, err := Snapshot("TEST", bars)
	if err == nil {
		t.Fatal("expected InsufficientData error for fewer than 50 bars")
	}
}

func TestSnapshot_InvalidBar(t *testing.T) {
	bars := flatBars(60, 100)
	bars[30].High = 50 // violates high >= close
	_, err := Snapshot("TEST", bars)
	if err == nil {
		t.Fatal("expected InvalidBar error")
	}
}

// TestSnapshot_Overbought grounds S3: a monotonically rising price series
// drives avgLoss to zero, which RSI defines as 100 — strictly > 70, so the
// derived technical signal must be OVERBOUGHT.
func TestSnapshot_Overbought(t *testing.T) {
	bars := make([]domain.OHLCBar, 100)
	price := 100.0
	for i := range bars {
		bars[i] = bar("TEST", i, price)
		price += 1
	}

	snap, err := Snapshot("TEST", bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.RSISignal != domain.SignalOverbought {
		t.Errorf("expected OVERBOUGHT, got %s (rsi=%.2f)", snap.RSISignal, snap.RSI)
	}
}

func TestSnapshot_FlatMarketIsNeutral(t *testing.T) {
	bars := flatBars(100, 100)
	snap, err := Snapshot("TEST", bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.RSI != 50.0 {
		t.Errorf("expected neutral RSI 50 on flat market, got %.2f", snap.RSI)
	}
	if snap.MACDSignal != domain.SignalNeutral {
		t.Errorf("expected NEUTRAL macd signal on flat market, got %s", snap.MACDSignal)
	}
	if snap.BollingerSignal != domain.SignalNeutral {
		t.Errorf("expected NEUTRAL bollinger signal on flat market, got %s", snap.BollingerSignal)
	}
}

func TestSMA(t *testing.T) {
	bars := []domain.OHLCBar{
		bar("T", 0, 1), bar("T", 1, 2), bar("T", 2, 3), bar("T", 3, 4),
	}
	got := SMA(bars, 2)
	want := 3.5 // avg of last 2 closes: (3+4)/2
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("SMA = %v, want %v", got, want)
	}
}

func TestATR_FlatMarketIsNearZero(t *testing.T) {
	bars := flatBars(30, 100)
	atr := ATR(bars, 14)
	if atr > 0.05 {
		t.Errorf("expected near-zero ATR on flat-range bars, got %v", atr)
	}
}

func TestBollingerBands_FlatMarket(t *testing.T) {
	bars := flatBars(30, 100)
	bb := BollingerBands(bars, 20, 2.0)
	if bb.Middle != 100 {
		t.Errorf("expected middle band 100, got %v", bb.Middle)
	}
	if bb.Upper != bb.Middle || bb.Lower != bb.Middle {
		t.Errorf("expected zero-width bands on a flat series, got %+v", bb)
	}
}
