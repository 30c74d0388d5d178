// Package indicator is the pure, stateless indicator engine (§4.A): an
// ordered OHLC sequence of length n for one symbol goes in, the full
// indicator snapshot defined in §3 comes out. No I/O, no goroutines — every
// function here is safe to call concurrently from any number of symbol
// workers.
package indicator

import (
	"math"

	"github.com/kosheduteam/signalengine/internal/domain"
)

const minBars = 50

// ============================================================================
// MOVING AVERAGES
// ============================================================================

// SMA computes the simple moving average of the last `period` closes.
func SMA(bars []domain.OHLCBar, period int) float64 {
	if len(bars) < period {
		return 0
	}
	sum := 0.0
	start := len(bars) - period
	for i := start; i < len(bars); i++ {
		sum += bars[i].Close
	}
	return sum / float64(period)
}

// EMA computes the exponential moving average over the full bar sequence,
// seeded with the SMA of the first `period` closes.
func EMA(bars []domain.OHLCBar, period int) float64 {
	if len(bars) < period {
		return 0
	}
	multiplier := 2.0 / float64(period+1)
	ema := SMA(bars[:period], period)
	for i := period; i < len(bars); i++ {
		ema = (bars[i].Close * multiplier) + (ema * (1 - multiplier))
	}
	return ema
}

// emaSeries returns the EMA value at every index from `period-1` onward,
// used internally to build the MACD signal line from real history rather
// than a one-shot approximation.
func emaSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) < period {
		return out
	}
	multiplier := 2.0 / float64(period+1)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	ema := sum / float64(period)
	out[period-1] = ema
	for i := period; i < len(values); i++ {
		ema = (values[i] * multiplier) + (ema * (1 - multiplier))
		out[i] = ema
	}
	return out
}

// ============================================================================
// RSI — Wilder smoothing, period 14
// ============================================================================

// RSI computes the Relative Strength Index using Wilder's smoothing method
// (§4.A: "RSI period 14 using Wilder smoothing").
func RSI(bars []domain.OHLCBar, period int) float64 {
	if len(bars) < period+1 {
		return 50.0
	}

	gains := 0.0
	losses := 0.0
	start := len(bars) - period - 1

	for i := start + 1; i <= start+period; i++ {
		change := bars[i].Close - bars[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	for i := start + period + 1; i < len(bars); i++ {
		change := bars[i].Close - bars[i-1].Close
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0
		}
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// rsiSignal classifies RSI per §4.A.
func rsiSignal(rsi float64) domain.TechnicalSignal {
	switch {
	case rsi > 70:
		return domain.SignalOverbought
	case rsi < 30:
		return domain.SignalOversold
	default:
		return domain.SignalNeutral
	}
}

// ============================================================================
// MACD — 12/26/9, real EMA-of-MACD-history signal line
// ============================================================================

// MACD computes the MACD line, signal line, and histogram using a real
// EMA(signalPeriod) over the MACD-line history, not an approximation.
func MACD(bars []domain.OHLCBar, fastPeriod, slowPeriod, signalPeriod int) domain.MACDValues {
	if len(bars) < slowPeriod+signalPeriod {
		return domain.MACDValues{}
	}

	macdLine := make([]float64, 0, len(bars)-slowPeriod+1)
	for i := slowPeriod; i <= len(bars); i++ {
		window := bars[:i]
		fast := EMA(window, fastPeriod)
		slow := EMA(window, slowPeriod)
		macdLine = append(macdLine, fast-slow)
	}

	signalSeries := emaSeries(macdLine, signalPeriod)

	line := macdLine[len(macdLine)-1]
	signal := signalSeries[len(signalSeries)-1]

	return domain.MACDValues{
		Line:      line,
		Signal:    signal,
		Histogram: line - signal,
	}
}

// macdSignal classifies the MACD histogram per §4.A.
func macdSignal(histogram float64) domain.TechnicalSignal {
	switch {
	case histogram > 0:
		return domain.SignalBullishCross
	case histogram < 0:
		return domain.SignalBearishCross
	default:
		return domain.SignalNeutral
	}
}

// ============================================================================
// BOLLINGER BANDS — 20, 2 standard deviations
// ============================================================================

// BollingerBands computes the {upper, middle, lower} band triple.
func BollingerBands(bars []domain.OHLCBar, period int, stdDevMultiplier float64) domain.BollingerValues {
	if len(bars) < period {
		return domain.BollingerValues{}
	}

	middle := SMA(bars, period)

	start := len(bars) - period
	variance := 0.0
	for i := start; i < len(bars); i++ {
		diff := bars[i].Close - middle
		variance += diff * diff
	}
	variance /= float64(period)
	stdDev := math.Sqrt(variance)

	return domain.BollingerValues{
		Upper:  middle + stdDevMultiplier*stdDev,
		Middle: middle,
		Lower:  middle - stdDevMultiplier*stdDev,
	}
}

// bollingerSignal classifies the close against the bands per §4.A.
func bollingerSignal(close float64, bb domain.BollingerValues) domain.TechnicalSignal {
	switch {
	case close > bb.Upper:
		return domain.SignalUpperBreach
	case close < bb.Lower:
		return domain.SignalLowerBreach
	default:
		return domain.SignalNeutral
	}
}

// ============================================================================
// ATR — true range, period 14
// ============================================================================

// ATR computes the Average True Range using the true-range formula with
// previous close (§4.A), seeded with the mean of the first `period` true
// ranges and Wilder-smoothed over the rest.
func ATR(bars []domain.OHLCBar, period int) float64 {
	if len(bars) < period+1 {
		return 0
	}

	trueRanges := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		hl := bars[i].High - bars[i].Low
		hc := math.Abs(bars[i].High - bars[i-1].Close)
		lc := math.Abs(bars[i].Low - bars[i-1].Close)
		trueRanges = append(trueRanges, math.Max(hl, math.Max(hc, lc)))
	}

	atr := 0.0
	for i := 0; i < period; i++ {
		atr += trueRanges[i]
	}
	atr /= float64(period)

	for i := period; i < len(trueRanges); i++ {
		atr = (atr*float64(period-1) + trueRanges[i]) / float64(period)
	}

	return atr
}

// ============================================================================
// SNAPSHOT
// ============================================================================

// Snapshot computes the full indicator snapshot for a symbol's bar sequence.
// Fails with ErrInsufficientData if len(bars) < 50, or ErrInvalidBar if any
// bar violates the OHLC invariants (§3).
func Snapshot(symbol string, bars []domain.OHLCBar) (domain.IndicatorSnapshot, error) {
	if len(bars) < minBars {
		return domain.IndicatorSnapshot{}, ErrInsufficientData(len(bars))
	}
	for i, b := range bars {
		if !b.Valid() {
			return domain.IndicatorSnapshot{}, ErrInvalidBar(i, symbol)
		}
	}

	rsi := RSI(bars, 14)
	macd := MACD(bars, 12, 26, 9)
	bb := BollingerBands(bars, 20, 2.0)
	last := bars[len(bars)-1]

	return domain.IndicatorSnapshot{
		Symbol:          symbol,
		Timestamp:       last.Timestamp,
		RSI:             rsi,
		MACD:            macd,
		Bollinger:       bb,
		SMA20:           SMA(bars, 20),
		SMA50:           SMA(bars, 50),
		EMA12:           EMA(bars, 12),
		EMA26:           EMA(bars, 26),
		ATR:             ATR(bars, 14),
		RSISignal:       rsiSignal(rsi),
		MACDSignal:      macdSignal(macd.Histogram),
		BollingerSignal: bollingerSignal(last.Close, bb),
	}, nil
}
