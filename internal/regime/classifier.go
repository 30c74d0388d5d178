// Package regime implements the market regime classifier (§4.C): recent
// OHLC bars plus the current smoothed sentiment classify the symbol into
// one of {BULL, BEAR, NEUTRAL, PANIC} with a confidence score.
//
// The trend_strength and volatility_index normalization follows the
// tanh-compression style of aristath-sentinel's MarketRegimeDetector; the
// weighted composite scoring and priority-style panic override follow
// ternarybob-quaero's RegimeClassifier structure, adapted from its 8-way
// taxonomy down to the spec's 4-way regime set.
package regime

import (
	"math"

	"github.com/kosheduteam/signalengine/internal/domain"
	"github.com/kosheduteam/signalengine/internal/indicator"
)

// volatilityDivisor is the ATR/price normalization constant — 5% ATR/price
// maps to a fully saturated volatility_index of 1.0 (§4.C).
const volatilityDivisor = 0.05

// trendTanhFactor compresses the EMA20/EMA50 relative spread into [-1, 1]
// (§4.C's formula: tanh(10*(EMA20-EMA50)/EMA50)).
const trendTanhFactor = 10.0

// panicVolatilityThreshold and panicSentimentThreshold gate the hard
// override rule (§4.C).
const (
	panicVolatilityThreshold = 0.8
	panicSentimentThreshold  = -0.5
	panicOverrideConfidence  = 0.95
)

// lowConfidenceFloor: below this confidence the classifier falls back to
// NEUTRAL rather than the argmax class (§4.C / §9 Open Question — NEUTRAL is
// chosen over RANGING because §3's regime set is exactly {BULL,BEAR,NEUTRAL,
// PANIC}).
const lowConfidenceFloor = 0.30

// Classifier classifies a symbol's market regime. Stateless and safe for
// concurrent use; callers own the bar/sentiment history.
type Classifier struct {
	windowBars int
}

// NewClassifier creates a Classifier that uses at most windowBars recent
// bars (default 100, per §8.5).
func NewClassifier(windowBars int) *Classifier {
	if windowBars <= 0 {
		windowBars = 100
	}
	return &Classifier{windowBars: windowBars}
}

// Classify computes the regime snapshot for symbol given its recent OHLC
// bars (at least 50, per §4.A) and the current smoothed sentiment index.
func (c *Classifier) Classify(symbol string, bars []domain.OHLCBar, sentimentIndex float64) (domain.RegimeSnapshot, error) {
	window := bars
	if len(window) > c.windowBars {
		window = window[len(window)-c.windowBars:]
	}

	if len(window) < 50 {
		return domain.RegimeSnapshot{}, indicator.ErrInsufficientData(len(window))
	}

	last := window[len(window)-1]
	atr := indicator.ATR(window, 14)
	ema20 := indicator.EMA(window, 20)
	ema50 := indicator.EMA(window, 50)

	volatilityIndex := clampF(atr/last.Close/volatilityDivisor, 0, 1)

	trendStrength := 0.0
	if ema50 != 0 {
		trendStrength = math.Tanh(trendTanhFactor * (ema20 - ema50) / ema50)
	}

	inputs := domain.RegimeInputs{
		SentimentIndex:  sentimentIndex,
		VolatilityIndex: volatilityIndex,
		TrendStrength:   trendStrength,
	}

	components := compositeScores(inputs)
	regimeType, confidence := argmaxConfidence(components)

	if volatilityIndex > panicVolatilityThreshold && sentimentIndex < panicSentimentThreshold {
		regimeType = domain.RegimePanic
		confidence = panicOverrideConfidence
	} else if confidence < lowConfidenceFloor {
		regimeType = domain.RegimeNeutral
	}

	return domain.RegimeSnapshot{
		Symbol:     symbol,
		Regime:     regimeType,
		Confidence: confidence,
		Components: components,
		Inputs:     inputs,
		Timestamp:  last.Timestamp,
	}, nil
}

// compositeScores computes the four weighted composite scores from the
// normalized inputs (§4.C).
func compositeScores(in domain.RegimeInputs) domain.RegimeComponentScores {
	si, vi, ts := in.SentimentIndex, in.VolatilityIndex, in.TrendStrength

	bull := maxF(ts, 0)*0.5 + maxF(si, 0)*0.3 + (1-vi)*0.2
	bear := maxF(-ts, 0)*0.5 + maxF(-si, 0)*0.3 + (1-vi)*0.2
	neutral := (1-math.Abs(ts))*0.5 + (1-math.Abs(si))*0.3 + (1-vi)*0.2
	panic := vi*0.6 + maxF(-si, 0)*0.4

	return domain.RegimeComponentScores{
		Bull:    bull,
		Bear:    bear,
		Neutral: neutral,
		Panic:   panic,
	}
}

// orderedRegimes fixes iteration order so argmaxConfidence is fully
// deterministic: an exact tie always resolves to the earlier regime in this
// list rather than depending on map iteration order.
var orderedRegimes = []domain.Regime{
	domain.RegimeBull,
	domain.RegimeBear,
	domain.RegimeNeutral,
	domain.RegimePanic,
}

// argmaxConfidence selects the highest-scoring regime and computes
// confidence = max_score / Σscores (§4.C). Ties break toward the earlier
// entry in orderedRegimes.
func argmaxConfidence(c domain.RegimeComponentScores) (domain.Regime, float64) {
	scoreOf := func(r domain.Regime) float64 {
		switch r {
		case domain.RegimeBull:
			return c.Bull
		case domain.RegimeBear:
			return c.Bear
		case domain.RegimeNeutral:
			return c.Neutral
		default:
			return c.Panic
		}
	}

	best := orderedRegimes[0]
	bestScore := math.Inf(-1)
	sum := 0.0
	for _, regimeType := range orderedRegimes {
		score := scoreOf(regimeType)
		sum += score
		if score > bestScore {
			bestScore = score
			best = regimeType
		}
	}

	if sum <= 0 {
		return domain.RegimeNeutral, 0
	}

	return best, bestScore / sum
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
