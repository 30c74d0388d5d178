// Package cms implements the Composite Market Score engine (§4.E): it fuses
// sentiment, volatility, trend, and event-shock inputs into a single
// bounded, classified, explainable score.
package cms

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kosheduteam/signalengine/config"
	"github.com/kosheduteam/signalengine/internal/domain"
)

// Inputs are the four normalized signals the engine fuses (§4.E).
type Inputs struct {
	SentimentIndex  float64 // SI, [-1, +1]
	VolatilityIndex float64 // VI, [0, 1]
	TrendStrength   float64 // TS, [-1, +1]
	EventShockFactor float64 // ESF, [0, 1]
}

// Engine computes CMS results from Inputs using a configured weight/threshold
// set. Stateless and safe for concurrent use.
type Engine struct {
	weights       config.CMSWeights
	thresholdBuy  float64
	thresholdSell float64
}

// NewEngine creates an Engine. Weights are normalized to sum 1 on every call
// (§4.E: "Component weights are configurable and auto-normalize to sum 1").
func NewEngine(cfg config.CMSConfig) *Engine {
	return &Engine{
		weights:       cfg.Weights.Normalize(),
		thresholdBuy:  cfg.ThresholdBuy,
		thresholdSell: cfg.ThresholdSell,
	}
}

// componentName values used in Contribution.Name and the dominant-component
// field, per §4.E/§8.8.
const (
	componentSentiment  = "sentiment"
	componentVolatility = "volatility"
	componentTrend      = "trend"
	componentEvent      = "event"
)

// Compute fuses in into a CMSResult for symbol, stamped with ts (§4.E).
func (e *Engine) Compute(symbol string, in Inputs, ts time.Time) domain.CMSResult {
	contributions := []domain.ComponentContribution{
		{
			Name:         componentSentiment,
			Normalized:   in.SentimentIndex,
			Weight:       e.weights.Sentiment,
			Contribution: e.weights.Sentiment * in.SentimentIndex,
		},
		{
			Name:         componentVolatility,
			Normalized:   -in.VolatilityIndex,
			Weight:       e.weights.Volatility,
			Contribution: -e.weights.Volatility * in.VolatilityIndex,
		},
		{
			Name:         componentTrend,
			Normalized:   in.TrendStrength,
			Weight:       e.weights.Trend,
			Contribution: e.weights.Trend * in.TrendStrength,
		},
		{
			Name:         componentEvent,
			Normalized:   in.EventShockFactor,
			Weight:       e.weights.Event,
			Contribution: e.weights.Event * in.EventShockFactor,
		},
	}

	raw := 0.0
	for _, c := range contributions {
		raw += c.Contribution
	}
	cmsScore := clamp(raw*100, -100, 100)

	class := classify(cmsScore, e.thresholdBuy, e.thresholdSell)

	strength := math.Abs(cmsScore) / 100
	agreement := 1 - stddevOf(signedComponents(contributions))
	penalty := 1 - in.VolatilityIndex
	confidence := clamp(0.5*strength+0.3*agreement+0.2*penalty, 0, 1)

	dominant := dominantComponent(contributions)

	return domain.CMSResult{
		Symbol:        symbol,
		CMSScore:      cmsScore,
		SignalClass:   class,
		Confidence:    confidence,
		Contributions: contributions,
		DominantName:  dominant,
		Explanation:   explain(cmsScore, class, contributions, dominant),
		Timestamp:     ts,
	}
}

// classify maps a CMS score to a signal class using the configured
// thresholds (§4.E).
func classify(cmsScore, thresholdBuy, thresholdSell float64) domain.SignalClass {
	switch {
	case cmsScore > thresholdBuy:
		return domain.ClassBuy
	case cmsScore < -thresholdSell:
		return domain.ClassSell
	default:
		return domain.ClassHold
	}
}

// signedComponents extracts each contribution's normalized (signed) value so
// agreement can measure how directionally consistent the components are
// (§4.E: "component agreement (1 - stddev of signed-normalized components)").
func signedComponents(contributions []domain.ComponentContribution) []float64 {
	values := make([]float64, len(contributions))
	for i, c := range contributions {
		values[i] = c.Normalized
	}
	return values
}

func stddevOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

// dominantComponent is the contribution with the largest absolute weighted
// contribution (§4.E: "explanation ... names the dominant one").
func dominantComponent(contributions []domain.ComponentContribution) string {
	sorted := append([]domain.ComponentContribution(nil), contributions...)
	sort.Slice(sorted, func(i, j int) bool {
		return math.Abs(sorted[i].Contribution) > math.Abs(sorted[j].Contribution)
	})
	if len(sorted) == 0 {
		return ""
	}
	return sorted[0].Name
}

// explain renders a human-readable summary naming every component's
// normalized score and weighted contribution (§8.8).
func explain(cmsScore float64, class domain.SignalClass, contributions []domain.ComponentContribution, dominant string) string {
	s := fmt.Sprintf("CMS=%.2f -> %s. dominant=%s.", cmsScore, class, dominant)
	for _, c := range contributions {
		s += fmt.Sprintf(" %s(normalized=%.3f, weight=%.3f, contribution=%.3f).", c.Name, c.Normalized, c.Weight, c.Contribution)
	}
	return s
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
