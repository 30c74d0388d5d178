// Package nlpagg implements the per-symbol NLP aggregation layer (§4.D): a
// bounded sliding window of recent article sentiment and events is reduced
// into raw/weighted/smoothed sentiment indices and an event-shock factor.
package nlpagg

import (
	"math"
	"sync"
	"time"

	"github.com/kosheduteam/signalengine/internal/domain"
)

// Defaults per §4.D.
const (
	defaultWindowSize  = 20
	smoothingAlpha     = 0.3
	eventCountDivisor  = 10.0
	eventCountCap      = 0.3
	defaultDecayHours  = 24.0
	dominantFrequency  = 0.4
)

// sentimentSample is one windowed (score, confidence, time) observation.
type sentimentSample struct {
	score      float64
	confidence float64
	timestamp  time.Time
}

// eventSample is one windowed (type, severity, time) observation.
type eventSample struct {
	eventType domain.EventType
	severity  float64
	timestamp time.Time
}

// symbolState is the bounded window plus running EWMA for one symbol.
// Guarded by Aggregator.mu.
type symbolState struct {
	sentiments    []sentimentSample
	events        []eventSample
	smoothed      float64
	hasSmoothed   bool
}

// Aggregator maintains bounded per-symbol windows and reduces them on
// demand. Safe for concurrent use.
type Aggregator struct {
	mu         sync.Mutex
	windowSize int
	decayHours float64
	states     map[string]*symbolState
}

// NewAggregator creates an Aggregator with the given window size (0 uses the
// default of 20, per §4.D) and event-shock decay horizon in hours (0 uses
// the default of 24).
func NewAggregator(windowSize int, decayHours float64) *Aggregator {
	if windowSize <= 0 {
		windowSize = defaultWindowSize
	}
	if decayHours <= 0 {
		decayHours = defaultDecayHours
	}
	return &Aggregator{
		windowSize: windowSize,
		decayHours: decayHours,
		states:     make(map[string]*symbolState),
	}
}

// IngestSentiment adds a new sentiment observation for symbol, evicting the
// oldest sample once the window exceeds its configured size, and advances
// the EWMA-smoothed index.
func (a *Aggregator) IngestSentiment(symbol string, score, confidence float64, ts time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := a.stateFor(symbol)
	st.sentiments = append(st.sentiments, sentimentSample{score: score, confidence: confidence, timestamp: ts})
	if len(st.sentiments) > a.windowSize {
		st.sentiments = st.sentiments[len(st.sentiments)-a.windowSize:]
	}

	if !st.hasSmoothed {
		st.smoothed = score
		st.hasSmoothed = true
	} else {
		st.smoothed = smoothingAlpha*score + (1-smoothingAlpha)*st.smoothed
	}
}

// IngestEvents adds new event observations for symbol, evicting the oldest
// once the window exceeds its configured size.
func (a *Aggregator) IngestEvents(symbol string, events []domain.Event) {
	if len(events) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	st := a.stateFor(symbol)
	for _, ev := range events {
		st.events = append(st.events, eventSample{eventType: ev.EventType, severity: ev.Severity, timestamp: ev.Timestamp})
	}
	if len(st.events) > a.windowSize {
		st.events = st.events[len(st.events)-a.windowSize:]
	}
}

// stateFor returns (creating if necessary) the state for symbol. Caller
// must hold a.mu.
func (a *Aggregator) stateFor(symbol string) *symbolState {
	st, ok := a.states[symbol]
	if !ok {
		st = &symbolState{}
		a.states[symbol] = st
	}
	return st
}

// Snapshot reduces symbol's current window into a SentimentAggregate. now
// is the reference time for event-age decay.
func (a *Aggregator) Snapshot(symbol string, now time.Time) domain.SentimentAggregate {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok := a.states[symbol]
	if !ok {
		return domain.SentimentAggregate{Symbol: symbol, Timestamp: now}
	}

	raw := rawMean(st.sentiments)
	weighted := weightedMean(st.sentiments, raw)
	shock, dominantType, dominantFreq := eventShock(st.events, now, a.decayHours)

	return domain.SentimentAggregate{
		Symbol:                 symbol,
		RawIndex:               raw,
		WeightedIndex:          weighted,
		SmoothedIndex:          st.smoothed,
		EventShockFactor:       shock,
		DominantEventType:      dominantType,
		DominantEventFrequency: dominantFreq,
		SampleCount:            len(st.sentiments),
		Timestamp:              now,
	}
}

// rawMean is the arithmetic mean of the window's sentiment scores (§4.D).
func rawMean(samples []sentimentSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += s.score
	}
	return sum / float64(len(samples))
}

// weightedMean is the confidence-weighted mean of the window's sentiment
// scores (§4.D); falls back to raw if total confidence is zero.
func weightedMean(samples []sentimentSample, fallback float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var weightedSum, totalWeight float64
	for _, s := range samples {
		weightedSum += s.score * s.confidence
		totalWeight += s.confidence
	}
	if totalWeight <= 0 {
		return fallback
	}
	return weightedSum / totalWeight
}

// eventShock computes the event-shock factor and dominant event type (§4.D):
// ESF = clamp((mean(severity) + min(count/10, 0.3)) * exp(-mean_age_hours/decay_hours), 0, 1).
// The dominant type is reported only when its frequency in the window
// exceeds 0.4.
func eventShock(events []eventSample, now time.Time, decayHours float64) (float64, domain.EventType, float64) {
	if len(events) == 0 {
		return 0, "", 0
	}

	var severitySum, ageHoursSum float64
	counts := make(map[domain.EventType]int, len(events))
	for _, ev := range events {
		severitySum += ev.severity
		ageHoursSum += now.Sub(ev.timestamp).Hours()
		counts[ev.eventType]++
	}

	n := float64(len(events))
	meanSeverity := severitySum / n
	meanAgeHours := ageHoursSum / n
	if meanAgeHours < 0 {
		meanAgeHours = 0
	}

	countBonus := math.Min(n/eventCountDivisor, eventCountCap)
	shock := (meanSeverity + countBonus) * math.Exp(-meanAgeHours/decayHours)
	shock = clamp(shock, 0, 1)

	var dominantType domain.EventType
	dominantCount := 0
	for t, c := range counts {
		if c > dominantCount || (c == dominantCount && t < dominantType) {
			dominantCount = c
			dominantType = t
		}
	}
	dominantFreq := float64(dominantCount) / n
	if dominantFreq <= dominantFrequency {
		dominantType = ""
	}

	return shock, dominantType, dominantFreq
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
