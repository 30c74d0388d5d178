// Package sentiment implements the lexicon-based sentiment and event
// extractor (§4.B): fully deterministic on the input text, no network calls,
// no external services — unlike the teacher's Fear&Greed/CryptoPanic
// analyzer, which this package deliberately does not reuse (see DESIGN.md).
package sentiment

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kosheduteam/signalengine/internal/domain"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9']+`)

// tokenize lowercases the input and strips punctuation, returning the
// resulting word tokens (§4.B).
func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// Extractor performs deterministic sentiment and event extraction on
// article text. Stateless and safe for concurrent use.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Analyze scores an article's sentiment and extracts zero or more events
// from its body text (§4.B). articleID and body are the only required
// inputs; the returned Sentiment and Events are stamped with now.
func (e *Extractor) Analyze(articleID, text string, now time.Time) (domain.Sentiment, []domain.Event) {
	tokens := tokenize(text)

	sentiment := e.scoreSentiment(articleID, tokens, now)
	events := e.extractEvents(articleID, tokens, now)

	return sentiment, events
}

func (e *Extractor) scoreSentiment(articleID string, tokens []string, now time.Time) domain.Sentiment {
	pos, neg := 0, 0
	var posKeywords, negKeywords []string

	for i, tok := range tokens {
		isPositive := positiveWords[tok]
		isNegative := negativeWords[tok]
		if !isPositive && !isNegative {
			continue
		}

		if negatedAt(tokens, i) {
			isPositive, isNegative = isNegative, isPositive
		}

		switch {
		case isPositive:
			pos++
			posKeywords = append(posKeywords, tok)
		case isNegative:
			neg++
			negKeywords = append(negKeywords, tok)
		}
	}

	denom := pos + neg
	if denom == 0 {
		denom = 1
	}
	score := clamp(float64(pos-neg)/float64(denom), -1, 1)
	confidence := clamp(float64(pos+neg)/sentimentConfidenceK, 0, 1)

	return domain.Sentiment{
		ArticleID:        articleID,
		Score:            score,
		Confidence:       confidence,
		KeywordsPositive: posKeywords,
		KeywordsNegative: negKeywords,
		Timestamp:        now,
	}
}

// negatedAt reports whether tokens[i] falls within a 3-token negation-flip
// window of a preceding negation word (§4.B).
func negatedAt(tokens []string, i int) bool {
	start := i - 3
	if start < 0 {
		start = 0
	}
	for j := start; j < i; j++ {
		if negationWords[tokens[j]] {
			return true
		}
	}
	return false
}

func (e *Extractor) extractEvents(articleID string, tokens []string, now time.Time) []domain.Event {
	modifierAdj := modifierAdjustment(tokens)

	var events []domain.Event
	for _, evType := range orderedEventTypes {
		spec := eventKeywords[evType]
		matched := matchingKeywords(tokens, spec.keywords)
		if len(matched) == 0 {
			continue
		}

		severity := spec.base + minF(float64(len(matched))/5.0, 0.2) + modifierAdj
		severity = clamp(severity, 0, 1)

		events = append(events, domain.Event{
			ID:           uuid.NewString(),
			ArticleID:    articleID,
			EventType:    evType,
			Severity:     severity,
			Keywords:     matched,
			Timestamp:    now,
			HighPriority: severity >= highPrioritySeverity,
		})
	}

	return events
}

// orderedEventTypes fixes iteration order so Analyze is fully deterministic.
var orderedEventTypes = []domain.EventType{
	domain.EventEarnings,
	domain.EventMerger,
	domain.EventAcquisition,
	domain.EventBankruptcy,
	domain.EventRegulatory,
	domain.EventProductLaunch,
	domain.EventLeadershipChange,
}

func matchingKeywords(tokens []string, keywords []string) []string {
	keywordSet := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		keywordSet[k] = true
	}

	var matched []string
	seen := make(map[string]bool)
	for _, tok := range tokens {
		if keywordSet[tok] && !seen[tok] {
			matched = append(matched, tok)
			seen[tok] = true
		}
	}
	return matched
}

// modifierAdjustment sums intensifier (+0.15 each, capped +0.30) and
// dampener (-0.10 each, capped -0.20) hits across the whole article (§4.B).
func modifierAdjustment(tokens []string) float64 {
	intensifierHits, dampenerHits := 0, 0
	for _, tok := range tokens {
		if intensifiers[tok] {
			intensifierHits++
		}
		if dampeners[tok] {
			dampenerHits++
		}
	}

	adj := minF(float64(intensifierHits)*0.15, 0.30)
	adj -= minF(float64(dampenerHits)*0.10, 0.20)
	return adj
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

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
