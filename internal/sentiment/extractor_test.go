package sentiment

import (
	"testing"
	"time"
)

// TestAnalyze_FraudBankruptcyArticle is scenario S5 (§8): at least two
// events (REGULATORY, BANKRUPTCY), both with severity >= 0.7, both flagged
// high-priority; sentiment score < 0.
func TestAnalyze_FraudBankruptcyArticle(t *testing.T) {
	e := NewExtractor()
	text := "Company announces major fraud investigation and bankruptcy filing"
	now := time.Now().UTC()

	sent, events := e.Analyze("article-1", text, now)

	if sent.Score >= 0 {
		t.Errorf("expected negative sentiment score, got %v", sent.Score)
	}

	if len(events) < 2 {
		t.Fatalf("expected at least 2 events, got %d: %+v", len(events), events)
	}

	var sawRegulatory, sawBankruptcy bool
	for _, ev := range events {
		if ev.Severity < 0.7 {
			t.Errorf("event %s has severity %v, want >= 0.7", ev.EventType, ev.Severity)
		}
		if !ev.HighPriority {
			t.Errorf("event %s should be high-priority at severity %v", ev.EventType, ev.Severity)
		}
		switch ev.EventType {
		case "REGULATORY":
			sawRegulatory = true
		case "BANKRUPTCY":
			sawBankruptcy = true
		}
	}

	if !sawRegulatory {
		t.Error("expected a REGULATORY event")
	}
	if !sawBankruptcy {
		t.Error("expected a BANKRUPTCY event")
	}
}

func TestAnalyze_SentimentBounds(t *testing.T) {
	e := NewExtractor()
	texts := []string{
		"",
		"the the the the the",
		"record profits and strong growth and bullish rally",
		"fraud crisis crash losses bankruptcy scandal",
	}
	for _, text := range texts {
		sent, events := e.Analyze("a", text, time.Now())
		if sent.Score < -1 || sent.Score > 1 {
			t.Errorf("score out of bounds: %v", sent.Score)
		}
		if sent.Confidence < 0 || sent.Confidence > 1 {
			t.Errorf("confidence out of bounds: %v", sent.Confidence)
		}
		for _, ev := range events {
			if ev.Severity < 0 || ev.Severity > 1 {
				t.Errorf("severity out of bounds: %v", ev.Severity)
			}
		}
	}
}

func TestAnalyze_NegationFlipsPolarity(t *testing.T) {
	e := NewExtractor()
	// "not strong" should flip the positive word "strong" to negative,
	// inside the 3-token window.
	sent, _ := e.Analyze("a", "results were not very strong this quarter", time.Now())
	if sent.Score >= 0 {
		t.Errorf("expected negation to flip sentiment negative, got %v", sent.Score)
	}
}

func TestAnalyze_DisjointEventTypesYieldExactCount(t *testing.T) {
	e := NewExtractor()
	// Exactly one disjoint event-type keyword set (product launch) should
	// yield exactly one event (§8.2).
	_, events := e.Analyze("a", "the company unveils a new product launch today", time.Now())
	if len(events) != 1 {
		t.Fatalf("expected exactly 1 event, got %d: %+v", len(events), events)
	}
	if events[0].EventType != "PRODUCT_LAUNCH" {
		t.Errorf("expected PRODUCT_LAUNCH, got %s", events[0].EventType)
	}
}
