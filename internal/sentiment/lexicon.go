package sentiment

// positiveWords and negativeWords are the deterministic sentiment lexicon
// (§4.B). Lower-case, single tokens only — multi-word phrases are matched
// token-by-token by the tokenizer.
var positiveWords = map[string]bool{
	"growth": true, "profit": true, "profits": true, "surge": true,
	"record": true, "strong": true, "beat": true, "beats": true,
	"upgrade": true, "upgraded": true, "rally": true, "rallies": true,
	"gain": true, "gains": true, "bullish": true, "outperform": true,
	"success": true, "successful": true, "win": true, "wins": true,
	"expansion": true, "breakthrough": true, "soar": true, "soars": true,
	"optimistic": true, "robust": true, "boom": true, "recovery": true,
	"improve": true, "improved": true, "improving": true, "exceed": true,
	"exceeds": true, "positive": true, "higher": true, "up": true,
}

var negativeWords = map[string]bool{
	"fraud": true, "bankruptcy": true, "investigation": true, "crisis": true,
	"plunge": true, "plunges": true, "crash": true, "crashes": true,
	"loss": true, "losses": true, "decline": true, "declines": true,
	"lawsuit": true, "lawsuits": true, "downgrade": true, "downgraded": true,
	"bearish": true, "recession": true, "layoffs": true, "scandal": true,
	"default": true, "collapse": true, "collapses": true, "probe": true,
	"sec": true, "regulatory": true, "penalty": true, "fine": true,
	"fined": true, "weak": true, "miss": true, "misses": true,
	"plummet": true, "plummets": true, "negative": true, "lower": true,
	"down": true, "insolvency": true, "liquidation": true, "delisted": true,
}

// negationWords flip the polarity of a sentiment word found within the next
// 3 tokens (§4.B: "3-token negation-flip window").
var negationWords = map[string]bool{
	"not": true, "no": true, "never": true, "without": true,
	"hardly": true, "isn't": true, "wasn't": true, "doesn't": true,
	"won't": true, "cannot": true, "cant": true, "neither": true,
}

// intensifiers and dampeners adjust an event's severity (§4.B). Intensifier
// matches add +0.15 each, capped at +0.30 total; dampener matches subtract
// 0.10 each, capped at -0.20 total.
var intensifiers = map[string]bool{
	"major": true, "severe": true, "massive": true, "significant": true,
	"critical": true, "unprecedented": true, "huge": true, "dramatic": true,
}

var dampeners = map[string]bool{
	"minor": true, "slight": true, "modest": true, "limited": true,
	"small": true, "mild": true,
}

// sentimentConfidenceK is the fixed constant K in
// confidence = min((pos+neg)/K, 1) (§4.B).
const sentimentConfidenceK = 5.0
