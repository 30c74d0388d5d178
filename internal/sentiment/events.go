package sentiment

import "github.com/kosheduteam/signalengine/internal/domain"

// eventKeywords maps each event type to the keyword set that triggers it and
// the base severity assigned before the match-count bonus and modifier
// adjustments (§4.B).
var eventKeywords = map[domain.EventType]struct {
	keywords []string
	base     float64
}{
	domain.EventEarnings: {
		keywords: []string{"earnings", "revenue", "quarterly", "eps", "guidance"},
		base:     0.3,
	},
	domain.EventMerger: {
		keywords: []string{"merger", "merge", "merging", "combine", "combination"},
		base:     0.5,
	},
	domain.EventAcquisition: {
		keywords: []string{"acquisition", "acquire", "acquires", "acquired", "buyout", "takeover"},
		base:     0.5,
	},
	domain.EventBankruptcy: {
		keywords: []string{"bankruptcy", "insolvency", "insolvent", "liquidation", "chapter"},
		base:     0.6,
	},
	domain.EventRegulatory: {
		keywords: []string{"regulatory", "regulator", "investigation", "fraud", "sec", "lawsuit", "probe", "subpoena"},
		base:     0.55,
	},
	domain.EventProductLaunch: {
		keywords: []string{"launch", "launches", "launched", "unveil", "unveils", "release", "released"},
		base:     0.3,
	},
	domain.EventLeadershipChange: {
		keywords: []string{"ceo", "resign", "resigns", "resignation", "appoint", "appoints", "successor", "steps"},
		base:     0.4,
	},
}

// highPrioritySeverity is the threshold at which an emitted event carries
// the alert flag (§4.B).
const highPrioritySeverity = 0.7
