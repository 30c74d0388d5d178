package bus

import (
	"encoding/json"
	"math"
	"time"
)

// roundFloat6 rounds a float64 to 6 decimal places before it crosses the
// wire, keeping published payloads stable and diff-friendly regardless of
// the originating float's internal precision.
func roundFloat6(v float64) float64 {
	const scale = 1e6
	return math.Round(v*scale) / scale
}

// PriceMessage is published on ChannelPrices (§6).
type PriceMessage struct {
	Symbol    string    `json:"symbol"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// SentimentMessage is published on ChannelSentiment (§6), carrying the
// per-article sentiment score.
type SentimentMessage struct {
	ArticleID  string    `json:"article_id"`
	Symbol     string    `json:"symbol"`
	Score      float64   `json:"score"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// EventMessage is published on ChannelEvents (§6).
type EventMessage struct {
	ID           string    `json:"id"`
	ArticleID    string    `json:"article_id"`
	Symbol       string    `json:"symbol"`
	EventType    string    `json:"event_type"`
	Severity     float64   `json:"severity"`
	HighPriority bool      `json:"high_priority"`
	Timestamp    time.Time `json:"timestamp"`
}

// IndicatorMessage is published on ChannelIndicators (§6).
type IndicatorMessage struct {
	Symbol          string    `json:"symbol"`
	RSI             float64   `json:"rsi"`
	MACDLine        float64   `json:"macd_line"`
	MACDSignal      float64   `json:"macd_signal"`
	MACDHistogram   float64   `json:"macd_histogram"`
	BollingerUpper  float64   `json:"bollinger_upper"`
	BollingerMiddle float64   `json:"bollinger_middle"`
	BollingerLower  float64   `json:"bollinger_lower"`
	ATR             float64   `json:"atr"`
	Timestamp       time.Time `json:"timestamp"`
}

// RegimeMessage is published on ChannelRegime (§6).
type RegimeMessage struct {
	Symbol     string    `json:"symbol"`
	Regime     string    `json:"regime"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// PositionSizeFields is the position_size{} block on a SignalMessage (§6).
// The aggregator emits this zero-valued: authoritative sizing happens in
// the executor (§4.G), which alone knows live account equity; the signal
// itself only advertises classification and explanation.
type PositionSizeFields struct {
	Shares          float64 `json:"shares"`
	Value           float64 `json:"value"`
	RiskAmount      float64 `json:"risk_amount"`
	StopLossPrice   float64 `json:"stop_loss_price"`
	TakeProfitPrice float64 `json:"take_profit_price"`
	RiskRewardRatio float64 `json:"risk_reward_ratio"`
}

// SignalMessage is published on ChannelSignals (§6).
type SignalMessage struct {
	ID           string             `json:"id"`
	Symbol       string             `json:"symbol"`
	SignalClass  string             `json:"signal_class"`
	Price        float64            `json:"price"`
	CMSScore     float64            `json:"cms_score"`
	Confidence   float64            `json:"confidence"`
	PositionSize PositionSizeFields `json:"position_size"`
	Reasons      []string           `json:"reasons"`
	Explanation  string             `json:"explanation"`
	Timestamp    time.Time          `json:"timestamp"`
}

// OrderUpdateMessage is published on ChannelOrderUpdates (§6).
type OrderUpdateMessage struct {
	OrderID  string  `json:"order_id"`
	Symbol   string  `json:"symbol"`
	Status   string  `json:"status"`
	Filled   float64 `json:"filled_quantity"`
	AvgPrice float64 `json:"average_price"`
}

// AlertMessage is published on ChannelAlerts (§10 supplemented channel):
// critical operator-facing notifications (daily loss limit breached,
// breaker tripped, trading disabled).
type AlertMessage struct {
	Severity  string    `json:"severity"` // "info" | "warning" | "critical"
	Component string    `json:"component"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// MarshalPrice, MarshalSentiment, ... encode a message with float fields
// rounded to 6 decimal places, matching the convention used across every
// channel's payload.

func MarshalPrice(m PriceMessage) ([]byte, error) {
	m.Open, m.High, m.Low, m.Close, m.Volume = roundFloat6(m.Open), roundFloat6(m.High), roundFloat6(m.Low), roundFloat6(m.Close), roundFloat6(m.Volume)
	return json.Marshal(m)
}

func MarshalSentiment(m SentimentMessage) ([]byte, error) {
	m.Score, m.Confidence = roundFloat6(m.Score), roundFloat6(m.Confidence)
	return json.Marshal(m)
}

func MarshalEvent(m EventMessage) ([]byte, error) {
	m.Severity = roundFloat6(m.Severity)
	return json.Marshal(m)
}

func MarshalIndicator(m IndicatorMessage) ([]byte, error) {
	m.RSI = roundFloat6(m.RSI)
	m.MACDLine, m.MACDSignal, m.MACDHistogram = roundFloat6(m.MACDLine), roundFloat6(m.MACDSignal), roundFloat6(m.MACDHistogram)
	m.BollingerUpper, m.BollingerMiddle, m.BollingerLower = roundFloat6(m.BollingerUpper), roundFloat6(m.BollingerMiddle), roundFloat6(m.BollingerLower)
	m.ATR = roundFloat6(m.ATR)
	return json.Marshal(m)
}

func MarshalRegime(m RegimeMessage) ([]byte, error) {
	m.Confidence = roundFloat6(m.Confidence)
	return json.Marshal(m)
}

func MarshalSignal(m SignalMessage) ([]byte, error) {
	m.Price, m.CMSScore, m.Confidence = roundFloat6(m.Price), roundFloat6(m.CMSScore), roundFloat6(m.Confidence)
	return json.Marshal(m)
}

func MarshalOrderUpdate(m OrderUpdateMessage) ([]byte, error) {
	m.Filled, m.AvgPrice = roundFloat6(m.Filled), roundFloat6(m.AvgPrice)
	return json.Marshal(m)
}

func MarshalAlert(m AlertMessage) ([]byte, error) {
	return json.Marshal(m)
}
