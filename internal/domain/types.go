// Package domain holds the shared data model (§3): the types every
// component (A–I) reads and writes, plus the enums and invariants that bind
// across all of them. Kept dependency-free so every other package can import
// it without a cycle.
package domain

import "time"

// OHLCBar is one symbol's open/high/low/close/volume bar. Immutable once
// created; high >= max(open,close), low <= min(open,close), all prices and
// volume >= 0.
type OHLCBar struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Valid reports whether the bar satisfies the OHLC invariants in §3.
func (b OHLCBar) Valid() bool {
	if b.Open < 0 || b.High < 0 || b.Low < 0 || b.Close < 0 || b.Volume < 0 {
		return false
	}
	if b.High < b.Open || b.High < b.Close {
		return false
	}
	if b.Low > b.Open || b.Low > b.Close {
		return false
	}
	return true
}

// Article is a news article referencing zero or more symbols.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	Symbols     []string  `json:"symbols"`
}

// Sentiment is the one-per-article sentiment score (§4.B).
type Sentiment struct {
	ArticleID         string    `json:"article_id"`
	Score             float64   `json:"score"` // [-1, +1]
	Confidence        float64   `json:"confidence"` // [0, 1]
	KeywordsPositive  []string  `json:"keywords_positive"`
	KeywordsNegative  []string  `json:"keywords_negative"`
	Timestamp         time.Time `json:"timestamp"`
}

// EventType enumerates the event categories the extractor recognizes.
type EventType string

const (
	EventEarnings         EventType = "EARNINGS"
	EventMerger           EventType = "MERGER"
	EventAcquisition      EventType = "ACQUISITION"
	EventBankruptcy       EventType = "BANKRUPTCY"
	EventRegulatory       EventType = "REGULATORY"
	EventProductLaunch    EventType = "PRODUCT_LAUNCH"
	EventLeadershipChange EventType = "LEADERSHIP_CHANGE"
)

// Event is zero-or-more-per-article; severity >= 0.7 is high-priority.
type Event struct {
	ID          string    `json:"id"`
	ArticleID   string    `json:"article_id"`
	EventType   EventType `json:"event_type"`
	Severity    float64   `json:"severity"` // [0, 1]
	Keywords    []string  `json:"keywords"`
	Timestamp   time.Time `json:"timestamp"`
	HighPriority bool     `json:"high_priority"`
}

// TechnicalSignal enumerates the derived per-indicator classification (§4.A).
type TechnicalSignal string

const (
	SignalOverbought   TechnicalSignal = "OVERBOUGHT"
	SignalOversold     TechnicalSignal = "OVERSOLD"
	SignalBullishCross TechnicalSignal = "BULLISH_CROSS"
	SignalBearishCross TechnicalSignal = "BEARISH_CROSS"
	SignalUpperBreach  TechnicalSignal = "UPPER_BREACH"
	SignalLowerBreach  TechnicalSignal = "LOWER_BREACH"
	SignalNeutral      TechnicalSignal = "NEUTRAL"
)

// MACDValues is the {line, signal, histogram} triple.
type MACDValues struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// BollingerValues is the {upper, middle, lower} triple.
type BollingerValues struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// IndicatorSnapshot is the per-symbol, per-bar derived indicator set (§3/§4.A).
type IndicatorSnapshot struct {
	Symbol    string          `json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
	RSI       float64         `json:"rsi"`
	MACD      MACDValues      `json:"macd"`
	Bollinger BollingerValues `json:"bollinger"`
	SMA20     float64         `json:"sma_20"`
	SMA50     float64         `json:"sma_50"`
	EMA12     float64         `json:"ema_12"`
	EMA26     float64         `json:"ema_26"`
	ATR       float64         `json:"atr"`

	RSISignal       TechnicalSignal `json:"rsi_signal"`
	MACDSignal      TechnicalSignal `json:"macd_signal"`
	BollingerSignal TechnicalSignal `json:"bollinger_signal"`
}

// SentimentAggregate is the per-symbol rolling NLP aggregation output (§4.D):
// raw/weighted/smoothed sentiment indices over a bounded window of recent
// article sentiment, plus the event-shock factor and dominant event type
// derived from the same window's events.
type SentimentAggregate struct {
	Symbol                 string    `json:"symbol"`
	RawIndex               float64   `json:"raw_index"`      // [-1, +1]
	WeightedIndex          float64   `json:"weighted_index"` // [-1, +1]
	SmoothedIndex          float64   `json:"smoothed_index"` // [-1, +1]
	EventShockFactor       float64   `json:"event_shock_factor"` // [0, 1]
	DominantEventType      EventType `json:"dominant_event_type,omitempty"`
	DominantEventFrequency float64   `json:"dominant_event_frequency"`
	SampleCount            int       `json:"sample_count"`
	Timestamp              time.Time `json:"timestamp"`
}

// Regime enumerates the four market-state categories (§3/§4.C).
type Regime string

const (
	RegimeBull    Regime = "BULL"
	RegimeBear    Regime = "BEAR"
	RegimeNeutral Regime = "NEUTRAL"
	RegimePanic   Regime = "PANIC"
)

// RegimeComponentScores are the four raw composite scores the classifier
// computes before argmax selection.
type RegimeComponentScores struct {
	Bull    float64 `json:"bull"`
	Bear    float64 `json:"bear"`
	Neutral float64 `json:"neutral"`
	Panic   float64 `json:"panic"`
}

// RegimeInputs are the three normalized inputs feeding the classifier.
type RegimeInputs struct {
	SentimentIndex  float64 `json:"sentiment_index"`
	VolatilityIndex float64 `json:"volatility_index"`
	TrendStrength   float64 `json:"trend_strength"`
}

// RegimeSnapshot is the classifier's output for one symbol at one time.
type RegimeSnapshot struct {
	Symbol     string                `json:"symbol"`
	Regime     Regime                `json:"regime"`
	Confidence float64               `json:"confidence"`
	Components RegimeComponentScores `json:"components"`
	Inputs     RegimeInputs          `json:"inputs"`
	Timestamp  time.Time             `json:"timestamp"`
}

// SignalClass enumerates the CMS engine's BUY/SELL/HOLD classification.
type SignalClass string

const (
	ClassBuy  SignalClass = "BUY"
	ClassSell SignalClass = "SELL"
	ClassHold SignalClass = "HOLD"
)

// ComponentContribution is one CMS component's normalized score and
// weighted contribution to the final CMS, used in the explanation (§4.E/§8.8).
type ComponentContribution struct {
	Name        string  `json:"name"`
	Normalized  float64 `json:"normalized"`
	Weight      float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// CMSResult is the fused, bounded, explainable output of the CMS engine (§3/§4.E).
type CMSResult struct {
	Symbol        string                   `json:"symbol"`
	CMSScore      float64                  `json:"cms_score"` // [-100, +100]
	SignalClass   SignalClass              `json:"signal_class"`
	Confidence    float64                  `json:"confidence"` // [0, 1]
	Contributions []ComponentContribution  `json:"contributions"`
	DominantName  string                   `json:"dominant_component"`
	Explanation   string                   `json:"explanation"`
	Timestamp     time.Time                `json:"timestamp"`
}

// AggregatorState enumerates the per-symbol fan-in state machine states
// (§4.F).
type AggregatorState string

const (
	StateBootstrapping AggregatorState = "BOOTSTRAPPING"
	StateReady         AggregatorState = "READY"
	StateDegraded      AggregatorState = "DEGRADED"
	StateSuppressed    AggregatorState = "SUPPRESSED"
)

// PositionSize is the computed sizing block carried on a trading signal.
type PositionSize struct {
	Shares          float64 `json:"shares"`
	Value           float64 `json:"value"`
	RiskAmount      float64 `json:"risk_amount"`
	StopLossPrice   float64 `json:"stop_loss_price"`
	TakeProfitPrice float64 `json:"take_profit_price"`
	RiskRewardRatio float64 `json:"risk_reward_ratio"`
}

// TradingSignal is the emitted, explainable BUY/SELL/HOLD decision (§3/§4.F).
type TradingSignal struct {
	ID           string       `json:"id"`
	Symbol       string       `json:"symbol"`
	SignalClass  SignalClass  `json:"signal_class"`
	Price        float64      `json:"price"`
	CMSScore     float64      `json:"cms_score"`
	Confidence   float64      `json:"confidence"`
	PositionSize PositionSize `json:"position_size"`
	LimitPrice   *float64     `json:"limit_price,omitempty"`
	Reasons      []string     `json:"reasons"`
	Explanation  string       `json:"explanation"`
	Timestamp    time.Time    `json:"timestamp"`
}

// OrderSide enumerates BUY/SELL.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OrderType enumerates MARKET/LIMIT.
type OrderType string

const (
	OrderMarket OrderType = "MARKET"
	OrderLimit  OrderType = "LIMIT"
)

// OrderStatus enumerates the order state lifecycle (§3): PENDING ->
// SUBMITTED -> (PARTIALLY_FILLED -> FILLED | CANCELLED | REJECTED). Terminal
// states absorb further updates; transitions never regress.
type OrderStatus string

const (
	OrderPending          OrderStatus = "PENDING"
	OrderSubmitted        OrderStatus = "SUBMITTED"
	OrderPartiallyFilled  OrderStatus = "PARTIALLY_FILLED"
	OrderFilled           OrderStatus = "FILLED"
	OrderCancelled        OrderStatus = "CANCELLED"
	OrderRejected         OrderStatus = "REJECTED"
)

// Terminal reports whether s is a terminal order state.
func (s OrderStatus) Terminal() bool {
	return s == OrderFilled || s == OrderCancelled || s == OrderRejected
}

// orderStateRank gives each status a monotonic rank so transitions can be
// checked for regression (§3 invariant: order state transitions never
// regress).
var orderStateRank = map[OrderStatus]int{
	OrderPending:         0,
	OrderSubmitted:       1,
	OrderPartiallyFilled: 2,
	OrderFilled:          3,
	OrderCancelled:       3,
	OrderRejected:        3,
}

// CanTransition reports whether moving from s to next is a valid,
// non-regressing order-state transition.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	if s.Terminal() {
		return false
	}
	return orderStateRank[next] >= orderStateRank[s]
}

// Order is a broker-issued order (§3/§6).
type Order struct {
	ID              string      `json:"id"`
	BrokerOrderID   string      `json:"broker_order_id"`
	Symbol          string      `json:"symbol"`
	Side            OrderSide   `json:"side"`
	Type            OrderType   `json:"type"`
	Quantity        float64     `json:"quantity"`
	LimitPrice      *float64    `json:"limit_price,omitempty"`
	Status          OrderStatus `json:"status"`
	FilledQuantity  float64     `json:"filled_quantity"`
	AveragePrice    float64     `json:"average_price"`
	SourceSignalID  string      `json:"source_signal_id"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Position is an open or closed trading position (§3).
type Position struct {
	ID            string     `json:"id"`
	Symbol        string     `json:"symbol"`
	Side          OrderSide  `json:"side"`
	EntryPrice    float64    `json:"entry_price"`
	Quantity      float64    `json:"quantity"`
	InitialStop   float64    `json:"initial_stop"`
	CurrentStop   float64    `json:"current_stop"`
	TakeProfit    float64    `json:"take_profit"`
	Open          bool       `json:"open"`
	EntryAt       time.Time  `json:"entry_at"`
	ExitAt        *time.Time `json:"exit_at,omitempty"`
	ExitPrice     float64    `json:"exit_price"`
}

// Trade is a closed round-trip produced by the executor or backtester.
type Trade struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Side       OrderSide `json:"side"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Quantity   float64   `json:"quantity"`
	EntryAt    time.Time `json:"entry_at"`
	ExitAt     time.Time `json:"exit_at"`
	PnL        float64   `json:"pnl"`
}

// BacktestMetrics are the performance metrics computed at the end of a
// replay (§4.I).
type BacktestMetrics struct {
	TotalReturn  float64 `json:"total_return"`
	Sharpe       float64 `json:"sharpe"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	WinRate      float64 `json:"win_rate"`
	TotalTrades  int     `json:"total_trades"`
	AvgDuration  float64 `json:"avg_duration_hours"`
}

// EquityPoint is one (timestamp, equity) sample on the backtest's curve.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
}

// BacktestStatus enumerates the stored result's lifecycle (§7: "backtest
// failures produce a stored result with status=failed and a message").
type BacktestStatus string

const (
	BacktestCompleted BacktestStatus = "completed"
	BacktestFailed    BacktestStatus = "failed"
)

// BacktestConfig is the configuration snapshot a backtest run is keyed on
// (§4.I).
type BacktestConfig struct {
	Symbol              string    `json:"symbol"`
	Start               time.Time `json:"start"`
	End                 time.Time `json:"end"`
	InitialCapital      float64   `json:"initial_capital"`
	PositionSizeFraction float64  `json:"position_size_fraction"`
	ThresholdBuy        float64   `json:"threshold_buy"`
	ThresholdSell       float64   `json:"threshold_sell"`
}

// BacktestResult is the persisted outcome of a replay (§3).
type BacktestResult struct {
	ID        string          `json:"id"`
	Config    BacktestConfig  `json:"config"`
	Status    BacktestStatus  `json:"status"`
	Message   string          `json:"message,omitempty"`
	Trades    []Trade         `json:"trades"`
	Equity    []EquityPoint   `json:"equity_curve"`
	Metrics   BacktestMetrics `json:"metrics"`
	CreatedAt time.Time       `json:"created_at"`
}
