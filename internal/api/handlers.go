package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kosheduteam/signalengine/internal/domain"
	"github.com/kosheduteam/signalengine/internal/logging"
	"github.com/kosheduteam/signalengine/internal/resilience"
)

const requestIDHeader = "X-Request-ID"

// requestIDMiddleware stamps every request with a trace ID, reusing the
// same generator the rest of the pipeline uses for its own trace IDs so a
// request_id in an API error response can be grepped straight out of the
// structured logs.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = logging.GenerateTraceID()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	if v, ok := c.Get("request_id"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// respondError writes the error shape every non-2xx response uses:
// {error, message, request_id}.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"error":      http.StatusText(status),
		"message":    message,
		"request_id": requestID(c),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	if err := s.store.HealthCheck(ctx); err != nil {
		status = "degraded"
	}

	body := gin.H{
		"status":   status,
		"uptime_s": time.Since(s.startedAt).Seconds(),
	}
	if s.degradation != nil {
		collaborators := gin.H{}
		degraded := false
		for _, name := range []string{"store", "bus"} {
			av := s.degradation.Get(name)
			collaborators[name] = av.Kind
			if av.Kind != resilience.Available {
				degraded = true
			}
		}
		body["collaborators"] = collaborators
		if degraded && status == "ok" {
			status = "degraded"
			body["status"] = status
		}
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleCurrentSignal(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		respondError(c, http.StatusBadRequest, "symbol query parameter is required")
		return
	}
	signal, err := s.store.CurrentSignal(c.Request.Context(), symbol)
	if err != nil {
		respondError(c, http.StatusNotFound, "no signal found for symbol")
		return
	}
	c.JSON(http.StatusOK, signal)
}

func (s *Server) handleSignalHistory(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		respondError(c, http.StatusBadRequest, "symbol query parameter is required")
		return
	}
	start, end, err := parseRange(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	limit := parseLimit(c, 100)

	history, err := s.store.SignalHistory(c.Request.Context(), symbol, start, end, limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load signal history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": history})
}

// backtestRequest is the POST /backtest body: a domain.BacktestConfig plus
// the symbol's already-ingested data, loaded from the store server-side
// rather than carried in the request body (§4.I: "loads all relevant OHLC,
// sentiments, and events from the store").
type backtestRequest struct {
	Symbol               string    `json:"symbol" binding:"required"`
	Start                time.Time `json:"start" binding:"required"`
	End                  time.Time `json:"end" binding:"required"`
	InitialCapital       float64   `json:"initial_capital"`
	PositionSizeFraction float64   `json:"position_size_fraction"`
	ThresholdBuy         float64   `json:"threshold_buy"`
	ThresholdSell        float64   `json:"threshold_sell"`
}

// handleCreateBacktest runs Module I synchronously over the requested
// window and returns the generated result ID (§6: "POST /backtest returns
// a backtest identifier"). Replay is pure CPU plus the three store range
// reads below, so there is no benefit to deferring it to a background worker the
// way a live, I/O-bound pipeline stage would be.
func (s *Server) handleCreateBacktest(c *gin.Context) {
	var req backtestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if !req.End.After(req.Start) {
		respondError(c, http.StatusBadRequest, "end must be after start")
		return
	}
	if req.InitialCapital <= 0 {
		req.InitialCapital = 10000
	}
	if req.PositionSizeFraction <= 0 {
		req.PositionSizeFraction = 1.0
	}

	ctx := c.Request.Context()
	bars, err := s.store.BarsRange(ctx, req.Symbol, req.Start, req.End)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load bars")
		return
	}
	if len(bars) == 0 {
		respondError(c, http.StatusNotFound, "no price history for symbol in range")
		return
	}
	sentiments, err := s.store.SentimentsRange(ctx, req.Symbol, req.Start, req.End)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load sentiment history")
		return
	}
	events, err := s.store.EventsRange(ctx, req.Symbol, req.Start, req.End)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load event history")
		return
	}

	cfg := domain.BacktestConfig{
		Symbol:               req.Symbol,
		Start:                req.Start,
		End:                  req.End,
		InitialCapital:       req.InitialCapital,
		PositionSizeFraction: req.PositionSizeFraction,
		ThresholdBuy:         req.ThresholdBuy,
		ThresholdSell:        req.ThresholdSell,
	}
	result := s.runner.Run(ctx, cfg, bars, sentiments, events, s.store)
	c.JSON(http.StatusCreated, gin.H{"id": result.ID})
}

func (s *Server) handleGetBacktest(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		respondError(c, http.StatusBadRequest, "invalid backtest id")
		return
	}
	result, err := s.store.BacktestResult(c.Request.Context(), id)
	if err != nil {
		respondError(c, http.StatusNotFound, "backtest result not found")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleOrders(c *gin.Context) {
	status := c.Query("status")
	limit := parseLimit(c, 50)

	orders, err := s.store.Orders(c.Request.Context(), status, limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load orders")
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func parseLimit(c *gin.Context, def int) int {
	raw := c.Query("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func parseRange(c *gin.Context) (time.Time, time.Time, error) {
	startRaw, endRaw := c.Query("start"), c.Query("end")
	end := time.Now()
	start := end.Add(-30 * 24 * time.Hour)

	if startRaw != "" {
		t, err := time.Parse(time.RFC3339, startRaw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = t
	}
	if endRaw != "" {
		t, err := time.Parse(time.RFC3339, endRaw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = t
	}
	return start, end, nil
}
