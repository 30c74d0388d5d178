// Package restbroker is a broker.Broker implementation against a generic
// HMAC-signed REST trading API. Grounded on the teacher's internal/binance
// client (crypto/hmac + crypto/sha256 request signing, query-string
// construction, timestamped params), with the plain net/http client swapped
// for hashicorp/go-retryablehttp so transport-level retries are handled by
// the library rather than hand-rolled, and the resilience layer (§4.H)
// handles the domain-level retry/breaker policy on top.
package restbroker

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/kosheduteam/signalengine/internal/apperr"
	"github.com/kosheduteam/signalengine/internal/broker"
	"github.com/kosheduteam/signalengine/internal/domain"
)

const component = "restbroker"

// Broker is an HMAC-signed REST broker.Broker implementation.
type Broker struct {
	apiKey     string
	secretKey  string
	baseURL    string
	httpClient *retryablehttp.Client
}

// New creates a Broker against baseURL, authenticating with apiKey/secretKey.
func New(apiKey, secretKey, baseURL string) *Broker {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil
	client.HTTPClient.Timeout = 10 * time.Second

	return &Broker{apiKey: apiKey, secretKey: secretKey, baseURL: baseURL, httpClient: client}
}

// PlaceOrder signs and submits a new order.
func (b *Broker) PlaceOrder(ctx context.Context, req broker.PlaceOrderRequest) (broker.PlaceOrderResult, error) {
	params := map[string]string{
		"symbol":   req.Symbol,
		"side":     string(req.Side),
		"type":     string(req.Type),
		"quantity": strconv.FormatFloat(req.Quantity, 'f', -1, 64),
	}
	if req.LimitPrice != nil {
		params["price"] = strconv.FormatFloat(*req.LimitPrice, 'f', -1, 64)
	}

	var resp struct {
		OrderID string `json:"order_id"`
	}
	if err := b.signedRequest(ctx, http.MethodPost, "/v1/orders", params, &resp); err != nil {
		return broker.PlaceOrderResult{}, err
	}
	return broker.PlaceOrderResult{BrokerOrderID: resp.OrderID}, nil
}

// OrderStatus fetches the current status of a previously placed order.
func (b *Broker) OrderStatus(ctx context.Context, brokerOrderID string) (broker.OrderStatusResult, error) {
	var resp struct {
		Status         string  `json:"status"`
		FilledQuantity float64 `json:"filled_quantity"`
		AveragePrice   float64 `json:"average_price"`
	}
	params := map[string]string{"order_id": brokerOrderID}
	if err := b.signedRequest(ctx, http.MethodGet, "/v1/orders/status", params, &resp); err != nil {
		return broker.OrderStatusResult{}, err
	}
	return broker.OrderStatusResult{
		Status:         domain.OrderStatus(resp.Status),
		FilledQuantity: resp.FilledQuantity,
		AveragePrice:   resp.AveragePrice,
	}, nil
}

// Cancel cancels a previously placed order.
func (b *Broker) Cancel(ctx context.Context, brokerOrderID string) error {
	params := map[string]string{"order_id": brokerOrderID}
	return b.signedRequest(ctx, http.MethodPost, "/v1/orders/cancel", params, nil)
}

// Positions fetches the broker's currently open positions.
func (b *Broker) Positions(ctx context.Context) ([]broker.Position, error) {
	var resp []struct {
		Symbol     string  `json:"symbol"`
		Side       string  `json:"side"`
		Quantity   float64 `json:"quantity"`
		EntryPrice float64 `json:"entry_price"`
	}
	if err := b.signedRequest(ctx, http.MethodGet, "/v1/positions", nil, &resp); err != nil {
		return nil, err
	}

	positions := make([]broker.Position, len(resp))
	for i, p := range resp {
		positions[i] = broker.Position{
			Symbol:     p.Symbol,
			Side:       domain.OrderSide(p.Side),
			Quantity:   p.Quantity,
			EntryPrice: p.EntryPrice,
		}
	}
	return positions, nil
}

// Margins fetches the margin available/required for symbol.
func (b *Broker) Margins(ctx context.Context, symbol string) (broker.Margin, error) {
	var resp struct {
		Available float64 `json:"available"`
		Required  float64 `json:"required"`
	}
	params := map[string]string{"symbol": symbol}
	if err := b.signedRequest(ctx, http.MethodGet, "/v1/margins", params, &resp); err != nil {
		return broker.Margin{}, err
	}
	return broker.Margin{Available: resp.Available, Required: resp.Required}, nil
}

// signedRequest issues a timestamped, HMAC-signed request against endpoint
// with params, decoding the response body into out (skipped if out is nil).
func (b *Broker) signedRequest(ctx context.Context, method, endpoint string, params map[string]string, out any) error {
	if params == nil {
		params = map[string]string{}
	}
	params["timestamp"] = strconv.FormatInt(time.Now().UnixMilli(), 10)
	params["signature"] = b.sign(params)

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}

	var req *retryablehttp.Request
	var err error
	fullURL := b.baseURL + endpoint
	if method == http.MethodGet {
		req, err = retryablehttp.NewRequestWithContext(ctx, method, fullURL+"?"+values.Encode(), nil)
	} else {
		req, err = retryablehttp.NewRequestWithContext(ctx, method, fullURL, bytes.NewBufferString(values.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return apperr.Wrap(apperr.Transient, component, err, nil)
	}
	req.Header.Set("X-API-Key", b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.Transient, component, err, map[string]any{"endpoint": endpoint})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.Transient, component, err, nil)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return apperr.New(apperr.Auth, component, "broker rejected credentials").
			WithContext("status_code", resp.StatusCode).WithContext("body", string(body))
	}
	if resp.StatusCode >= 500 {
		return apperr.New(apperr.Transient, component, "broker returned a server error").
			WithContext("status_code", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return apperr.New(apperr.Validation, component, "broker rejected request").
			WithContext("status_code", resp.StatusCode).WithContext("body", string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperr.Wrap(apperr.Transient, component, err, nil)
	}
	return nil
}

// sign produces an HMAC-SHA256 signature over params' sorted query string
// (teacher's internal/binance.Client.sign, made key-order-stable).
func (b *Broker) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k != "signature" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	query := ""
	for _, k := range keys {
		if query != "" {
			query += "&"
		}
		query += fmt.Sprintf("%s=%s", k, params[k])
	}

	mac := hmac.New(sha256.New, []byte(b.secretKey))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}
