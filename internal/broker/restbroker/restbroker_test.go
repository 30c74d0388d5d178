package restbroker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kosheduteam/signalengine/internal/apperr"
	"github.com/kosheduteam/signalengine/internal/broker"
	"github.com/kosheduteam/signalengine/internal/domain"
)

func TestPlaceOrder_SignsAndSendsRequest(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("X-API-Key")
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.FormValue("signature") == "" {
			t.Error("expected a non-empty signature param")
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"order_id": "abc123"})
	}))
	defer srv.Close()

	b := New("key1", "secret1", srv.URL)
	result, err := b.PlaceOrder(context.Background(), broker.PlaceOrderRequest{
		Symbol: "BTCUSDT", Side: domain.SideBuy, Type: domain.OrderMarket, Quantity: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.BrokerOrderID != "abc123" {
		t.Errorf("expected order id abc123, got %s", result.BrokerOrderID)
	}
	if gotAuth != "key1" {
		t.Errorf("expected api key header to be forwarded, got %q", gotAuth)
	}
}

func TestSignedRequest_UnauthorizedMapsToAuthKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	b := New("key1", "secret1", srv.URL)
	_, err := b.PlaceOrder(context.Background(), broker.PlaceOrderRequest{
		Symbol: "BTCUSDT", Side: domain.SideBuy, Type: domain.OrderMarket, Quantity: 1,
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if apperr.KindOf(err) != apperr.Auth {
		t.Errorf("expected Auth kind, got %v", apperr.KindOf(err))
	}
	if apperr.IsRetryable(err) {
		t.Error("auth errors must not be retryable")
	}
}

func TestSignedRequest_ServerErrorMapsToTransientKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	b := New("key1", "secret1", srv.URL)
	b.httpClient.RetryMax = 0
	_, err := b.OrderStatus(context.Background(), "abc123")
	if err == nil {
		t.Fatal("expected an error")
	}
	if apperr.KindOf(err) != apperr.Transient {
		t.Errorf("expected Transient kind, got %v", apperr.KindOf(err))
	}
	if !apperr.IsRetryable(err) {
		t.Error("server errors should be retryable")
	}
}

func TestOrderStatus_ParsesFillFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": "FILLED", "filled_quantity": 2.5, "average_price": 101.25,
		})
	}))
	defer srv.Close()

	b := New("key1", "secret1", srv.URL)
	status, err := b.OrderStatus(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Status != domain.OrderFilled {
		t.Errorf("expected FILLED, got %s", status.Status)
	}
	if status.FilledQuantity != 2.5 || status.AveragePrice != 101.25 {
		t.Errorf("unexpected fill fields: %+v", status)
	}
}

func TestMargins_ParsesAvailableAndRequired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]float64{"available": 1000, "required": 250})
	}))
	defer srv.Close()

	b := New("key1", "secret1", srv.URL)
	margin, err := b.Margins(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if margin.Available != 1000 || margin.Required != 250 {
		t.Errorf("unexpected margin: %+v", margin)
	}
}
