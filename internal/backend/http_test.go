package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"carpool/internal/domain"
)

func respond(w http.ResponseWriter, data any) {
	raw, _ := json.Marshal(data)
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    json.RawMessage(raw),
	})
}

func TestClient_SearchRides(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rides/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("source") != "Indiranagar" {
			t.Errorf("unexpected source %q", r.URL.Query().Get("source"))
		}
		respond(w, []domain.RideOffer{{ID: "ride-1", Source: "Indiranagar", Destination: "Whitefield"}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "tok", time.Second)
	offers, err := client.SearchRides(context.Background(), SearchQuery{Source: "Indiranagar", Destination: "Whitefield"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(offers) != 1 || offers[0].ID != "ride-1" {
		t.Errorf("unexpected offers: %+v", offers)
	}
}

func TestClient_AuthorizationHeader(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		respond(w, []string{})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", time.Second)
	if _, err := client.PendingReviews(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_CreateBooking_SeatsConflict(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", time.Second)
	_, err := client.CreateBooking(context.Background(), CreateBookingRequest{RideID: "ride-1", Seats: 2})
	if !errors.Is(err, ErrSeatsUnavailable) {
		t.Errorf("expected ErrSeatsUnavailable, got %v", err)
	}
}

func TestClient_StatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code int
		want error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusConflict, ErrSeatsUnavailable},
		{http.StatusUnprocessableEntity, ErrOrderRejected},
		{http.StatusInternalServerError, ErrUnavailable},
		{http.StatusBadGateway, ErrUnavailable},
	}
	for _, tc := range cases {
		if got := mapStatus(tc.code); !errors.Is(got, tc.want) {
			t.Errorf("status %d: expected %v, got %v", tc.code, tc.want, got)
		}
	}
	if err := mapStatus(http.StatusOK); err != nil {
		t.Errorf("status 200: expected nil, got %v", err)
	}
}

func TestClient_VerifyPayment(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var receipt domain.GatewayReceipt
		if err := json.NewDecoder(r.Body).Decode(&receipt); err != nil {
			t.Errorf("bad body: %v", err)
		}
		if receipt.Signature != "sig-1" {
			t.Errorf("unexpected signature %q", receipt.Signature)
		}
		respond(w, VerifyResult{Verified: true, Status: domain.PaymentStatusSuccess})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", time.Second)
	result, err := client.VerifyPayment(context.Background(), domain.GatewayReceipt{
		OrderID: "order-1", PaymentID: "pay-1", Signature: "sig-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Verified || result.Status != domain.PaymentStatusSuccess {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestClient_EnvelopeFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "ride expired"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", time.Second)
	_, err := client.ListBookings(context.Background())
	if err == nil {
		t.Fatal("expected an error for an unsuccessful envelope")
	}
}

func TestClient_ConnectionRefused(t *testing.T) {
	t.Parallel()

	client := NewClient("http://127.0.0.1:1", "", 200*time.Millisecond)
	_, err := client.ListBookings(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}
