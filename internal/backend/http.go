package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"carpool/internal/domain"
)

// Client talks to the remote rideshare API over HTTP/JSON. It implements all
// backend interfaces.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

var (
	_ RideSearchAPI = (*Client)(nil)
	_ DistanceAPI   = (*Client)(nil)
	_ BookingAPI    = (*Client)(nil)
	_ PaymentAPI    = (*Client)(nil)
	_ ReviewAPI     = (*Client)(nil)
)

// NewClient creates a backend client. token may be empty for anonymous calls.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// envelope is the backend's standard response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// SearchRides queries /rides/search.
func (c *Client) SearchRides(ctx context.Context, q SearchQuery) ([]domain.RideOffer, error) {
	params := url.Values{}
	params.Set("source", q.Source)
	params.Set("destination", q.Destination)
	if q.Date != nil {
		params.Set("date", q.Date.Format(time.RFC3339))
	}

	var offers []domain.RideOffer
	if err := c.get(ctx, "/rides/search?"+params.Encode(), &offers); err != nil {
		return nil, err
	}
	return offers, nil
}

// DistanceDetails queries /distance/details.
func (c *Client) DistanceDetails(ctx context.Context, origin, destination string) (domain.RouteInfo, error) {
	params := url.Values{}
	params.Set("origin", origin)
	params.Set("destination", destination)

	var info domain.RouteInfo
	if err := c.get(ctx, "/distance/details?"+params.Encode(), &info); err != nil {
		return domain.RouteInfo{}, err
	}
	return info, nil
}

// CreateBooking posts /rides/book.
func (c *Client) CreateBooking(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error) {
	var booking domain.Booking
	if err := c.post(ctx, "/rides/book", req, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// ListBookings queries /rides/bookings.
func (c *Client) ListBookings(ctx context.Context) ([]*domain.Booking, error) {
	var bookings []*domain.Booking
	if err := c.get(ctx, "/rides/bookings", &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// CreateOrder posts /payments/create-order/:bookingID.
func (c *Client) CreateOrder(ctx context.Context, bookingID string) (*domain.PaymentIntent, error) {
	var intent domain.PaymentIntent
	if err := c.post(ctx, "/payments/create-order/"+url.PathEscape(bookingID), nil, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// VerifyPayment posts /payments/verify.
func (c *Client) VerifyPayment(ctx context.Context, receipt domain.GatewayReceipt) (VerifyResult, error) {
	var result VerifyResult
	if err := c.post(ctx, "/payments/verify", receipt, &result); err != nil {
		return VerifyResult{}, err
	}
	return result, nil
}

// ReportFailure posts /payments/failure.
func (c *Client) ReportFailure(ctx context.Context, orderID, reason string) error {
	body := map[string]string{"order_id": orderID, "reason": reason}
	return c.post(ctx, "/payments/failure", body, nil)
}

// PendingReviews queries /reviews/pending.
func (c *Client) PendingReviews(ctx context.Context) ([]string, error) {
	var ids []string
	if err := c.get(ctx, "/reviews/pending", &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// SubmitReview posts /reviews.
func (c *Client) SubmitReview(ctx context.Context, review domain.ReviewSubmission) error {
	return c.post(ctx, "/reviews", review, nil)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := mapStatus(resp.StatusCode); err != nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return err
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		return fmt.Errorf("backend rejected request: %s", env.Message)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

// mapStatus converts HTTP status codes to sentinel errors.
func mapStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusConflict:
		return ErrSeatsUnavailable
	case code == http.StatusUnprocessableEntity:
		return ErrOrderRejected
	case code >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, code)
	default:
		return fmt.Errorf("unexpected status %d", code)
	}
}
