package domain

// PaymentStatus represents the terminal status of a payment attempt.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSuccess   PaymentStatus = "SUCCESS"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// PaymentIntent is the server-issued record authorizing one charge for one
// booking. One intent is open per booking at a time.
type PaymentIntent struct {
	OrderID     string  `json:"order_id"`
	BookingID   string  `json:"booking_id"`
	Amount      float64 `json:"amount"`
	AmountMinor int64   `json:"amount_minor"` // minor units consumed by the gateway widget
	Currency    string  `json:"currency"`
	GatewayKey  string  `json:"gateway_key"`
}

// GatewayReceipt is the proof-of-payment artifact the external widget returns.
// It is untrusted until server-side verification accepts the signature.
type GatewayReceipt struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// Prefill is the contact data handed to the gateway widget.
type Prefill struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Session identifies the rider on whose behalf a checkout runs. It is passed
// explicitly into the orchestrator and adapter; nothing reads ambient auth state.
type Session struct {
	UserID string
	Name   string
	Email  string
	Phone  string
}

// PrefillFor builds the widget prefill from the session.
func (s Session) PrefillFor() Prefill {
	return Prefill{Name: s.Name, Email: s.Email, Phone: s.Phone}
}
