package payments

import (
	"context"
	"math"
)

// EventKind classifies provider callbacks into the two signals the settlement
// processor reacts to. Anything else is ignored.
type EventKind string

const (
	EventCheckoutCompleted EventKind = "checkout_completed"
	EventPaymentFailed     EventKind = "payment_failed"
	EventIgnored           EventKind = "ignored"
)

// Event is a provider-neutral settlement signal. Metadata carries the ids the
// checkout session was created with.
type Event struct {
	ID          string
	Kind        EventKind
	RawType     string
	Metadata    map[string]string
	IntentID    string
	AmountCents int64
}

// CheckoutItem is one line on the hosted checkout page.
type CheckoutItem struct {
	Name        string
	Description string
	AmountCents int64
}

// CheckoutParams describes a hosted checkout session to be created.
type CheckoutParams struct {
	Items         []CheckoutItem
	Currency      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// CheckoutSession is the provider's handle on a created session.
type CheckoutSession struct {
	ID  string
	URL string
}

// Provider is the boundary to the hosted payment processor. The processor owns
// delivery and signature guarantees; this side only creates sessions and
// decodes signed callbacks.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	ConstructEvent(payload []byte, signature string) (*Event, error)
}

// CalculateCommission returns the platform commission for amount, rounded to
// cents.
func CalculateCommission(amount, rate float64) float64 {
	return math.Round(amount*rate*100) / 100
}

// TotalWithCommission returns amount plus the platform commission.
func TotalWithCommission(amount, rate float64) float64 {
	return amount + CalculateCommission(amount, rate)
}

// ToCents converts a dollar amount to integer cents for the provider API.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
