package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

// EventKind is the provider event type.
type EventKind string

const (
	EventCheckoutCompleted EventKind = "checkout.session.completed"
	EventCheckoutExpired   EventKind = "checkout.session.expired"
	EventPaymentSucceeded  EventKind = "payment_intent.succeeded"
	EventPaymentFailed     EventKind = "payment_intent.payment_failed"
)

// Handled reports whether the reconciler acts on events of kind k.
func (k EventKind) Handled() bool {
	switch k {
	case EventCheckoutCompleted, EventCheckoutExpired, EventPaymentSucceeded, EventPaymentFailed:
		return true
	}
	return false
}

// Event is a verified provider event reduced to what the reconciler needs.
type Event struct {
	ID              string
	Kind            EventKind
	RegistrationID  string
	SessionID       string
	PaymentIntentID string
	Payload         []byte
}

// Verifier authenticates a raw webhook body and decodes it.
type Verifier interface {
	Verify(payload []byte, signature string) (*Event, error)
}

// StripeVerifier checks the Stripe-Signature header against the endpoint
// secret before anything in the body is decoded.
type StripeVerifier struct {
	secret    string
	tolerance time.Duration
}

func NewStripeVerifier(secret string) *StripeVerifier {
	return &StripeVerifier{secret: secret, tolerance: webhook.DefaultTolerance}
}

func (v *StripeVerifier) Verify(payload []byte, signature string) (*Event, error) {
	if signature == "" {
		return nil, fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	}
	if err := webhook.ValidatePayloadWithTolerance(payload, signature, v.secret, v.tolerance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var raw stripe.Event
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if raw.ID == "" || raw.Type == "" {
		return nil, fmt.Errorf("%w: missing id or type", ErrMalformedEvent)
	}

	evt := &Event{
		ID:      raw.ID,
		Kind:    EventKind(raw.Type),
		Payload: payload,
	}
	if !evt.Kind.Handled() {
		return evt, nil
	}
	if raw.Data == nil || len(raw.Data.Raw) == 0 {
		return nil, fmt.Errorf("%w: event %s has no data object", ErrMalformedEvent, raw.ID)
	}

	switch evt.Kind {
	case EventCheckoutCompleted, EventCheckoutExpired:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(raw.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("%w: checkout session: %v", ErrMalformedEvent, err)
		}
		evt.SessionID = cs.ID
		evt.RegistrationID = cs.Metadata[MetadataRegistrationID]
		if evt.RegistrationID == "" {
			evt.RegistrationID = cs.ClientReferenceID
		}
		if cs.PaymentIntent != nil {
			evt.PaymentIntentID = cs.PaymentIntent.ID
		}
	case EventPaymentSucceeded, EventPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(raw.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("%w: payment intent: %v", ErrMalformedEvent, err)
		}
		evt.PaymentIntentID = pi.ID
		evt.RegistrationID = pi.Metadata[MetadataRegistrationID]
	}
	return evt, nil
}

// IsRejection reports whether err means the webhook body must be refused
// with a client error.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInvalidSignature) || errors.Is(err, ErrMalformedEvent)
}
