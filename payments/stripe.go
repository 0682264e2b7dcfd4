package payments

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// Stripe accepts checkout expirations between 30 minutes and 24 hours after
// creation. Stripe measures from when it receives the request, which is never
// earlier than our clock reading, so a deadline at most 24h ahead is sent as is.
const (
	stripeMinSessionLifetime = 31 * time.Minute
	stripeMaxSessionLifetime = 24 * time.Hour
)

// StripeProvider creates Stripe Checkout sessions.
type StripeProvider struct {
	api   *client.API
	clock clockwork.Clock
}

func NewStripeProvider(secretKey string, httpClient *http.Client, clock clockwork.Clock) *StripeProvider {
	return newStripeProvider(secretKey, stripe.NewBackends(httpClient), clock)
}

func newStripeProvider(secretKey string, backends *stripe.Backends, clock clockwork.Clock) *StripeProvider {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &StripeProvider{
		api:   client.New(secretKey, backends),
		clock: clock,
	}
}

func (p *StripeProvider) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(req.ProductName),
	}
	if req.Description != "" {
		product.Description = stripe.String(req.Description)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:    stripe.String(strings.ToLower(req.Currency)),
					ProductData: product,
					UnitAmount:  stripe.Int64(req.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.RegistrationID),
		ExpiresAt:         stripe.Int64(p.sessionExpiry(req.ExpiresAt).Unix()),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: req.metadata(),
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for k, v := range req.metadata() {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	cs, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: create checkout session: %v", ErrProviderUnavailable, err)
	}
	log.Printf("💳 [STRIPE] Created checkout session %s for registration %s", cs.ID, req.RegistrationID)
	return toSession(cs), nil
}

func (p *StripeProvider) GetSession(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	cs, err := p.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieve checkout session %s: %v", ErrProviderUnavailable, id, err)
	}
	return toSession(cs), nil
}

// sessionExpiry clamps the payment deadline into the window Stripe accepts.
// Only a deadline beyond the maximum is moved earlier; config caps the payment
// window so that does not happen in practice. A deadline closer than the
// minimum yields a session that outlives it; the registration still expires on
// the deadline and a late completion is a no-op.
func (p *StripeProvider) sessionExpiry(deadline time.Time) time.Time {
	now := p.clock.Now()
	if earliest := now.Add(stripeMinSessionLifetime); deadline.Before(earliest) {
		return earliest
	}
	if latest := now.Add(stripeMaxSessionLifetime); deadline.After(latest) {
		return latest
	}
	return deadline
}

func toSession(cs *stripe.CheckoutSession) *Session {
	s := &Session{
		ID:     cs.ID,
		URL:    cs.URL,
		Status: string(cs.Status),
	}
	if cs.ExpiresAt > 0 {
		s.ExpiresAt = time.Unix(cs.ExpiresAt, 0).UTC()
	}
	return s
}
