package testutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v79/webhook"
)

// WebhookSecret is the endpoint secret tests sign events with.
const WebhookSecret = "whsec_test_secret"

// StripeEvent builds a webhook body of the given type wrapping object.
func StripeEvent(t *testing.T, id, kind string, object map[string]interface{}) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"id":          id,
		"object":      "event",
		"type":        kind,
		"api_version": "2024-06-20",
		"created":     time.Now().Unix(),
		"livemode":    false,
		"data":        map[string]interface{}{"object": object},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return body
}

// CheckoutSessionObject is a checkout.session payload correlated to registrationID.
func CheckoutSessionObject(sessionID, registrationID, paymentIntentID string) map[string]interface{} {
	obj := map[string]interface{}{
		"id":     sessionID,
		"object": "checkout.session",
		"status": "complete",
		"metadata": map[string]string{
			"registration_id": registrationID,
		},
	}
	if paymentIntentID != "" {
		obj["payment_intent"] = paymentIntentID
	}
	return obj
}

// PaymentIntentObject is a payment_intent payload correlated to registrationID.
func PaymentIntentObject(paymentIntentID, registrationID string) map[string]interface{} {
	return map[string]interface{}{
		"id":     paymentIntentID,
		"object": "payment_intent",
		"metadata": map[string]string{
			"registration_id": registrationID,
		},
	}
}

// Sign returns a Stripe-Signature header for body.
func Sign(body []byte, secret string) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   body,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header
}
