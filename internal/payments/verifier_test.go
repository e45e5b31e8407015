package payments

import (
	"context"
	"errors"
	"testing"

	stripe "github.com/stripe/stripe-go/v82"
)

type fakeIntentClient struct {
	intent    *stripe.PaymentIntent
	getErr    error
	newErr    error
	lastGetID string
}

func (f *fakeIntentClient) Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.lastGetID = id
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.intent, nil
}

func (f *fakeIntentClient) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if f.newErr != nil {
		return nil, f.newErr
	}
	return f.intent, nil
}

func newTestVerifier(intents IntentClient) *Verifier {
	return NewVerifier(VerifierConfig{
		AdminPassphrase: "open-sesame",
		Intents:         intents,
		Amount:          200,
		Currency:        "usd",
	})
}

func TestIsAdminAcceptsExactSecret(t *testing.T) {
	verifier := newTestVerifier(nil)
	if !verifier.IsAdmin("open-sesame") {
		t.Fatalf("expected exact secret to pass")
	}
}

func TestIsAdminAcceptsSecretPrefix(t *testing.T) {
	// Prefix semantics: any value beginning with the secret is accepted.
	verifier := newTestVerifier(nil)
	if !verifier.IsAdmin("open-sesame-and-more") {
		t.Fatalf("expected value extending the secret to pass")
	}
}

func TestIsAdminRejectsOtherValues(t *testing.T) {
	verifier := newTestVerifier(nil)
	if verifier.IsAdmin("open-sesam") {
		t.Fatalf("expected truncated secret to fail")
	}
	if verifier.IsAdmin("wrong") {
		t.Fatalf("expected unrelated value to fail")
	}
	if verifier.IsAdmin("") {
		t.Fatalf("expected empty passphrase to fail")
	}
}

func TestVerifyAdminOverrideSkipsStripe(t *testing.T) {
	intents := &fakeIntentClient{getErr: errors.New("should not be called")}
	verifier := newTestVerifier(intents)

	if !verifier.Verify(context.Background(), Proof{AdminPassphrase: "open-sesame"}) {
		t.Fatalf("expected admin override to verify")
	}
	if intents.lastGetID != "" {
		t.Fatalf("stripe lookup should not run for admin override")
	}
}

func TestVerifySucceededIntent(t *testing.T) {
	intents := &fakeIntentClient{intent: &stripe.PaymentIntent{Status: stripe.PaymentIntentStatusSucceeded}}
	verifier := newTestVerifier(intents)

	if !verifier.Verify(context.Background(), Proof{PaymentIntentID: "pi_123"}) {
		t.Fatalf("expected succeeded intent to verify")
	}
	if intents.lastGetID != "pi_123" {
		t.Fatalf("expected lookup of pi_123, got %q", intents.lastGetID)
	}
}

func TestVerifyNonSucceededIntent(t *testing.T) {
	intents := &fakeIntentClient{intent: &stripe.PaymentIntent{Status: stripe.PaymentIntentStatusRequiresPaymentMethod}}
	verifier := newTestVerifier(intents)

	if verifier.Verify(context.Background(), Proof{PaymentIntentID: "pi_123"}) {
		t.Fatalf("expected non-succeeded intent to fail verification")
	}
}

func TestVerifyLookupFailureIsVerificationFailure(t *testing.T) {
	intents := &fakeIntentClient{getErr: errors.New("no such payment_intent")}
	verifier := newTestVerifier(intents)

	if verifier.Verify(context.Background(), Proof{PaymentIntentID: "pi_missing"}) {
		t.Fatalf("expected lookup failure to fail verification, not error")
	}
}

func TestVerifyWithoutProof(t *testing.T) {
	verifier := newTestVerifier(&fakeIntentClient{})
	if verifier.Verify(context.Background(), Proof{}) {
		t.Fatalf("expected empty proof to fail verification")
	}
}

func TestVerifyWithoutStripeClient(t *testing.T) {
	verifier := newTestVerifier(nil)
	if verifier.Verify(context.Background(), Proof{PaymentIntentID: "pi_123"}) {
		t.Fatalf("expected verification to fail without a stripe client")
	}
}

func TestCreateIntentReturnsClientSecret(t *testing.T) {
	intents := &fakeIntentClient{intent: &stripe.PaymentIntent{ClientSecret: "pi_123_secret"}}
	verifier := newTestVerifier(intents)

	secret, err := verifier.CreateIntent(context.Background())
	if err != nil {
		t.Fatalf("unexpected error creating intent: %v", err)
	}
	if secret != "pi_123_secret" {
		t.Fatalf("unexpected client secret: %q", secret)
	}
}

func TestCreateIntentWithoutClient(t *testing.T) {
	verifier := newTestVerifier(nil)
	if _, err := verifier.CreateIntent(context.Background()); err == nil {
		t.Fatalf("expected error without a stripe client")
	}
}

func TestNewStripeIntentClientEmptyKey(t *testing.T) {
	if client := NewStripeIntentClient("  "); client != nil {
		t.Fatalf("expected nil client for blank secret key")
	}
}
