package payments

import (
	"context"
	"errors"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"go.uber.org/zap"
)

var (
	errMissingStripeClient = errors.New("payments: stripe client is not configured")

	noOpLogger = zap.NewNop()
)

// IntentClient is the slice of the Stripe payment-intent API the verifier
// consumes. *paymentintent.Client satisfies it.
type IntentClient interface {
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// Proof carries the payment evidence a caller supplied: a passphrase for
// the admin override, or a Stripe payment-intent identifier.
type Proof struct {
	AdminPassphrase string
	PaymentIntentID string
}

// VerifierConfig bundles the configuration for payment verification.
type VerifierConfig struct {
	AdminPassphrase string
	Intents         IntentClient
	Amount          int64
	Currency        string
	Logger          *zap.Logger
}

// Verifier confirms payment proofs and creates payment intents.
type Verifier struct {
	passphrase string
	intents    IntentClient
	amount     int64
	currency   string
	logger     *zap.Logger
}

// NewVerifier constructs a Verifier.
func NewVerifier(cfg VerifierConfig) *Verifier {
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Verifier{
		passphrase: cfg.AdminPassphrase,
		intents:    cfg.Intents,
		amount:     cfg.Amount,
		currency:   cfg.Currency,
		logger:     logger,
	}
}

// NewStripeIntentClient wires the live Stripe API for the given secret key.
func NewStripeIntentClient(secretKey string) IntentClient {
	if strings.TrimSpace(secretKey) == "" {
		return nil
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return api.PaymentIntents
}

// IsAdmin reports whether the supplied passphrase carries admin privileges.
// The comparison is a prefix match, not full equality: any value that
// begins with the configured secret passes.
func (v *Verifier) IsAdmin(passphrase string) bool {
	if passphrase == "" || v.passphrase == "" {
		return false
	}
	return strings.HasPrefix(passphrase, v.passphrase)
}

// Verify reports whether the proof denotes a completed charge or a valid
// admin override. Stripe lookup failures count as verification failure and
// are logged, never propagated.
func (v *Verifier) Verify(ctx context.Context, proof Proof) bool {
	if v.IsAdmin(proof.AdminPassphrase) {
		return true
	}
	if proof.PaymentIntentID == "" {
		return false
	}
	if v.intents == nil {
		v.logger.Warn("payment verification skipped", zap.Error(errMissingStripeClient))
		return false
	}

	params := &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	}
	intent, err := v.intents.Get(proof.PaymentIntentID, params)
	if err != nil {
		v.logger.Warn("stripe payment validation failed",
			zap.String("payment_intent_id", proof.PaymentIntentID),
			zap.Error(err))
		return false
	}
	return intent.Status == stripe.PaymentIntentStatusSucceeded
}

// CreateIntent creates a payment intent for the configured amount and
// currency, with automatic payment method negotiation enabled, and returns
// its client secret.
func (v *Verifier) CreateIntent(ctx context.Context) (string, error) {
	if v.intents == nil {
		return "", errMissingStripeClient
	}

	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(v.amount),
		Currency: stripe.String(v.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	intent, err := v.intents.New(params)
	if err != nil {
		return "", err
	}
	return intent.ClientSecret, nil
}
