// Package services – PaymentService
//
// This file implements PaymentService, which creates a card payment intent
// for a peer-to-peer transfer and returns the client secret the sender's
// client confirms with. The payment processor sits behind PaymentProvider;
// StripeProvider adapts stripe-go.

package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultCurrency = "usd"

// IntentRequest describes a payment intent to create.
type IntentRequest struct {
	AmountCents    int64
	Currency       string
	Description    string
	IdempotencyKey string
}

// PaymentProvider creates payment intents and returns their client secret.
type PaymentProvider interface {
	CreateIntent(ctx context.Context, req IntentRequest) (clientSecret string, err error)
}

// StripeProvider implements PaymentProvider with the Stripe API.
type StripeProvider struct {
	API *client.API
}

// NewStripeProvider returns a provider authenticated with secretKey.
func NewStripeProvider(secretKey string) *StripeProvider {
	return &StripeProvider{API: client.New(secretKey, nil)}
}

// CreateIntent implements PaymentProvider.
func (p *StripeProvider) CreateIntent(ctx context.Context, req IntentRequest) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.AmountCents),
		Currency:           stripe.String(req.Currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Description:        stripe.String(req.Description),
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	pi, err := p.API.PaymentIntents.New(params)
	if err != nil {
		return "", err
	}
	return pi.ClientSecret, nil
}

// Payment is the outcome of a successful Send.
type Payment struct {
	ClientSecret string `json:"clientSecret"`
	AmountCents  int64  `json:"-"`
	Currency     string `json:"-"`
}

// PaymentService creates transfer intents between identities.
type PaymentService struct {
	// Provider is nil when no secret key is configured.
	Provider PaymentProvider
	Currency string
}

// ToCents converts a dollar amount to integer cents, rounding half away
// from zero. Non-positive and non-finite amounts are rejected.
func ToCents(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, ErrInvalidAmount
	}
	cents := int64(math.Round(amount * 100))
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// Send creates a payment intent of amount (in major units) to receiver.
func (s *PaymentService) Send(ctx context.Context, receiver string, amount float64, idemKey string) (*Payment, error) {
	tr := otel.Tracer("services/PaymentService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("payment.receiver", receiver),
			attribute.Float64("payment.amount", amount),
		),
	)
	defer span.End()

	receiver, err := NormalizeIdentity(receiver)
	if err != nil {
		return nil, err
	}
	cents, err := ToCents(amount)
	if err != nil {
		return nil, err
	}
	if s == nil || s.Provider == nil {
		return nil, ErrNotConfigured
	}

	currency := strings.ToLower(strings.TrimSpace(s.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	req := IntentRequest{
		AmountCents:    cents,
		Currency:       currency,
		Description:    fmt.Sprintf("Sending $%s to %s", strconv.FormatFloat(amount, 'f', -1, 64), receiver),
		IdempotencyKey: idemKey,
	}
	secret, err := s.Provider.CreateIntent(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return &Payment{ClientSecret: secret, AmountCents: cents, Currency: currency}, nil
}
