package services

import (
	"context"
	"errors"
	"math"
	"testing"
)

type fakeProvider struct {
	secret string
	err    error
	got    IntentRequest
	calls  int
}

func (f *fakeProvider) CreateIntent(_ context.Context, req IntentRequest) (string, error) {
	f.calls++
	f.got = req
	return f.secret, f.err
}

func TestToCents(t *testing.T) {
	ok := map[float64]int64{1: 100, 12.5: 1250, 0.01: 1, 19.999: 2000}
	for in, want := range ok {
		got, err := ToCents(in)
		if err != nil || got != want {
			t.Fatalf("ToCents(%v) = %d, %v; want %d", in, got, err, want)
		}
	}
	for _, bad := range []float64{0, -1, 0.001, math.NaN(), math.Inf(1)} {
		if _, err := ToCents(bad); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("ToCents(%v) should fail, got %v", bad, err)
		}
	}
}

func TestPaymentService_Send(t *testing.T) {
	fp := &fakeProvider{secret: "pi_123_secret"}
	s := &PaymentService{Provider: fp}

	p, err := s.Send(context.Background(), " bob ", 12.5, "idem-1")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if p.ClientSecret != "pi_123_secret" || p.AmountCents != 1250 || p.Currency != "usd" {
		t.Fatalf("unexpected payment: %+v", p)
	}
	want := IntentRequest{AmountCents: 1250, Currency: "usd", Description: "Sending $12.5 to bob", IdempotencyKey: "idem-1"}
	if fp.got != want {
		t.Fatalf("intent request = %+v, want %+v", fp.got, want)
	}
}

func TestPaymentService_Errors(t *testing.T) {
	ctx := context.Background()

	fp := &fakeProvider{}
	s := &PaymentService{Provider: fp, Currency: "EUR"}
	if _, err := s.Send(ctx, "", 5, ""); !errors.Is(err, ErrInvalidIdentity) {
		t.Fatalf("blank receiver: %v", err)
	}
	if _, err := s.Send(ctx, "bob", -5, ""); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative amount: %v", err)
	}
	if fp.calls != 0 {
		t.Fatalf("provider must not be called for invalid input")
	}

	if _, err := (&PaymentService{}).Send(ctx, "bob", 5, ""); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("no provider: %v", err)
	}

	fp.err = errors.New("card_declined")
	if _, err := s.Send(ctx, "bob", 5, ""); !errors.Is(err, ErrUpstream) {
		t.Fatalf("upstream: %v", err)
	}
	if fp.got.Currency != "eur" {
		t.Fatalf("currency should be lowered, got %q", fp.got.Currency)
	}
}

func TestNewStripeProvider(t *testing.T) {
	p := NewStripeProvider("sk_test_123")
	if p.API == nil || p.API.PaymentIntents == nil {
		t.Fatalf("stripe client not initialised")
	}
}
