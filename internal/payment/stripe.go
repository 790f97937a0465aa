// Package payment creates donation payment intents with Stripe.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// ErrNotConfigured is returned when no Stripe secret key is set.
var ErrNotConfigured = errors.New("payments are not configured")

// Donation describes a one-off USD donation.
type Donation struct {
	Amount     float64 // dollars
	DonorName  string
	DonorEmail string
}

// Cents converts the dollar amount, rounding to the nearest cent.
func (d Donation) Cents() int64 { return int64(math.Round(d.Amount * 100)) }

// Intent is what a client needs to confirm the payment.
type Intent struct {
	ID             string `json:"payment_intent_id"`
	ClientSecret   string `json:"client_secret"`
	PublishableKey string `json:"publishable_key"`
}

// Gateway creates payment intents.
type Gateway interface {
	CreateDonationIntent(ctx context.Context, d Donation) (Intent, error)
}

// StripeGateway implements Gateway with stripe-go.
type StripeGateway struct {
	api            *client.API
	publishableKey string
}

// NewStripeGateway returns a gateway for secretKey.  With an empty key
// every call fails with ErrNotConfigured.
func NewStripeGateway(secretKey, publishableKey string, timeout time.Duration) *StripeGateway {
	g := &StripeGateway{publishableKey: publishableKey}
	if secretKey != "" {
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		g.api = client.New(secretKey, stripe.NewBackends(&http.Client{Timeout: timeout}))
	}
	return g
}

func (g *StripeGateway) CreateDonationIntent(ctx context.Context, d Donation) (Intent, error) {
	if g.api == nil {
		return Intent{}, ErrNotConfigured
	}
	params := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(d.Cents()),
		Currency:     stripe.String(string(stripe.CurrencyUSD)),
		ReceiptEmail: stripe.String(d.DonorEmail),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("donor_name", d.DonorName)
	params.AddMetadata("donor_email", d.DonorEmail)
	params.AddMetadata("purpose", "donation")
	params.AddMetadata("source", "mobile_app")

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, fmt.Errorf("create payment intent: %w", err)
	}
	return Intent{ID: pi.ID, ClientSecret: pi.ClientSecret, PublishableKey: g.publishableKey}, nil
}
