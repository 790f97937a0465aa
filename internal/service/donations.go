package service

import (
	"context"
	"errors"

	"github.com/iliyamo/crusade-registration/internal/payment"
)

// Donations starts card donations through the payment gateway.
type Donations struct {
	Gateway payment.Gateway
}

// Start creates a payment intent the client completes on-device.
func (s *Donations) Start(ctx context.Context, d payment.Donation) (payment.Intent, error) {
	if s.Gateway == nil {
		return payment.Intent{}, ErrPaymentsUnavailable
	}
	in, err := s.Gateway.CreateDonationIntent(ctx, d)
	if errors.Is(err, payment.ErrNotConfigured) {
		return payment.Intent{}, ErrPaymentsUnavailable
	}
	return in, err
}
