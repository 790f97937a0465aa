package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCents(t *testing.T) {
	assert.Equal(t, int64(1000), Donation{Amount: 10}.Cents())
	assert.Equal(t, int64(1999), Donation{Amount: 19.99}.Cents())
	assert.Equal(t, int64(100), Donation{Amount: 1}.Cents())
}

func TestUnconfiguredGateway(t *testing.T) {
	g := NewStripeGateway("", "pk_test", 0)
	_, err := g.CreateDonationIntent(context.Background(), Donation{Amount: 5})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
