package handler

import (
	"encoding/json"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crusade-registration/internal/payment"
	"github.com/iliyamo/crusade-registration/internal/response"
	"github.com/iliyamo/crusade-registration/internal/service"
	"github.com/iliyamo/crusade-registration/internal/validation"
)

const (
	minDonation = 1
	maxDonation = 10000
)

// DonationHandler serves /api/v1/donations.
type DonationHandler struct {
	Donations *service.Donations
}

func NewDonationHandler(d *service.Donations) *DonationHandler {
	return &DonationHandler{Donations: d}
}

type donationReq struct {
	Amount     json.Number `json:"amount"`
	DonorName  string      `json:"donor_name" validate:"required" msg:"required=Donor name is required"`
	DonorEmail string      `json:"donor_email" validate:"required,email" msg:"required=Donor email is required"`
}

// amount checks the donation amount, recording problems in errs.
func (r donationReq) amount(errs validation.Errors) float64 {
	if r.Amount == "" {
		errs.Add("amount", "Amount is required")
		return 0
	}
	v, err := r.Amount.Float64()
	switch {
	case err != nil:
		errs.Add("amount", "Amount must be a number")
	case v < minDonation:
		errs.Add("amount", "Minimum donation is $1")
	case v > maxDonation:
		errs.Add("amount", "Maximum donation is $10,000")
	}
	return v
}

// CreatePaymentIntent starts a card donation.
func (h *DonationHandler) CreatePaymentIntent(c echo.Context) error {
	var req donationReq
	if err := c.Bind(&req); err != nil {
		return response.Validation(c, validation.Errors{"amount": "Amount must be a number"})
	}
	validation.TrimStrings(&req)
	errs := validation.Struct(&req)
	if errs == nil {
		errs = validation.Errors{}
	}
	amount := req.amount(errs)
	if !errs.Empty() {
		return response.Validation(c, errs)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	intent, err := h.Donations.Start(ctx, payment.Donation{
		Amount:     amount,
		DonorName:  req.DonorName,
		DonorEmail: req.DonorEmail,
	})
	if err != nil {
		return fail(c, err, "Failed to create payment intent")
	}
	return response.Success(c, intent, "Payment intent created successfully")
}
