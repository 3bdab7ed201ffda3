package service

import (
	"context"
	"fmt"
	"strings"

	"carwash/internal/carwash"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

type StripeService struct {
	Currency   string
	SuccessURL string
	CancelURL  string
}

// NewStripeService configures the Stripe client. It returns nil without a secret key.
func NewStripeService(secretKey, currency, successURL, cancelURL string) *StripeService {
	if secretKey == "" {
		return nil
	}
	stripe.Key = secretKey
	return &StripeService{Currency: strings.ToLower(currency), SuccessURL: successURL, CancelURL: cancelURL}
}

// LineItems prices every service of the reservation separately. Amounts are in the smallest currency unit.
func (s *StripeService) LineItems(r carwash.Reservation) []*stripe.CheckoutSessionLineItemParams {
	items := make([]*stripe.CheckoutSessionLineItemParams, 0, len(r.Services))
	for _, t := range r.Services {
		amount := carwash.Price([]carwash.ServiceType{t}, r.Mpv)
		if amount == 0 {
			continue
		}
		items = append(items, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(s.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("%s (%s)", t, r.VehiclePlateNumber)),
				},
				UnitAmount: stripe.Int64(int64(amount) * 100),
			},
			Quantity: stripe.Int64(1),
		})
	}
	return items
}

func (s *StripeService) CreateCheckoutSession(ctx context.Context, r carwash.Reservation, customerEmail string) (string, string, error) {
	items := s.LineItems(r)
	if len(items) == 0 {
		return "", "", fmt.Errorf("reservation %s has nothing to pay", r.ID)
	}
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          items,
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(s.SuccessURL),
		CancelURL:          stripe.String(s.CancelURL),
		ClientReferenceID:  stripe.String(r.ID),
	}
	params.Context = ctx
	if customerEmail != "" {
		params.CustomerEmail = stripe.String(customerEmail)
	}
	params.AddMetadata("reservation_id", r.ID)

	sess, err := session.New(params)
	if err != nil {
		return "", "", err
	}
	return sess.URL, sess.ID, nil
}
