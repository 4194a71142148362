package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
	"sporty-backend/errs"
	"sporty-backend/log"
)

const DefaultCurrency = "usd"

type Stripe struct {
	api      *client.API
	currency string
}

func NewStripe(secretKey, currency string) *Stripe {
	if currency == "" {
		currency = DefaultCurrency
	}

	return &Stripe{api: client.New(secretKey, nil), currency: currency}
}

func (s *Stripe) CreateIntent(ctx context.Context, amount int64) (*Intent, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %d", errs.ErrInvalidAmount, amount)
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(s.currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		log.Logger.Error("payment intent failed", zap.Error(err), zap.Int64("amount", amount))
		return nil, fmt.Errorf("%w: %v", errs.ErrPayment, err)
	}

	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}
