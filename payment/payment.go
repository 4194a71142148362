// Package payment creates payment intents with the card processor.
package payment

import (
	"context"
	"fmt"
	"math"

	"sporty-backend/errs"
)

type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
}

type Gateway interface {
	CreateIntent(ctx context.Context, amount int64) (*Intent, error)
}

// ToMinorUnits converts a price in currency units to whole cents, rounding
// to the nearest cent.
func ToMinorUnits(price float64) (int64, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, fmt.Errorf("%w: %v", errs.ErrInvalidAmount, price)
	}

	cents := math.Round(price * 100)
	if cents < 1 || cents > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %v", errs.ErrInvalidAmount, price)
	}
	return int64(cents), nil
}

// Unconfigured rejects every intent. It stands in when no processor key
// is set.
type Unconfigured struct{}

func (Unconfigured) CreateIntent(context.Context, int64) (*Intent, error) {
	return nil, fmt.Errorf("%w: no payment processor configured", errs.ErrPayment)
}
