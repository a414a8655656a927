package paymentintents

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bldrfitness/subscription-payments/pkg/enums"
)

// Public failure messages. Callers match on these strings.
const (
	MsgMissingAuthorization = "Missing Authorization header"
	MsgMissingParameters    = "Missing required parameters: plan_id, billing_period, user_id"
	MsgInvalidBillingPeriod = `Invalid billing_period. Must be "monthly" or "annual"`
	MsgUserMismatch         = "Unauthorized: User ID mismatch"
	MsgPlanNotFound         = "Subscription plan not found or inactive"
)

// CreateInput is a payment intent request after transport decoding.
type CreateInput struct {
	Token         string
	PlanID        string
	BillingPeriod string
	Currency      string
	UserID        string
}

// CreateResult summarizes a created payment intent.
// PaymentID is nil when the local record could not be written.
type CreateResult struct {
	ClientSecret    string
	PaymentIntentID string
	PaymentID       *uuid.UUID
	PlanName        string
	Amount          decimal.Decimal
	Currency        enums.Currency
	BillingPeriod   enums.BillingPeriod
}

// ToMinorUnits converts a major-unit amount to the processor's integer minor
// units for currency, rounding half away from zero. Zero-decimal currencies
// are only rounded.
func ToMinorUnits(amount decimal.Decimal, currency enums.Currency) int64 {
	return amount.Shift(currency.MinorUnitExponent()).Round(0).IntPart()
}
