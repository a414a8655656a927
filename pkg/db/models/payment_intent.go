package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/bldrfitness/subscription-payments/pkg/enums"
)

// PaymentIntentRecord is the local audit row written once per processor-side intent.
// Amount is stored in major units.
type PaymentIntentRecord struct {
	ID                    uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID                string              `gorm:"column:user_id;type:uuid;not null;index"`
	StripePaymentIntentID string              `gorm:"column:stripe_payment_intent_id;not null;uniqueIndex"`
	Amount                decimal.Decimal     `gorm:"column:amount;type:numeric(10,2);not null"`
	Currency              enums.Currency      `gorm:"column:currency;not null"`
	Status                enums.PaymentStatus `gorm:"column:status;not null;default:'pending'"`
	PlanType              string              `gorm:"column:plan_type"`
	BillingPeriod         enums.BillingPeriod `gorm:"column:billing_period"`
	Metadata              datatypes.JSONMap   `gorm:"column:metadata;type:jsonb"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (PaymentIntentRecord) TableName() string { return "payment_intents" }

// BeforeCreate assigns an id when the caller left it empty.
func (r *PaymentIntentRecord) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
