package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bldrfitness/subscription-payments/pkg/enums"
)

// SubscriptionPlan is a purchasable plan. Only active plans may be sold.
type SubscriptionPlan struct {
	ID           string          `gorm:"column:id;type:uuid;primaryKey"`
	Name         string          `gorm:"column:name;not null"`
	PlanType     string          `gorm:"column:plan_type;not null"`
	MonthlyPrice decimal.Decimal `gorm:"column:monthly_price;type:numeric(10,2);not null"`
	AnnualPrice  decimal.Decimal `gorm:"column:annual_price;type:numeric(10,2);not null"`
	IsActive     bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// PriceFor returns the major-unit price charged for the billing period.
func (p SubscriptionPlan) PriceFor(period enums.BillingPeriod) decimal.Decimal {
	if period == enums.BillingPeriodAnnual {
		return p.AnnualPrice
	}
	return p.MonthlyPrice
}
