package paymentintents

import (
	"context"

	"gorm.io/gorm"

	"github.com/bldrfitness/subscription-payments/pkg/db/models"
)

// Repository handles plan lookups and payment intent records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActivePlan(ctx context.Context, planID string) (*models.SubscriptionPlan, error)
	CreateRecord(ctx context.Context, record *models.PaymentIntentRecord) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindActivePlan returns gorm.ErrRecordNotFound when no active plan has planID.
func (r *repository) FindActivePlan(ctx context.Context, planID string) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", planID, true).
		Take(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *repository) CreateRecord(ctx context.Context, record *models.PaymentIntentRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}
