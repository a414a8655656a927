package paymentintents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/bldrfitness/subscription-payments/internal/identity"
	"github.com/bldrfitness/subscription-payments/pkg/db"
	"github.com/bldrfitness/subscription-payments/pkg/db/models"
	"github.com/bldrfitness/subscription-payments/pkg/enums"
	pkgerrors "github.com/bldrfitness/subscription-payments/pkg/errors"
	"github.com/bldrfitness/subscription-payments/pkg/logger"
	"github.com/bldrfitness/subscription-payments/pkg/metrics"
	pkgstripe "github.com/bldrfitness/subscription-payments/pkg/stripe"
)

type txRunner interface {
	WithCallerTx(ctx context.Context, caller db.CallerClaims, fn func(tx *gorm.DB) error) error
}

// Service creates payment intents for subscription purchases.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CreateResult, error)
}

// ServiceParams groups dependencies for the payment intent service.
type ServiceParams struct {
	Repo            Repository
	Tx              txRunner
	Identity        identity.Provider
	Processor       pkgstripe.PaymentIntentCreator
	Metrics         *metrics.PaymentIntentMetrics
	Logger          *logger.Logger
	ProductName     string
	DefaultCurrency string
}

type service struct {
	repo            Repository
	tx              txRunner
	identity        identity.Provider
	processor       pkgstripe.PaymentIntentCreator
	metrics         *metrics.PaymentIntentMetrics
	logg            *logger.Logger
	productName     string
	defaultCurrency enums.Currency
}

// NewService builds a payment intent service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if params.Identity == nil {
		return nil, errors.New("identity provider required")
	}
	if params.Processor == nil {
		return nil, errors.New("payment processor required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}

	productName := strings.TrimSpace(params.ProductName)
	if productName == "" {
		return nil, errors.New("product name required")
	}

	defaultCurrency := enums.CurrencyBRL
	if strings.TrimSpace(params.DefaultCurrency) != "" {
		parsed, err := enums.ParseCurrency(params.DefaultCurrency)
		if err != nil {
			return nil, fmt.Errorf("default currency: %w", err)
		}
		defaultCurrency = parsed
	}

	return &service{
		repo:            params.Repo,
		tx:              params.Tx,
		identity:        params.Identity,
		processor:       params.Processor,
		metrics:         params.Metrics,
		logg:            params.Logger,
		productName:     productName,
		defaultCurrency: defaultCurrency,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (result *CreateResult, err error) {
	defer func() {
		s.metrics.IncOutcome(outcomeFor(err), periodLabel(input.BillingPeriod))
	}()

	period, currency, err := s.validate(input)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithUserID(ctx, input.UserID)
	ctx = s.logg.WithPlanID(ctx, input.PlanID)
	ctx = s.logg.WithField(ctx, "billing_period", period.String())

	caller, err := s.verifyCaller(ctx, input)
	if err != nil {
		return nil, err
	}

	var plan *models.SubscriptionPlan
	err = s.tx.WithCallerTx(ctx, caller, func(tx *gorm.DB) error {
		found, findErr := s.repo.WithTx(tx).FindActivePlan(ctx, input.PlanID)
		if findErr != nil {
			return findErr
		}
		plan = found
		return nil
	})
	if err != nil {
		if !db.IsRecordNotFound(err) {
			s.logg.Warn(s.logg.WithError(ctx, err), "payment_intent.plan_lookup_failed")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, MsgPlanNotFound)
	}
	s.logg.Debug(ctx, "payment_intent.plan_resolved")

	amount := plan.PriceFor(period)
	intent, err := s.createIntent(ctx, input, plan, period, currency, ToMinorUnits(amount, currency))
	if err != nil {
		return nil, err
	}

	record := &models.PaymentIntentRecord{
		UserID:                input.UserID,
		StripePaymentIntentID: intent.ID,
		Amount:                amount,
		Currency:              currency,
		Status:                enums.PaymentStatusPending,
		PlanType:              plan.PlanType,
		BillingPeriod:         period,
		Metadata: datatypes.JSONMap{
			"plan_id":   plan.ID,
			"plan_name": plan.Name,
		},
	}

	result = &CreateResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		PlanName:        plan.Name,
		Amount:          amount,
		Currency:        currency,
		BillingPeriod:   period,
	}

	ctx = s.logg.WithField(ctx, "payment_intent_id", intent.ID)
	if recordErr := s.tx.WithCallerTx(ctx, caller, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreateRecord(ctx, record)
	}); recordErr != nil {
		s.metrics.IncRecordFailure()
		s.logg.Error(s.logg.WithError(ctx, recordErr), "payment_intent.record_failed", recordErr)
	} else {
		id := record.ID
		result.PaymentID = &id
	}

	s.logg.Info(ctx, "payment_intent.created")
	return result, nil
}

func (s *service) validate(input CreateInput) (enums.BillingPeriod, enums.Currency, error) {
	if strings.TrimSpace(input.Token) == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeUnauthorized, MsgMissingAuthorization)
	}
	if input.PlanID == "" || input.BillingPeriod == "" || input.UserID == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, MsgMissingParameters)
	}

	period, err := enums.ParseBillingPeriod(input.BillingPeriod)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, MsgInvalidBillingPeriod)
	}

	currency := s.defaultCurrency
	if strings.TrimSpace(input.Currency) != "" {
		parsed, err := enums.ParseCurrency(input.Currency)
		if err != nil {
			return "", "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("Unsupported currency %q", input.Currency))
		}
		currency = parsed
	}
	return period, currency, nil
}

func (s *service) verifyCaller(ctx context.Context, input CreateInput) (db.CallerClaims, error) {
	ident, err := s.identity.Resolve(ctx, input.Token)
	if err != nil {
		return db.CallerClaims{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, MsgUserMismatch)
	}
	if ident == nil || ident.UserID != input.UserID {
		return db.CallerClaims{}, pkgerrors.New(pkgerrors.CodeUnauthorized, MsgUserMismatch)
	}
	return db.CallerClaims{
		Subject: ident.UserID,
		Role:    ident.Role,
		Raw:     ident.Claims,
	}, nil
}

func (s *service) createIntent(
	ctx context.Context,
	input CreateInput,
	plan *models.SubscriptionPlan,
	period enums.BillingPeriod,
	currency enums.Currency,
	minorUnits int64,
) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(minorUnits),
		Currency: stripe.String(currency.String()),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Description: stripe.String(fmt.Sprintf("%s - %s (%s)", s.productName, plan.Name, period)),
		Metadata: map[string]string{
			"user_id":        input.UserID,
			"plan_id":        plan.ID,
			"plan_name":      plan.Name,
			"billing_period": period.String(),
			"plan_type":      plan.PlanType,
		},
	}

	started := time.Now()
	intent, err := s.processor.CreatePaymentIntent(ctx, params)
	s.metrics.ObserveProcessor(time.Since(started))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, pkgstripe.ErrorMessage(err))
	}
	if intent == nil || intent.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment processor returned no payment intent")
	}
	return intent, nil
}

func periodLabel(raw string) string {
	if enums.BillingPeriod(raw).IsValid() {
		return raw
	}
	return "invalid"
}

func outcomeFor(err error) string {
	if err == nil {
		return metrics.OutcomeCreated
	}
	switch pkgerrors.As(err).Code() {
	case pkgerrors.CodeValidation:
		return metrics.OutcomeValidationFailed
	case pkgerrors.CodeUnauthorized:
		return metrics.OutcomeUnauthorized
	case pkgerrors.CodeNotFound:
		return metrics.OutcomePlanNotFound
	case pkgerrors.CodeDependency:
		return metrics.OutcomeProcessorFailed
	default:
		return metrics.OutcomeInternalError
	}
}
