package paymentintents

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/bldrfitness/subscription-payments/api/responses"
	"github.com/bldrfitness/subscription-payments/api/validators"
	paymentintentsvc "github.com/bldrfitness/subscription-payments/internal/paymentintents"
	pkgerrors "github.com/bldrfitness/subscription-payments/pkg/errors"
	"github.com/bldrfitness/subscription-payments/pkg/logger"
)

// PaymentIntentService describes the service methods used by the HTTP controller.
type PaymentIntentService interface {
	Create(ctx context.Context, input paymentintentsvc.CreateInput) (*paymentintentsvc.CreateResult, error)
}

type createPaymentIntentRequest struct {
	PlanID        string `json:"plan_id" validate:"required"`
	BillingPeriod string `json:"billing_period" validate:"required,oneof=monthly annual"`
	Currency      string `json:"currency"`
	UserID        string `json:"user_id" validate:"required"`
}

func (createPaymentIntentRequest) ValidationMessage(errs validator.ValidationErrors) string {
	switch {
	case validators.HasTag(errs, "required"):
		return paymentintentsvc.MsgMissingParameters
	case validators.HasTag(errs, "oneof"):
		return paymentintentsvc.MsgInvalidBillingPeriod
	}
	return ""
}

type createPaymentIntentResponse struct {
	ClientSecret    string  `json:"client_secret"`
	PaymentIntentID string  `json:"payment_intent_id"`
	PaymentID       *string `json:"payment_id"`
	PlanName        string  `json:"plan_name"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	BillingPeriod   string  `json:"billing_period"`
}

// CreateSubscriptionPaymentIntent opens a payment intent for the caller's chosen plan.
func CreateSubscriptionPaymentIntent(svc PaymentIntentService, logg *logger.Logger, policy responses.StatusPolicy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, policy, pkgerrors.New(pkgerrors.CodeInternal, "payment intent service unavailable"))
			return
		}

		token, err := validators.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			responses.WriteError(ctx, logg, w, policy, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, paymentintentsvc.MsgMissingAuthorization))
			return
		}

		var req createPaymentIntentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, policy, err)
			return
		}

		result, err := svc.Create(ctx, paymentintentsvc.CreateInput{
			Token:         token,
			PlanID:        req.PlanID,
			BillingPeriod: req.BillingPeriod,
			Currency:      validators.SanitizeString(req.Currency, 16),
			UserID:        req.UserID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, policy, err)
			return
		}

		responses.WriteSuccess(w, toCreateResponse(result))
	}
}

func toCreateResponse(result *paymentintentsvc.CreateResult) createPaymentIntentResponse {
	resp := createPaymentIntentResponse{
		ClientSecret:    result.ClientSecret,
		PaymentIntentID: result.PaymentIntentID,
		PlanName:        result.PlanName,
		Amount:          result.Amount.InexactFloat64(),
		Currency:        result.Currency.String(),
		BillingPeriod:   result.BillingPeriod.String(),
	}
	if result.PaymentID != nil {
		id := result.PaymentID.String()
		resp.PaymentID = &id
	}
	return resp
}
