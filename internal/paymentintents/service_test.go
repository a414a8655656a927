package paymentintents

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/bldrfitness/subscription-payments/internal/identity"
	"github.com/bldrfitness/subscription-payments/pkg/db"
	"github.com/bldrfitness/subscription-payments/pkg/db/models"
	"github.com/bldrfitness/subscription-payments/pkg/enums"
	pkgerrors "github.com/bldrfitness/subscription-payments/pkg/errors"
	"github.com/bldrfitness/subscription-payments/pkg/logger"
)

const (
	testUserID = "8d1f5c8e-1f7e-4c39-9d8e-0d0f6a1b2c3d"
	testPlanID = "2b8f3c1a-4d5e-4f60-8a9b-0c1d2e3f4a5b"
)

type stubRepo struct {
	plan       *models.SubscriptionPlan
	findErr    error
	createErr  error
	findCalls  int
	created    []*models.PaymentIntentRecord
	lastPlanID string
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubRepo) FindActivePlan(ctx context.Context, planID string) (*models.SubscriptionPlan, error) {
	s.findCalls++
	s.lastPlanID = planID
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.plan == nil || s.plan.ID != planID || !s.plan.IsActive {
		return nil, gorm.ErrRecordNotFound
	}
	return s.plan, nil
}

func (s *stubRepo) CreateRecord(ctx context.Context, record *models.PaymentIntentRecord) error {
	if s.createErr != nil {
		return s.createErr
	}
	if err := record.BeforeCreate(nil); err != nil {
		return err
	}
	s.created = append(s.created, record)
	return nil
}

type stubTxRunner struct {
	callers []db.CallerClaims
}

func (s *stubTxRunner) WithCallerTx(ctx context.Context, caller db.CallerClaims, fn func(tx *gorm.DB) error) error {
	s.callers = append(s.callers, caller)
	return fn(nil)
}

type stubIdentity struct {
	identity *identity.Identity
	err      error
	tokens   []string
}

func (s *stubIdentity) Resolve(ctx context.Context, token string) (*identity.Identity, error) {
	s.tokens = append(s.tokens, token)
	if s.err != nil {
		return nil, s.err
	}
	return s.identity, nil
}

type stubProcessor struct {
	intent *stripe.PaymentIntent
	err    error
	calls  []*stripe.PaymentIntentCreateParams
}

func (s *stubProcessor) CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error) {
	s.calls = append(s.calls, params)
	if s.err != nil {
		return nil, s.err
	}
	return s.intent, nil
}

type fixture struct {
	svc       Service
	repo      *stubRepo
	tx        *stubTxRunner
	identity  *stubIdentity
	processor *stubProcessor
	logs      *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo: &stubRepo{plan: &models.SubscriptionPlan{
			ID:           testPlanID,
			Name:         "Pro",
			PlanType:     "pro",
			MonthlyPrice: decimal.RequireFromString("49.90"),
			AnnualPrice:  decimal.RequireFromString("499.00"),
			IsActive:     true,
		}},
		tx:        &stubTxRunner{},
		identity:  &stubIdentity{identity: &identity.Identity{UserID: testUserID, Role: "authenticated"}},
		processor: &stubProcessor{intent: &stripe.PaymentIntent{ID: "pi_123", ClientSecret: "pi_123_secret_abc"}},
		logs:      &bytes.Buffer{},
	}
	svc, err := NewService(ServiceParams{
		Repo:        f.repo,
		Tx:          f.tx,
		Identity:    f.identity,
		Processor:   f.processor,
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: f.logs}),
		ProductName: "BLDR Fitness",
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func validInput() CreateInput {
	return CreateInput{
		Token:         "token-abc",
		PlanID:        testPlanID,
		BillingPeriod: "monthly",
		UserID:        testUserID,
	}
}

func requireCode(t *testing.T, err error, code pkgerrors.Code, msg string) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	if typed.Code() != code {
		t.Fatalf("expected code %s, got %s", code, typed.Code())
	}
	if typed.Message() != msg {
		t.Fatalf("expected message %q, got %q", msg, typed.Message())
	}
}

func TestCreateMonthlyPlanChargesMinorUnits(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if len(f.processor.calls) != 1 {
		t.Fatalf("expected one processor call, got %d", len(f.processor.calls))
	}
	params := f.processor.calls[0]
	if got := *params.Amount; got != 4990 {
		t.Fatalf("expected amount 4990, got %d", got)
	}
	if got := *params.Currency; got != "brl" {
		t.Fatalf("expected default currency brl, got %q", got)
	}
	if params.AutomaticPaymentMethods == nil || !*params.AutomaticPaymentMethods.Enabled {
		t.Fatal("expected automatic payment methods enabled")
	}
	if got := *params.Description; got != "BLDR Fitness - Pro (monthly)" {
		t.Fatalf("unexpected description %q", got)
	}
	wantMeta := map[string]string{
		"user_id":        testUserID,
		"plan_id":        testPlanID,
		"plan_name":      "Pro",
		"billing_period": "monthly",
		"plan_type":      "pro",
	}
	for k, v := range wantMeta {
		if params.Metadata[k] != v {
			t.Fatalf("metadata %s: expected %q, got %q", k, v, params.Metadata[k])
		}
	}

	if result.ClientSecret != "pi_123_secret_abc" || result.PaymentIntentID != "pi_123" {
		t.Fatalf("unexpected result %+v", result)
	}
	if !result.Amount.Equal(decimal.RequireFromString("49.9")) {
		t.Fatalf("expected amount 49.9, got %s", result.Amount)
	}
	if result.PaymentID == nil {
		t.Fatal("expected payment id when record is written")
	}
	if result.PlanName != "Pro" || result.BillingPeriod != enums.BillingPeriodMonthly {
		t.Fatalf("unexpected result %+v", result)
	}

	if len(f.repo.created) != 1 {
		t.Fatalf("expected one record, got %d", len(f.repo.created))
	}
	record := f.repo.created[0]
	if record.Status != enums.PaymentStatusPending {
		t.Fatalf("expected pending status, got %s", record.Status)
	}
	if !record.Amount.Equal(decimal.RequireFromString("49.90")) {
		t.Fatalf("expected major unit amount, got %s", record.Amount)
	}
	if record.StripePaymentIntentID != "pi_123" || record.UserID != testUserID {
		t.Fatalf("unexpected record %+v", record)
	}
	if record.Metadata["plan_id"] != testPlanID || record.Metadata["plan_name"] != "Pro" {
		t.Fatalf("unexpected record metadata %v", record.Metadata)
	}
	if *result.PaymentID != record.ID {
		t.Fatalf("expected payment id %s, got %s", record.ID, *result.PaymentID)
	}

	if len(f.tx.callers) != 2 {
		t.Fatalf("expected lookup and insert to run scoped, got %d", len(f.tx.callers))
	}
	if f.tx.callers[0].Subject != testUserID || f.tx.callers[0].Role != "authenticated" {
		t.Fatalf("unexpected caller claims %+v", f.tx.callers[0])
	}
	if f.identity.tokens[0] != "token-abc" {
		t.Fatalf("unexpected token %q", f.identity.tokens[0])
	}
}

func TestCreateAnnualUsesAnnualPrice(t *testing.T) {
	f := newFixture(t)
	input := validInput()
	input.BillingPeriod = "annual"
	input.Currency = " USD "

	result, err := f.svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := *f.processor.calls[0].Amount; got != 49900 {
		t.Fatalf("expected amount 49900, got %d", got)
	}
	if got := *f.processor.calls[0].Currency; got != "usd" {
		t.Fatalf("expected currency usd, got %q", got)
	}
	if result.Currency != enums.CurrencyUSD {
		t.Fatalf("unexpected currency %q", result.Currency)
	}
}

func TestCreateRecordFailureStillSucceeds(t *testing.T) {
	f := newFixture(t)
	f.repo.createErr = errors.New("permission denied for table payment_intents")

	result, err := f.svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("expected success despite record failure, got %v", err)
	}
	if result.PaymentID != nil {
		t.Fatalf("expected nil payment id, got %v", *result.PaymentID)
	}
	if result.ClientSecret != "pi_123_secret_abc" {
		t.Fatalf("expected client secret, got %q", result.ClientSecret)
	}
	if !bytes.Contains(f.logs.Bytes(), []byte("payment_intent.record_failed")) {
		t.Fatalf("expected record failure to be logged; logs=%s", f.logs.String())
	}
}

func TestCreateUserMismatchSkipsProcessor(t *testing.T) {
	f := newFixture(t)
	f.identity.identity = &identity.Identity{UserID: "someone-else"}

	_, err := f.svc.Create(context.Background(), validInput())
	requireCode(t, err, pkgerrors.CodeUnauthorized, MsgUserMismatch)
	if len(f.processor.calls) != 0 {
		t.Fatal("processor must not be called on mismatch")
	}
	if f.repo.findCalls != 0 {
		t.Fatal("plan must not be looked up on mismatch")
	}
}

func TestCreateIdentityErrorReportsMismatch(t *testing.T) {
	f := newFixture(t)
	f.identity.err = pkgerrors.New(pkgerrors.CodeUnauthorized, "auth user request rejected")

	_, err := f.svc.Create(context.Background(), validInput())
	requireCode(t, err, pkgerrors.CodeUnauthorized, MsgUserMismatch)
	if len(f.processor.calls) != 0 {
		t.Fatal("processor must not be called when identity fails")
	}
}

func TestCreatePlanMissingOrInactive(t *testing.T) {
	f := newFixture(t)
	f.repo.plan.IsActive = false

	_, err := f.svc.Create(context.Background(), validInput())
	requireCode(t, err, pkgerrors.CodeNotFound, MsgPlanNotFound)
	if len(f.processor.calls) != 0 {
		t.Fatal("processor must not be called for inactive plan")
	}

	f = newFixture(t)
	input := validInput()
	input.PlanID = "missing"
	_, err = f.svc.Create(context.Background(), input)
	requireCode(t, err, pkgerrors.CodeNotFound, MsgPlanNotFound)
	if len(f.processor.calls) != 0 {
		t.Fatal("processor must not be called for missing plan")
	}
}

func TestCreateValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CreateInput)
		code   pkgerrors.Code
		msg    string
	}{
		{name: "missing token", mutate: func(in *CreateInput) { in.Token = "" }, code: pkgerrors.CodeUnauthorized, msg: MsgMissingAuthorization},
		{name: "missing plan", mutate: func(in *CreateInput) { in.PlanID = "" }, code: pkgerrors.CodeValidation, msg: MsgMissingParameters},
		{name: "missing user", mutate: func(in *CreateInput) { in.UserID = "" }, code: pkgerrors.CodeValidation, msg: MsgMissingParameters},
		{name: "missing period", mutate: func(in *CreateInput) { in.BillingPeriod = "" }, code: pkgerrors.CodeValidation, msg: MsgMissingParameters},
		{name: "bad period", mutate: func(in *CreateInput) { in.BillingPeriod = "weekly" }, code: pkgerrors.CodeValidation, msg: MsgInvalidBillingPeriod},
		{name: "bad currency", mutate: func(in *CreateInput) { in.Currency = "doge" }, code: pkgerrors.CodeValidation, msg: `Unsupported currency "doge"`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			input := validInput()
			tc.mutate(&input)

			_, err := f.svc.Create(context.Background(), input)
			requireCode(t, err, tc.code, tc.msg)
			if len(f.identity.tokens) != 0 || len(f.processor.calls) != 0 {
				t.Fatal("no downstream calls expected on validation failure")
			}
		})
	}
}

func TestCreateProcessorErrorUsesStripeMessage(t *testing.T) {
	f := newFixture(t)
	f.processor.err = &stripe.Error{Msg: "Amount must be at least R$0.50 brl"}

	_, err := f.svc.Create(context.Background(), validInput())
	requireCode(t, err, pkgerrors.CodeDependency, "Amount must be at least R$0.50 brl")
	if len(f.repo.created) != 0 {
		t.Fatal("no record expected when processor fails")
	}
}

func TestToMinorUnitsRoundsHalfAwayFromZero(t *testing.T) {
	cases := map[string]int64{
		"49.90":  4990,
		"10.005": 1001,
		"10.004": 1000,
		"0.015":  2,
		"19.99":  1999,
		"100":    10000,
	}
	for raw, want := range cases {
		if got := ToMinorUnits(decimal.RequireFromString(raw), enums.CurrencyUSD); got != want {
			t.Fatalf("%s: expected %d, got %d", raw, want, got)
		}
	}
}

func TestToMinorUnitsZeroDecimalCurrency(t *testing.T) {
	cases := map[string]int64{
		"4990":    4990,
		"4990.00": 4990,
		"49.90":   50,
		"10.5":    11,
	}
	for raw, want := range cases {
		if got := ToMinorUnits(decimal.RequireFromString(raw), enums.CurrencyCLP); got != want {
			t.Fatalf("%s: expected %d, got %d", raw, want, got)
		}
	}
}

func TestCreateSendsMinorUnitsForEveryAllowedCurrency(t *testing.T) {
	want := map[enums.Currency]int64{
		enums.CurrencyBRL: 499000,
		enums.CurrencyUSD: 499000,
		enums.CurrencyEUR: 499000,
		enums.CurrencyGBP: 499000,
		enums.CurrencyARS: 499000,
		enums.CurrencyCLP: 4990,
		enums.CurrencyCOP: 499000,
		enums.CurrencyMXN: 499000,
		enums.CurrencyCAD: 499000,
		enums.CurrencyAUD: 499000,
	}

	for _, currency := range enums.Currencies() {
		t.Run(currency.String(), func(t *testing.T) {
			expected, ok := want[currency]
			if !ok {
				t.Fatalf("no expected processor amount for allowed currency %s", currency)
			}

			f := newFixture(t)
			f.repo.plan.MonthlyPrice = decimal.RequireFromString("4990.00")
			input := validInput()
			input.Currency = strings.ToUpper(currency.String())

			result, err := f.svc.Create(context.Background(), input)
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			params := f.processor.calls[0]
			if got := *params.Amount; got != expected {
				t.Fatalf("expected processor amount %d, got %d", expected, got)
			}
			if got := *params.Currency; got != currency.String() {
				t.Fatalf("expected currency %s, got %s", currency, got)
			}
			if !result.Amount.Equal(decimal.RequireFromString("4990")) {
				t.Fatalf("response amount must stay in major units, got %s", result.Amount)
			}
		})
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected missing dependencies to fail")
	}

	_, err := NewService(ServiceParams{
		Repo:            &stubRepo{},
		Tx:              &stubTxRunner{},
		Identity:        &stubIdentity{},
		Processor:       &stubProcessor{},
		Logger:          logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
		ProductName:     "BLDR Fitness",
		DefaultCurrency: "xyz",
	})
	if err == nil {
		t.Fatal("expected unsupported default currency to fail")
	}
}
