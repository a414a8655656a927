package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	paymentintentsvc "github.com/bldrfitness/subscription-payments/internal/paymentintents"
	"github.com/bldrfitness/subscription-payments/pkg/config"
	"github.com/bldrfitness/subscription-payments/pkg/enums"
	"github.com/bldrfitness/subscription-payments/pkg/logger"
	"github.com/bldrfitness/subscription-payments/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubPaymentIntentService struct {
	calls int
}

func (s *stubPaymentIntentService) Create(ctx context.Context, input paymentintentsvc.CreateInput) (*paymentintentsvc.CreateResult, error) {
	s.calls++
	return &paymentintentsvc.CreateResult{
		ClientSecret:    "pi_1_secret",
		PaymentIntentID: "pi_1",
		PlanName:        "Pro",
		Amount:          decimal.RequireFromString("49.90"),
		Currency:        enums.CurrencyBRL,
		BillingPeriod:   enums.BillingPeriodMonthly,
	}, nil
}

func newTestRouter(t *testing.T, svc *stubPaymentIntentService) (http.Handler, *prometheus.Registry) {
	t.Helper()
	cfg := &config.Config{
		App:       config.AppConfig{Env: "dev"},
		RateLimit: config.RateLimitConfig{Window: time.Minute, PerIP: 5, PerToken: 5},
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	reg := prometheus.NewRegistry()
	return NewRouter(cfg, logg, stubPinger{}, nil, svc, metrics.NewHTTPMetrics(reg), reg), reg
}

func TestPaymentIntentRoutes(t *testing.T) {
	for _, path := range []string{"/create-subscription-payment-intent", "/functions/v1/create-subscription-payment-intent"} {
		t.Run(path, func(t *testing.T) {
			svc := &stubPaymentIntentService{}
			router, _ := newTestRouter(t, svc)

			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"plan_id":"p","billing_period":"monthly","user_id":"u"}`))
			req.Header.Set("Authorization", "Bearer token")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
				t.Fatalf("missing cors header")
			}
			if rec.Header().Get("X-Request-Id") == "" {
				t.Fatalf("missing request id header")
			}
			if svc.calls != 1 {
				t.Fatalf("expected service call, got %d", svc.calls)
			}
		})
	}
}

func TestPaymentIntentPreflight(t *testing.T) {
	svc := &stubPaymentIntentService{}
	router, _ := newTestRouter(t, svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/create-subscription-payment-intent", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected preflight response %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Access-Control-Allow-Headers") != "*" {
		t.Fatalf("missing allow headers")
	}
	if svc.calls != 0 {
		t.Fatal("preflight must not reach the service")
	}
}

func TestErrorResponsesCarryCORSHeaders(t *testing.T) {
	router, _ := newTestRouter(t, &stubPaymentIntentService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/create-subscription-payment-intent", strings.NewReader(`{}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing cors header on error")
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != paymentintentsvc.MsgMissingAuthorization {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	router, _ := newTestRouter(t, &stubPaymentIntentService{})

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Fatalf("expected request counter in exposition: %s", rec.Body.String())
	}
}
