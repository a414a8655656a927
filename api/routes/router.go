package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bldrfitness/subscription-payments/api/controllers"
	paymentintentcontrollers "github.com/bldrfitness/subscription-payments/api/controllers/paymentintents"
	"github.com/bldrfitness/subscription-payments/api/middleware"
	"github.com/bldrfitness/subscription-payments/api/responses"
	"github.com/bldrfitness/subscription-payments/pkg/config"
	"github.com/bldrfitness/subscription-payments/pkg/db"
	"github.com/bldrfitness/subscription-payments/pkg/logger"
	"github.com/bldrfitness/subscription-payments/pkg/metrics"
	"github.com/bldrfitness/subscription-payments/pkg/redis"
)

const (
	paymentIntentPath        = "/create-subscription-payment-intent"
	paymentIntentGatewayPath = "/functions/v1" + paymentIntentPath
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	paymentIntentService paymentintentcontrollers.PaymentIntentService,
	httpMetrics *metrics.HTTPMetrics,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	status := responses.PolicyFor(cfg.HTTP.DistinctErrorStatus)

	r.Use(
		middleware.CORS(),
		middleware.Recoverer(logg, status),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
	)

	readiness := []controllers.ReadinessCheck{{Name: "database", Pinger: dbP}}
	rateLimited := func(next http.Handler) http.Handler { return next }
	if redisClient != nil {
		readiness = append(readiness, controllers.ReadinessCheck{Name: "redis", Pinger: redisClient})
		policy := middleware.NewRateLimitPolicy(
			"payment_intent",
			cfg.RateLimit.Window,
			cfg.RateLimit.PerIP,
			cfg.RateLimit.PerToken,
		).WithTrustedProxyHops(cfg.RateLimit.TrustedProxyHops)
		rateLimited = middleware.RateLimit(policy, redisClient, logg, status)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness...))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	create := paymentintentcontrollers.CreateSubscriptionPaymentIntent(paymentIntentService, logg, status)
	r.With(rateLimited).Handle(paymentIntentGatewayPath, create)
	r.With(rateLimited).Handle(paymentIntentPath, create)

	return r
}
