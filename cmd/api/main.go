package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/bldrfitness/subscription-payments/api/routes"
	"github.com/bldrfitness/subscription-payments/internal/identity"
	"github.com/bldrfitness/subscription-payments/internal/paymentintents"
	"github.com/bldrfitness/subscription-payments/pkg/config"
	"github.com/bldrfitness/subscription-payments/pkg/db"
	"github.com/bldrfitness/subscription-payments/pkg/env"
	"github.com/bldrfitness/subscription-payments/pkg/logger"
	"github.com/bldrfitness/subscription-payments/pkg/metrics"
	"github.com/bldrfitness/subscription-payments/pkg/migrate"
	"github.com/bldrfitness/subscription-payments/pkg/redis"
	"github.com/bldrfitness/subscription-payments/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
	} else {
		logg.Warn(ctx, "redis not configured, rate limiting disabled")
	}

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return err
	}
	if cfg.App.IsProd() && stripeClient.Environment() != "live" {
		logg.Warn(logg.WithField(ctx, "stripe_env", stripeClient.Environment()), "stripe test keys in use in prod")
	}
	processor, err := stripe.NewPaymentIntents(stripeClient)
	if err != nil {
		return err
	}

	identityProvider, err := identity.NewProvider(cfg.Supabase)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	paymentIntentService, err := paymentintents.NewService(paymentintents.ServiceParams{
		Repo:            paymentintents.NewRepository(dbClient.DB()),
		Tx:              dbClient,
		Identity:        identityProvider,
		Processor:       processor,
		Metrics:         metrics.NewPaymentIntentMetrics(registry),
		Logger:          logg,
		ProductName:     cfg.Checkout.ProductName,
		DefaultCurrency: cfg.Checkout.DefaultCurrency,
	})
	if err != nil {
		return err
	}

	port := env.First(cfg.App.Port, config.EnvPortOverride)
	addr := ":" + port
	server := &http.Server{
		Addr:         addr,
		Handler:      routes.NewRouter(cfg, logg, dbClient, redisClient, paymentIntentService, metrics.NewHTTPMetrics(registry), registry),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"stripe_env": stripeClient.Environment(),
		"instance":   env.Get("DYNO", "local"),
	})
	logg.Info(logCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
