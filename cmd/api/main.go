package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/backend-promo/internal/analytics"
	"github.com/noah-isme/backend-promo/internal/app"
	"github.com/noah-isme/backend-promo/internal/cache"
	"github.com/noah-isme/backend-promo/internal/cart"
	"github.com/noah-isme/backend-promo/internal/catalog"
	"github.com/noah-isme/backend-promo/internal/checkout"
	"github.com/noah-isme/backend-promo/internal/combo"
	"github.com/noah-isme/backend-promo/internal/common"
	"github.com/noah-isme/backend-promo/internal/config"
	"github.com/noah-isme/backend-promo/internal/coupon"
	"github.com/noah-isme/backend-promo/internal/health"
	"github.com/noah-isme/backend-promo/internal/lock"
	"github.com/noah-isme/backend-promo/internal/obs"
	"github.com/noah-isme/backend-promo/internal/order"
	"github.com/noah-isme/backend-promo/internal/payment"
	"github.com/noah-isme/backend-promo/internal/pricing"
	"github.com/noah-isme/backend-promo/internal/ratelimit"
	"github.com/noah-isme/backend-promo/internal/resilience"
)

const metricsNamespace = "promo"

func main() {
	cfg := config.MustLoad()

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	obs.MustRegisterDomainMetrics(metricsNamespace, nil)
	httpMetrics := obs.NewHTTPMetrics(metricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBucketsCSV), nil)

	shutdownTracer, err := obs.InitTracer(context.Background(), obs.TracingConfig{
		ServiceName:   "promo-api",
		Endpoint:      cfg.TracingEndpoint,
		Exporter:      cfg.TracingExporter,
		SamplingRatio: cfg.TracingSamplingRatio,
		Environment:   cfg.AppEnv,
	})
	tracingEnabled := err == nil
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Error().Err(err).Msg("shutdown tracer")
			}
		}()
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := app.NewPool(startCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	m, err := migrate.New("file://migrations", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open migrations")
	}
	if err := app.RunMigrations(m); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	redisClient, err := app.NewRedis(startCtx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect redis")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	validate := validator.New()
	now := time.Now

	catalogSvc := &catalog.Service{
		Store:  &catalog.Repo{Pool: pool},
		Cache:  cache.New(redisClient, cfg.CatalogCacheTTL),
		Logger: logger,
	}
	comboSvc := &combo.Service{
		Store:     &combo.Repo{Pool: pool},
		Snapshots: catalogSvc,
		Cache:     cache.New(redisClient, cfg.ComboCacheTTL),
		Logger:    logger,
		Now:       now,
	}
	couponSvc := &coupon.Service{
		Store:  &coupon.Repo{Pool: pool},
		Logger: logger,
		Now:    now,
	}
	cartSvc := &cart.Service{
		Carts:   &cart.Store{R: redisClient, TTL: cfg.CartTTL},
		Catalog: catalogSvc,
		Combos:  comboSvc,
		Coupons: couponSvc,
		Delivery: pricing.DeliveryRule{
			FreeThreshold: cfg.DeliveryFreeThreshold,
			FlatFee:       cfg.DeliveryFlatFee,
		},
		Now: now,
	}
	orderRepo := &order.Repo{Pool: pool}
	charger := payment.GuardedCharger{
		Inner:   payment.NoopCharger{},
		Breaker: resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget("payment").WithLogger(logger),
		Retries: 2,
	}
	checkoutSvc := &checkout.Service{
		Carts:   cartSvc,
		Orders:  orderRepo,
		Coupons: couponSvc,
		Stock:   &catalog.Repo{Pool: pool},
		Charger: charger,
		InTx: func(ctx context.Context, fn func(pgx.Tx) error) error {
			return pgx.BeginFunc(ctx, pool, fn)
		},
		Lock:     lock.Locker{R: redisClient},
		Currency: cfg.CurrencyCode,
		Logger:   logger,
		Now:      now,
	}
	analyticsSvc := &analytics.Service{
		Store:  &analytics.Repo{Pool: pool},
		Cache:  cache.New(redisClient, cfg.CatalogCacheTTL),
		Logger: logger,
	}

	catalogHandler := &catalog.Handler{Service: catalogSvc}
	comboHandler := &combo.Handler{Svc: comboSvc, Validate: validate}
	couponHandler := &coupon.Handler{Svc: couponSvc, Validate: validate}
	cartHandler := &cart.Handler{Svc: cartSvc}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc}
	orderHandler := &order.Handler{Repo: orderRepo}
	analyticsHandler := &analytics.Handler{Svc: analyticsSvc}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	limiter := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "ratelimit:"},
		Window:  cfg.RateLimitWindow,
		Max:     cfg.RateLimitMax,
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Total-Count"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	healthHandler := health.Handler{Checker: health.Probes{Pool: pool, Redis: redisClient}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(limiter.Middleware)

		v.Get("/items", catalogHandler.List)
		v.Get("/items/{id}", catalogHandler.Detail)

		v.Get("/combos", comboHandler.List)
		v.Get("/combos/{id}", comboHandler.Detail)
		v.Post("/combos/preview", comboHandler.Preview)

		v.Post("/coupons/preview", couponHandler.Preview)

		v.Route("/carts", func(c chi.Router) {
			c.Get("/{id}", cartHandler.Get)
			c.Group(func(g chi.Router) {
				g.Use(idem.Middleware)
				g.Post("/", cartHandler.Create)
				g.Post("/{id}/items", cartHandler.AddItem)
				g.Post("/{id}/combos", cartHandler.AddCombo)
				g.Patch("/{id}/items/{lineId}", cartHandler.UpdateLine)
				g.Delete("/{id}/items/{lineId}", cartHandler.RemoveLine)
				g.Post("/{id}/coupon", cartHandler.ApplyCoupon)
				g.Delete("/{id}/coupon", cartHandler.RemoveCoupon)
			})
		})

		v.Post("/checkout/preview", checkoutHandler.Preview)
		v.With(idem.Middleware).Post("/checkout", checkoutHandler.Place)

		v.Get("/orders/{id}", orderHandler.Detail)

		v.Route("/admin", func(admin chi.Router) {
			admin.Post("/combos", comboHandler.Create)
			admin.Put("/combos/{id}", comboHandler.Update)
			admin.Delete("/combos/{id}", comboHandler.Delete)

			admin.Get("/coupons", couponHandler.List)
			admin.Post("/coupons", couponHandler.Create)
			admin.Put("/coupons/{code}", couponHandler.Update)
			admin.Delete("/coupons/{code}", couponHandler.Delete)

			admin.Get("/orders", orderHandler.List)

			admin.Get("/analytics/sales", analyticsHandler.Sales)
			admin.Get("/analytics/top-items", analyticsHandler.TopItems)
			admin.Get("/analytics/overview", analyticsHandler.Overview)
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutdown requested")
	health.SetReady(false)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
