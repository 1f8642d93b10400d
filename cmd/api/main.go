package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/lojinha-app/backend-lojinha/internal/cache"
	"github.com/lojinha-app/backend-lojinha/internal/checkout"
	"github.com/lojinha-app/backend-lojinha/internal/common"
	"github.com/lojinha-app/backend-lojinha/internal/config"
	"github.com/lojinha-app/backend-lojinha/internal/coupon"
	"github.com/lojinha-app/backend-lojinha/internal/events"
	"github.com/lojinha-app/backend-lojinha/internal/health"
	"github.com/lojinha-app/backend-lojinha/internal/inventory"
	"github.com/lojinha-app/backend-lojinha/internal/obs"
	"github.com/lojinha-app/backend-lojinha/internal/order"
	"github.com/lojinha-app/backend-lojinha/internal/ratelimit"
	"github.com/lojinha-app/backend-lojinha/internal/security"
	"github.com/lojinha-app/backend-lojinha/internal/store"
	"github.com/lojinha-app/backend-lojinha/internal/tenant"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "lojinha-api",
			Endpoint:      cfg.TraceEndpoint,
			Exporter:      cfg.TraceExporter,
			SamplingRatio: cfg.TraceSampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if dir := strings.TrimSpace(os.Getenv("MIGRATIONS_DIR")); dir != "" {
		if err := runMigrations(dir, cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "lojinha-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	taskClient := asynq.NewClient(asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	validate := validator.New()

	storeRepo := cache.SettingsCache{
		Repo: store.PGRepo{Pool: pool},
		R:    redisClient,
		TTL:  time.Minute,
	}
	couponStore := coupon.PGStore{Pool: pool}
	movementStore := inventory.PGStore{Pool: pool}
	orderStore := order.PGStore{Pool: pool}

	couponSvc := &coupon.Service{Store: couponStore}
	ledger := &inventory.Ledger{Store: movementStore}
	bus := &events.Bus{
		Store:     events.PGStore{Pool: pool},
		Notifiers: []events.Notifier{events.LogNotifier{Logger: logger}},
	}

	checkoutSvc := &checkout.Service{
		Settings:       storeRepo,
		Coupons:        couponSvc,
		Ledger:         ledger,
		Orders:         orderStore,
		Events:         bus,
		Queue:          taskClient,
		DefaultCity:    cfg.PixMerchantCity,
		TxIDPrefix:     cfg.PixTxIDPrefix,
		ReservationTTL: cfg.ReservationTTL,
		QRSize:         cfg.PixQRSize,
	}

	couponHandler := &coupon.Handler{Svc: couponSvc, Store: couponStore, Validate: validate}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc, Validate: validate}
	inventoryHandler := &inventory.Handler{Ledger: ledger, Validate: validate}
	storeHandler := &store.Handler{Repo: storeRepo, Validate: validate}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	limiter, err := ratelimit.NewRedis(redisClient,
		ratelimit.Rate(int64(cfg.RateLimitRPS), time.Second), "lojinha:rl:")
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}
	throttle := ratelimit.Handler{
		Limiter: limiter,
		OnError: func(err error) { logger.Error().Err(err).Msg("rate limiter") },
	}

	resolver := tenant.NewResolver(cfg.StoreHeader, cfg.ShopRootDomain, cfg.DefaultStore)
	binder := tenant.Binder{Lookup: storeRepo}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.BucketsCSV), nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(security.BodyLimit{Max: 1 << 20}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key", cfg.StoreHeader},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		user := strings.TrimSpace(os.Getenv("SECURE_PPROF_BASIC_AUTH_USER"))
		pass := strings.TrimSpace(os.Getenv("SECURE_PPROF_BASIC_AUTH_PASS"))
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:      health.PingChecker{DB: pool, Redis: redisClient},
		DBTimeout:    500 * time.Millisecond,
		RedisTimeout: 300 * time.Millisecond,
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/v1", func(v chi.Router) {
		v.Use(resolver.Middleware)
		v.Use(binder.Middleware)

		v.Get("/store", storeHandler.Get)
		v.With(throttle.Middleware).Post("/coupons/preview", couponHandler.Preview)
		v.With(throttle.Middleware, idem.Middleware).Post("/checkout", checkoutHandler.Create)
		v.Get("/orders/{orderID}/payment", checkoutHandler.Payment)
		v.Get("/products/{productID}/stock", inventoryHandler.Stock)

		v.Route("/admin", func(admin chi.Router) {
			admin.Put("/settings/pix", storeHandler.UpdatePix)

			admin.Post("/coupons", couponHandler.Create)
			admin.Get("/coupons", couponHandler.List)
			admin.Delete("/coupons/{couponID}", couponHandler.Deactivate)

			admin.Get("/inventory/{productID}/movements", inventoryHandler.Movements)
			admin.Post("/inventory/{productID}/adjust", inventoryHandler.Adjust)

			admin.Post("/orders/{orderID}/paid", checkoutHandler.MarkPaid)
			admin.Post("/orders/{orderID}/cancel", checkoutHandler.Cancel)
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

	stop, stopCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopCancel()
	<-stop.Done()

	health.SetReady(false)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func runMigrations(dir, databaseURL string) error {
	m, err := migrate.New("file://"+dir, databaseURL)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
