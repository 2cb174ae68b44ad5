package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"

	"github.com/noah-isme/toko-pricing/internal/app"
	"github.com/noah-isme/toko-pricing/internal/checkout"
	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/config"
	"github.com/noah-isme/toko-pricing/internal/giftcard"
	"github.com/noah-isme/toko-pricing/internal/health"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/promo"
	"github.com/noah-isme/toko-pricing/internal/ratelimit"
	"github.com/noah-isme/toko-pricing/internal/reconcile"
	"github.com/noah-isme/toko-pricing/internal/security"
	"github.com/noah-isme/toko-pricing/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger("pricing-api", cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("env", cfg.AppEnv).Logger()
	obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, nil)

	tracingEnabled := cfg.Obs.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "pricing-api",
			Endpoint:      cfg.Obs.OTLPEndpoint,
			Exporter:      cfg.Obs.TracingExporter,
			SamplingRatio: cfg.Obs.SamplingRatio,
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

	if cfg.MigrateOnStart {
		if err := store.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
		logger.Info().Msg("migrations applied")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	deps, err := app.New(connectCtx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}
	defer deps.Close()
	if cfg.Obs.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(deps.Redis); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}

	svcs, err := deps.Services()
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise services")
	}

	checkoutHandler := &checkout.Handler{Svc: svcs.Checkout}
	promoHandler := &promo.Handler{Svc: svcs.Promos}
	giftCardHandler := &giftcard.Handler{Svc: svcs.Cards}
	reportHandler := &reconcile.Handler{Svc: svcs.Reconcile, Tasks: deps.Tasks}

	idem := common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL}
	lookupLimit := ratelimit.Handler{
		Limiter: svcs.PromoRate,
		Key:     ratelimit.ByCaller,
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}

	var httpMetrics *obs.HTTPMetrics
	if cfg.Obs.MetricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets), nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.Tracing("pricing-api"))
	}
	if httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(security.Headers{HSTSMaxAge: hstsMaxAge(cfg)}.Middleware)
	r.Use(security.BodyLimit{Max: int64(envInt("HTTP_MAX_BODY_BYTES", 1<<20))}.Middleware)
	r.Use(common.UserFromHeader)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key", common.UserIDHeader},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.Obs.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if cfg.Obs.PprofEnabled {
		r.Mount("/debug/pprof", basicAuth(newPprofMux(),
			envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", ""),
			envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")))
	}

	healthHandler := health.Handler{
		Checker:      health.Probe{DB: deps.DB, Redis: deps.Redis},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/checkout", func(c chi.Router) {
			c.Post("/quote", checkoutHandler.Quote)
			c.Post("/settlement", checkoutHandler.Settlement)
			c.With(idem.Middleware).Post("/commit", checkoutHandler.Commit)
		})

		v.With(lookupLimit.Middleware).Post("/promos/validate", promoHandler.Validate)
		v.With(lookupLimit.Middleware).Post("/giftcards/apply", giftCardHandler.Apply)

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(func(next http.Handler) http.Handler {
				return basicAuth(next, envOrDefault("SECURE_ADMIN_BASIC_AUTH_USER", ""), envOrDefault("SECURE_ADMIN_BASIC_AUTH_PASS", ""))
			})
			admin.Patch("/promos/{code}/active", promoHandler.SetActive)
			admin.Get("/reports/order-groups", reportHandler.OrderGroups)
			admin.With(idem.Middleware).Post("/reports/order-groups/refresh", reportHandler.Refresh)
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func hstsMaxAge(cfg *config.Config) int {
	if !cfg.IsProduction() {
		return 0
	}
	return 31536000
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
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

// basicAuth guards handler when user is set; an empty user leaves it open.
func basicAuth(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
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
