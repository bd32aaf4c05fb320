package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/traceid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/gasanashema/Saving-and-credits-MS-sub000/docs"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/api/handler"
	mw "github.com/gasanashema/Saving-and-credits-MS-sub000/internal/api/middleware"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/config"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/domain/eligibility"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/domain/loan"
)

func SetupRouter(
	loanService loan.LoanService,
	eligibilityService eligibility.Service,
	redisClient *redis.Client,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(router, redisClient, cfg, logger)
	setupMetricsEndpoint(router, cfg, logger)

	// Business routes are versioned; health, metrics and docs stay at the root.
	router.Route("/api/v1", func(v1 chi.Router) {
		setupAuthRoutes(v1, cfg, logger)
		setupLoanRoutes(v1, loanService, cfg, logger)
		setupEligibilityRoutes(v1, eligibilityService, cfg, logger)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	setupSwaggerEndpoint(router, logger)

	return router
}

func setupMiddleware(router *chi.Mux, redisClient *redis.Client, cfg *config.Config, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(mw.NewRateLimiterMiddleware(cfg.Server.RateLimit, redisClient, logger).Middleware)
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupSwaggerEndpoint(router *chi.Mux, logger *slog.Logger) {
	logger.Info("Setting up Swagger UI endpoint", "path", "/swagger/")
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
}

func setupAuthRoutes(router chi.Router, cfg *config.Config, logger *slog.Logger) {
	authHandler := handler.NewAuthHandler(*cfg, logger)
	router.Route("/auth", func(r chi.Router) {
		r.Post("/token", authHandler.GenerateBearerToken)
	})
}

func setupLoanRoutes(router chi.Router, loanService loan.LoanService, cfg *config.Config, logger *slog.Logger) {
	loanHandler := handler.NewLoanHandler(loanService, logger)

	router.Route("/loans", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", loanHandler.ManualIntake)
		r.Post("/auto", loanHandler.AutoApprovedIntake)
		r.Get("/{loanID}", loanHandler.GetLoan)
		r.Post("/{loanID}/actions/{action}", loanHandler.ApplyAction)
		r.Post("/{loanID}/payments", loanHandler.RecordPayment)
	})
}

func setupEligibilityRoutes(router chi.Router, svc eligibility.Service, cfg *config.Config, logger *slog.Logger) {
	h := handler.NewEligibilityHandler(svc, logger)

	router.Route("/members", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Get("/{memberID}/eligibility", h.GetEligibility)
	})
}
