package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nochex-be/internal/config"
	"nochex-be/internal/cron"
	"nochex-be/internal/db"
	"nochex-be/internal/dedup"
	"nochex-be/internal/logger"
	"nochex-be/internal/metrics"
	"nochex-be/internal/middleware"
	"nochex-be/internal/order"
	"nochex-be/internal/payment"
	"nochex-be/internal/payment/checkout"
	"nochex-be/internal/payment/webhook"
	"nochex-be/internal/storefront"
	"nochex-be/internal/transport"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const notificationPath = "/api/" + payment.MethodID

var (
	initDBFunc      = db.NewDatabase
	startServerFunc = func(srv *http.Server) error {
		return srv.ListenAndServe()
	}
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

// routes are the handlers mounted by setupRouter.
type routes struct {
	notification http.HandlerFunc
	form         http.HandlerFunc
	fields       http.HandlerFunc
	metrics      *metrics.Notifications
	jwtSecret    []byte
	limiter      *middleware.RateLimiter
	proxies      *transport.Proxies
}

func setupRouter(rt routes) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TrustedRealIP(rt.proxies))
	r.Use(logger.RequestIDMiddleware)
	r.Use(middleware.LoggingMiddleware)
	if rt.limiter != nil {
		r.Use(rt.limiter.Middleware)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rt.metrics.Snapshot())
	})

	// gateway notifications for both channels
	r.Post(notificationPath, rt.notification)

	r.Route("/checkout/"+payment.MethodID+"/{orderID}", func(r chi.Router) {
		r.Use(middleware.RequireStorefrontToken(rt.jwtSecret))
		r.Get("/", rt.form)
		r.Get("/fields", rt.fields)
	})

	return r
}

type server struct {
	router    chi.Router
	limiter   *middleware.RateLimiter
	scheduler *cron.Scheduler
}

func newServer(cfg *config.Config, database *sql.DB) (*server, error) {
	log := logger.L()

	proxies, err := transport.ParseProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	orderSvc := order.NewService(order.NewRepository(database))
	notifications := payment.NewRepository(database)
	audit := logger.NewAudit(log)
	links := storefront.NewLinks(cfg.StorefrontThankYouURL, cfg.StorefrontCancelURL, cfg.PublicAPIURL)

	builder := payment.NewRequestBuilder(cfg.Nochex.Settings, cfg.Nochex.Endpoints.Payment, links, links, audit)
	verifier := payment.NewVerifier(cfg.Nochex.Endpoints, cfg.Nochex.VerifyTimeout, payment.WithRetries(cfg.Nochex.VerifyRetries))

	guard, err := dedup.NewGuard(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.DedupTTL)
	if err != nil {
		log.Warn("redis unavailable, notification guard is process-local", zap.Error(err))
	}

	counters := &metrics.Notifications{}
	notificationHandler := webhook.NewHandler(webhook.Deps{
		Settings:      cfg.Nochex.Settings,
		Orders:        orderSvc,
		Verifier:      verifier,
		Notifications: notifications,
		Guard:         guard,
		Metrics:       counters,
		Audit:         audit,
	})
	checkoutHandler := checkout.NewHandler(builder, orderSvc)

	scheduler, err := cron.NewScheduler(cfg.Retention.Schedule, cfg.Retention.MaxAge, notifications, log)
	if err != nil {
		return nil, err
	}

	limiter := middleware.NewRateLimiter(notificationPath)

	return &server{
		router: setupRouter(routes{
			notification: notificationHandler.NotificationHandler,
			form:         checkoutHandler.FormHandler,
			fields:       checkoutHandler.FieldsHandler,
			metrics:      counters,
			jwtSecret:    []byte(cfg.StorefrontJWTSecret),
			limiter:      limiter,
			proxies:      proxies,
		}),
		limiter:   limiter,
		scheduler: scheduler,
	}, nil
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database, err := initDBFunc(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	app, err := newServer(cfg, database)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.scheduler.Start()
	defer app.scheduler.Stop()
	go app.limiter.Run(ctx, time.Minute)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("HTTP server listening", zap.String("addr", srv.Addr))
		errCh <- startServerFunc(srv)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
