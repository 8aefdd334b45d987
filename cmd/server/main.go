package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/venue-box-office/internal/booking"
	"github.com/iliyamo/venue-box-office/internal/config"
	"github.com/iliyamo/venue-box-office/internal/database"
	"github.com/iliyamo/venue-box-office/internal/entry"
	"github.com/iliyamo/venue-box-office/internal/handler"
	"github.com/iliyamo/venue-box-office/internal/logger"
	"github.com/iliyamo/venue-box-office/internal/middleware"
	"github.com/iliyamo/venue-box-office/internal/queue"
	"github.com/iliyamo/venue-box-office/internal/remote"
	"github.com/iliyamo/venue-box-office/internal/repository"
	"github.com/iliyamo/venue-box-office/internal/router"
	"github.com/iliyamo/venue-box-office/internal/service"
	"github.com/iliyamo/venue-box-office/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(cfg.Logger())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database())
	if err != nil {
		lg.Fatal("mysql unavailable", zap.Error(err))
	}
	defer db.Close()

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		lg.Warn("redis unavailable; caching and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	hc := remote.NewHTTPClient(cfg.Remote)
	csrf := remote.NewCSRFCache(remote.CSRFFetcher(hc, cfg.Remote), cfg.CSRFTokenTTL)
	rc := remote.New(cfg.Remote, hc, csrf, lg)

	var notify booking.Notifier
	if cfg.RabbitURL != "" {
		pub, err := service.NewPublisher(cfg.RabbitURL, lg)
		if err != nil {
			lg.Warn("rabbitmq unavailable; booking events not published", zap.Error(err))
		} else {
			defer pub.Close()
			notify = pub
			consumer := queue.NewBookingLogger(cfg.RabbitURL, cfg.BookingLog, lg)
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					lg.Error("booking log consumer stopped", zap.Error(err))
				}
			}()
		}
	}

	store := session.NewStore(rc, notify, session.Config{
		PollInterval: cfg.PollInterval,
		IdleTimeout:  cfg.SessionIdleTimeout,
		Fee:          cfg.Fee,
	}, lg)
	go store.RunReaper(ctx)

	scanners := entry.NewRegistry(entry.NewGate(rc, lg))

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	auth := handler.NewAuthHandler(handler.AuthConfig{
		JWTSecret:      cfg.JWTSecret,
		AccessTTL:      time.Duration(cfg.AccessTTLMin) * time.Minute,
		RefreshTTLDays: cfg.RefreshTTLDays,
	}, users, tokens, lg)
	auth.OnLogout = scanners.Forget

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.Recover())
	e.Use(middleware.AccessLog(lg))

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, lg)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb, lg)

	router.RegisterRoutes(e, db, rdb)
	router.RegisterPublic(e, &handler.EventsHandler{Catalog: rc}, limiter, cache)
	router.RegisterAuth(e, auth, cfg.JWTSecret, limiter)
	router.RegisterBooking(e, &handler.BookingHandler{
		Store:     store,
		Bookings:  rc,
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.SessionTokenTTL,
		Log:       lg,
	}, cfg.JWTSecret, limiter)
	router.RegisterEntry(e, &handler.EntryHandler{Scanners: scanners, LoginURL: cfg.LoginURL}, cfg.JWTSecret)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		lg.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := e.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Error("http shutdown", zap.Error(err))
	}
	store.Shutdown(shutdownCtx)
	lg.Info("stopped", zap.Int("open_sessions", store.Len()))
}
