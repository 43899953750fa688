// Command server runs the EduPay web application.
//
// @title                      EduPay API
// @version                    1.0
// @description                Role-based crowdfunding for student education: students post funding requests, donors fund them, an admin oversees the platform. Every route also serves server-rendered pages to browsers.
// @BasePath                   /
// @schemes                    http https
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	_ "github.com/tbourn/edupay/docs"
	"github.com/tbourn/edupay/internal/cache"
	"github.com/tbourn/edupay/internal/config"
	httpapi "github.com/tbourn/edupay/internal/http"
	"github.com/tbourn/edupay/internal/notify"
	"github.com/tbourn/edupay/internal/observability"
	"github.com/tbourn/edupay/internal/repo"
	"github.com/tbourn/edupay/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const idempotencySweep = time.Hour

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env")
	}

	cfg := config.MustLoad()
	sysutil.ConfigureLogger(cfg.LogLevel, cfg.LogPretty, os.Stderr)
	gin.SetMode(cfg.GinMode)
	appVersion := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, appVersion)
	if err != nil {
		log.Warn().Err(err).Msg("tracing disabled")
		shutdownOTel = func(context.Context) error { return nil }
	}

	db, err := repo.Open(cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("open store")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate store")
	}

	dashCache := connectCache(ctx, cfg.Cache)

	hub := notify.NewHub(cfg.EventBuffer)
	go hub.Run(ctx)
	go sweepIdempotency(ctx, db)

	r := gin.New()
	httpapi.RegisterRoutes(r, db, dashCache, hub, cfg)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go serve(srv, cfg.TLS)

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Event streams end with the hub; close it first so Shutdown does not
	// wait on them.
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := dashCache.Close(); err != nil {
		log.Warn().Err(err).Msg("cache close")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("tracing shutdown")
	}
	log.Info().Msg("server stopped")
}

// connectCache returns a live cache, or a disabled one when REDIS_URL is
// unset or the backend cannot be reached. The application works either way.
func connectCache(ctx context.Context, cc config.CacheConfig) *cache.Cache {
	if cc.RedisURL == "" {
		log.Info().Msg("REDIS_URL not set; dashboard cache disabled")
		return cache.Disabled()
	}
	c, err := cache.Connect(ctx, cc.RedisURL, cc.OpTimeout)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable; dashboard cache disabled")
		return cache.Disabled()
	}
	log.Info().Str("strategy", cc.Strategy).Dur("ttl_open", cc.TTLOpen).Dur("ttl_student", cc.TTLStudent).Msg("dashboard cache enabled")
	return c
}

// serve listens with TLS when certificate material is configured and loads,
// and over plain HTTP otherwise.
func serve(srv *http.Server, tc config.TLSConfig) {
	var err error
	if tc.Enabled() {
		cert, loadErr := tls.LoadX509KeyPair(tc.CertPath, tc.KeyPath)
		if loadErr == nil {
			srv.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
			log.Info().Str("addr", srv.Addr).Msg("listening (https)")
			err = srv.ListenAndServeTLS("", "")
		} else {
			log.Warn().Err(loadErr).Msg("TLS material unusable; falling back to http")
			tc = config.TLSConfig{}
		}
	}
	if !tc.Enabled() {
		log.Info().Str("addr", srv.Addr).Msg("listening (http)")
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

// sweepIdempotency drops expired Idempotency-Key records until ctx ends.
func sweepIdempotency(ctx context.Context, db *gorm.DB) {
	t := time.NewTicker(idempotencySweep)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, now.UTC())
			if err != nil {
				log.Warn().Err(err).Msg("purge idempotency keys")
				continue
			}
			if n > 0 {
				log.Debug().Int64("purged", n).Msg("expired idempotency keys removed")
			}
		}
	}
}
