// Command server runs the messaging backend: the WebSocket endpoint for
// realtime delivery plus the REST API for history, presence, AI assists and
// payments.
//
// @title       go-messaging-backend API
// @version     1.0
// @description One-to-one messaging history, presence, AI assists and payments.
// @BasePath    /api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-messaging-backend/internal/config"
	httpapi "github.com/tbourn/go-messaging-backend/internal/http"
	"github.com/tbourn/go-messaging-backend/internal/observability"
	"github.com/tbourn/go-messaging-backend/internal/realtime"
	"github.com/tbourn/go-messaging-backend/internal/repo"
	"github.com/tbourn/go-messaging-backend/internal/services"
	"github.com/tbourn/go-messaging-backend/internal/sysutil"
	"github.com/tbourn/go-messaging-backend/internal/ws"
)

var version = "dev"

const replayPurgeInterval = 15 * time.Minute

func main() {
	// .env is optional; real environment wins.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	gin.SetMode(cfg.GinMode)

	logger := sysutil.SetupLogger(os.Stderr, cfg.LogLevel, cfg.OTEL.ServiceName, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	ver := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		return err
	}
	defer func() {
		if err := observability.Shutdown(shutdownOTel, 5*time.Second); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			return err
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}

	store := &services.MessageStore{DB: db, MaxContentRunes: cfg.MaxContentRunes}
	assist := &services.AssistService{Timeout: cfg.AI.Timeout}
	if cfg.AI.APIKey != "" {
		assist.Completer = services.NewOpenAICompleter(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model)
	} else {
		logger.Info().Msg("OPENAI_API_KEY not set; /ai endpoints disabled")
	}
	payments := &services.PaymentService{Currency: cfg.Payment.Currency}
	if cfg.Payment.SecretKey != "" {
		payments.Provider = services.NewStripeProvider(cfg.Payment.SecretKey)
	} else {
		logger.Info().Msg("STRIPE_SECRET_KEY not set; /payments disabled")
	}
	replays := &services.ReplayStore{DB: db, TTL: cfg.IdempotencyTTL}

	rt := realtime.NewRouter(store, logger.With().Str("component", "realtime").Logger())
	wsHandler := ws.NewHandler(rt, ws.Options{
		WriteWait:       cfg.WS.WriteWait,
		PongWait:        cfg.WS.PongWait,
		PingPeriod:      cfg.WS.PingPeriod,
		MaxMessageBytes: cfg.WS.MaxMessageBytes,
		SendBuffer:      cfg.WS.SendBuffer,
	}, cfg.CORS.AllowedOrigins, logger.With().Str("component", "ws").Logger())

	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:        db,
		Messages:  store,
		Realtime:  rt,
		WebSocket: wsHandler.Serve,
		Assist:    assist,
		Payments:  payments,
		Replays:   replays,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go purgeReplays(ctx, replays, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("ws_path", cfg.WS.Path).Str("version", ver).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	return closeDB(db, logger)
}

// purgeReplays drops expired idempotency records until ctx is done.
func purgeReplays(ctx context.Context, replays *services.ReplayStore, logger zerolog.Logger) {
	t := time.NewTicker(replayPurgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := replays.Purge(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("purge idempotency records")
				continue
			}
			if n > 0 {
				logger.Debug().Int64("purged", n).Msg("idempotency records purged")
			}
		}
	}
}

func closeDB(db *gorm.DB, logger zerolog.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn().Err(err).Msg("close database")
		return err
	}
	return nil
}
