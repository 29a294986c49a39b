package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/cafe-storefront/internal/app"
	"github.com/noah-isme/cafe-storefront/internal/common"
	"github.com/noah-isme/cafe-storefront/internal/config"
	"github.com/noah-isme/cafe-storefront/internal/obs"
	"github.com/noah-isme/cafe-storefront/internal/order"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := app.NewRedis(ctx, cfg.RedisURL, false, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise redis")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	server, err := app.NewTaskServer(cfg.RedisURL, cfg.QueueConcurrency, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise task server")
	}

	var mailer common.EmailSender = common.LogEmailSender{Logger: logger}
	if strings.EqualFold(envOrDefault("MAIL_DRIVER", "log"), "none") {
		mailer = common.NopEmailSender{}
	}

	mux := asynq.NewServeMux()
	order.Register(mux, order.ConfirmationHandler{Mail: mailer, Logger: logger})

	if err := server.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start task server")
	}
	logger.Info().Int("concurrency", cfg.QueueConcurrency).Msg("worker starting")

	<-ctx.Done()
	server.Shutdown()
	logger.Info().Msg("worker shutdown complete")
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
