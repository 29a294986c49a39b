package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cafe-storefront/internal/backend"
	"github.com/noah-isme/cafe-storefront/internal/config"
	"github.com/noah-isme/cafe-storefront/internal/order"
	"github.com/noah-isme/cafe-storefront/internal/resilience"
)

// Dependencies enumerates the long-lived clients shared by the API and the worker.
type Dependencies struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Redis      *redis.Client
	Backend    *backend.Client
	TaskClient *asynq.Client
}

// New connects Redis and builds the backend and task clients.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Dependencies, error) {
	rdb, err := NewRedis(ctx, cfg.RedisURL, true, logger)
	if err != nil {
		return nil, err
	}
	taskClient, err := NewTaskClient(cfg.RedisURL)
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &Dependencies{
		Config:     cfg,
		Logger:     logger,
		Redis:      rdb,
		Backend:    NewBackend(cfg, logger),
		TaskClient: taskClient,
	}, nil
}

// Close releases the clients opened by New.
func (d *Dependencies) Close() {
	if d == nil {
		return
	}
	if d.TaskClient != nil {
		if err := d.TaskClient.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close task client")
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close redis")
		}
	}
}

// NewRedis parses url, instruments the client and checks connectivity.
func NewRedis(ctx context.Context, url string, withMetrics bool, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if withMetrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewBackend builds the backend API client guarded by its own breaker.
func NewBackend(cfg *config.Config, logger zerolog.Logger) *backend.Client {
	breaker := resilience.NewBreaker(cfg.BreakerFailureThreshold, cfg.BreakerHalfOpenAfter).
		WithTarget("backend").
		WithLogger(logger)
	return backend.New(backend.Config{
		BaseURL: cfg.BackendBaseURL,
		Timeout: cfg.BackendTimeout,
		Breaker: breaker,
		Logger:  logger.With().Str("component", "backend").Logger(),
	})
}

// NewTaskClient returns an asynq client enqueuing into the Redis at url.
func NewTaskClient(url string) (*asynq.Client, error) {
	opt, err := asynq.ParseRedisURI(url)
	if err != nil {
		return nil, fmt.Errorf("parse task redis url: %w", err)
	}
	return asynq.NewClient(opt), nil
}

// NewTaskServer returns the asynq server that runs order tasks.
func NewTaskServer(url string, concurrency int, logger zerolog.Logger) (*asynq.Server, error) {
	opt, err := asynq.ParseRedisURI(url)
	if err != nil {
		return nil, fmt.Errorf("parse task redis url: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 5
	}
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{order.QueueName: 1},
		Logger:      TaskLogger{Logger: logger},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Error().Err(err).Str("task", task.Type()).Msg("task failed")
		}),
	}), nil
}

// TaskLogger adapts zerolog to asynq.Logger.
type TaskLogger struct {
	Logger zerolog.Logger
}

func (l TaskLogger) Debug(args ...any) { l.Logger.Debug().Msg(join(args)) }
func (l TaskLogger) Info(args ...any)  { l.Logger.Info().Msg(join(args)) }
func (l TaskLogger) Warn(args ...any)  { l.Logger.Warn().Msg(join(args)) }
func (l TaskLogger) Error(args ...any) { l.Logger.Error().Msg(join(args)) }
func (l TaskLogger) Fatal(args ...any) { l.Logger.Fatal().Msg(join(args)) }

func join(args []any) string {
	return strings.TrimSpace(fmt.Sprint(args...))
}
