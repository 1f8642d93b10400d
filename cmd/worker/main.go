package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lojinha-app/backend-lojinha/internal/checkout"
	"github.com/lojinha-app/backend-lojinha/internal/config"
	"github.com/lojinha-app/backend-lojinha/internal/events"
	"github.com/lojinha-app/backend-lojinha/internal/inventory"
	"github.com/lojinha-app/backend-lojinha/internal/lock"
	"github.com/lojinha-app/backend-lojinha/internal/obs"
	"github.com/lojinha-app/backend-lojinha/internal/order"
	"github.com/lojinha-app/backend-lojinha/internal/store"
	"github.com/lojinha-app/backend-lojinha/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("service", "lojinha-worker").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
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
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	locker := lock.Locker{R: redisClient}

	svc := &checkout.Service{
		Settings: nopSettings{},
		Orders:   order.PGStore{Pool: pool},
		Ledger:   &inventory.Ledger{Store: inventory.PGStore{Pool: pool}},
		Events: &events.Bus{
			Store:     events.PGStore{Pool: pool},
			Notifiers: []events.Notifier{events.LogNotifier{Logger: logger}},
		},
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB},
		asynq.Config{
			Concurrency: 5,
			Queues:      map[string]int{"default": 1},
			Logger:      asynqLogger{logger: logger},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeReservationExpire, func(ctx context.Context, task *asynq.Task) error {
		var payload tasks.ReservationExpirePayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
		}
		storeID, err := uuid.Parse(payload.StoreID)
		if err != nil {
			return fmt.Errorf("parse store id: %v: %w", err, asynq.SkipRetry)
		}
		orderID, err := uuid.Parse(payload.OrderID)
		if err != nil {
			return fmt.Errorf("parse order id: %v: %w", err, asynq.SkipRetry)
		}
		err = locker.WithLock(ctx, "lojinha:order-lock:"+payload.OrderID, 30*time.Second,
			func(ctx context.Context) error {
				return svc.ExpireReservation(ctx, storeID, orderID)
			})
		if err != nil {
			return err
		}
		logger.Info().Str("order_id", payload.OrderID).Msg("reservation expiry processed")
		return nil
	})

	go func() {
		if err := srv.Run(mux); err != nil {
			logger.Fatal().Err(err).Msg("worker exited unexpectedly")
		}
	}()

	stop, stopCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopCancel()
	<-stop.Done()

	srv.Shutdown()
	logger.Info().Msg("worker stopped")
}

// nopSettings satisfies the checkout settings collaborator; the expiry path
// never reads store settings.
type nopSettings struct{}

func (nopSettings) GetByID(context.Context, uuid.UUID) (store.Settings, error) {
	return store.Settings{}, errors.New("settings not available in worker")
}

// asynqLogger adapts zerolog to the asynq logging interface.
type asynqLogger struct {
	logger zerolog.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.logger.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.logger.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.logger.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.logger.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.logger.Fatal().Msg(fmt.Sprint(args...)) }
