package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/hackgods/clinic-frontdesk/internal/api"
	"github.com/hackgods/clinic-frontdesk/internal/appointment"
	"github.com/hackgods/clinic-frontdesk/internal/auth"
	"github.com/hackgods/clinic-frontdesk/internal/config"
	"github.com/hackgods/clinic-frontdesk/internal/db"
	"github.com/hackgods/clinic-frontdesk/internal/events"
	"github.com/hackgods/clinic-frontdesk/internal/logging"
	"github.com/hackgods/clinic-frontdesk/internal/queue"
	redisclient "github.com/hackgods/clinic-frontdesk/internal/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Init("api-server", "dev", "info")
		log.Fatal().Err(err).Msg("config load error")
	}
	logging.Init("api-server", cfg.Env, cfg.LogLevel)

	log.Info().
		Str("env", cfg.Env).
		Str("http_port", cfg.HTTPPort).
		Str("timezone", cfg.Location.String()).
		Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	// Connect Redis. Without it bookings rely on the unique index alone.
	var (
		rdb    *redis.Client
		locker redisclient.Locker = redisclient.NoopLocker{}
	)
	redisCtx, cancelRedis := context.WithTimeout(rootCtx, 5*time.Second)
	rdb, err = redisclient.NewRedisClient(redisCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	cancelRedis()
	if err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, slot locks disabled")
		rdb = nil
	} else {
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Error().Err(err).Msg("error closing redis")
			}
		}()
		locker = redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
		log.Info().Msg("connected to Redis")
	}

	publisher := events.Multi{events.NewPgLog(pgPool)}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := kp.Close(); err != nil {
				log.Error().Err(err).Msg("error closing kafka writer")
			}
		}()
		publisher = append(publisher, kp)
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("kafka publisher enabled")
	}

	appointments := appointment.NewService(appointment.NewPgRepository(pgPool), locker, cfg)
	queueSvc := queue.NewService(queue.NewPgRepository(pgPool))

	router := api.NewRouter(api.RouterConfig{
		Appointments: appointments,
		Queue:        queueSvc,
		Events:       publisher,
		Verifier:     auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer),
		PgPool:       pgPool,
		Redis:        rdb,
		Env:          cfg.Env,
		Version:      cfg.Version,
		CORSOrigins:  cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	log.Info().Msg("api-server stopped")
}
