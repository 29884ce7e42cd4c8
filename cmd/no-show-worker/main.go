package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hackgods/clinic-frontdesk/internal/appointment"
	"github.com/hackgods/clinic-frontdesk/internal/auth"
	"github.com/hackgods/clinic-frontdesk/internal/config"
	"github.com/hackgods/clinic-frontdesk/internal/db"
	"github.com/hackgods/clinic-frontdesk/internal/events"
	"github.com/hackgods/clinic-frontdesk/internal/logging"
	redisclient "github.com/hackgods/clinic-frontdesk/internal/redis"
)

const workerName = "no-show-worker"

type sweeper struct {
	svc   *appointment.Service
	pub   events.Publisher
	grace time.Duration
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Init(workerName, "dev", "info")
		log.Fatal().Err(err).Msg("config load error")
	}
	logging.Init(workerName, cfg.Env, cfg.LogLevel)

	log.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.WorkerInterval).
		Dur("grace", cfg.NoShowGrace).
		Msg("no-show worker starting up")

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

	publisher := events.Multi{events.NewPgLog(pgPool)}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() { _ = kp.Close() }()
		publisher = append(publisher, kp)
	}

	// The sweep never books a slot, so it runs without Redis locks.
	repo := appointment.NewPgRepository(pgPool)
	s := sweeper{
		svc:   appointment.NewService(repo, redisclient.NoopLocker{}, cfg),
		pub:   publisher,
		grace: cfg.NoShowGrace,
	}

	// Run once at startup
	s.runOnce(rootCtx)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping no-show worker")
			return
		case <-ticker.C:
			s.runOnce(rootCtx)
		}
	}
}

func (s sweeper) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	actor := auth.System(workerName)
	cutoff := s.svc.Now().Add(-s.grace)

	ids, err := s.svc.MarkNoShows(runCtx, actor, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("no-show run error")
		return
	}
	for _, id := range ids {
		events.Emit(runCtx, s.pub, events.New(events.AppointmentNoShow, events.AggregateAppointment, id, actor.Label(),
			map[string]any{"cutoff": cutoff}))
	}
	log.Info().Int("marked", len(ids)).Time("cutoff", cutoff).Dur("took", time.Since(start)).Msg("no-show run complete")
}
