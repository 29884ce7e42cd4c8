package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/clinic-frontdesk/internal/appointment"
	"github.com/hackgods/clinic-frontdesk/internal/auth"
	"github.com/hackgods/clinic-frontdesk/internal/events"
	"github.com/hackgods/clinic-frontdesk/internal/pagination"
	"github.com/hackgods/clinic-frontdesk/internal/queue"
)

type AppointmentService interface {
	Now() time.Time
	Location() *time.Location
	CreateAppointment(ctx context.Context, actor auth.Actor, in appointment.CreateInput) (*appointment.Appointment, error)
	GetAppointment(ctx context.Context, id int64) (*appointment.AppointmentDetail, error)
	ListAppointments(ctx context.Context, q appointment.ListQuery) ([]appointment.AppointmentDetail, pagination.Response, error)
	UpdateAppointment(ctx context.Context, actor auth.Actor, id int64, p appointment.Patch) (*appointment.Appointment, error)
	CancelAppointment(ctx context.Context, actor auth.Actor, id int64, reason string) (*appointment.Appointment, error)
	RescheduleAppointment(ctx context.Context, actor auth.Actor, id int64, date, clock string) (*appointment.Appointment, error)
	CompleteAppointment(ctx context.Context, actor auth.Actor, id int64) (*appointment.Appointment, error)
	DeleteAppointment(ctx context.Context, id int64) (*appointment.Appointment, error)
	TodayAppointments(ctx context.Context) ([]appointment.AppointmentDetail, error)
	UpcomingAppointments(ctx context.Context, days int) ([]appointment.AppointmentDetail, error)
	AppointmentStats(ctx context.Context) (appointment.Stats, error)
	AvailableSlots(ctx context.Context, doctorID int64, date string) ([]string, error)
	FindPatientCandidates(ctx context.Context, name string) ([]appointment.Patient, error)
}

type QueueService interface {
	Now() time.Time
	CreateEntry(ctx context.Context, actor auth.Actor, in queue.CreateInput) (*queue.Entry, error)
	GetEntry(ctx context.Context, id int64) (*queue.Entry, error)
	ListEntries(ctx context.Context) ([]queue.Entry, error)
	ActiveEntries(ctx context.Context) ([]queue.Entry, error)
	EntriesByStatus(ctx context.Context, status queue.Status) ([]queue.Entry, error)
	EntriesByPriority(ctx context.Context, p queue.Priority) ([]queue.Entry, error)
	NextEntry(ctx context.Context) (*queue.Entry, error)
	QueueStats(ctx context.Context) (queue.Stats, error)
	UpdateEntry(ctx context.Context, actor auth.Actor, id int64, p queue.Patch) (*queue.Entry, error)
	UpdateStatus(ctx context.Context, actor auth.Actor, id int64, status queue.Status) (*queue.Entry, error)
	CancelEntry(ctx context.Context, actor auth.Actor, id int64, reason string) (*queue.Entry, error)
	AssignDoctor(ctx context.Context, actor auth.Actor, id, doctorID int64) (*queue.Entry, error)
	DeleteEntry(ctx context.Context, id int64) (*queue.Entry, error)
}

type RouterConfig struct {
	Appointments AppointmentService
	Queue        QueueService
	Events       events.Publisher
	Verifier     *auth.Verifier
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Env          string
	Version      string
	CORSOrigins  []string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Verifier))
		r.Use(auth.RequireRole(auth.RoleAdmin, auth.RoleStaff))

		appts, pub := cfg.Appointments, cfg.Events
		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", createAppointmentHandler(appts, pub))
			r.Get("/", listAppointmentsHandler(appts))
			r.Get("/today", todayAppointmentsHandler(appts))
			r.Get("/upcoming", upcomingAppointmentsHandler(appts))
			r.Get("/stats", appointmentStatsHandler(appts))
			r.Get("/available-slots/{doctorId}/{date}", availableSlotsHandler(appts))
			r.Get("/{id}", getAppointmentHandler(appts))
			r.Patch("/{id}", updateAppointmentHandler(appts, pub))
			r.Patch("/{id}/cancel", cancelAppointmentHandler(appts, pub))
			r.Patch("/{id}/reschedule", rescheduleAppointmentHandler(appts, pub))
			r.Patch("/{id}/complete", completeAppointmentHandler(appts, pub))
			r.Delete("/{id}", deleteAppointmentHandler(appts, pub))
		})
		r.Get("/patients/candidates", patientCandidatesHandler(appts))

		q := cfg.Queue
		r.Route("/queue", func(r chi.Router) {
			r.Post("/", createQueueEntryHandler(q, pub))
			r.Get("/", listQueueHandler(q))
			r.Get("/active", activeQueueHandler(q))
			r.Get("/stats", queueStatsHandler(q))
			r.Get("/next", nextQueueEntryHandler(q))
			r.Get("/status/{status}", queueByStatusHandler(q))
			r.Get("/priority/{priority}", queueByPriorityHandler(q))
			r.Get("/{id}", getQueueEntryHandler(q))
			r.Patch("/{id}", updateQueueEntryHandler(q, pub))
			r.Patch("/{id}/status", updateQueueStatusHandler(q, pub))
			r.Patch("/{id}/assign-doctor", assignDoctorHandler(q, pub))
			r.Patch("/{id}/cancel", cancelQueueEntryHandler(q, pub))
			r.Delete("/{id}", deleteQueueEntryHandler(q, pub))
		})
	})

	return r
}
