package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const checkTimeout = time.Second

var errDependencyMissing = errors.New("dependency not configured")

// depCheck is one readiness dependency. A failing critical check makes the
// service unready; any other failure only degrades it.
type depCheck struct {
	name     string
	critical bool
	check    func(ctx context.Context) error
}

type HealthHandler struct {
	checks  []depCheck
	env     string
	version string
}

// NewHealthHandler checks Postgres as critical and Redis as optional. A nil
// Redis client is reported as disabled.
func NewHealthHandler(pgPool *pgxpool.Pool, rdb *redis.Client, env, version string) *HealthHandler {
	h := &HealthHandler{env: env, version: version}

	h.checks = append(h.checks, depCheck{
		name:     "postgres",
		critical: true,
		check: func(ctx context.Context) error {
			if pgPool == nil {
				return errDependencyMissing
			}
			return pgPool.Ping(ctx)
		},
	})
	if rdb != nil {
		h.checks = append(h.checks, depCheck{
			name: "redis",
			check: func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			},
		})
	}
	return h
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Env     string `json:"env,omitempty"`
}

type ReadinessResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version,omitempty"`
	Env          string            `json:"env,omitempty"`
	Dependencies map[string]string `json:"dependencies"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{
		Status:  "ok",
		Version: h.version,
		Env:     h.env,
	})
}

// Readiness reports "error" when Postgres is unreachable and "degraded" when
// only Redis is, since bookings still succeed on the unique index alone.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := map[string]string{"redis": "disabled"}
	status := "ok"

	for _, p := range h.checks {
		pctx, pcancel := context.WithTimeout(ctx, checkTimeout)
		err := p.check(pctx)
		pcancel()

		if err == nil {
			deps[p.name] = "ok"
			continue
		}
		deps[p.name] = "down"
		switch {
		case p.critical:
			status = "error"
		case status == "ok":
			status = "degraded"
		}
	}

	httpStatus := http.StatusOK
	if status == "error" {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, ReadinessResponse{
		Status:       status,
		Version:      h.version,
		Env:          h.env,
		Dependencies: deps,
	})
}
