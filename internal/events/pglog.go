package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgLog appends events to the event_logs table.
type PgLog struct {
	pool *pgxpool.Pool
}

func NewPgLog(pool *pgxpool.Pool) *PgLog {
	return &PgLog{pool: pool}
}

func (l *PgLog) Publish(ctx context.Context, ev Event) error {
	var payload []byte
	if ev.Payload != nil {
		b, err := json.Marshal(ev.Payload)
		if err != nil {
			return fmt.Errorf("marshal event payload: %w", err)
		}
		payload = b
	}

	_, err := l.pool.Exec(ctx, `
		INSERT INTO event_logs (event_id, event_type, aggregate_type, aggregate_id, actor, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ev.ID, ev.Type, ev.AggregateType, ev.AggregateID, ev.Actor, payload, ev.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}
