package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// verifyInvariants checks the data left behind by a run.
func verifyInvariants(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	var out []string

	rows, err := pool.Query(ctx, `
		SELECT doctor_id, appointment_date_time, count(*)
		FROM appointments
		WHERE status = 'scheduled'
		GROUP BY doctor_id, appointment_date_time
		HAVING count(*) > 1
	`)
	if err != nil {
		return nil, fmt.Errorf("check double bookings: %w", err)
	}
	for rows.Next() {
		var (
			doctorID int64
			at       time.Time
			n        int64
		)
		if err := rows.Scan(&doctorID, &at, &n); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, fmt.Sprintf("doctor %d has %d scheduled appointments at %s", doctorID, n, at.Format(time.RFC3339)))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var dupNumbers int64
	err = pool.QueryRow(ctx, `
		SELECT count(*) FROM (
			SELECT queue_number FROM queue_entries GROUP BY queue_number HAVING count(*) > 1
		) d
	`).Scan(&dupNumbers)
	if err != nil {
		return nil, fmt.Errorf("check queue numbers: %w", err)
	}
	if dupNumbers > 0 {
		out = append(out, fmt.Sprintf("%d queue numbers were handed out more than once", dupNumbers))
	}

	var maxNumber, lastValue int64
	err = pool.QueryRow(ctx, `
		SELECT COALESCE((SELECT max(queue_number) FROM queue_entries), 0),
		       (SELECT last_value FROM queue_sequence WHERE id = 1)
	`).Scan(&maxNumber, &lastValue)
	if err != nil {
		return nil, fmt.Errorf("check queue sequence: %w", err)
	}
	if maxNumber > lastValue {
		out = append(out, fmt.Sprintf("queue counter %d is behind issued number %d", lastValue, maxNumber))
	}

	return out, nil
}
