package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-frontdesk/internal/db"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const entryColumns = `id, queue_number, patient_id, patient_name, status, priority, reason, notes,
	assigned_doctor_id, called_at, completed_at, cancelled_at, cancelled_by, cancellation_reason,
	created_at, updated_at`

const priorityOrder = `
	ORDER BY CASE priority WHEN 'emergency' THEN 3 WHEN 'urgent' THEN 2 ELSE 1 END DESC, queue_number ASC`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry

	err := row.Scan(
		&e.ID,
		&e.QueueNumber,
		&e.PatientID,
		&e.PatientName,
		&e.Status,
		&e.Priority,
		&e.Reason,
		&e.Notes,
		&e.AssignedDoctorID,
		&e.CalledAt,
		&e.CompletedAt,
		&e.CancelledAt,
		&e.CancelledBy,
		&e.CancellationReason,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return &e, nil
}

func translateWriteErr(err error) error {
	if !db.IsForeignKeyViolation(err) {
		return err
	}
	if strings.Contains(db.ViolatedConstraint(err), "doctor") {
		return ErrDoctorNotFound
	}
	return ErrPatientNotFound
}

// Create takes the next number from queue_sequence. The counter row is locked
// by the UPDATE until commit, so concurrent creates are serialized and a
// number is never handed out twice, even after the highest entry is deleted.
func (r *PgRepository) Create(ctx context.Context, e *Entry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var number int64
	err = tx.QueryRow(ctx, `
		UPDATE queue_sequence
		SET last_value = GREATEST(last_value, (SELECT COALESCE(max(queue_number), 0) FROM queue_entries)) + 1
		WHERE id = 1
		RETURNING last_value
	`).Scan(&number)
	if err != nil {
		return fmt.Errorf("next queue number: %w", err)
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO queue_entries (
			queue_number, patient_id, patient_name, status, priority, reason, notes,
			assigned_doctor_id, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING `+entryColumns,
		number, e.PatientID, e.PatientName, e.Status, e.Priority, e.Reason, e.Notes, e.AssignedDoctorID)

	created, err := scanEntry(row)
	if err != nil {
		return translateWriteErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	*e = *created
	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id int64) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM queue_entries WHERE id = $1`, id)
	return scanEntry(row)
}

func (r *PgRepository) Save(ctx context.Context, e *Entry) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE queue_entries
		SET status = $2,
		    priority = $3,
		    reason = $4,
		    notes = $5,
		    assigned_doctor_id = $6,
		    called_at = $7,
		    completed_at = $8,
		    cancelled_at = $9,
		    cancelled_by = $10,
		    cancellation_reason = $11,
		    updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, e.ID, e.Status, e.Priority, e.Reason, e.Notes, e.AssignedDoctorID,
		e.CalledAt, e.CompletedAt, e.CancelledAt, e.CancelledBy, e.CancellationReason)

	if err := row.Scan(&e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrEntryNotFound
		}
		return translateWriteErr(err)
	}
	return nil
}

func (r *PgRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM queue_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *PgRepository) List(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Priority != "" {
		args = append(args, f.Priority)
		conds = append(conds, fmt.Sprintf("priority = $%d", len(args)))
	}

	query := `SELECT ` + entryColumns + ` FROM queue_entries`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}

	rows, err := r.pool.Query(ctx, query+priorityOrder, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, count(*) FROM queue_entries GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var (
			s Status
			n int
		)
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		counts[s] = n
	}
	return counts, rows.Err()
}

func (r *PgRepository) DoctorExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM doctors WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}
