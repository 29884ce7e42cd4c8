package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-frontdesk/internal/db"
)

const slotIndex = "appointments_doctor_slot_scheduled_uq"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

const patientColumns = `id, first_name, last_name, email, phone, created_at, updated_at`

const doctorColumns = `id, first_name, last_name, email, phone, specialization, created_at, updated_at`

const appointmentColumns = `a.id, a.patient_id, a.doctor_id, a.appointment_date_time, a.type, a.status,
	a.duration_minutes, a.cost, a.reason, a.notes, a.cancellation_reason, a.cancelled_by, a.updated_by,
	a.created_at, a.updated_at`

const detailColumns = appointmentColumns + `,
	p.id, p.first_name, p.last_name, p.email, p.phone, p.created_at, p.updated_at,
	d.id, d.first_name, d.last_name, d.email, d.phone, d.specialization, d.created_at, d.updated_at`

const detailFrom = `
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN doctors d ON d.id = a.doctor_id`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(&d.ID, &d.FirstName, &d.LastName, &d.Email, &d.Phone, &d.Specialization, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func appointmentDest(a *Appointment) []any {
	return []any{
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.AppointmentDateTime,
		&a.Type,
		&a.Status,
		&a.DurationMinutes,
		&a.Cost,
		&a.Reason,
		&a.Notes,
		&a.CancellationReason,
		&a.CancelledBy,
		&a.UpdatedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	}
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	if err := row.Scan(appointmentDest(&a)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func scanDetail(row pgx.Row) (*AppointmentDetail, error) {
	var (
		d   AppointmentDetail
		pat Patient
		doc Doctor
	)

	dest := appointmentDest(&d.Appointment)
	dest = append(dest,
		&pat.ID, &pat.FirstName, &pat.LastName, &pat.Email, &pat.Phone, &pat.CreatedAt, &pat.UpdatedAt,
		&doc.ID, &doc.FirstName, &doc.LastName, &doc.Email, &doc.Phone, &doc.Specialization, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	d.Patient = &pat
	d.Doctor = &doc
	return &d, nil
}

// translateWriteErr maps constraint violations to domain errors.
func translateWriteErr(err error) error {
	switch {
	case db.IsUniqueViolation(err, slotIndex):
		return ErrSlotConflict
	case db.IsForeignKeyViolation(err):
		if strings.Contains(db.ViolatedConstraint(err), "doctor") {
			return ErrDoctorNotFound
		}
		return ErrPatientNotFound
	}
	return err
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id int64) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id int64) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+doctorColumns+` FROM doctors WHERE id = $1`, id)
	return scanDoctor(row)
}

func (r *PgRepository) FindPatientsByName(ctx context.Context, first, last string, match NameMatch, limit int) ([]Patient, error) {
	var (
		query string
		args  []any
	)

	switch match {
	case MatchExact:
		query = `WHERE first_name = $1 AND last_name = $2`
		args = []any{first, last}
	case MatchFold:
		query = `WHERE lower(first_name) = lower($1) AND lower(last_name) = lower($2)`
		args = []any{first, last}
	case MatchContains:
		query = `WHERE (first_name || ' ' || last_name) ILIKE '%' || $1 || '%'`
		args = []any{likeEscape(strings.TrimSpace(first + " " + last))}
	default:
		return nil, fmt.Errorf("unknown name match %d", match)
	}
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		`+query+`
		ORDER BY last_name, first_name, id
		LIMIT $`+fmt.Sprint(len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id int64) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments a WHERE a.id = $1`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentDetail(ctx context.Context, id int64) (*AppointmentDetail, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+detailColumns+detailFrom+` WHERE a.id = $1`, id)
	return scanDetail(row)
}

func (r *PgRepository) FindScheduledAt(ctx context.Context, doctorID int64, at time.Time, excludeID int64) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.doctor_id = $1
		  AND a.appointment_date_time = $2
		  AND a.status = 'scheduled'
		  AND a.id <> $3
		LIMIT 1
	`, doctorID, at, excludeID)
	return scanAppointment(row)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (
			patient_id, doctor_id, appointment_date_time, type, status, duration_minutes,
			cost, reason, notes, updated_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING id, created_at, updated_at
	`, a.PatientID, a.DoctorID, a.AppointmentDateTime, a.Type, a.Status, a.DurationMinutes,
		a.Cost, a.Reason, a.Notes, a.UpdatedBy)

	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return translateWriteErr(err)
	}
	return nil
}

func (r *PgRepository) SaveAppointment(ctx context.Context, a *Appointment) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET patient_id = $2,
		    doctor_id = $3,
		    appointment_date_time = $4,
		    type = $5,
		    status = $6,
		    duration_minutes = $7,
		    cost = $8,
		    reason = $9,
		    notes = $10,
		    cancellation_reason = $11,
		    cancelled_by = $12,
		    updated_by = $13,
		    updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, a.ID, a.PatientID, a.DoctorID, a.AppointmentDateTime, a.Type, a.Status, a.DurationMinutes,
		a.Cost, a.Reason, a.Notes, a.CancellationReason, a.CancelledBy, a.UpdatedBy)

	if err := row.Scan(&a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAppointmentNotFound
		}
		return translateWriteErr(err)
	}
	return nil
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

var sortColumns = map[SortField]string{
	SortByDateTime:  "a.appointment_date_time",
	SortByCreatedAt: "a.created_at",
	SortByStatus:    "a.status",
	SortByType:      "a.type",
	SortByID:        "a.id",
}

func buildWhere(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.PatientID != 0 {
		add("a.patient_id = $%d", f.PatientID)
	}
	if f.DoctorID != 0 {
		add("a.doctor_id = $%d", f.DoctorID)
	}
	if f.Status != "" {
		add("a.status = $%d", f.Status)
	}
	if f.Type != "" {
		add("a.type = $%d", f.Type)
	}
	if !f.From.IsZero() {
		add("a.appointment_date_time >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("a.appointment_date_time < $%d", f.To)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *PgRepository) ListAppointments(ctx context.Context, f Filter, opts ListOptions) ([]AppointmentDetail, int, error) {
	where, args := buildWhere(f)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM appointments a`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	col, ok := sortColumns[opts.SortBy]
	if !ok {
		col = sortColumns[SortByDateTime]
	}
	dir := "ASC"
	if opts.Desc {
		dir = "DESC"
	}

	query := `SELECT ` + detailColumns + detailFrom + where +
		fmt.Sprintf(" ORDER BY %s %s, a.id %s", col, dir, dir)
	if opts.Limit > 0 {
		args = append(args, opts.Limit, opts.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	result := []AppointmentDetail{}
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return result, total, nil
}

func (r *PgRepository) CountByStatus(ctx context.Context) (map[AppointmentStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, count(*) FROM appointments GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[AppointmentStatus]int)
	for rows.Next() {
		var (
			s AppointmentStatus
			n int
		)
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		counts[s] = n
	}
	return counts, rows.Err()
}

func (r *PgRepository) MarkNoShows(ctx context.Context, before time.Time, actor string) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE appointments
		SET status = 'no_show',
		    updated_by = $2,
		    updated_at = now()
		WHERE status = 'scheduled'
		  AND appointment_date_time < $1
		RETURNING id
	`, before, actor)
	if err != nil {
		return nil, fmt.Errorf("mark no-shows: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("mark no-shows: %w", err)
	}
	return ids, nil
}

func likeEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
