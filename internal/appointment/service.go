package appointment

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hackgods/clinic-frontdesk/internal/apperr"
	"github.com/hackgods/clinic-frontdesk/internal/auth"
	"github.com/hackgods/clinic-frontdesk/internal/config"
	"github.com/hackgods/clinic-frontdesk/internal/pagination"
	redisclient "github.com/hackgods/clinic-frontdesk/internal/redis"
	"github.com/hackgods/clinic-frontdesk/internal/timeslot"
)

var (
	ErrSlotConflict              = fmt.Errorf("%w: this time slot is already booked", apperr.ErrConflict)
	ErrSlotBeingBooked           = fmt.Errorf("%w: slot is currently being booked, please retry", apperr.ErrConflict)
	ErrAlreadyCancelled          = fmt.Errorf("%w: appointment is already cancelled", apperr.ErrTerminalState)
	ErrCannotRescheduleCancelled = fmt.Errorf("%w: cannot reschedule a cancelled appointment", apperr.ErrTerminalState)
	ErrFinalStatus               = fmt.Errorf("%w: appointment status is final", apperr.ErrTerminalState)
	ErrInvalidStatusTransition   = fmt.Errorf("%w: invalid status transition", apperr.ErrConflict)
)

const (
	DefaultUpcomingDays = 7
	MaxUpcomingDays     = 365
	maxCandidates       = 20
)

type Service struct {
	repo      Repository
	locker    redisclient.Locker
	conflicts *ConflictChecker
	loc       *time.Location
	now       func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, used by tests and the no-show worker.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.Config, opts ...Option) *Service {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{
		repo:      repo,
		locker:    locker,
		conflicts: NewConflictChecker(repo),
		loc:       loc,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now is the service clock, exposed so callers compute derived fields consistently.
func (s *Service) Now() time.Time {
	return s.now()
}

func (s *Service) Location() *time.Location {
	return s.loc
}

type CreateInput struct {
	PatientID       int64
	DoctorID        int64
	Date            string
	Time            string
	Type            AppointmentType
	Reason          *string
	Notes           *string
	DurationMinutes int
	Cost            *float64
}

// CreateAppointment books a scheduled appointment. The slot lock serializes
// concurrent bookings of the same doctor and minute so the conflict check and
// the insert act as one step; the store's unique index backs it up.
func (s *Service) CreateAppointment(ctx context.Context, actor auth.Actor, in CreateInput) (*Appointment, error) {
	if in.PatientID <= 0 {
		return nil, apperr.Invalid("patientId is required")
	}
	if in.DoctorID <= 0 {
		return nil, apperr.Invalid("doctorId is required")
	}
	if in.Type == "" {
		in.Type = TypeConsultation
	}
	if !in.Type.Valid() {
		return nil, apperr.Invalid("unknown appointment type %q", in.Type)
	}
	if in.DurationMinutes < 0 {
		return nil, apperr.Invalid("duration must not be negative")
	}
	if in.DurationMinutes == 0 {
		in.DurationMinutes = DefaultDurationMinutes
	}
	if in.Cost != nil && *in.Cost < 0 {
		return nil, apperr.Invalid("cost must not be negative")
	}

	at, err := timeslot.Combine(in.Date, in.Time, s.loc)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetPatientByID(ctx, in.PatientID); err != nil {
		return nil, storageErr("load patient", err)
	}
	if _, err := s.repo.GetDoctorByID(ctx, in.DoctorID); err != nil {
		return nil, storageErr("load doctor", err)
	}

	by := actor.Label()
	appt := &Appointment{
		PatientID:           in.PatientID,
		DoctorID:            in.DoctorID,
		AppointmentDateTime: at,
		Type:                in.Type,
		Status:              StatusScheduled,
		DurationMinutes:     in.DurationMinutes,
		Cost:                in.Cost,
		Reason:              trimmed(in.Reason),
		Notes:               trimmed(in.Notes),
		UpdatedBy:           &by,
	}

	err = s.withSlot(ctx, in.DoctorID, at, 0, func(lockCtx context.Context) error {
		if err := s.repo.CreateAppointment(lockCtx, appt); err != nil {
			return storageErr("create appointment", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return appt, nil
}

// GetAppointment retrieves a fully hydrated appointment by ID
func (s *Service) GetAppointment(ctx context.Context, id int64) (*AppointmentDetail, error) {
	detail, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		return nil, storageErr("get appointment", err)
	}
	return detail, nil
}

type ListQuery struct {
	PatientID int64
	DoctorID  int64
	Status    AppointmentStatus
	Type      AppointmentType
	Date      string
	SortBy    string
	SortOrder string
	Page      pagination.Params
}

// ListAppointments filters, sorts and paginates appointments.
func (s *Service) ListAppointments(ctx context.Context, q ListQuery) ([]AppointmentDetail, pagination.Response, error) {
	page := q.Page.Normalize()

	f := Filter{PatientID: q.PatientID, DoctorID: q.DoctorID}
	if q.Status != "" {
		if !q.Status.Valid() {
			return nil, pagination.Response{}, apperr.Invalid("unknown status %q", q.Status)
		}
		f.Status = q.Status
	}
	if q.Type != "" {
		if !q.Type.Valid() {
			return nil, pagination.Response{}, apperr.Invalid("unknown type %q", q.Type)
		}
		f.Type = q.Type
	}
	if q.Date != "" {
		from, to, err := timeslot.DayBounds(q.Date, s.loc)
		if err != nil {
			return nil, pagination.Response{}, err
		}
		f.From, f.To = from, to
	}

	opts := ListOptions{SortBy: SortByDateTime, Offset: page.Offset(), Limit: page.Limit}
	if q.SortBy != "" {
		switch sf := SortField(q.SortBy); sf {
		case SortByDateTime, SortByCreatedAt, SortByStatus, SortByType, SortByID:
			opts.SortBy = sf
		default:
			return nil, pagination.Response{}, apperr.Invalid("cannot sort by %q", q.SortBy)
		}
	}
	switch strings.ToUpper(q.SortOrder) {
	case "", "ASC":
	case "DESC":
		opts.Desc = true
	default:
		return nil, pagination.Response{}, apperr.Invalid("sortOrder must be ASC or DESC")
	}

	items, total, err := s.repo.ListAppointments(ctx, f, opts)
	if err != nil {
		return nil, pagination.Response{}, storageErr("list appointments", err)
	}
	return items, pagination.NewResponse(page, total), nil
}

type Patch struct {
	PatientID          *int64
	DoctorID           *int64
	Date               *string
	Time               *string
	Type               *AppointmentType
	Status             *AppointmentStatus
	Reason             *string
	Notes              *string
	DurationMinutes    *int
	Cost               *float64
	CancellationReason *string
}

// UpdateAppointment merges p into the appointment. Date and time fall back to
// the stored values for whichever is missing, and any move into a scheduled
// slot is conflict-checked excluding the appointment itself. Nothing is
// written unless the whole patch is valid.
func (s *Service) UpdateAppointment(ctx context.Context, actor auth.Actor, id int64, p Patch) (*Appointment, error) {
	current, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, storageErr("load appointment", err)
	}
	next := *current

	if p.Date != nil || p.Time != nil {
		date, clock := timeslot.Split(current.AppointmentDateTime, s.loc)
		if p.Date != nil {
			date = *p.Date
		}
		if p.Time != nil {
			clock = *p.Time
		}
		at, err := timeslot.Combine(date, clock, s.loc)
		if err != nil {
			return nil, err
		}
		next.AppointmentDateTime = at
	}

	if p.PatientID != nil && *p.PatientID != current.PatientID {
		if _, err := s.repo.GetPatientByID(ctx, *p.PatientID); err != nil {
			return nil, storageErr("load patient", err)
		}
		next.PatientID = *p.PatientID
	}
	if p.DoctorID != nil && *p.DoctorID != current.DoctorID {
		if _, err := s.repo.GetDoctorByID(ctx, *p.DoctorID); err != nil {
			return nil, storageErr("load doctor", err)
		}
		next.DoctorID = *p.DoctorID
	}
	if p.Type != nil {
		if !p.Type.Valid() {
			return nil, apperr.Invalid("unknown appointment type %q", *p.Type)
		}
		next.Type = *p.Type
	}
	if p.DurationMinutes != nil {
		if *p.DurationMinutes <= 0 {
			return nil, apperr.Invalid("duration must be positive")
		}
		next.DurationMinutes = *p.DurationMinutes
	}
	if p.Cost != nil {
		if *p.Cost < 0 {
			return nil, apperr.Invalid("cost must not be negative")
		}
		next.Cost = p.Cost
	}
	if p.Reason != nil {
		next.Reason = trimmed(p.Reason)
	}
	if p.Notes != nil {
		next.Notes = trimmed(p.Notes)
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return nil, apperr.Invalid("unknown status %q", *p.Status)
		}
		if err := checkTransition(current.Status, *p.Status); err != nil {
			return nil, err
		}
		next.Status = *p.Status
		if next.Status == StatusCancelled && current.Status != StatusCancelled {
			by := actor.Label()
			next.CancelledBy = &by
			next.CancellationReason = trimmed(p.CancellationReason)
		}
	} else if p.CancellationReason != nil && current.Status == StatusCancelled {
		next.CancellationReason = trimmed(p.CancellationReason)
	}

	by := actor.Label()
	next.UpdatedBy = &by

	moved := p.Date != nil || p.Time != nil || next.DoctorID != current.DoctorID
	rescheduled := next.Status == StatusScheduled && current.Status != StatusScheduled
	if next.Status == StatusScheduled && (moved || rescheduled) {
		err = s.withSlot(ctx, next.DoctorID, next.AppointmentDateTime, id, func(lockCtx context.Context) error {
			return s.save(lockCtx, &next)
		})
	} else {
		err = s.save(ctx, &next)
	}
	if err != nil {
		return nil, err
	}
	return &next, nil
}

// CancelAppointment marks the appointment cancelled and records who did it.
func (s *Service) CancelAppointment(ctx context.Context, actor auth.Actor, id int64, reason string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, storageErr("load appointment", err)
	}
	if appt.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if err := checkTransition(appt.Status, StatusCancelled); err != nil {
		return nil, err
	}

	by := actor.Label()
	appt.Status = StatusCancelled
	appt.CancellationReason = trimmed(&reason)
	appt.CancelledBy = &by
	appt.UpdatedBy = &by

	if err := s.save(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// RescheduleAppointment moves the appointment to a new slot, changing only its timestamp.
func (s *Service) RescheduleAppointment(ctx context.Context, actor auth.Actor, id int64, date, clock string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, storageErr("load appointment", err)
	}
	if appt.Status == StatusCancelled {
		return nil, ErrCannotRescheduleCancelled
	}

	at, err := timeslot.Combine(date, clock, s.loc)
	if err != nil {
		return nil, err
	}

	next := *appt
	by := actor.Label()
	next.AppointmentDateTime = at
	next.UpdatedBy = &by

	err = s.withSlot(ctx, appt.DoctorID, at, id, func(lockCtx context.Context) error {
		return s.save(lockCtx, &next)
	})
	if err != nil {
		return nil, err
	}
	return &next, nil
}

// CompleteAppointment marks the appointment completed. Completing an already
// completed appointment is a no-op that returns it unchanged.
func (s *Service) CompleteAppointment(ctx context.Context, actor auth.Actor, id int64) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, storageErr("load appointment", err)
	}
	if appt.Status == StatusCompleted {
		return appt, nil
	}
	if err := checkTransition(appt.Status, StatusCompleted); err != nil {
		return nil, err
	}

	by := actor.Label()
	appt.Status = StatusCompleted
	appt.UpdatedBy = &by

	if err := s.save(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// DeleteAppointment removes the appointment regardless of status and returns
// the deleted record.
func (s *Service) DeleteAppointment(ctx context.Context, id int64) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, storageErr("load appointment", err)
	}
	if err := s.repo.DeleteAppointment(ctx, id); err != nil {
		return nil, storageErr("delete appointment", err)
	}
	return appt, nil
}

// TodayAppointments lists scheduled appointments in the clinic's current day.
func (s *Service) TodayAppointments(ctx context.Context) ([]AppointmentDetail, error) {
	from, to := timeslot.DayRange(s.now(), s.loc)
	return s.scheduledBetween(ctx, from, to)
}

// UpcomingAppointments lists scheduled appointments from now to now+days.
func (s *Service) UpcomingAppointments(ctx context.Context, days int) ([]AppointmentDetail, error) {
	if days < 0 || days > MaxUpcomingDays {
		return nil, apperr.Invalid("days must be between 0 and %d", MaxUpcomingDays)
	}
	now := s.now()
	return s.scheduledBetween(ctx, now, now.AddDate(0, 0, days))
}

func (s *Service) scheduledBetween(ctx context.Context, from, to time.Time) ([]AppointmentDetail, error) {
	items, _, err := s.repo.ListAppointments(ctx, Filter{Status: StatusScheduled, From: from, To: to}, ListOptions{SortBy: SortByDateTime})
	if err != nil {
		return nil, storageErr("list scheduled appointments", err)
	}
	return items, nil
}

func (s *Service) AppointmentStats(ctx context.Context) (Stats, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return Stats{}, storageErr("count appointments", err)
	}

	st := Stats{
		Scheduled:  counts[StatusScheduled],
		Confirmed:  counts[StatusConfirmed],
		InProgress: counts[StatusInProgress],
		Completed:  counts[StatusCompleted],
		Cancelled:  counts[StatusCancelled],
		NoShow:     counts[StatusNoShow],
	}
	for _, n := range counts {
		st.Total += n
	}
	return st, nil
}

// AvailableSlots returns the day's slots not taken by a scheduled
// appointment of the doctor. The result depends only on stored data.
func (s *Service) AvailableSlots(ctx context.Context, doctorID int64, date string) ([]string, error) {
	if doctorID <= 0 {
		return nil, apperr.Invalid("doctorId is required")
	}
	from, to, err := timeslot.DayBounds(date, s.loc)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, storageErr("load doctor", err)
	}

	booked, _, err := s.repo.ListAppointments(ctx,
		Filter{DoctorID: doctorID, Status: StatusScheduled, From: from, To: to},
		ListOptions{SortBy: SortByDateTime})
	if err != nil {
		return nil, storageErr("list booked slots", err)
	}

	times := make([]time.Time, 0, len(booked))
	for _, b := range booked {
		times = append(times, b.AppointmentDateTime)
	}
	return timeslot.Available(times, s.loc), nil
}

// FindPatientCandidates resolves a free-text name to possible patients. It
// tries an exact first/last match, then a case-insensitive one, then a
// substring search, and returns the first non-empty candidate list. Callers
// must pick a patient id themselves.
func (s *Service) FindPatientCandidates(ctx context.Context, name string) ([]Patient, error) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return nil, apperr.Invalid("name is required")
	}

	if len(parts) >= 2 {
		first, last := parts[0], strings.Join(parts[1:], " ")
		for _, m := range []NameMatch{MatchExact, MatchFold} {
			found, err := s.repo.FindPatientsByName(ctx, first, last, m, maxCandidates)
			if err != nil {
				return nil, storageErr("find patients", err)
			}
			if len(found) > 0 {
				return found, nil
			}
		}
	}

	found, err := s.repo.FindPatientsByName(ctx, strings.Join(parts, " "), "", MatchContains, maxCandidates)
	if err != nil {
		return nil, storageErr("find patients", err)
	}
	if found == nil {
		found = []Patient{}
	}
	return found, nil
}

// MarkNoShows moves scheduled appointments that started before the cutoff to no_show.
// It returns the affected ids in ascending order.
func (s *Service) MarkNoShows(ctx context.Context, actor auth.Actor, before time.Time) ([]int64, error) {
	ids, err := s.repo.MarkNoShows(ctx, before, actor.Label())
	if err != nil {
		return nil, storageErr("mark no-shows", err)
	}
	slices.Sort(ids)
	return ids, nil
}

// withSlot runs write inside the doctor-slot lock after confirming that no
// other scheduled appointment holds the slot.
func (s *Service) withSlot(ctx context.Context, doctorID int64, at time.Time, excludeID int64, write func(ctx context.Context) error) error {
	err := s.locker.WithSlotLock(ctx, doctorID, at, func(lockCtx context.Context) error {
		taken, err := s.conflicts.HasConflict(lockCtx, doctorID, at, excludeID)
		if err != nil {
			return storageErr("check slot conflict", err)
		}
		if taken {
			return ErrSlotConflict
		}
		return write(lockCtx)
	})
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		return ErrSlotBeingBooked
	}
	if err != nil && apperr.Kind(err) == nil {
		return apperr.Storage("slot lock", err)
	}
	return err
}

func (s *Service) save(ctx context.Context, a *Appointment) error {
	if err := s.repo.SaveAppointment(ctx, a); err != nil {
		return storageErr("save appointment", err)
	}
	return nil
}

func checkTransition(from, to AppointmentStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	if len(transitions[from]) == 0 || from == StatusCompleted {
		return fmt.Errorf("%w (%s -> %s)", ErrFinalStatus, from, to)
	}
	return fmt.Errorf("%w (%s -> %s)", ErrInvalidStatusTransition, from, to)
}

// storageErr passes domain errors through and wraps everything else as a
// storage failure.
func storageErr(op string, err error) error {
	if apperr.Kind(err) != nil {
		return err
	}
	return apperr.Storage(op, err)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
