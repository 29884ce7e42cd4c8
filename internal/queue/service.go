package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hackgods/clinic-frontdesk/internal/apperr"
	"github.com/hackgods/clinic-frontdesk/internal/auth"
)

var (
	ErrEntryClosed       = fmt.Errorf("%w: queue entry is closed", apperr.ErrTerminalState)
	ErrInvalidTransition = fmt.Errorf("%w: invalid queue status transition", apperr.ErrConflict)
)

type Service struct {
	repo Repository
	now  func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Now() time.Time {
	return s.now()
}

type CreateInput struct {
	PatientName string
	PatientID   *int64
	Priority    Priority
	Reason      *string
	Notes       *string
}

// CreateEntry adds a walk-in to the queue. The store assigns the queue number.
func (s *Service) CreateEntry(ctx context.Context, actor auth.Actor, in CreateInput) (*Entry, error) {
	name := strings.TrimSpace(in.PatientName)
	if name == "" {
		return nil, apperr.Invalid("patientName is required")
	}
	if in.Priority == "" {
		in.Priority = PriorityNormal
	}
	if !in.Priority.Valid() {
		return nil, apperr.Invalid("unknown priority %q", in.Priority)
	}

	e := &Entry{
		PatientID:   in.PatientID,
		PatientName: name,
		Status:      StatusWaiting,
		Priority:    in.Priority,
		Reason:      trimmed(in.Reason),
		Notes:       trimmed(in.Notes),
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, storageErr("create queue entry", err)
	}
	return e, nil
}

func (s *Service) GetEntry(ctx context.Context, id int64) (*Entry, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("get queue entry", err)
	}
	return e, nil
}

// ListEntries returns every entry in priority order.
func (s *Service) ListEntries(ctx context.Context) ([]Entry, error) {
	return s.list(ctx, Filter{})
}

// ActiveEntries returns the waiting entries in the order they will be called.
func (s *Service) ActiveEntries(ctx context.Context) ([]Entry, error) {
	return s.list(ctx, Filter{Status: StatusWaiting})
}

func (s *Service) EntriesByStatus(ctx context.Context, status Status) ([]Entry, error) {
	if !status.Valid() {
		return nil, apperr.Invalid("unknown status %q", status)
	}
	return s.list(ctx, Filter{Status: status})
}

func (s *Service) EntriesByPriority(ctx context.Context, p Priority) ([]Entry, error) {
	if !p.Valid() {
		return nil, apperr.Invalid("unknown priority %q", p)
	}
	return s.list(ctx, Filter{Priority: p})
}

// NextEntry is the entry that should be called next, or nil when nobody is waiting.
func (s *Service) NextEntry(ctx context.Context) (*Entry, error) {
	active, err := s.ActiveEntries(ctx)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, nil
	}
	return &active[0], nil
}

func (s *Service) QueueStats(ctx context.Context) (Stats, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return Stats{}, storageErr("count queue entries", err)
	}

	st := Stats{
		Waiting:    counts[StatusWaiting],
		WithDoctor: counts[StatusWithDoctor],
		Completed:  counts[StatusCompleted],
		Cancelled:  counts[StatusCancelled],
		NoShow:     counts[StatusNoShow],
	}
	for _, n := range counts {
		st.Total += n
	}
	return st, nil
}

type Patch struct {
	Priority           *Priority
	Reason             *string
	Notes              *string
	AssignedDoctorID   *int64
	Status             *Status
	CancellationReason *string
}

// UpdateEntry applies p as a whole. Closed entries only accept reason and
// notes edits.
func (s *Service) UpdateEntry(ctx context.Context, actor auth.Actor, id int64, p Patch) (*Entry, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("load queue entry", err)
	}

	closed := e.Status.Terminal()
	if closed && (p.Priority != nil || p.AssignedDoctorID != nil || (p.Status != nil && *p.Status != e.Status)) {
		return nil, ErrEntryClosed
	}

	if p.Priority != nil {
		if !p.Priority.Valid() {
			return nil, apperr.Invalid("unknown priority %q", *p.Priority)
		}
		e.Priority = *p.Priority
	}
	if p.AssignedDoctorID != nil {
		if err := s.checkDoctor(ctx, *p.AssignedDoctorID); err != nil {
			return nil, err
		}
		e.AssignedDoctorID = p.AssignedDoctorID
	}
	if p.Reason != nil {
		e.Reason = trimmed(p.Reason)
	}
	if p.Notes != nil {
		e.Notes = trimmed(p.Notes)
	}
	if p.Status != nil {
		reason := ""
		if p.CancellationReason != nil {
			reason = *p.CancellationReason
		}
		if err := s.applyStatus(e, actor, *p.Status, reason); err != nil {
			return nil, err
		}
	}

	if err := s.save(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateStatus moves the entry through the queue state machine. Setting the
// current status again returns the entry unchanged.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Actor, id int64, status Status) (*Entry, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("load queue entry", err)
	}
	if e.Status == status && status.Valid() {
		return e, nil
	}
	if err := s.applyStatus(e, actor, status, ""); err != nil {
		return nil, err
	}
	if err := s.save(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) CancelEntry(ctx context.Context, actor auth.Actor, id int64, reason string) (*Entry, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("load queue entry", err)
	}
	if e.Status == StatusCancelled {
		return nil, ErrEntryClosed
	}
	if err := s.applyStatus(e, actor, StatusCancelled, reason); err != nil {
		return nil, err
	}
	if err := s.save(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// AssignDoctor sets the doctor who will see the entry.
func (s *Service) AssignDoctor(ctx context.Context, actor auth.Actor, id, doctorID int64) (*Entry, error) {
	if doctorID <= 0 {
		return nil, apperr.Invalid("doctorId is required")
	}
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("load queue entry", err)
	}
	if e.Status.Terminal() {
		return nil, fmt.Errorf("%w: cannot assign a doctor to a %s entry", ErrEntryClosed, e.Status)
	}
	if err := s.checkDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	e.AssignedDoctorID = &doctorID
	if err := s.save(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// DeleteEntry removes the entry. Queue numbers are not compacted.
func (s *Service) DeleteEntry(ctx context.Context, id int64) (*Entry, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("load queue entry", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, storageErr("delete queue entry", err)
	}
	return e, nil
}

func (s *Service) applyStatus(e *Entry, actor auth.Actor, to Status, reason string) error {
	if !to.Valid() {
		return apperr.Invalid("unknown status %q", to)
	}
	if e.Status == to {
		return nil
	}
	if !CanTransition(e.Status, to) {
		if e.Status.Terminal() {
			return fmt.Errorf("%w (%s -> %s)", ErrEntryClosed, e.Status, to)
		}
		return fmt.Errorf("%w (%s -> %s)", ErrInvalidTransition, e.Status, to)
	}

	now := s.now()
	switch to {
	case StatusWithDoctor:
		e.CalledAt = &now
	case StatusCompleted:
		e.CompletedAt = &now
	case StatusCancelled:
		by := actor.Label()
		e.CancelledAt = &now
		e.CancelledBy = &by
		e.CancellationReason = trimmed(&reason)
	}
	e.Status = to
	return nil
}

func (s *Service) checkDoctor(ctx context.Context, id int64) error {
	ok, err := s.repo.DoctorExists(ctx, id)
	if err != nil {
		return apperr.Storage("check doctor", err)
	}
	if !ok {
		return ErrDoctorNotFound
	}
	return nil
}

func (s *Service) list(ctx context.Context, f Filter) ([]Entry, error) {
	entries, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, storageErr("list queue entries", err)
	}
	SortByPriority(entries)
	return entries, nil
}

func (s *Service) save(ctx context.Context, e *Entry) error {
	if err := s.repo.Save(ctx, e); err != nil {
		return storageErr("save queue entry", err)
	}
	return nil
}

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
