package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/hackgods/clinic-frontdesk/internal/apperr"
)

var (
	ErrPatientNotFound     = fmt.Errorf("%w: patient not found", apperr.ErrNotFound)
	ErrDoctorNotFound      = fmt.Errorf("%w: doctor not found", apperr.ErrNotFound)
	ErrAppointmentNotFound = fmt.Errorf("%w: appointment not found", apperr.ErrNotFound)
)

// Filter narrows appointment listings. Zero values mean "any".
type Filter struct {
	PatientID int64
	DoctorID  int64
	Status    AppointmentStatus
	Type      AppointmentType
	From, To  time.Time // appointmentDateTime in [From, To)
}

type SortField string

const (
	SortByDateTime  SortField = "appointmentDateTime"
	SortByCreatedAt SortField = "createdAt"
	SortByStatus    SortField = "status"
	SortByType      SortField = "type"
	SortByID        SortField = "id"
)

type ListOptions struct {
	SortBy SortField
	Desc   bool
	Offset int
	Limit  int // 0 means no limit
}

// NameMatch selects how FindPatientsByName compares names.
type NameMatch int

const (
	// MatchExact compares first and last name exactly.
	MatchExact NameMatch = iota
	// MatchFold compares first and last name case-insensitively.
	MatchFold
	// MatchContains finds the query anywhere in "first last", case-insensitively.
	MatchContains
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPatientByID(ctx context.Context, id int64) (*Patient, error)
	GetDoctorByID(ctx context.Context, id int64) (*Doctor, error)
	FindPatientsByName(ctx context.Context, first, last string, match NameMatch, limit int) ([]Patient, error)

	GetAppointmentByID(ctx context.Context, id int64) (*Appointment, error)
	GetAppointmentDetail(ctx context.Context, id int64) (*AppointmentDetail, error)

	// For conflict checks. excludeID 0 excludes nothing.
	FindScheduledAt(ctx context.Context, doctorID int64, at time.Time, excludeID int64) (*Appointment, error)

	// Creation and updates. Both return ErrSlotConflict when the store's
	// uniqueness guarantee for scheduled slots rejects the write.
	CreateAppointment(ctx context.Context, a *Appointment) error
	SaveAppointment(ctx context.Context, a *Appointment) error
	DeleteAppointment(ctx context.Context, id int64) error

	// Listing
	ListAppointments(ctx context.Context, f Filter, opts ListOptions) ([]AppointmentDetail, int, error)
	CountByStatus(ctx context.Context) (map[AppointmentStatus]int, error)

	// No-show sweeper
	// MarkNoShows returns the ids it moved to no_show.
	MarkNoShows(ctx context.Context, before time.Time, actor string) ([]int64, error)
}
