package queue

import (
	"context"
	"fmt"

	"github.com/hackgods/clinic-frontdesk/internal/apperr"
)

var (
	ErrEntryNotFound   = fmt.Errorf("%w: queue entry not found", apperr.ErrNotFound)
	ErrDoctorNotFound  = fmt.Errorf("%w: doctor not found", apperr.ErrNotFound)
	ErrPatientNotFound = fmt.Errorf("%w: patient not found", apperr.ErrNotFound)
)

// Filter narrows listings. Zero values mean "any".
type Filter struct {
	Status   Status
	Priority Priority
}

type Repository interface {
	// Create assigns the next queue number and inserts e in one transaction.
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id int64) (*Entry, error)
	Save(ctx context.Context, e *Entry) error
	Delete(ctx context.Context, id int64) error
	// List returns entries ordered by priority rank descending, then queue number.
	List(ctx context.Context, f Filter) ([]Entry, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
	DoctorExists(ctx context.Context, id int64) (bool, error)
}
