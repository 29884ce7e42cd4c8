package appointment

import (
	"context"
	"errors"
	"time"
)

// ConflictFinder is the slice of Repository the conflict checker needs.
type ConflictFinder interface {
	FindScheduledAt(ctx context.Context, doctorID int64, at time.Time, excludeID int64) (*Appointment, error)
}

// ConflictChecker detects double bookings. Two appointments conflict only when
// both are scheduled for the same doctor at the exact same minute; duration
// is not considered.
type ConflictChecker struct {
	finder ConflictFinder
}

func NewConflictChecker(finder ConflictFinder) *ConflictChecker {
	return &ConflictChecker{finder: finder}
}

// HasConflict reports whether another scheduled appointment occupies the
// doctor's slot at. excludeID lets an appointment being moved ignore itself.
func (c *ConflictChecker) HasConflict(ctx context.Context, doctorID int64, at time.Time, excludeID int64) (bool, error) {
	existing, err := c.finder.FindScheduledAt(ctx, doctorID, at.Truncate(time.Minute), excludeID)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return false, nil
		}
		return false, err
	}
	return existing != nil, nil
}
