package queue

import (
	"sort"
	"time"
)

type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusWithDoctor Status = "with_doctor"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal statuses accept no further changes.
func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

var transitions = map[Status][]Status{
	StatusWaiting:    {StatusWithDoctor, StatusCancelled, StatusNoShow},
	StatusWithDoctor: {StatusCompleted, StatusWaiting, StatusCancelled},
	StatusCompleted:  nil,
	StatusCancelled:  nil,
	StatusNoShow:     nil,
}

// CanTransition reports whether an entry in from may move to to. Same-status
// moves are no-ops and always allowed.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityNormal    Priority = "normal"
	PriorityUrgent    Priority = "urgent"
	PriorityEmergency Priority = "emergency"
)

func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// Rank orders priorities; higher is seen first.
func (p Priority) Rank() int {
	switch p {
	case PriorityEmergency:
		return 3
	case PriorityUrgent:
		return 2
	case PriorityNormal:
		return 1
	}
	return 0
}

// Entry is a walk-in patient waiting to be seen.
type Entry struct {
	ID                 int64
	QueueNumber        int64
	PatientID          *int64
	PatientName        string
	Status             Status
	Priority           Priority
	Reason             *string
	Notes              *string
	AssignedDoctorID   *int64
	CalledAt           *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	CancelledBy        *string
	CancellationReason *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// WaitTimeMinutes is the time since arrival, or until the patient was called.
func (e Entry) WaitTimeMinutes(now time.Time) int {
	end := now
	if e.CalledAt != nil {
		end = *e.CalledAt
	}
	if end.Before(e.CreatedAt) {
		return 0
	}
	return int(end.Sub(e.CreatedAt) / time.Minute)
}

func (e Entry) IsActive() bool {
	return e.Status == StatusWaiting || e.Status == StatusWithDoctor
}

func (e Entry) CanBeCancelled() bool {
	return e.Status == StatusWaiting
}

func (e Entry) CanBeCompleted() bool {
	return e.Status == StatusWithDoctor
}

// SortByPriority orders entries by priority rank descending, then queue number.
func SortByPriority(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		ri, rj := entries[i].Priority.Rank(), entries[j].Priority.Rank()
		if ri != rj {
			return ri > rj
		}
		return entries[i].QueueNumber < entries[j].QueueNumber
	})
}

type Stats struct {
	Total      int `json:"total"`
	Waiting    int `json:"waiting"`
	WithDoctor int `json:"withDoctor"`
	Completed  int `json:"completed"`
	Cancelled  int `json:"cancelled"`
	NoShow     int `json:"noShow"`
}
