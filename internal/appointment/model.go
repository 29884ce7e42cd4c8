package appointment

import (
	"time"
)

type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "scheduled"
	StatusConfirmed  AppointmentStatus = "confirmed"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
	StatusNoShow     AppointmentStatus = "no_show"
)

func (s AppointmentStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// transitions lists the statuses each status may move to. Cancelled and
// no_show are terminal; completed only accepts itself so completion is idempotent.
var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusScheduled:  {StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow},
	StatusConfirmed:  {StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {StatusCompleted},
	StatusCancelled:  nil,
	StatusNoShow:     nil,
}

// CanTransition reports whether from may move to to. Setting the current
// status again is allowed unless from is terminal.
func CanTransition(from, to AppointmentStatus) bool {
	next, ok := transitions[from]
	if !ok {
		return false
	}
	if from == to && len(next) > 0 {
		return true
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

type AppointmentType string

const (
	TypeConsultation    AppointmentType = "consultation"
	TypeFollowUp        AppointmentType = "follow_up"
	TypeEmergency       AppointmentType = "emergency"
	TypeRoutineCheckup  AppointmentType = "routine_checkup"
	TypeSpecialistVisit AppointmentType = "specialist_visit"
)

func (t AppointmentType) Valid() bool {
	switch t {
	case TypeConsultation, TypeFollowUp, TypeEmergency, TypeRoutineCheckup, TypeSpecialistVisit:
		return true
	}
	return false
}

const DefaultDurationMinutes = 30

type Patient struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

type Doctor struct {
	ID             int64
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	Specialization string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (d Doctor) FullName() string {
	return d.FirstName + " " + d.LastName
}

// Appointment is a booking of a patient with a doctor at one exact minute.
// DurationMinutes and Cost are informational and play no part in conflict checks.
type Appointment struct {
	ID                  int64
	PatientID           int64
	DoctorID            int64
	AppointmentDateTime time.Time
	Type                AppointmentType
	Status              AppointmentStatus
	DurationMinutes     int
	Cost                *float64
	Reason              *string
	Notes               *string
	CancellationReason  *string
	CancelledBy         *string
	UpdatedBy           *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsUpcoming is true for scheduled appointments that have not started yet.
func (a Appointment) IsUpcoming(now time.Time) bool {
	return a.Status == StatusScheduled && a.AppointmentDateTime.After(now)
}

func (a Appointment) IsPast(now time.Time) bool {
	return a.AppointmentDateTime.Before(now)
}

// CanBeCancelled requires a scheduled appointment more than 24 hours away.
func (a Appointment) CanBeCancelled(now time.Time) bool {
	return a.Status == StatusScheduled && a.AppointmentDateTime.Sub(now) > 24*time.Hour
}

type AppointmentDetail struct {
	Appointment
	Patient *Patient
	Doctor  *Doctor
}

type Stats struct {
	Total      int `json:"total"`
	Scheduled  int `json:"scheduled"`
	Confirmed  int `json:"confirmed"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
	Cancelled  int `json:"cancelled"`
	NoShow     int `json:"noShow"`
}
