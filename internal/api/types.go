package api

import (
	"time"

	"github.com/hackgods/clinic-frontdesk/internal/appointment"
	"github.com/hackgods/clinic-frontdesk/internal/queue"
	"github.com/hackgods/clinic-frontdesk/internal/timeslot"
)

type CreateAppointmentRequest struct {
	PatientID       int64    `json:"patientId"`
	DoctorID        int64    `json:"doctorId"`
	AppointmentDate string   `json:"appointmentDate"`
	AppointmentTime string   `json:"appointmentTime"`
	Type            string   `json:"type,omitempty"`
	Reason          *string  `json:"reason,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
	Duration        int      `json:"duration,omitempty"`
	Cost            *float64 `json:"cost,omitempty"`
}

type UpdateAppointmentRequest struct {
	PatientID          *int64   `json:"patientId"`
	DoctorID           *int64   `json:"doctorId"`
	AppointmentDate    *string  `json:"appointmentDate"`
	AppointmentTime    *string  `json:"appointmentTime"`
	Type               *string  `json:"type"`
	Status             *string  `json:"status"`
	Reason             *string  `json:"reason"`
	Notes              *string  `json:"notes"`
	Duration           *int     `json:"duration"`
	Cost               *float64 `json:"cost"`
	CancellationReason *string  `json:"cancellationReason"`
}

func (r UpdateAppointmentRequest) toPatch() appointment.Patch {
	p := appointment.Patch{
		PatientID:          r.PatientID,
		DoctorID:           r.DoctorID,
		Date:               r.AppointmentDate,
		Time:               r.AppointmentTime,
		Reason:             r.Reason,
		Notes:              r.Notes,
		DurationMinutes:    r.Duration,
		Cost:               r.Cost,
		CancellationReason: r.CancellationReason,
	}
	if r.Type != nil {
		t := appointment.AppointmentType(*r.Type)
		p.Type = &t
	}
	if r.Status != nil {
		s := appointment.AppointmentStatus(*r.Status)
		p.Status = &s
	}
	return p
}

type CancelAppointmentRequest struct {
	CancellationReason string `json:"cancellationReason"`
}

type RescheduleAppointmentRequest struct {
	AppointmentDate string `json:"appointmentDate"`
	AppointmentTime string `json:"appointmentTime"`
}

type PersonSummary struct {
	ID             int64  `json:"id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	FullName       string `json:"fullName"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Specialization string `json:"specialization,omitempty"`
}

type AppointmentResponse struct {
	ID                  int64          `json:"id"`
	PatientID           int64          `json:"patientId"`
	DoctorID            int64          `json:"doctorId"`
	AppointmentDateTime time.Time      `json:"appointmentDateTime"`
	AppointmentDate     string         `json:"appointmentDate"`
	AppointmentTime     string         `json:"appointmentTime"`
	Type                string         `json:"type"`
	Status              string         `json:"status"`
	Duration            int            `json:"duration"`
	Cost                *float64       `json:"cost,omitempty"`
	Reason              *string        `json:"reason,omitempty"`
	Notes               *string        `json:"notes,omitempty"`
	CancellationReason  *string        `json:"cancellationReason,omitempty"`
	CancelledBy         *string        `json:"cancelledBy,omitempty"`
	UpdatedBy           *string        `json:"updatedBy,omitempty"`
	CreatedAt           time.Time      `json:"createdAt"`
	UpdatedAt           time.Time      `json:"updatedAt"`
	IsUpcoming          bool           `json:"isUpcoming"`
	IsPast              bool           `json:"isPast"`
	CanBeCancelled      bool           `json:"canBeCancelled"`
	Patient             *PersonSummary `json:"patient,omitempty"`
	Doctor              *PersonSummary `json:"doctor,omitempty"`
}

func toAppointmentResponse(a appointment.Appointment, now time.Time, loc *time.Location) AppointmentResponse {
	date, clock := timeslot.Split(a.AppointmentDateTime, loc)
	return AppointmentResponse{
		ID:                  a.ID,
		PatientID:           a.PatientID,
		DoctorID:            a.DoctorID,
		AppointmentDateTime: a.AppointmentDateTime,
		AppointmentDate:     date,
		AppointmentTime:     clock,
		Type:                string(a.Type),
		Status:              string(a.Status),
		Duration:            a.DurationMinutes,
		Cost:                a.Cost,
		Reason:              a.Reason,
		Notes:               a.Notes,
		CancellationReason:  a.CancellationReason,
		CancelledBy:         a.CancelledBy,
		UpdatedBy:           a.UpdatedBy,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
		IsUpcoming:          a.IsUpcoming(now),
		IsPast:              a.IsPast(now),
		CanBeCancelled:      a.CanBeCancelled(now),
	}
}

func toDetailResponse(d appointment.AppointmentDetail, now time.Time, loc *time.Location) AppointmentResponse {
	resp := toAppointmentResponse(d.Appointment, now, loc)
	if d.Patient != nil {
		resp.Patient = toPatientSummary(*d.Patient)
	}
	if d.Doctor != nil {
		resp.Doctor = &PersonSummary{
			ID:             d.Doctor.ID,
			FirstName:      d.Doctor.FirstName,
			LastName:       d.Doctor.LastName,
			FullName:       d.Doctor.FullName(),
			Email:          d.Doctor.Email,
			Specialization: d.Doctor.Specialization,
		}
	}
	return resp
}

func toDetailResponses(items []appointment.AppointmentDetail, now time.Time, loc *time.Location) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(items))
	for _, d := range items {
		out = append(out, toDetailResponse(d, now, loc))
	}
	return out
}

func toPatientSummary(p appointment.Patient) *PersonSummary {
	return &PersonSummary{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		FullName:  p.FullName(),
		Email:     p.Email,
		Phone:     p.Phone,
	}
}

type CreateQueueEntryRequest struct {
	PatientName string  `json:"patientName"`
	PatientID   *int64  `json:"patientId,omitempty"`
	Priority    string  `json:"priority,omitempty"`
	Reason      *string `json:"reason,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

type UpdateQueueEntryRequest struct {
	Priority           *string `json:"priority"`
	Reason             *string `json:"reason"`
	Notes              *string `json:"notes"`
	AssignedDoctorID   *int64  `json:"assignedDoctorId"`
	Status             *string `json:"status"`
	CancellationReason *string `json:"cancellationReason"`
}

func (r UpdateQueueEntryRequest) toPatch() queue.Patch {
	p := queue.Patch{
		Reason:             r.Reason,
		Notes:              r.Notes,
		AssignedDoctorID:   r.AssignedDoctorID,
		CancellationReason: r.CancellationReason,
	}
	if r.Priority != nil {
		pr := queue.Priority(*r.Priority)
		p.Priority = &pr
	}
	if r.Status != nil {
		s := queue.Status(*r.Status)
		p.Status = &s
	}
	return p
}

type QueueStatusRequest struct {
	Status string `json:"status"`
}

type AssignDoctorRequest struct {
	DoctorID int64 `json:"doctorId"`
}

type CancelQueueEntryRequest struct {
	CancellationReason string `json:"cancellationReason"`
}

type QueueEntryResponse struct {
	ID                 int64      `json:"id"`
	QueueNumber        int64      `json:"queueNumber"`
	PatientID          *int64     `json:"patientId,omitempty"`
	PatientName        string     `json:"patientName"`
	Status             string     `json:"status"`
	Priority           string     `json:"priority"`
	Reason             *string    `json:"reason,omitempty"`
	Notes              *string    `json:"notes,omitempty"`
	AssignedDoctorID   *int64     `json:"assignedDoctorId,omitempty"`
	CalledAt           *time.Time `json:"calledAt,omitempty"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	CancelledBy        *string    `json:"cancelledBy,omitempty"`
	CancellationReason *string    `json:"cancellationReason,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
	WaitTimeMinutes    int        `json:"waitTimeMinutes"`
	IsActive           bool       `json:"isActive"`
	CanBeCancelled     bool       `json:"canBeCancelled"`
	CanBeCompleted     bool       `json:"canBeCompleted"`
}

func toQueueEntryResponse(e queue.Entry, now time.Time) QueueEntryResponse {
	return QueueEntryResponse{
		ID:                 e.ID,
		QueueNumber:        e.QueueNumber,
		PatientID:          e.PatientID,
		PatientName:        e.PatientName,
		Status:             string(e.Status),
		Priority:           string(e.Priority),
		Reason:             e.Reason,
		Notes:              e.Notes,
		AssignedDoctorID:   e.AssignedDoctorID,
		CalledAt:           e.CalledAt,
		CompletedAt:        e.CompletedAt,
		CancelledAt:        e.CancelledAt,
		CancelledBy:        e.CancelledBy,
		CancellationReason: e.CancellationReason,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
		WaitTimeMinutes:    e.WaitTimeMinutes(now),
		IsActive:           e.IsActive(),
		CanBeCancelled:     e.CanBeCancelled(),
		CanBeCompleted:     e.CanBeCompleted(),
	}
}

func toQueueEntryResponses(entries []queue.Entry, now time.Time) []QueueEntryResponse {
	out := make([]QueueEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toQueueEntryResponse(e, now))
	}
	return out
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
