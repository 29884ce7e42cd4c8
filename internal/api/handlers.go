package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/clinic-frontdesk/internal/appointment"
	"github.com/hackgods/clinic-frontdesk/internal/events"
	"github.com/hackgods/clinic-frontdesk/internal/pagination"
)

func createAppointmentHandler(svc AppointmentService, pub events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		actor := actorFrom(r)
		appt, err := svc.CreateAppointment(r.Context(), actor, appointment.CreateInput{
			PatientID:       req.PatientID,
			DoctorID:        req.DoctorID,
			Date:            req.AppointmentDate,
			Time:            req.AppointmentTime,
			Type:            appointment.AppointmentType(req.Type),
			Reason:          req.Reason,
			Notes:           req.Notes,
			DurationMinutes: req.Duration,
			Cost:            req.Cost,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		resp := toAppointmentResponse(*appt, svc.Now(), svc.Location())
		events.Emit(r.Context(), pub, events.New(events.AppointmentCreated, events.AggregateAppointment, appt.ID, actor.Label(), resp))

		writeJSON(w, http.StatusCreated, map[string]any{
			"message":     "Appointment created successfully",
			"appointment": resp,
		})
	}
}

func listAppointmentsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		patientID, ok := queryInt(w, r, "patientId", 0)
		if !ok {
			return
		}
		doctorID, ok := queryInt(w, r, "doctorId", 0)
		if !ok {
			return
		}

		items, page, err := svc.ListAppointments(r.Context(), appointment.ListQuery{
			PatientID: patientID,
			DoctorID:  doctorID,
			Status:    appointment.AppointmentStatus(q.Get("status")),
			Type:      appointment.AppointmentType(q.Get("type")),
			Date:      q.Get("date"),
			SortBy:    q.Get("sortBy"),
			SortOrder: q.Get("sortOrder"),
			Page:      pagination.FromRequest(r),
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message":      "Appointments retrieved successfully",
			"appointments": toDetailResponses(items, svc.Now(), svc.Location()),
			"pagination":   page,
		})
	}
}

func getAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		detail, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message":     "Appointment retrieved successfully",
			"appointment": toDetailResponse(*detail, svc.Now(), svc.Location()),
		})
	}
}

func updateAppointmentHandler(svc AppointmentService, pub events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		var req UpdateAppointmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		actor := actorFrom(r)
		appt, err := svc.UpdateAppointment(r.Context(), actor, id, req.toPatch())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		resp := toAppointmentResponse(*appt, svc.Now(), svc.Location())
		events.Emit(r.Context(), pub, events.New(events.AppointmentUpdated, events.AggregateAppointment, id, actor.Label(), resp))

		writeJSON(w, http.StatusOK, map[string]any{
			"message":     "Appointment updated successfully",
			"appointment": resp,
		})
	}
}

func cancelAppointmentHandler(svc AppointmentService, pub events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		// The body is optional.
		var req CancelAppointmentRequest
		if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
			return
		}

		actor := actorFrom(r)
		appt, err := svc.CancelAppointment(r.Context(), actor, id, req.CancellationReason)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		resp := toAppointmentResponse(*appt, svc.Now(), svc.Location())
		events.Emit(r.Context(), pub, events.New(events.AppointmentCancelled, events.AggregateAppointment, id, actor.Label(), resp))

		writeJSON(w, http.StatusOK, map[string]any{
			"message":     "Appointment cancelled successfully",
			"appointment": resp,
		})
	}
}

func rescheduleAppointmentHandler(svc AppointmentService, pub events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		var req RescheduleAppointmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.AppointmentDate == "" || req.AppointmentTime == "" {
			writeError(w, http.StatusBadRequest, "invalid_input", "appointmentDate and appointmentTime are required")
			return
		}

		actor := actorFrom(r)
		appt, err := svc.RescheduleAppointment(r.Context(), actor, id, req.AppointmentDate, req.AppointmentTime)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		resp := toAppointmentResponse(*appt, svc.Now(), svc.Location())
		events.Emit(r.Context(), pub, events.New(events.AppointmentRescheduled, events.AggregateAppointment, id, actor.Label(), resp))

		writeJSON(w, http.StatusOK, map[string]any{
			"message":     "Appointment rescheduled successfully",
			"appointment": resp,
		})
	}
}

func completeAppointmentHandler(svc AppointmentService, pub events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		actor := actorFrom(r)
		appt, err := svc.CompleteAppointment(r.Context(), actor, id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		resp := toAppointmentResponse(*appt, svc.Now(), svc.Location())
		events.Emit(r.Context(), pub, events.New(events.AppointmentCompleted, events.AggregateAppointment, id, actor.Label(), resp))

		writeJSON(w, http.StatusOK, map[string]any{
			"message":     "Appointment completed successfully",
			"appointment": resp,
		})
	}
}

func deleteAppointmentHandler(svc AppointmentService, pub events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		appt, err := svc.DeleteAppointment(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		resp := toAppointmentResponse(*appt, svc.Now(), svc.Location())
		events.Emit(r.Context(), pub, events.New(events.AppointmentDeleted, events.AggregateAppointment, id, actorFrom(r).Label(), resp))

		writeJSON(w, http.StatusOK, map[string]any{
			"message":     "Appointment deleted successfully",
			"appointment": resp,
		})
	}
}

func todayAppointmentsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.TodayAppointments(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message":      "Today's appointments retrieved successfully",
			"appointments": toDetailResponses(items, svc.Now(), svc.Location()),
		})
	}
}

func upcomingAppointmentsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days, ok := queryInt(w, r, "days", appointment.DefaultUpcomingDays)
		if !ok {
			return
		}

		items, err := svc.UpcomingAppointments(r.Context(), int(days))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message":      "Upcoming appointments retrieved successfully",
			"appointments": toDetailResponses(items, svc.Now(), svc.Location()),
		})
	}
}

func appointmentStatsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.AppointmentStats(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Appointment statistics retrieved successfully",
			"stats":   stats,
		})
	}
}

func availableSlotsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := pathID(w, r, "doctorId")
		if !ok {
			return
		}
		date := chi.URLParam(r, "date")

		slots, err := svc.AvailableSlots(r.Context(), doctorID, date)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message":        "Available slots retrieved successfully",
			"doctorId":       doctorID,
			"date":           date,
			"availableSlots": slots,
		})
	}
}

func patientCandidatesHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patients, err := svc.FindPatientCandidates(r.Context(), r.URL.Query().Get("name"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		out := make([]*PersonSummary, 0, len(patients))
		for _, p := range patients {
			out = append(out, toPatientSummary(p))
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message":    strconv.Itoa(len(out)) + " matching patients",
			"candidates": out,
		})
	}
}
