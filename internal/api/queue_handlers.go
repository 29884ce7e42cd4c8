package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/clinic-frontdesk/internal/events"
	"github.com/hackgods/clinic-frontdesk/internal/queue"
)

func createQueueEntryHandler(svc QueueService, pub events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateQueueEntryRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		actor := actorFrom(r)
		entry, err := svc.CreateEntry(r.Context(), actor, queue.CreateInput{
			PatientName: req.PatientName,
			PatientID:   req.PatientID,
			Priority:    queue.Priority(req.Priority),
			Reason:      req.Reason,
			Notes:       req.Notes,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		resp := toQueueEntryResponse(*entry, svc.Now())
		events.Emit(r.Context(), pub, events.New(events.QueueEntryCreated, events.AggregateQueueEntry, entry.ID, actor.Label(), resp))

		writeJSON(w, http.StatusCreated, map[string]any{
			"message":    "Patient added to queue successfully",
			"queueEntry": resp,
		})
	}
}

// queueListHandler serves the read-only views that return a list of entries.
func queueListHandler(svc QueueService, message string, list func(r *http.Request) ([]queue.Entry, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := list(r)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message":      message,
			"queueEntries": toQueueEntryResponses(entries, svc.Now()),
		})
	}
}

func listQueueHandler(svc QueueService) http.HandlerFunc {
	return queueListHandler(svc, "Queue retrieved successfully", func(r *http.Request) ([]queue.Entry, error) {
		return svc.ListEntries(r.Context())
	})
}

func activeQueueHandler(svc QueueService) http.HandlerFunc {
	return queueListHandler(svc, "Active queue retrieved successfully", func(r *http.Request) ([]queue.Entry, error) {
		return svc.ActiveEntries(r.Context())
	})
}

func queueByStatusHandler(svc QueueService) http.HandlerFunc {
	return queueListHandler(svc, "Queue entries retrieved successfully", func(r *http.Request) ([]queue.Entry, error) {
		return svc.EntriesByStatus(r.Context(), queue.Status(chi.URLParam(r, "status")))
	})
}

func queueByPriorityHandler(svc QueueService) http.HandlerFunc {
	return queueListHandler(svc, "Queue entries retrieved successfully", func(r *http.Request) ([]queue.Entry, error) {
		return svc.EntriesByPriority(r.Context(), queue.Priority(chi.URLParam(r, "priority")))
	})
}

func queueStatsHandler(svc QueueService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.QueueStats(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Queue statistics retrieved successfully",
			"stats":   stats,
		})
	}
}

func nextQueueEntryHandler(svc QueueService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, err := svc.NextEntry(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if entry == nil {
			writeJSON(w, http.StatusOK, map[string]any{
				"message":    "No patients waiting",
				"queueEntry": nil,
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message":    "Next patient retrieved successfully",
			"queueEntry": toQueueEntryResponse(*entry, svc.Now()),
		})
	}
}

func getQueueEntryHandler(svc QueueService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		entry, err := svc.GetEntry(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message":    "Queue entry retrieved successfully",
			"queueEntry": toQueueEntryResponse(*entry, svc.Now()),
		})
	}
}

// queueMutationHandler decodes req (if non-nil), runs mutate and publishes eventType.
func queueMutationHandler[T any](svc QueueService, pub events.Publisher, eventType, message string,
	mutate func(r *http.Request, id int64, req *T) (*queue.Entry, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		var req T
		if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
			return
		}

		entry, err := mutate(r, id, &req)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		resp := toQueueEntryResponse(*entry, svc.Now())
		events.Emit(r.Context(), pub, events.New(eventType, events.AggregateQueueEntry, id, actorFrom(r).Label(), resp))

		writeJSON(w, http.StatusOK, map[string]any{
			"message":    message,
			"queueEntry": resp,
		})
	}
}

func updateQueueEntryHandler(svc QueueService, pub events.Publisher) http.HandlerFunc {
	return queueMutationHandler(svc, pub, events.QueueEntryUpdated, "Queue entry updated successfully",
		func(r *http.Request, id int64, req *UpdateQueueEntryRequest) (*queue.Entry, error) {
			return svc.UpdateEntry(r.Context(), actorFrom(r), id, req.toPatch())
		})
}

func updateQueueStatusHandler(svc QueueService, pub events.Publisher) http.HandlerFunc {
	return queueMutationHandler(svc, pub, events.QueueStatusChanged, "Queue status updated successfully",
		func(r *http.Request, id int64, req *QueueStatusRequest) (*queue.Entry, error) {
			return svc.UpdateStatus(r.Context(), actorFrom(r), id, queue.Status(req.Status))
		})
}

func assignDoctorHandler(svc QueueService, pub events.Publisher) http.HandlerFunc {
	return queueMutationHandler(svc, pub, events.QueueDoctorAssigned, "Doctor assigned successfully",
		func(r *http.Request, id int64, req *AssignDoctorRequest) (*queue.Entry, error) {
			return svc.AssignDoctor(r.Context(), actorFrom(r), id, req.DoctorID)
		})
}

func cancelQueueEntryHandler(svc QueueService, pub events.Publisher) http.HandlerFunc {
	return queueMutationHandler(svc, pub, events.QueueEntryCancelled, "Queue entry cancelled successfully",
		func(r *http.Request, id int64, req *CancelQueueEntryRequest) (*queue.Entry, error) {
			return svc.CancelEntry(r.Context(), actorFrom(r), id, req.CancellationReason)
		})
}

func deleteQueueEntryHandler(svc QueueService, pub events.Publisher) http.HandlerFunc {
	return queueMutationHandler(svc, pub, events.QueueEntryDeleted, "Queue entry deleted successfully",
		func(r *http.Request, id int64, _ *struct{}) (*queue.Entry, error) {
			return svc.DeleteEntry(r.Context(), id)
		})
}
