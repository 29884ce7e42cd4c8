package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-frontdesk/internal/apperr"
	"github.com/hackgods/clinic-frontdesk/internal/auth"
	"github.com/hackgods/clinic-frontdesk/internal/config"
	"github.com/hackgods/clinic-frontdesk/internal/pagination"
	redisclient "github.com/hackgods/clinic-frontdesk/internal/redis"
)

var (
	testNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	staff   = auth.Actor{ID: 7, Email: "desk@clinic.test", Role: auth.RoleStaff}
)

func newTestService(t *testing.T) (*Service, *memoryRepo) {
	t.Helper()

	repo := newMemoryRepo()
	repo.addPatient(1, "Ada", "Lovelace")
	repo.addPatient(2, "Alan", "Turing")
	repo.addPatient(3, "Grace", "Hopper")
	repo.addDoctor(1, "Gregory", "House")
	repo.addDoctor(2, "Lisa", "Cuddy")

	svc := NewService(repo, redisclient.NoopLocker{}, config.Config{Location: time.UTC},
		WithClock(func() time.Time { return testNow }))
	return svc, repo
}

func book(t *testing.T, svc *Service, patientID, doctorID int64, date, clock string) *Appointment {
	t.Helper()
	a, err := svc.CreateAppointment(context.Background(), staff, CreateInput{
		PatientID: patientID, DoctorID: doctorID, Date: date, Time: clock,
	})
	require.NoError(t, err)
	return a
}

func TestCreateAppointment_Defaults(t *testing.T) {
	svc, _ := newTestService(t)

	a := book(t, svc, 1, 1, "2024-06-01", "10:00")

	assert.NotZero(t, a.ID)
	assert.Equal(t, StatusScheduled, a.Status)
	assert.Equal(t, TypeConsultation, a.Type)
	assert.Equal(t, DefaultDurationMinutes, a.DurationMinutes)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), a.AppointmentDateTime)
	require.NotNil(t, a.UpdatedBy)
	assert.Equal(t, "desk@clinic.test", *a.UpdatedBy)
}

func TestCreateAppointment_DoubleBooking(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	book(t, svc, 1, 1, "2024-06-01", "10:00")

	_, err := svc.CreateAppointment(ctx, staff, CreateInput{PatientID: 2, DoctorID: 1, Date: "2024-06-01", Time: "10:00"})
	assert.ErrorIs(t, err, ErrSlotConflict)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	other, err := svc.CreateAppointment(ctx, staff, CreateInput{PatientID: 2, DoctorID: 2, Date: "2024-06-01", Time: "10:00"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), other.DoctorID)
}

func TestCreateAppointment_TwelveHourClockHitsSameSlot(t *testing.T) {
	svc, _ := newTestService(t)

	book(t, svc, 1, 1, "2024-06-01", "02:30 PM")

	_, err := svc.CreateAppointment(context.Background(), staff, CreateInput{PatientID: 2, DoctorID: 1, Date: "2024-06-01", Time: "14:30"})
	assert.ErrorIs(t, err, ErrSlotConflict)
}

func TestCreateAppointment_CancelledSlotCanBeRebooked(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a := book(t, svc, 1, 1, "2024-06-01", "10:00")
	_, err := svc.CancelAppointment(ctx, staff, a.ID, "sick")
	require.NoError(t, err)

	book(t, svc, 2, 1, "2024-06-01", "10:00")
}

func TestCreateAppointment_Rejects(t *testing.T) {
	svc, _ := newTestService(t)
	negative := -5.0

	tests := []struct {
		name string
		in   CreateInput
		want error
	}{
		{"missing patient id", CreateInput{DoctorID: 1, Date: "2024-06-01", Time: "10:00"}, apperr.ErrInvalidInput},
		{"unknown patient", CreateInput{PatientID: 99, DoctorID: 1, Date: "2024-06-01", Time: "10:00"}, ErrPatientNotFound},
		{"unknown doctor", CreateInput{PatientID: 1, DoctorID: 99, Date: "2024-06-01", Time: "10:00"}, ErrDoctorNotFound},
		{"bad time", CreateInput{PatientID: 1, DoctorID: 1, Date: "2024-06-01", Time: "25:00"}, apperr.ErrInvalidInput},
		{"bad date", CreateInput{PatientID: 1, DoctorID: 1, Date: "2024-02-30", Time: "10:00"}, apperr.ErrInvalidInput},
		{"bad type", CreateInput{PatientID: 1, DoctorID: 1, Date: "2024-06-01", Time: "10:00", Type: "surgery"}, apperr.ErrInvalidInput},
		{"negative cost", CreateInput{PatientID: 1, DoctorID: 1, Date: "2024-06-01", Time: "10:00", Cost: &negative}, apperr.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateAppointment(context.Background(), staff, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateAppointment_ConcurrentBookingsOfOneSlot(t *testing.T) {
	svc, repo := newTestService(t)

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateAppointment(context.Background(), staff, CreateInput{
				PatientID: 1, DoctorID: 1, Date: "2024-06-01", Time: "11:00",
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, apperr.ErrConflict)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	counts, _ := repo.CountByStatus(context.Background())
	assert.Equal(t, 1, counts[StatusScheduled])
}

func TestCreateAppointment_SlotBeingBooked(t *testing.T) {
	repo := newMemoryRepo()
	repo.addPatient(1, "Ada", "Lovelace")
	repo.addDoctor(1, "Gregory", "House")
	svc := NewService(repo, busyLocker{}, config.Config{})

	_, err := svc.CreateAppointment(context.Background(), staff, CreateInput{PatientID: 1, DoctorID: 1, Date: "2024-06-01", Time: "10:00"})

	assert.ErrorIs(t, err, ErrSlotBeingBooked)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCreateAppointment_StorageFailure(t *testing.T) {
	svc, repo := newTestService(t)
	repo.failWith = errors.New("connection reset")

	_, err := svc.CreateAppointment(context.Background(), staff, CreateInput{PatientID: 1, DoctorID: 1, Date: "2024-06-01", Time: "10:00"})

	assert.ErrorIs(t, err, apperr.ErrStorage)
	assert.ErrorContains(t, err, "connection reset")
}

func TestCompleteAppointment_Idempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := book(t, svc, 1, 1, "2024-06-01", "10:00")

	first, err := svc.CompleteAppointment(ctx, staff, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, first.Status)

	second, err := svc.CompleteAppointment(ctx, staff, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, second.Status)
}

func TestCompleteAppointment_CancelledIsTerminal(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := book(t, svc, 1, 1, "2024-06-01", "10:00")
	_, err := svc.CancelAppointment(ctx, staff, a.ID, "")
	require.NoError(t, err)

	_, err = svc.CompleteAppointment(ctx, staff, a.ID)
	assert.ErrorIs(t, err, apperr.ErrTerminalState)
}

func TestCancelAppointment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := book(t, svc, 1, 1, "2024-06-01", "10:00")

	got, err := svc.CancelAppointment(ctx, staff, a.ID, "  patient called  ")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	require.NotNil(t, got.CancellationReason)
	assert.Equal(t, "patient called", *got.CancellationReason)
	require.NotNil(t, got.CancelledBy)
	assert.Equal(t, "desk@clinic.test", *got.CancelledBy)

	_, err = svc.CancelAppointment(ctx, staff, a.ID, "again")
	assert.ErrorIs(t, err, ErrAlreadyCancelled)

	_, err = svc.CancelAppointment(ctx, staff, 999, "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRescheduleAppointment(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	a := book(t, svc, 1, 1, "2024-06-01", "10:00")

	moved, err := svc.RescheduleAppointment(ctx, staff, a.ID, "2024-06-02", "3:00 pm")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 2, 15, 0, 0, 0, time.UTC), moved.AppointmentDateTime)
	assert.Equal(t, StatusScheduled, moved.Status)

	stored, _ := repo.GetAppointmentByID(ctx, a.ID)
	assert.Equal(t, moved.AppointmentDateTime, stored.AppointmentDateTime)
}

func TestRescheduleAppointment_IntoOccupiedSlot(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	a := book(t, svc, 1, 1, "2024-06-01", "10:00")
	book(t, svc, 2, 1, "2024-06-01", "11:00")

	_, err := svc.RescheduleAppointment(ctx, staff, a.ID, "2024-06-01", "11:00")
	assert.ErrorIs(t, err, ErrSlotConflict)

	stored, _ := repo.GetAppointmentByID(ctx, a.ID)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), stored.AppointmentDateTime)
}

func TestRescheduleAppointment_OntoOwnSlot(t *testing.T) {
	svc, _ := newTestService(t)
	a := book(t, svc, 1, 1, "2024-06-01", "10:00")

	_, err := svc.RescheduleAppointment(context.Background(), staff, a.ID, "2024-06-01", "10:00 AM")
	assert.NoError(t, err)
}

func TestRescheduleAppointment_Cancelled(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := book(t, svc, 1, 1, "2024-06-01", "10:00")
	_, err := svc.CancelAppointment(ctx, staff, a.ID, "")
	require.NoError(t, err)

	_, err = svc.RescheduleAppointment(ctx, staff, a.ID, "2024-06-03", "10:00")
	assert.ErrorIs(t, err, ErrCannotRescheduleCancelled)
	assert.ErrorIs(t, err, apperr.ErrTerminalState)
}

func TestUpdateAppointment_DateTimeFallback(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := book(t, svc, 1, 1, "2024-06-01", "10:00")

	clock := "13:30"
	got, err := svc.UpdateAppointment(ctx, staff, a.ID, Patch{Time: &clock})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 13, 30, 0, 0, time.UTC), got.AppointmentDateTime)

	date := "2024-06-05"
	got, err = svc.UpdateAppointment(ctx, staff, a.ID, Patch{Date: &date})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 5, 13, 30, 0, 0, time.UTC), got.AppointmentDateTime)
}

func TestUpdateAppointment_ConflictLeavesRecordUntouched(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	a := book(t, svc, 1, 1, "2024-06-01", "10:00")
	book(t, svc, 2, 2, "2024-06-01", "10:00")

	doctor := int64(2)
	notes := "switch doctor"
	_, err := svc.UpdateAppointment(ctx, staff, a.ID, Patch{DoctorID: &doctor, Notes: &notes})
	assert.ErrorIs(t, err, ErrSlotConflict)

	stored, _ := repo.GetAppointmentByID(ctx, a.ID)
	assert.Equal(t, int64(1), stored.DoctorID)
	assert.Nil(t, stored.Notes)
}

func TestUpdateAppointment_BackToScheduledIsConflictChecked(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := book(t, svc, 1, 1, "2024-06-01", "10:00")

	confirmed := StatusConfirmed
	_, err := svc.UpdateAppointment(ctx, staff, a.ID, Patch{Status: &confirmed})
	require.NoError(t, err)

	// The slot is free again because only scheduled appointments hold it.
	book(t, svc, 2, 1, "2024-06-01", "10:00")

	scheduled := StatusScheduled
	_, err = svc.UpdateAppointment(ctx, staff, a.ID, Patch{Status: &scheduled})
	assert.ErrorIs(t, err, ErrSlotConflict)
}

func TestUpdateAppointment_StatusTransitions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		path []AppointmentStatus
		want error
	}{
		{"scheduled to in progress to completed", []AppointmentStatus{StatusInProgress, StatusCompleted}, nil},
		{"in progress cannot go back", []AppointmentStatus{StatusInProgress, StatusScheduled}, ErrInvalidStatusTransition},
		{"cancelled is terminal", []AppointmentStatus{StatusCancelled, StatusScheduled}, apperr.ErrTerminalState},
		{"no show is terminal", []AppointmentStatus{StatusNoShow, StatusConfirmed}, apperr.ErrTerminalState},
		{"completed is final", []AppointmentStatus{StatusCompleted, StatusCancelled}, ErrFinalStatus},
		{"unknown status", []AppointmentStatus{"archived"}, apperr.ErrInvalidInput},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := book(t, svc, 1, 1, "2024-07-01", []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}[i])

			var err error
			for _, s := range tt.path {
				s := s
				_, err = svc.UpdateAppointment(ctx, staff, a.ID, Patch{Status: &s})
				if err != nil {
					break
				}
			}
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestUpdateAppointment_CancelViaStatusRecordsActor(t *testing.T) {
	svc, _ := newTestService(t)
	a := book(t, svc, 1, 1, "2024-06-01", "10:00")

	cancelled := StatusCancelled
	reason := "double entry"
	got, err := svc.UpdateAppointment(context.Background(), staff, a.ID, Patch{Status: &cancelled, CancellationReason: &reason})
	require.NoError(t, err)

	require.NotNil(t, got.CancelledBy)
	assert.Equal(t, "desk@clinic.test", *got.CancelledBy)
	assert.Equal(t, "double entry", *got.CancellationReason)
}

func TestDeleteAppointment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := book(t, svc, 1, 1, "2024-06-01", "10:00")

	deleted, err := svc.DeleteAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, deleted.ID)

	_, err = svc.GetAppointment(ctx, a.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestListAppointments(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	book(t, svc, 1, 1, "2024-06-01", "10:00")
	book(t, svc, 2, 1, "2024-06-01", "09:00")
	book(t, svc, 1, 2, "2024-06-02", "09:00")

	items, page, err := svc.ListAppointments(ctx, ListQuery{DoctorID: 1, Page: pagination.Params{Page: 1, Limit: 10}})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "09:00", items[0].AppointmentDateTime.Format("15:04"))
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.TotalPages)

	items, page, err = svc.ListAppointments(ctx, ListQuery{Date: "2024-06-01", SortOrder: "desc", Page: pagination.Params{Page: 2, Limit: 1}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "09:00", items[0].AppointmentDateTime.Format("15:04"))
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, "Alan", items[0].Patient.FirstName)

	_, _, err = svc.ListAppointments(ctx, ListQuery{SortBy: "password"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, _, err = svc.ListAppointments(ctx, ListQuery{SortOrder: "sideways"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestTodayAndUpcoming(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	book(t, svc, 1, 1, "2024-06-01", "10:00")
	book(t, svc, 2, 1, "2024-06-03", "10:00")
	book(t, svc, 3, 1, "2024-06-20", "10:00")
	cancelled := book(t, svc, 3, 2, "2024-06-01", "11:00")
	_, err := svc.CancelAppointment(ctx, staff, cancelled.ID, "")
	require.NoError(t, err)

	today, err := svc.TodayAppointments(ctx)
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Equal(t, int64(1), today[0].PatientID)

	week, err := svc.UpcomingAppointments(ctx, DefaultUpcomingDays)
	require.NoError(t, err)
	assert.Len(t, week, 2)

	_, err = svc.UpcomingAppointments(ctx, -1)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestAppointmentStats(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := book(t, svc, 1, 1, "2024-06-01", "10:00")
	b := book(t, svc, 2, 1, "2024-06-01", "11:00")
	book(t, svc, 3, 1, "2024-06-01", "12:00")
	_, err := svc.CompleteAppointment(ctx, staff, a.ID)
	require.NoError(t, err)
	_, err = svc.CancelAppointment(ctx, staff, b.ID, "")
	require.NoError(t, err)

	st, err := svc.AppointmentStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 3, Scheduled: 1, Completed: 1, Cancelled: 1}, st)
}

func TestAvailableSlots(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	book(t, svc, 1, 1, "2024-06-01", "09:00")
	book(t, svc, 2, 1, "2024-06-01", "01:30 PM")
	book(t, svc, 3, 2, "2024-06-01", "10:00")
	c := book(t, svc, 3, 1, "2024-06-01", "16:30")
	_, err := svc.CancelAppointment(ctx, staff, c.ID, "")
	require.NoError(t, err)

	slots, err := svc.AvailableSlots(ctx, 1, "2024-06-01")
	require.NoError(t, err)

	assert.Len(t, slots, 14)
	assert.NotContains(t, slots, "09:00")
	assert.NotContains(t, slots, "13:30")
	assert.Contains(t, slots, "10:00")
	assert.Contains(t, slots, "16:30")

	_, err = svc.AvailableSlots(ctx, 1, "06/01/2024")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = svc.AvailableSlots(ctx, 42, "2024-06-01")
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestFindPatientCandidates(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addPatient(4, "Ada", "Byron")
	ctx := context.Background()

	exact, err := svc.FindPatientCandidates(ctx, "Ada Lovelace")
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, int64(1), exact[0].ID)

	folded, err := svc.FindPatientCandidates(ctx, "alan TURING")
	require.NoError(t, err)
	require.Len(t, folded, 1)
	assert.Equal(t, int64(2), folded[0].ID)

	partial, err := svc.FindPatientCandidates(ctx, "ada")
	require.NoError(t, err)
	assert.Len(t, partial, 2)

	none, err := svc.FindPatientCandidates(ctx, "Nobody")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = svc.FindPatientCandidates(ctx, "   ")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestMarkNoShows(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	past := book(t, svc, 1, 1, "2024-05-31", "10:00")
	earlier := book(t, svc, 1, 1, "2024-05-30", "09:00")
	future := book(t, svc, 2, 1, "2024-06-02", "10:00")

	ids, err := svc.MarkNoShows(ctx, auth.System("no-show-worker"), testNow)
	require.NoError(t, err)
	assert.Equal(t, []int64{past.ID, earlier.ID}, ids)

	again, err := svc.MarkNoShows(ctx, auth.System("no-show-worker"), testNow)
	require.NoError(t, err)
	assert.Empty(t, again)

	got, _ := repo.GetAppointmentByID(ctx, past.ID)
	assert.Equal(t, StatusNoShow, got.Status)
	got, _ = repo.GetAppointmentByID(ctx, future.ID)
	assert.Equal(t, StatusScheduled, got.Status)
}
