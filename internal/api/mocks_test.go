package api

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/hackgods/clinic-frontdesk/internal/appointment"
	"github.com/hackgods/clinic-frontdesk/internal/auth"
	"github.com/hackgods/clinic-frontdesk/internal/events"
	"github.com/hackgods/clinic-frontdesk/internal/pagination"
	"github.com/hackgods/clinic-frontdesk/internal/queue"
)

var fixedNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

type mockAppointmentService struct {
	mock.Mock
}

func (m *mockAppointmentService) Now() time.Time           { return fixedNow }
func (m *mockAppointmentService) Location() *time.Location { return time.UTC }

func (m *mockAppointmentService) CreateAppointment(ctx context.Context, actor auth.Actor, in appointment.CreateInput) (*appointment.Appointment, error) {
	args := m.Called(ctx, actor, in)
	a, _ := args.Get(0).(*appointment.Appointment)
	return a, args.Error(1)
}

func (m *mockAppointmentService) GetAppointment(ctx context.Context, id int64) (*appointment.AppointmentDetail, error) {
	args := m.Called(ctx, id)
	d, _ := args.Get(0).(*appointment.AppointmentDetail)
	return d, args.Error(1)
}

func (m *mockAppointmentService) ListAppointments(ctx context.Context, q appointment.ListQuery) ([]appointment.AppointmentDetail, pagination.Response, error) {
	args := m.Called(ctx, q)
	items, _ := args.Get(0).([]appointment.AppointmentDetail)
	return items, args.Get(1).(pagination.Response), args.Error(2)
}

func (m *mockAppointmentService) UpdateAppointment(ctx context.Context, actor auth.Actor, id int64, p appointment.Patch) (*appointment.Appointment, error) {
	args := m.Called(ctx, actor, id, p)
	a, _ := args.Get(0).(*appointment.Appointment)
	return a, args.Error(1)
}

func (m *mockAppointmentService) CancelAppointment(ctx context.Context, actor auth.Actor, id int64, reason string) (*appointment.Appointment, error) {
	args := m.Called(ctx, actor, id, reason)
	a, _ := args.Get(0).(*appointment.Appointment)
	return a, args.Error(1)
}

func (m *mockAppointmentService) RescheduleAppointment(ctx context.Context, actor auth.Actor, id int64, date, clock string) (*appointment.Appointment, error) {
	args := m.Called(ctx, actor, id, date, clock)
	a, _ := args.Get(0).(*appointment.Appointment)
	return a, args.Error(1)
}

func (m *mockAppointmentService) CompleteAppointment(ctx context.Context, actor auth.Actor, id int64) (*appointment.Appointment, error) {
	args := m.Called(ctx, actor, id)
	a, _ := args.Get(0).(*appointment.Appointment)
	return a, args.Error(1)
}

func (m *mockAppointmentService) DeleteAppointment(ctx context.Context, id int64) (*appointment.Appointment, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*appointment.Appointment)
	return a, args.Error(1)
}

func (m *mockAppointmentService) TodayAppointments(ctx context.Context) ([]appointment.AppointmentDetail, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]appointment.AppointmentDetail)
	return items, args.Error(1)
}

func (m *mockAppointmentService) UpcomingAppointments(ctx context.Context, days int) ([]appointment.AppointmentDetail, error) {
	args := m.Called(ctx, days)
	items, _ := args.Get(0).([]appointment.AppointmentDetail)
	return items, args.Error(1)
}

func (m *mockAppointmentService) AppointmentStats(ctx context.Context) (appointment.Stats, error) {
	args := m.Called(ctx)
	return args.Get(0).(appointment.Stats), args.Error(1)
}

func (m *mockAppointmentService) AvailableSlots(ctx context.Context, doctorID int64, date string) ([]string, error) {
	args := m.Called(ctx, doctorID, date)
	slots, _ := args.Get(0).([]string)
	return slots, args.Error(1)
}

func (m *mockAppointmentService) FindPatientCandidates(ctx context.Context, name string) ([]appointment.Patient, error) {
	args := m.Called(ctx, name)
	ps, _ := args.Get(0).([]appointment.Patient)
	return ps, args.Error(1)
}

type mockQueueService struct {
	mock.Mock
}

func (m *mockQueueService) Now() time.Time { return fixedNow }

func (m *mockQueueService) CreateEntry(ctx context.Context, actor auth.Actor, in queue.CreateInput) (*queue.Entry, error) {
	args := m.Called(ctx, actor, in)
	e, _ := args.Get(0).(*queue.Entry)
	return e, args.Error(1)
}

func (m *mockQueueService) GetEntry(ctx context.Context, id int64) (*queue.Entry, error) {
	args := m.Called(ctx, id)
	e, _ := args.Get(0).(*queue.Entry)
	return e, args.Error(1)
}

func (m *mockQueueService) ListEntries(ctx context.Context) ([]queue.Entry, error) {
	args := m.Called(ctx)
	es, _ := args.Get(0).([]queue.Entry)
	return es, args.Error(1)
}

func (m *mockQueueService) ActiveEntries(ctx context.Context) ([]queue.Entry, error) {
	args := m.Called(ctx)
	es, _ := args.Get(0).([]queue.Entry)
	return es, args.Error(1)
}

func (m *mockQueueService) EntriesByStatus(ctx context.Context, status queue.Status) ([]queue.Entry, error) {
	args := m.Called(ctx, status)
	es, _ := args.Get(0).([]queue.Entry)
	return es, args.Error(1)
}

func (m *mockQueueService) EntriesByPriority(ctx context.Context, p queue.Priority) ([]queue.Entry, error) {
	args := m.Called(ctx, p)
	es, _ := args.Get(0).([]queue.Entry)
	return es, args.Error(1)
}

func (m *mockQueueService) NextEntry(ctx context.Context) (*queue.Entry, error) {
	args := m.Called(ctx)
	e, _ := args.Get(0).(*queue.Entry)
	return e, args.Error(1)
}

func (m *mockQueueService) QueueStats(ctx context.Context) (queue.Stats, error) {
	args := m.Called(ctx)
	return args.Get(0).(queue.Stats), args.Error(1)
}

func (m *mockQueueService) UpdateEntry(ctx context.Context, actor auth.Actor, id int64, p queue.Patch) (*queue.Entry, error) {
	args := m.Called(ctx, actor, id, p)
	e, _ := args.Get(0).(*queue.Entry)
	return e, args.Error(1)
}

func (m *mockQueueService) UpdateStatus(ctx context.Context, actor auth.Actor, id int64, status queue.Status) (*queue.Entry, error) {
	args := m.Called(ctx, actor, id, status)
	e, _ := args.Get(0).(*queue.Entry)
	return e, args.Error(1)
}

func (m *mockQueueService) CancelEntry(ctx context.Context, actor auth.Actor, id int64, reason string) (*queue.Entry, error) {
	args := m.Called(ctx, actor, id, reason)
	e, _ := args.Get(0).(*queue.Entry)
	return e, args.Error(1)
}

func (m *mockQueueService) AssignDoctor(ctx context.Context, actor auth.Actor, id, doctorID int64) (*queue.Entry, error) {
	args := m.Called(ctx, actor, id, doctorID)
	e, _ := args.Get(0).(*queue.Entry)
	return e, args.Error(1)
}

func (m *mockQueueService) DeleteEntry(ctx context.Context, id int64) (*queue.Entry, error) {
	args := m.Called(ctx, id)
	e, _ := args.Get(0).(*queue.Entry)
	return e, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, ev events.Event) error {
	return m.Called(ctx, ev).Error(0)
}
