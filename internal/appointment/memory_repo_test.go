package appointment

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	redisclient "github.com/hackgods/clinic-frontdesk/internal/redis"
)

// memoryRepo is an in-memory Repository. It enforces the one-scheduled-per-slot
// rule the same way the Postgres partial unique index does.
type memoryRepo struct {
	mu           sync.Mutex
	nextID       int64
	patients     map[int64]Patient
	doctors      map[int64]Doctor
	appointments map[int64]Appointment
	failWith     error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		patients:     map[int64]Patient{},
		doctors:      map[int64]Doctor{},
		appointments: map[int64]Appointment{},
	}
}

func (m *memoryRepo) addPatient(id int64, first, last string) {
	m.patients[id] = Patient{ID: id, FirstName: first, LastName: last, Email: strings.ToLower(first) + "@example.com"}
}

func (m *memoryRepo) addDoctor(id int64, first, last string) {
	m.doctors[id] = Doctor{ID: id, FirstName: first, LastName: last, Specialization: "general_medicine"}
}

func (m *memoryRepo) GetPatientByID(_ context.Context, id int64) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (m *memoryRepo) GetDoctorByID(_ context.Context, id int64) (*Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &d, nil
}

func (m *memoryRepo) FindPatientsByName(_ context.Context, first, last string, match NameMatch, limit int) ([]Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Patient
	for _, p := range m.patients {
		var ok bool
		switch match {
		case MatchExact:
			ok = p.FirstName == first && p.LastName == last
		case MatchFold:
			ok = strings.EqualFold(p.FirstName, first) && strings.EqualFold(p.LastName, last)
		case MatchContains:
			q := strings.ToLower(strings.TrimSpace(first + " " + last))
			ok = strings.Contains(strings.ToLower(p.FullName()), q)
		}
		if ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryRepo) GetAppointmentByID(_ context.Context, id int64) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (m *memoryRepo) GetAppointmentDetail(_ context.Context, id int64) (*AppointmentDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	d := m.detail(a)
	return &d, nil
}

func (m *memoryRepo) detail(a Appointment) AppointmentDetail {
	p := m.patients[a.PatientID]
	d := m.doctors[a.DoctorID]
	return AppointmentDetail{Appointment: a, Patient: &p, Doctor: &d}
}

func (m *memoryRepo) FindScheduledAt(_ context.Context, doctorID int64, at time.Time, excludeID int64) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appointments {
		if a.ID != excludeID && a.DoctorID == doctorID && a.Status == StatusScheduled && a.AppointmentDateTime.Equal(at) {
			return &a, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

// slotTaken must be called with mu held.
func (m *memoryRepo) slotTaken(a *Appointment) bool {
	if a.Status != StatusScheduled {
		return false
	}
	for _, other := range m.appointments {
		if other.ID != a.ID && other.DoctorID == a.DoctorID && other.Status == StatusScheduled &&
			other.AppointmentDateTime.Equal(a.AppointmentDateTime) {
			return true
		}
	}
	return false
}

func (m *memoryRepo) CreateAppointment(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slotTaken(a) {
		return ErrSlotConflict
	}
	m.nextID++
	a.ID = m.nextID
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.appointments[a.ID] = *a
	return nil
}

func (m *memoryRepo) SaveAppointment(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appointments[a.ID]; !ok {
		return ErrAppointmentNotFound
	}
	if m.slotTaken(a) {
		return ErrSlotConflict
	}
	a.UpdatedAt = time.Now()
	m.appointments[a.ID] = *a
	return nil
}

func (m *memoryRepo) DeleteAppointment(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appointments[id]; !ok {
		return ErrAppointmentNotFound
	}
	delete(m.appointments, id)
	return nil
}

func (m *memoryRepo) ListAppointments(_ context.Context, f Filter, opts ListOptions) ([]AppointmentDetail, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []AppointmentDetail
	for _, a := range m.appointments {
		switch {
		case f.PatientID != 0 && a.PatientID != f.PatientID,
			f.DoctorID != 0 && a.DoctorID != f.DoctorID,
			f.Status != "" && a.Status != f.Status,
			f.Type != "" && a.Type != f.Type,
			!f.From.IsZero() && a.AppointmentDateTime.Before(f.From),
			!f.To.IsZero() && !a.AppointmentDateTime.Before(f.To):
			continue
		}
		out = append(out, m.detail(a))
	}

	less := func(i, j int) bool {
		a, b := out[i], out[j]
		switch opts.SortBy {
		case SortByID:
			return a.ID < b.ID
		case SortByStatus:
			if a.Status != b.Status {
				return a.Status < b.Status
			}
		default:
			if !a.AppointmentDateTime.Equal(b.AppointmentDateTime) {
				return a.AppointmentDateTime.Before(b.AppointmentDateTime)
			}
		}
		return a.ID < b.ID
	}
	sort.Slice(out, func(i, j int) bool {
		if opts.Desc {
			return less(j, i)
		}
		return less(i, j)
	})

	total := len(out)
	if opts.Limit > 0 {
		if opts.Offset >= len(out) {
			return []AppointmentDetail{}, total, nil
		}
		end := opts.Offset + opts.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[opts.Offset:end]
	}
	return out, total, nil
}

func (m *memoryRepo) CountByStatus(_ context.Context) (map[AppointmentStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[AppointmentStatus]int{}
	for _, a := range m.appointments {
		counts[a.Status]++
	}
	return counts, nil
}

func (m *memoryRepo) MarkNoShows(_ context.Context, before time.Time, actor string) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id, a := range m.appointments {
		if a.Status == StatusScheduled && a.AppointmentDateTime.Before(before) {
			a.Status = StatusNoShow
			a.UpdatedBy = &actor
			m.appointments[id] = a
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// busyLocker always reports the slot as held by someone else.
type busyLocker struct{}

func (busyLocker) WithSlotLock(context.Context, int64, time.Time, func(context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}
