package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/hackgods/clinic-frontdesk/internal/auth"
	"github.com/hackgods/clinic-frontdesk/internal/config"
	"github.com/hackgods/clinic-frontdesk/internal/db"
	"github.com/hackgods/clinic-frontdesk/internal/logging"
)

type SimConfig struct {
	APIBaseURL      string
	Duration        time.Duration
	Workers         int
	BookingRatio    float64
	RescheduleRatio float64
	CancelRatio     float64
	QueueRatio      float64
	ReadRatio       float64
	DoctorLimit     int
	PatientLimit    int
	SlotDays        int
	PostgresDSN     string
	Token           string
}

// slotRef is one bookable half-hour of a doctor.
type slotRef struct {
	DoctorID int64
	Date     string
	Time     string
}

type DataPool struct {
	Patients     []int64
	Slots        []slotRef
	mu           sync.RWMutex
	appointments []int64
}

func (dp *DataPool) AddAppointment(id int64) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) GetRandomAppointment(rng *rand.Rand) (int64, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return 0, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case conflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, lo, hi, p50, p95 time.Duration) {
	om.mu.Lock()
	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0, 0, 0
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	pct := func(p int) time.Duration {
		return latencies[min(len(latencies)*p/100, len(latencies)-1)]
	}
	return sum / time.Duration(len(latencies)), latencies[0], latencies[len(latencies)-1], pct(50), pct(95)
}

type Metrics struct {
	Booking    OperationMetrics
	Reschedule OperationMetrics
	Cancel     OperationMetrics
	QueueAdd   OperationMetrics
	Read       OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
}

func main() {
	baseCfg, err := config.Load()
	if err != nil {
		logging.Init("simulate", "dev", "info")
		log.Fatal().Err(err).Msg("failed to load base config")
	}
	logging.Init("simulate", baseCfg.Env, baseCfg.LogLevel)

	cfg := loadConfig(baseCfg)
	if err := validateConfig(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	log.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Float64("booking", cfg.BookingRatio).
		Float64("reschedule", cfg.RescheduleRatio).
		Float64("cancel", cfg.CancelRatio).
		Float64("queue", cfg.QueueRatio).
		Float64("read", cfg.ReadRatio).
		Msg("simulator starting")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg, baseCfg.Location)
	if err != nil {
		log.Fatal().Err(err).Msg("load data pool")
	}
	log.Info().Int("patients", len(dataPool.Patients)).Int("slots", len(dataPool.Slots)).Msg("data pool loaded")

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{Timeout: 10 * time.Second},
	}

	sim.Run()
	sim.PrintReport()

	verifyCtx, cancelVerify := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelVerify()
	violations, err := verifyInvariants(verifyCtx, pgPool)
	if err != nil {
		log.Fatal().Err(err).Msg("verify invariants")
	}
	if len(violations) > 0 {
		for _, v := range violations {
			fmt.Println("VIOLATION:", v)
		}
		os.Exit(1)
	}
	fmt.Println("invariants hold: no double-booked slots, queue numbers unique and increasing")
}

func loadConfig(base config.Config) SimConfig {
	cfg := SimConfig{
		APIBaseURL:      strings.TrimRight(getEnv("SIM_API_BASE_URL", "http://localhost:8080"), "/"),
		Duration:        getDuration("SIM_DURATION", 30*time.Second),
		Workers:         getInt("SIM_WORKERS", 10),
		BookingRatio:    getFloat("SIM_BOOKING_RATIO", 0.45),
		RescheduleRatio: getFloat("SIM_RESCHEDULE_RATIO", 0.15),
		CancelRatio:     getFloat("SIM_CANCEL_RATIO", 0.1),
		QueueRatio:      getFloat("SIM_QUEUE_RATIO", 0.1),
		ReadRatio:       getFloat("SIM_READ_RATIO", 0.2),
		DoctorLimit:     getInt("SIM_DOCTOR_LIMIT", 5),
		PatientLimit:    getInt("SIM_PATIENT_LIMIT", 2000),
		SlotDays:        getInt("SIM_SLOT_DAYS", 2),
		PostgresDSN:     base.PostgresDSN,
		Token:           os.Getenv("SIM_TOKEN"),
	}

	if cfg.Token == "" {
		v := auth.NewVerifier(base.JWTSecret, base.JWTIssuer)
		tok, err := v.Issue(auth.Actor{ID: 1, Email: "simulator@clinic.local", Role: auth.RoleStaff}, cfg.Duration+time.Hour)
		if err != nil {
			log.Fatal().Err(err).Msg("issue simulator token")
		}
		cfg.Token = tok
	}

	// Normalize ratios
	total := cfg.BookingRatio + cfg.RescheduleRatio + cfg.CancelRatio + cfg.QueueRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.RescheduleRatio /= total
		cfg.CancelRatio /= total
		cfg.QueueRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.SlotDays <= 0 {
		return fmt.Errorf("SIM_SLOT_DAYS must be > 0")
	}
	return nil
}

// loadDataPool picks a few doctors so workers contend for the same slots.
func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig, loc *time.Location) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `SELECT id FROM patients ORDER BY id LIMIT $1`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	dataPool.Patients, err = pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}

	rows, err = pool.Query(ctx, `SELECT id FROM doctors ORDER BY id LIMIT $1`, cfg.DoctorLimit)
	if err != nil {
		return nil, fmt.Errorf("load doctors: %w", err)
	}
	doctors, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("load doctors: %w", err)
	}

	if len(dataPool.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded, run clinicctl seed first")
	}
	if len(doctors) == 0 {
		return nil, fmt.Errorf("no doctors loaded, run clinicctl seed first")
	}

	today := time.Now().In(loc)
	for d := 1; d <= cfg.SlotDays; d++ {
		date := today.AddDate(0, 0, d).Format("2006-01-02")
		for _, doc := range doctors {
			for h := 9; h < 17; h++ {
				for _, m := range []int{0, 30} {
					dataPool.Slots = append(dataPool.Slots, slotRef{
						DoctorID: doc,
						Date:     date,
						Time:     fmt.Sprintf("%02d:%02d", h, m),
					})
				}
			}
		}
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Info().Dur("duration", s.config.Duration).Int("workers", s.config.Workers).Msg("starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
	c := s.config

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		r := rng.Float64()
		switch {
		case r < c.BookingRatio:
			s.doBooking(ctx, rng)
		case r < c.BookingRatio+c.RescheduleRatio:
			s.doReschedule(ctx, rng)
		case r < c.BookingRatio+c.RescheduleRatio+c.CancelRatio:
			s.doCancel(ctx, rng)
		case r < c.BookingRatio+c.RescheduleRatio+c.CancelRatio+c.QueueRatio:
			s.doQueueAdd(ctx, rng)
		default:
			s.doRead(ctx, rng)
		}
	}
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	slot := s.pool.Slots[rng.Intn(len(s.pool.Slots))]
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	body := map[string]any{
		"patientId":       patientID,
		"doctorId":        slot.DoctorID,
		"appointmentDate": slot.Date,
		"appointmentTime": slot.Time,
		"type":            "consultation",
	}

	var out struct {
		Appointment struct {
			ID int64 `json:"id"`
		} `json:"appointment"`
	}
	status, latency, err := s.call(ctx, http.MethodPost, "/api/appointments/", body, &out)
	success := err == nil && status == http.StatusCreated
	if success && out.Appointment.ID != 0 {
		s.pool.AddAppointment(out.Appointment.ID)
	}
	s.metrics.Booking.Record(latency, success, status == http.StatusConflict)
}

func (s *Simulator) doReschedule(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}
	slot := s.pool.Slots[rng.Intn(len(s.pool.Slots))]
	body := map[string]string{"appointmentDate": slot.Date, "appointmentTime": slot.Time}

	status, latency, err := s.call(ctx, http.MethodPatch, fmt.Sprintf("/api/appointments/%d/reschedule", id), body, nil)
	s.metrics.Reschedule.Record(latency, err == nil && status == http.StatusOK, status == http.StatusConflict)
}

func (s *Simulator) doCancel(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}
	body := map[string]string{"cancellationReason": "simulated cancellation"}

	status, latency, err := s.call(ctx, http.MethodPatch, fmt.Sprintf("/api/appointments/%d/cancel", id), body, nil)
	s.metrics.Cancel.Record(latency, err == nil && status == http.StatusOK, status == http.StatusConflict)
}

func (s *Simulator) doQueueAdd(ctx context.Context, rng *rand.Rand) {
	priorities := []string{"normal", "normal", "normal", "urgent", "emergency"}
	body := map[string]any{
		"patientName": gofakeit.Name(),
		"priority":    priorities[rng.Intn(len(priorities))],
	}

	status, latency, err := s.call(ctx, http.MethodPost, "/api/queue/", body, nil)
	s.metrics.QueueAdd.Record(latency, err == nil && status == http.StatusCreated, false)
}

func (s *Simulator) doRead(ctx context.Context, rng *rand.Rand) {
	paths := []string{
		"/api/appointments/today",
		"/api/appointments/stats",
		"/api/queue/active",
		fmt.Sprintf("/api/appointments?doctorId=%d&limit=20", s.pool.Slots[rng.Intn(len(s.pool.Slots))].DoctorID),
	}

	status, latency, err := s.call(ctx, http.MethodGet, paths[rng.Intn(len(paths))], nil, nil)
	s.metrics.Read.Record(latency, err == nil && status == http.StatusOK, false)
}

// call sends an authenticated JSON request and decodes the body into out when given.
func (s *Simulator) call(ctx context.Context, method, path string, body, out any) (int, time.Duration, error) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, 0, err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.Token)

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return 0, latency, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, latency, err
		}
	}
	return resp.StatusCode, latency, nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Reschedule", &s.metrics.Reschedule)
	printOperationReport("Cancel", &s.metrics.Cancel)
	printOperationReport("Queue add", &s.metrics.QueueAdd)
	printOperationReport("Reads", &s.metrics.Read)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, lo, hi, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), lo.Round(time.Millisecond), hi.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
