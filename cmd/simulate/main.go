package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/hackgods/salon-booking/internal/config"
	"github.com/hackgods/salon-booking/internal/logging"
)

type SimConfig struct {
	APIBaseURL string
	Rounds     int
	Workers    int
	Services   []string
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
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentile(len(latencies), 50)]
	p95 = latencies[percentile(len(latencies), 95)]
	return avg, min, max, p50, p95
}

func percentile(n, p int) int {
	idx := n * p / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Simulator struct {
	config  SimConfig
	client  *http.Client
	log     *slog.Logger
	userID  string
	token   string
	booking OperationMetrics
	list    OperationMetrics

	// a round is consistent when exactly one racer won its slot
	consistent atomic.Int64
}

func main() {
	logger := logging.New(config.LoggingConfig{Level: getEnv("LOG_LEVEL", "info")})
	logger.Info("simulator starting")

	cfg := loadConfig()
	if cfg.Workers <= 0 || cfg.Rounds <= 0 {
		logger.Error("SIM_WORKERS and SIM_ROUNDS must be > 0")
		os.Exit(1)
	}

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    logger,
	}

	ctx := context.Background()
	if err := sim.register(ctx); err != nil {
		logger.Error("register simulation user", "error", err)
		os.Exit(1)
	}
	logger.Info("registered simulation user", "user_id", sim.userID)

	sim.Run(ctx)
	sim.PrintReport()
}

func loadConfig() SimConfig {
	return SimConfig{
		APIBaseURL: strings.TrimRight(getEnv("SIM_API_BASE_URL", "http://localhost:8080"), "/"),
		Rounds:     getInt("SIM_ROUNDS", 5),
		Workers:    getInt("SIM_WORKERS", 10),
		Services:   strings.Split(getEnv("SIM_SERVICES", "corte,manicura,peinado"), ","),
	}
}

func (s *Simulator) register(ctx context.Context) error {
	password := gofakeit.Password(true, true, true, false, false, 12)
	body := map[string]string{
		"name":     gofakeit.Name(),
		"email":    strings.ToLower(gofakeit.Email()),
		"phone":    gofakeit.Phone(),
		"password": password,
	}

	var out struct {
		Success bool   `json:"success"`
		UserID  string `json:"userId"`
		Token   string `json:"token"`
		Message string `json:"message"`
	}
	status, err := s.post(ctx, "/auth/register", body, &out)
	if err != nil {
		return err
	}
	if status != http.StatusCreated || !out.Success {
		return fmt.Errorf("register returned %d: %s", status, out.Message)
	}
	s.userID, s.token = out.UserID, out.Token
	return nil
}

// Run fires Workers concurrent bookings at one slot per round.
func (s *Simulator) Run(ctx context.Context) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		loc = time.UTC
	}

	for round := 0; round < s.config.Rounds; round++ {
		day := time.Now().In(loc).AddDate(0, 0, 7+rng.Intn(60))
		slot := map[string]any{
			"userId":      s.userID,
			"serviceKey":  strings.TrimSpace(s.config.Services[rng.Intn(len(s.config.Services))]),
			"date":        day.Format("2006-01-02"),
			"time":        fmt.Sprintf("%02d:%02d", 9+rng.Intn(9), 15*rng.Intn(4)),
			"isRecurring": rng.Intn(2) == 0,
		}

		var won atomic.Int64
		var wg sync.WaitGroup
		for i := 0; i < s.config.Workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if s.book(ctx, slot) {
					won.Add(1)
				}
			}()
		}
		wg.Wait()

		if won.Load() == 1 {
			s.consistent.Add(1)
		}
		s.log.Info("round complete", "round", round+1, "date", slot["date"], "time", slot["time"], "winners", won.Load())
	}

	s.listAppointments(ctx)
}

func (s *Simulator) book(ctx context.Context, slot map[string]any) bool {
	start := time.Now()
	status, err := s.post(ctx, "/appointments", slot, nil)
	latency := time.Since(start)

	success := err == nil && status == http.StatusCreated
	conflict := err == nil && status == http.StatusConflict
	if err != nil {
		s.log.Warn("booking request failed", "error", err)
	} else if !success && !conflict {
		s.log.Warn("unexpected booking status", "status", status)
	}

	s.booking.Record(latency, success, conflict)
	return success
}

func (s *Simulator) listAppointments(ctx context.Context) {
	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIBaseURL+"/appointments/"+s.userID, nil)
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		s.list.Record(latency, false, false)
		return
	}
	defer resp.Body.Close()

	var out struct {
		Appointments []json.RawMessage `json:"appointments"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	s.list.Record(latency, resp.StatusCode == http.StatusOK, false)

	if got, want := int64(len(out.Appointments)), atomic.LoadInt64(&s.booking.Success); got != want {
		s.log.Warn("listed appointments differ from successful bookings", "listed", got, "booked", want)
	}
}

func (s *Simulator) post(ctx context.Context, path string, body any, out any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Rounds: %d\n", s.config.Rounds)
	fmt.Printf("Concurrent bookings per slot: %d\n", s.config.Workers)
	fmt.Printf("Rounds with exactly one winner: %d/%d\n", s.consistent.Load(), s.config.Rounds)
	fmt.Println()

	printOperationReport("Booking", &s.booking)
	printOperationReport("List appointments", &s.list)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

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
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
