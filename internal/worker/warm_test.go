package worker_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibeweather/vibeweather/internal/weather"
	"github.com/vibeweather/vibeweather/internal/worker"
)

// fakeRefresher records refreshed cities and fails the ones it is told to.
type fakeRefresher struct {
	mu       sync.Mutex
	cities   []string
	failures map[string]error

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	delay       time.Duration
}

func newFakeRefresher() *fakeRefresher {
	return &fakeRefresher{failures: make(map[string]error)}
}

func (f *fakeRefresher) Refresh(ctx context.Context, city string) (*weather.Observation, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		current := f.maxInFlight.Load()
		if n <= current || f.maxInFlight.CompareAndSwap(current, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.cities = append(f.cities, city)
	if err, ok := f.failures[city]; ok {
		return nil, err
	}
	return &weather.Observation{Name: city, Category: weather.CategoryClear}, nil
}

func (f *fakeRefresher) refreshed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cities...)
}

func newTestJob(refresher worker.Refresher, cities ...string) *worker.WarmJob {
	cfg := worker.WarmConfig{Concurrency: 2, Timeout: time.Second}
	for i, c := range cities {
		cfg.Targets = append(cfg.Targets, worker.WarmTarget{City: c, Priority: i + 1})
	}
	return worker.NewWarmJob(worker.WarmJobConfig{
		Config:    cfg,
		Logger:    zerolog.Nop(),
		Refresher: refresher,
	})
}

func TestDefaultWarmConfig(t *testing.T) {
	cfg := worker.DefaultWarmConfig()

	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.Interval)
	require.NotEmpty(t, cfg.Targets)
	assert.Equal(t, "London", cfg.Cities()[0])
}

func TestTargetsFromList(t *testing.T) {
	targets := worker.TargetsFromList(" London , Paris,, Oslo ")

	require.Len(t, targets, 3)
	assert.Equal(t, worker.WarmTarget{City: "London", Priority: 1}, targets[0])
	assert.Equal(t, "Paris", targets[1].City)
	assert.Equal(t, worker.WarmTarget{City: "Oslo", Priority: 3}, targets[2])

	assert.Empty(t, worker.TargetsFromList(" , "))
}

func TestWarmConfig_CitiesOrderedByPriority(t *testing.T) {
	cfg := worker.WarmConfig{Targets: []worker.WarmTarget{
		{City: "Sydney", Priority: 3},
		{City: "London", Priority: 1},
		{City: "Paris", Priority: 2},
		{City: "Tokyo", Priority: 2},
	}}

	assert.Equal(t, []string{"London", "Paris", "Tokyo", "Sydney"}, cfg.Cities())
}

func TestNewWarmJob_Defaults(t *testing.T) {
	job := worker.NewWarmJob(worker.WarmJobConfig{Logger: zerolog.Nop()})

	cfg := job.Config()
	assert.Equal(t, worker.DefaultWarmConfig(), cfg)
	assert.Equal(t, int64(0), job.GetMetrics().TotalRuns)
}

func TestWarmJob_Run(t *testing.T) {
	refresher := newFakeRefresher()
	job := newTestJob(refresher, "London", "Oslo", "Cairo")

	result := job.Run(context.Background())

	assert.Equal(t, 3, result.TotalCities)
	assert.Equal(t, 3, result.Successful)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 0, result.Skipped)
	assert.Empty(t, result.Errors)
	assert.ElementsMatch(t, []string{"London", "Oslo", "Cairo"}, refresher.refreshed())
}

func TestWarmJob_Run_CollectsErrors(t *testing.T) {
	refresher := newFakeRefresher()
	refresher.failures["Atlantis"] = weather.ErrCityNotFound
	refresher.failures["Oslo"] = weather.ErrProviderUnavailable
	job := newTestJob(refresher, "London", "Atlantis", "Oslo")

	result := job.Run(context.Background())

	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Errors, 2)

	byCity := map[string]worker.WarmError{}
	for _, e := range result.Errors {
		byCity[e.City] = e
	}
	assert.True(t, byCity["Atlantis"].NotFound)
	assert.False(t, byCity["Oslo"].NotFound)
	assert.Contains(t, byCity["Oslo"].Error, "unavailable")

	metrics := job.GetMetrics()
	assert.Equal(t, int64(1), metrics.TotalRuns)
	assert.Equal(t, int64(1), metrics.CitiesWarmed)
	assert.Equal(t, int64(2), metrics.CitiesFailed)
	assert.Equal(t, int64(1), metrics.CitiesUnknown)
}

func TestWarmJob_Run_BoundedConcurrency(t *testing.T) {
	refresher := newFakeRefresher()
	refresher.delay = 10 * time.Millisecond

	cities := make([]string, 10)
	for i := range cities {
		cities[i] = "City" + string(rune('A'+i))
	}
	job := newTestJob(refresher, cities...)

	result := job.Run(context.Background())

	assert.Equal(t, 10, result.Successful)
	assert.LessOrEqual(t, refresher.maxInFlight.Load(), int32(2))
}

func TestWarmJob_Run_ContextCancellation(t *testing.T) {
	refresher := newFakeRefresher()
	job := newTestJob(refresher, "London", "Oslo", "Cairo")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := job.Run(ctx)

	require.NotNil(t, result)
	assert.Equal(t, result.TotalCities, result.Successful+result.Failed+result.Skipped)
}

func TestWarmJob_Run_NoRefresher(t *testing.T) {
	job := newTestJob(nil, "London")

	result := job.Run(context.Background())

	assert.Equal(t, 1, result.Successful)
	assert.Greater(t, result.Duration, time.Duration(0))
}

func TestWarmJob_MetricsSnapshot(t *testing.T) {
	job := newTestJob(newFakeRefresher(), "London")
	_ = job.Run(context.Background())

	snapshot := job.MetricsSnapshot()

	assert.Equal(t, int64(1), snapshot["total_runs"])
	assert.Equal(t, int64(1), snapshot["cities_warmed"])
	assert.Contains(t, snapshot, "last_run_at")
	assert.Contains(t, snapshot, "last_run_duration")
}

func TestWarmJob_RunEvery(t *testing.T) {
	refresher := newFakeRefresher()
	job := newTestJob(refresher, "London")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.RunEvery(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return job.GetMetrics().TotalRuns >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunEvery did not stop after cancellation")
	}
}

func TestDispatcher_Handle(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		failures map[string]error
		wantErr  error
		wantAny  bool
		refresh  []string
	}{
		{
			name:    "warm configured cities",
			payload: `{"job_type":"warm_cache"}`,
			refresh: []string{"London", "Oslo"},
		},
		{
			name:    "warm message cities",
			payload: `{"job_type":"warm_cache","cities":["Cairo"]}`,
			refresh: []string{"Cairo"},
		},
		{
			name:     "unknown cities are not retried",
			payload:  `{"job_type":"warm_cache","cities":["Atlantis"]}`,
			failures: map[string]error{"Atlantis": weather.ErrCityNotFound},
			refresh:  []string{"Atlantis"},
		},
		{
			name:     "provider outage is retried",
			payload:  `{"job_type":"warm_cache"}`,
			failures: map[string]error{"London": weather.ErrProviderUnavailable, "Oslo": weather.ErrProviderUnavailable},
			wantAny:  true,
			refresh:  []string{"London", "Oslo"},
		},
		{
			name:    "health check",
			payload: `{"job_type":"health_check"}`,
			refresh: []string{"London"},
		},
		{
			name:     "health check failure",
			payload:  `{"job_type":"health_check"}`,
			failures: map[string]error{"London": weather.ErrProviderUnavailable},
			wantAny:  true,
			refresh:  []string{"London"},
		},
		{
			name:    "unknown job type",
			payload: `{"job_type":"alert_evaluation"}`,
			wantErr: worker.ErrUnknownJobType,
		},
		{
			name:    "malformed payload",
			payload: `{not json`,
			wantErr: worker.ErrInvalidMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refresher := newFakeRefresher()
			for city, err := range tt.failures {
				refresher.failures[city] = err
			}
			d := worker.NewDispatcher(newTestJob(refresher, "London", "Oslo"), zerolog.Nop())

			err := d.Handle(context.Background(), []byte(tt.payload))

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantAny:
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
			}
			assert.ElementsMatch(t, tt.refresh, refresher.refreshed())
		})
	}
}

func newTestHTTPHandler(refresher worker.Refresher) http.Handler {
	job := newTestJob(refresher, "London")
	return worker.NewHTTPHandler(worker.HTTPConfig{
		Version:    "test",
		WarmJob:    job,
		Dispatcher: worker.NewDispatcher(job, zerolog.Nop()),
		Logger:     zerolog.Nop(),
	})
}

func TestHTTPHandler_Health(t *testing.T) {
	h := newTestHTTPHandler(newFakeRefresher())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"OK"`)
	assert.Contains(t, rec.Body.String(), `"version":"test"`)
	assert.Contains(t, rec.Body.String(), `"total_runs"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestHTTPHandler_WarmCache(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		failures   map[string]error
		wantStatus int
	}{
		{"empty body runs warm job", "", nil, http.StatusNoContent},
		{"explicit message", `{"job_type":"warm_cache","cities":["Oslo"]}`, nil, http.StatusNoContent},
		{"unknown job type", `{"job_type":"nope"}`, nil, http.StatusBadRequest},
		{"malformed body", `{`, nil, http.StatusBadRequest},
		{"provider down", "", map[string]error{"London": errors.New("boom")}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refresher := newFakeRefresher()
			for city, err := range tt.failures {
				refresher.failures[city] = err
			}
			h := newTestHTTPHandler(refresher)

			req := httptest.NewRequest(http.MethodPost, "/v1/jobs/warm-cache", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}
