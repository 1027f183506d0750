// Package health runs scheduled liveness checks and keeps their last results.
package health

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Status values reported for a check and for the whole process
const (
	StatusOK       = "ok"
	StatusFailing  = "failing"
	StatusPending  = "pending"
	StatusDegraded = "degraded"
)

// Checker is a dependency that can report whether it is reachable
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// Result is the outcome of the last run of one check
type Result struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at,omitempty"`
}

// Monitor runs checks on a cron schedule
type Monitor struct {
	checks  []Checker
	timeout time.Duration
	cron    *cron.Cron
	logger  zerolog.Logger

	mu      sync.RWMutex
	results map[string]Result
}

// NewMonitor creates a monitor for checks. Each check run is bounded by timeout.
func NewMonitor(timeout time.Duration, logger zerolog.Logger, checks ...Checker) *Monitor {
	results := make(map[string]Result, len(checks))
	for _, check := range checks {
		results[check.Name()] = Result{Name: check.Name(), Status: StatusPending}
	}

	return &Monitor{
		checks:  checks,
		timeout: timeout,
		cron:    cron.New(),
		logger:  logger.With().Str("component", "health").Logger(),
		results: results,
	}
}

// Start runs every check once and then on schedule until Stop
func (m *Monitor) Start(ctx context.Context, schedule string) error {
	if _, err := m.cron.AddFunc(schedule, func() { m.RunChecks(ctx) }); err != nil {
		return fmt.Errorf("scheduling health checks with %q: %w", schedule, err)
	}

	m.logger.Info().Str("schedule", schedule).Int("checks", len(m.checks)).Msg("Scheduled health checks")

	go m.RunChecks(ctx)
	m.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running check to finish
func (m *Monitor) Stop() {
	<-m.cron.Stop().Done()
}

// RunChecks runs all checks once and records their results
func (m *Monitor) RunChecks(ctx context.Context) {
	for _, check := range m.checks {
		checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
		err := check.Check(checkCtx)
		cancel()

		result := Result{Name: check.Name(), Status: StatusOK, CheckedAt: time.Now().UTC()}
		if err != nil {
			result.Status = StatusFailing
			result.Error = err.Error()
			m.logger.Warn().Err(err).Str("check", check.Name()).Msg("Health check failed")
		} else {
			m.logger.Debug().Str("check", check.Name()).Msg("Health check passed")
		}

		m.mu.Lock()
		m.results[check.Name()] = result
		m.mu.Unlock()
	}
}

// Status returns the overall status and the last result of each check, sorted by name.
// The overall status is degraded when any check is failing.
func (m *Monitor) Status() (string, []Result) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	overall := StatusOK
	results := make([]Result, 0, len(m.results))
	for _, result := range m.results {
		if result.Status == StatusFailing {
			overall = StatusDegraded
		}
		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return overall, results
}
