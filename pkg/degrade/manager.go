package degrade

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ozcart/salewatch/domains/catalog"
	"github.com/ozcart/salewatch/domains/source"
	"github.com/sirupsen/logrus"
)

type ServiceStatus string

const (
	StatusAvailable   ServiceStatus = "available"
	StatusDegraded    ServiceStatus = "degraded"
	StatusUnavailable ServiceStatus = "unavailable"
)

// ServiceResult is the outcome of one orchestrated source call. Failure is
// expressed here as Success=false with empty Data; no error value crosses
// this boundary.
type ServiceResult struct {
	Success           bool                `json:"success"`
	Data              []catalog.Candidate `json:"data,omitempty"`
	Error             string              `json:"error,omitempty"`
	ResponseTimeMs    float64             `json:"response_time_ms"`
	FallbackUsed      bool                `json:"fallback_used"`
	DegradationReason string              `json:"degradation_reason,omitempty"`
}

type Config struct {
	FailureThreshold int
	BreakerTimeout   time.Duration
	SourceTimeout    time.Duration
	LastGoodMaxAge   time.Duration
	MinSuccessRate   float64
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		BreakerTimeout:   60 * time.Second,
		SourceTimeout:    15 * time.Second,
		LastGoodMaxAge:   time.Hour,
		MinSuccessRate:   0.3,
	}
}

type lastGood struct {
	data []catalog.Candidate
	at   time.Time
}

// Manager wraps source searches with a per-source circuit breaker and a
// fallback chain: primary, explicit fallback function, last-known-good
// result, failure. Breakers are created lazily and live for the process
// lifetime.
type Manager struct {
	cfg Config

	mu       sync.Mutex
	breakers map[string]*Breaker
	status   map[string]ServiceStatus
	lastGood map[string]lastGood

	now func() time.Time
}

func NewManager(cfg Config) *Manager {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 60 * time.Second
	}
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = 15 * time.Second
	}
	if cfg.LastGoodMaxAge <= 0 {
		cfg.LastGoodMaxAge = time.Hour
	}
	if cfg.MinSuccessRate <= 0 {
		cfg.MinSuccessRate = 0.3
	}
	return &Manager{
		cfg:      cfg,
		breakers: make(map[string]*Breaker),
		status:   make(map[string]ServiceStatus),
		lastGood: make(map[string]lastGood),
		now:      time.Now,
	}
}

// Breaker returns the circuit breaker for a service, creating it on first
// use.
func (m *Manager) Breaker(serviceName string) *Breaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.breakers[serviceName]
	if !ok {
		b = NewBreaker(m.cfg.FailureThreshold, m.cfg.BreakerTimeout)
		m.breakers[serviceName] = b
	}
	return b
}

func (m *Manager) setStatus(serviceName string, s ServiceStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[serviceName] = s
}

func (m *Manager) storeLastGood(serviceName string, data []catalog.Candidate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastGood[serviceName] = lastGood{data: data, at: m.now()}
}

func (m *Manager) recentLastGood(serviceName string) ([]catalog.Candidate, time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lg, ok := m.lastGood[serviceName]
	if !ok {
		return nil, 0, false
	}
	age := m.now().Sub(lg.at)
	if age >= m.cfg.LastGoodMaxAge {
		return nil, 0, false
	}
	return lg.data, age, true
}

// ExecuteWithDegradation runs primary under the source timeout, guarded by
// the service's breaker. On failure it walks the fallback chain and reports
// how the result was obtained.
func (m *Manager) ExecuteWithDegradation(ctx context.Context, serviceName string, primary source.SearchFunc, fallback source.FallbackFunc) ServiceResult {
	start := m.now()

	breaker := m.Breaker(serviceName)
	if !breaker.CanExecute() {
		logrus.Warnf("[DEGRADE] Circuit breaker open for %s, skipping primary call", serviceName)
		return m.tryFallback(ctx, serviceName, fallback, start, "circuit breaker open")
	}

	data, err := m.runTimeboxed(ctx, primary)
	elapsed := m.now().Sub(start)

	if err == nil {
		breaker.RecordSuccess()
		m.setStatus(serviceName, StatusAvailable)
		m.storeLastGood(serviceName, data)

		logrus.Debugf("[DEGRADE] Primary succeeded for %s in %.1fms", serviceName, toMs(elapsed))
		return ServiceResult{
			Success:        true,
			Data:           data,
			ResponseTimeMs: toMs(elapsed),
		}
	}

	breaker.RecordFailure()
	logrus.WithError(err).Warnf("[DEGRADE] Primary failed for %s", serviceName)
	return m.tryFallback(ctx, serviceName, fallback, start, err.Error())
}

func (m *Manager) runTimeboxed(ctx context.Context, fn source.SearchFunc) ([]catalog.Candidate, error) {
	runCtx, cancel := context.WithTimeout(ctx, m.cfg.SourceTimeout)
	defer cancel()

	type outcome struct {
		data []catalog.Candidate
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		data, err := fn(runCtx)
		done <- outcome{data: data, err: err}
	}()

	select {
	case o := <-done:
		return o.data, o.err
	case <-runCtx.Done():
		return nil, fmt.Errorf("timeout after %s", m.cfg.SourceTimeout)
	}
}

// tryFallback walks the chain in order of preference: the explicit fallback
// function, then a sufficiently fresh last-known-good result.
func (m *Manager) tryFallback(ctx context.Context, serviceName string, fallback source.FallbackFunc, start time.Time, originalError string) ServiceResult {
	if fallback != nil {
		logrus.Infof("[DEGRADE] Trying fallback function for %s", serviceName)
		data, err := fallback(ctx)
		if err == nil {
			m.setStatus(serviceName, StatusDegraded)
			return ServiceResult{
				Success:           true,
				Data:              data,
				ResponseTimeMs:    toMs(m.now().Sub(start)),
				FallbackUsed:      true,
				DegradationReason: "Primary failed: " + originalError,
			}
		}
		logrus.WithError(err).Warnf("[DEGRADE] Fallback function failed for %s", serviceName)
	}

	if data, age, ok := m.recentLastGood(serviceName); ok {
		m.setStatus(serviceName, StatusDegraded)
		logrus.Infof("[DEGRADE] Using last known good result for %s (age: %.0fs)", serviceName, age.Seconds())
		return ServiceResult{
			Success:           true,
			Data:              data,
			ResponseTimeMs:    toMs(m.now().Sub(start)),
			FallbackUsed:      true,
			DegradationReason: fmt.Sprintf("Using cached data from %.0fs ago", age.Seconds()),
		}
	}

	m.setStatus(serviceName, StatusUnavailable)
	return ServiceResult{
		Success:        false,
		Error:          originalError,
		ResponseTimeMs: toMs(m.now().Sub(start)),
	}
}

// ExecuteMultiSource fans the same logical query out to every source
// concurrently, each independently timeboxed. One source's failure never
// short-circuits the batch; a success rate below the configured minimum is
// logged as a warning but the partial results are still returned.
func (m *Manager) ExecuteMultiSource(ctx context.Context, searches map[string]source.SearchFunc, fallbacks map[string]source.FallbackFunc) map[string]ServiceResult {
	results := make(map[string]ServiceResult, len(searches))
	if len(searches) == 0 {
		return results
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for name, fn := range searches {
		wg.Add(1)
		go func(name string, fn source.SearchFunc) {
			defer wg.Done()
			res := m.ExecuteWithDegradation(ctx, name, fn, fallbacks[name])
			mu.Lock()
			results[name] = res
			mu.Unlock()
		}(name, fn)
	}
	wg.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	rate := float64(succeeded) / float64(len(results))
	if rate < m.cfg.MinSuccessRate {
		logrus.WithFields(logrus.Fields{
			"successful_sources": succeeded,
			"total_sources":      len(results),
			"success_rate":       rate,
			"threshold":          m.cfg.MinSuccessRate,
		}).Warn("[DEGRADE] Source success rate below threshold")
	}

	return results
}

type StatusSummary struct {
	Services        map[string]ServiceStatus   `json:"services"`
	CircuitBreakers map[string]BreakerSnapshot `json:"circuit_breakers"`
	LastGoodAges    map[string]string          `json:"last_good_ages"`
}

// Summary reports breaker states and last-good freshness for monitoring.
func (m *Manager) Summary() StatusSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	summary := StatusSummary{
		Services:        make(map[string]ServiceStatus, len(m.status)),
		CircuitBreakers: make(map[string]BreakerSnapshot, len(m.breakers)),
		LastGoodAges:    make(map[string]string, len(m.lastGood)),
	}
	for name, s := range m.status {
		summary.Services[name] = s
	}
	for name, b := range m.breakers {
		summary.CircuitBreakers[name] = b.Snapshot()
	}
	now := m.now()
	for name, lg := range m.lastGood {
		summary.LastGoodAges[name] = now.Sub(lg.at).Round(time.Second).String()
	}
	return summary
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
