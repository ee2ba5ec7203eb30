package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Limit is one rate class. Requests bounds the sliding window, Burst caps
// the token bucket that absorbs short spikes.
type Limit struct {
	Requests int
	Window   time.Duration
	Burst    int
}

func (l Limit) bucketCap() float64 {
	if l.Burst > 0 {
		return float64(l.Burst)
	}
	return float64(l.Requests)
}

func (l Limit) tokensPerSecond() float64 {
	return float64(l.Requests) / l.Window.Seconds()
}

// classRecord is one client's state under one limit class: its own sliding
// window and its own token bucket. Classes never share quota, so heavy
// endpoint traffic cannot starve a client's access to the others.
type classRecord struct {
	requests   []time.Time
	tokens     float64
	lastRefill time.Time
}

type clientRecord struct {
	classes      map[string]*classRecord
	blockedUntil time.Time
}

// lastRequest is the newest admitted request across all of the client's
// classes; zero when the client has none.
func (r *clientRecord) lastRequest() time.Time {
	var last time.Time
	for _, cls := range r.classes {
		if n := len(cls.requests); n > 0 && cls.requests[n-1].After(last) {
			last = cls.requests[n-1]
		}
	}
	return last
}

// Verdict carries the admission decision plus the headers the transport
// layer should echo back to the caller.
type Verdict struct {
	Allowed    bool
	RetryAfter time.Duration
	Headers    map[string]string
}

type ClassStats struct {
	RequestsInWindow int     `json:"requests_in_window"`
	Tokens           float64 `json:"tokens"`
}

type ClientStats struct {
	Exists           bool                  `json:"exists"`
	RequestsInWindow int                   `json:"requests_in_window,omitempty"`
	Classes          map[string]ClassStats `json:"classes,omitempty"`
	IsBlocked        bool                  `json:"is_blocked,omitempty"`
	BlockedUntil     *time.Time            `json:"blocked_until,omitempty"`
	LastRequest      *time.Time            `json:"last_request,omitempty"`
}

// Limiter tracks per-client request history and enforces two layers per
// class: a sliding window over the full period and a token bucket for burst
// smoothing. A request is admitted only when both layers agree. Every class
// a client touches gets its own window and bucket; admin blocks apply to
// the client as a whole.
type Limiter struct {
	mu      sync.Mutex
	classes map[string]Limit
	clients map[string]*clientRecord

	now func() time.Time
}

func New(classes map[string]Limit) *Limiter {
	if classes == nil {
		classes = map[string]Limit{}
	}
	if _, ok := classes["global"]; !ok {
		classes["global"] = Limit{Requests: 100, Window: time.Minute, Burst: 10}
	}
	return &Limiter{
		classes: classes,
		clients: make(map[string]*clientRecord),
		now:     time.Now,
	}
}

func (l *Limiter) limitFor(class string) Limit {
	if limit, ok := l.classes[class]; ok {
		return limit
	}
	return l.classes["global"]
}

func (l *Limiter) record(clientID string) *clientRecord {
	rec, ok := l.clients[clientID]
	if !ok {
		rec = &clientRecord{classes: make(map[string]*classRecord)}
		l.clients[clientID] = rec
	}
	return rec
}

// classRecord returns the client's state under one class, creating it with
// a full token bucket so a brand-new client is never denied its first
// request.
func (r *clientRecord) classRecord(class string, limit Limit, now time.Time) *classRecord {
	cls, ok := r.classes[class]
	if !ok {
		cls = &classRecord{tokens: limit.bucketCap(), lastRefill: now}
		r.classes[class] = cls
	}
	return cls
}

func (r *classRecord) dropExpired(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(r.requests) && !r.requests[i].After(cutoff) {
		i++
	}
	if i > 0 {
		r.requests = append(r.requests[:0], r.requests[i:]...)
	}
}

func (r *classRecord) refill(now time.Time, limit Limit) {
	elapsed := now.Sub(r.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	r.tokens += elapsed * limit.tokensPerSecond()
	if capacity := limit.bucketCap(); r.tokens > capacity {
		r.tokens = capacity
	}
	r.lastRefill = now
}

// Check decides whether one request from clientID may proceed under the
// named class. Admitted requests are recorded and consume a token; denied
// requests leave the record untouched apart from expiry cleanup.
func (l *Limiter) Check(clientID, class string) Verdict {
	limit := l.limitFor(class)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	rec := l.record(clientID)
	cls := rec.classRecord(class, limit, now)

	if rec.blockedUntil.After(now) {
		retryAfter := rec.blockedUntil.Sub(now)
		return l.deny(clientID, class, cls, limit, retryAfter)
	}

	cls.dropExpired(now, limit.Window)
	cls.refill(now, limit)

	if len(cls.requests) >= limit.Requests {
		retryAfter := limit.Window - now.Sub(cls.requests[0])
		if retryAfter < 0 {
			retryAfter = 0
		}
		return l.deny(clientID, class, cls, limit, retryAfter)
	}

	if cls.tokens < 1.0 {
		wait := (1.0 - cls.tokens) / limit.tokensPerSecond()
		retryAfter := time.Duration(wait * float64(time.Second))
		return l.deny(clientID, class, cls, limit, retryAfter)
	}

	cls.requests = append(cls.requests, now)
	cls.tokens -= 1.0
	if cls.tokens < 0 {
		cls.tokens = 0
	}

	return Verdict{Allowed: true, Headers: l.headers(cls, limit)}
}

func (l *Limiter) deny(clientID, class string, cls *classRecord, limit Limit, retryAfter time.Duration) Verdict {
	headers := l.headers(cls, limit)
	if retryAfter > 0 {
		headers["Retry-After"] = strconv.Itoa(int(retryAfter.Seconds()) + 1)
	}

	logrus.WithFields(logrus.Fields{
		"client_id":          clientID,
		"limit_type":         class,
		"requests_in_window": len(cls.requests),
		"limit":              limit.Requests,
		"retry_after":        retryAfter.Seconds(),
	}).Warn("[RATELIMIT] Rate limit exceeded")

	return Verdict{Allowed: false, RetryAfter: retryAfter, Headers: headers}
}

func (l *Limiter) headers(cls *classRecord, limit Limit) map[string]string {
	remaining := limit.Requests - len(cls.requests)
	if remaining < 0 {
		remaining = 0
	}
	return map[string]string{
		"X-RateLimit-Limit":     strconv.Itoa(limit.Requests),
		"X-RateLimit-Window":    strconv.Itoa(int(limit.Window.Seconds())),
		"X-RateLimit-Remaining": strconv.Itoa(remaining),
	}
}

// Block denies every request from clientID until the duration elapses,
// regardless of class.
func (l *Limiter) Block(clientID string, duration time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.record(clientID)
	rec.blockedUntil = l.now().Add(duration)

	logrus.WithFields(logrus.Fields{
		"client_id":      clientID,
		"block_duration": duration.Seconds(),
	}).Warn("[RATELIMIT] Client blocked")
}

func (l *Limiter) Unblock(clientID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec, ok := l.clients[clientID]; ok {
		rec.blockedUntil = time.Time{}
		logrus.Infof("[RATELIMIT] Client %s unblocked", clientID)
	}
}

func (l *Limiter) Stats(clientID string) ClientStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.clients[clientID]
	if !ok {
		return ClientStats{}
	}

	now := l.now()
	stats := ClientStats{
		Exists:    true,
		Classes:   make(map[string]ClassStats, len(rec.classes)),
		IsBlocked: rec.blockedUntil.After(now),
	}
	for class, cls := range rec.classes {
		stats.RequestsInWindow += len(cls.requests)
		stats.Classes[class] = ClassStats{
			RequestsInWindow: len(cls.requests),
			Tokens:           cls.tokens,
		}
	}
	if !rec.blockedUntil.IsZero() {
		t := rec.blockedUntil
		stats.BlockedUntil = &t
	}
	if last := rec.lastRequest(); !last.IsZero() {
		t := last
		stats.LastRequest = &t
	}
	return stats
}

// ReapStale drops clients with no request newer than maxAge, unless they
// are still under an active block. Returns how many were removed.
func (l *Limiter) ReapStale(maxAge time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-maxAge)

	removed := 0
	for clientID, rec := range l.clients {
		if rec.blockedUntil.After(now) {
			continue
		}
		if last := rec.lastRequest(); last.IsZero() || last.Before(cutoff) {
			delete(l.clients, clientID)
			removed++
		}
	}

	if removed > 0 {
		logrus.Infof("[RATELIMIT] Reaped %d stale clients", removed)
	}
	return removed
}

// StartReaper runs ReapStale on every tick until ctx is cancelled.
func (l *Limiter) StartReaper(ctx context.Context, tick, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.ReapStale(maxAge)
			}
		}
	}()
}

func (l *Limiter) ClientCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
