package httpretry

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// Doer abstracts the HTTP client so tests can script responses.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	MaxAttempts   int
	BackoffFactor float64
	Timeout       time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:   3,
		BackoffFactor: 1.0,
		Timeout:       30 * time.Second,
	}
}

// Executor issues one logical outbound call with bounded retries and
// exponential backoff. Every failure mode resolves to a nil payload; no
// transport error ever escapes to the orchestration layer.
type Executor struct {
	client Doer
	cfg    Config

	sleep func(ctx context.Context, d time.Duration)
}

func New(client Doer, cfg Config) *Executor {
	if client == nil {
		client = &http.Client{}
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = 1.0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Executor{
		client: client,
		cfg:    cfg,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// backoff is 2^attempt * factor seconds, slept before each retry but never
// before the first attempt.
func (e *Executor) backoff(attempt int) time.Duration {
	seconds := math.Pow(2, float64(attempt)) * e.cfg.BackoffFactor
	return time.Duration(seconds * float64(time.Second))
}

// FetchJSON performs a GET against endpoint with the given query parameters
// and headers. It returns the response body as raw JSON on success and nil
// on any terminal failure: a non-JSON 200 body, a non-retryable status, or
// retry exhaustion.
func (e *Executor) FetchJSON(ctx context.Context, endpoint string, params url.Values, headers map[string]string) json.RawMessage {
	reqURL := endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	for attempt := 0; attempt < e.cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil
		}

		payload, retryable := e.attempt(ctx, reqURL, headers, attempt)
		if payload != nil {
			return payload
		}
		if !retryable {
			return nil
		}
		if attempt < e.cfg.MaxAttempts-1 {
			delay := e.backoff(attempt)
			logrus.WithFields(logrus.Fields{
				"url":         endpoint,
				"attempt":     attempt + 1,
				"retry_delay": delay.Seconds(),
			}).Warn("[RETRY] Attempt failed, backing off")
			e.sleep(ctx, delay)
		}
	}

	logrus.WithFields(logrus.Fields{
		"url":          endpoint,
		"max_attempts": e.cfg.MaxAttempts,
	}).Error("[RETRY] All attempts exhausted")
	return nil
}

// attempt returns (payload, retryable). A nil payload with retryable=false
// is a terminal failure.
func (e *Executor) attempt(ctx context.Context, reqURL string, headers map[string]string, attempt int) (json.RawMessage, bool) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		logrus.WithError(err).Error("[RETRY] Failed to build request")
		return nil, false
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	latency := time.Since(start)

	fields := logrus.Fields{
		"url":     reqURL,
		"attempt": attempt + 1,
		"latency": latency.Seconds(),
	}

	if err != nil {
		// Timeouts and network errors share the backoff schedule.
		logrus.WithError(err).WithFields(fields).Warn("[RETRY] Transport error")
		return nil, true
	}
	defer resp.Body.Close()

	fields["status_code"] = resp.StatusCode

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			logrus.WithError(err).WithFields(fields).Warn("[RETRY] Failed to read response body")
			return nil, true
		}
		if !json.Valid(body) {
			// Parse failures are terminal: retrying the same payload
			// cannot help.
			logrus.WithFields(fields).Error("[RETRY] Response is not valid JSON")
			return nil, false
		}
		logrus.WithFields(fields).Debug("[RETRY] Request successful")
		return json.RawMessage(body), false

	case retryableStatus(resp.StatusCode):
		logrus.WithFields(fields).Warn("[RETRY] Retryable status")
		return nil, true

	default:
		logrus.WithFields(fields).Error("[RETRY] Non-retryable status")
		return nil, false
	}
}
