package httpretry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedStep struct {
	status int
	body   string
	err    error
}

type scriptedDoer struct {
	steps []scriptedStep
	calls int
}

func (d *scriptedDoer) Do(req *http.Request) (*http.Response, error) {
	if d.calls >= len(d.steps) {
		return nil, errors.New("more calls than scripted steps")
	}
	step := d.steps[d.calls]
	d.calls++

	if step.err != nil {
		return nil, step.err
	}
	return &http.Response{
		StatusCode: step.status,
		Body:       io.NopCloser(strings.NewReader(step.body)),
		Header:     http.Header{},
	}, nil
}

func newTestExecutor(doer Doer) (*Executor, *[]time.Duration) {
	e := New(doer, Config{MaxAttempts: 3, BackoffFactor: 1.0, Timeout: time.Second})
	var slept []time.Duration
	e.sleep = func(_ context.Context, d time.Duration) {
		slept = append(slept, d)
	}
	return e, &slept
}

func TestFetchJSONSuccessAfterRetries(t *testing.T) {
	doer := &scriptedDoer{steps: []scriptedStep{
		{status: 503},
		{status: 503},
		{status: 200, body: `{"Products":[]}`},
	}}
	e, slept := newTestExecutor(doer)

	payload := e.FetchJSON(context.Background(), "https://example.test/search", nil, nil)

	require.NotNil(t, payload)
	assert.Equal(t, 3, doer.calls)
	require.Len(t, *slept, 2)
	assert.Equal(t, 1*time.Second, (*slept)[0])
	assert.Equal(t, 2*time.Second, (*slept)[1])
}

func TestFetchJSONExhaustionReturnsNil(t *testing.T) {
	doer := &scriptedDoer{steps: []scriptedStep{
		{status: 500},
		{status: 500},
		{status: 500},
	}}
	e, slept := newTestExecutor(doer)

	payload := e.FetchJSON(context.Background(), "https://example.test/search", nil, nil)

	assert.Nil(t, payload)
	assert.Equal(t, 3, doer.calls)
	assert.Len(t, *slept, 2)
}

func TestFetchJSONNonRetryableStatusFailsFast(t *testing.T) {
	doer := &scriptedDoer{steps: []scriptedStep{
		{status: 403},
	}}
	e, slept := newTestExecutor(doer)

	payload := e.FetchJSON(context.Background(), "https://example.test/search", nil, nil)

	assert.Nil(t, payload)
	assert.Equal(t, 1, doer.calls)
	assert.Empty(t, *slept)
}

func TestFetchJSONParseFailureIsTerminal(t *testing.T) {
	doer := &scriptedDoer{steps: []scriptedStep{
		{status: 200, body: "<html>not json</html>"},
	}}
	e, slept := newTestExecutor(doer)

	payload := e.FetchJSON(context.Background(), "https://example.test/search", nil, nil)

	assert.Nil(t, payload)
	assert.Equal(t, 1, doer.calls)
	assert.Empty(t, *slept)
}

func TestFetchJSONNetworkErrorsRetried(t *testing.T) {
	doer := &scriptedDoer{steps: []scriptedStep{
		{err: errors.New("connection refused")},
		{status: 200, body: `[]`},
	}}
	e, _ := newTestExecutor(doer)

	payload := e.FetchJSON(context.Background(), "https://example.test/search", nil, nil)

	require.NotNil(t, payload)
	assert.Equal(t, 2, doer.calls)
}

func TestFetchJSONBackoffScaling(t *testing.T) {
	e := New(nil, Config{MaxAttempts: 4, BackoffFactor: 0.5, Timeout: time.Second})

	assert.Equal(t, 500*time.Millisecond, e.backoff(0))
	assert.Equal(t, 1*time.Second, e.backoff(1))
	assert.Equal(t, 2*time.Second, e.backoff(2))
}

func TestFetchJSONHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doer := &scriptedDoer{steps: []scriptedStep{{status: 200, body: `[]`}}}
	e, _ := newTestExecutor(doer)

	payload := e.FetchJSON(ctx, "https://example.test/search", nil, nil)

	assert.Nil(t, payload)
	assert.Zero(t, doer.calls)
}
