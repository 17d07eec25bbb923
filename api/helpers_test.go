package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"obsquery/config"
	"obsquery/core"
	"obsquery/search"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// runCall records one invocation of stubRunner.Run.
type runCall struct {
	requestStart time.Time
	params       *core.QueryParams
	deadline     bool
}

// stubRunner answers every query with its canned events, echoing the params.
type stubRunner struct {
	mu     sync.Mutex
	calls  []runCall
	events []*core.Event
	err    error
}

func (s *stubRunner) Run(ctx context.Context, requestStart time.Time, params *core.QueryParams) (*core.Response, error) {
	_, hasDeadline := ctx.Deadline()
	s.mu.Lock()
	s.calls = append(s.calls, runCall{requestStart: requestStart, params: params, deadline: hasDeadline})
	s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	return &core.Response{
		TotalEvents: int64(len(s.events)),
		Query:       params,
		Events:      s.events,
		Timing: &core.Timing{
			RequestStart:  requestStart,
			QueryStart:    requestStart,
			SearchStart:   requestStart,
			SearchFinish:  requestStart.Add(2 * time.Millisecond),
			ResolveStart:  requestStart.Add(2 * time.Millisecond),
			ResolveFinish: requestStart.Add(3 * time.Millisecond),
			SearchTook:    1,
		},
	}, nil
}

func (s *stubRunner) lastCall(t *testing.T) runCall {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.calls, "runner was not called")
	return s.calls[len(s.calls)-1]
}

type mockHealthChecker struct {
	mock.Mock
}

func (m *mockHealthChecker) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.API.Port = 8080
	cfg.API.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.API.TrustedProxyNetworks = []string{"127.0.0.1/32"}
	cfg.API.RequestTimeout = 5
	cfg.API.RateLimit.RequestsPerSecond = 1000
	cfg.API.RateLimit.Burst = 1000
	cfg.Query.DefaultWindowDays = 30
	cfg.Query.DefaultPerPage = 50
	cfg.Query.MaxPerPage = 1000
	return cfg
}

// setupTestAPI builds an API whose clock is frozen at testNow.
func setupTestAPI(t *testing.T, runner QueryRunner, checks map[string]HealthChecker, cfg *config.Config) *API {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	a := NewAPI(runner, checks, cfg, zap.NewNop().Sugar())
	a.clock = search.ClockFunc(func() time.Time { return testNow })
	a.timeParser = search.NewTimeRangeParser(a.clock)
	t.Cleanup(func() { _ = a.Stop(context.Background()) })
	return a
}

func serve(a *API, method, target, contentType, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	return rec
}
