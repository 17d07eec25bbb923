// Package api obsquery HTTP API
//
//	@title			obsquery API
//	@version		1.0
//	@description	Time-bounded search over threat-intelligence events by IPv4 and FQDN observables
//
// @license.name	MIT
// @license.url	https://opensource.org/licenses/MIT
//
// @host		localhost:8080
// @BasePath	/
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"obsquery/config"
	"obsquery/core"
	"obsquery/search"
	"obsquery/util/goroutine"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// QueryRunner executes a normalized query. *search.Pipeline satisfies it.
type QueryRunner interface {
	Run(ctx context.Context, requestStart time.Time, params *core.QueryParams) (*core.Response, error)
}

// HealthChecker is a dependency reported by /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// rateLimiterEntry holds a rate limiter with last seen time
type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// API represents the REST API server
type API struct {
	router         *mux.Router
	server         *http.Server
	serverMu       sync.Mutex
	runner         QueryRunner
	checks         map[string]HealthChecker
	config         *config.Config
	logger         *zap.SugaredLogger
	validate       *validator.Validate
	timeParser     *search.TimeRangeParser
	proxies        proxyTrust
	clock          search.Clock
	rateLimiters   map[string]*rateLimiterEntry
	rateLimitersMu sync.Mutex
	stopCh         chan struct{}
	stopOnce       sync.Once
	background     sync.WaitGroup
}

// NewAPI creates a new API server. checks maps a component name to the
// dependency probed by /health.
func NewAPI(runner QueryRunner, checks map[string]HealthChecker, cfg *config.Config, logger *zap.SugaredLogger) *API {
	api := &API{
		router:       mux.NewRouter(),
		runner:       runner,
		checks:       checks,
		config:       cfg,
		logger:       logger,
		validate:     validator.New(),
		clock:        search.SystemClock,
		proxies:      newProxyTrust(cfg.API.TrustProxy, cfg.API.TrustedProxyNetworks),
		rateLimiters: make(map[string]*rateLimiterEntry),
		stopCh:       make(chan struct{}),
	}
	api.timeParser = search.NewTimeRangeParser(api.clock)

	api.setupRoutes()
	goroutine.Go(&api.background, "rate-limiter-cleanup", logger, api.cleanupRateLimiters)

	return api
}

// setupRoutes configures the API routes
func (a *API) setupRoutes() {
	a.router.Use(a.requestIDMiddleware)
	a.router.Use(a.recoveryMiddleware)
	a.router.Use(a.corsMiddleware)
	a.router.Use(a.rateLimitMiddleware)

	a.router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	api := a.router.PathPrefix("/api/v1").Subrouter()
	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	api.HandleFunc("/query", a.queryEvents(filterNone)).Methods("GET", "POST", "OPTIONS")
	api.HandleFunc("/query/ipv4", a.queryEvents(filterIPv4)).Methods("GET", "POST", "OPTIONS")
	api.HandleFunc("/query/fqdn", a.queryEvents(filterFQDN)).Methods("GET", "POST", "OPTIONS")

	a.router.HandleFunc("/health", a.healthCheck).Methods("GET")
	a.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	a.router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)
}

// methodNotAllowed answers a known path requested with the wrong method.
func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed", nil, nil)
}

// Handler exposes the routed handler, mainly for tests.
func (a *API) Handler() http.Handler {
	return a.router
}

// Start starts the API server
func (a *API) Start(addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.serverMu.Lock()
	a.server = server
	a.serverMu.Unlock()
	return server.ListenAndServe()
}

// Stop stops the API server and waits for its background goroutines.
func (a *API) Stop(ctx context.Context) error {
	a.stopOnce.Do(func() { close(a.stopCh) })
	a.serverMu.Lock()
	server := a.server
	a.serverMu.Unlock()

	var err error
	if server != nil {
		err = server.Shutdown(ctx)
	}
	a.background.Wait()
	return err
}
