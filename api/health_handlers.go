package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// healthCheckTimeout bounds each dependency probe.
const healthCheckTimeout = 5 * time.Second

// componentHealth is the per-dependency entry of a health report.
type componentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// healthReport is the /health response body.
type healthReport struct {
	Status     string                     `json:"status"`
	Time       string                     `json:"time"`
	Components map[string]componentHealth `json:"components"`
}

// healthCheck godoc
//
//	@Summary		Health check
//	@Description	Probe the search backend and document store
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	healthReport
//	@Failure		503	{object}	healthReport
//	@Router			/health [get]
func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	report := healthReport{
		Status:     "healthy",
		Time:       a.now().UTC().Format(time.RFC3339),
		Components: make(map[string]componentHealth, len(a.checks)),
	}

	var mu sync.Mutex
	var g errgroup.Group
	for name, checker := range a.checks {
		g.Go(func() error {
			entry := componentHealth{Status: "healthy"}
			if err := checker.HealthCheck(ctx); err != nil {
				entry = componentHealth{Status: "unhealthy", Error: sanitizeErrorMessage(err.Error())}
				LogWithRequestID(r.Context(), a.logger).Warnw("health check failed",
					"component", name,
					"error", err)
			}
			mu.Lock()
			report.Components[name] = entry
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := http.StatusOK
	for _, entry := range report.Components {
		if entry.Status != "healthy" {
			report.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			break
		}
	}

	a.respondJSON(w, report, status)
}
