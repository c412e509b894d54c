package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/opsdesk/fncall/internal/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const version = "1.0.0"

const healthTimeout = 5 * time.Second

// HealthChecker is implemented by services that can report connectivity
type HealthChecker interface {
	TestConnection(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthChecker.
type HealthCheckFunc func(ctx context.Context) error

func (f HealthCheckFunc) TestConnection(ctx context.Context) error { return f(ctx) }

type namedCheck struct {
	name    string
	checker HealthChecker // nil when the dependency is disabled
}

type healthReport struct {
	status string
	checks map[string]string
}

// HealthHandler handles GET /health. Dependencies are probed in parallel and
// concurrent requests share one round of probes.
type HealthHandler struct {
	checks []namedCheck
	sf     singleflight.Group
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Add registers a dependency. A nil checker is reported as disabled.
func (h *HealthHandler) Add(name string, c HealthChecker) {
	h.checks = append(h.checks, namedCheck{name: name, checker: c})
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	v, _, _ := h.sf.Do("health", func() (interface{}, error) {
		return h.probe(context.WithoutCancel(r.Context())), nil
	})
	report := v.(healthReport)

	statusCode := http.StatusOK
	if report.status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	models.WriteJSON(w, statusCode, models.HealthResponse{
		Status:  report.status,
		Version: version,
		Checks:  report.checks,
	})
}

func (h *HealthHandler) probe(ctx context.Context) healthReport {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	results := make([]string, len(h.checks))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range h.checks {
		if c.checker == nil {
			results[i] = "disabled"
			continue
		}
		i, c := i, c
		g.Go(func() error {
			if err := c.checker.TestConnection(gctx); err != nil {
				results[i] = "unavailable: " + err.Error()
			} else {
				results[i] = "ok"
			}
			return nil
		})
	}
	_ = g.Wait()

	report := healthReport{status: "healthy", checks: map[string]string{"server": "ok"}}
	for i, c := range h.checks {
		report.checks[c.name] = results[i]
		if results[i] != "ok" && results[i] != "disabled" {
			report.status = "degraded"
		}
	}
	return report
}
