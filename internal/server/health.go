package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthStatus is the status of a health check.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// CheckResult is the outcome of one dependency check.
type CheckResult struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
	Latency string       `json:"latency,omitempty"`
}

// HealthChecker probes one dependency.
type HealthChecker func() CheckResult

// HealthResponse is the health endpoint payload.
type HealthResponse struct {
	Status  HealthStatus           `json:"status"`
	Service string                 `json:"service"`
	Version string                 `json:"version"`
	Uptime  string                 `json:"uptime,omitempty"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
}

// RegisterHealthRoutes mounts /health and /health/ready. Liveness always
// returns 200; readiness aggregates the dependency checks and degrades the
// overall status to the worst individual result.
func RegisterHealthRoutes(router *gin.Engine, serviceName, version string, checks map[string]HealthChecker) {
	start := time.Now()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:  HealthStatusHealthy,
			Service: serviceName,
			Version: version,
			Uptime:  time.Since(start).Truncate(time.Second).String(),
		})
	})

	router.GET("/health/ready", func(c *gin.Context) {
		results := make(map[string]CheckResult, len(checks))
		overall := HealthStatusHealthy
		for name, check := range checks {
			result := check()
			results[name] = result
			if worse(result.Status, overall) {
				overall = result.Status
			}
		}

		code := http.StatusOK
		if overall == HealthStatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, HealthResponse{
			Status:  overall,
			Service: serviceName,
			Version: version,
			Uptime:  time.Since(start).Truncate(time.Second).String(),
			Checks:  results,
		})
	})
}

func worse(a, b HealthStatus) bool {
	return rank(a) > rank(b)
}

func rank(s HealthStatus) int {
	switch s {
	case HealthStatusUnhealthy:
		return 2
	case HealthStatusDegraded:
		return 1
	default:
		return 0
	}
}
