package main

import (
	"context"
	"net/http"
	"time"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

// CheckResult represents the result of a single dependency check
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// healthCheckHandler handles GET /auth/health. It pings whichever
// store backend is configured plus RabbitMQ when connected, and
// returns 503 if anything is down.
func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]CheckResult)
	healthy := true

	switch app.config.storeBackend {
	case "redis":
		checks["redis"] = app.checkRedis(ctx)
	case "postgres":
		checks["postgres"] = app.checkDatabase(ctx)
	case "memory":
		checks["store"] = CheckResult{Status: "healthy", Message: "in-memory store"}
	}

	if app.rabbitConn != nil {
		checks["rabbitmq"] = app.checkRabbitMQ()
	}

	for _, check := range checks {
		if check.Status != "healthy" {
			healthy = false
			break
		}
	}

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	status := http.StatusOK
	if !healthy {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}

func (app *application) checkRedis(ctx context.Context) CheckResult {
	if app.redisClient == nil {
		return CheckResult{Status: "unhealthy", Message: "redis client not configured"}
	}

	start := time.Now()
	if err := app.redisClient.Ping(ctx).Err(); err != nil {
		return CheckResult{Status: "unhealthy", Message: err.Error()}
	}
	return CheckResult{Status: "healthy", Latency: time.Since(start).String()}
}

func (app *application) checkDatabase(ctx context.Context) CheckResult {
	if app.db == nil {
		return CheckResult{Status: "unhealthy", Message: "database not configured"}
	}

	start := time.Now()
	if err := app.db.PingContext(ctx); err != nil {
		return CheckResult{Status: "unhealthy", Message: err.Error()}
	}
	return CheckResult{Status: "healthy", Latency: time.Since(start).String()}
}

func (app *application) checkRabbitMQ() CheckResult {
	if app.rabbitConn.IsClosed() {
		return CheckResult{Status: "unhealthy", Message: "connection closed"}
	}
	if app.rabbitCh != nil && app.rabbitCh.IsClosed() {
		return CheckResult{Status: "unhealthy", Message: "channel closed"}
	}
	return CheckResult{Status: "healthy"}
}
