package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/restoledger/backend/internal/infrastructure/scheduler"
	"github.com/restoledger/backend/internal/interfaces/http/dto"
)

// Pinger checks a dependency
type Pinger interface {
	Ping() error
}

// SchedulerStatus reports the daily import trigger state
type SchedulerStatus interface {
	Status() scheduler.Status
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	GoVersion string            `json:"go_version"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks"`
	Scheduler *scheduler.Status `json:"scheduler,omitempty"`
}

// HealthHandler answers liveness and readiness checks
type HealthHandler struct {
	BaseHandler
	version   string
	startTime time.Time
	db        Pinger
	scheduler SchedulerStatus
}

// NewHealthHandler creates a new HealthHandler; db and sched may be nil
func NewHealthHandler(version string, db Pinger, sched SchedulerStatus) *HealthHandler {
	return &HealthHandler{version: version, startTime: time.Now(), db: db, scheduler: sched}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:    "ok",
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    map[string]string{},
	}
	status := http.StatusOK

	if h.db != nil {
		if err := pingWithTimeout(c.Request.Context(), h.db, 2*time.Second); err != nil {
			resp.Status = "degraded"
			resp.Checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			resp.Checks["database"] = "ok"
		}
	}
	if h.scheduler != nil {
		st := h.scheduler.Status()
		resp.Scheduler = &st
	}

	c.JSON(status, dto.NewSuccessResponse(resp))
}

func pingWithTimeout(ctx context.Context, p Pinger, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.Ping() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
