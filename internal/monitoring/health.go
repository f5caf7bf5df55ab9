package monitoring

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ducminhle1904/strategy-orchestrator/internal/orchestrator"
)

// StatusProvider is satisfied by *orchestrator.Orchestrator
type StatusProvider interface {
	Status() orchestrator.Status
}

// HealthChecker reports orchestrator health over HTTP
type HealthChecker struct {
	provider  StatusProvider
	startTime time.Time
	now       func() time.Time
}

type HealthStatus struct {
	Status              string    `json:"status"`
	State               string    `json:"state"`
	Timestamp           time.Time `json:"timestamp"`
	LastRun             time.Time `json:"last_run"`
	NextRun             time.Time `json:"next_run"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	CycleCount          int       `json:"cycle_count"`
	Uptime              string    `json:"uptime"`
}

func NewHealthChecker(provider StatusProvider) *HealthChecker {
	return &HealthChecker{
		provider:  provider,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// Check classifies the current status. Halted is unhealthy, a failing
// streak or a stopped orchestrator is degraded.
func (h *HealthChecker) Check() (HealthStatus, int) {
	st := h.provider.Status()
	now := h.now()

	health := HealthStatus{
		Status:              "healthy",
		State:               st.State.String(),
		Timestamp:           now,
		LastRun:             st.LastRun,
		NextRun:             st.NextRun,
		ConsecutiveFailures: st.ConsecutiveFailures,
		CycleCount:          st.CycleCount,
		Uptime:              now.Sub(h.startTime).Truncate(time.Second).String(),
	}

	code := http.StatusOK
	switch {
	case st.State == orchestrator.StateHaltedOnFailure:
		health.Status = "unhealthy"
		code = http.StatusInternalServerError
	case st.State == orchestrator.StateStopped || st.State == orchestrator.StateIdle || st.ConsecutiveFailures > 0:
		health.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	return health, code
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	health, code := h.Check()
	writeJSON(w, code, health)
}

// StatusHandler serves the full orchestrator status as JSON
func StatusHandler(provider StatusProvider) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, provider.Status())
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
