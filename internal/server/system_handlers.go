package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/quantcore/internal/modules/simulation"
	"github.com/aristath/quantcore/internal/scheduler"
	"github.com/aristath/quantcore/internal/services"
	"github.com/aristath/quantcore/pkg/logger"
)

// SystemHandlers handles system status and maintenance requests
type SystemHandlers struct {
	log       zerolog.Logger
	service   *services.AnalyticsService
	scheduler *scheduler.Scheduler
	purgeJob  *scheduler.CurveCachePurgeJob
	workers   int
	startedAt time.Time
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	service *services.AnalyticsService,
	sched *scheduler.Scheduler,
	purgeJob *scheduler.CurveCachePurgeJob,
	workers int,
	startedAt time.Time,
) *SystemHandlers {
	return &SystemHandlers{
		log:       logger.Component(log, "system_handlers"),
		service:   service,
		scheduler: sched,
		purgeJob:  purgeJob,
		workers:   workers,
		startedAt: startedAt,
	}
}

// SystemStatusResponse represents the system status
type SystemStatusResponse struct {
	Status            string  `json:"status"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
	Goroutines        int     `json:"goroutines"`
	CPUPercent        float64 `json:"cpu_percent"`
	MemoryPercent     float64 `json:"memory_percent"`
	SimulationWorkers int     `json:"simulation_workers"`
	CurveCacheEntries int     `json:"curve_cache_entries"`
	ScheduledJobs     int     `json:"scheduled_jobs"`
}

// HandleSystemStatus returns process and host status
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	workers := h.workers
	if workers <= 0 {
		workers = simulation.DefaultWorkers()
	}

	response := SystemStatusResponse{
		Status:            "healthy",
		UptimeSeconds:     time.Since(h.startedAt).Seconds(),
		Goroutines:        runtime.NumGoroutine(),
		CPUPercent:        cpuPercent,
		MemoryPercent:     memPercent,
		SimulationWorkers: workers,
		ScheduledJobs:     h.scheduler.Entries(),
	}
	if cache := h.service.CurveCache(); cache != nil {
		response.CurveCacheEntries = cache.Len()
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandlePurgeCurveCache empties the curve cache immediately
// POST /api/system/cache/purge
func (h *SystemHandlers) HandlePurgeCurveCache(w http.ResponseWriter, r *http.Request) {
	if h.purgeJob == nil {
		h.writeJSON(w, http.StatusOK, map[string]interface{}{"status": "disabled"})
		return
	}
	if err := h.scheduler.RunNow(h.purgeJob); err != nil {
		h.log.Error().Err(err).Msg("Failed to purge curve cache")
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"status": "purged"})
}

// getSystemStats calculates CPU and RAM usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	// 100ms sample keeps the endpoint responsive
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
