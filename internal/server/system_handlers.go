package server

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/aristath/bourse/internal/database"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers serves host and database status
type SystemHandlers struct {
	log          zerolog.Logger
	startupTime  time.Time
	databases    []*database.DB
	cacheBackend string
	jobs         func() []string
	hostStats    func() (float64, float64)
}

// NewSystemHandlers creates system handlers. jobs lists the registered
// scheduler jobs.
func NewSystemHandlers(log zerolog.Logger, databases []*database.DB, cacheBackend string, jobs func() []string) *SystemHandlers {
	h := &SystemHandlers{
		log:          log.With().Str("handler", "system").Logger(),
		startupTime:  time.Now(),
		databases:    databases,
		cacheBackend: cacheBackend,
		jobs:         jobs,
	}
	h.hostStats = h.getSystemStats
	return h
}

// DatabaseStatus is the per-database part of the status response
type DatabaseStatus struct {
	Healthy bool            `json:"healthy"`
	Error   string          `json:"error,omitempty"`
	Stats   *database.Stats `json:"stats,omitempty"`
}

// SystemStatusResponse represents system status
type SystemStatusResponse struct {
	Status         string                    `json:"status"`
	UptimeSeconds  int64                     `json:"uptime_seconds"`
	CPUPercent     float64                   `json:"cpu_percent"`
	RAMPercent     float64                   `json:"ram_percent"`
	Goroutines     int                       `json:"goroutines"`
	OrderBookCache string                    `json:"orderbook_cache"`
	Jobs           []string                  `json:"jobs"`
	Databases      map[string]DatabaseStatus `json:"databases"`
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, ramPercent := h.hostStats()

	response := SystemStatusResponse{
		Status:         "healthy",
		UptimeSeconds:  int64(time.Since(h.startupTime).Seconds()),
		CPUPercent:     cpuPercent,
		RAMPercent:     ramPercent,
		Goroutines:     runtime.NumGoroutine(),
		OrderBookCache: h.cacheBackend,
		Jobs:           h.jobs(),
		Databases:      make(map[string]DatabaseStatus, len(h.databases)),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for _, db := range h.databases {
		status := DatabaseStatus{Healthy: true}

		if err := db.HealthCheck(ctx); err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Database health check failed")
			status.Healthy = false
			status.Error = err.Error()
			response.Status = "degraded"
		}

		if stats, err := db.GetStats(); err == nil {
			status.Stats = stats
		} else {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
		}

		response.Databases[db.Name()] = status
	}

	writeJSON(w, http.StatusOK, response, h.log)
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
