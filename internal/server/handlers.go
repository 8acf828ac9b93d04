package server

import (
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/folioplan/internal/server/respond"
)

var startupTime = time.Now()

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "folioplan",
		"version": "1.0.0",
	})
}

// SystemStatusResponse represents the system status response
type SystemStatusResponse struct {
	Status      string  `json:"status"` // "healthy" or "degraded"
	Database    string  `json:"database"`
	UptimeHours float64 `json:"uptime_hours"`
	CPUPercent  float64 `json:"cpu_percent"`
	RAMPercent  float64 `json:"ram_percent"`
}

// handleSystemStatus handles GET /api/system/status
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	resp := SystemStatusResponse{
		Status:      "healthy",
		Database:    "ok",
		UptimeHours: time.Since(startupTime).Hours(),
	}

	if err := s.db.Conn().Ping(); err != nil {
		s.log.Error().Err(err).Msg("Database ping failed")
		resp.Status = "degraded"
		resp.Database = "unreachable"
	}

	resp.CPUPercent, resp.RAMPercent = s.systemStats()

	respond.JSON(w, http.StatusOK, resp)
}

// systemStats samples CPU and RAM usage. The 100ms CPU window keeps the
// endpoint responsive at the cost of a noisier reading.
func (s *Server) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}
