package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/lottolab/internal/database"
)

// DatabaseStatus is the health of one database
type DatabaseStatus struct {
	Stats   *database.Stats `json:"stats,omitempty"`
	Name    string          `json:"name"`
	Error   string          `json:"error,omitempty"`
	Healthy bool            `json:"healthy"`
}

// handleHealth handles health check requests. It answers 503 when a database fails its check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	databases := s.checkDatabases(r)

	status := http.StatusOK
	state := "healthy"
	for _, db := range databases {
		if !db.Healthy {
			status = http.StatusServiceUnavailable
			state = "degraded"
		}
	}

	s.writeJSON(w, status, map[string]interface{}{
		"status":    state,
		"service":   "lottolab",
		"databases": databases,
	})
}

// handleSystemStatus handles GET /api/system/status
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := s.getSystemStats()

	lotteries := s.engine.Lotteries()
	ids := make([]string, len(lotteries))
	for i, l := range lotteries {
		ids[i] = l.ID
	}

	s.writeData(w, http.StatusOK, map[string]interface{}{
		"uptime_hours":      time.Since(s.startedAt).Hours(),
		"cpu_percent":       cpuPercent,
		"ram_percent":       ramPercent,
		"goroutines":        runtime.NumGoroutine(),
		"lotteries":         ids,
		"archiving_enabled": s.engine.ArchivingEnabled(),
		"databases":         s.checkDatabases(r),
	})
}

func (s *Server) checkDatabases(r *http.Request) []DatabaseStatus {
	statuses := make([]DatabaseStatus, 0, len(s.databases))
	for _, db := range s.databases {
		st := DatabaseStatus{Name: db.Name(), Healthy: true}
		if err := db.HealthCheck(r.Context()); err != nil {
			st.Healthy = false
			st.Error = err.Error()
		} else if stats, err := db.GetStats(r.Context()); err == nil {
			st.Stats = stats
		}
		statuses = append(statuses, st)
	}
	return statuses
}

// getSystemStats calculates CPU and RAM usage percentages
func (s *Server) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(cpuPercent) == 0 {
		s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuPercent[0], 0
	}

	return cpuPercent[0], memStat.UsedPercent
}
