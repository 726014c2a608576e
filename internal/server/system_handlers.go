package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/pricepoint/internal/cache"
	"github.com/aristath/pricepoint/internal/database"
	"github.com/aristath/pricepoint/internal/scheduler"
)

// JobController lists and triggers scheduled jobs
type JobController interface {
	Jobs() []scheduler.JobInfo
	RunByName(name string) error
}

// JobHistory reads the outcome of past job runs
type JobHistory interface {
	List(ctx context.Context) ([]cache.JobRun, error)
}

// SystemHandlers handles system monitoring and job endpoints
type SystemHandlers struct {
	databases     []*database.DB
	jobs          JobController
	history       JobHistory
	startupTime   time.Time
	cpuPercent    func(interval time.Duration, perCPU bool) ([]float64, error)
	virtualMemory func() (*mem.VirtualMemoryStat, error)
	log           zerolog.Logger
}

// SystemStatusResponse is returned by GET /api/system/status
type SystemStatusResponse struct {
	Status        string                     `json:"status"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	CPUPercent    float64                    `json:"cpu_percent"`
	MemoryPercent float64                    `json:"memory_percent"`
	Goroutines    int                        `json:"goroutines"`
	Databases     map[string]*database.Stats `json:"databases"`
}

// JobStatus merges a registered job with its last run
type JobStatus struct {
	scheduler.JobInfo
	LastRun *cache.JobRun `json:"last_run,omitempty"`
}

// JobsStatusResponse is returned by GET /api/system/jobs
type JobsStatusResponse struct {
	Jobs []JobStatus `json:"jobs"`
}

// NewSystemHandlers creates new system handlers
func NewSystemHandlers(databases []*database.DB, jobs JobController, history JobHistory, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		databases:     databases,
		jobs:          jobs,
		history:       history,
		startupTime:   time.Now(),
		cpuPercent:    cpu.Percent,
		virtualMemory: mem.VirtualMemory,
		log:           log.With().Str("handler", "system").Logger(),
	}
}

// HandleSystemStatus returns process, host and database status.
// Partial failures degrade the status instead of failing the request.
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
		Databases:     make(map[string]*database.Stats, len(h.databases)),
	}

	response.CPUPercent, response.MemoryPercent = h.getSystemStats()

	for _, db := range h.databases {
		stats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			response.Status = "degraded"
			continue
		}
		response.Databases[db.Name()] = stats
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleJobsStatus lists registered jobs with their last run
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	runs, err := h.history.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list job history")
		http.Error(w, "Failed to list job history", http.StatusInternalServerError)
		return
	}

	lastRuns := make(map[string]cache.JobRun, len(runs))
	for _, run := range runs {
		lastRuns[run.JobName] = run
	}

	infos := h.jobs.Jobs()
	response := JobsStatusResponse{Jobs: make([]JobStatus, 0, len(infos))}
	for _, info := range infos {
		status := JobStatus{JobInfo: info}
		if run, ok := lastRuns[info.Name]; ok {
			status.LastRun = &run
		}
		response.Jobs = append(response.Jobs, status)
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleTriggerJob starts a registered job in the background.
// POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var found *scheduler.JobInfo
	for _, info := range h.jobs.Jobs() {
		if info.Name == name {
			found = &info
			break
		}
	}
	if found == nil {
		http.Error(w, "Unknown job", http.StatusNotFound)
		return
	}
	if found.Running {
		http.Error(w, "Job already running", http.StatusConflict)
		return
	}

	go func() {
		err := h.jobs.RunByName(name)
		if errors.Is(err, scheduler.ErrJobRunning) || errors.Is(err, scheduler.ErrStopped) {
			h.log.Warn().Err(err).Str("job", name).Msg("Triggered job did not start")
			return
		}
		if err != nil {
			h.log.Error().Err(err).Str("job", name).Msg("Triggered job failed")
		}
	}()

	h.log.Info().Str("job", name).Msg("Job triggered")
	h.writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "triggered",
		"job":    name,
	})
}

// getSystemStats returns CPU and RAM usage percentages.
// A short CPU sampling interval keeps the endpoint responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := h.cpuPercent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = nil
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	memStat, err := h.virtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuAvg, 0
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
