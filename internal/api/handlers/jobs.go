package handlers

import (
	"net/http"

	"github.com/wonny/aegis-rs/internal/scheduler"
)

// JobStatsProvider reports scheduled job statistics
type JobStatsProvider interface {
	GetJobStats() map[string]scheduler.JobStats
}

// JobsHandler exposes scheduler state
type JobsHandler struct {
	stats JobStatsProvider
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(stats JobStatsProvider) *JobsHandler {
	return &JobsHandler{stats: stats}
}

// GetJobs returns per-job run statistics
// GET /api/jobs
func (h *JobsHandler) GetJobs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.stats.GetJobStats())
}
