package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-library/internal/orchestrator"
)

// JobRunner queues maintenance operations
type JobRunner interface {
	Submit(ctx context.Context, kind orchestrator.Kind, rootID int64) (*orchestrator.Job, error)
	Jobs() *orchestrator.JobManager
}

// JobsHandler starts jobs and reports their state
type JobsHandler struct {
	runner JobRunner
}

// NewJobsHandler creates a jobs handler
func NewJobsHandler(runner JobRunner) *JobsHandler {
	return &JobsHandler{runner: runner}
}

// StartRoot queues scan, prune, detect or update for a root and returns
// the job without waiting for it
func (h *JobsHandler) StartRoot(w http.ResponseWriter, r *http.Request) {
	rootID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	kind, ok := orchestrator.ParseKind(chi.URLParam(r, "op"))
	if !ok || kind == orchestrator.KindRecognize {
		respondError(w, http.StatusNotFound, "unknown operation")
		return
	}
	h.submit(w, r, kind, rootID)
}

// Recognize queues the global recognition pass
func (h *JobsHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, orchestrator.KindRecognize, 0)
}

func (h *JobsHandler) submit(w http.ResponseWriter, r *http.Request, kind orchestrator.Kind, rootID int64) {
	job, err := h.runner.Submit(r.Context(), kind, rootID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, job.Snapshot())
}

// List returns all known jobs
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs := h.runner.Jobs().ListJobs()
	out := make([]orchestrator.JobInfo, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, job.Snapshot())
	}
	respondJSON(w, http.StatusOK, out)
}

// Get returns one job
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	job := h.runner.Jobs().GetJob(chi.URLParam(r, "jobId"))
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, job.Snapshot())
}
