package orchestrator

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Kind names a maintenance operation
type Kind string

// Operations the orchestrator can run
const (
	KindScan      Kind = "scan"
	KindPrune     Kind = "prune"
	KindDetect    Kind = "detect"
	KindRecognize Kind = "recognize"
	KindUpdate    Kind = "update"
)

// ParseKind validates an operation name
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindScan, KindPrune, KindDetect, KindRecognize, KindUpdate:
		return k, true
	}
	return "", false
}

// JobInfo is the serialisable state of a job
type JobInfo struct {
	ID          string     `json:"id"`
	Kind        Kind       `json:"kind"`
	RootID      int64      `json:"root_id,omitempty"` // 0 for recognition
	Status      JobStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	Result      any        `json:"result,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Job is one queued maintenance operation
type Job struct {
	info JobInfo
	mu   sync.RWMutex
	done chan struct{}
}

// ID returns the job identifier
func (j *Job) ID() string {
	return j.info.ID
}

// Snapshot returns a copy of the job state
func (j *Job) Snapshot() JobInfo {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.info
}

// GetStatus returns the current job status
func (j *Job) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.info.Status
}

// Done is closed when the job finishes
func (j *Job) Done() <-chan struct{} {
	return j.done
}

func (j *Job) start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now()
	j.info.Status = JobStatusRunning
	j.info.StartedAt = &now
}

func (j *Job) finish(result any, err error) {
	j.mu.Lock()
	now := time.Now()
	j.info.CompletedAt = &now
	j.info.Result = result
	if err != nil {
		j.info.Status = JobStatusFailed
		j.info.Error = err.Error()
	} else {
		j.info.Status = JobStatusCompleted
	}
	j.mu.Unlock()
	close(j.done)
}

// JobManager keeps track of submitted jobs
type JobManager struct {
	jobs map[string]*Job
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{jobs: make(map[string]*Job)}
}

// CreateJob registers a pending job
func (m *JobManager) CreateJob(kind Kind, rootID int64) *Job {
	job := &Job{
		info: JobInfo{
			ID:        uuid.New().String(),
			Kind:      kind,
			RootID:    rootID,
			Status:    JobStatusPending,
			CreatedAt: time.Now(),
		},
		done: make(chan struct{}),
	}

	m.mu.Lock()
	m.jobs[job.info.ID] = job
	m.mu.Unlock()

	return job
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// ListJobs returns all jobs, oldest first
func (m *JobManager) ListJobs() []*Job {
	m.mu.RLock()
	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	m.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		a, b := &jobs[i].info, &jobs[j].info
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return jobs
}

// Prune drops finished jobs completed before cutoff
func (m *JobManager) Prune(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, job := range m.jobs {
		snap := job.Snapshot()
		if snap.CompletedAt != nil && snap.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
			n++
		}
	}
	return n
}
