// Package orchestrator sequences library maintenance per root: scan,
// prune, update props, detect faces and recognize. Roots run concurrently
// on a bounded pool while the phases of one root stay strictly ordered.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/kozaktomas/photo-library/internal/constants"
	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/library"
	"github.com/kozaktomas/photo-library/internal/logging"
	"github.com/kozaktomas/photo-library/internal/recognition"
)

var (
	// ErrClosed is returned when submitting to a closed orchestrator
	ErrClosed = errors.New("orchestrator is closed")
	// ErrQueueFull is returned when a root already has too many pending jobs
	ErrQueueFull = errors.New("job queue is full")
)

// globalLane queues recognition, which is not tied to a root
const globalLane int64 = 0

// Synchronizer reconciles a folder tree with the filesystem
type Synchronizer interface {
	Scan(ctx context.Context, node library.FolderLike) error
	Prune(ctx context.Context, node library.FolderLike) error
	UpdateProps(ctx context.Context, node library.FolderLike) (library.Props, error)
}

// FaceDetector finds faces in the unscanned images of a folder tree
type FaceDetector interface {
	DetectFolder(ctx context.Context, node library.FolderLike) (int, error)
}

// FaceRecognizer runs the global recognition pass
type FaceRecognizer interface {
	RecognizeFaces(ctx context.Context) (recognition.Result, error)
}

// UpdateResult summarises a full root update
type UpdateResult struct {
	RootID         int64               `json:"root_id"`
	Props          library.Props       `json:"props"`
	Faces          int                 `json:"faces"`
	Recognition    *recognition.Result `json:"recognition,omitempty"`
	NoTrainingData bool                `json:"no_training_data,omitempty"`
}

// Orchestrator runs maintenance jobs
type Orchestrator struct {
	store      database.Store
	sync       Synchronizer
	detector   FaceDetector
	recognizer FaceRecognizer
	logger     logging.Logger
	jobs       *JobManager

	sem       chan struct{}
	recognize singleflight.Group

	mu     sync.Mutex
	queues map[int64]chan *task
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
}

type task struct {
	job *Job
	run func(ctx context.Context) (any, error)
}

// New creates an orchestrator running at most workers jobs at once
func New(store database.Store, syncer Synchronizer, detector FaceDetector, recognizer FaceRecognizer, workers int, logger logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.Nop()
	}
	if workers <= 0 {
		workers = 1
	}
	return &Orchestrator{
		store:      store,
		sync:       syncer,
		detector:   detector,
		recognizer: recognizer,
		logger:     logger,
		jobs:       NewJobManager(),
		sem:        make(chan struct{}, workers),
		queues:     make(map[int64]chan *task),
		ctx:        context.Background(),
	}
}

// Jobs returns the job registry
func (o *Orchestrator) Jobs() *JobManager {
	return o.jobs
}

// Scan walks the root directory and records new folders and files
func (o *Orchestrator) Scan(ctx context.Context, rootID int64) error {
	node, err := library.OpenRoot(ctx, o.store, rootID)
	if err != nil {
		return err
	}
	return o.sync.Scan(ctx, node)
}

// Prune deletes records whose file or directory is gone
func (o *Orchestrator) Prune(ctx context.Context, rootID int64) error {
	node, err := library.OpenRoot(ctx, o.store, rootID)
	if err != nil {
		return err
	}
	return o.sync.Prune(ctx, node)
}

// Detect runs face detection over the unscanned images of the root
func (o *Orchestrator) Detect(ctx context.Context, rootID int64) (int, error) {
	node, err := library.OpenRoot(ctx, o.store, rootID)
	if err != nil {
		return 0, err
	}
	return o.detector.DetectFolder(ctx, node)
}

// Recognize runs the global recognition pass. Concurrent callers share a
// single run and its result.
func (o *Orchestrator) Recognize(ctx context.Context) (recognition.Result, error) {
	v, err, shared := o.recognize.Do("recognize", func() (any, error) {
		return o.recognizer.RecognizeFaces(ctx)
	})
	if shared {
		o.logger.Debug("joined running recognition pass")
	}
	res, _ := v.(recognition.Result)
	return res, err
}

// Update runs scan, prune, update props, detect and recognize in order.
// A missing training set does not fail the update.
func (o *Orchestrator) Update(ctx context.Context, rootID int64) (*UpdateResult, error) {
	node, err := library.OpenRoot(ctx, o.store, rootID)
	if err != nil {
		return nil, err
	}
	res := &UpdateResult{RootID: rootID}
	log := func(phase string) { o.logger.Info("root update phase", "root_id", rootID, "phase", phase) }

	log("scan")
	if err := o.sync.Scan(ctx, node); err != nil {
		return res, fmt.Errorf("scan: %w", err)
	}
	log("prune")
	if err := o.sync.Prune(ctx, node); err != nil {
		return res, fmt.Errorf("prune: %w", err)
	}
	log("props")
	if res.Props, err = o.sync.UpdateProps(ctx, node); err != nil {
		return res, fmt.Errorf("update props: %w", err)
	}
	log("detect")
	if res.Faces, err = o.detector.DetectFolder(ctx, node); err != nil {
		return res, fmt.Errorf("detect: %w", err)
	}
	log("recognize")
	rec, err := o.Recognize(ctx)
	switch {
	case errors.Is(err, recognition.ErrNoTrainingData):
		res.NoTrainingData = true
	case err != nil:
		return res, fmt.Errorf("recognize: %w", err)
	default:
		res.Recognition = &rec
	}
	return res, nil
}

// Submit queues an operation and returns immediately. Jobs for the same
// root run one after another in submission order.
func (o *Orchestrator) Submit(ctx context.Context, kind Kind, rootID int64) (*Job, error) {
	lane := rootID
	var run func(ctx context.Context) (any, error)

	switch kind {
	case KindRecognize:
		lane, rootID = globalLane, 0
		run = func(ctx context.Context) (any, error) {
			res, err := o.Recognize(ctx)
			if errors.Is(err, recognition.ErrNoTrainingData) {
				return map[string]any{"no_training_data": true}, nil
			}
			return res, err
		}
	case KindScan:
		run = func(ctx context.Context) (any, error) { return nil, o.Scan(ctx, rootID) }
	case KindPrune:
		run = func(ctx context.Context) (any, error) { return nil, o.Prune(ctx, rootID) }
	case KindDetect:
		run = func(ctx context.Context) (any, error) {
			n, err := o.Detect(ctx, rootID)
			return map[string]int{"faces": n}, err
		}
	case KindUpdate:
		run = func(ctx context.Context) (any, error) { return o.Update(ctx, rootID) }
	default:
		return nil, fmt.Errorf("unknown job kind %q", kind)
	}

	if kind != KindRecognize {
		root, err := o.store.GetRoot(ctx, rootID)
		if err != nil {
			return nil, fmt.Errorf("failed to get root: %w", err)
		}
		if root == nil {
			return nil, fmt.Errorf("root %d: %w", rootID, database.ErrNotFound)
		}
	}

	job := o.jobs.CreateJob(kind, rootID)
	if err := o.enqueue(lane, &task{job: job, run: run}); err != nil {
		job.finish(nil, err)
		return nil, err
	}
	o.logger.Info("queued job", "job_id", job.ID(), "kind", kind, "root_id", rootID)
	return job, nil
}

func (o *Orchestrator) enqueue(lane int64, t *task) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	q, ok := o.queues[lane]
	if !ok {
		q = make(chan *task, constants.RootQueueSize)
		o.queues[lane] = q
		o.wg.Add(1)
		go o.worker(q)
	}
	select {
	case q <- t:
		return nil
	default:
		return ErrQueueFull
	}
}

func (o *Orchestrator) worker(q chan *task) {
	defer o.wg.Done()
	for t := range q {
		o.execute(t)
	}
}

// execute runs a task in a pool slot. Failures and panics end the job
// without affecting other lanes.
func (o *Orchestrator) execute(t *task) {
	o.sem <- struct{}{}
	defer func() { <-o.sem }()

	t.job.start()
	info := t.job.Snapshot()
	result, err := o.safeRun(t, info)
	if err != nil {
		o.logger.Error("job failed", "job_id", info.ID, "kind", info.Kind, "root_id", info.RootID, "error", err)
	} else {
		o.logger.Info("job completed", "job_id", info.ID, "kind", info.Kind, "root_id", info.RootID)
	}
	t.job.finish(result, err)
}

func (o *Orchestrator) safeRun(t *task, info JobInfo) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("job panicked",
				"job_id", info.ID, "kind", info.Kind, "root_id", info.RootID,
				"panic", r, "stack", string(debug.Stack()))
			result, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return t.run(o.ctx)
}

// UpdateAll queues an update for every root and waits for all of them.
// It returns the failures keyed by root id; one root failing does not
// stop the others. progress, if not nil, is called as each job ends.
func (o *Orchestrator) UpdateAll(ctx context.Context, progress func(JobInfo)) (map[int64]error, error) {
	roots, err := o.store.ListRoots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roots: %w", err)
	}

	failures := make(map[int64]error)
	jobs := make([]*Job, 0, len(roots))
	for _, r := range roots {
		job, err := o.Submit(ctx, KindUpdate, r.ID)
		if err != nil {
			failures[r.ID] = err
			continue
		}
		jobs = append(jobs, job)
	}
	for _, job := range jobs {
		select {
		case <-job.Done():
		case <-ctx.Done():
			return failures, ctx.Err()
		}
		info := job.Snapshot()
		if info.Status == JobStatusFailed {
			failures[info.RootID] = errors.New(info.Error)
		}
		if progress != nil {
			progress(info)
		}
	}
	return failures, nil
}

// Close stops accepting jobs and waits for queued ones to finish
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		for _, q := range o.queues {
			close(q)
		}
	}
	o.mu.Unlock()
	o.wg.Wait()
}
