package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/database/mock"
	"github.com/kozaktomas/photo-library/internal/library"
	"github.com/kozaktomas/photo-library/internal/logging"
	"github.com/kozaktomas/photo-library/internal/metadata"
	"github.com/kozaktomas/photo-library/internal/recognition"
)

// recorder logs phase events across fakes
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

type fakeSync struct {
	rec      *recorder
	scanErr  map[string]error
	hold     time.Duration
	inFlight map[string]*atomic.Int32
	overlap  atomic.Bool
}

func (s *fakeSync) phase(node library.FolderLike, name string) error {
	root := node.Folder().Name
	if c := s.inFlight[root]; c != nil {
		if c.Add(1) > 1 {
			s.overlap.Store(true)
		}
		defer c.Add(-1)
	}
	s.rec.add(root + ":" + name)
	time.Sleep(s.hold)
	if name == "scan" {
		return s.scanErr[root]
	}
	return nil
}

func (s *fakeSync) Scan(_ context.Context, node library.FolderLike) error {
	return s.phase(node, "scan")
}

func (s *fakeSync) Prune(_ context.Context, node library.FolderLike) error {
	return s.phase(node, "prune")
}

func (s *fakeSync) UpdateProps(_ context.Context, node library.FolderLike) (library.Props, error) {
	return library.Props{FileCount: 2, Length: 10}, s.phase(node, "props")
}

type fakeDetector struct {
	rec   *recorder
	panic map[string]bool
}

func (d *fakeDetector) DetectFolder(_ context.Context, node library.FolderLike) (int, error) {
	root := node.Folder().Name
	if d.panic[root] {
		panic("cascade crashed")
	}
	d.rec.add(root + ":detect")
	return 3, nil
}

type fakeRecognizer struct {
	rec     *recorder
	calls   atomic.Int32
	err     error
	started chan struct{}
	release chan struct{}
}

func (r *fakeRecognizer) RecognizeFaces(context.Context) (recognition.Result, error) {
	r.calls.Add(1)
	if r.rec != nil {
		r.rec.add("recognize")
	}
	if r.started != nil {
		r.started <- struct{}{}
		<-r.release
	}
	return recognition.Result{Matched: 1}, r.err
}

type fixture struct {
	ctx   context.Context
	store *mock.MockStore
	rec   *recorder
	sync  *fakeSync
	det   *fakeDetector
	recog *fakeRecognizer
	orch  *Orchestrator
}

func newFixture(t *testing.T, workers int) *fixture {
	t.Helper()
	rec := &recorder{}
	fx := &fixture{
		ctx:   context.Background(),
		store: mock.NewMockStore(),
		rec:   rec,
		sync:  &fakeSync{rec: rec, scanErr: map[string]error{}, inFlight: map[string]*atomic.Int32{}},
		det:   &fakeDetector{rec: rec, panic: map[string]bool{}},
		recog: &fakeRecognizer{rec: rec},
	}
	fx.orch = New(fx.store, fx.sync, fx.det, fx.recog, workers, logging.Nop())
	t.Cleanup(fx.orch.Close)
	return fx
}

func (fx *fixture) root(t *testing.T, name string) int64 {
	t.Helper()
	r, err := fx.store.CreateRoot(fx.ctx, name, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return r.ID
}

func wait(t *testing.T, job *Job) JobInfo {
	t.Helper()
	select {
	case <-job.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("job %s did not finish", job.ID())
	}
	return job.Snapshot()
}

func TestUpdate_PhaseOrder(t *testing.T) {
	fx := newFixture(t, 2)
	id := fx.root(t, "A")

	res, err := fx.orch.Update(fx.ctx, id)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	want := []string{"A:scan", "A:prune", "A:props", "A:detect", "recognize"}
	if got := fx.rec.list(); !slices.Equal(got, want) {
		t.Errorf("phases = %v, want %v", got, want)
	}
	if res.Faces != 3 || res.Props.FileCount != 2 || res.Recognition == nil || res.Recognition.Matched != 1 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestUpdate_NoTrainingDataIsNotAFailure(t *testing.T) {
	fx := newFixture(t, 1)
	id := fx.root(t, "A")
	fx.recog.err = recognition.ErrNoTrainingData

	res, err := fx.orch.Update(fx.ctx, id)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !res.NoTrainingData || res.Recognition != nil {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestUpdate_StopsAtFailedPhase(t *testing.T) {
	fx := newFixture(t, 1)
	id := fx.root(t, "A")
	fx.sync.scanErr["A"] = errors.New("permission denied")

	if _, err := fx.orch.Update(fx.ctx, id); err == nil {
		t.Fatal("expected error")
	}
	if got := fx.rec.list(); !slices.Equal(got, []string{"A:scan"}) {
		t.Errorf("later phases must not run, got %v", got)
	}
	if _, err := fx.orch.Update(fx.ctx, 999); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateAll_IsolatesRootFailures(t *testing.T) {
	fx := newFixture(t, 3)
	failing := fx.root(t, "fail")
	panicking := fx.root(t, "panic")
	healthy := fx.root(t, "ok")
	fx.sync.scanErr["fail"] = errors.New("disk error")
	fx.det.panic["panic"] = true

	reported := 0
	failures, err := fx.orch.UpdateAll(fx.ctx, func(JobInfo) { reported++ })
	if err != nil {
		t.Fatalf("UpdateAll: %v", err)
	}
	if reported != 3 {
		t.Errorf("expected progress for 3 roots, got %d", reported)
	}
	if len(failures) != 2 || failures[failing] == nil || failures[panicking] == nil {
		t.Errorf("unexpected failures %v", failures)
	}
	if _, ok := failures[healthy]; ok {
		t.Error("healthy root must succeed")
	}
	if !slices.Contains(fx.rec.list(), "ok:detect") {
		t.Error("healthy root should reach detection")
	}
	if fx.recog.calls.Load() == 0 {
		t.Error("healthy root should reach recognition")
	}

	var panicked JobInfo
	for _, job := range fx.orch.Jobs().ListJobs() {
		if info := job.Snapshot(); info.RootID == panicking {
			panicked = info
		}
	}
	if panicked.Status != JobStatusFailed || panicked.Error != "panic: cascade crashed" {
		t.Errorf("unexpected panicked job %+v", panicked)
	}
}

func TestSubmit_SequentialPerRoot(t *testing.T) {
	fx := newFixture(t, 4)
	a := fx.root(t, "A")
	b := fx.root(t, "B")
	fx.sync.hold = 5 * time.Millisecond
	fx.sync.inFlight["A"] = &atomic.Int32{}
	fx.sync.inFlight["B"] = &atomic.Int32{}

	var jobs []*Job
	for range 3 {
		for _, id := range []int64{a, b} {
			for _, kind := range []Kind{KindScan, KindPrune} {
				job, err := fx.orch.Submit(fx.ctx, kind, id)
				if err != nil {
					t.Fatalf("Submit: %v", err)
				}
				jobs = append(jobs, job)
			}
		}
	}
	for _, job := range jobs {
		if info := wait(t, job); info.Status != JobStatusCompleted {
			t.Errorf("job %s: %+v", info.ID, info)
		}
	}

	if fx.sync.overlap.Load() {
		t.Error("phases of one root overlapped")
	}
	var seqA []string
	for _, e := range fx.rec.list() {
		if e[0] == 'A' {
			seqA = append(seqA, e)
		}
	}
	want := []string{"A:scan", "A:prune", "A:scan", "A:prune", "A:scan", "A:prune"}
	if !slices.Equal(seqA, want) {
		t.Errorf("root A ran %v, want submission order", seqA)
	}
}

func TestSubmit_Validation(t *testing.T) {
	fx := newFixture(t, 1)
	id := fx.root(t, "A")

	if _, err := fx.orch.Submit(fx.ctx, KindScan, 999); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := fx.orch.Submit(fx.ctx, Kind("reindex"), id); err == nil {
		t.Error("expected error for unknown kind")
	}

	job, err := fx.orch.Submit(fx.ctx, KindDetect, id)
	if err != nil {
		t.Fatal(err)
	}
	info := wait(t, job)
	if info.Status != JobStatusCompleted || fmt.Sprint(info.Result) != "map[faces:3]" {
		t.Errorf("unexpected job %+v", info)
	}
	if got := fx.orch.Jobs().GetJob(job.ID()); got != job {
		t.Error("job should be registered")
	}

	fx.orch.Close()
	if _, err := fx.orch.Submit(fx.ctx, KindScan, id); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestRecognize_SingleFlight(t *testing.T) {
	fx := newFixture(t, 4)
	fx.recog.started = make(chan struct{}, 4)
	fx.recog.release = make(chan struct{})

	var wg sync.WaitGroup
	results := make([]recognition.Result, 3)
	run := func(i int) {
		defer wg.Done()
		results[i], _ = fx.orch.Recognize(fx.ctx)
	}

	wg.Add(1)
	go run(0)
	<-fx.recog.started

	wg.Add(2)
	go run(1)
	go run(2)
	// give the followers time to join the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(fx.recog.release)
	wg.Wait()

	if n := fx.recog.calls.Load(); n != 1 {
		t.Errorf("recognizer ran %d times, want 1", n)
	}
	for i, r := range results {
		if r.Matched != 1 {
			t.Errorf("caller %d got %+v", i, r)
		}
	}
}

func TestSubmit_RecognizeNoTrainingData(t *testing.T) {
	fx := newFixture(t, 1)
	fx.recog.err = recognition.ErrNoTrainingData

	job, err := fx.orch.Submit(fx.ctx, KindRecognize, 42)
	if err != nil {
		t.Fatal(err)
	}
	info := wait(t, job)
	if info.Status != JobStatusCompleted || info.RootID != 0 {
		t.Errorf("unexpected job %+v", info)
	}
}

func TestUpdate_WithSynchronizer(t *testing.T) {
	ctx := context.Background()
	store := mock.NewMockStore()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "trip"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "trip", "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	r, _ := store.CreateRoot(ctx, "Photos", dir)

	syncer := library.NewSynchronizer(store, metadata.NewExtractor(logging.Nop()), logging.Nop())
	orch := New(store, syncer, &fakeDetector{rec: &recorder{}}, &fakeRecognizer{err: recognition.ErrNoTrainingData}, 2, logging.Nop())
	defer orch.Close()

	res, err := orch.Update(ctx, r.ID)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if res.Props.FileCount != 1 || res.Props.Length != 5 {
		t.Errorf("unexpected props %+v", res.Props)
	}
	entries, _ := os.ReadDir(filepath.Join(dir, "trip"))
	if len(entries) != 1 || entries[0].Name() == "notes.txt" {
		t.Errorf("file should be renamed to its identifier, got %v", entries)
	}
}
