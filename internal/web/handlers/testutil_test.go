package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/database/mock"
	"github.com/kozaktomas/photo-library/internal/orchestrator"
)

// requestWithChiParams adds chi URL parameters to a request
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeBody unmarshals a recorded JSON response
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

// fixture is a mock store seeded with one root and one file
type fixture struct {
	store *mock.MockStore
	root  *database.Root
	file  int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := mock.NewMockStore()
	root, err := store.CreateRoot(ctx, "Photos", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	file := &database.File{FileID: "2021-05-01_10-00-00_0001", FolderID: root.FolderID, Type: database.FileTypeImage, Format: "jpg"}
	if err := store.CreateFile(ctx, file); err != nil {
		t.Fatal(err)
	}
	return &fixture{store: store, root: root, file: file.ID}
}

func (l *fixture) face(t *testing.T, person int64, status database.FaceStatus) int64 {
	t.Helper()
	f := &database.Face{FileID: l.file, PersonID: person, Status: status, RectW: 100, RectH: 100, Uncertainty: -1}
	if err := l.store.CreateFace(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	return f.ID
}

func (l *fixture) person(t *testing.T, name string) int64 {
	t.Helper()
	p, err := l.store.CreatePerson(context.Background(), name, 0)
	if err != nil {
		t.Fatal(err)
	}
	return p.ID
}

// fakeRunner records submissions and creates pending jobs
type fakeRunner struct {
	mu        sync.Mutex
	jobs      *orchestrator.JobManager
	err       error
	submitted []orchestrator.Kind
	roots     []int64
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{jobs: orchestrator.NewJobManager()}
}

func (f *fakeRunner) Submit(ctx context.Context, kind orchestrator.Kind, rootID int64) (*orchestrator.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.submitted = append(f.submitted, kind)
	f.roots = append(f.roots, rootID)
	return f.jobs.CreateJob(kind, rootID), nil
}

func (f *fakeRunner) Jobs() *orchestrator.JobManager {
	return f.jobs
}
