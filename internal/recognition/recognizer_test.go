package recognition

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/database/mock"
	"github.com/kozaktomas/photo-library/internal/fingerprint"
	"github.com/kozaktomas/photo-library/internal/logging"
)

// fakeEmbedder returns fixed embeddings keyed by face id
type fakeEmbedder struct {
	embeddings map[int64][]float32
	errs       map[int64]error
	onEmbed    func(f *database.Face)
}

func (e *fakeEmbedder) EmbedFace(_ context.Context, f *database.Face) ([]float32, error) {
	if e.onEmbed != nil {
		e.onEmbed(f)
	}
	if err, ok := e.errs[f.ID]; ok {
		return nil, err
	}
	if emb, ok := e.embeddings[f.ID]; ok {
		return emb, nil
	}
	return nil, fmt.Errorf("face %d: %w", f.ID, fingerprint.ErrNoUniqueFace)
}

type fixture struct {
	ctx      context.Context
	store    *mock.MockStore
	embedder *fakeEmbedder
	fileID   int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := mock.NewMockStore()
	root, err := store.CreateRoot(ctx, "Root", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	file := &database.File{FileID: "2021-05-01_10-00-00_0001", FolderID: root.FolderID, Type: database.FileTypeImage, Format: "jpg"}
	if err := store.CreateFile(ctx, file); err != nil {
		t.Fatal(err)
	}
	return &fixture{
		ctx:      ctx,
		store:    store,
		embedder: &fakeEmbedder{embeddings: map[int64][]float32{}, errs: map[int64]error{}},
		fileID:   file.ID,
	}
}

func (fx *fixture) person(t *testing.T, name string) int64 {
	t.Helper()
	p, err := fx.store.CreatePerson(fx.ctx, name, 0)
	if err != nil {
		t.Fatal(err)
	}
	return p.ID
}

// face stores a face and registers its embedding; a nil embedding makes
// the embedder report no unique face
func (fx *fixture) face(t *testing.T, person int64, status database.FaceStatus, emb []float32) int64 {
	t.Helper()
	f := &database.Face{FileID: fx.fileID, PersonID: person, Status: status, Uncertainty: -1, RectW: 10, RectH: 10}
	if err := fx.store.CreateFace(fx.ctx, f); err != nil {
		t.Fatal(err)
	}
	if emb != nil {
		fx.embedder.embeddings[f.ID] = emb
	}
	return f.ID
}

func (fx *fixture) get(t *testing.T, id int64) *database.Face {
	t.Helper()
	f, err := fx.store.GetFace(fx.ctx, id)
	if err != nil || f == nil {
		t.Fatalf("GetFace(%d): %v", id, err)
	}
	return f
}

func (fx *fixture) recognizer(opts Options) *Recognizer {
	return NewRecognizer(fx.store, fx.embedder, opts, logging.Nop())
}

func TestRecognizeFaces_ThresholdIsInclusive(t *testing.T) {
	fx := newFixture(t)
	alice := fx.person(t, "Alice")
	fx.face(t, alice, database.FaceConfirmedUser, []float32{0, 0})

	atThreshold := fx.face(t, 0, database.FaceUnassigned, []float32{0.5, 0})
	beyond := fx.face(t, 0, database.FaceUnassigned, []float32{0.50001, 0})

	res, err := fx.recognizer(DefaultOptions()).RecognizeFaces(fx.ctx)
	if err != nil {
		t.Fatalf("RecognizeFaces: %v", err)
	}
	if res.Trained != 1 || res.Matched != 1 || res.Unknown != 1 {
		t.Errorf("unexpected result %+v", res)
	}

	f := fx.get(t, atThreshold)
	if f.PersonID != alice || f.Status != database.FacePredicted || f.Uncertainty != 0.5 {
		t.Errorf("face at threshold: person=%d status=%v uncertainty=%v", f.PersonID, f.Status, f.Uncertainty)
	}

	f = fx.get(t, beyond)
	if f.PersonID != 0 || f.Status != database.FaceUnassigned {
		t.Errorf("face beyond threshold: person=%d status=%v", f.PersonID, f.Status)
	}
	if f.Uncertainty <= 0.5 || f.Uncertainty > 0.5001 {
		t.Errorf("distance should be recorded, got %v", f.Uncertainty)
	}
}

func TestRecognizeFaces_GroundTruthProtected(t *testing.T) {
	fx := newFixture(t)
	alice := fx.person(t, "Alice")
	bob := fx.person(t, "Bob")

	// confirmed faces whose embeddings sit on the other person's samples
	root := fx.face(t, alice, database.FaceConfirmedRoot, []float32{0, 0})
	user := fx.face(t, bob, database.FaceConfirmedUser, []float32{0, 0.01})
	fx.face(t, alice, database.FaceConfirmedUser, []float32{1, 1})
	fx.face(t, bob, database.FaceConfirmedRoot, []float32{1, 1.01})
	ignored := fx.face(t, 0, database.FaceIgnored, []float32{0, 0})
	removed := fx.face(t, bob, database.FaceRemoved, []float32{0, 0})

	if _, err := fx.recognizer(DefaultOptions()).RecognizeFaces(fx.ctx); err != nil {
		t.Fatalf("RecognizeFaces: %v", err)
	}

	for _, tc := range []struct {
		id     int64
		person int64
		status database.FaceStatus
	}{
		{root, alice, database.FaceConfirmedRoot},
		{user, bob, database.FaceConfirmedUser},
		{ignored, 0, database.FaceIgnored},
		{removed, bob, database.FaceRemoved},
	} {
		f := fx.get(t, tc.id)
		if f.PersonID != tc.person || f.Status != tc.status || f.Uncertainty != -1 {
			t.Errorf("face %d changed: %+v", tc.id, f)
		}
		if n := fx.store.AssignmentCalls[tc.id]; n != 0 {
			t.Errorf("face %d received %d assignment writes", tc.id, n)
		}
	}
}

func TestRecognizeFaces_NoTrainingData(t *testing.T) {
	fx := newFixture(t)
	alice := fx.person(t, "Alice")
	// confirmed but the crop holds no unique face
	fx.face(t, alice, database.FaceConfirmedUser, nil)
	// confirmed as the Unknown Person, never a training sample
	fx.face(t, 0, database.FaceConfirmedUser, []float32{0, 0})
	target := fx.face(t, 0, database.FaceUnassigned, []float32{0, 0})

	res, err := fx.recognizer(DefaultOptions()).RecognizeFaces(fx.ctx)
	if !errors.Is(err, ErrNoTrainingData) {
		t.Fatalf("expected ErrNoTrainingData, got %v", err)
	}
	if res.Skipped != 1 || res.Trained != 0 {
		t.Errorf("unexpected result %+v", res)
	}
	if n := fx.store.AssignmentCalls[target]; n != 0 {
		t.Error("no face may be modified without training data")
	}
}

func TestRecognizeFaces_Inconclusive(t *testing.T) {
	fx := newFixture(t)
	alice := fx.person(t, "Alice")
	fx.face(t, alice, database.FaceConfirmedUser, []float32{0, 0})

	f := &database.Face{FileID: fx.fileID, PersonID: alice, Status: database.FacePredicted, Uncertainty: 0.2}
	if err := fx.store.CreateFace(fx.ctx, f); err != nil {
		t.Fatal(err)
	}

	res, err := fx.recognizer(DefaultOptions()).RecognizeFaces(fx.ctx)
	if err != nil {
		t.Fatalf("RecognizeFaces: %v", err)
	}
	if res.Inconclusive != 1 {
		t.Errorf("unexpected result %+v", res)
	}
	got := fx.get(t, f.ID)
	if got.PersonID != 0 || got.Status != database.FaceUnassigned {
		t.Errorf("inconclusive face should fall back to unknown/unassigned, got person=%d status=%v", got.PersonID, got.Status)
	}
}

func TestRecognizeFaces_PredictedBeyondThreshold(t *testing.T) {
	fx := newFixture(t)
	alice := fx.person(t, "Alice")
	fx.face(t, alice, database.FaceConfirmedUser, []float32{0, 0})

	f := &database.Face{FileID: fx.fileID, PersonID: alice, Status: database.FacePredicted, Uncertainty: 0.1}
	if err := fx.store.CreateFace(fx.ctx, f); err != nil {
		t.Fatal(err)
	}
	fx.embedder.embeddings[f.ID] = []float32{3, 4}

	if _, err := fx.recognizer(DefaultOptions()).RecognizeFaces(fx.ctx); err != nil {
		t.Fatalf("RecognizeFaces: %v", err)
	}
	got := fx.get(t, f.ID)
	if got.PersonID != 0 || got.Status != database.FaceUnassigned || got.Uncertainty != 5 {
		t.Errorf("unexpected face %+v", got)
	}
}

func TestRecognizeFaces_KeepsReviewMadeDuringPass(t *testing.T) {
	fx := newFixture(t)
	alice := fx.person(t, "Alice")
	bob := fx.person(t, "Bob")
	fx.face(t, alice, database.FaceConfirmedUser, []float32{0, 0})
	target := fx.face(t, 0, database.FaceUnassigned, []float32{0.1, 0})

	// a user confirms the face while it is being embedded
	fx.embedder.onEmbed = func(f *database.Face) {
		if f.ID != target {
			return
		}
		if err := fx.store.UpdateFaceAssignment(fx.ctx, target, bob, database.FaceConfirmedUser, -1); err != nil {
			t.Errorf("UpdateFaceAssignment: %v", err)
		}
	}

	res, err := fx.recognizer(DefaultOptions()).RecognizeFaces(fx.ctx)
	if err != nil {
		t.Fatalf("RecognizeFaces: %v", err)
	}
	if res.Reviewed != 1 || res.Matched != 0 {
		t.Errorf("unexpected result %+v", res)
	}
	got := fx.get(t, target)
	if got.PersonID != bob || got.Status != database.FaceConfirmedUser || got.Uncertainty != -1 {
		t.Errorf("review overwritten: person=%d status=%v uncertainty=%v", got.PersonID, got.Status, got.Uncertainty)
	}
}

func TestRecognizeFaces_EmbeddingErrorLeavesFace(t *testing.T) {
	fx := newFixture(t)
	alice := fx.person(t, "Alice")
	fx.face(t, alice, database.FaceConfirmedUser, []float32{0, 0})
	target := fx.face(t, 0, database.FaceUnassigned, nil)
	fx.embedder.errs[target] = errors.New("connection refused")

	res, err := fx.recognizer(DefaultOptions()).RecognizeFaces(fx.ctx)
	if err != nil {
		t.Fatalf("RecognizeFaces: %v", err)
	}
	if res.Failed != 1 {
		t.Errorf("unexpected result %+v", res)
	}
	if n := fx.store.AssignmentCalls[target]; n != 0 {
		t.Error("face must stay untouched when embedding errors")
	}
}

func TestRecognizeFaces_StoreErrors(t *testing.T) {
	fx := newFixture(t)
	alice := fx.person(t, "Alice")
	fx.face(t, alice, database.FaceConfirmedUser, []float32{0, 0})
	fx.face(t, 0, database.FaceUnassigned, []float32{0.1, 0})

	fx.store.UpdateFaceAssignmentError = errors.New("db down")
	if _, err := fx.recognizer(DefaultOptions()).RecognizeFaces(fx.ctx); err == nil {
		t.Error("expected update error")
	}

	fx.store.UpdateFaceAssignmentError = nil
	fx.store.ListFacesByStatusError = errors.New("db down")
	if _, err := fx.recognizer(DefaultOptions()).RecognizeFaces(fx.ctx); err == nil {
		t.Error("expected list error")
	}
}

func TestRecognizeFaces_ParallelWorkers(t *testing.T) {
	fx := newFixture(t)
	alice := fx.person(t, "Alice")
	bob := fx.person(t, "Bob")
	fx.face(t, alice, database.FaceConfirmedUser, []float32{0, 0})
	fx.face(t, bob, database.FaceConfirmedUser, []float32{10, 10})

	var targets []int64
	for i := range 20 {
		v := float32(i%2) * 10
		targets = append(targets, fx.face(t, 0, database.FaceUnassigned, []float32{v + 0.01, v}))
	}

	opts := DefaultOptions()
	opts.Workers = 4
	opts.Neighbors = 1
	res, err := fx.recognizer(opts).RecognizeFaces(fx.ctx)
	if err != nil {
		t.Fatalf("RecognizeFaces: %v", err)
	}
	if res.Matched != 20 {
		t.Errorf("expected 20 matches, got %+v", res)
	}
	for i, id := range targets {
		want := alice
		if i%2 == 1 {
			want = bob
		}
		f := fx.get(t, id)
		if f.PersonID != want || math.Abs(f.Uncertainty-0.01) > 1e-6 {
			t.Errorf("face %d: person=%d uncertainty=%v", id, f.PersonID, f.Uncertainty)
		}
	}
}
