package albums

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/database/mock"
	"github.com/kozaktomas/photo-library/internal/logging"
)

type fixture struct {
	ctx   context.Context
	store *mock.MockStore
	svc   *Service
	files []int64
}

func newFixture(t *testing.T, files int) *fixture {
	t.Helper()
	ctx := context.Background()
	store := mock.NewMockStore()
	root, err := store.CreateRoot(ctx, "Root", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	fx := &fixture{ctx: ctx, store: store, svc: NewService(store, logging.Nop())}
	for i := range files {
		f := &database.File{
			FileID:   "2021-05-01_10-00-00_000" + string(rune('1'+i)),
			FolderID: root.FolderID,
			Type:     database.FileTypeImage,
			Format:   "jpg",
		}
		if err := store.CreateFile(ctx, f); err != nil {
			t.Fatal(err)
		}
		fx.files = append(fx.files, f.ID)
	}
	return fx
}

func (fx *fixture) album(t *testing.T, name string, parent int64) int64 {
	t.Helper()
	a, err := fx.svc.Create(fx.ctx, name, parent)
	if err != nil {
		t.Fatalf("Create(%q): %v", name, err)
	}
	return a.ID
}

func (fx *fixture) members(t *testing.T, album int64) []int64 {
	t.Helper()
	ids, err := fx.store.ListAlbumFileIDs(fx.ctx, album)
	if err != nil {
		t.Fatal(err)
	}
	return ids
}

func TestPath(t *testing.T) {
	fx := newFixture(t, 0)
	trips := fx.album(t, "Trips", 0)
	alps := fx.album(t, "Alps", trips)
	day := fx.album(t, "Day 1", alps)

	tests := map[int64]string{trips: "Trips/", alps: "Trips/Alps/", day: "Trips/Alps/Day 1/"}
	for id, want := range tests {
		got, err := fx.svc.Path(fx.ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("Path(%d) = %q, want %q", id, got, want)
		}
	}

	if _, err := fx.svc.Path(fx.ctx, 999); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreate_Validation(t *testing.T) {
	fx := newFixture(t, 0)
	if _, err := fx.svc.Create(fx.ctx, " ", 0); err == nil {
		t.Error("blank name should fail")
	}
	if _, err := fx.svc.Create(fx.ctx, "a/b", 0); err == nil {
		t.Error("name with a slash should fail")
	}
	if _, err := fx.svc.Create(fx.ctx, "Orphan", 999); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing parent, got %v", err)
	}
}

func TestAddFile_RemovesFromAncestors(t *testing.T) {
	fx := newFixture(t, 2)
	trips := fx.album(t, "Trips", 0)
	alps := fx.album(t, "Alps", trips)
	day := fx.album(t, "Day 1", alps)
	other := fx.album(t, "Other", 0)

	for _, album := range []int64{trips, alps, other} {
		if err := fx.svc.AddFile(fx.ctx, album, fx.files[0]); err != nil {
			t.Fatal(err)
		}
	}
	if err := fx.svc.AddFile(fx.ctx, trips, fx.files[1]); err != nil {
		t.Fatal(err)
	}

	if err := fx.svc.AddFile(fx.ctx, day, fx.files[0]); err != nil {
		t.Fatalf("AddFile: %v", err)
	}

	if got := fx.members(t, day); !slices.Equal(got, []int64{fx.files[0]}) {
		t.Errorf("day members = %v", got)
	}
	if got := fx.members(t, alps); len(got) != 0 {
		t.Errorf("file should leave the parent album, got %v", got)
	}
	if got := fx.members(t, trips); !slices.Equal(got, []int64{fx.files[1]}) {
		t.Errorf("only the moved file should leave the grandparent, got %v", got)
	}
	if got := fx.members(t, other); !slices.Equal(got, []int64{fx.files[0]}) {
		t.Errorf("unrelated album must keep the file, got %v", got)
	}

	if err := fx.svc.AddFile(fx.ctx, day, 999); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing file, got %v", err)
	}
}

func TestFileCount_IncludesChildren(t *testing.T) {
	fx := newFixture(t, 3)
	trips := fx.album(t, "Trips", 0)
	alps := fx.album(t, "Alps", trips)
	sea := fx.album(t, "Sea", trips)

	_ = fx.svc.AddFile(fx.ctx, trips, fx.files[0])
	_ = fx.svc.AddFile(fx.ctx, alps, fx.files[1])
	_ = fx.svc.AddFile(fx.ctx, sea, fx.files[2])

	n, err := fx.svc.FileCount(fx.ctx, trips)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("FileCount = %d, want 3", n)
	}

	tree, err := fx.svc.Tree(fx.ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(tree) != 1 || tree[0].FileCount != 3 || len(tree[0].Children) != 2 {
		t.Fatalf("unexpected tree %+v", tree)
	}
	if c := tree[0].Children[0]; c.Path != "Trips/Alps/" || c.FileCount != 1 {
		t.Errorf("unexpected child %+v", c)
	}

	sub, err := fx.svc.Tree(fx.ctx, trips)
	if err != nil {
		t.Fatal(err)
	}
	if len(sub) != 2 || sub[1].Path != "Trips/Sea/" {
		t.Errorf("unexpected subtree %+v", sub)
	}
}

func TestDelete_Cascades(t *testing.T) {
	fx := newFixture(t, 1)
	trips := fx.album(t, "Trips", 0)
	alps := fx.album(t, "Alps", trips)
	_ = fx.svc.AddFile(fx.ctx, alps, fx.files[0])

	if err := fx.svc.Delete(fx.ctx, trips); err != nil {
		t.Fatal(err)
	}
	if a, _ := fx.store.GetAlbum(fx.ctx, alps); a != nil {
		t.Error("child album should be deleted")
	}
	if f, _ := fx.store.GetFile(fx.ctx, fx.files[0]); f == nil {
		t.Error("files must survive album deletion")
	}
}
