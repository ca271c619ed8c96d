// Package storetest is a conformance suite every database.Store backend runs
// from its own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kozaktomas/photo-library/internal/database"
)

// Factory returns a fresh, migrated store for one subtest.
type Factory func(t *testing.T) database.Store

// Run executes the whole suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s database.Store)
	}{
		{"RootLifecycle", testRootLifecycle},
		{"FolderTree", testFolderTree},
		{"FileIdentifiers", testFileIdentifiers},
		{"FileUpdates", testFileUpdates},
		{"FaceQueries", testFaceQueries},
		{"PersonDeletion", testPersonDeletion},
		{"PersonThumbnail", testPersonThumbnail},
		{"PersonGroups", testPersonGroups},
		{"GeoTags", testGeoTags},
		{"Albums", testAlbums},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s)
		})
	}
}

func newFile(fileID string, folderID int64) *database.File {
	return &database.File{
		FileID:      fileID,
		Name:        fileID,
		FolderID:    folderID,
		Type:        database.FileTypeImage,
		Format:      "jpg",
		Length:      100,
		Timestamp:   time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC),
		Width:       640,
		Height:      480,
		Orientation: 1,
		Metadata:    "{}",
	}
}

func mustCreateFile(t *testing.T, s database.Store, fileID string, folderID int64) *database.File {
	t.Helper()
	f := newFile(fileID, folderID)
	if err := s.CreateFile(context.Background(), f); err != nil {
		t.Fatalf("CreateFile(%s): %v", fileID, err)
	}
	return f
}

func mustCreateFace(t *testing.T, s database.Store, fileID, personID int64, status database.FaceStatus, width float64) *database.Face {
	t.Helper()
	f := &database.Face{
		FileID:      fileID,
		PersonID:    personID,
		RectX:       50,
		RectY:       50,
		RectW:       width,
		RectH:       width * 1.25,
		Uncertainty: -1,
		Status:      status,
	}
	if err := s.CreateFace(context.Background(), f); err != nil {
		t.Fatalf("CreateFace: %v", err)
	}
	return f
}

func testRootLifecycle(t *testing.T, s database.Store) {
	ctx := context.Background()

	root, err := s.CreateRoot(ctx, "Photos", "/srv/photos/")
	if err != nil {
		t.Fatalf("CreateRoot: %v", err)
	}
	if root.ID == 0 || root.FolderID == 0 {
		t.Fatalf("expected ids to be assigned, got %+v", root)
	}

	folder, err := s.GetFolder(ctx, root.FolderID)
	if err != nil || folder == nil {
		t.Fatalf("GetFolder(root folder) = %v, %v", folder, err)
	}
	if folder.Name != "Photos" || !folder.IsRoot() || folder.Path != "Photos/" {
		t.Errorf("unexpected root folder %+v", folder)
	}

	byFolder, err := s.GetRootByFolder(ctx, root.FolderID)
	if err != nil || byFolder == nil || byFolder.ID != root.ID {
		t.Fatalf("GetRootByFolder = %v, %v", byFolder, err)
	}

	child, err := s.CreateFolder(ctx, root.FolderID, "2020")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	file := mustCreateFile(t, s, "2020-01-02_03-04-05_0001", child.ID)

	roots, err := s.ListRoots(ctx)
	if err != nil || len(roots) != 1 {
		t.Fatalf("ListRoots = %v, %v", roots, err)
	}

	if err := s.DeleteRoot(ctx, root.ID); err != nil {
		t.Fatalf("DeleteRoot: %v", err)
	}
	if got, _ := s.GetRoot(ctx, root.ID); got != nil {
		t.Error("root should be gone")
	}
	if got, _ := s.GetFolder(ctx, child.ID); got != nil {
		t.Error("child folder should be deleted by cascade")
	}
	if got, _ := s.GetFile(ctx, file.ID); got != nil {
		t.Error("file should be deleted by cascade")
	}
	if err := s.DeleteRoot(ctx, root.ID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound for second delete, got %v", err)
	}
}

func testFolderTree(t *testing.T, s database.Store) {
	ctx := context.Background()
	root, err := s.CreateRoot(ctx, "Root", "/r/")
	if err != nil {
		t.Fatalf("CreateRoot: %v", err)
	}

	a, _ := s.CreateFolder(ctx, root.FolderID, "a")
	b, _ := s.CreateFolder(ctx, root.FolderID, "b")
	nested, err := s.CreateFolder(ctx, a.ID, "nested")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if nested.ParentID != a.ID {
		t.Errorf("expected parent %d, got %d", a.ID, nested.ParentID)
	}

	found, err := s.FindChildFolder(ctx, root.FolderID, "b")
	if err != nil || found == nil || found.ID != b.ID {
		t.Fatalf("FindChildFolder(b) = %v, %v", found, err)
	}
	missing, err := s.FindChildFolder(ctx, root.FolderID, "nested")
	if err != nil || missing != nil {
		t.Errorf("nested is not a direct child of root, got %v, %v", missing, err)
	}

	children, err := s.ListChildFolders(ctx, root.FolderID)
	if err != nil || len(children) != 2 {
		t.Fatalf("ListChildFolders = %v, %v", children, err)
	}
	if children[0].Name != "a" || children[1].Name != "b" {
		t.Errorf("expected children ordered by name, got %s, %s", children[0].Name, children[1].Name)
	}

	if err := s.UpdateFolderProps(ctx, a.ID, 3, 300, "Root/a/"); err != nil {
		t.Fatalf("UpdateFolderProps: %v", err)
	}
	got, _ := s.GetFolder(ctx, a.ID)
	if got.FileCount != 3 || got.Length != 300 || got.Path != "Root/a/" {
		t.Errorf("props not persisted: %+v", got)
	}

	file := mustCreateFile(t, s, "2020-01-02_03-04-05_0001", nested.ID)
	face := mustCreateFace(t, s, file.ID, 0, database.FaceUnassigned, 40)

	if err := s.DeleteFolder(ctx, a.ID); err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}
	if got, _ := s.GetFolder(ctx, nested.ID); got != nil {
		t.Error("nested folder should be deleted by cascade")
	}
	if got, _ := s.GetFile(ctx, file.ID); got != nil {
		t.Error("file should be deleted by cascade")
	}
	if got, _ := s.GetFace(ctx, face.ID); got != nil {
		t.Error("face should be deleted by cascade")
	}
	if got, _ := s.GetFolder(ctx, b.ID); got == nil {
		t.Error("sibling folder must survive")
	}
	if err := s.UpdateFolderProps(ctx, a.ID, 0, 0, ""); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound updating deleted folder, got %v", err)
	}
}

func testFileIdentifiers(t *testing.T, s database.Store) {
	ctx := context.Background()
	root, _ := s.CreateRoot(ctx, "Root", "/r/")

	last, err := s.LastFileIDWithPrefix(ctx, "2020-01-02_03-04-05")
	if err != nil || last != "" {
		t.Fatalf("expected no identifier, got %q, %v", last, err)
	}

	mustCreateFile(t, s, "2020-01-02_03-04-05_0009", root.FolderID)
	mustCreateFile(t, s, "2020-01-02_03-04-05_000a", root.FolderID)
	mustCreateFile(t, s, "2020-01-02_03-04-05_0002", root.FolderID)
	mustCreateFile(t, s, "2020-01-02X03-04-05_ffff", root.FolderID)
	mustCreateFile(t, s, "2020-01-02_03-04-06_0001", root.FolderID)

	last, err = s.LastFileIDWithPrefix(ctx, "2020-01-02_03-04-05")
	if err != nil {
		t.Fatalf("LastFileIDWithPrefix: %v", err)
	}
	if last != "2020-01-02_03-04-05_000a" {
		t.Errorf("expected ..._000a, got %q", last)
	}

	f, err := s.GetFileByFileID(ctx, "2020-01-02_03-04-05_0002")
	if err != nil || f == nil {
		t.Fatalf("GetFileByFileID = %v, %v", f, err)
	}
	if !f.Timestamp.Equal(time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("timestamp not preserved: %v", f.Timestamp)
	}
	if f.Type != database.FileTypeImage || f.Format != "jpg" || f.Width != 640 || f.Orientation != 1 {
		t.Errorf("fields not preserved: %+v", f)
	}
	if f.GeoTagID != 0 || f.ScannedFaces {
		t.Errorf("expected no geotag and unscanned, got %+v", f)
	}

	dup := newFile("2020-01-02_03-04-05_0002", root.FolderID)
	if err := s.CreateFile(ctx, dup); err == nil {
		t.Error("expected unique violation for duplicate identifier")
	}

	if got, err := s.GetFileByFileID(ctx, "missing"); err != nil || got != nil {
		t.Errorf("expected nil for missing identifier, got %v, %v", got, err)
	}
}

func testFileUpdates(t *testing.T, s database.Store) {
	ctx := context.Background()
	root, _ := s.CreateRoot(ctx, "Root", "/r/")
	other, _ := s.CreateFolder(ctx, root.FolderID, "other")
	f := mustCreateFile(t, s, "2020-01-02_03-04-05_0001", root.FolderID)

	if err := s.UpdateFileFolder(ctx, f.ID, other.ID); err != nil {
		t.Fatalf("UpdateFileFolder: %v", err)
	}
	if err := s.MarkFileScanned(ctx, f.ID); err != nil {
		t.Fatalf("MarkFileScanned: %v", err)
	}
	if err := s.UpdateFileFlags(ctx, f.ID, true, false); err != nil {
		t.Fatalf("UpdateFileFlags: %v", err)
	}
	if err := s.UpdateFileLength(ctx, f.ID, 4096); err != nil {
		t.Fatalf("UpdateFileLength: %v", err)
	}

	got, _ := s.GetFile(ctx, f.ID)
	if got.FolderID != other.ID || !got.ScannedFaces || !got.Starred || got.Deleted || got.Length != 4096 {
		t.Errorf("updates not persisted: %+v", got)
	}

	inRoot, _ := s.ListFilesInFolder(ctx, root.FolderID)
	inOther, _ := s.ListFilesInFolder(ctx, other.ID)
	if len(inRoot) != 0 || len(inOther) != 1 {
		t.Errorf("expected file moved, root=%d other=%d", len(inRoot), len(inOther))
	}

	if err := s.DeleteFile(ctx, f.ID); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if err := s.DeleteFile(ctx, f.ID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.UpdateFileLength(ctx, f.ID, 1); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("UpdateFileLength on deleted file: expected ErrNotFound, got %v", err)
	}
}

func testFaceQueries(t *testing.T, s database.Store) {
	ctx := context.Background()
	root, _ := s.CreateRoot(ctx, "Root", "/r/")
	file := mustCreateFile(t, s, "2020-01-02_03-04-05_0001", root.FolderID)
	person, _ := s.CreatePerson(ctx, "Jan Novák", 0)

	confirmed := mustCreateFace(t, s, file.ID, person.ID, database.FaceConfirmedUser, 40)
	predicted := mustCreateFace(t, s, file.ID, person.ID, database.FacePredicted, 40)
	unassigned := mustCreateFace(t, s, file.ID, 0, database.FaceUnassigned, 40)
	mustCreateFace(t, s, file.ID, 0, database.FaceIgnored, 40)

	faces, err := s.ListFacesByStatus(ctx, database.FacePredicted, database.FaceUnassigned)
	if err != nil {
		t.Fatalf("ListFacesByStatus: %v", err)
	}
	if len(faces) != 2 || faces[0].ID != predicted.ID || faces[1].ID != unassigned.ID {
		t.Errorf("unexpected faces %+v", faces)
	}

	if err := s.UpdateFaceAssignment(ctx, unassigned.ID, person.ID, database.FacePredicted, 0.31); err != nil {
		t.Fatalf("UpdateFaceAssignment: %v", err)
	}
	got, _ := s.GetFace(ctx, unassigned.ID)
	if got.PersonID != person.ID || got.Status != database.FacePredicted || got.Uncertainty != 0.31 {
		t.Errorf("assignment not persisted: %+v", got)
	}

	if err := s.UpdateFaceThumbnail(ctx, confirmed.ID, []byte{0xff, 0xd8}); err != nil {
		t.Fatalf("UpdateFaceThumbnail: %v", err)
	}
	got, _ = s.GetFace(ctx, confirmed.ID)
	if len(got.Thumbnail) != 2 {
		t.Errorf("thumbnail not persisted: %v", got.Thumbnail)
	}

	byPerson, _ := s.ListFacesByPerson(ctx, person.ID)
	if len(byPerson) != 3 {
		t.Errorf("expected 3 faces for person, got %d", len(byPerson))
	}
	byFile, _ := s.ListFacesByFile(ctx, file.ID)
	if len(byFile) != 4 {
		t.Errorf("expected 4 faces for file, got %d", len(byFile))
	}

	counts, err := s.CountFacesByStatus(ctx)
	if err != nil {
		t.Fatalf("CountFacesByStatus: %v", err)
	}
	if counts[database.FacePredicted] != 2 || counts[database.FaceIgnored] != 1 || counts[database.FaceUnassigned] != 0 {
		t.Errorf("unexpected counts %v", counts)
	}

	if err := s.UpdateFaceAssignment(ctx, 9999, 0, database.FaceUnassigned, 0); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	ok, err := s.ReclassifyFace(ctx, confirmed.ID, 0, database.FaceUnassigned, 0.9)
	if err != nil || ok {
		t.Errorf("ReclassifyFace on confirmed face = %v, %v; want false", ok, err)
	}
	got, _ = s.GetFace(ctx, confirmed.ID)
	if got.PersonID != person.ID || got.Status != database.FaceConfirmedUser {
		t.Errorf("confirmed face changed: %+v", got)
	}
	ok, err = s.ReclassifyFace(ctx, predicted.ID, 0, database.FaceUnassigned, 0.9)
	if err != nil || !ok {
		t.Fatalf("ReclassifyFace on predicted face = %v, %v; want true", ok, err)
	}
	got, _ = s.GetFace(ctx, predicted.ID)
	if got.PersonID != 0 || got.Status != database.FaceUnassigned || got.Uncertainty != 0.9 {
		t.Errorf("reclassification not persisted: %+v", got)
	}
	if ok, err := s.ReclassifyFace(ctx, 9999, 0, database.FaceUnassigned, 0); err != nil || ok {
		t.Errorf("ReclassifyFace on missing face = %v, %v; want false", ok, err)
	}
}

func testPersonDeletion(t *testing.T, s database.Store) {
	ctx := context.Background()
	root, _ := s.CreateRoot(ctx, "Root", "/r/")
	file := mustCreateFile(t, s, "2020-01-02_03-04-05_0001", root.FolderID)
	alice, _ := s.CreatePerson(ctx, "Alice", 0)
	bob, _ := s.CreatePerson(ctx, "Bob", 0)

	a1 := mustCreateFace(t, s, file.ID, alice.ID, database.FaceConfirmedRoot, 40)
	a2 := mustCreateFace(t, s, file.ID, alice.ID, database.FacePredicted, 40)
	b1 := mustCreateFace(t, s, file.ID, bob.ID, database.FaceConfirmedUser, 40)

	if err := s.DeletePerson(ctx, alice.ID); err != nil {
		t.Fatalf("DeletePerson: %v", err)
	}
	for _, id := range []int64{a1.ID, a2.ID} {
		f, _ := s.GetFace(ctx, id)
		if f.PersonID != 0 || f.Status != database.FaceUnassigned {
			t.Errorf("face %d should fall back to unknown/unassigned, got person=%d status=%v", id, f.PersonID, f.Status)
		}
	}
	f, _ := s.GetFace(ctx, b1.ID)
	if f.PersonID != bob.ID || f.Status != database.FaceConfirmedUser {
		t.Errorf("other person's face must be untouched: %+v", f)
	}
	if p, _ := s.GetPerson(ctx, alice.ID); p != nil {
		t.Error("person should be deleted")
	}

	if err := s.DeletePerson(ctx, 0); !errors.Is(err, database.ErrSentinelRecord) {
		t.Errorf("expected ErrSentinelRecord for unknown person, got %v", err)
	}
	if err := s.DeletePerson(ctx, alice.ID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	unknown, err := s.GetPerson(ctx, 0)
	if err != nil || unknown == nil || unknown.FullName != "Unknown Person" {
		t.Errorf("expected sentinel Unknown Person, got %v, %v", unknown, err)
	}
}

func testPersonThumbnail(t *testing.T, s database.Store) {
	ctx := context.Background()
	root, _ := s.CreateRoot(ctx, "Root", "/r/")
	file := mustCreateFile(t, s, "2020-01-02_03-04-05_0001", root.FolderID)
	p, _ := s.CreatePerson(ctx, "Carol", 0)

	if face, err := s.PersonThumbnailFace(ctx, p.ID); err != nil || face != nil {
		t.Fatalf("expected no thumbnail yet, got %v, %v", face, err)
	}

	mustCreateFace(t, s, file.ID, p.ID, database.FaceConfirmedUser, 40)
	widest := mustCreateFace(t, s, file.ID, p.ID, database.FaceConfirmedRoot, 80)
	mustCreateFace(t, s, file.ID, p.ID, database.FacePredicted, 200)
	mustCreateFace(t, s, file.ID, 0, database.FaceConfirmedUser, 300)

	face, err := s.PersonThumbnailFace(ctx, p.ID)
	if err != nil || face == nil {
		t.Fatalf("PersonThumbnailFace = %v, %v", face, err)
	}
	if face.ID != widest.ID {
		t.Errorf("expected widest confirmed face %d, got %d", widest.ID, face.ID)
	}

	if face, _ := s.PersonThumbnailFace(ctx, 0); face != nil {
		t.Error("unknown person never has a thumbnail")
	}
}

func testPersonGroups(t *testing.T, s database.Store) {
	ctx := context.Background()
	family, err := s.CreatePersonGroup(ctx, "Family")
	if err != nil {
		t.Fatalf("CreatePersonGroup: %v", err)
	}
	p, _ := s.CreatePerson(ctx, "Dave", family.ID)

	groups, _ := s.ListPersonGroups(ctx)
	if len(groups) != 2 || groups[0].ID != 0 || groups[0].Name != "Ungrouped" {
		t.Fatalf("expected Ungrouped sentinel plus Family, got %+v", groups)
	}

	if err := s.DeletePersonGroup(ctx, family.ID); err != nil {
		t.Fatalf("DeletePersonGroup: %v", err)
	}
	got, _ := s.GetPerson(ctx, p.ID)
	if got == nil || got.GroupID != 0 {
		t.Errorf("expected person moved to Ungrouped, got %+v", got)
	}
	if err := s.DeletePersonGroup(ctx, 0); !errors.Is(err, database.ErrSentinelRecord) {
		t.Errorf("expected ErrSentinelRecord, got %v", err)
	}

	people, _ := s.ListPeople(ctx)
	if len(people) != 2 {
		t.Errorf("expected Unknown Person and Dave, got %d people", len(people))
	}
}

func testGeoTags(t *testing.T, s database.Store) {
	ctx := context.Background()
	area := &database.GeoTagArea{Name: "Home", Address: "Main St 1", Lat: 50.08, Lng: 14.42, Radius: 500}
	if err := s.CreateGeoTagArea(ctx, area); err != nil {
		t.Fatalf("CreateGeoTagArea: %v", err)
	}
	tag := &database.GeoTag{Lat: 50.081, Lng: 14.421, AreaID: area.ID}
	if err := s.CreateGeoTag(ctx, tag); err != nil {
		t.Fatalf("CreateGeoTag: %v", err)
	}
	plain := &database.GeoTag{Lat: -33.86, Lng: 151.2}
	if err := s.CreateGeoTag(ctx, plain); err != nil {
		t.Fatalf("CreateGeoTag: %v", err)
	}

	got, err := s.GetGeoTag(ctx, tag.ID)
	if err != nil || got == nil || got.AreaID != area.ID || got.Lat != 50.081 {
		t.Errorf("GetGeoTag = %+v, %v", got, err)
	}
	got, _ = s.GetGeoTag(ctx, plain.ID)
	if got.AreaID != 0 {
		t.Errorf("expected no area, got %d", got.AreaID)
	}

	areas, _ := s.ListGeoTagAreas(ctx)
	if len(areas) != 1 || areas[0].Radius != 500 {
		t.Errorf("unexpected areas %+v", areas)
	}

	root, _ := s.CreateRoot(ctx, "Root", "/r/")
	f := newFile("2020-01-02_03-04-05_0001", root.FolderID)
	f.GeoTagID = tag.ID
	if err := s.CreateFile(ctx, f); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	stored, _ := s.GetFile(ctx, f.ID)
	if stored.GeoTagID != tag.ID {
		t.Errorf("expected geotag %d on file, got %d", tag.ID, stored.GeoTagID)
	}
}

func testAlbums(t *testing.T, s database.Store) {
	ctx := context.Background()
	root, _ := s.CreateRoot(ctx, "Root", "/r/")
	f1 := mustCreateFile(t, s, "2020-01-02_03-04-05_0001", root.FolderID)
	f2 := mustCreateFile(t, s, "2020-01-02_03-04-05_0002", root.FolderID)

	trips, err := s.CreateAlbum(ctx, "Trips", 0)
	if err != nil {
		t.Fatalf("CreateAlbum: %v", err)
	}
	alps, _ := s.CreateAlbum(ctx, "Alps", trips.ID)

	top, _ := s.ListChildAlbums(ctx, 0)
	if len(top) != 1 || top[0].ID != trips.ID {
		t.Errorf("expected Trips as only top-level album, got %+v", top)
	}
	children, _ := s.ListChildAlbums(ctx, trips.ID)
	if len(children) != 1 || children[0].ParentID != trips.ID {
		t.Errorf("unexpected children %+v", children)
	}

	for _, id := range []int64{f1.ID, f2.ID, f1.ID} {
		if err := s.AddAlbumFile(ctx, alps.ID, id); err != nil {
			t.Fatalf("AddAlbumFile: %v", err)
		}
	}
	ids, _ := s.ListAlbumFileIDs(ctx, alps.ID)
	if len(ids) != 2 {
		t.Errorf("expected 2 distinct files, got %v", ids)
	}

	if err := s.RemoveAlbumFile(ctx, alps.ID, f1.ID); err != nil {
		t.Fatalf("RemoveAlbumFile: %v", err)
	}
	ids, _ = s.ListAlbumFileIDs(ctx, alps.ID)
	if len(ids) != 1 || ids[0] != f2.ID {
		t.Errorf("expected only f2 left, got %v", ids)
	}

	if err := s.DeleteAlbum(ctx, trips.ID); err != nil {
		t.Fatalf("DeleteAlbum: %v", err)
	}
	if a, _ := s.GetAlbum(ctx, alps.ID); a != nil {
		t.Error("child album should be deleted by cascade")
	}
}
