// Package mock provides an in-memory implementation of database.Store for testing.
// It emulates the foreign key cascades and sentinel rows of the SQL schema.
package mock

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/photo-library/internal/constants"
	"github.com/kozaktomas/photo-library/internal/database"
)

// MockStore is a mock implementation of database.Store
type MockStore struct {
	mu      sync.RWMutex
	nextID  int64
	roots   map[int64]*database.Root
	folders map[int64]*database.Folder
	files   map[int64]*database.File
	faces   map[int64]*database.Face
	people  map[int64]*database.Person
	groups  map[int64]*database.PersonGroup
	geotags map[int64]*database.GeoTag
	areas   map[int64]*database.GeoTagArea
	albums  map[int64]*database.Album
	members map[int64]map[int64]time.Time // album id -> file id -> date added

	// Error injection
	CreateFileError           error
	CreateFaceError           error
	CreateFolderError         error
	UpdateFileFolderError     error
	UpdateFaceAssignmentError error
	ListFacesByStatusError    error
	MarkFileScannedError      error
	ListRootsError            error

	// AssignmentCalls counts face assignment writes per face id
	AssignmentCalls map[int64]int
}

var _ database.Store = (*MockStore)(nil)

// NewMockStore creates a store holding only the sentinel person and group
func NewMockStore() *MockStore {
	m := &MockStore{
		nextID:          1,
		roots:           make(map[int64]*database.Root),
		folders:         make(map[int64]*database.Folder),
		files:           make(map[int64]*database.File),
		faces:           make(map[int64]*database.Face),
		people:          make(map[int64]*database.Person),
		groups:          make(map[int64]*database.PersonGroup),
		geotags:         make(map[int64]*database.GeoTag),
		areas:           make(map[int64]*database.GeoTagArea),
		albums:          make(map[int64]*database.Album),
		members:         make(map[int64]map[int64]time.Time),
		AssignmentCalls: make(map[int64]int),
	}
	m.groups[constants.UngroupedGroupID] = &database.PersonGroup{ID: constants.UngroupedGroupID, Name: "Ungrouped"}
	m.people[constants.UnknownPersonID] = &database.Person{ID: constants.UnknownPersonID, FullName: "Unknown Person"}
	return m
}

func (m *MockStore) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

// Close is a no-op
func (m *MockStore) Close() error { return nil }

// Roots

func (m *MockStore) CreateRoot(ctx context.Context, name, realPath string) (*database.Root, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	folder := &database.Folder{ID: m.id(), Name: name, Path: name + "/"}
	m.folders[folder.ID] = folder
	root := &database.Root{ID: m.id(), Name: name, RealPath: realPath, FolderID: folder.ID, Created: time.Now().UTC()}
	m.roots[root.ID] = root
	r := *root
	return &r, nil
}

func (m *MockStore) GetRoot(ctx context.Context, id int64) (*database.Root, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.roots[id]; ok {
		c := *r
		return &c, nil
	}
	return nil, nil
}

func (m *MockStore) GetRootByFolder(ctx context.Context, folderID int64) (*database.Root, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.roots {
		if r.FolderID == folderID {
			c := *r
			return &c, nil
		}
	}
	return nil, nil
}

func (m *MockStore) ListRoots(ctx context.Context) ([]database.Root, error) {
	if m.ListRootsError != nil {
		return nil, m.ListRootsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	roots := make([]database.Root, 0, len(m.roots))
	for _, r := range m.roots {
		roots = append(roots, *r)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].ID < roots[j].ID })
	return roots, nil
}

func (m *MockStore) DeleteRoot(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roots[id]
	if !ok {
		return database.ErrNotFound
	}
	m.deleteFolderLocked(r.FolderID)
	return nil
}

// Folders

func (m *MockStore) GetFolder(ctx context.Context, id int64) (*database.Folder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if f, ok := m.folders[id]; ok {
		c := *f
		return &c, nil
	}
	return nil, nil
}

func (m *MockStore) FindChildFolder(ctx context.Context, parentID int64, name string) (*database.Folder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found *database.Folder
	for _, f := range m.folders {
		if f.ParentID == parentID && f.Name == name && (found == nil || f.ID < found.ID) {
			found = f
		}
	}
	if found == nil {
		return nil, nil
	}
	c := *found
	return &c, nil
}

func (m *MockStore) CreateFolder(ctx context.Context, parentID int64, name string) (*database.Folder, error) {
	if m.CreateFolderError != nil {
		return nil, m.CreateFolderError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f := &database.Folder{ID: m.id(), Name: name, ParentID: parentID}
	m.folders[f.ID] = f
	c := *f
	return &c, nil
}

func (m *MockStore) ListChildFolders(ctx context.Context, parentID int64) ([]database.Folder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var folders []database.Folder
	for _, f := range m.folders {
		if f.ParentID == parentID && parentID != 0 {
			folders = append(folders, *f)
		}
	}
	sort.Slice(folders, func(i, j int) bool {
		if folders[i].Name != folders[j].Name {
			return folders[i].Name < folders[j].Name
		}
		return folders[i].ID < folders[j].ID
	})
	return folders, nil
}

func (m *MockStore) UpdateFolderProps(ctx context.Context, id int64, fileCount int, length int64, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.folders[id]
	if !ok {
		return database.ErrNotFound
	}
	f.FileCount = fileCount
	f.Length = length
	f.Path = path
	return nil
}

func (m *MockStore) DeleteFolder(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.folders[id]; !ok {
		return database.ErrNotFound
	}
	m.deleteFolderLocked(id)
	return nil
}

// deleteFolderLocked removes a folder with its subtree, files, faces and owning root.
func (m *MockStore) deleteFolderLocked(id int64) {
	for _, child := range m.folders {
		if child.ParentID == id {
			m.deleteFolderLocked(child.ID)
		}
	}
	for _, f := range m.files {
		if f.FolderID == id {
			m.deleteFileLocked(f.ID)
		}
	}
	for rid, r := range m.roots {
		if r.FolderID == id {
			delete(m.roots, rid)
		}
	}
	delete(m.folders, id)
}

// Files

func (m *MockStore) GetFile(ctx context.Context, id int64) (*database.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if f, ok := m.files[id]; ok {
		c := *f
		return &c, nil
	}
	return nil, nil
}

func (m *MockStore) GetFileByFileID(ctx context.Context, fileID string) (*database.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, f := range m.files {
		if f.FileID == fileID {
			c := *f
			return &c, nil
		}
	}
	return nil, nil
}

func (m *MockStore) LastFileIDWithPrefix(ctx context.Context, prefix string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	last := ""
	for _, f := range m.files {
		if strings.HasPrefix(f.FileID, prefix) && f.FileID > last {
			last = f.FileID
		}
	}
	return last, nil
}

func (m *MockStore) CreateFile(ctx context.Context, f *database.File) error {
	if m.CreateFileError != nil {
		return m.CreateFileError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.files {
		if existing.FileID == f.FileID {
			return &UniqueViolationError{Column: "file_id", Value: f.FileID}
		}
	}
	if _, ok := m.folders[f.FolderID]; !ok {
		return database.ErrNotFound
	}
	f.ID = m.id()
	c := *f
	m.files[f.ID] = &c
	return nil
}

func (m *MockStore) ListFilesInFolder(ctx context.Context, folderID int64) ([]database.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var files []database.File
	for _, f := range m.files {
		if f.FolderID == folderID {
			files = append(files, *f)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].FileID < files[j].FileID })
	return files, nil
}

func (m *MockStore) UpdateFileFolder(ctx context.Context, id, folderID int64) error {
	if m.UpdateFileFolderError != nil {
		return m.UpdateFileFolderError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok {
		return database.ErrNotFound
	}
	f.FolderID = folderID
	return nil
}

func (m *MockStore) UpdateFileFlags(ctx context.Context, id int64, starred, deleted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok {
		return database.ErrNotFound
	}
	f.Starred = starred
	f.Deleted = deleted
	return nil
}

func (m *MockStore) UpdateFileLength(ctx context.Context, id, length int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok {
		return database.ErrNotFound
	}
	f.Length = length
	return nil
}

func (m *MockStore) MarkFileScanned(ctx context.Context, id int64) error {
	if m.MarkFileScannedError != nil {
		return m.MarkFileScannedError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok {
		return database.ErrNotFound
	}
	f.ScannedFaces = true
	return nil
}

func (m *MockStore) DeleteFile(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[id]; !ok {
		return database.ErrNotFound
	}
	m.deleteFileLocked(id)
	return nil
}

func (m *MockStore) deleteFileLocked(id int64) {
	for fid, face := range m.faces {
		if face.FileID == id {
			delete(m.faces, fid)
		}
	}
	for _, files := range m.members {
		delete(files, id)
	}
	delete(m.files, id)
}

// Faces

func (m *MockStore) CreateFace(ctx context.Context, f *database.Face) error {
	if m.CreateFaceError != nil {
		return m.CreateFaceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[f.FileID]; !ok {
		return database.ErrNotFound
	}
	f.ID = m.id()
	c := *f
	m.faces[f.ID] = &c
	return nil
}

func (m *MockStore) GetFace(ctx context.Context, id int64) (*database.Face, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if f, ok := m.faces[id]; ok {
		c := *f
		return &c, nil
	}
	return nil, nil
}

func (m *MockStore) listFaces(match func(*database.Face) bool) []database.Face {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var faces []database.Face
	for _, f := range m.faces {
		if match(f) {
			faces = append(faces, *f)
		}
	}
	sort.Slice(faces, func(i, j int) bool { return faces[i].ID < faces[j].ID })
	return faces
}

func (m *MockStore) ListFacesByFile(ctx context.Context, fileID int64) ([]database.Face, error) {
	return m.listFaces(func(f *database.Face) bool { return f.FileID == fileID }), nil
}

func (m *MockStore) ListFacesByStatus(ctx context.Context, statuses ...database.FaceStatus) ([]database.Face, error) {
	if m.ListFacesByStatusError != nil {
		return nil, m.ListFacesByStatusError
	}
	want := make(map[database.FaceStatus]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	return m.listFaces(func(f *database.Face) bool { return want[f.Status] }), nil
}

func (m *MockStore) ListFacesByPerson(ctx context.Context, personID int64) ([]database.Face, error) {
	return m.listFaces(func(f *database.Face) bool { return f.PersonID == personID }), nil
}

func (m *MockStore) UpdateFaceAssignment(ctx context.Context, id, personID int64, status database.FaceStatus, uncertainty float64) error {
	if m.UpdateFaceAssignmentError != nil {
		return m.UpdateFaceAssignmentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.faces[id]
	if !ok {
		return database.ErrNotFound
	}
	m.AssignmentCalls[id]++
	f.PersonID = personID
	f.Status = status
	f.Uncertainty = uncertainty
	return nil
}

// ReclassifyFace shares UpdateFaceAssignmentError with UpdateFaceAssignment
func (m *MockStore) ReclassifyFace(ctx context.Context, id, personID int64, status database.FaceStatus, uncertainty float64) (bool, error) {
	if m.UpdateFaceAssignmentError != nil {
		return false, m.UpdateFaceAssignmentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.faces[id]
	if !ok || (f.Status != database.FacePredicted && f.Status != database.FaceUnassigned) {
		return false, nil
	}
	m.AssignmentCalls[id]++
	f.PersonID = personID
	f.Status = status
	f.Uncertainty = uncertainty
	return true, nil
}

func (m *MockStore) UpdateFaceThumbnail(ctx context.Context, id int64, thumbnail []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.faces[id]
	if !ok {
		return database.ErrNotFound
	}
	f.Thumbnail = append([]byte(nil), thumbnail...)
	return nil
}

func (m *MockStore) CountFacesByStatus(ctx context.Context) (map[database.FaceStatus]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[database.FaceStatus]int)
	for _, f := range m.faces {
		counts[f.Status]++
	}
	return counts, nil
}

// People

func (m *MockStore) CreatePersonGroup(ctx context.Context, name string) (*database.PersonGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := &database.PersonGroup{ID: m.id(), Name: name}
	m.groups[g.ID] = g
	c := *g
	return &c, nil
}

func (m *MockStore) ListPersonGroups(ctx context.Context) ([]database.PersonGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	groups := make([]database.PersonGroup, 0, len(m.groups))
	for _, g := range m.groups {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups, nil
}

func (m *MockStore) DeletePersonGroup(ctx context.Context, id int64) error {
	if id == constants.UngroupedGroupID {
		return database.ErrSentinelRecord
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[id]; !ok {
		return database.ErrNotFound
	}
	for _, p := range m.people {
		if p.GroupID == id {
			p.GroupID = constants.UngroupedGroupID
		}
	}
	delete(m.groups, id)
	return nil
}

func (m *MockStore) CreatePerson(ctx context.Context, fullName string, groupID int64) (*database.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[groupID]; !ok {
		return nil, database.ErrNotFound
	}
	p := &database.Person{ID: m.id(), FullName: fullName, GroupID: groupID, CreatedAt: time.Now().UTC()}
	m.people[p.ID] = p
	c := *p
	return &c, nil
}

func (m *MockStore) GetPerson(ctx context.Context, id int64) (*database.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.people[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, nil
}

func (m *MockStore) ListPeople(ctx context.Context) ([]database.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	people := make([]database.Person, 0, len(m.people))
	for _, p := range m.people {
		people = append(people, *p)
	}
	sort.Slice(people, func(i, j int) bool { return people[i].ID < people[j].ID })
	return people, nil
}

func (m *MockStore) DeletePerson(ctx context.Context, id int64) error {
	if id == constants.UnknownPersonID {
		return database.ErrSentinelRecord
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.people[id]; !ok {
		return database.ErrNotFound
	}
	for _, f := range m.faces {
		if f.PersonID == id {
			f.PersonID = constants.UnknownPersonID
			f.Status = database.FaceUnassigned
		}
	}
	delete(m.people, id)
	return nil
}

func (m *MockStore) PersonThumbnailFace(ctx context.Context, personID int64) (*database.Face, error) {
	if personID == constants.UnknownPersonID {
		return nil, nil
	}
	faces := m.listFaces(func(f *database.Face) bool {
		return f.PersonID == personID && f.Status.IsGroundTruth()
	})
	if len(faces) == 0 {
		return nil, nil
	}
	best := faces[0]
	for _, f := range faces[1:] {
		if f.RectW > best.RectW {
			best = f
		}
	}
	return &best, nil
}

// Geotags

func (m *MockStore) CreateGeoTag(ctx context.Context, g *database.GeoTag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.ID = m.id()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	c := *g
	m.geotags[g.ID] = &c
	return nil
}

func (m *MockStore) GetGeoTag(ctx context.Context, id int64) (*database.GeoTag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.geotags[id]; ok {
		c := *g
		return &c, nil
	}
	return nil, nil
}

func (m *MockStore) CreateGeoTagArea(ctx context.Context, a *database.GeoTagArea) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.id()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	c := *a
	m.areas[a.ID] = &c
	return nil
}

func (m *MockStore) ListGeoTagAreas(ctx context.Context) ([]database.GeoTagArea, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	areas := make([]database.GeoTagArea, 0, len(m.areas))
	for _, a := range m.areas {
		areas = append(areas, *a)
	}
	sort.Slice(areas, func(i, j int) bool { return areas[i].ID < areas[j].ID })
	return areas, nil
}

// Albums

func (m *MockStore) CreateAlbum(ctx context.Context, name string, parentID int64) (*database.Album, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := &database.Album{ID: m.id(), Name: name, ParentID: parentID, CreatedAt: time.Now().UTC()}
	m.albums[a.ID] = a
	c := *a
	return &c, nil
}

func (m *MockStore) GetAlbum(ctx context.Context, id int64) (*database.Album, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.albums[id]; ok {
		c := *a
		return &c, nil
	}
	return nil, nil
}

func (m *MockStore) ListChildAlbums(ctx context.Context, parentID int64) ([]database.Album, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var albums []database.Album
	for _, a := range m.albums {
		if a.ParentID == parentID {
			albums = append(albums, *a)
		}
	}
	sort.Slice(albums, func(i, j int) bool {
		if albums[i].Name != albums[j].Name {
			return albums[i].Name < albums[j].Name
		}
		return albums[i].ID < albums[j].ID
	})
	return albums, nil
}

func (m *MockStore) DeleteAlbum(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.albums[id]; !ok {
		return database.ErrNotFound
	}
	m.deleteAlbumLocked(id)
	return nil
}

func (m *MockStore) deleteAlbumLocked(id int64) {
	for _, a := range m.albums {
		if a.ParentID == id {
			m.deleteAlbumLocked(a.ID)
		}
	}
	delete(m.members, id)
	delete(m.albums, id)
}

func (m *MockStore) AddAlbumFile(ctx context.Context, albumID, fileID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.albums[albumID]; !ok {
		return database.ErrNotFound
	}
	if m.members[albumID] == nil {
		m.members[albumID] = make(map[int64]time.Time)
	}
	if _, ok := m.members[albumID][fileID]; !ok {
		m.members[albumID][fileID] = time.Now()
	}
	return nil
}

func (m *MockStore) RemoveAlbumFile(ctx context.Context, albumID, fileID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members[albumID], fileID)
	return nil
}

func (m *MockStore) ListAlbumFileIDs(ctx context.Context, albumID int64) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	files := m.members[albumID]
	ids := make([]int64, 0, len(files))
	for id := range files {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ti, tj := files[ids[i]], files[ids[j]]
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return ids[i] < ids[j]
	})
	return ids, nil
}

// UniqueViolationError mimics a unique constraint failure
type UniqueViolationError struct {
	Column string
	Value  string
}

func (e *UniqueViolationError) Error() string {
	return "unique constraint violated on " + e.Column + ": " + e.Value
}
