package database

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by mutations addressing a missing record
	ErrNotFound = errors.New("record not found")
	// ErrSentinelRecord is returned when deleting the Unknown Person or the Ungrouped group
	ErrSentinelRecord = errors.New("sentinel record cannot be deleted")
)

// RootStore manages real-path anchors
type RootStore interface {
	// CreateRoot creates the root and its paired folder in one transaction
	CreateRoot(ctx context.Context, name, realPath string) (*Root, error)
	// GetRoot returns nil if the root does not exist
	GetRoot(ctx context.Context, id int64) (*Root, error)
	// GetRootByFolder returns the root owning a root folder, nil if none
	GetRootByFolder(ctx context.Context, folderID int64) (*Root, error)
	ListRoots(ctx context.Context) ([]Root, error)
	// DeleteRoot removes the root and, by cascade, its whole folder tree
	DeleteRoot(ctx context.Context, id int64) error
}

// FolderStore manages the virtual directory tree
type FolderStore interface {
	// GetFolder returns nil if the folder does not exist
	GetFolder(ctx context.Context, id int64) (*Folder, error)
	// FindChildFolder returns the child of parentID called name, nil if none
	FindChildFolder(ctx context.Context, parentID int64, name string) (*Folder, error)
	CreateFolder(ctx context.Context, parentID int64, name string) (*Folder, error)
	ListChildFolders(ctx context.Context, parentID int64) ([]Folder, error)
	// UpdateFolderProps persists the cached aggregates and virtual path
	UpdateFolderProps(ctx context.Context, id int64, fileCount int, length int64, path string) error
	// DeleteFolder removes the folder, its descendants and their files
	DeleteFolder(ctx context.Context, id int64) error
}

// FileStore manages tracked media items
type FileStore interface {
	// GetFile returns nil if the file does not exist
	GetFile(ctx context.Context, id int64) (*File, error)
	// GetFileByFileID looks a file up by its identifier, nil if none
	GetFileByFileID(ctx context.Context, fileID string) (*File, error)
	// LastFileIDWithPrefix returns the lexicographically last identifier whose
	// first 19 characters equal prefix, or "" when there is none
	LastFileIDWithPrefix(ctx context.Context, prefix string) (string, error)
	// CreateFile inserts the file and sets its ID
	CreateFile(ctx context.Context, f *File) error
	ListFilesInFolder(ctx context.Context, folderID int64) ([]File, error)
	UpdateFileFolder(ctx context.Context, id, folderID int64) error
	UpdateFileFlags(ctx context.Context, id int64, starred, deleted bool) error
	UpdateFileLength(ctx context.Context, id, length int64) error
	MarkFileScanned(ctx context.Context, id int64) error
	DeleteFile(ctx context.Context, id int64) error
}

// FaceStore manages detected faces
type FaceStore interface {
	// CreateFace inserts the face and sets its ID
	CreateFace(ctx context.Context, f *Face) error
	// GetFace returns nil if the face does not exist
	GetFace(ctx context.Context, id int64) (*Face, error)
	ListFacesByFile(ctx context.Context, fileID int64) ([]Face, error)
	// ListFacesByStatus returns faces with any of the given statuses ordered by id
	ListFacesByStatus(ctx context.Context, statuses ...FaceStatus) ([]Face, error)
	ListFacesByPerson(ctx context.Context, personID int64) ([]Face, error)
	// UpdateFaceAssignment sets person, status and uncertainty in one statement
	UpdateFaceAssignment(ctx context.Context, id, personID int64, status FaceStatus, uncertainty float64) error
	// ReclassifyFace is UpdateFaceAssignment restricted to predicted and
	// unassigned faces; it reports false when the face no longer qualifies
	ReclassifyFace(ctx context.Context, id, personID int64, status FaceStatus, uncertainty float64) (bool, error)
	UpdateFaceThumbnail(ctx context.Context, id int64, thumbnail []byte) error
	CountFacesByStatus(ctx context.Context) (map[FaceStatus]int, error)
}

// PersonStore manages people and their groups
type PersonStore interface {
	CreatePersonGroup(ctx context.Context, name string) (*PersonGroup, error)
	ListPersonGroups(ctx context.Context) ([]PersonGroup, error)
	// DeletePersonGroup moves members to the Ungrouped group
	DeletePersonGroup(ctx context.Context, id int64) error
	CreatePerson(ctx context.Context, fullName string, groupID int64) (*Person, error)
	// GetPerson returns nil if the person does not exist
	GetPerson(ctx context.Context, id int64) (*Person, error)
	ListPeople(ctx context.Context) ([]Person, error)
	// DeletePerson moves the person's faces to the Unknown Person with status
	// unassigned, then deletes the person
	DeletePerson(ctx context.Context, id int64) error
	// PersonThumbnailFace returns the widest confirmed face of the person,
	// nil for the Unknown Person or when there is none
	PersonThumbnailFace(ctx context.Context, personID int64) (*Face, error)
}

// GeoTagStore manages locations
type GeoTagStore interface {
	CreateGeoTag(ctx context.Context, g *GeoTag) error
	GetGeoTag(ctx context.Context, id int64) (*GeoTag, error)
	CreateGeoTagArea(ctx context.Context, a *GeoTagArea) error
	ListGeoTagAreas(ctx context.Context) ([]GeoTagArea, error)
}

// AlbumStore manages albums and their file memberships
type AlbumStore interface {
	CreateAlbum(ctx context.Context, name string, parentID int64) (*Album, error)
	GetAlbum(ctx context.Context, id int64) (*Album, error)
	ListChildAlbums(ctx context.Context, parentID int64) ([]Album, error)
	DeleteAlbum(ctx context.Context, id int64) error
	// AddAlbumFile links a file to an album; a no-op when already linked
	AddAlbumFile(ctx context.Context, albumID, fileID int64) error
	RemoveAlbumFile(ctx context.Context, albumID, fileID int64) error
	// ListAlbumFileIDs returns the files linked directly to the album
	ListAlbumFileIDs(ctx context.Context, albumID int64) ([]int64, error)
}

// Store aggregates every table the library reads and writes
type Store interface {
	RootStore
	FolderStore
	FileStore
	FaceStore
	PersonStore
	GeoTagStore
	AlbumStore

	Close() error
}
