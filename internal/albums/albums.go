// Package albums manages nestable, user-curated collections of files.
package albums

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/logging"
)

// ErrCycle is returned when an album would become its own ancestor
var ErrCycle = errors.New("album cannot be nested inside itself")

// ErrInvalidName is returned for empty names or names containing "/"
var ErrInvalidName = errors.New("invalid album name")

// Node is an album with its derived path and aggregate file count
type Node struct {
	database.Album
	Path      string `json:"path"`
	FileCount int    `json:"file_count"`
	Children  []Node `json:"children,omitempty"`
}

// Service wraps album operations
type Service struct {
	store  database.Store
	logger logging.Logger
}

// NewService creates an album service
func NewService(store database.Store, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{store: store, logger: logger}
}

// Create adds an album under parentID; 0 creates a top-level album
func (s *Service) Create(ctx context.Context, name string, parentID int64) (*database.Album, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("%w %q", ErrInvalidName, name)
	}
	if parentID != 0 {
		if _, err := s.get(ctx, parentID); err != nil {
			return nil, err
		}
	}
	a, err := s.store.CreateAlbum(ctx, name, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to create album: %w", err)
	}
	s.logger.Info("created album", "album_id", a.ID, "name", a.Name, "parent_id", parentID)
	return a, nil
}

func (s *Service) get(ctx context.Context, id int64) (*database.Album, error) {
	a, err := s.store.GetAlbum(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get album: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("album %d: %w", id, database.ErrNotFound)
	}
	return a, nil
}

// ancestors returns the parents of the album, nearest first
func (s *Service) ancestors(ctx context.Context, a *database.Album) ([]database.Album, error) {
	var chain []database.Album
	seen := map[int64]bool{a.ID: true}
	for id := a.ParentID; id != 0; {
		if seen[id] {
			return nil, ErrCycle
		}
		seen[id] = true
		parent, err := s.get(ctx, id)
		if err != nil {
			return nil, err
		}
		chain = append(chain, *parent)
		id = parent.ParentID
	}
	return chain, nil
}

// Path returns the album path: the parent's path followed by "name/"
func (s *Service) Path(ctx context.Context, id int64) (string, error) {
	a, err := s.get(ctx, id)
	if err != nil {
		return "", err
	}
	chain, err := s.ancestors(ctx, a)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i := len(chain) - 1; i >= 0; i-- {
		b.WriteString(chain[i].Name + "/")
	}
	b.WriteString(a.Name + "/")
	return b.String(), nil
}

// AddFile links a file to an album and unlinks it from every ancestor
// album, so a file is listed only at its most specific level
func (s *Service) AddFile(ctx context.Context, albumID, fileID int64) error {
	a, err := s.get(ctx, albumID)
	if err != nil {
		return err
	}
	f, err := s.store.GetFile(ctx, fileID)
	if err != nil {
		return fmt.Errorf("failed to get file: %w", err)
	}
	if f == nil {
		return fmt.Errorf("file %d: %w", fileID, database.ErrNotFound)
	}

	chain, err := s.ancestors(ctx, a)
	if err != nil {
		return err
	}
	for _, parent := range chain {
		if err := s.store.RemoveAlbumFile(ctx, parent.ID, fileID); err != nil {
			return fmt.Errorf("failed to unlink file from album %d: %w", parent.ID, err)
		}
	}
	if err := s.store.AddAlbumFile(ctx, albumID, fileID); err != nil {
		return fmt.Errorf("failed to link file: %w", err)
	}
	return nil
}

// RemoveFile unlinks a file from an album
func (s *Service) RemoveFile(ctx context.Context, albumID, fileID int64) error {
	if err := s.store.RemoveAlbumFile(ctx, albumID, fileID); err != nil {
		return fmt.Errorf("failed to unlink file: %w", err)
	}
	return nil
}

// FileCount counts the files of the album and all of its descendants
func (s *Service) FileCount(ctx context.Context, id int64) (int, error) {
	n, err := s.node(ctx, database.Album{ID: id}, "")
	if err != nil {
		return 0, err
	}
	return n.FileCount, nil
}

// Tree returns the album hierarchy below parentID with paths and counts
func (s *Service) Tree(ctx context.Context, parentID int64) ([]Node, error) {
	prefix := ""
	if parentID != 0 {
		p, err := s.Path(ctx, parentID)
		if err != nil {
			return nil, err
		}
		prefix = p
	}
	children, err := s.store.ListChildAlbums(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list albums: %w", err)
	}
	nodes := make([]Node, 0, len(children))
	for _, c := range children {
		n, err := s.node(ctx, c, prefix+c.Name+"/")
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (s *Service) node(ctx context.Context, a database.Album, path string) (Node, error) {
	ids, err := s.store.ListAlbumFileIDs(ctx, a.ID)
	if err != nil {
		return Node{}, fmt.Errorf("failed to list album files: %w", err)
	}
	n := Node{Album: a, Path: path, FileCount: len(ids)}

	children, err := s.store.ListChildAlbums(ctx, a.ID)
	if err != nil {
		return Node{}, fmt.Errorf("failed to list albums: %w", err)
	}
	for _, c := range children {
		child, err := s.node(ctx, c, path+c.Name+"/")
		if err != nil {
			return Node{}, err
		}
		n.FileCount += child.FileCount
		n.Children = append(n.Children, child)
	}
	return n, nil
}

// Delete removes an album together with its sub-albums
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteAlbum(ctx, id); err != nil {
		return fmt.Errorf("failed to delete album %d: %w", id, err)
	}
	return nil
}
