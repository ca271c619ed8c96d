package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/logging"
	"github.com/kozaktomas/photo-library/internal/metadata"
)

// MetadataReader extracts attributes and writes titles back into files
type MetadataReader interface {
	Extract(path string) (*metadata.Attributes, error)
	WriteTitle(path, title string) error
}

// Synchronizer reconciles folder and file records with the filesystem
type Synchronizer struct {
	store  database.Store
	meta   MetadataReader
	ids    *IdentityAssigner
	logger logging.Logger
	rename func(oldpath, newpath string) error
}

// NewSynchronizer creates a synchronizer
func NewSynchronizer(store database.Store, meta MetadataReader, logger logging.Logger) *Synchronizer {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Synchronizer{
		store:  store,
		meta:   meta,
		ids:    NewIdentityAssigner(store),
		logger: logger,
		rename: renameNoReplace,
	}
}

// fileTypes maps lowercase extensions to a coarse type
var fileTypes = map[string]string{
	"jpg":  database.FileTypeImage,
	"jpeg": database.FileTypeImage,
	"png":  database.FileTypeImage,
	"mp4":  database.FileTypeVideo,
	"mov":  database.FileTypeVideo,
}

// FileType classifies an extension (without the dot)
func FileType(ext string) string {
	if t, ok := fileTypes[strings.ToLower(ext)]; ok {
		return t
	}
	return database.FileTypeFile
}

// Scan walks the folder's real directory, creating child folders and
// ingesting files. Re-scanning an unchanged tree creates nothing.
func (s *Synchronizer) Scan(ctx context.Context, node FolderLike) error {
	folder := node.Folder()
	s.logger.Info("scanning folder", "folder", folder.Name, "path", node.RealPath())

	entries, err := os.ReadDir(node.RealPath())
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", node.RealPath(), err)
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		full := node.RealPath() + entry.Name()
		info, err := os.Stat(full)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", full, err)
		}
		if info.IsDir() {
			child, err := s.ensureChild(ctx, node, entry.Name())
			if err != nil {
				return err
			}
			if err := s.Scan(ctx, child); err != nil {
				return err
			}
			continue
		}
		if _, err := s.IngestFile(ctx, entry.Name(), node); err != nil {
			if errors.Is(err, ErrTargetExists) {
				s.logger.Warn("identifier name taken on disk, file left for the next scan", "path", full, "error", err)
				continue
			}
			return fmt.Errorf("failed to ingest %s: %w", full, err)
		}
	}
	return nil
}

func (s *Synchronizer) ensureChild(ctx context.Context, node FolderLike, name string) (FolderLike, error) {
	parent := node.Folder()
	existing, err := s.store.FindChildFolder(ctx, parent.ID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to find folder %s: %w", name, err)
	}
	if existing == nil {
		s.logger.Info("adding folder", "parent", parent.Name, "folder", name)
		existing, err = s.store.CreateFolder(ctx, parent.ID, name)
		if err != nil {
			return nil, fmt.Errorf("failed to create folder %s: %w", name, err)
		}
	}
	return &FolderNode{store: s.store, folder: existing, realPath: node.RealPath() + name + "/"}, nil
}

// Prune removes records whose files or directories no longer exist.
// Child folders are pruned before the folder's own files. It must only
// run after a completed Scan so moved files are relinked first.
func (s *Synchronizer) Prune(ctx context.Context, node FolderLike) error {
	folder := node.Folder()
	s.logger.Info("pruning folder", "folder", folder.Name)

	children, err := node.Children(ctx)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := s.Prune(ctx, child); err != nil {
			return err
		}
	}

	files, err := node.ContainedFiles(ctx)
	if err != nil {
		return err
	}
	for _, f := range files {
		if isFile(node.RealPath() + f.FileName()) {
			continue
		}
		s.logger.Info("clearing file from database", "folder", folder.Name, "file_id", f.FileID)
		if err := s.store.DeleteFile(ctx, f.ID); err != nil && !errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("failed to delete file %s: %w", f.FileID, err)
		}
	}

	if !isDir(node.RealPath()) {
		s.logger.Info("clearing folder from database", "folder", folder.Name)
		if err := s.store.DeleteFolder(ctx, folder.ID); err != nil && !errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("failed to delete folder %s: %w", folder.Name, err)
		}
	}
	return nil
}

// Props are the cached aggregates of a folder
type Props struct {
	FileCount int   `json:"file_count"`
	Length    int64 `json:"length"`
}

// UpdateProps recomputes file counts, byte lengths and virtual paths
// bottom-up and persists them.
func (s *Synchronizer) UpdateProps(ctx context.Context, node FolderLike) (Props, error) {
	parentPath := ""
	if folder := node.Folder(); !folder.IsRoot() {
		parent, err := s.store.GetFolder(ctx, folder.ParentID)
		if err != nil {
			return Props{}, fmt.Errorf("failed to get parent folder: %w", err)
		}
		if parent != nil {
			parentPath = parent.Path
		}
	}
	return s.updateProps(ctx, node, parentPath)
}

func (s *Synchronizer) updateProps(ctx context.Context, node FolderLike, parentPath string) (Props, error) {
	folder := node.Folder()
	path := parentPath + folder.Name + "/"

	var props Props
	children, err := node.Children(ctx)
	if err != nil {
		return props, err
	}
	for _, child := range children {
		p, err := s.updateProps(ctx, child, path)
		if err != nil {
			return props, err
		}
		props.FileCount += p.FileCount
		props.Length += p.Length
	}

	files, err := node.ContainedFiles(ctx)
	if err != nil {
		return props, err
	}
	for _, f := range files {
		props.FileCount++
		props.Length += f.Length
	}

	if err := s.store.UpdateFolderProps(ctx, folder.ID, props.FileCount, props.Length, path); err != nil {
		return props, fmt.Errorf("failed to update folder %s: %w", folder.Name, err)
	}
	folder.FileCount, folder.Length, folder.Path = props.FileCount, props.Length, path
	return props, nil
}

// ErrTargetExists is returned when an ingested file would be renamed over
// another file
var ErrTargetExists = errors.New("rename target already exists")

// renameNoReplace renames oldpath unless a different file sits at newpath
func renameNoReplace(oldpath, newpath string) error {
	if oldpath == newpath {
		return nil
	}
	if _, err := os.Lstat(newpath); err == nil {
		return fmt.Errorf("%w: %s", ErrTargetExists, newpath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.Rename(oldpath, newpath)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func splitName(name string) (stem, ext string) {
	ext = filepath.Ext(name)
	return strings.TrimSuffix(name, ext), strings.TrimPrefix(ext, ".")
}
