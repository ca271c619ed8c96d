// Package library keeps the folder and file tables in step with the
// directories under each root's real path.
package library

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/photo-library/internal/database"
)

// FolderLike is a folder record bound to its real directory
type FolderLike interface {
	Folder() *database.Folder
	// RealPath returns the directory on disk, always ending with "/"
	RealPath() string
	Children(ctx context.Context) ([]FolderLike, error)
	ContainedFiles(ctx context.Context) ([]database.File, error)
}

// FolderNode is a non-root folder
type FolderNode struct {
	store    database.Store
	folder   *database.Folder
	realPath string
}

// RootNode is the folder owned by a root
type RootNode struct {
	FolderNode
	Root *database.Root
}

var (
	_ FolderLike = (*FolderNode)(nil)
	_ FolderLike = (*RootNode)(nil)
)

func (n *FolderNode) Folder() *database.Folder { return n.folder }
func (n *FolderNode) RealPath() string         { return n.realPath }

// Children returns the child folders ordered by name
func (n *FolderNode) Children(ctx context.Context) ([]FolderLike, error) {
	folders, err := n.store.ListChildFolders(ctx, n.folder.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list child folders: %w", err)
	}
	children := make([]FolderLike, len(folders))
	for i := range folders {
		children[i] = n.child(&folders[i])
	}
	return children, nil
}

// ContainedFiles returns the files directly inside the folder
func (n *FolderNode) ContainedFiles(ctx context.Context) ([]database.File, error) {
	files, err := n.store.ListFilesInFolder(ctx, n.folder.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return files, nil
}

func (n *FolderNode) child(f *database.Folder) *FolderNode {
	return &FolderNode{store: n.store, folder: f, realPath: n.realPath + f.Name + "/"}
}

// NormalizeRealPath cleans p and makes it end with exactly one "/"
func NormalizeRealPath(p string) string {
	return strings.TrimRight(filepath.Clean(p), "/") + "/"
}

// OpenRoot loads the root and its folder
func OpenRoot(ctx context.Context, store database.Store, rootID int64) (*RootNode, error) {
	root, err := store.GetRoot(ctx, rootID)
	if err != nil {
		return nil, fmt.Errorf("failed to get root: %w", err)
	}
	if root == nil {
		return nil, fmt.Errorf("root %d: %w", rootID, database.ErrNotFound)
	}
	folder, err := store.GetFolder(ctx, root.FolderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get root folder: %w", err)
	}
	if folder == nil {
		return nil, fmt.Errorf("root folder %d: %w", root.FolderID, database.ErrNotFound)
	}
	return &RootNode{
		FolderNode: FolderNode{store: store, folder: folder, realPath: NormalizeRealPath(root.RealPath)},
		Root:       root,
	}, nil
}

// OpenFolder resolves any folder to a node by walking up to its root
func OpenFolder(ctx context.Context, store database.Store, folderID int64) (FolderLike, error) {
	folder, err := store.GetFolder(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	if folder == nil {
		return nil, fmt.Errorf("folder %d: %w", folderID, database.ErrNotFound)
	}
	if folder.IsRoot() {
		root, err := store.GetRootByFolder(ctx, folder.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get root: %w", err)
		}
		if root == nil {
			return nil, fmt.Errorf("root of folder %d: %w", folder.ID, database.ErrNotFound)
		}
		return OpenRoot(ctx, store, root.ID)
	}
	path, err := folderRealPath(ctx, store, folder)
	if err != nil {
		return nil, err
	}
	return &FolderNode{store: store, folder: folder, realPath: path}, nil
}

// folderRealPath walks parent folders up to the root's real path
func folderRealPath(ctx context.Context, store database.Store, folder *database.Folder) (string, error) {
	var names []string
	for !folder.IsRoot() {
		names = append(names, folder.Name)
		parent, err := store.GetFolder(ctx, folder.ParentID)
		if err != nil {
			return "", fmt.Errorf("failed to get folder: %w", err)
		}
		if parent == nil {
			return "", fmt.Errorf("parent folder %d: %w", folder.ParentID, database.ErrNotFound)
		}
		folder = parent
	}
	root, err := store.GetRootByFolder(ctx, folder.ID)
	if err != nil {
		return "", fmt.Errorf("failed to get root: %w", err)
	}
	if root == nil {
		return "", fmt.Errorf("root of folder %d: %w", folder.ID, database.ErrNotFound)
	}
	var b strings.Builder
	b.WriteString(NormalizeRealPath(root.RealPath))
	for i := len(names) - 1; i >= 0; i-- {
		b.WriteString(names[i])
		b.WriteByte('/')
	}
	return b.String(), nil
}

// FileRealPath returns the on-disk location of a file record
func FileRealPath(ctx context.Context, store database.Store, f *database.File) (string, error) {
	folder, err := store.GetFolder(ctx, f.FolderID)
	if err != nil {
		return "", fmt.Errorf("failed to get folder: %w", err)
	}
	if folder == nil {
		return "", fmt.Errorf("folder %d: %w", f.FolderID, database.ErrNotFound)
	}
	dir, err := folderRealPath(ctx, store, folder)
	if err != nil {
		return "", err
	}
	return dir + f.FileName(), nil
}
