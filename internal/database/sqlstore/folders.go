package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/photo-library/internal/database"
)

const folderColumns = "id, name, parent_id, file_count, length, path"

func scanFolder(row interface{ Scan(...any) error }) (*database.Folder, error) {
	var f database.Folder
	var parent sql.NullInt64
	if err := row.Scan(&f.ID, &f.Name, &parent, &f.FileCount, &f.Length, &f.Path); err != nil {
		return nil, err
	}
	f.ParentID = parent.Int64
	return &f, nil
}

func (s *Store) GetFolder(ctx context.Context, id int64) (*database.Folder, error) {
	f, err := scanFolder(s.db.QueryRowContext(ctx, "SELECT "+folderColumns+" FROM folders WHERE id = $1", id))
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get folder %d: %w", id, err)
	}
	return f, nil
}

// FindChildFolder returns the first child of parentID named name, nil if none.
func (s *Store) FindChildFolder(ctx context.Context, parentID int64, name string) (*database.Folder, error) {
	f, err := scanFolder(s.db.QueryRowContext(ctx,
		"SELECT "+folderColumns+" FROM folders WHERE parent_id = $1 AND name = $2 ORDER BY id LIMIT 1",
		parentID, name,
	))
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find folder %q in %d: %w", name, parentID, err)
	}
	return f, nil
}

func (s *Store) CreateFolder(ctx context.Context, parentID int64, name string) (*database.Folder, error) {
	f := &database.Folder{Name: name, ParentID: parentID}
	if err := s.db.QueryRowContext(ctx,
		"INSERT INTO folders (name, parent_id) VALUES ($1, $2) RETURNING id",
		name, nullID(parentID),
	).Scan(&f.ID); err != nil {
		return nil, fmt.Errorf("insert folder %q: %w", name, err)
	}
	return f, nil
}

func (s *Store) ListChildFolders(ctx context.Context, parentID int64) ([]database.Folder, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+folderColumns+" FROM folders WHERE parent_id = $1 ORDER BY name, id", parentID)
	if err != nil {
		return nil, fmt.Errorf("query child folders: %w", err)
	}
	defer rows.Close()

	var folders []database.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}
	return folders, nil
}

func (s *Store) UpdateFolderProps(ctx context.Context, id int64, fileCount int, length int64, path string) error {
	if err := s.execOne(ctx,
		"UPDATE folders SET file_count = $1, length = $2, path = $3 WHERE id = $4",
		fileCount, length, path, id,
	); err != nil {
		return fmt.Errorf("update folder %d: %w", id, err)
	}
	return nil
}

// DeleteFolder removes the folder; descendants and their files follow by cascade.
func (s *Store) DeleteFolder(ctx context.Context, id int64) error {
	if err := s.execOne(ctx, "DELETE FROM folders WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete folder %d: %w", id, err)
	}
	return nil
}
