package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/photo-library/internal/database"
)

const rootColumns = "id, name, real_path, folder_id, created_at"

func scanRoot(row interface{ Scan(...any) error }) (*database.Root, error) {
	var r database.Root
	if err := row.Scan(&r.ID, &r.Name, &r.RealPath, &r.FolderID, &r.Created); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRoot creates the root and its paired folder in one transaction.
func (s *Store) CreateRoot(ctx context.Context, name, realPath string) (*database.Root, error) {
	root := &database.Root{Name: name, RealPath: realPath, Created: s.now()}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			"INSERT INTO folders (name, path) VALUES ($1, $2) RETURNING id",
			name, name+"/",
		).Scan(&root.FolderID); err != nil {
			return fmt.Errorf("insert root folder: %w", err)
		}
		if err := tx.QueryRowContext(ctx,
			"INSERT INTO roots (name, real_path, folder_id, created_at) VALUES ($1, $2, $3, $4) RETURNING id",
			name, realPath, root.FolderID, root.Created,
		).Scan(&root.ID); err != nil {
			return fmt.Errorf("insert root: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return root, nil
}

// GetRoot returns nil if the root does not exist.
func (s *Store) GetRoot(ctx context.Context, id int64) (*database.Root, error) {
	r, err := scanRoot(s.db.QueryRowContext(ctx, "SELECT "+rootColumns+" FROM roots WHERE id = $1", id))
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get root %d: %w", id, err)
	}
	return r, nil
}

// GetRootByFolder returns the root owning folderID, nil if none.
func (s *Store) GetRootByFolder(ctx context.Context, folderID int64) (*database.Root, error) {
	r, err := scanRoot(s.db.QueryRowContext(ctx, "SELECT "+rootColumns+" FROM roots WHERE folder_id = $1", folderID))
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get root by folder %d: %w", folderID, err)
	}
	return r, nil
}

func (s *Store) ListRoots(ctx context.Context) ([]database.Root, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+rootColumns+" FROM roots ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query roots: %w", err)
	}
	defer rows.Close()

	var roots []database.Root
	for rows.Next() {
		r, err := scanRoot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan root: %w", err)
		}
		roots = append(roots, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roots: %w", err)
	}
	return roots, nil
}

// DeleteRoot deletes the root folder; the root row and the whole tree follow by cascade.
func (s *Store) DeleteRoot(ctx context.Context, id int64) error {
	root, err := s.GetRoot(ctx, id)
	if err != nil {
		return err
	}
	if root == nil {
		return database.ErrNotFound
	}
	if err := s.execOne(ctx, "DELETE FROM folders WHERE id = $1", root.FolderID); err != nil {
		return fmt.Errorf("delete root %d: %w", id, err)
	}
	return nil
}
