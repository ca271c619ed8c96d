package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/photo-library/internal/database"
)

func scanAlbum(row interface{ Scan(...any) error }) (*database.Album, error) {
	var a database.Album
	var parent sql.NullInt64
	if err := row.Scan(&a.ID, &a.Name, &parent, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.ParentID = parent.Int64
	return &a, nil
}

func (s *Store) CreateAlbum(ctx context.Context, name string, parentID int64) (*database.Album, error) {
	a := &database.Album{Name: name, ParentID: parentID, CreatedAt: s.now()}
	if err := s.db.QueryRowContext(ctx,
		"INSERT INTO albums (name, parent_id, created_at) VALUES ($1, $2, $3) RETURNING id",
		name, nullID(parentID), a.CreatedAt,
	).Scan(&a.ID); err != nil {
		return nil, fmt.Errorf("insert album %q: %w", name, err)
	}
	return a, nil
}

func (s *Store) GetAlbum(ctx context.Context, id int64) (*database.Album, error) {
	a, err := scanAlbum(s.db.QueryRowContext(ctx,
		"SELECT id, name, parent_id, created_at FROM albums WHERE id = $1", id))
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get album %d: %w", id, err)
	}
	return a, nil
}

// ListChildAlbums lists top-level albums when parentID is 0.
func (s *Store) ListChildAlbums(ctx context.Context, parentID int64) ([]database.Album, error) {
	query := "SELECT id, name, parent_id, created_at FROM albums WHERE parent_id = $1 ORDER BY name, id"
	args := []any{parentID}
	if parentID == 0 {
		query = "SELECT id, name, parent_id, created_at FROM albums WHERE parent_id IS NULL ORDER BY name, id"
		args = nil
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query albums: %w", err)
	}
	defer rows.Close()

	var albums []database.Album
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, fmt.Errorf("scan album: %w", err)
		}
		albums = append(albums, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate albums: %w", err)
	}
	return albums, nil
}

func (s *Store) DeleteAlbum(ctx context.Context, id int64) error {
	if err := s.execOne(ctx, "DELETE FROM albums WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete album %d: %w", id, err)
	}
	return nil
}

func (s *Store) AddAlbumFile(ctx context.Context, albumID, fileID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO album_files (album_id, file_id, date_added) VALUES ($1, $2, $3)
		ON CONFLICT (album_id, file_id) DO NOTHING`,
		albumID, fileID, s.now(),
	)
	if err != nil {
		return fmt.Errorf("add file %d to album %d: %w", fileID, albumID, err)
	}
	return nil
}

func (s *Store) RemoveAlbumFile(ctx context.Context, albumID, fileID int64) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM album_files WHERE album_id = $1 AND file_id = $2", albumID, fileID,
	); err != nil {
		return fmt.Errorf("remove file %d from album %d: %w", fileID, albumID, err)
	}
	return nil
}

func (s *Store) ListAlbumFileIDs(ctx context.Context, albumID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT file_id FROM album_files WHERE album_id = $1 ORDER BY date_added, file_id", albumID)
	if err != nil {
		return nil, fmt.Errorf("query album %d files: %w", albumID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan album file: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate album files: %w", err)
	}
	return ids, nil
}
