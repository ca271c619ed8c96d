package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/photo-library/internal/database"
)

const fileColumns = `id, file_id, name, folder_id, type, format, length, starred, deleted,
	timestamp, width, height, orientation, geotag_id, metadata, scanned_faces`

func scanFile(row interface{ Scan(...any) error }) (*database.File, error) {
	var f database.File
	var geotag sql.NullInt64
	if err := row.Scan(
		&f.ID, &f.FileID, &f.Name, &f.FolderID, &f.Type, &f.Format, &f.Length, &f.Starred, &f.Deleted,
		&f.Timestamp, &f.Width, &f.Height, &f.Orientation, &geotag, &f.Metadata, &f.ScannedFaces,
	); err != nil {
		return nil, err
	}
	f.GeoTagID = geotag.Int64
	return &f, nil
}

func (s *Store) GetFile(ctx context.Context, id int64) (*database.File, error) {
	f, err := scanFile(s.db.QueryRowContext(ctx, "SELECT "+fileColumns+" FROM files WHERE id = $1", id))
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file %d: %w", id, err)
	}
	return f, nil
}

func (s *Store) GetFileByFileID(ctx context.Context, fileID string) (*database.File, error) {
	f, err := scanFile(s.db.QueryRowContext(ctx, "SELECT "+fileColumns+" FROM files WHERE file_id = $1", fileID))
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file %q: %w", fileID, err)
	}
	return f, nil
}

// LastFileIDWithPrefix compares the first 19 characters rather than using
// LIKE, since identifiers contain the "_" wildcard.
func (s *Store) LastFileIDWithPrefix(ctx context.Context, prefix string) (string, error) {
	var fileID string
	err := s.db.QueryRowContext(ctx,
		"SELECT file_id FROM files WHERE substr(file_id, 1, 19) = $1 ORDER BY file_id DESC LIMIT 1",
		prefix,
	).Scan(&fileID)
	if noRows(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query last file id for %s: %w", prefix, err)
	}
	return fileID, nil
}

func (s *Store) CreateFile(ctx context.Context, f *database.File) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO files (file_id, name, folder_id, type, format, length, starred, deleted,
			timestamp, width, height, orientation, geotag_id, metadata, scanned_faces)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`,
		f.FileID, f.Name, f.FolderID, f.Type, f.Format, f.Length, f.Starred, f.Deleted,
		f.Timestamp, f.Width, f.Height, f.Orientation, nullID(f.GeoTagID), f.Metadata, f.ScannedFaces,
	).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("insert file %s: %w", f.FileID, err)
	}
	return nil
}

func (s *Store) ListFilesInFolder(ctx context.Context, folderID int64) ([]database.File, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+fileColumns+" FROM files WHERE folder_id = $1 ORDER BY file_id", folderID)
	if err != nil {
		return nil, fmt.Errorf("query files in folder %d: %w", folderID, err)
	}
	defer rows.Close()

	var files []database.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return files, nil
}

func (s *Store) UpdateFileFolder(ctx context.Context, id, folderID int64) error {
	if err := s.execOne(ctx, "UPDATE files SET folder_id = $1 WHERE id = $2", folderID, id); err != nil {
		return fmt.Errorf("move file %d: %w", id, err)
	}
	return nil
}

func (s *Store) UpdateFileFlags(ctx context.Context, id int64, starred, deleted bool) error {
	if err := s.execOne(ctx,
		"UPDATE files SET starred = $1, deleted = $2 WHERE id = $3", starred, deleted, id,
	); err != nil {
		return fmt.Errorf("update file %d flags: %w", id, err)
	}
	return nil
}

func (s *Store) UpdateFileLength(ctx context.Context, id, length int64) error {
	if err := s.execOne(ctx, "UPDATE files SET length = $1 WHERE id = $2", length, id); err != nil {
		return fmt.Errorf("update file %d length: %w", id, err)
	}
	return nil
}

func (s *Store) MarkFileScanned(ctx context.Context, id int64) error {
	if err := s.execOne(ctx, "UPDATE files SET scanned_faces = $1 WHERE id = $2", true, id); err != nil {
		return fmt.Errorf("mark file %d scanned: %w", id, err)
	}
	return nil
}

func (s *Store) DeleteFile(ctx context.Context, id int64) error {
	if err := s.execOne(ctx, "DELETE FROM files WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete file %d: %w", id, err)
	}
	return nil
}
