package sqlstore

import (
	"context"
	"fmt"

	"github.com/kozaktomas/photo-library/internal/constants"
	"github.com/kozaktomas/photo-library/internal/database"
)

const faceColumns = `id, file_id, person_id, rect_x, rect_y, rect_w, rect_h, rect_r, eyes_found,
	eye_l_x, eye_l_y, eye_r_x, eye_r_y, uncertainty, status, thumbnail`

func scanFace(row interface{ Scan(...any) error }) (*database.Face, error) {
	var f database.Face
	if err := row.Scan(
		&f.ID, &f.FileID, &f.PersonID, &f.RectX, &f.RectY, &f.RectW, &f.RectH, &f.RectR, &f.EyesFound,
		&f.EyeLX, &f.EyeLY, &f.EyeRX, &f.EyeRY, &f.Uncertainty, &f.Status, &f.Thumbnail,
	); err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Store) queryFaces(ctx context.Context, query string, args ...any) ([]database.Face, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query faces: %w", err)
	}
	defer rows.Close()

	var faces []database.Face
	for rows.Next() {
		f, err := scanFace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}
		faces = append(faces, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faces: %w", err)
	}
	return faces, nil
}

func (s *Store) CreateFace(ctx context.Context, f *database.Face) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO faces (file_id, person_id, rect_x, rect_y, rect_w, rect_h, rect_r, eyes_found,
			eye_l_x, eye_l_y, eye_r_x, eye_r_y, uncertainty, status, thumbnail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`,
		f.FileID, f.PersonID, f.RectX, f.RectY, f.RectW, f.RectH, f.RectR, f.EyesFound,
		f.EyeLX, f.EyeLY, f.EyeRX, f.EyeRY, f.Uncertainty, int(f.Status), f.Thumbnail,
	).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("insert face for file %d: %w", f.FileID, err)
	}
	return nil
}

func (s *Store) GetFace(ctx context.Context, id int64) (*database.Face, error) {
	f, err := scanFace(s.db.QueryRowContext(ctx, "SELECT "+faceColumns+" FROM faces WHERE id = $1", id))
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get face %d: %w", id, err)
	}
	return f, nil
}

func (s *Store) ListFacesByFile(ctx context.Context, fileID int64) ([]database.Face, error) {
	return s.queryFaces(ctx, "SELECT "+faceColumns+" FROM faces WHERE file_id = $1 ORDER BY id", fileID)
}

func (s *Store) ListFacesByStatus(ctx context.Context, statuses ...database.FaceStatus) ([]database.Face, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	args := make([]any, len(statuses))
	for i, st := range statuses {
		args[i] = int(st)
	}
	return s.queryFaces(ctx,
		"SELECT "+faceColumns+" FROM faces WHERE status IN ("+placeholders(1, len(args))+") ORDER BY id",
		args...)
}

func (s *Store) ListFacesByPerson(ctx context.Context, personID int64) ([]database.Face, error) {
	return s.queryFaces(ctx, "SELECT "+faceColumns+" FROM faces WHERE person_id = $1 ORDER BY id", personID)
}

func (s *Store) UpdateFaceAssignment(ctx context.Context, id, personID int64, status database.FaceStatus, uncertainty float64) error {
	if err := s.execOne(ctx,
		"UPDATE faces SET person_id = $1, status = $2, uncertainty = $3 WHERE id = $4",
		personID, int(status), uncertainty, id,
	); err != nil {
		return fmt.Errorf("update face %d: %w", id, err)
	}
	return nil
}

func (s *Store) ReclassifyFace(ctx context.Context, id, personID int64, status database.FaceStatus, uncertainty float64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE faces SET person_id = $1, status = $2, uncertainty = $3 WHERE id = $4 AND status IN ($5, $6)",
		personID, int(status), uncertainty, id, int(database.FacePredicted), int(database.FaceUnassigned),
	)
	if err != nil {
		return false, fmt.Errorf("reclassify face %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *Store) UpdateFaceThumbnail(ctx context.Context, id int64, thumbnail []byte) error {
	if err := s.execOne(ctx, "UPDATE faces SET thumbnail = $1 WHERE id = $2", thumbnail, id); err != nil {
		return fmt.Errorf("update face %d thumbnail: %w", id, err)
	}
	return nil
}

func (s *Store) CountFacesByStatus(ctx context.Context) (map[database.FaceStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM faces GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count faces: %w", err)
	}
	defer rows.Close()

	counts := make(map[database.FaceStatus]int)
	for rows.Next() {
		var status, n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan face count: %w", err)
		}
		counts[database.FaceStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate face counts: %w", err)
	}
	return counts, nil
}

// PersonThumbnailFace picks the widest confirmed face of the person.
func (s *Store) PersonThumbnailFace(ctx context.Context, personID int64) (*database.Face, error) {
	if personID == constants.UnknownPersonID {
		return nil, nil
	}
	f, err := scanFace(s.db.QueryRowContext(ctx,
		"SELECT "+faceColumns+" FROM faces WHERE person_id = $1 AND status < $2 ORDER BY rect_w DESC, id LIMIT 1",
		personID, int(database.FacePredicted),
	))
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("person %d thumbnail: %w", personID, err)
	}
	return f, nil
}
