package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/photo-library/internal/database"
)

func (s *Store) CreateGeoTag(ctx context.Context, g *database.GeoTag) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = s.now()
	}
	if err := s.db.QueryRowContext(ctx,
		"INSERT INTO geotags (lat, lng, area_id, created_at) VALUES ($1, $2, $3, $4) RETURNING id",
		g.Lat, g.Lng, nullID(g.AreaID), g.CreatedAt,
	).Scan(&g.ID); err != nil {
		return fmt.Errorf("insert geotag: %w", err)
	}
	return nil
}

func (s *Store) GetGeoTag(ctx context.Context, id int64) (*database.GeoTag, error) {
	var g database.GeoTag
	var area sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, lat, lng, area_id, created_at FROM geotags WHERE id = $1", id,
	).Scan(&g.ID, &g.Lat, &g.Lng, &area, &g.CreatedAt)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get geotag %d: %w", id, err)
	}
	g.AreaID = area.Int64
	return &g, nil
}

func (s *Store) CreateGeoTagArea(ctx context.Context, a *database.GeoTagArea) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	if err := s.db.QueryRowContext(ctx, `
		INSERT INTO geotag_areas (name, address, lat, lng, radius, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		a.Name, a.Address, a.Lat, a.Lng, a.Radius, a.CreatedAt,
	).Scan(&a.ID); err != nil {
		return fmt.Errorf("insert geotag area %q: %w", a.Name, err)
	}
	return nil
}

func (s *Store) ListGeoTagAreas(ctx context.Context) ([]database.GeoTagArea, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, address, lat, lng, radius, created_at FROM geotag_areas ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query geotag areas: %w", err)
	}
	defer rows.Close()

	var areas []database.GeoTagArea
	for rows.Next() {
		var a database.GeoTagArea
		if err := rows.Scan(&a.ID, &a.Name, &a.Address, &a.Lat, &a.Lng, &a.Radius, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan geotag area: %w", err)
		}
		areas = append(areas, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate geotag areas: %w", err)
	}
	return areas, nil
}
