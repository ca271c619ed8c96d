package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/photo-library/internal/constants"
	"github.com/kozaktomas/photo-library/internal/database"
)

func (s *Store) CreatePersonGroup(ctx context.Context, name string) (*database.PersonGroup, error) {
	g := &database.PersonGroup{Name: name}
	if err := s.db.QueryRowContext(ctx,
		"INSERT INTO person_groups (name) VALUES ($1) RETURNING id", name,
	).Scan(&g.ID); err != nil {
		return nil, fmt.Errorf("insert person group %q: %w", name, err)
	}
	return g, nil
}

func (s *Store) ListPersonGroups(ctx context.Context) ([]database.PersonGroup, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM person_groups ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query person groups: %w", err)
	}
	defer rows.Close()

	var groups []database.PersonGroup
	for rows.Next() {
		var g database.PersonGroup
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("scan person group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate person groups: %w", err)
	}
	return groups, nil
}

// DeletePersonGroup moves members to the Ungrouped group before deleting.
func (s *Store) DeletePersonGroup(ctx context.Context, id int64) error {
	if id == constants.UngroupedGroupID {
		return database.ErrSentinelRecord
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE people SET group_id = $1 WHERE group_id = $2", constants.UngroupedGroupID, id,
		); err != nil {
			return fmt.Errorf("ungroup people of group %d: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM person_groups WHERE id = $1", id)
		if err != nil {
			return fmt.Errorf("delete person group %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return database.ErrNotFound
		}
		return nil
	})
}

func (s *Store) CreatePerson(ctx context.Context, fullName string, groupID int64) (*database.Person, error) {
	p := &database.Person{FullName: fullName, GroupID: groupID, CreatedAt: s.now()}
	if err := s.db.QueryRowContext(ctx,
		"INSERT INTO people (full_name, group_id, created_at) VALUES ($1, $2, $3) RETURNING id",
		fullName, groupID, p.CreatedAt,
	).Scan(&p.ID); err != nil {
		return nil, fmt.Errorf("insert person %q: %w", fullName, err)
	}
	return p, nil
}

func (s *Store) GetPerson(ctx context.Context, id int64) (*database.Person, error) {
	var p database.Person
	err := s.db.QueryRowContext(ctx,
		"SELECT id, full_name, group_id, created_at FROM people WHERE id = $1", id,
	).Scan(&p.ID, &p.FullName, &p.GroupID, &p.CreatedAt)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get person %d: %w", id, err)
	}
	return &p, nil
}

func (s *Store) ListPeople(ctx context.Context) ([]database.Person, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, full_name, group_id, created_at FROM people ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query people: %w", err)
	}
	defer rows.Close()

	var people []database.Person
	for rows.Next() {
		var p database.Person
		if err := rows.Scan(&p.ID, &p.FullName, &p.GroupID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate people: %w", err)
	}
	return people, nil
}

// DeletePerson hands the person's faces back to the Unknown Person as
// unassigned and removes the person in the same transaction.
func (s *Store) DeletePerson(ctx context.Context, id int64) error {
	if id == constants.UnknownPersonID {
		return database.ErrSentinelRecord
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE faces SET person_id = $1, status = $2 WHERE person_id = $3",
			constants.UnknownPersonID, int(database.FaceUnassigned), id,
		); err != nil {
			return fmt.Errorf("release faces of person %d: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM people WHERE id = $1", id)
		if err != nil {
			return fmt.Errorf("delete person %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return database.ErrNotFound
		}
		return nil
	})
}
