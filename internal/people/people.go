package people

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kozaktomas/photo-library/internal/constants"
	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/logging"
)

var (
	// ErrDuplicateName is returned when a person with an equivalent name exists
	ErrDuplicateName = errors.New("person with this name already exists")
	// ErrEmptyName is returned for blank names
	ErrEmptyName = errors.New("name must not be empty")
)

// Service wraps person and face review operations
type Service struct {
	store  database.Store
	logger logging.Logger
}

// NewService creates a people service
func NewService(store database.Store, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{store: store, logger: logger}
}

// Create adds a person unless one with an equivalent name exists
func (s *Service) Create(ctx context.Context, fullName string, groupID int64) (*database.Person, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, ErrEmptyName
	}
	existing, err := s.FindByName(ctx, fullName)
	if err != nil {
		return nil, err
	}
	for _, p := range existing {
		if NormalizeName(p.FullName) == NormalizeName(fullName) {
			return nil, fmt.Errorf("%q: %w", p.FullName, ErrDuplicateName)
		}
	}
	p, err := s.store.CreatePerson(ctx, fullName, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to create person: %w", err)
	}
	s.logger.Info("created person", "person_id", p.ID, "name", p.FullName)
	return p, nil
}

// FindByName returns people whose normalised name contains the normalised
// query, ordered by name. The Unknown Person is never returned.
func (s *Service) FindByName(ctx context.Context, query string) ([]database.Person, error) {
	people, err := s.store.ListPeople(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	q := NormalizeName(query)
	var out []database.Person
	for _, p := range people {
		if p.ID == constants.UnknownPersonID {
			continue
		}
		if strings.Contains(NormalizeName(p.FullName), q) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return NormalizeName(out[i].FullName) < NormalizeName(out[j].FullName)
	})
	return out, nil
}

// Delete removes a person. Their faces fall back to the Unknown Person
// with status unassigned.
func (s *Service) Delete(ctx context.Context, personID int64) error {
	if personID == constants.UnknownPersonID {
		return database.ErrSentinelRecord
	}
	if err := s.store.DeletePerson(ctx, personID); err != nil {
		return fmt.Errorf("failed to delete person %d: %w", personID, err)
	}
	s.logger.Info("deleted person", "person_id", personID)
	return nil
}

// Thumbnail returns the face used as the person's picture, nil if none
func (s *Service) Thumbnail(ctx context.Context, personID int64) (*database.Face, error) {
	return s.store.PersonThumbnailFace(ctx, personID)
}

// ConfirmFace assigns a face to a person as ground truth
func (s *Service) ConfirmFace(ctx context.Context, faceID, personID int64) error {
	if personID == constants.UnknownPersonID {
		return errors.New("cannot confirm a face as the Unknown Person")
	}
	p, err := s.store.GetPerson(ctx, personID)
	if err != nil {
		return fmt.Errorf("failed to get person: %w", err)
	}
	if p == nil {
		return fmt.Errorf("person %d: %w", personID, database.ErrNotFound)
	}
	return s.setFace(ctx, faceID, personID, database.FaceConfirmedUser)
}

// IgnoreFace excludes a face from recognition
func (s *Service) IgnoreFace(ctx context.Context, faceID int64) error {
	return s.setFace(ctx, faceID, constants.UnknownPersonID, database.FaceIgnored)
}

// RemoveFace marks a face as a false detection
func (s *Service) RemoveFace(ctx context.Context, faceID int64) error {
	return s.setFace(ctx, faceID, constants.UnknownPersonID, database.FaceRemoved)
}

// ResetFace hands a face back to the recognizer
func (s *Service) ResetFace(ctx context.Context, faceID int64) error {
	return s.setFace(ctx, faceID, constants.UnknownPersonID, database.FaceUnassigned)
}

func (s *Service) setFace(ctx context.Context, faceID, personID int64, status database.FaceStatus) error {
	if err := s.store.UpdateFaceAssignment(ctx, faceID, personID, status, -1); err != nil {
		return fmt.Errorf("failed to update face %d: %w", faceID, err)
	}
	s.logger.Info("updated face", "face_id", faceID, "person_id", personID, "status", status.String())
	return nil
}

// CreateGroup adds a person group
func (s *Service) CreateGroup(ctx context.Context, name string) (*database.PersonGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	return s.store.CreatePersonGroup(ctx, name)
}

// DeleteGroup removes a group; its members move to Ungrouped
func (s *Service) DeleteGroup(ctx context.Context, groupID int64) error {
	if groupID == constants.UngroupedGroupID {
		return database.ErrSentinelRecord
	}
	if err := s.store.DeletePersonGroup(ctx, groupID); err != nil {
		return fmt.Errorf("failed to delete group %d: %w", groupID, err)
	}
	return nil
}
