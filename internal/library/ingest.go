package library

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/metadata"
)

// IngestFile adds the file called name inside node to the database, or
// returns the existing record. A record whose file vanished from its
// recorded location is relinked to node (move detection). New files are
// renamed on disk to their identifier once the record exists.
func (s *Synchronizer) IngestFile(ctx context.Context, name string, node FolderLike) (*database.File, error) {
	folder := node.Folder()
	stem, ext := splitName(name)
	realPath := node.RealPath() + name

	existing, err := s.store.GetFileByFileID(ctx, stem)
	if err != nil {
		return nil, fmt.Errorf("failed to look up file %s: %w", stem, err)
	}
	if existing != nil {
		recorded, err := FileRealPath(ctx, s.store, existing)
		if err != nil {
			return nil, err
		}
		if !isFile(recorded) && existing.FolderID != folder.ID {
			s.logger.Info("file moved", "file_id", existing.FileID, "from", recorded, "to", realPath)
			if err := s.store.UpdateFileFolder(ctx, existing.ID, folder.ID); err != nil {
				return nil, fmt.Errorf("failed to relink file %s: %w", existing.FileID, err)
			}
			existing.FolderID = folder.ID
		}
		if existing.FolderID == folder.ID {
			return existing, nil
		}
	}

	s.logger.Info("adding file", "folder", folder.Name, "file", name)

	attrs, err := s.meta.Extract(realPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	title, writeTitle := ChooseTitle(attrs, stem)
	file := &database.File{
		Name:        title,
		FolderID:    folder.ID,
		Type:        FileType(ext),
		Format:      ext,
		Length:      attrs.Size,
		Timestamp:   ChooseTimestamp(attrs, stem, attrs.ModTime),
		Orientation: attrs.Orientation(),
		Metadata:    attrs.JSON(realPath),
	}
	if w, h, ok := attrs.Dimensions(); ok {
		file.Width, file.Height = w, h
	}

	if tag := metadata.NewGeoTag(attrs); tag != nil {
		if err := s.createGeoTag(ctx, tag); err != nil {
			return nil, err
		}
		file.GeoTagID = tag.ID
	}

	_, err = s.ids.Assign(ctx, file.Timestamp, func(fileID string) error {
		file.FileID = fileID
		if err := s.store.CreateFile(ctx, file); err != nil {
			return fmt.Errorf("failed to create file record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	newPath := node.RealPath() + file.FileName()
	if err := s.rename(realPath, newPath); err != nil {
		if delErr := s.store.DeleteFile(ctx, file.ID); delErr != nil {
			s.logger.Error("failed to roll back file record", "file_id", file.FileID, "error", delErr)
		}
		return nil, fmt.Errorf("failed to rename %s to %s: %w", realPath, newPath, err)
	}

	if writeTitle {
		if err := s.meta.WriteTitle(newPath, title); err != nil {
			if errors.Is(err, metadata.ErrTitleUnsupported) {
				s.logger.Debug("title not written", "file_id", file.FileID, "error", err)
			} else {
				s.logger.Warn("failed to write title", "file_id", file.FileID, "error", err)
			}
		} else if err := s.refreshLength(ctx, file, newPath); err != nil {
			return nil, err
		}
	}

	return file, nil
}

// refreshLength stores the size of a file rewritten after ingestion
func (s *Synchronizer) refreshLength(ctx context.Context, file *database.File, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Size() == file.Length {
		return nil
	}
	if err := s.store.UpdateFileLength(ctx, file.ID, info.Size()); err != nil {
		return fmt.Errorf("failed to update length of %s: %w", file.FileID, err)
	}
	file.Length = info.Size()
	return nil
}

func (s *Synchronizer) createGeoTag(ctx context.Context, tag *database.GeoTag) error {
	areas, err := s.store.ListGeoTagAreas(ctx)
	if err != nil {
		return fmt.Errorf("failed to list geotag areas: %w", err)
	}
	metadata.AssignArea(tag, areas)
	if err := s.store.CreateGeoTag(ctx, tag); err != nil {
		return fmt.Errorf("failed to create geotag: %w", err)
	}
	return nil
}
