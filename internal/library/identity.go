package library

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/kozaktomas/photo-library/internal/constants"
	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/metadata"
)

// ErrIdentifierCapacity is returned when all 65,536 identifiers of one
// second are taken
var ErrIdentifierCapacity = errors.New("identifier sequence exhausted for timestamp")

// suffixOffset is the index of the hex sequence in an identifier
const suffixOffset = len(constants.FileIDTimeLayout) + 1

// IdentityAssigner hands out file identifiers. Allocation and record
// creation happen under one lock so concurrent ingestion of files sharing
// a timestamp never collides.
type IdentityAssigner struct {
	mu    sync.Mutex
	files database.FileStore
}

// NewIdentityAssigner creates an assigner over the persisted identifiers
func NewIdentityAssigner(files database.FileStore) *IdentityAssigner {
	return &IdentityAssigner{files: files}
}

// Assign derives the next identifier for ts and passes it to create while
// holding the allocation lock.
func (a *IdentityAssigner) Assign(ctx context.Context, ts time.Time, create func(fileID string) error) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	prefix := ts.Format(constants.FileIDTimeLayout)
	last, err := a.files.LastFileIDWithPrefix(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to look up identifiers: %w", err)
	}
	fileID, err := NextFileID(prefix, last)
	if err != nil {
		return "", err
	}
	if err := create(fileID); err != nil {
		return "", err
	}
	return fileID, nil
}

// NextFileID returns the identifier following last for the given prefix.
// An empty last starts the sequence at 0001.
func NextFileID(prefix, last string) (string, error) {
	var seq uint64
	if last != "" {
		if len(last) < suffixOffset {
			return "", fmt.Errorf("malformed identifier %q", last)
		}
		n, err := strconv.ParseUint(last[suffixOffset:], 16, 32)
		if err != nil {
			return "", fmt.Errorf("malformed identifier %q: %w", last, err)
		}
		seq = n
	}
	if seq >= constants.MaxFileIDSequence {
		return "", fmt.Errorf("%w: %s", ErrIdentifierCapacity, prefix)
	}
	return fmt.Sprintf("%s_%04x", prefix, seq+1), nil
}

// TimeSource exposes the EXIF timestamps of a file
type TimeSource interface {
	Time(name string) (time.Time, bool)
}

// ChooseTimestamp picks the most authoritative timestamp for a new file:
// DateTimeOriginal, then the earlier of DateTime and DateTimeDigitized,
// then a timestamp embedded in an identifier-like stem, then mtime.
func ChooseTimestamp(src TimeSource, stem string, mtime time.Time) time.Time {
	if t, ok := src.Time(metadata.TagDateTimeOriginal); ok {
		return t
	}
	dt, okDT := src.Time(metadata.TagDateTime)
	dd, okDD := src.Time(metadata.TagDateTimeDigitized)
	switch {
	case okDT && okDD:
		if dd.Before(dt) {
			return dd
		}
		return dt
	case okDT:
		return dt
	case okDD:
		return dd
	}
	if t, ok := stemTimestamp(stem); ok {
		return t
	}
	return mtime
}

// stemTimestamp parses the timestamp of a stem shaped like an identifier
func stemTimestamp(stem string) (time.Time, bool) {
	if len(stem) <= 5 {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(constants.FileIDTimeLayout, stem[:len(stem)-5], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// TitleSource exposes the embedded title candidates of a file
type TitleSource interface {
	Description() (string, bool)
	Title() (string, bool)
}

// ChooseTitle picks the display title. fromStem reports that neither tag
// was usable and the title should be written back into the file.
func ChooseTitle(src TitleSource, stem string) (title string, fromStem bool) {
	if d, ok := src.Description(); ok {
		return d, false
	}
	if t, ok := src.Title(); ok {
		return t, false
	}
	return stem, true
}
