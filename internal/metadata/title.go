package metadata

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
)

// ErrTitleUnsupported is returned for formats the title cannot be written into
var ErrTitleUnsupported = errors.New("title write-back not supported for format")

// WriteTitle stores title as the EXIF ImageDescription of a JPEG file.
// The file is rewritten through a temporary sibling and renamed into place.
func (e *Extractor) WriteTitle(path, title string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".jpg" && ext != ".jpeg" {
		return fmt.Errorf("%w: %s", ErrTitleUnsupported, ext)
	}

	parsed, err := jpegstructure.NewJpegMediaParser().ParseFile(path)
	if err != nil {
		return fmt.Errorf("failed to parse jpeg: %w", err)
	}
	sl, ok := parsed.(*jpegstructure.SegmentList)
	if !ok {
		return fmt.Errorf("unexpected jpeg structure %T", parsed)
	}

	rootIb, err := sl.ConstructExifBuilder()
	if err != nil {
		rootIb, err = newExifBuilder()
		if err != nil {
			return err
		}
	}
	if err := rootIb.SetStandardWithName("ImageDescription", title); err != nil {
		return fmt.Errorf("failed to set description: %w", err)
	}
	if err := sl.SetExif(rootIb); err != nil {
		return fmt.Errorf("failed to set exif: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".title-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := sl.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write jpeg: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if info, err := os.Stat(path); err == nil {
		_ = os.Chmod(tmp.Name(), info.Mode().Perm())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}

// newExifBuilder returns an empty IFD0 builder for files without EXIF
func newExifBuilder() (*exif.IfdBuilder, error) {
	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, fmt.Errorf("failed to create ifd mapping: %w", err)
	}
	ti := exif.NewTagIndex()
	return exif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder), nil
}
