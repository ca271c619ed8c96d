package metadata

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/kozaktomas/photo-library/internal/logging"
)

// Extractor reads file metadata from disk
type Extractor struct {
	logger logging.Logger
}

// NewExtractor creates a new extractor
func NewExtractor(logger logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Extractor{logger: logger}
}

// Extract reads EXIF tags, container tags and file statistics from path.
// Missing or unreadable tags are not errors; only failing to open or stat
// the file is.
func (e *Extractor) Extract(path string) (*Attributes, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	attrs := &Attributes{
		Size:    info.Size(),
		ModTime: info.ModTime(),
		times:   make(map[string]time.Time),
	}

	if x, err := exif.Decode(f); err == nil || (x != nil && !exif.IsCriticalError(err)) {
		readExif(x, attrs)
	} else {
		e.logger.Debug("no exif data", "path", path, "error", err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind file: %w", err)
	}
	if m, err := tag.ReadFrom(f); err == nil {
		attrs.title = m.Title()
		attrs.tags = m.Raw()
	}
	if values := titleValues(f); len(values) > 1 {
		attrs.title = strings.Join(values, ", ")
	}

	if _, _, ok := attrs.Dimensions(); !ok {
		if _, err := f.Seek(0, io.SeekStart); err == nil {
			if cfg, _, err := image.DecodeConfig(f); err == nil {
				attrs.width, attrs.height = cfg.Width, cfg.Height
			}
		}
	}

	return attrs, nil
}

// exifWalker collects every tag as a string for the metadata blob
type exifWalker map[string]string

func (w exifWalker) Walk(name exif.FieldName, t *tiff.Tag) error {
	if name == exif.MakerNote {
		return nil
	}
	w[string(name)] = t.String()
	return nil
}

func readExif(x *exif.Exif, attrs *Attributes) {
	walker := exifWalker{}
	_ = x.Walk(walker)
	attrs.exif = walker

	if s, ok := exifString(x, exif.ImageDescription); ok {
		attrs.description = s
	}
	for name, field := range map[string]exif.FieldName{
		TagDateTimeOriginal:  exif.DateTimeOriginal,
		TagDateTime:          exif.DateTime,
		TagDateTimeDigitized: exif.DateTimeDigitized,
	} {
		s, ok := exifString(x, field)
		if !ok {
			continue
		}
		if t, err := time.ParseInLocation(ExifTimeLayout, s, time.Local); err == nil {
			attrs.times[name] = t
		}
	}

	if w, ok := exifInt(x, exif.PixelXDimension); ok {
		if h, ok := exifInt(x, exif.PixelYDimension); ok {
			attrs.width, attrs.height = w, h
		}
	}
	if o, ok := exifInt(x, exif.Orientation); ok {
		attrs.orientation = o
	}

	attrs.gps = readGPS(x)
}

func readGPS(x *exif.Exif) *GPS {
	lat, ok := exifDMS(x, exif.GPSLatitude)
	if !ok {
		return nil
	}
	lng, ok := exifDMS(x, exif.GPSLongitude)
	if !ok {
		return nil
	}
	latRef, ok := exifString(x, exif.GPSLatitudeRef)
	if !ok {
		return nil
	}
	lngRef, ok := exifString(x, exif.GPSLongitudeRef)
	if !ok {
		return nil
	}
	return &GPS{Latitude: lat, LatitudeRef: latRef, Longitude: lng, LongitudeRef: lngRef}
}

func exifString(x *exif.Exif, field exif.FieldName) (string, bool) {
	t, err := x.Get(field)
	if err != nil {
		return "", false
	}
	s, err := t.StringVal()
	if err != nil {
		return "", false
	}
	s = strings.TrimRight(s, "\x00 ")
	return s, s != ""
}

func exifInt(x *exif.Exif, field exif.FieldName) (int, bool) {
	t, err := x.Get(field)
	if err != nil {
		return 0, false
	}
	v, err := t.Int(0)
	if err != nil {
		return 0, false
	}
	return v, true
}

func exifDMS(x *exif.Exif, field exif.FieldName) ([3]float64, bool) {
	var dms [3]float64
	t, err := x.Get(field)
	if err != nil || t.Count < 3 {
		return dms, false
	}
	for i := range dms {
		num, den, err := t.Rat2(i)
		if err != nil || den == 0 {
			return dms, false
		}
		dms[i] = float64(num) / float64(den)
	}
	return dms, true
}
