// Package metadata reads EXIF and container tags from media files and
// normalises them into an Attributes set with optional accessors.
package metadata

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ExifTimeLayout is the layout of EXIF date/time strings
const ExifTimeLayout = "2006:01:02 15:04:05"

// GPS holds the raw GPS tags of a file. Coordinates are degree, minute and
// second values already divided out of their rationals.
type GPS struct {
	Latitude     [3]float64
	LatitudeRef  string
	Longitude    [3]float64
	LongitudeRef string
}

// Attributes is the normalised metadata of one file. Every optional value
// is exposed through an accessor returning (value, ok).
type Attributes struct {
	Size    int64
	ModTime time.Time

	description string
	title       string
	times       map[string]time.Time
	width       int
	height      int
	orientation int
	gps         *GPS

	exif map[string]string
	tags map[string]any
}

// Names of the EXIF timestamps the extractor keeps
const (
	TagDateTimeOriginal  = "DateTimeOriginal"
	TagDateTime          = "DateTime"
	TagDateTimeDigitized = "DateTimeDigitized"
)

// Description returns the non-blank EXIF image description
func (a *Attributes) Description() (string, bool) {
	d := strings.TrimSpace(a.description)
	return d, d != ""
}

// Title returns the embedded container title tag
func (a *Attributes) Title() (string, bool) {
	t := strings.TrimSpace(a.title)
	return t, t != ""
}

// Time returns one of the EXIF timestamps by tag name
func (a *Attributes) Time(name string) (time.Time, bool) {
	t, ok := a.times[name]
	return t, ok
}

// Dimensions returns the EXIF-reported or decoded pixel size
func (a *Attributes) Dimensions() (int, int, bool) {
	if a.width <= 0 || a.height <= 0 {
		return 0, 0, false
	}
	return a.width, a.height, true
}

// Orientation returns the EXIF orientation code, 1 when absent
func (a *Attributes) Orientation() int {
	if a.orientation == 0 {
		return 1
	}
	return a.orientation
}

// GPS returns the raw GPS tags when all four required tags are present
func (a *Attributes) GPS() (GPS, bool) {
	if a.gps == nil {
		return GPS{}, false
	}
	return *a.gps, true
}

// JSON serialises the raw metadata into the blob stored with a file.
// Values that do not marshal are stringified.
func (a *Attributes) JSON(path string) string {
	blob := map[string]any{
		"path":  path,
		"mtime": a.ModTime.Format(time.RFC3339),
	}
	if len(a.exif) > 0 {
		blob["exif"] = a.exif
	}
	if len(a.tags) > 0 {
		tags := make(map[string]any, len(a.tags))
		for k, v := range a.tags {
			tags[k] = jsonValue(v)
		}
		blob["tags"] = tags
	}
	data, err := json.Marshal(blob)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func jsonValue(v any) any {
	switch v := v.(type) {
	case nil, string, bool, int, int64, float64:
		return v
	case []string:
		return strings.Join(v, ", ")
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(v))
	}
	if _, err := json.Marshal(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return v
}
