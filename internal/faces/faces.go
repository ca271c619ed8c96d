// Package faces detects faces with Haar cascades, estimates eye positions
// and rotation, and crops normalised face images.
package faces

import (
	"errors"
	"image"

	"github.com/kozaktomas/photo-library/internal/config"
	"github.com/kozaktomas/photo-library/internal/constants"
)

// ErrNotImage is returned when a face operation targets a non-image file
var ErrNotImage = errors.New("file is not an image")

// Cascade is a multi-scale object detector. Rectangles are relative to the
// top-left corner of img. A zero maxSize means no upper bound.
type Cascade interface {
	DetectMultiScale(img *image.Gray, minSize, maxSize image.Point) []image.Rectangle
}

// DetectorSet holds the classifiers of one detection session. It is loaded
// once and shared read-only between workers.
type DetectorSet struct {
	Face     Cascade
	Eye      Cascade
	LeftEye  Cascade
	RightEye Cascade
}

// Options tune detection and thumbnail generation
type Options struct {
	MaxSize          int     // longer image side used for face detection
	MaxRotation      float64 // degrees; larger estimates fall back to 0
	ScaleX           float64 // widening of the detected region
	ScaleY           float64 // heightening of the detected region
	ThumbnailHeight  int
	ThumbnailQuality int
}

// DefaultOptions returns the built-in tuning
func DefaultOptions() Options {
	return Options{
		MaxSize:          constants.DetectionMaxSize,
		MaxRotation:      constants.MaxFaceRotation,
		ScaleX:           constants.FaceRectScaleX,
		ScaleY:           constants.FaceRectScaleY,
		ThumbnailHeight:  constants.ThumbnailHeight,
		ThumbnailQuality: constants.ThumbnailQuality,
	}
}

// OptionsFromConfig builds options from the loaded configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxSize:          cfg.Detection.MaxSize,
		MaxRotation:      cfg.Detection.MaxRotation,
		ScaleX:           cfg.Detection.RectScaleX,
		ScaleY:           cfg.Detection.RectScaleY,
		ThumbnailHeight:  cfg.Thumbnail.Height,
		ThumbnailQuality: cfg.Thumbnail.Quality,
	}
}
