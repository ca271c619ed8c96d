// Package cascade loads OpenCV Haar cascade classifiers for face detection.
package cascade

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/kozaktomas/photo-library/internal/config"
	"github.com/kozaktomas/photo-library/internal/faces"
)

// Classifier wraps a gocv cascade. Detection is serialised because the
// underlying OpenCV object is not safe for concurrent use.
type Classifier struct {
	mu           sync.Mutex
	cc           gocv.CascadeClassifier
	scaleFactor  float64
	minNeighbors int
}

var _ faces.Cascade = (*Classifier)(nil)

// Load reads a cascade XML file
func Load(path string, scaleFactor float64, minNeighbors int) (*Classifier, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("cascade file: %w", err)
	}
	cc := gocv.NewCascadeClassifier()
	if !cc.Load(path) {
		cc.Close()
		return nil, fmt.Errorf("failed to load cascade %s", path)
	}
	return &Classifier{cc: cc, scaleFactor: scaleFactor, minNeighbors: minNeighbors}, nil
}

// DetectMultiScale implements faces.Cascade
func (c *Classifier) DetectMultiScale(img *image.Gray, minSize, maxSize image.Point) []image.Rectangle {
	mat, err := gocv.ImageGrayToMatGray(img)
	if err != nil {
		return nil
	}
	defer mat.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cc.DetectMultiScaleWithParams(mat, c.scaleFactor, c.minNeighbors, 0, minSize, maxSize)
}

// Close releases the OpenCV classifier
func (c *Classifier) Close() error {
	return c.cc.Close()
}

// Set is a loaded DetectorSet that owns its classifiers
type Set struct {
	faces.DetectorSet
	closers []*Classifier
}

// LoadSet loads the face and eye cascades named in cfg
func LoadSet(cfg *config.DetectionConfig) (*Set, error) {
	s := &Set{}
	var loadErr error
	load := func(name string) faces.Cascade {
		c, err := Load(cfg.Path(name), cfg.ScaleFactor, cfg.MinNeighbors)
		if err != nil {
			loadErr = errors.Join(loadErr, err)
			return nil
		}
		s.closers = append(s.closers, c)
		return c
	}
	s.Face = load(cfg.Cascades.Face)
	s.Eye = load(cfg.Cascades.Eye)
	s.LeftEye = load(cfg.Cascades.LeftEye)
	s.RightEye = load(cfg.Cascades.RightEye)
	if loadErr != nil {
		s.Close()
		return nil, loadErr
	}
	return s, nil
}

// Close releases every classifier of the set
func (s *Set) Close() error {
	var err error
	for _, c := range s.closers {
		err = errors.Join(err, c.Close())
	}
	s.closers = nil
	return err
}
