// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Sentinel records created by the initial migration.
const (
	// UnknownPersonID is the person every unclassified or orphaned face falls back to
	UnknownPersonID int64 = 0

	// UngroupedGroupID is the default person group
	UngroupedGroupID int64 = 0
)

// Face detection constants
const (
	// DetectionMaxSize caps the longer image side before running the face cascade
	DetectionMaxSize = 1000

	// DetectionMinSizeDivisor derives the minimum face size from the cap (1000/50 = 20px)
	DetectionMinSizeDivisor = 50

	// MaxFaceRotation is the largest rotation in degrees accepted from eye positions
	MaxFaceRotation = 45.0

	// FaceRectScaleX widens the detected region to capture context around the face
	FaceRectScaleX = 1.3

	// FaceRectScaleY heightens the detected region to capture context around the face
	FaceRectScaleY = 1.625
)

// Face recognition constants
const (
	// DefaultDistanceThreshold is the default maximum embedding distance for a match.
	// The boundary is inclusive.
	DefaultDistanceThreshold = 0.5

	// HNSWMinSamples is the training set size from which neighbour search uses the HNSW graph
	HNSWMinSamples = 512

	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size; results are re-ranked
	// with exact distances afterwards
	HNSWEfSearch = 32
)

// Thumbnail constants
const (
	// ThumbnailHeight is the pixel height of stored face thumbnails
	ThumbnailHeight = 200

	// ThumbnailQuality is the JPEG quality of stored face thumbnails
	ThumbnailQuality = 75
)

// Identifier constants
const (
	// FileIDTimeLayout formats the timestamp prefix of a file identifier
	FileIDTimeLayout = "2006-01-02_15-04-05"

	// MaxFileIDSequence is the largest per-second sequence number (4 hex digits)
	MaxFileIDSequence = 0xffff
)

// Processing constants
const (
	// WorkerPoolSize is the default number of jobs run in parallel
	WorkerPoolSize = 4

	// RootQueueSize is the number of pending jobs buffered per root
	RootQueueSize = 64
)
