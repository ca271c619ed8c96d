package faces

import (
	"context"
	"fmt"
	"image"

	"github.com/kozaktomas/photo-library/internal/constants"
	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/library"
	"github.com/kozaktomas/photo-library/internal/logging"
)

// Detector finds faces in image files and stores them with thumbnails
type Detector struct {
	set    DetectorSet
	store  database.Store
	opts   Options
	logger logging.Logger
}

// NewDetector creates a detector sharing set across all files it scans
func NewDetector(set DetectorSet, store database.Store, opts Options, logger logging.Logger) *Detector {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Detector{set: set, store: store, opts: opts, logger: logger}
}

// DetectFolder scans child folders first, then the folder's own files.
// It returns the number of faces stored.
func (d *Detector) DetectFolder(ctx context.Context, node library.FolderLike) (int, error) {
	d.logger.Info("detecting faces in folder", "folder", node.Folder().Name)

	total := 0
	children, err := node.Children(ctx)
	if err != nil {
		return total, err
	}
	for _, child := range children {
		n, err := d.DetectFolder(ctx, child)
		total += n
		if err != nil {
			return total, err
		}
	}

	files, err := node.ContainedFiles(ctx)
	if err != nil {
		return total, err
	}
	for i := range files {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := d.DetectFile(ctx, &files[i], node.RealPath()+files[i].FileName())
		total += n
		if err != nil {
			return total, fmt.Errorf("file %s: %w", files[i].FileID, err)
		}
	}
	return total, nil
}

// DetectFile stores the faces of one image file and marks it scanned.
// Non-image or already scanned files are skipped.
func (d *Detector) DetectFile(ctx context.Context, file *database.File, path string) (int, error) {
	if file.Type != database.FileTypeImage || file.ScannedFaces {
		return 0, nil
	}
	d.logger.Debug("detecting faces in file", "file_id", file.FileID)

	img, err := LoadImage(path, file.Orientation)
	if err != nil {
		return 0, err
	}

	faces := d.DetectImage(img)
	for i := range faces {
		f := &faces[i]
		f.FileID = file.ID
		thumb, err := Thumbnail(img, f, d.opts.ThumbnailHeight, d.opts.ThumbnailQuality)
		if err != nil {
			d.logger.Warn("failed to create thumbnail", "file_id", file.FileID, "error", err)
		} else {
			f.Thumbnail = thumb
		}
		if err := d.store.CreateFace(ctx, f); err != nil {
			return i, fmt.Errorf("failed to save face: %w", err)
		}
	}

	if err := d.store.MarkFileScanned(ctx, file.ID); err != nil {
		return len(faces), fmt.Errorf("failed to mark file scanned: %w", err)
	}
	file.ScannedFaces = true

	d.logger.Info("detected faces", "file_id", file.FileID, "count", len(faces))
	return len(faces), nil
}

// DetectImage runs the cascades over img and returns unsaved face records
func (d *Detector) DetectImage(img image.Image) []database.Face {
	full := toGray(img)
	w, h := full.Bounds().Dx(), full.Bounds().Dy()
	ratio := downscaleRatio(w, h, d.opts.MaxSize)
	scaled := resizeGray(full, iround(float64(w)*ratio), iround(float64(h)*ratio))

	minSide := iround(float64(d.opts.MaxSize) / constants.DetectionMinSizeDivisor)
	rects := d.set.Face.DetectMultiScale(scaled, image.Pt(minSide, minSide), image.Point{})

	faces := make([]database.Face, 0, len(rects))
	for _, r := range rects {
		region := image.Rect(
			iround(float64(r.Min.X)/ratio), iround(float64(r.Min.Y)/ratio),
			iround(float64(r.Max.X)/ratio), iround(float64(r.Max.Y)/ratio),
		)
		eyes, found := LocateEyes(subGray(full, region), d.set)
		faces = append(faces, d.faceRecord(r, ratio, eyes, found))
	}
	return faces
}

// faceRecord converts a detection in scaled coordinates into stored
// full-resolution geometry. The region is widened by ScaleX/ScaleY and its
// centre moved up by h/8 so the crop includes hair and chin.
func (d *Detector) faceRecord(r image.Rectangle, ratio float64, eyes Eyes, found bool) database.Face {
	x, y := float64(r.Min.X), float64(r.Min.Y)
	w, h := float64(r.Dx()), float64(r.Dy())
	sx, sy := d.opts.ScaleX, d.opts.ScaleY

	rotation := 0.0
	if found {
		rotation = clampRotation(Rotation(eyes), d.opts.MaxRotation)
	} else {
		placeholder := Point{X: 0, Y: -h / (8 * sy)}
		eyes = Eyes{Left: placeholder, Right: placeholder}
	}

	return database.Face{
		PersonID:    constants.UnknownPersonID,
		RectX:       (x + w/2) / ratio,
		RectY:       (y + h*3/8) / ratio,
		RectW:       w * sx / ratio,
		RectH:       h * sy / ratio,
		RectR:       rotation,
		EyesFound:   found,
		EyeLX:       eyes.Left.X * sx / ratio,
		EyeLY:       (eyes.Left.Y*sy + h/8) / ratio,
		EyeRX:       eyes.Right.X * sx / ratio,
		EyeRY:       (eyes.Right.Y*sy + h/8) / ratio,
		Uncertainty: -1,
		Status:      database.FaceUnassigned,
	}
}

// FaceImage loads the file of f and crops the face at the given height
func FaceImage(ctx context.Context, store database.Store, f *database.Face, height float64, gray bool) (image.Image, error) {
	img, err := loadFileImage(ctx, store, f.FileID)
	if err != nil {
		return nil, err
	}
	return Crop(img, f, height, gray), nil
}

func loadFileImage(ctx context.Context, store database.Store, fileID int64) (image.Image, error) {
	file, err := store.GetFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	if file == nil {
		return nil, fmt.Errorf("file %d: %w", fileID, database.ErrNotFound)
	}
	if file.Type != database.FileTypeImage {
		return nil, fmt.Errorf("file %s: %w", file.FileID, ErrNotImage)
	}
	path, err := library.FileRealPath(ctx, store, file)
	if err != nil {
		return nil, err
	}
	return LoadImage(path, file.Orientation)
}

// RefreshThumbnail regenerates and stores the thumbnail of a face
func (d *Detector) RefreshThumbnail(ctx context.Context, faceID int64) error {
	f, err := d.store.GetFace(ctx, faceID)
	if err != nil {
		return fmt.Errorf("failed to get face: %w", err)
	}
	if f == nil {
		return fmt.Errorf("face %d: %w", faceID, database.ErrNotFound)
	}
	img, err := loadFileImage(ctx, d.store, f.FileID)
	if err != nil {
		return err
	}
	thumb, err := Thumbnail(img, f, d.opts.ThumbnailHeight, d.opts.ThumbnailQuality)
	if err != nil {
		return err
	}
	if err := d.store.UpdateFaceThumbnail(ctx, faceID, thumb); err != nil {
		return fmt.Errorf("failed to save thumbnail: %w", err)
	}
	return nil
}
