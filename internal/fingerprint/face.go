package fingerprint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/faces"
)

// ErrNoUniqueFace is returned when the server does not find exactly one
// face in a crop
var ErrNoUniqueFace = errors.New("crop does not contain exactly one face")

const cropQuality = 95

// FaceEmbedder crops stored faces out of their source images and embeds
// the crops
type FaceEmbedder struct {
	client *EmbeddingClient
	store  database.Store
	height float64 // 0 keeps the stored face height
}

// NewFaceEmbedder creates an embedder reading source images through store
func NewFaceEmbedder(client *EmbeddingClient, store database.Store, height float64) *FaceEmbedder {
	return &FaceEmbedder{client: client, store: store, height: height}
}

// EmbedFace returns the embedding of the face. It fails with
// ErrNoUniqueFace when the crop holds zero or several faces.
func (e *FaceEmbedder) EmbedFace(ctx context.Context, f *database.Face) ([]float32, error) {
	img, err := faces.FaceImage(ctx, e.store, f, e.height, false)
	if err != nil {
		return nil, fmt.Errorf("failed to crop face %d: %w", f.ID, err)
	}
	return e.EmbedImage(ctx, img)
}

// EmbedImage embeds an already cropped face image
func (e *FaceEmbedder) EmbedImage(ctx context.Context, img image.Image) ([]float32, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, ErrNoUniqueFace
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: cropQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode crop: %w", err)
	}

	resp, err := e.client.ComputeFaceEmbeddings(ctx, buf.Bytes())
	if err != nil {
		return nil, err
	}
	if len(resp.Faces) != 1 || len(resp.Faces[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: found %d", ErrNoUniqueFace, len(resp.Faces))
	}
	return resp.Faces[0].Embedding, nil
}
