package faces

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/kozaktomas/photo-library/internal/database"
)

// roundHalfUp rounds ties towards positive infinity. The copy and crop
// stages both use it so their pixel edges line up.
func roundHalfUp(n float64) int {
	return int(math.Floor(n + 0.5))
}

// Crop extracts the face described by f from img as an upright image.
// height is the output height; zero keeps the stored face height. The
// bounding box may extend past the image edges; that area is black.
func Crop(img image.Image, f *database.Face, height float64, gray bool) image.Image {
	x, y, w, h, r := f.RectX, f.RectY, f.RectW, f.RectH, f.RectR
	if height <= 0 {
		height = h
	}
	if w <= 0 || h <= 0 {
		return newCanvas(0, 0, gray)
	}

	diagonal := math.Hypot(w, h)
	diagAngle := math.Atan(h / w)
	rad := math.Abs(r * math.Pi / 180)
	bboxW := math.Max(diagonal*math.Abs(math.Cos(diagAngle-rad)), w)
	bboxH := math.Max(diagonal*math.Abs(math.Sin(-diagAngle-rad)), h)
	// unrotated boxes are exact; the trig above can drift by an ulp
	if r == 0 {
		bboxW, bboxH = w, h
	}

	// edges are rounded once; the copy offsets derive from the rounded
	// values so source and destination stay aligned
	vx0, vy0 := roundHalfUp(x-bboxW/2), roundHalfUp(y-bboxH/2)
	vx1, vy1 := roundHalfUp(x+bboxW/2), roundHalfUp(y+bboxH/2)
	bw, bh := vx1-vx0, vy1-vy0
	buf := newCanvas(bw, bh, gray)

	// copy the overlap with the source image, leaving the rest black
	src := img.Bounds()
	sx0, sy0 := max(vx0, 0), max(vy0, 0)
	sx1, sy1 := min(vx1, src.Dx()), min(vy1, src.Dy())
	dx0, dy0 := -min(vx0, 0), -min(vy0, 0)
	cw, ch := min(sx1-sx0, bw-dx0), min(sy1-sy0, bh-dy0)
	if cw > 0 && ch > 0 {
		draw.Draw(buf, image.Rect(dx0, dy0, dx0+cw, dy0+ch), img, image.Pt(src.Min.X+sx0, src.Min.Y+sy0), draw.Src)
	}

	cx, cy := bboxW/2, bboxH/2
	var scaled draw.Image = buf
	if height != h {
		scale := height / h
		scaled = newCanvas(roundHalfUp(bboxW*scale), roundHalfUp(bboxH*scale), gray)
		draw.BiLinear.Scale(scaled, scaled.Bounds(), buf, buf.Bounds(), draw.Src, nil)
		cx, cy, w, h = cx*scale, cy*scale, w*scale, h*scale
		bboxW, bboxH = bboxW*scale, bboxH*scale
	}

	rotated := scaled
	if r != 0 {
		rotated = newCanvas(roundHalfUp(bboxW), roundHalfUp(bboxH), gray)
		draw.BiLinear.Transform(rotated, rotationMatrix(cx, cy, r), scaled, scaled.Bounds(), draw.Src, nil)
	}

	out := image.Rect(roundHalfUp(cx-w/2), roundHalfUp(cy-h/2), roundHalfUp(cx+w/2), roundHalfUp(cy+h/2)).
		Intersect(rotated.Bounds())
	face := newCanvas(out.Dx(), out.Dy(), gray)
	draw.Draw(face, face.Bounds(), rotated, out.Min, draw.Src)
	return face
}

// rotationMatrix maps source to destination coordinates for a rotation by
// deg degrees about (cx, cy), counter-clockwise on screen.
func rotationMatrix(cx, cy, deg float64) f64.Aff3 {
	rad := deg * math.Pi / 180
	a, b := math.Cos(rad), math.Sin(rad)
	return f64.Aff3{
		a, b, (1-a)*cx - b*cy,
		-b, a, b*cx + (1-a)*cy,
	}
}

// newCanvas returns an opaque black image
func newCanvas(w, h int, gray bool) draw.Image {
	r := image.Rect(0, 0, max(w, 0), max(h, 0))
	if gray {
		return image.NewGray(r)
	}
	img := image.NewRGBA(r)
	draw.Draw(img, r, image.Black, image.Point{}, draw.Src)
	return img
}

// Thumbnail crops the face at the given height and encodes it as JPEG
func Thumbnail(img image.Image, f *database.Face, height, quality int) ([]byte, error) {
	face := Crop(img, f, float64(height), false)
	if face.Bounds().Empty() {
		return nil, fmt.Errorf("face %d has an empty crop", f.ID)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, face, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
