package faces

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/photo-library/internal/database"
)

func uniform(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func rgb(img image.Image, x, y int) (uint8, uint8, uint8) {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{2.5, 3},
		{2.4999, 2},
		{-2.5, -2},
		{-2.6, -3},
		{0.5, 1},
		{-0.5, 0},
		{7, 7},
	}
	for _, tt := range tests {
		if got := roundHalfUp(tt.in); got != tt.want {
			t.Errorf("roundHalfUp(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCrop_PadsOutOfBoundsWithBlack(t *testing.T) {
	img := uniform(100, 100, color.White)
	face := &database.Face{RectX: 10, RectY: 50, RectW: 40, RectH: 40}

	out := Crop(img, face, 0, false)
	if b := out.Bounds(); b.Dx() != 40 || b.Dy() != 40 {
		t.Fatalf("crop size = %v, want 40x40", b.Size())
	}
	for _, x := range []int{0, 5, 9} {
		if r, g, b := rgb(out, x, 20); r != 0 || g != 0 || b != 0 {
			t.Errorf("pixel (%d,20) = %d,%d,%d, want black", x, r, g, b)
		}
	}
	for _, x := range []int{10, 20, 39} {
		if r, g, b := rgb(out, x, 20); r != 255 || g != 255 || b != 255 {
			t.Errorf("pixel (%d,20) = %d,%d,%d, want white", x, r, g, b)
		}
	}
}

func TestCrop_HalfPixelEdgeAligned(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, color.RGBA{uint8(50 + 10*x), 0, 0, 255})
		}
	}
	// left edge at -2.5 rounds to -2, so output column 2 is source column 0
	face := &database.Face{RectX: 2.5, RectY: 10, RectW: 10, RectH: 10}

	out := Crop(img, face, 0, false)
	if b := out.Bounds(); b.Dx() != 10 || b.Dy() != 10 {
		t.Fatalf("crop size = %v, want 10x10", b.Size())
	}
	tests := []struct {
		x    int
		want uint8
	}{
		{0, 0},
		{1, 0},
		{2, 50},
		{3, 60},
		{9, 120},
	}
	for _, tt := range tests {
		if r, _, _ := rgb(out, tt.x, 5); r != tt.want {
			t.Errorf("column %d red = %d, want %d", tt.x, r, tt.want)
		}
	}
}

func TestCrop_PadsCorner(t *testing.T) {
	img := uniform(50, 50, color.White)
	face := &database.Face{RectX: 45, RectY: 45, RectW: 20, RectH: 20}

	out := Crop(img, face, 0, true)
	if _, ok := out.(*image.Gray); !ok {
		t.Fatalf("expected grayscale output, got %T", out)
	}
	if b := out.Bounds(); b.Dx() != 20 || b.Dy() != 20 {
		t.Fatalf("crop size = %v, want 20x20", b.Size())
	}
	if r, _, _ := rgb(out, 5, 5); r != 255 {
		t.Errorf("inside pixel = %d, want white", r)
	}
	if r, _, _ := rgb(out, 15, 15); r != 0 {
		t.Errorf("outside pixel = %d, want black", r)
	}
}

func TestCrop_Scales(t *testing.T) {
	img := uniform(400, 400, color.White)
	face := &database.Face{RectX: 200, RectY: 200, RectW: 100, RectH: 120}

	out := Crop(img, face, 60, false)
	if b := out.Bounds(); b.Dx() != 50 || b.Dy() != 60 {
		t.Errorf("scaled crop size = %v, want 50x60", b.Size())
	}
}

func TestCrop_Rotated(t *testing.T) {
	img := uniform(400, 400, color.White)
	face := &database.Face{RectX: 200, RectY: 200, RectW: 100, RectH: 120, RectR: 30}

	out := Crop(img, face, 0, false)
	if b := out.Bounds(); b.Dx() != 100 || b.Dy() != 120 {
		t.Fatalf("rotated crop size = %v, want 100x120", b.Size())
	}
	if r, g, b := rgb(out, 50, 60); r < 250 || g < 250 || b < 250 {
		t.Errorf("centre pixel = %d,%d,%d, want white", r, g, b)
	}
}

func TestThumbnail(t *testing.T) {
	img := uniform(400, 400, color.RGBA{200, 100, 50, 255})
	face := &database.Face{ID: 1, RectX: 200, RectY: 200, RectW: 130, RectH: 162.5}

	data, err := Thumbnail(img, face, 100, 75)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Fatal("thumbnail is not a JPEG")
	}
	decoded, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if h := decoded.Bounds().Dy(); h != 100 {
		t.Errorf("thumbnail height = %d, want 100", h)
	}
}

func TestOrient(t *testing.T) {
	red := color.RGBA{255, 0, 0, 255}
	blue := color.RGBA{0, 0, 255, 255}
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, red)
	src.Set(1, 0, blue)

	tests := []struct {
		orientation int
		size        image.Point
		redAt       image.Point
		blueAt      image.Point
	}{
		{1, image.Pt(2, 1), image.Pt(0, 0), image.Pt(1, 0)},
		{3, image.Pt(2, 1), image.Pt(1, 0), image.Pt(0, 0)},
		{6, image.Pt(1, 2), image.Pt(0, 0), image.Pt(0, 1)},
		{8, image.Pt(1, 2), image.Pt(0, 1), image.Pt(0, 0)},
	}
	for _, tt := range tests {
		out := Orient(src, tt.orientation)
		if out.Bounds().Size() != tt.size {
			t.Errorf("orientation %d: size %v, want %v", tt.orientation, out.Bounds().Size(), tt.size)
			continue
		}
		if r, _, _ := rgb(out, tt.redAt.X, tt.redAt.Y); r != 255 {
			t.Errorf("orientation %d: red not at %v", tt.orientation, tt.redAt)
		}
		if _, _, b := rgb(out, tt.blueAt.X, tt.blueAt.Y); b != 255 {
			t.Errorf("orientation %d: blue not at %v", tt.orientation, tt.blueAt)
		}
	}
}

func TestLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 30, 10))); err != nil {
		t.Fatal(err)
	}
	f.Close()

	img, err := LoadImage(path, 6)
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if size := img.Bounds().Size(); size != image.Pt(10, 30) {
		t.Errorf("oriented size = %v, want 10x30", size)
	}

	if _, err := LoadImage(filepath.Join(t.TempDir(), "missing.png"), 1); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDownscaleRatio(t *testing.T) {
	tests := []struct {
		w, h int
		want float64
	}{
		{2000, 1000, 0.5},
		{1000, 4000, 0.25},
		{800, 600, 1},
		{0, 0, 1},
	}
	for _, tt := range tests {
		if got := downscaleRatio(tt.w, tt.h, 1000); got != tt.want {
			t.Errorf("downscaleRatio(%d, %d) = %v, want %v", tt.w, tt.h, got, tt.want)
		}
	}
}
