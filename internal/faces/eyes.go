package faces

import (
	"image"
	"math"
	"sort"
)

// Point is a sub-pixel image position
type Point struct {
	X, Y float64
}

// Eyes are the subject's eye centres inside a face region
type Eyes struct {
	Left, Right Point
}

// LocateEyes runs the three eye cascades over a grayscale face region and
// picks one eye per side. It reports false when either side has no
// candidate.
func LocateEyes(face *image.Gray, set DetectorSet) (Eyes, bool) {
	w, h := face.Bounds().Dx(), face.Bounds().Dy()
	fw, fh := float64(w), float64(h)

	both := centres(set.Eye, face,
		image.Pt(iround(fw/6), iround(fh/6)), image.Pt(iround(fw/4), iround(fh/4)))
	left := centres(set.LeftEye, face,
		image.Pt(iround(fw/7), iround(fh/7)), image.Pt(iround(fw/3), iround(fh/3)))
	right := centres(set.RightEye, face,
		image.Pt(iround(fw/7), iround(fh/7)), image.Pt(iround(fw/3), iround(fh/3)))

	l, okL := chooseEye(concat(left, both, right), false, fw, fh)
	r, okR := chooseEye(concat(right, both, left), true, fw, fh)
	if !okL || !okR {
		return Eyes{}, false
	}
	return Eyes{Left: l, Right: r}, true
}

// centres detects with c and returns rectangle centres sorted top to bottom
func centres(c Cascade, img *image.Gray, minSize, maxSize image.Point) []Point {
	if c == nil {
		return nil
	}
	rects := c.DetectMultiScale(img, minSize, maxSize)
	points := make([]Point, len(rects))
	for i, r := range rects {
		points[i] = Point{
			X: float64(r.Min.X) + float64(r.Dx())/2,
			Y: float64(r.Min.Y) + float64(r.Dy())/2,
		}
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Y < points[j].Y })
	return points
}

func concat(lists ...[]Point) []Point {
	var out []Point
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// chooseEye returns the first candidate lying on the requested side
func chooseEye(candidates []Point, right bool, w, h float64) (Point, bool) {
	for _, p := range candidates {
		if EyeSide(p, w, h) == right {
			return p, true
		}
	}
	return Point{}, false
}

// EyeSide reports whether p is a right eye. Eyes in the top-right and
// bottom-left quadrants of the region are left eyes, the others right, so
// upside-down faces resolve symmetrically.
func EyeSide(p Point, w, h float64) bool {
	x := p.X - w/2
	y := h/2 - p.Y
	return y/x < 0
}

// Rotation returns the in-plane face rotation in degrees implied by the eyes
func Rotation(e Eyes) float64 {
	return math.Atan((e.Left.Y-e.Right.Y)/(e.Left.X-e.Right.X)) * 180 / math.Pi
}

// clampRotation discards estimates beyond limit degrees
func clampRotation(r, limit float64) float64 {
	if math.IsNaN(r) || math.Abs(r) > limit {
		return 0
	}
	return r
}

// iround rounds half away from zero like the detector size bounds expect
func iround(v float64) int {
	return int(math.Round(v))
}
