package imaging

import (
	"bytes"
	"image"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// readOrientation returns the EXIF orientation tag (1-8) of a JPEG payload,
// or 1 when absent or unreadable.
func readOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

// orient bakes an EXIF orientation into pixel data. The matrices map source
// coordinates onto the upright destination; every entry is integral so
// nearest-neighbour sampling is an exact pixel permutation.
func orient(img *image.NRGBA, orientation int) *image.NRGBA {
	if orientation <= 1 || orientation > 8 {
		return img
	}
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	var (
		m       f64.Aff3
		swapped bool
	)
	switch orientation {
	case 2: // mirror horizontal
		m = f64.Aff3{-1, 0, w, 0, 1, 0}
	case 3: // rotate 180
		m = f64.Aff3{-1, 0, w, 0, -1, h}
	case 4: // mirror vertical
		m = f64.Aff3{1, 0, 0, 0, -1, h}
	case 5: // transpose
		m = f64.Aff3{0, 1, 0, 1, 0, 0}
		swapped = true
	case 6: // rotate 90 clockwise
		m = f64.Aff3{0, -1, h, 1, 0, 0}
		swapped = true
	case 7: // transverse
		m = f64.Aff3{0, -1, h, -1, 0, w}
		swapped = true
	case 8: // rotate 90 counter-clockwise
		m = f64.Aff3{0, 1, 0, -1, 0, w}
		swapped = true
	}

	dw, dh := b.Dx(), b.Dy()
	if swapped {
		dw, dh = dh, dw
	}
	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	draw.NearestNeighbor.Transform(dst, m, img, b, draw.Src, nil)
	return dst
}
