package imaging

import (
	"image"

	"golang.org/x/image/draw"
)

// TargetCanvas returns the canvas size for an image of w×h under opts.
// The result is never smaller than the input on either axis.
func TargetCanvas(w, h int, opts Options) (int, int) {
	tw := max(w, opts.MinWidth)
	th := max(h, opts.MinHeight)
	if opts.ForceSquare {
		side := max(tw, th)
		tw, th = side, side
	}
	return tw, th
}

// pad centers img on a transparent canvas of tw×th. When the canvas already
// has that size the image is returned unchanged.
func pad(img *image.NRGBA, tw, th int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() == tw && b.Dy() == th {
		return img
	}
	dst := image.NewNRGBA(image.Rect(0, 0, tw, th))
	offset := image.Pt((tw-b.Dx())/2, (th-b.Dy())/2)
	draw.Copy(dst, offset, img, b, draw.Src, nil)
	return dst
}

// padAll applies the same canvas to every frame, keeping order and delays.
func padAll(anim *Animation, tw, th int) {
	for i := range anim.Frames {
		anim.Frames[i].Image = pad(anim.Frames[i].Image, tw, th)
	}
	if anim.Still != nil {
		anim.Still = pad(anim.Still, tw, th)
	}
}
