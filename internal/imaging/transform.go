// Package imaging normalizes emoji image payloads into the representation
// stored in the registry.
//
// Transform runs a fixed sequence of stages:
//
//  1. Decode: sniff the payload and composite every frame onto a full canvas.
//  2. Orient: bake JPEG EXIF orientation into the pixels.
//  3. Pad: grow the canvas to the configured minimum (and square) size,
//     centering the original on transparency. Pixels are never scaled or
//     discarded.
//  4. Encode: an animated source becomes an APNG when requested, otherwise
//     the first frame is written as a static PNG.
package imaging

// DefaultMaxPixels bounds the decoded canvas area (4096×4096).
const DefaultMaxPixels = 4096 * 4096

// Options controls the transform stages.
type Options struct {
	// MinWidth and MinHeight are minimum canvas dimensions; 0 means none.
	MinWidth  int
	MinHeight int

	// ForceSquare grows the canvas to a square of the larger side.
	ForceSquare bool

	// AnimatedToAPNG keeps animation by re-encoding as APNG. When false only
	// the first frame of an animated source is kept, or the default image
	// of an APNG that carries one.
	AnimatedToAPNG bool

	// MaxPixels rejects larger canvases before a full decode; 0 disables.
	MaxPixels int
}

// Result is the final encoded image with its metadata.
type Result struct {
	Data         []byte
	ContentType  string
	Width        int
	Height       int
	Animated     bool
	Frames       int
	SourceFormat string
	// Padded reports whether the canvas was grown.
	Padded bool
}

// Transform decodes data and returns the normalized encoding.
func Transform(data []byte, opts Options) (*Result, error) {
	anim, err := Decode(data, opts.MaxPixels)
	if err != nil {
		return nil, err
	}

	oriented := false
	if anim.Format == FormatJPEG {
		if o := readOrientation(data); o > 1 {
			anim.Frames[0].Image = orient(anim.Frames[0].Image, o)
			oriented = true
		}
	}

	b := anim.Bounds()
	tw, th := TargetCanvas(b.Dx(), b.Dy(), opts)
	padded := tw != b.Dx() || th != b.Dy()
	if padded {
		padAll(anim, tw, th)
	}

	res := &Result{
		Width:        tw,
		Height:       th,
		SourceFormat: anim.Format,
		Padded:       padded,
	}

	if anim.Animated() && opts.AnimatedToAPNG {
		out, err := encodeAPNG(anim)
		if err != nil {
			return nil, err
		}
		res.Data = out
		res.ContentType = ContentTypeAPNG
		res.Animated = true
		res.Frames = len(anim.Frames)
		return res, nil
	}

	res.ContentType = ContentTypePNG
	res.Frames = 1

	// A static PNG that needs no change is stored byte-for-byte.
	if anim.Format == FormatPNG && !padded && !oriented {
		res.Data = data
		return res, nil
	}

	still := anim.Frames[0]
	if anim.Still != nil {
		still = Frame{Image: anim.Still}
	}
	out, err := encodePNG(still)
	if err != nil {
		return nil, err
	}
	res.Data = out
	return res, nil
}
