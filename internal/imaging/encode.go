package imaging

import (
	"bytes"
	"image/png"

	"github.com/kettek/apng"
)

// Content types of the encoded output.
const (
	ContentTypePNG  = "image/png"
	ContentTypeAPNG = "image/apng"
)

var pngEncoder = png.Encoder{CompressionLevel: png.BestCompression}

func encodePNG(f Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := pngEncoder.Encode(&buf, f.Image); err != nil {
		return nil, &EncodeError{Format: FormatPNG, Err: err}
	}
	return buf.Bytes(), nil
}

// encodeAPNG writes every frame full-canvas with source blending, so the
// output does not depend on how the source expressed its deltas.
func encodeAPNG(anim *Animation) ([]byte, error) {
	out := apng.APNG{
		Frames:    make([]apng.Frame, len(anim.Frames)),
		LoopCount: uint(anim.Plays),
	}
	for i, f := range anim.Frames {
		out.Frames[i] = apng.Frame{
			Image:            f.Image,
			DelayNumerator:   f.DelayNum,
			DelayDenominator: f.DelayDen,
			DisposeOp:        apng.DISPOSE_OP_NONE,
			BlendOp:          apng.BLEND_OP_SOURCE,
		}
	}

	var buf bytes.Buffer
	if err := apng.Encode(&buf, out); err != nil {
		return nil, &EncodeError{Format: FormatAPNG, Err: err}
	}
	return buf.Bytes(), nil
}
