package imaging

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"github.com/kettek/apng"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// Source formats recognised by Decode.
const (
	FormatPNG  = "png"
	FormatAPNG = "apng"
	FormatGIF  = "gif"
	FormatJPEG = "jpeg"
	FormatWebP = "webp"
	FormatBMP  = "bmp"
)

// Frame is one fully composited animation frame. Delay is expressed as a
// fraction of a second (DelayNum/DelayDen), the representation shared by
// GIF (centiseconds) and APNG.
type Frame struct {
	Image    *image.NRGBA
	DelayNum uint16
	DelayDen uint16
}

// Animation is the working representation of a decoded image. A static
// image is an Animation with a single frame.
type Animation struct {
	Format string
	Frames []Frame
	// Plays is the number of times the sequence plays; 0 loops forever.
	Plays int
	// Still is the APNG default image, shown by viewers that do not
	// animate. It is nil when the default image is also the first frame.
	Still *image.NRGBA
}

// Animated reports whether the source carried more than one frame.
func (a *Animation) Animated() bool { return len(a.Frames) > 1 }

// Bounds returns the canvas size shared by every frame.
func (a *Animation) Bounds() image.Rectangle {
	if len(a.Frames) == 0 {
		return image.Rectangle{}
	}
	return a.Frames[0].Image.Bounds()
}

type configFunc func(io.Reader) (image.Config, error)

// sniff identifies the payload from its magic bytes.
func sniff(data []byte) (string, error) {
	switch ct := http.DetectContentType(data); ct {
	case "image/png":
		if isAnimatedPNG(data) {
			return FormatAPNG, nil
		}
		return FormatPNG, nil
	case "image/gif":
		return FormatGIF, nil
	case "image/jpeg":
		return FormatJPEG, nil
	case "image/webp":
		return FormatWebP, nil
	case "image/bmp":
		return FormatBMP, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ct)
	}
}

// isAnimatedPNG reports whether an acTL chunk precedes the first IDAT.
func isAnimatedPNG(data []byte) bool {
	const sigLen = 8
	pos := sigLen
	for pos+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		kind := string(data[pos+4 : pos+8])
		switch kind {
		case "acTL":
			return true
		case "IDAT", "IEND":
			return false
		}
		if length < 0 || pos+12+length > len(data) {
			return false
		}
		pos += 12 + length
	}
	return false
}

// Decode sniffs and decodes data into composited frames. maxPixels bounds
// the canvas area checked before the full decode; 0 disables the check.
func Decode(data []byte, maxPixels int) (*Animation, error) {
	format, err := sniff(data)
	if err != nil {
		return nil, err
	}

	var cfgFn configFunc
	switch format {
	case FormatPNG, FormatAPNG:
		cfgFn = png.DecodeConfig
	case FormatGIF:
		cfgFn = gif.DecodeConfig
	case FormatJPEG:
		cfgFn = jpeg.DecodeConfig
	case FormatWebP:
		cfgFn = webp.DecodeConfig
	case FormatBMP:
		cfgFn = bmp.DecodeConfig
	}

	cfg, err := cfgFn(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Format: format, Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, &DecodeError{Format: format, Err: fmt.Errorf("empty canvas %dx%d", cfg.Width, cfg.Height)}
	}
	if maxPixels > 0 && cfg.Width*cfg.Height > maxPixels {
		return nil, &DecodeError{Format: format, Err: fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)}
	}

	var anim *Animation
	switch format {
	case FormatGIF:
		anim, err = decodeGIF(data)
	case FormatAPNG:
		anim, err = decodeAPNG(data)
	default:
		anim, err = decodeStill(format, data)
	}
	if err != nil {
		return nil, &DecodeError{Format: format, Err: err}
	}
	return anim, nil
}

func decodeStill(format string, data []byte) (*Animation, error) {
	var (
		img image.Image
		err error
	)
	r := bytes.NewReader(data)
	switch format {
	case FormatPNG:
		img, err = png.Decode(r)
	case FormatJPEG:
		img, err = jpeg.Decode(r)
	case FormatWebP:
		img, err = webp.Decode(r)
	case FormatBMP:
		img, err = bmp.Decode(r)
	default:
		return nil, fmt.Errorf("no still decoder for %s", format)
	}
	if err != nil {
		return nil, err
	}
	return &Animation{
		Format: format,
		Frames: []Frame{{Image: toNRGBA(img)}},
	}, nil
}

// decodeGIF composites every GIF frame onto the logical screen, honouring
// per-frame disposal, so each output frame is a complete picture.
func decodeGIF(data []byte) (*Animation, error) {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if len(g.Image) == 0 {
		return nil, fmt.Errorf("gif has no frames")
	}

	screen := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if screen.Empty() {
		screen = g.Image[0].Bounds()
	}

	canvas := image.NewNRGBA(screen)
	frames := make([]Frame, 0, len(g.Image))
	for i, src := range g.Image {
		var disposal byte
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		var restore *image.NRGBA
		if disposal == gif.DisposalPrevious {
			restore = cloneNRGBA(canvas)
		}

		draw.Draw(canvas, src.Bounds(), src, src.Bounds().Min, draw.Over)

		delay := 0
		if i < len(g.Delay) {
			delay = g.Delay[i]
		}
		frames = append(frames, Frame{
			Image:    cloneNRGBA(canvas),
			DelayNum: clampDelay(delay),
			DelayDen: 100,
		})

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, src.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = restore
		}
	}

	return &Animation{
		Format: FormatGIF,
		Frames: frames,
		Plays:  gifPlays(g.LoopCount),
	}, nil
}

// gifPlays converts GIF LoopCount semantics into a play count.
func gifPlays(loopCount int) int {
	switch {
	case loopCount == 0:
		return 0
	case loopCount < 0:
		return 1
	default:
		return loopCount + 1
	}
}

// decodeAPNG composites APNG frames honouring offsets, blend and dispose ops.
func decodeAPNG(data []byte) (*Animation, error) {
	a, err := apng.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if len(a.Frames) == 0 {
		return nil, fmt.Errorf("apng has no frames")
	}

	first := a.Frames[0].Image.Bounds()
	canvas := image.NewNRGBA(image.Rect(0, 0, first.Dx(), first.Dy()))
	frames := make([]Frame, 0, len(a.Frames))
	var still *image.NRGBA
	for _, f := range a.Frames {
		if f.IsDefault {
			still = toNRGBA(f.Image)
			continue
		}
		sb := f.Image.Bounds()
		region := image.Rect(0, 0, sb.Dx(), sb.Dy()).Add(image.Pt(f.XOffset, f.YOffset))

		var restore *image.NRGBA
		if f.DisposeOp == apng.DISPOSE_OP_PREVIOUS {
			restore = cloneNRGBA(canvas)
		}

		op := draw.Over
		if f.BlendOp == apng.BLEND_OP_SOURCE {
			op = draw.Src
		}
		draw.Draw(canvas, region, f.Image, sb.Min, op)

		den := f.DelayDenominator
		if den == 0 {
			den = 100
		}
		frames = append(frames, Frame{
			Image:    cloneNRGBA(canvas),
			DelayNum: f.DelayNumerator,
			DelayDen: den,
		})

		switch f.DisposeOp {
		case apng.DISPOSE_OP_BACKGROUND:
			draw.Draw(canvas, region, image.Transparent, image.Point{}, draw.Src)
		case apng.DISPOSE_OP_PREVIOUS:
			canvas = restore
		}
	}
	if len(frames) == 0 {
		return &Animation{Format: FormatAPNG, Frames: []Frame{{Image: still}}}, nil
	}

	return &Animation{
		Format: FormatAPNG,
		Frames: frames,
		Plays:  int(a.LoopCount),
		Still:  still,
	}, nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func cloneNRGBA(src *image.NRGBA) *image.NRGBA {
	dst := &image.NRGBA{
		Pix:    make([]uint8, len(src.Pix)),
		Stride: src.Stride,
		Rect:   src.Rect,
	}
	copy(dst.Pix, src.Pix)
	return dst
}

func clampDelay(d int) uint16 {
	if d < 0 {
		return 0
	}
	if d > 0xFFFF {
		return 0xFFFF
	}
	return uint16(d)
}
