package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"testing"

	"github.com/kettek/apng"
)

var (
	red   = color.NRGBA{R: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}

	testPalette = color.Palette{color.Transparent, red, blue, green}
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func encodeTestPNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func decodeTestPNG(t *testing.T, data []byte) *image.NRGBA {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	return toNRGBA(img)
}

func testGIF(t *testing.T, delays ...int) []byte {
	t.Helper()
	g := &gif.GIF{LoopCount: 0}
	colors := []color.Color{red, blue, green}
	for i, d := range delays {
		frame := image.NewPaletted(image.Rect(0, 0, 8, 6), testPalette)
		for y := 0; y < 6; y++ {
			for x := 0; x < 8; x++ {
				frame.Set(x, y, colors[i%len(colors)])
			}
		}
		g.Image = append(g.Image, frame)
		g.Delay = append(g.Delay, d)
		g.Disposal = append(g.Disposal, gif.DisposalNone)
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		t.Fatalf("gif.EncodeAll: %v", err)
	}
	return buf.Bytes()
}

// ============================================================================
// TargetCanvas Tests
// ============================================================================

func TestTargetCanvas(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		opts         Options
		wantW, wantH int
	}{
		{"no constraints", 10, 20, Options{}, 10, 20},
		{"minimums grow both axes", 10, 20, Options{MinWidth: 32, MinHeight: 32}, 32, 32},
		{"minimum below size is ignored", 64, 48, Options{MinWidth: 16, MinHeight: 16}, 64, 48},
		{"square uses larger side", 30, 10, Options{ForceSquare: true}, 30, 30},
		{"square after minimums", 10, 10, Options{MinWidth: 40, ForceSquare: true}, 40, 40},
		{"never downscales", 500, 400, Options{MinWidth: 64, MinHeight: 64, ForceSquare: true}, 500, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotW, gotH := TargetCanvas(tt.w, tt.h, tt.opts)
			if gotW != tt.wantW || gotH != tt.wantH {
				t.Errorf("TargetCanvas(%d, %d) = %dx%d, want %dx%d", tt.w, tt.h, gotW, gotH, tt.wantW, tt.wantH)
			}
			if gotW < tt.w || gotH < tt.h || gotW < tt.opts.MinWidth || gotH < tt.opts.MinHeight {
				t.Errorf("canvas %dx%d shrank below input or minimums", gotW, gotH)
			}
			if tt.opts.ForceSquare && gotW != gotH {
				t.Errorf("ForceSquare produced %dx%d", gotW, gotH)
			}
		})
	}
}

// ============================================================================
// Transform Tests
// ============================================================================

func TestTransform_PadsCenteredWithTransparentBorder(t *testing.T) {
	data := encodeTestPNG(t, solid(10, 10, red))

	res, err := Transform(data, Options{MinWidth: 20, MinHeight: 20})
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if res.Width != 20 || res.Height != 20 || !res.Padded {
		t.Fatalf("result = %dx%d padded=%v, want 20x20 padded", res.Width, res.Height, res.Padded)
	}

	out := decodeTestPNG(t, res.Data)
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			got := out.NRGBAAt(x, y)
			inside := x >= 5 && x < 15 && y >= 5 && y < 15
			if inside && got != red {
				t.Fatalf("pixel (%d,%d) = %v, want original content", x, y, got)
			}
			if !inside && got.A != 0 {
				t.Fatalf("pixel (%d,%d) alpha = %d, want transparent border", x, y, got.A)
			}
		}
	}
}

func TestTransform_PassThroughIsNoOp(t *testing.T) {
	src := solid(32, 24, blue)
	src.SetNRGBA(3, 4, color.NRGBA{R: 12, G: 34, B: 56, A: 128})
	data := encodeTestPNG(t, src)

	res, err := Transform(data, Options{MinWidth: 16, MinHeight: 16})
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if res.Padded {
		t.Error("Padded = true, want false")
	}
	if !bytes.Equal(res.Data, data) {
		t.Error("static PNG within limits was re-encoded")
	}
}

func TestTransform_ForceSquare(t *testing.T) {
	data := encodeTestPNG(t, solid(30, 10, red))

	res, err := Transform(data, Options{ForceSquare: true})
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if res.Width != 30 || res.Height != 30 {
		t.Fatalf("result = %dx%d, want 30x30", res.Width, res.Height)
	}

	out := decodeTestPNG(t, res.Data)
	if got := out.NRGBAAt(15, 15); got != red {
		t.Errorf("center pixel = %v, want red", got)
	}
	if got := out.NRGBAAt(15, 0); got.A != 0 {
		t.Errorf("top padding alpha = %d, want 0", got.A)
	}
}

func TestTransform_UnsupportedFormat(t *testing.T) {
	_, err := Transform([]byte("<html><body>not found</body></html>"), Options{})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestTransform_CorruptPNG(t *testing.T) {
	data := encodeTestPNG(t, solid(4, 4, red))
	corrupt := append([]byte{}, data[:30]...)

	_, err := Transform(corrupt, Options{})
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("error = %v, want *DecodeError", err)
	}
	if decErr.Format != FormatPNG {
		t.Errorf("DecodeError.Format = %q, want %q", decErr.Format, FormatPNG)
	}
}

func TestTransform_MaxPixels(t *testing.T) {
	data := encodeTestPNG(t, solid(64, 64, red))

	_, err := Transform(data, Options{MaxPixels: 100})
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("error = %v, want ErrTooLarge", err)
	}
}

func TestTransform_AnimatedToAPNG(t *testing.T) {
	data := testGIF(t, 10, 20, 30)

	res, err := Transform(data, Options{MinWidth: 20, MinHeight: 20, AnimatedToAPNG: true})
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if !res.Animated || res.Frames != 3 || res.ContentType != ContentTypeAPNG {
		t.Fatalf("result animated=%v frames=%d type=%q, want animated APNG with 3 frames",
			res.Animated, res.Frames, res.ContentType)
	}

	a, err := apng.DecodeAll(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("apng.DecodeAll: %v", err)
	}
	var frames []apng.Frame
	for _, f := range a.Frames {
		if !f.IsDefault {
			frames = append(frames, f)
		}
	}
	if len(frames) != 3 {
		t.Fatalf("decoded %d frames, want 3", len(frames))
	}

	wantDelays := []uint16{10, 20, 30}
	for i, f := range frames {
		b := f.Image.Bounds()
		if b.Dx() != 20 || b.Dy() != 20 {
			t.Errorf("frame %d size = %dx%d, want 20x20", i, b.Dx(), b.Dy())
		}
		if f.DelayNumerator != wantDelays[i] || f.DelayDenominator != 100 {
			t.Errorf("frame %d delay = %d/%d, want %d/100", i, f.DelayNumerator, f.DelayDenominator, wantDelays[i])
		}
	}
}

func TestTransform_AnimatedFlattenedByDefault(t *testing.T) {
	data := testGIF(t, 10, 10)

	res, err := Transform(data, Options{})
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if res.Animated || res.Frames != 1 || res.ContentType != ContentTypePNG {
		t.Fatalf("result animated=%v frames=%d type=%q, want static PNG", res.Animated, res.Frames, res.ContentType)
	}
	if res.SourceFormat != FormatGIF {
		t.Errorf("SourceFormat = %q, want %q", res.SourceFormat, FormatGIF)
	}

	out := decodeTestPNG(t, res.Data)
	if got := out.NRGBAAt(0, 0); got != red {
		t.Errorf("pixel (0,0) = %v, want first frame color %v", got, red)
	}
}

func TestTransform_APNGDefaultImageIsStill(t *testing.T) {
	var buf bytes.Buffer
	err := apng.Encode(&buf, apng.APNG{Frames: []apng.Frame{
		{Image: solid(4, 4, green), IsDefault: true},
		{Image: solid(4, 4, red), DelayNumerator: 1, DelayDenominator: 10},
		{Image: solid(4, 4, blue), DelayNumerator: 1, DelayDenominator: 10},
	}})
	if err != nil {
		t.Fatalf("apng.Encode: %v", err)
	}

	tests := []struct {
		name       string
		opts       Options
		wantFrames int
		wantPixel  color.NRGBA
	}{
		{"static uses default image", Options{}, 1, green},
		{"padded static uses default image", Options{MinWidth: 8, MinHeight: 8}, 1, green},
		{"animation skips default image", Options{AnimatedToAPNG: true}, 2, red},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Transform(buf.Bytes(), tt.opts)
			if err != nil {
				t.Fatalf("Transform() error = %v", err)
			}
			if res.Frames != tt.wantFrames {
				t.Errorf("Frames = %d, want %d", res.Frames, tt.wantFrames)
			}
			out := decodeTestPNG(t, res.Data)
			c := out.Bounds().Dx() / 2
			if got := out.NRGBAAt(c, c); got != tt.wantPixel {
				t.Errorf("center pixel = %v, want %v", got, tt.wantPixel)
			}
		})
	}
}

func TestDecode_GIFCompositesPartialFrames(t *testing.T) {
	full := image.NewPaletted(image.Rect(0, 0, 4, 4), testPalette)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			full.Set(x, y, red)
		}
	}
	patch := image.NewPaletted(image.Rect(2, 2, 4, 4), testPalette)
	for y := 2; y < 4; y++ {
		for x := 2; x < 4; x++ {
			patch.Set(x, y, blue)
		}
	}
	g := &gif.GIF{
		Image:    []*image.Paletted{full, patch},
		Delay:    []int{5, 7},
		Disposal: []byte{gif.DisposalNone, gif.DisposalNone},
		Config:   image.Config{Width: 4, Height: 4, ColorModel: testPalette},
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		t.Fatalf("gif.EncodeAll: %v", err)
	}

	anim, err := Decode(buf.Bytes(), 0)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(anim.Frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(anim.Frames))
	}
	second := anim.Frames[1]
	if second.Image.Bounds().Dx() != 4 {
		t.Errorf("second frame width = %d, want full canvas", second.Image.Bounds().Dx())
	}
	if got := second.Image.NRGBAAt(0, 0); got != red {
		t.Errorf("pixel (0,0) = %v, want previous frame content %v", got, red)
	}
	if got := second.Image.NRGBAAt(3, 3); got != blue {
		t.Errorf("pixel (3,3) = %v, want patch %v", got, blue)
	}
	if second.DelayNum != 7 || second.DelayDen != 100 {
		t.Errorf("second delay = %d/%d, want 7/100", second.DelayNum, second.DelayDen)
	}
}

func TestIsAnimatedPNG(t *testing.T) {
	static := encodeTestPNG(t, solid(2, 2, red))
	if isAnimatedPNG(static) {
		t.Error("static PNG reported as animated")
	}

	var buf bytes.Buffer
	err := apng.Encode(&buf, apng.APNG{Frames: []apng.Frame{
		{Image: solid(2, 2, red), DelayNumerator: 1, DelayDenominator: 10},
		{Image: solid(2, 2, blue), DelayNumerator: 1, DelayDenominator: 10},
	}})
	if err != nil {
		t.Fatalf("apng.Encode: %v", err)
	}
	if !isAnimatedPNG(buf.Bytes()) {
		t.Error("APNG not detected")
	}
}

// ============================================================================
// Orientation Tests
// ============================================================================

func TestOrient(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, red)
	src.SetNRGBA(1, 0, blue)

	tests := []struct {
		orientation int
		wantW       int
		wantH       int
		first       color.NRGBA // pixel at (0,0)
	}{
		{1, 2, 1, red},
		{2, 2, 1, blue},
		{3, 2, 1, blue},
		{4, 2, 1, red},
		{6, 1, 2, red},
		{8, 1, 2, blue},
	}

	for _, tt := range tests {
		got := orient(src, tt.orientation)
		b := got.Bounds()
		if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
			t.Errorf("orientation %d: size %dx%d, want %dx%d", tt.orientation, b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			continue
		}
		if p := got.NRGBAAt(0, 0); p != tt.first {
			t.Errorf("orientation %d: pixel (0,0) = %v, want %v", tt.orientation, p, tt.first)
		}
	}
}
