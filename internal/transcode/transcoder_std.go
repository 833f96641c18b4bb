package transcode

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/HugoSmits86/nativewebp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// nativeTranscoder is pure Go. Its WebP output is lossless (VP8L), so
// Options.Quality has no effect.
type nativeTranscoder struct{}

func (t nativeTranscoder) Transcode(ctx context.Context, raw []byte, target *Target) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}

	if err := validateTarget(target); err != nil {
		return Result{}, err
	}

	src, format, err := decodeImage(raw)
	if err != nil {
		return Result{}, err
	}

	out := src
	if target != nil {
		out = imaging.Resize(src, int(target.Width), int(target.Height), imaging.Lanczos)
	}

	bounds := out.Bounds()
	if err := checkEncodable(bounds.Dx(), bounds.Dy()); err != nil {
		return Result{}, err
	}

	data, err := encodeWebP(out)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Data:         data,
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
		SourceFormat: format,
	}, nil
}

func decodeImage(raw []byte) (img image.Image, format string, err error) {
	if len(raw) == 0 {
		return nil, "", fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}

	// Some third-party decoders panic on crafted input.
	defer func() {
		if r := recover(); r != nil {
			img, format, err = nil, "", fmt.Errorf("%w: decoder panic: %v", ErrInvalidImage, r)
		}
	}()

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if err := checkSourcePixels(cfg.Width, cfg.Height); err != nil {
		return nil, "", err
	}

	img, format, err = image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if format == "gif" {
		img = onCanvas(img, cfg.Width, cfg.Height)
	}
	if img.Bounds().Empty() {
		return nil, "", fmt.Errorf("%w: zero-area %s image", ErrInvalidImage, format)
	}
	return img, format, nil
}

// onCanvas places a GIF frame on its logical screen. Frames may be smaller
// than the screen and offset within it.
func onCanvas(frame image.Image, width, height int) image.Image {
	canvas := image.Rect(0, 0, width, height)
	if frame.Bounds() == canvas {
		return frame
	}
	dst := image.NewNRGBA(canvas)
	area := frame.Bounds().Intersect(canvas)
	draw.Draw(dst, area, frame, area.Min, draw.Src)
	return dst
}

func encodeWebP(img image.Image) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("%w: encoder panic: %v", ErrEncode, r)
		}
	}()

	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, img, &nativewebp.Options{}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return buf.Bytes(), nil
}
