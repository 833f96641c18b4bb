// Package transcode decodes uploaded images, optionally resizes them and
// re-encodes them as WebP.
package transcode

import (
	"context"
	"errors"
	"fmt"
)

// MaxDimension is the largest width or height a WebP bitstream can carry.
const MaxDimension = 16383

// MaxSourcePixels bounds the decoded size of an upload. A compressed
// payload well under the body cap can declare a canvas far larger.
const MaxSourcePixels = 50_000_000

var (
	ErrInvalidImage      = errors.New("provided data is not an image")
	ErrInvalidDimensions = errors.New("invalid target dimensions")
	ErrEncode            = errors.New("failed to convert image to WebP")
)

// Target holds exact output dimensions. Aspect ratio is not preserved.
type Target struct {
	Width  uint32
	Height uint32
}

type Result struct {
	Data         []byte
	Width        int
	Height       int
	SourceFormat string
}

type Options struct {
	// Quality applies to lossy encoders only. Zero keeps the encoder default.
	Quality int
}

type Transcoder interface {
	Transcode(ctx context.Context, raw []byte, target *Target) (Result, error)
}

// New returns the transcoder backend compiled into this binary.
func New(opts Options) (Transcoder, error) {
	if opts.Quality < 0 || opts.Quality > 100 {
		return nil, fmt.Errorf("webp quality must be within 0-100, got %d", opts.Quality)
	}
	return newTranscoder(opts)
}

func validateTarget(target *Target) error {
	if target == nil {
		return nil
	}
	if target.Width == 0 || target.Height == 0 {
		return fmt.Errorf("%w: width and height must be at least 1, got %dx%d", ErrInvalidDimensions, target.Width, target.Height)
	}
	if target.Width > MaxDimension || target.Height > MaxDimension {
		return fmt.Errorf("%w: width and height must not exceed %d, got %dx%d", ErrInvalidDimensions, MaxDimension, target.Width, target.Height)
	}
	return nil
}

func checkEncodable(width, height int) error {
	if width > MaxDimension || height > MaxDimension {
		return fmt.Errorf("%w: %dx%d exceeds the %d pixel limit", ErrEncode, width, height, MaxDimension)
	}
	return nil
}

func checkSourcePixels(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: zero-area canvas %dx%d", ErrInvalidImage, width, height)
	}
	if int64(width)*int64(height) > MaxSourcePixels {
		return fmt.Errorf("%w: %dx%d exceeds the %d pixel decode budget", ErrInvalidImage, width, height, MaxSourcePixels)
	}
	return nil
}
