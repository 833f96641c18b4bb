//go:build govips && cgo

package transcode

import (
	"context"
	"fmt"

	"github.com/davidbyttow/govips/v2/vips"
)

type govipsTranscoder struct {
	quality int
}

func (t govipsTranscoder) Transcode(ctx context.Context, raw []byte, target *Target) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}

	if err := validateTarget(target); err != nil {
		return Result{}, err
	}

	imageType := vips.DetermineImageType(raw)
	if imageType == vips.ImageTypeUnknown {
		return Result{}, fmt.Errorf("%w: unrecognized format", ErrInvalidImage)
	}

	img, err := vips.NewImageFromBuffer(raw)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	defer img.Close()

	if err := checkSourcePixels(img.Width(), img.Height()); err != nil {
		return Result{}, err
	}

	if target != nil {
		if err := resizeExact(img, int(target.Width), int(target.Height)); err != nil {
			return Result{}, err
		}
	}

	if err := checkEncodable(img.Width(), img.Height()); err != nil {
		return Result{}, err
	}

	params := vips.NewWebpExportParams()
	if t.quality > 0 {
		params.Quality = t.quality
	}
	data, _, err := img.ExportWebp(params)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	return Result{
		Data:         data,
		Width:        img.Width(),
		Height:       img.Height(),
		SourceFormat: vips.ImageTypes[imageType],
	}, nil
}

// resizeExact scales each axis independently, so aspect ratio is not kept.
func resizeExact(img *vips.ImageRef, width, height int) error {
	hscale := float64(width) / float64(img.Width())
	vscale := float64(height) / float64(img.Height())
	if err := img.ResizeWithVScale(hscale, vscale, vips.KernelLanczos3); err != nil {
		return fmt.Errorf("%w: resize: %v", ErrEncode, err)
	}
	if img.Width() != width || img.Height() != height {
		return fmt.Errorf("%w: resize produced %dx%d, want %dx%d", ErrEncode, img.Width(), img.Height(), width, height)
	}
	return nil
}
