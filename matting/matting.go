// Package matting extracts background mattes for generated icons, either from
// the image's own alpha channel or by running a salient-object segmentation
// model through ONNX Runtime.
package matting

import (
	"context"
	"image"

	"github.com/nvr-ai/go-icongen/images"
	"github.com/pkg/errors"
)

var (
	// ErrNoAlpha is returned by ChannelRemover for images without transparency.
	ErrNoAlpha = errors.New("image has no transparent pixels")
	// ErrModelNotFound is returned when the model file does not exist.
	ErrModelNotFound = errors.New("matting model not found")
	// ErrClosed is returned when a closed remover is used.
	ErrClosed = errors.New("remover is closed")
)

// Remover produces a matte with the dimensions of the given image, 255 for
// foreground and 0 for background.
type Remover interface {
	RemoveBackground(ctx context.Context, img *images.Image) (*image.Gray, error)
}

// RemoverFunc adapts a function to the Remover interface.
type RemoverFunc func(ctx context.Context, img *images.Image) (*image.Gray, error)

// RemoveBackground calls f.
func (f RemoverFunc) RemoveBackground(ctx context.Context, img *images.Image) (*image.Gray, error) {
	return f(ctx, img)
}

// ChannelRemover uses the image's own alpha channel as the matte. It suits
// generators that already return cut-out subjects.
type ChannelRemover struct{}

// RemoveBackground returns the alpha channel of img, or ErrNoAlpha when every
// pixel is opaque.
func (ChannelRemover) RemoveBackground(ctx context.Context, img *images.Image) (*image.Gray, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matte, err := images.AlphaMatte(img)
	if err != nil {
		return nil, err
	}
	for _, a := range matte.Pix {
		if a != 0xff {
			return matte, nil
		}
	}
	return nil, ErrNoAlpha
}
