package images

import (
	"image"
	"image/color"
	"math"

	"github.com/pkg/errors"
)

// MaxCornerRadiusFraction is the largest corner radius, as a fraction of the
// shorter side, that ApplyCornerMask honours. Larger values are clamped.
const MaxCornerRadiusFraction = 0.5

// ApplyMatte replaces the alpha channel of base with the matte values.
//
// Arguments:
//   - base: The image to mask.
//   - alpha: A single-channel matte with exactly the dimensions of base.
//
// Returns:
//   - *Image: A new RGBA image with base's color and the matte's alpha.
//   - error: ErrDimensionMismatch if the matte and image sizes differ,
//     ErrInvalidInput if either input is invalid.
func ApplyMatte(base *Image, alpha *image.Gray) (*Image, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	if alpha == nil {
		return nil, errors.Wrap(ErrInvalidInput, "matte is nil")
	}
	ab := alpha.Bounds()
	if ab.Dx() != base.Width || ab.Dy() != base.Height {
		return nil, errors.Wrapf(ErrDimensionMismatch, "matte is %dx%d, image is %dx%d",
			ab.Dx(), ab.Dy(), base.Width, base.Height)
	}

	out := base.ToRGBA()
	for y := 0; y < out.Height; y++ {
		row := alpha.Pix[alpha.PixOffset(ab.Min.X, ab.Min.Y+y):]
		for x := 0; x < out.Width; x++ {
			out.Pix[(y*out.Width+x)*4+3] = row[x]
		}
	}
	return out, nil
}

// ApplyCornerMask multiplies a rounded-rectangle mask into the image's alpha.
// The radius is radiusFraction times the shorter side; the fraction is clamped
// to [0, MaxCornerRadiusFraction]. A fraction of 0 returns an unchanged copy.
//
// The mask is binary and sampled at pixel centres, so applying it twice with
// the same radius yields the same result as applying it once.
//
// Arguments:
//   - img: The image to mask. RGB images are treated as opaque.
//   - radiusFraction: The corner radius relative to min(width, height).
//
// Returns:
//   - *Image: A new image, RGBA unless the fraction was 0.
//   - error: ErrInvalidInput if the image is invalid.
func ApplyCornerMask(img *Image, radiusFraction float64) (*Image, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}

	fraction := ClampRadiusFraction(radiusFraction)
	if fraction == 0 {
		return img.Clone(), nil
	}

	radius := fraction * float64(min(img.Width, img.Height))
	mask := RoundedRectMask(img.Width, img.Height, radius)

	out := img.ToRGBA()
	for i, m := range mask.Pix {
		if m == 0 {
			out.Pix[i*4+3] = 0
		}
	}
	return out, nil
}

// ClampRadiusFraction limits a corner radius fraction to [0, 0.5]. NaN maps to 0.
func ClampRadiusFraction(fraction float64) float64 {
	if math.IsNaN(fraction) || fraction <= 0 {
		return 0
	}
	if fraction > MaxCornerRadiusFraction {
		return MaxCornerRadiusFraction
	}
	return fraction
}

// RoundedRectMask builds a binary width x height mask of a rounded rectangle
// covering the whole box. Pixels whose centre falls inside are 255, others 0.
//
// Coordinates are folded into the top-left quadrant before testing, which
// makes the mask exactly symmetric about both axes.
func RoundedRectMask(width, height int, radius float64) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, width, height))
	limit := float64(min(width, height)) / 2
	radius = math.Max(0, math.Min(radius, limit))
	r2 := radius * radius

	for y := 0; y < height; y++ {
		fy := min(y, height-1-y)
		for x := 0; x < width; x++ {
			fx := min(x, width-1-x)
			if insideCorner(float64(fx)+0.5, float64(fy)+0.5, radius, r2) {
				mask.Pix[y*mask.Stride+x] = 0xff
			}
		}
	}
	return mask
}

// insideCorner reports whether a top-left quadrant point lies inside the
// rounded boundary of a corner with the given radius.
func insideCorner(px, py, radius, r2 float64) bool {
	if px >= radius || py >= radius {
		return true
	}
	dx := radius - px
	dy := radius - py
	return dx*dx+dy*dy <= r2
}

// MatteFromFloats builds a matte from per-pixel coverage values in row-major
// order. Values are clamped to [0, 1] before scaling to 0..255.
//
// Arguments:
//   - width: The matte width.
//   - height: The matte height.
//   - values: width*height coverage values.
//
// Returns:
//   - *image.Gray: The matte.
//   - error: ErrInvalidInput if the dimensions or value count are invalid.
func MatteFromFloats(width, height int, values []float32) (*image.Gray, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "invalid matte dimensions: %dx%d", width, height)
	}
	if len(values) != width*height {
		return nil, errors.Wrapf(ErrInvalidInput, "matte holds %d values, want %d", len(values), width*height)
	}

	mask := image.NewGray(image.Rect(0, 0, width, height))
	for i, v := range values {
		switch {
		case v != v || v <= 0:
			mask.Pix[i] = 0
		case v >= 1:
			mask.Pix[i] = 0xff
		default:
			mask.Pix[i] = uint8(math.Round(float64(v) * 255))
		}
	}
	return mask, nil
}

// MatteFromImage extracts a matte from a decoded mask image. Images with
// transparency contribute their alpha channel; opaque images their luminance.
func MatteFromImage(src image.Image) (*image.Gray, error) {
	if src == nil {
		return nil, errors.Wrap(ErrInvalidInput, "matte image is nil")
	}
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "invalid matte dimensions: %dx%d", b.Dx(), b.Dy())
	}

	if g, ok := src.(*image.Gray); ok {
		mask := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			copy(mask.Pix[y*mask.Stride:(y+1)*mask.Stride], g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		return mask, nil
	}

	useAlpha := true
	if o, ok := src.(interface{ Opaque() bool }); ok && o.Opaque() {
		useAlpha = false
	}

	mask := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := src.At(b.Min.X+x, b.Min.Y+y)
			if useAlpha {
				mask.Pix[y*mask.Stride+x] = color.NRGBAModel.Convert(c).(color.NRGBA).A
			} else {
				mask.Pix[y*mask.Stride+x] = color.GrayModel.Convert(c).(color.Gray).Y
			}
		}
	}
	return mask, nil
}

// AlphaMatte returns the alpha channel of img as a matte.
func AlphaMatte(img *Image) (*image.Gray, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	mask := image.NewGray(img.Bounds())
	if !img.HasAlpha() {
		for i := range mask.Pix {
			mask.Pix[i] = 0xff
		}
		return mask, nil
	}
	for i := range mask.Pix {
		mask.Pix[i] = img.Pix[i*4+3]
	}
	return mask, nil
}
