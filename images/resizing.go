package images

import (
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	xdraw "golang.org/x/image/draw"
)

// FitPolicy decides how a source maps into a target box of another shape.
type FitPolicy int

const (
	// FitCover scales the source to fill the target and centre-crops the excess.
	FitCover FitPolicy = iota
	// FitContain scales the source to fit inside the target and pads the rest.
	FitContain
)

// String returns the policy name.
func (p FitPolicy) String() string {
	switch p {
	case FitCover:
		return "cover"
	case FitContain:
		return "contain"
	default:
		return "unknown"
	}
}

// ParseFitPolicy parses "cover" or "contain".
func ParseFitPolicy(s string) (FitPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cover", "":
		return FitCover, nil
	case "contain":
		return FitContain, nil
	default:
		return 0, errors.Wrapf(ErrInvalidInput, "unknown fit policy %q", s)
	}
}

// ResampleFilter selects the interpolation kernel used when scaling.
type ResampleFilter int

const (
	// Lanczos3 is the default filter, matching the LANCZOS resampling used for
	// app icon exports.
	Lanczos3 ResampleFilter = iota
	// CatmullRom is a cubic filter, slightly softer than Lanczos3.
	CatmullRom
	// Bilinear is a fast linear filter.
	Bilinear
	// NearestNeighbor keeps hard pixel edges, useful for pixel art.
	NearestNeighbor
)

// String returns the filter name.
func (f ResampleFilter) String() string {
	switch f {
	case Lanczos3:
		return "lanczos3"
	case CatmullRom:
		return "catmullrom"
	case Bilinear:
		return "bilinear"
	case NearestNeighbor:
		return "nearest"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f ResampleFilter) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *ResampleFilter) UnmarshalText(text []byte) error {
	parsed, err := ParseResampleFilter(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseResampleFilter parses a filter name as returned by String.
func ParseResampleFilter(s string) (ResampleFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lanczos3", "lanczos", "":
		return Lanczos3, nil
	case "catmullrom", "catmull-rom", "bicubic":
		return CatmullRom, nil
	case "bilinear":
		return Bilinear, nil
	case "nearest", "nearestneighbor":
		return NearestNeighbor, nil
	default:
		return 0, errors.Wrapf(ErrInvalidInput, "unknown resample filter %q", s)
	}
}

// Transparent is the fully transparent background used for padding by default.
var Transparent = color.NRGBA{}

// coverEpsilon absorbs float error so an exact fit is not rounded up by a pixel.
const coverEpsilon = 1e-6

// Resize scales img into a width x height box with the Lanczos3 filter.
//
// Arguments:
//   - img: The source image.
//   - width: The target width, must be positive.
//   - height: The target height, must be positive.
//   - fit: FitCover to fill and crop, FitContain to fit and pad.
//   - background: The padding color for FitContain.
//
// Returns:
//   - *Image: A new image of exactly width x height pixels.
//   - error: ErrInvalidInput if the source or the target dimensions are invalid.
//
// Example:
//
// ```go
//
//	icon, err := images.Resize(base, 180, 180, images.FitCover, images.Transparent)
//	if err != nil {
//		return err
//	}
//
// ```
func Resize(img *Image, width, height int, fit FitPolicy, background color.NRGBA) (*Image, error) {
	return ResizeWithFilter(img, width, height, fit, background, Lanczos3)
}

// ResizeWithFilter is Resize with an explicit resampling filter.
func ResizeWithFilter(
	img *Image,
	width, height int,
	fit FitPolicy,
	background color.NRGBA,
	filter ResampleFilter,
) (*Image, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "invalid target dimensions: %dx%d", width, height)
	}

	src := img.NRGBA()
	srcWidth := float64(img.Width)
	srcHeight := float64(img.Height)
	scaleX := float64(width) / srcWidth
	scaleY := float64(height) / srcHeight

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	format := img.Format

	switch fit {
	case FitCover:
		scale := math.Max(scaleX, scaleY)
		newWidth := max(width, int(math.Ceil(srcWidth*scale-coverEpsilon)))
		newHeight := max(height, int(math.Ceil(srcHeight*scale-coverEpsilon)))

		scaled := scaleImage(src, newWidth, newHeight, filter)

		// Centre crop.
		offset := image.Pt((newWidth-width)/2, (newHeight-height)/2)
		xdraw.Draw(dst, dst.Bounds(), scaled, scaled.Bounds().Min.Add(offset), xdraw.Src)

	case FitContain:
		scale := math.Min(scaleX, scaleY)
		newWidth := min(width, max(1, int(math.Round(srcWidth*scale))))
		newHeight := min(height, max(1, int(math.Round(srcHeight*scale))))

		scaled := scaleImage(src, newWidth, newHeight, filter)

		padLeft := (width - newWidth) / 2
		padTop := (height - newHeight) / 2

		// Letterbox.
		xdraw.Draw(dst, dst.Bounds(), &image.Uniform{C: background}, image.Point{}, xdraw.Src)
		xdraw.Draw(dst, image.Rect(padLeft, padTop, padLeft+newWidth, padTop+newHeight),
			scaled, scaled.Bounds().Min, xdraw.Over)

		padded := newWidth != width || newHeight != height
		if padded && background.A < 0xff {
			format = PixelFormatRGBA
		}

	default:
		return nil, errors.Wrapf(ErrInvalidInput, "unknown fit policy: %d", fit)
	}

	return fromNRGBA(dst, format), nil
}

// scaleImage resamples src to exactly width x height.
func scaleImage(src *image.NRGBA, width, height int, filter ResampleFilter) image.Image {
	switch filter {
	case CatmullRom:
		dst := image.NewNRGBA(image.Rect(0, 0, width, height))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
		return dst
	case Bilinear:
		return resize.Resize(uint(width), uint(height), src, resize.Bilinear)
	case NearestNeighbor:
		return resize.Resize(uint(width), uint(height), src, resize.NearestNeighbor)
	default:
		return resize.Resize(uint(width), uint(height), src, resize.Lanczos3)
	}
}

// fromNRGBA copies an origin-anchored NRGBA into an Image of the given format.
func fromNRGBA(src *image.NRGBA, format PixelFormat) *Image {
	b := src.Bounds()
	out := &Image{Width: b.Dx(), Height: b.Dy(), Format: format}
	if format == PixelFormatRGBA {
		out.Pix = make([]byte, len(src.Pix))
		copy(out.Pix, src.Pix)
		return out
	}
	out.Pix = make([]byte, out.Width*out.Height*3)
	for s, d := 0, 0; s < len(src.Pix); s, d = s+4, d+3 {
		out.Pix[d] = src.Pix[s]
		out.Pix[d+1] = src.Pix[s+1]
		out.Pix[d+2] = src.Pix[s+2]
	}
	return out
}
