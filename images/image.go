// Package images - In-memory rasters, codecs and the resize/mask transforms used
// to turn one generated image into a set of icon assets.
package images

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// PixelFormat is the channel layout of an Image's pixel buffer.
type PixelFormat int

const (
	// PixelFormatRGB stores 3 bytes per pixel and is implicitly opaque.
	PixelFormatRGB PixelFormat = iota + 1
	// PixelFormatRGBA stores 4 bytes per pixel, non-premultiplied.
	PixelFormatRGBA
)

// Channels returns the number of bytes per pixel for the format.
func (f PixelFormat) Channels() int {
	switch f {
	case PixelFormatRGB:
		return 3
	case PixelFormatRGBA:
		return 4
	default:
		return 0
	}
}

// String returns the format name.
func (f PixelFormat) String() string {
	switch f {
	case PixelFormatRGB:
		return "rgb"
	case PixelFormatRGBA:
		return "rgba"
	default:
		return "unknown"
	}
}

// Image is a raster held in memory. Pix is row-major and tightly packed with
// Format.Channels() bytes per pixel.
//
// An Image is treated as immutable once produced: every transform in this
// package allocates and returns a new Image.
type Image struct {
	// The width of the image.
	Width int `json:"width" yaml:"width"`
	// The height of the image.
	Height int `json:"height" yaml:"height"`
	// The pixel format of the image.
	Format PixelFormat `json:"format" yaml:"format"`
	// The pixel data of the image.
	Pix []byte `json:"-" yaml:"-"`
}

// New allocates a zeroed image of the given size and format.
//
// Arguments:
//   - width: The width in pixels, must be positive.
//   - height: The height in pixels, must be positive.
//   - format: The pixel format.
//
// Returns:
//   - *Image: The allocated image.
//   - error: ErrInvalidInput if the dimensions or format are invalid.
func New(width, height int, format PixelFormat) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "invalid image dimensions: %dx%d", width, height)
	}
	if format.Channels() == 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "unknown pixel format: %d", format)
	}
	return &Image{
		Width:  width,
		Height: height,
		Format: format,
		Pix:    make([]byte, width*height*format.Channels()),
	}, nil
}

// Validate checks that the image has positive dimensions and a pixel buffer
// that matches them.
func (img *Image) Validate() error {
	if img == nil {
		return errors.Wrap(ErrInvalidInput, "image is nil")
	}
	if img.Width <= 0 || img.Height <= 0 {
		return errors.Wrapf(ErrInvalidInput, "invalid image dimensions: %dx%d", img.Width, img.Height)
	}
	channels := img.Format.Channels()
	if channels == 0 {
		return errors.Wrapf(ErrInvalidInput, "unknown pixel format: %d", img.Format)
	}
	if len(img.Pix) == 0 {
		return errors.Wrap(ErrInvalidInput, "image data is empty")
	}
	if want := img.Width * img.Height * channels; len(img.Pix) != want {
		return errors.Wrapf(ErrInvalidInput, "pixel buffer holds %d bytes, want %d", len(img.Pix), want)
	}
	return nil
}

// HasAlpha reports whether the image carries an alpha channel.
func (img *Image) HasAlpha() bool {
	return img.Format == PixelFormatRGBA
}

// Bounds returns the image rectangle anchored at the origin.
func (img *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, img.Width, img.Height)
}

// At returns the non-premultiplied color at (x, y). RGB pixels are opaque.
func (img *Image) At(x, y int) color.NRGBA {
	c := img.Format.Channels()
	i := (y*img.Width + x) * c
	if c == 3 {
		return color.NRGBA{R: img.Pix[i], G: img.Pix[i+1], B: img.Pix[i+2], A: 0xff}
	}
	return color.NRGBA{R: img.Pix[i], G: img.Pix[i+1], B: img.Pix[i+2], A: img.Pix[i+3]}
}

// Alpha returns the alpha value at (x, y).
func (img *Image) Alpha(x, y int) uint8 {
	if img.Format != PixelFormatRGBA {
		return 0xff
	}
	return img.Pix[(y*img.Width+x)*4+3]
}

// Clone returns a deep copy of the image.
func (img *Image) Clone() *Image {
	pix := make([]byte, len(img.Pix))
	copy(pix, img.Pix)
	return &Image{Width: img.Width, Height: img.Height, Format: img.Format, Pix: pix}
}

// ToRGBA returns a copy of the image in PixelFormatRGBA.
func (img *Image) ToRGBA() *Image {
	if img.Format == PixelFormatRGBA {
		return img.Clone()
	}
	out := &Image{Width: img.Width, Height: img.Height, Format: PixelFormatRGBA, Pix: make([]byte, img.Width*img.Height*4)}
	for s, d := 0, 0; s < len(img.Pix); s, d = s+3, d+4 {
		out.Pix[d] = img.Pix[s]
		out.Pix[d+1] = img.Pix[s+1]
		out.Pix[d+2] = img.Pix[s+2]
		out.Pix[d+3] = 0xff
	}
	return out
}

// NRGBA converts the image into a freshly allocated *image.NRGBA.
func (img *Image) NRGBA() *image.NRGBA {
	dst := image.NewNRGBA(img.Bounds())
	if img.Format == PixelFormatRGBA {
		copy(dst.Pix, img.Pix)
		return dst
	}
	for s, d := 0, 0; s < len(img.Pix); s, d = s+3, d+4 {
		dst.Pix[d] = img.Pix[s]
		dst.Pix[d+1] = img.Pix[s+1]
		dst.Pix[d+2] = img.Pix[s+2]
		dst.Pix[d+3] = 0xff
	}
	return dst
}

// FromImage copies any image.Image into an Image. Sources that report
// themselves as opaque become PixelFormatRGB, everything else PixelFormatRGBA.
//
// Arguments:
//   - src: The image to copy.
//
// Returns:
//   - *Image: The copied image.
//   - error: ErrInvalidInput if src is nil or empty.
func FromImage(src image.Image) (*Image, error) {
	if src == nil {
		return nil, errors.Wrap(ErrInvalidInput, "image is nil")
	}
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "invalid image dimensions: %dx%d", b.Dx(), b.Dy())
	}

	format := PixelFormatRGBA
	if o, ok := src.(interface{ Opaque() bool }); ok && o.Opaque() {
		format = PixelFormatRGB
	}

	out, err := New(b.Dx(), b.Dy(), format)
	if err != nil {
		return nil, err
	}

	c := format.Channels()
	if n, ok := src.(*image.NRGBA); ok {
		for y := 0; y < out.Height; y++ {
			row := n.Pix[n.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < out.Width; x++ {
				d := (y*out.Width + x) * c
				copy(out.Pix[d:d+c], row[x*4:x*4+c])
			}
		}
		return out, nil
	}

	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			px := color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			d := (y*out.Width + x) * c
			out.Pix[d] = px.R
			out.Pix[d+1] = px.G
			out.Pix[d+2] = px.B
			if c == 4 {
				out.Pix[d+3] = px.A
			}
		}
	}
	return out, nil
}

// Encoded is an image in its persisted byte form together with its declared
// dimensions.
type Encoded struct {
	// The format of the image.
	Format ImageFormat `json:"format" yaml:"format"`
	// The data of the image.
	Data []byte `json:"data" yaml:"data"`
	// The width of the image.
	Width int `json:"width" yaml:"width"`
	// The height of the image.
	Height int `json:"height" yaml:"height"`
}

// ImageFormat represents supported encoded image formats.
type ImageFormat string

// ImageFormat constants
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatUnknown is returned when the header matches none of the above.
	FormatUnknown ImageFormat = ""
)
