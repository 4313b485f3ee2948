package images

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var red = color.NRGBA{R: 255, A: 255}

// TestResizeCover checks that cover fills the whole target with no padding.
func TestResizeCover(t *testing.T) {
	tests := []struct {
		name          string
		srcW, srcH    int
		width, height int
	}{
		{name: "landscape to square", srcW: 200, srcH: 100, width: 64, height: 64},
		{name: "portrait to square", srcW: 90, srcH: 160, width: 48, height: 48},
		{name: "square to landscape", srcW: 100, srcH: 100, width: 60, height: 20},
		{name: "exact fit", srcW: 100, srcH: 100, width: 50, height: 50},
		{name: "upscale", srcW: 10, srcH: 10, width: 33, height: 33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := solidImage(t, tt.srcW, tt.srcH, PixelFormatRGBA, red)

			out, err := Resize(src, tt.width, tt.height, FitCover, Transparent)
			require.NoError(t, err)
			require.NoError(t, out.Validate())
			assert.Equal(t, tt.width, out.Width)
			assert.Equal(t, tt.height, out.Height)

			for y := 0; y < out.Height; y++ {
				for x := 0; x < out.Width; x++ {
					require.Equal(t, uint8(255), out.Alpha(x, y), "pixel (%d,%d) is padding", x, y)
				}
			}
			assert.Equal(t, red, out.At(tt.width/2, tt.height/2))
		})
	}
}

// TestResizeCoverKeepsRGB checks that an opaque source stays RGB under cover.
func TestResizeCoverKeepsRGB(t *testing.T) {
	src := solidImage(t, 40, 30, PixelFormatRGB, red)

	out, err := Resize(src, 16, 16, FitCover, Transparent)
	require.NoError(t, err)
	assert.Equal(t, PixelFormatRGB, out.Format)
	assert.Len(t, out.Pix, 16*16*3)
}

// TestResizeContain checks that contain letterboxes without cropping the source.
func TestResizeContain(t *testing.T) {
	src := solidImage(t, 200, 100, PixelFormatRGB, red)

	out, err := Resize(src, 64, 64, FitContain, Transparent)
	require.NoError(t, err)
	assert.Equal(t, 64, out.Width)
	assert.Equal(t, 64, out.Height)
	assert.Equal(t, PixelFormatRGBA, out.Format, "transparent padding needs an alpha channel")

	opaque := 0
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			a := out.Alpha(x, y)
			if y < 16 || y >= 48 {
				require.Equal(t, uint8(0), a, "pixel (%d,%d) should be padding", x, y)
			} else {
				require.Equal(t, uint8(255), a, "pixel (%d,%d) should be content", x, y)
				opaque++
			}
		}
	}

	// The whole source is visible: 200x100 scaled by 0.32 is 64x32.
	assert.Equal(t, 64*32, opaque)
}

func TestResizeContainOpaqueBackground(t *testing.T) {
	src := solidImage(t, 100, 50, PixelFormatRGB, red)
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}

	out, err := Resize(src, 40, 40, FitContain, white)
	require.NoError(t, err)
	assert.Equal(t, PixelFormatRGB, out.Format)
	assert.Equal(t, white, out.At(0, 0))
	assert.Equal(t, red, out.At(20, 20))
}

func TestResizeFilters(t *testing.T) {
	src := solidImage(t, 64, 64, PixelFormatRGBA, red)

	for _, filter := range []ResampleFilter{Lanczos3, CatmullRom, Bilinear, NearestNeighbor} {
		t.Run(filter.String(), func(t *testing.T) {
			out, err := ResizeWithFilter(src, 20, 10, FitCover, Transparent, filter)
			require.NoError(t, err)
			assert.Equal(t, 20, out.Width)
			assert.Equal(t, 10, out.Height)
			assert.Equal(t, red, out.At(10, 5))
		})
	}
}

func TestResizeInvalid(t *testing.T) {
	valid := solidImage(t, 8, 8, PixelFormatRGB, red)

	tests := []struct {
		name          string
		img           *Image
		width, height int
	}{
		{name: "zero width", img: valid, width: 0, height: 8},
		{name: "negative height", img: valid, width: 8, height: -1},
		{name: "nil image", img: nil, width: 8, height: 8},
		{name: "empty buffer", img: &Image{Width: 8, Height: 8, Format: PixelFormatRGB}, width: 4, height: 4},
		{name: "buffer mismatch", img: &Image{Width: 8, Height: 8, Format: PixelFormatRGB, Pix: make([]byte, 10)}, width: 4, height: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resize(tt.img, tt.width, tt.height, FitCover, Transparent)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestParseFitPolicy(t *testing.T) {
	fit, err := ParseFitPolicy("Contain")
	require.NoError(t, err)
	assert.Equal(t, FitContain, fit)

	fit, err = ParseFitPolicy("")
	require.NoError(t, err)
	assert.Equal(t, FitCover, fit)

	_, err = ParseFitPolicy("stretch")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestResampleFilterText(t *testing.T) {
	var f ResampleFilter
	require.NoError(t, f.UnmarshalText([]byte("bicubic")))
	assert.Equal(t, CatmullRom, f)

	text, err := NearestNeighbor.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "nearest", string(text))

	assert.Error(t, f.UnmarshalText([]byte("sinc")))
}
