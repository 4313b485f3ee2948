package images

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// solidImage builds a width x height image filled with c in the given format.
func solidImage(t *testing.T, width, height int, format PixelFormat, c color.NRGBA) *Image {
	t.Helper()

	img, err := New(width, height, format)
	require.NoError(t, err)

	ch := format.Channels()
	for i := 0; i < len(img.Pix); i += ch {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		if ch == 4 {
			img.Pix[i+3] = c.A
		}
	}
	return img
}

func TestNew(t *testing.T) {
	img, err := New(4, 3, PixelFormatRGBA)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Width)
	assert.Equal(t, 3, img.Height)
	assert.Len(t, img.Pix, 4*3*4)

	_, err = New(0, 3, PixelFormatRGB)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = New(3, 3, PixelFormat(9))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		img  *Image
		ok   bool
	}{
		{name: "nil", img: nil},
		{name: "zero width", img: &Image{Width: 0, Height: 2, Format: PixelFormatRGB, Pix: make([]byte, 6)}},
		{name: "unknown format", img: &Image{Width: 1, Height: 1, Pix: make([]byte, 3)}},
		{name: "empty buffer", img: &Image{Width: 2, Height: 2, Format: PixelFormatRGB}},
		{name: "short buffer", img: &Image{Width: 2, Height: 2, Format: PixelFormatRGBA, Pix: make([]byte, 12)}},
		{name: "valid rgb", img: &Image{Width: 2, Height: 2, Format: PixelFormatRGB, Pix: make([]byte, 12)}, ok: true},
		{name: "valid rgba", img: &Image{Width: 2, Height: 2, Format: PixelFormatRGBA, Pix: make([]byte, 16)}, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.img.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidInput)
			}
		})
	}
}

func TestFromImage(t *testing.T) {
	t.Run("opaque source becomes rgb", func(t *testing.T) {
		src := image.NewRGBA(image.Rect(0, 0, 3, 2))
		for i := range src.Pix {
			src.Pix[i] = 0xff
		}

		img, err := FromImage(src)
		require.NoError(t, err)
		assert.Equal(t, PixelFormatRGB, img.Format)
		assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, img.At(2, 1))
	})

	t.Run("translucent source keeps alpha", func(t *testing.T) {
		src := image.NewNRGBA(image.Rect(10, 10, 14, 12))
		src.SetNRGBA(11, 10, color.NRGBA{R: 10, G: 20, B: 30, A: 40})

		img, err := FromImage(src)
		require.NoError(t, err)
		assert.Equal(t, PixelFormatRGBA, img.Format)
		assert.Equal(t, 4, img.Width)
		assert.Equal(t, 2, img.Height)
		assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 40}, img.At(1, 0))
		assert.Equal(t, uint8(0), img.Alpha(0, 0))
	})

	t.Run("nil source", func(t *testing.T) {
		_, err := FromImage(nil)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestToRGBA(t *testing.T) {
	src := solidImage(t, 2, 2, PixelFormatRGB, color.NRGBA{R: 1, G: 2, B: 3})

	out := src.ToRGBA()
	assert.Equal(t, PixelFormatRGBA, out.Format)
	assert.Equal(t, color.NRGBA{R: 1, G: 2, B: 3, A: 255}, out.At(1, 1))

	// The source is untouched.
	assert.Equal(t, PixelFormatRGB, src.Format)
	assert.Len(t, src.Pix, 12)
}
