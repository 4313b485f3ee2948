package ico

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"testing"

	goico "github.com/sergeymakinen/go-ico"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngOf encodes a size x size opaque square.
func pngOf(t *testing.T, size int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(size)
		img.Pix[i+3] = 0xff
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPackLayout(t *testing.T) {
	entries := []Entry{
		{Width: 16, Height: 16, Data: []byte{1, 2, 3}},
		{Width: 256, Height: 256, Data: []byte{4, 5}},
		{Width: 48, Height: 32, Data: []byte{6}},
	}

	data, err := Pack(entries)
	require.NoError(t, err)
	require.Len(t, data, HeaderSize+3*DirEntrySize+6)

	assert.Equal(t, []byte{0x00, 0x00, 0x01, 0x00, 0x03, 0x00}, data[:HeaderSize])

	first := data[HeaderSize : HeaderSize+DirEntrySize]
	assert.Equal(t, []byte{16, 16, 0, 0, 1, 0, 32, 0, 3, 0, 0, 0, 54, 0, 0, 0}, first)

	second := data[HeaderSize+DirEntrySize : HeaderSize+2*DirEntrySize]
	assert.Equal(t, uint8(0), second[0], "256 is written as 0")
	assert.Equal(t, uint8(0), second[1])
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(second[8:12]))
	assert.Equal(t, uint32(57), binary.LittleEndian.Uint32(second[12:16]))

	third := data[HeaderSize+2*DirEntrySize : HeaderSize+3*DirEntrySize]
	assert.Equal(t, uint8(48), third[0])
	assert.Equal(t, uint8(32), third[1])
	assert.Equal(t, uint32(59), binary.LittleEndian.Uint32(third[12:16]))

	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, data[54:])
}

// TestRoundTrip checks that parsing a packed container yields the input
// entries in order with byte-identical payloads.
func TestRoundTrip(t *testing.T) {
	var entries []Entry
	for _, size := range []int{16, 24, 32, 48, 64, 128, 256} {
		entries = append(entries, Entry{Width: size, Height: size, Data: pngOf(t, size)})
	}

	data, err := Pack(entries)
	require.NoError(t, err)

	file, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(len(entries)), file.Header.Count)
	assert.Equal(t, entries, file.Entries())

	for i, d := range file.Directory {
		assert.Equal(t, uint16(1), d.Planes)
		assert.Equal(t, BitCount, d.BitCount)
		assert.Equal(t, uint8(0), d.ColorCount)
		if i > 0 {
			prev := file.Directory[i-1]
			assert.Equal(t, prev.Offset+prev.Size, d.Offset, "payloads are contiguous")
		}
	}
}

func TestPackValidatesBeforeWriting(t *testing.T) {
	good := []byte{1}

	tests := []struct {
		name    string
		entries []Entry
		want    error
	}{
		{name: "empty", entries: nil, want: ErrInvalidInput},
		{name: "too wide", entries: []Entry{{Width: 16, Height: 16, Data: good}, {Width: 257, Height: 16, Data: good}}, want: ErrOutOfRange},
		{name: "zero height", entries: []Entry{{Width: 16, Height: 0, Data: good}}, want: ErrOutOfRange},
		{name: "negative width", entries: []Entry{{Width: -1, Height: 16, Data: good}}, want: ErrOutOfRange},
		{name: "empty payload", entries: []Entry{{Width: 16, Height: 16}}, want: ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := Encode(&buf, tt.entries)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, buf.Len(), "nothing is written on failure")

			data, err := Pack(tt.entries)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, data)
		})
	}
}

func TestParseMalformed(t *testing.T) {
	valid, err := Pack([]Entry{{Width: 8, Height: 8, Data: []byte{1, 2, 3, 4}}})
	require.NoError(t, err)

	overlapping, err := Pack([]Entry{
		{Width: 8, Height: 8, Data: []byte{1, 2}},
		{Width: 8, Height: 8, Data: []byte{3, 4}},
	})
	require.NoError(t, err)
	// Point the second entry at the first payload.
	binary.LittleEndian.PutUint32(overlapping[HeaderSize+DirEntrySize+12:], HeaderSize+2*DirEntrySize)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "short", data: []byte{0, 0, 1}},
		{name: "wrong type", data: append([]byte{0, 0, 2, 0}, valid[4:]...)},
		{name: "no images", data: []byte{0, 0, 1, 0, 0, 0}},
		{name: "truncated directory", data: valid[:HeaderSize+8]},
		{name: "truncated payload", data: valid[:len(valid)-1]},
		{name: "overlap", data: overlapping},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

// TestDecodableByIndependentReader checks the container against a third-party
// decoder.
func TestDecodableByIndependentReader(t *testing.T) {
	data, err := Pack([]Entry{
		{Width: 16, Height: 16, Data: pngOf(t, 16)},
		{Width: 32, Height: 32, Data: pngOf(t, 32)},
		{Width: 48, Height: 48, Data: pngOf(t, 48)},
	})
	require.NoError(t, err)

	img, err := goico.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Contains(t, []int{16, 32, 48}, img.Bounds().Dx())
	assert.Equal(t, img.Bounds().Dx(), img.Bounds().Dy())

	_, _, a := colorAt(img, 0, 0)
	assert.Equal(t, uint8(0xff), a)
}

func colorAt(img image.Image, x, y int) (uint8, uint8, uint8) {
	c := color.NRGBAModel.Convert(img.At(img.Bounds().Min.X+x, img.Bounds().Min.Y+y)).(color.NRGBA)
	return c.R, c.G, c.A
}

func TestDirEntryDimensions(t *testing.T) {
	w, h := DirEntry{Width: 0, Height: 200}.Dimensions()
	assert.Equal(t, 256, w)
	assert.Equal(t, 200, h)
}
