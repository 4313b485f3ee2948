// Package ico packs PNG-encoded images into a single multi-resolution icon
// container (the Windows .ico layout) and parses such containers back.
package ico

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

const (
	// HeaderSize is the size of the ICONDIR header in bytes.
	HeaderSize = 6
	// DirEntrySize is the size of one ICONDIRENTRY in bytes.
	DirEntrySize = 16
	// MaxDimension is the largest width or height a directory entry can describe.
	MaxDimension = 256
	// MaxEntries is the largest number of images a container can hold.
	MaxEntries = math.MaxUint16

	// TypeIcon is the resource type written in the header.
	TypeIcon uint16 = 1
	// BitCount is the color depth recorded for every entry.
	BitCount uint16 = 32
)

var (
	// ErrOutOfRange is returned when an entry's width or height is not in (0, 256].
	ErrOutOfRange = errors.New("icon dimension out of range")
	// ErrInvalidInput is returned for an empty entry list, an empty payload or
	// too many entries.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMalformed is returned by Parse for data that is not a valid container.
	ErrMalformed = errors.New("malformed icon container")
)

// Entry is one image to pack: its declared dimensions and its encoded bytes.
type Entry struct {
	// The width of the image in pixels, 1..256.
	Width int `json:"width"`
	// The height of the image in pixels, 1..256.
	Height int `json:"height"`
	// The PNG-encoded image.
	Data []byte `json:"-"`
}

// Header is the 6-byte ICONDIR record.
type Header struct {
	Reserved uint16
	Type     uint16
	Count    uint16
}

// DirEntry is the 16-byte ICONDIRENTRY record. Width and Height use 0 to
// mean 256.
type DirEntry struct {
	Width      uint8
	Height     uint8
	ColorCount uint8
	Reserved   uint8
	Planes     uint16
	BitCount   uint16
	Size       uint32
	Offset     uint32
}

// Dimensions returns the width and height described by the entry, mapping 0
// back to 256.
func (d DirEntry) Dimensions() (int, int) {
	return decodeDimension(d.Width), decodeDimension(d.Height)
}

// Validate checks every entry without writing anything.
//
// Arguments:
//   - entries: The images to pack.
//
// Returns:
//   - error: ErrInvalidInput or ErrOutOfRange for the first invalid entry.
func Validate(entries []Entry) error {
	if len(entries) == 0 {
		return errors.Wrap(ErrInvalidInput, "no images to pack")
	}
	if len(entries) > MaxEntries {
		return errors.Wrapf(ErrInvalidInput, "%d images exceed the container limit of %d", len(entries), MaxEntries)
	}

	total := uint64(HeaderSize + DirEntrySize*len(entries))
	for i, e := range entries {
		if e.Width <= 0 || e.Width > MaxDimension || e.Height <= 0 || e.Height > MaxDimension {
			return errors.Wrapf(ErrOutOfRange, "entry %d is %dx%d", i, e.Width, e.Height)
		}
		if len(e.Data) == 0 {
			return errors.Wrapf(ErrInvalidInput, "entry %d has no image data", i)
		}
		total += uint64(len(e.Data))
	}
	if total > math.MaxUint32 {
		return errors.Wrapf(ErrInvalidInput, "container would be %d bytes", total)
	}
	return nil
}

// Directory computes the header and directory for entries, in input order.
// Payload offsets start right after the directory and are contiguous.
func Directory(entries []Entry) (Header, []DirEntry, error) {
	if err := Validate(entries); err != nil {
		return Header{}, nil, err
	}

	header := Header{Reserved: 0, Type: TypeIcon, Count: uint16(len(entries))}
	dir := make([]DirEntry, 0, len(entries))
	offset := uint32(HeaderSize + DirEntrySize*len(entries))
	for _, e := range entries {
		dir = append(dir, DirEntry{
			Width:      encodeDimension(e.Width),
			Height:     encodeDimension(e.Height),
			ColorCount: 0,
			Reserved:   0,
			Planes:     1,
			BitCount:   BitCount,
			Size:       uint32(len(e.Data)),
			Offset:     offset,
		})
		offset += uint32(len(e.Data))
	}
	return header, dir, nil
}

// Encode writes the container for entries to w. All entries are validated
// before the first byte is written.
//
// Arguments:
//   - w: The destination.
//   - entries: The images to pack, in directory order.
//
// Returns:
//   - error: A validation error, or the first write error.
func Encode(w io.Writer, entries []Entry) error {
	header, dir, err := Directory(entries)
	if err != nil {
		return err
	}

	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	if err := binary.Write(w, binary.LittleEndian, dir); err != nil {
		return errors.Wrap(err, "failed to write directory")
	}
	for i, e := range entries {
		if _, err := w.Write(e.Data); err != nil {
			return errors.Wrapf(err, "failed to write image %d", i)
		}
	}
	return nil
}

// Pack returns the container bytes for entries.
//
// Example:
//
// ```go
//
//	data, err := ico.Pack([]ico.Entry{
//		{Width: 16, Height: 16, Data: png16},
//		{Width: 32, Height: 32, Data: png32},
//	})
//
// ```
func Pack(entries []Entry) ([]byte, error) {
	size := HeaderSize + DirEntrySize*len(entries)
	for _, e := range entries {
		size += len(e.Data)
	}

	var buf bytes.Buffer
	buf.Grow(size)
	if err := Encode(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeDimension(v int) uint8 {
	if v == MaxDimension {
		return 0
	}
	return uint8(v)
}

func decodeDimension(v uint8) int {
	if v == 0 {
		return MaxDimension
	}
	return int(v)
}
