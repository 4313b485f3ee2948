package ico

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/pkg/errors"
)

// File is a parsed container. Payloads[i] is the image described by Directory[i]
// and aliases the parsed data.
type File struct {
	Header    Header
	Directory []DirEntry
	Payloads  [][]byte
}

// Entries returns the images of the file in directory order.
func (f *File) Entries() []Entry {
	entries := make([]Entry, len(f.Directory))
	for i, d := range f.Directory {
		w, h := d.Dimensions()
		entries[i] = Entry{Width: w, Height: h, Data: f.Payloads[i]}
	}
	return entries
}

// Parse reads a container produced by Pack or any other icon writer.
//
// Arguments:
//   - data: The container bytes.
//
// Returns:
//   - *File: The header, directory and payload slices.
//   - error: ErrMalformed if the header is wrong, the directory is truncated,
//     or a payload is empty, out of bounds or overlaps another.
func Parse(data []byte) (*File, error) {
	if len(data) < HeaderSize {
		return nil, errors.Wrapf(ErrMalformed, "%d bytes is shorter than the header", len(data))
	}

	r := bytes.NewReader(data)
	var header Header
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, errors.Wrapf(ErrMalformed, "failed to read header: %v", err)
	}
	if header.Reserved != 0 || header.Type != TypeIcon {
		return nil, errors.Wrapf(ErrMalformed, "unexpected header reserved=%d type=%d", header.Reserved, header.Type)
	}
	if header.Count == 0 {
		return nil, errors.Wrap(ErrMalformed, "container holds no images")
	}

	dirEnd := HeaderSize + DirEntrySize*int(header.Count)
	if len(data) < dirEnd {
		return nil, errors.Wrapf(ErrMalformed, "directory of %d entries is truncated", header.Count)
	}

	dir := make([]DirEntry, header.Count)
	if err := binary.Read(r, binary.LittleEndian, dir); err != nil {
		return nil, errors.Wrapf(ErrMalformed, "failed to read directory: %v", err)
	}

	payloads := make([][]byte, len(dir))
	for i, d := range dir {
		start := uint64(d.Offset)
		end := start + uint64(d.Size)
		if d.Size == 0 || start < uint64(dirEnd) || end > uint64(len(data)) {
			return nil, errors.Wrapf(ErrMalformed, "entry %d spans [%d, %d) outside [%d, %d)",
				i, start, end, dirEnd, len(data))
		}
		payloads[i] = data[start:end:end]
	}

	order := make([]int, len(dir))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return dir[order[a]].Offset < dir[order[b]].Offset
	})
	for k := 1; k < len(order); k++ {
		prev, cur := dir[order[k-1]], dir[order[k]]
		if uint64(prev.Offset)+uint64(prev.Size) > uint64(cur.Offset) {
			return nil, errors.Wrapf(ErrMalformed, "entries %d and %d overlap", order[k-1], order[k])
		}
	}

	return &File{Header: header, Directory: dir, Payloads: payloads}, nil
}
