package iconset

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	iosSizes     = []int{1024, 180, 167, 152, 120, 76, 60, 40, 29, 20}
	windowsSizes = []int{256, 128, 64, 48, 32, 24, 16}
	faviconSizes = []int{16, 32, 48}

	// Instagram post sizes keyed by aspect name, in display order.
	instagramSizes = []SizeSpec{
		{Label: "square", Width: 1080, Height: 1080},
		{Label: "portrait", Width: 1080, Height: 1352},
		{Label: "landscape", Width: 1080, Height: 568},
		{Label: "story", Width: 1080, Height: 1920},
	}
)

// DefaultInstagramAspect is used when no aspect name is given.
const DefaultInstagramAspect = "square"

// Presets lists the names accepted by ParseSizes in addition to explicit lists.
var Presets = []string{"ios", "windows", "favicon", "instagram"}

// IOSSizes returns the iOS app icon sizes, largest first.
func IOSSizes() []SizeSpec { return squares(iosSizes) }

// WindowsSizes returns the sizes of a Windows application icon, largest first.
func WindowsSizes() []SizeSpec { return squares(windowsSizes) }

// FaviconSizes returns the classic favicon.ico sizes.
func FaviconSizes() []SizeSpec { return squares(faviconSizes) }

// InstagramSizes returns every Instagram post size, labelled by aspect name.
func InstagramSizes() []SizeSpec { return append([]SizeSpec(nil), instagramSizes...) }

// InstagramAspects returns the aspect names accepted by InstagramSize.
func InstagramAspects() []string {
	names := make([]string, len(instagramSizes))
	for i, s := range instagramSizes {
		names[i] = s.Label
	}
	return names
}

// InstagramSize returns the post size for an aspect name. An empty name
// selects DefaultInstagramAspect.
func InstagramSize(aspect string) (SizeSpec, error) {
	aspect = strings.ToLower(strings.TrimSpace(aspect))
	if aspect == "" {
		aspect = DefaultInstagramAspect
	}
	for _, s := range instagramSizes {
		if s.Label == aspect {
			return s, nil
		}
	}
	return SizeSpec{}, errors.Wrapf(ErrInvalidInput, "unknown instagram aspect %q, want one of %s",
		aspect, strings.Join(InstagramAspects(), ", "))
}

func squares(sizes []int) []SizeSpec {
	out := make([]SizeSpec, len(sizes))
	for i, s := range sizes {
		out[i] = Square(s)
	}
	return out
}

// ParseSizes parses a size list.
//
// Accepted forms:
//   - a preset name: "ios", "windows", "favicon" or "instagram"
//   - comma separated sizes: "16,32,48" or "64x32"
//   - labelled sizes: "small=16,wide=64x32"
//
// Arguments:
//   - s: The size list.
//
// Returns:
//   - []SizeSpec: The parsed sizes in input order.
//   - error: ErrInvalidInput if any element cannot be parsed.
func ParseSizes(s string) ([]SizeSpec, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "ios":
		return IOSSizes(), nil
	case "windows":
		return WindowsSizes(), nil
	case "favicon":
		return FaviconSizes(), nil
	case "instagram":
		return InstagramSizes(), nil
	case "":
		return nil, errors.Wrap(ErrInvalidInput, "empty size list")
	}

	var sizes []SizeSpec
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		label, dims, labelled := strings.Cut(part, "=")
		if !labelled {
			dims = part
		}
		dims = strings.TrimSpace(dims)

		w, h, err := parseDimensions(dims)
		if err != nil {
			return nil, errors.Wrapf(err, "size %q", part)
		}
		if !labelled {
			label = dims
		}
		sizes = append(sizes, SizeSpec{Label: strings.TrimSpace(label), Width: w, Height: h})
	}

	if len(sizes) == 0 {
		return nil, errors.Wrap(ErrInvalidInput, "empty size list")
	}
	return sizes, nil
}

func parseDimensions(s string) (int, int, error) {
	ws, hs, rect := strings.Cut(strings.ToLower(s), "x")
	w, err := strconv.Atoi(ws)
	if err != nil || w <= 0 {
		return 0, 0, errors.Wrapf(ErrInvalidInput, "invalid width %q", ws)
	}
	if !rect {
		return w, w, nil
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h <= 0 {
		return 0, 0, errors.Wrapf(ErrInvalidInput, "invalid height %q", hs)
	}
	return w, h, nil
}
