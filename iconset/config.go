// Package iconset turns one base image into a labelled set of resized icon
// PNGs and, optionally, a packed multi-resolution icon container.
package iconset

import (
	"math"
	"strconv"
	"strings"

	"github.com/nvr-ai/go-icongen/images"
	"github.com/pkg/errors"
)

// ErrInvalidInput is returned when a Config or base image is rejected before
// any processing starts. It is the same sentinel as images.ErrInvalidInput.
var ErrInvalidInput = images.ErrInvalidInput

// DefaultCornerRadiusFraction approximates the iOS app icon corner radius.
const DefaultCornerRadiusFraction = 0.2237

// SizeSpec is a named output size.
type SizeSpec struct {
	// Label identifies the output, e.g. "180". Labels are unique within a Config.
	Label string `json:"label" yaml:"label"`
	// Width is the output width in pixels.
	Width int `json:"width" yaml:"width"`
	// Height is the output height in pixels.
	Height int `json:"height" yaml:"height"`
}

// Square returns a SizeSpec labelled with its pixel size.
func Square(size int) SizeSpec {
	return SizeSpec{Label: strconv.Itoa(size), Width: size, Height: size}
}

// Packable reports whether the size fits in an icon container directory entry.
func (s SizeSpec) Packable() bool {
	return s.Width <= 256 && s.Height <= 256
}

// Config controls one Builder run.
type Config struct {
	// RemoveBackground applies the matte passed to Run.
	RemoveBackground bool `json:"remove_background" yaml:"remove_background"`
	// CornerMask applies a rounded-rectangle mask before resizing.
	CornerMask bool `json:"corner_mask" yaml:"corner_mask"`
	// CornerRadiusFraction is the corner radius relative to the shorter side.
	// Values above 0.5 are clamped.
	CornerRadiusFraction float64 `json:"corner_radius_fraction" yaml:"corner_radius_fraction"`
	// PackContainer packs every size up to 256x256 into one icon container.
	PackContainer bool `json:"pack_container" yaml:"pack_container"`
	// TargetSizes lists the outputs in order.
	TargetSizes []SizeSpec `json:"target_sizes" yaml:"target_sizes"`
	// Filter is the resampling filter used for every size.
	Filter images.ResampleFilter `json:"filter" yaml:"filter"`
	// Concurrency bounds the number of sizes processed at once. 0 means GOMAXPROCS.
	Concurrency int `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	// Source describes where the base image came from. Echoed into metadata.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// Validate checks the config before any pixel work.
//
// Returns:
//   - error: ErrInvalidInput describing the first problem found.
func (c Config) Validate() error {
	if len(c.TargetSizes) == 0 {
		return errors.Wrap(ErrInvalidInput, "no target sizes")
	}

	seen := make(map[string]int, len(c.TargetSizes))
	for i, s := range c.TargetSizes {
		if s.Label == "" {
			return errors.Wrapf(ErrInvalidInput, "target size %d has an empty label", i)
		}
		if strings.ContainsAny(s.Label, `/\`) || s.Label == "." || s.Label == ".." {
			return errors.Wrapf(ErrInvalidInput, "label %q is not a valid file name component", s.Label)
		}
		if prev, ok := seen[s.Label]; ok {
			return errors.Wrapf(ErrInvalidInput, "label %q is used by target sizes %d and %d", s.Label, prev, i)
		}
		seen[s.Label] = i
		if s.Width <= 0 || s.Height <= 0 {
			return errors.Wrapf(ErrInvalidInput, "target size %q has invalid dimensions %dx%d", s.Label, s.Width, s.Height)
		}
	}

	if math.IsNaN(c.CornerRadiusFraction) || math.IsInf(c.CornerRadiusFraction, 0) || c.CornerRadiusFraction < 0 {
		return errors.Wrapf(ErrInvalidInput, "corner radius fraction %v must be a non-negative number", c.CornerRadiusFraction)
	}
	if c.Concurrency < 0 {
		return errors.Wrapf(ErrInvalidInput, "concurrency %d must not be negative", c.Concurrency)
	}
	return nil
}

// clone returns a copy that shares no slices with c.
func (c Config) clone() Config {
	c.TargetSizes = append([]SizeSpec(nil), c.TargetSizes...)
	return c
}
