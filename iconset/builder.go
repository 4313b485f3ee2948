package iconset

import (
	"context"
	"image"
	"runtime"
	"sort"
	"time"

	"github.com/nvr-ai/go-icongen/ico"
	"github.com/nvr-ai/go-icongen/images"
	"github.com/nvr-ai/go-icongen/profiler"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Builder runs the post-processing pipeline. A Builder holds no per-run state
// and may be shared between goroutines.
type Builder struct {
	logger  *zap.Logger
	timings *profiler.Timings
	now     func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithTimings records per-stage durations into timings.
func WithTimings(timings *profiler.Timings) Option {
	return func(b *Builder) {
		b.timings = timings
	}
}

// WithClock sets the clock used for Metadata.GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run produces the artifact set for one base image.
//
// Arguments:
//   - ctx: Checked before each size is processed.
//   - base: The generated image.
//   - alpha: An optional matte with the dimensions of base, used when
//     cfg.RemoveBackground is set.
//   - cfg: The processing configuration.
//
// Returns:
//   - *ArtifactSet: Every target size, plus the container when requested and
//     possible. Packing problems are recorded as warnings.
//   - error: ErrInvalidInput for a rejected config or image, or the first
//     masking, resize or encoding error, wrapped with the size label. No
//     partial set is returned.
func (b *Builder) Run(ctx context.Context, base *images.Image, alpha *image.Gray, cfg Config) (*ArtifactSet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := base.Validate(); err != nil {
		return nil, errors.Wrap(err, "base image")
	}
	cfg = cfg.clone()

	var warnings []Warning
	working := base

	if cfg.RemoveBackground {
		if alpha != nil {
			done := b.timings.StartOperation("iconset.matte")
			masked, err := images.ApplyMatte(working, alpha)
			done()
			if err != nil {
				return nil, errors.Wrap(err, "failed to apply matte")
			}
			working = masked
			b.logger.Debug("applied matte", zap.Int("width", base.Width), zap.Int("height", base.Height))
		} else {
			warnings = append(warnings, Warning{
				Code:    WarningMatteMissing,
				Message: "background removal requested but no matte was supplied",
			})
		}
	}

	if cfg.CornerMask {
		done := b.timings.StartOperation("iconset.corner_mask")
		masked, err := images.ApplyCornerMask(working, cfg.CornerRadiusFraction)
		done()
		if err != nil {
			return nil, errors.Wrap(err, "failed to apply corner mask")
		}
		working = masked
		b.logger.Debug("applied corner mask", zap.Float64("radius_fraction", images.ClampRadiusFraction(cfg.CornerRadiusFraction)))
	}

	encoded, err := b.resizeAll(ctx, working, cfg)
	if err != nil {
		return nil, err
	}

	set := &ArtifactSet{
		Images: make(map[string][]byte, len(cfg.TargetSizes)),
		Sizes:  append([]SizeSpec(nil), cfg.TargetSizes...),
	}
	for i, s := range cfg.TargetSizes {
		set.Images[s.Label] = encoded[i]
	}

	var packed []SizeSpec
	if cfg.PackContainer {
		var warning *Warning
		set.Container, packed, warning = b.pack(cfg.TargetSizes, encoded)
		if warning != nil {
			warnings = append(warnings, *warning)
		}
	}

	for _, w := range warnings {
		b.logger.Warn("icon set warning", zap.String("code", w.Code), zap.String("message", w.Message))
	}

	set.Metadata = Metadata{
		Source:         cfg.Source,
		GeneratedAt:    b.now().UTC(),
		Config:         cfg,
		Warnings:       warnings,
		ContainerSizes: packed,
	}

	b.logger.Info("built icon set",
		zap.Int("sizes", len(set.Sizes)),
		zap.Bool("container", set.HasContainer()),
		zap.Int("warnings", len(warnings)),
	)
	return set, nil
}

// resizeAll resizes and encodes every target size, returning PNG bytes in
// target order.
func (b *Builder) resizeAll(ctx context.Context, working *images.Image, cfg Config) ([][]byte, error) {
	limit := cfg.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	encoded := make([][]byte, len(cfg.TargetSizes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, s := range cfg.TargetSizes {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			done := b.timings.StartOperation("iconset.resize")
			resized, err := images.ResizeWithFilter(working, s.Width, s.Height, images.FitCover, images.Transparent, cfg.Filter)
			done()
			if err != nil {
				return errors.Wrapf(err, "size %q", s.Label)
			}

			done = b.timings.StartOperation("iconset.encode")
			data, err := images.EncodePNG(resized)
			done()
			if err != nil {
				return errors.Wrapf(err, "size %q", s.Label)
			}

			encoded[i] = data
			b.logger.Debug("resized", zap.String("label", s.Label), zap.Int("bytes", len(data)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "icon set run cancelled")
	}
	return encoded, nil
}

// pack builds the container from every packable size in ascending
// (width, height, target index) order.
func (b *Builder) pack(sizes []SizeSpec, encoded [][]byte) ([]byte, []SizeSpec, *Warning) {
	var order []int
	for i, s := range sizes {
		if s.Packable() {
			order = append(order, i)
		}
	}
	if len(order) == 0 {
		return nil, nil, &Warning{
			Code:    WarningContainerSkipped,
			Message: "no target size is 256x256 or smaller",
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, c := sizes[order[i]], sizes[order[j]]
		if a.Width != c.Width {
			return a.Width < c.Width
		}
		return a.Height < c.Height
	})

	entries := make([]ico.Entry, len(order))
	packed := make([]SizeSpec, len(order))
	for k, i := range order {
		entries[k] = ico.Entry{Width: sizes[i].Width, Height: sizes[i].Height, Data: encoded[i]}
		packed[k] = sizes[i]
	}

	done := b.timings.StartOperation("iconset.pack")
	container, err := ico.Pack(entries)
	done()
	if err != nil {
		return nil, nil, &Warning{
			Code:    WarningContainerFailed,
			Message: err.Error(),
		}
	}

	b.logger.Debug("packed container", zap.Int("images", len(entries)), zap.Int("bytes", len(container)))
	return container, packed, nil
}

// Run builds an artifact set with a default Builder.
func Run(ctx context.Context, base *images.Image, alpha *image.Gray, cfg Config) (*ArtifactSet, error) {
	return NewBuilder().Run(ctx, base, alpha, cfg)
}
