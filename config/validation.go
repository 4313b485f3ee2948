package config

import (
	"math"
	"net/url"

	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"

	"github.com/nvr-ai/go-icongen/generation"
	"github.com/nvr-ai/go-icongen/iconset"
	"github.com/nvr-ai/go-icongen/images"
	"github.com/nvr-ai/go-icongen/matting"
	"github.com/nvr-ai/go-icongen/prompts"
)

// ErrInvalidConfig is returned for a configuration that fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate validates the configuration. The API token is not required here;
// only the generate command needs it.
func (c *Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return errors.Wrap(err, "log config")
	}
	if err := c.Replicate.Validate(); err != nil {
		return errors.Wrap(err, "replicate config")
	}
	if err := c.Generation.Validate(); err != nil {
		return errors.Wrap(err, "generation config")
	}
	if err := c.Processing.Validate(); err != nil {
		return errors.Wrap(err, "processing config")
	}
	if err := c.Matting.Validate(); err != nil {
		return errors.Wrap(err, "matting config")
	}
	if c.Output.Dir == "" {
		return errors.Wrap(ErrInvalidConfig, "output config: dir is required")
	}
	return nil
}

// Validate validates the log section.
func (l *Log) Validate() error {
	if _, err := zapcore.ParseLevel(l.Level); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "unknown level %q", l.Level)
	}
	return nil
}

// Validate validates the Replicate section.
func (r *Replicate) Validate() error {
	u, err := url.Parse(r.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Wrapf(ErrInvalidConfig, "base_url %q is not an absolute URL", r.BaseURL)
	}
	if r.PollInterval <= 0 || r.MaxPollInterval < r.PollInterval {
		return errors.Wrap(ErrInvalidConfig, "poll_interval must be positive and not exceed max_poll_interval")
	}
	if r.Timeout <= 0 {
		return errors.Wrap(ErrInvalidConfig, "timeout must be positive")
	}
	return nil
}

// Validate validates the generation section.
func (g *Generation) Validate() error {
	if _, err := generation.LookupModel(g.Model); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if g.Width <= 0 || g.Height <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "invalid size %dx%d", g.Width, g.Height)
	}
	if g.Variations < 1 || g.Variations > generation.MaxVariations {
		return errors.Wrapf(ErrInvalidConfig, "variations must be between 1 and %d", generation.MaxVariations)
	}
	if g.Steps < 0 || g.GuidanceScale < 0 {
		return errors.Wrap(ErrInvalidConfig, "steps and guidance_scale must not be negative")
	}
	if g.Style != "custom" {
		if _, err := prompts.ParseSelector(g.Style, ""); err != nil {
			return errors.Wrap(ErrInvalidConfig, err.Error())
		}
	}
	return nil
}

// Validate validates the processing section.
func (p *Processing) Validate() error {
	f := p.CornerRadiusFraction
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return errors.Wrapf(ErrInvalidConfig, "corner_radius_fraction %v must be a non-negative number", f)
	}
	if _, err := iconset.ParseSizes(p.Sizes); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if _, err := images.ParseResampleFilter(p.Filter); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if p.Concurrency < 0 {
		return errors.Wrap(ErrInvalidConfig, "concurrency must not be negative")
	}
	return nil
}

// Validate validates the matting section.
func (m *Matting) Validate() error {
	switch m.Backend {
	case MattingONNX:
		if m.ModelPath == "" {
			return errors.Wrap(ErrInvalidConfig, "model_path is required for the onnx backend")
		}
	case MattingAlpha:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown backend %q", m.Backend)
	}
	if _, err := matting.ParseExecutionProvider(m.Provider); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if m.InputSize < 0 || m.DeviceID < 0 {
		return errors.Wrap(ErrInvalidConfig, "input_size and device_id must not be negative")
	}
	return nil
}
