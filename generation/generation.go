// Package generation requests base images from a remote text-to-image service.
package generation

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// Generation defaults.
const (
	DefaultModel      = "sdxl"
	DefaultSize       = 1024
	DefaultVariations = 4
	MaxVariations     = 8
	DefaultScheduler  = "DPM++ 2M SDE Karras"
)

var (
	// ErrInvalidRequest is returned for a request that cannot be sent.
	ErrInvalidRequest = errors.New("invalid generation request")
	// ErrUnknownModel is returned for a model key missing from the catalog.
	ErrUnknownModel = errors.New("unknown model")
	// ErrUnauthorized is returned when the service rejects the API token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrPredictionFailed is returned when the service reports a failed or
	// canceled prediction.
	ErrPredictionFailed = errors.New("prediction failed")
	// ErrNoOutput is returned when a prediction succeeds without images.
	ErrNoOutput = errors.New("prediction returned no output")
)

// InferenceParams tune the model. Zero values select the model's defaults.
type InferenceParams struct {
	Steps         int     `json:"steps,omitempty" yaml:"steps,omitempty"`
	GuidanceScale float64 `json:"guidance_scale,omitempty" yaml:"guidance_scale,omitempty"`
	Scheduler     string  `json:"scheduler,omitempty" yaml:"scheduler,omitempty"`
}

// Request describes one generation call.
type Request struct {
	// Model is a catalog key, e.g. "sdxl". Empty selects DefaultModel.
	Model          string          `json:"model"`
	Prompt         string          `json:"prompt"`
	NegativePrompt string          `json:"negative_prompt,omitempty"`
	Width          int             `json:"width"`
	Height         int             `json:"height"`
	Variations     int             `json:"variations"`
	Params         InferenceParams `json:"params"`
}

// Validate checks the request and fills in defaults.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return errors.Wrap(ErrInvalidRequest, "prompt is required")
	}
	if r.Model == "" {
		r.Model = DefaultModel
	}
	if r.Width == 0 && r.Height == 0 {
		r.Width, r.Height = DefaultSize, DefaultSize
	}
	if r.Width <= 0 || r.Height <= 0 {
		return errors.Wrapf(ErrInvalidRequest, "invalid size %dx%d", r.Width, r.Height)
	}
	if r.Variations == 0 {
		r.Variations = DefaultVariations
	}
	if r.Variations < 1 || r.Variations > MaxVariations {
		return errors.Wrapf(ErrInvalidRequest, "variations must be between 1 and %d, got %d", MaxVariations, r.Variations)
	}
	if r.Params.Steps < 0 || r.Params.GuidanceScale < 0 {
		return errors.Wrap(ErrInvalidRequest, "steps and guidance scale must not be negative")
	}
	return nil
}

// Generator produces raw encoded images for a request. Implementations may
// return PNG, JPEG or WebP bytes.
type Generator interface {
	Generate(ctx context.Context, req Request) ([][]byte, error)
}

// StubGenerator returns a fixed image for every variation without calling
// any service.
type StubGenerator struct {
	Image []byte
}

// Generate returns req.Variations copies of the stub image.
func (s *StubGenerator) Generate(ctx context.Context, req Request) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if len(s.Image) == 0 {
		return nil, ErrNoOutput
	}
	out := make([][]byte, req.Variations)
	for i := range out {
		out[i] = s.Image
	}
	return out, nil
}
