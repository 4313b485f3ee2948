package generation

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// SizeParam is how a model expects the output size.
type SizeParam string

const (
	// SizeWidthHeight sends explicit width and height.
	SizeWidthHeight SizeParam = "width_height"
	// SizeAspectRatio sends an aspect ratio string such as "1:1".
	SizeAspectRatio SizeParam = "aspect_ratio"
)

// Model is a catalog entry describing a hosted model and its input schema.
type Model struct {
	Key                    string    `json:"key"`
	ID                     string    `json:"id"`
	Description            string    `json:"description"`
	SupportsNegativePrompt bool      `json:"supports_negative_prompt"`
	SupportsNumOutputs     bool      `json:"supports_num_outputs"`
	DefaultSteps           int       `json:"default_steps"`
	DefaultGuidance        float64   `json:"default_guidance"`
	SizeParam              SizeParam `json:"size_param"`
	OutputFormat           string    `json:"output_format,omitempty"`
}

var catalog = map[string]Model{
	"sdxl": {
		Key:                    "sdxl",
		ID:                     "stability-ai/sdxl:39ed52f2a78e934b3ba6e2a89f5b1c712de7dfea535525255b1aa35c5565e08b",
		Description:            "Stable Diffusion XL - good quality, flexible",
		SupportsNegativePrompt: true,
		SupportsNumOutputs:     true,
		DefaultSteps:           30,
		DefaultGuidance:        7.0,
		SizeParam:              SizeWidthHeight,
	},
	"flux-schnell": {
		Key:                "flux-schnell",
		ID:                 "black-forest-labs/flux-schnell",
		Description:        "Flux Schnell - fast generation, decent text",
		SupportsNumOutputs: true,
		DefaultSteps:       4,
		SizeParam:          SizeAspectRatio,
	},
	"flux-dev": {
		Key:                "flux-dev",
		ID:                 "black-forest-labs/flux-dev",
		Description:        "Flux Dev - better quality, good text rendering",
		SupportsNumOutputs: true,
		DefaultSteps:       28,
		DefaultGuidance:    3.5,
		SizeParam:          SizeAspectRatio,
	},
	"flux-pro": {
		Key:             "flux-pro",
		ID:              "black-forest-labs/flux-1.1-pro",
		Description:     "Flux Pro 1.1 - best quality, best text rendering",
		DefaultSteps:    25,
		DefaultGuidance: 3.0,
		SizeParam:       SizeAspectRatio,
		OutputFormat:    "png",
	},
}

// LookupModel returns the catalog entry for key.
func LookupModel(key string) (Model, error) {
	m, ok := catalog[key]
	if !ok {
		return Model{}, errors.Wrapf(ErrUnknownModel, "%q", key)
	}
	return m, nil
}

// Models returns every catalog entry sorted by key.
func Models() []Model {
	out := make([]Model, 0, len(catalog))
	for _, m := range catalog {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// BuildInput maps a request onto the model's input schema.
//
// Arguments:
//   - m: The model.
//   - req: A validated request.
//
// Returns:
//   - map[string]any: The prediction input.
func BuildInput(m Model, req Request) map[string]any {
	input := map[string]any{"prompt": req.Prompt}

	if m.SupportsNegativePrompt && req.NegativePrompt != "" {
		input["negative_prompt"] = req.NegativePrompt
	}
	if m.SupportsNumOutputs {
		input["num_outputs"] = req.Variations
	}

	switch m.SizeParam {
	case SizeWidthHeight:
		input["width"] = req.Width
		input["height"] = req.Height
		steps := m.DefaultSteps
		if req.Params.Steps > 0 {
			steps = req.Params.Steps
		}
		input["num_inference_steps"] = steps
	case SizeAspectRatio:
		input["aspect_ratio"] = AspectRatio(req.Width, req.Height)
		if req.Params.Steps > 0 {
			input["num_inference_steps"] = req.Params.Steps
		}
	}

	if m.DefaultGuidance > 0 {
		guidance := m.DefaultGuidance
		if req.Params.GuidanceScale > 0 {
			guidance = req.Params.GuidanceScale
		}
		input["guidance_scale"] = guidance
	}
	if req.Params.Scheduler != "" && m.SupportsNegativePrompt {
		input["scheduler"] = req.Params.Scheduler
	}
	if m.OutputFormat != "" {
		input["output_format"] = m.OutputFormat
	}
	return input
}

var aspectRatios = []struct {
	name  string
	ratio float64
}{
	{"1:1", 1},
	{"16:9", 16.0 / 9},
	{"9:16", 9.0 / 16},
	{"4:5", 4.0 / 5},
	{"5:4", 5.0 / 4},
	{"4:3", 4.0 / 3},
	{"3:4", 3.0 / 4},
	{"3:2", 3.0 / 2},
	{"2:3", 2.0 / 3},
}

// AspectRatio maps a size onto the nearest supported ratio string, checking
// candidates in order with a tolerance of 0.1. Sizes matching none fall back
// to "16:9" for landscape and "9:16" otherwise.
func AspectRatio(width, height int) string {
	if height <= 0 {
		return "1:1"
	}
	r := float64(width) / float64(height)
	for _, a := range aspectRatios {
		if math.Abs(r-a.ratio) < 0.1 {
			return a.name
		}
	}
	if width > height {
		return "16:9"
	}
	return "9:16"
}
