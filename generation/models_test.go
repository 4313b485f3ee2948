package generation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupModel(t *testing.T) {
	m, err := LookupModel("flux-pro")
	require.NoError(t, err)
	assert.Equal(t, "black-forest-labs/flux-1.1-pro", m.ID)
	assert.False(t, m.SupportsNumOutputs)

	_, err = LookupModel("dall-e")
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestModelsSorted(t *testing.T) {
	var keys []string
	for _, m := range Models() {
		keys = append(keys, m.Key)
	}
	assert.Equal(t, []string{"flux-dev", "flux-pro", "flux-schnell", "sdxl"}, keys)
}

func TestBuildInput(t *testing.T) {
	req := Request{
		Prompt:         "a cat",
		NegativePrompt: "blurry",
		Width:          1024,
		Height:         1024,
		Variations:     4,
	}

	tests := []struct {
		name   string
		model  string
		params InferenceParams
		want   map[string]any
	}{
		{
			name:  "sdxl defaults",
			model: "sdxl",
			want: map[string]any{
				"prompt":              "a cat",
				"negative_prompt":     "blurry",
				"num_outputs":         4,
				"width":               1024,
				"height":              1024,
				"num_inference_steps": 30,
				"guidance_scale":      7.0,
			},
		},
		{
			name:   "sdxl overrides",
			model:  "sdxl",
			params: InferenceParams{Steps: 50, GuidanceScale: 9, Scheduler: DefaultScheduler},
			want: map[string]any{
				"prompt":              "a cat",
				"negative_prompt":     "blurry",
				"num_outputs":         4,
				"width":               1024,
				"height":              1024,
				"num_inference_steps": 50,
				"guidance_scale":      9.0,
				"scheduler":           DefaultScheduler,
			},
		},
		{
			name:  "flux schnell has no guidance",
			model: "flux-schnell",
			want: map[string]any{
				"prompt":       "a cat",
				"num_outputs":  4,
				"aspect_ratio": "1:1",
			},
		},
		{
			name:   "flux dev with steps and scheduler",
			model:  "flux-dev",
			params: InferenceParams{Steps: 20, Scheduler: "ignored"},
			want: map[string]any{
				"prompt":              "a cat",
				"num_outputs":         4,
				"aspect_ratio":        "1:1",
				"num_inference_steps": 20,
				"guidance_scale":      3.5,
			},
		},
		{
			name:  "flux pro",
			model: "flux-pro",
			want: map[string]any{
				"prompt":         "a cat",
				"aspect_ratio":   "1:1",
				"guidance_scale": 3.0,
				"output_format":  "png",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := LookupModel(tt.model)
			require.NoError(t, err)

			r := req
			r.Params = tt.params
			assert.Equal(t, tt.want, BuildInput(m, r))
		})
	}
}

func TestAspectRatio(t *testing.T) {
	tests := []struct {
		w, h int
		want string
	}{
		{1024, 1024, "1:1"},
		{1080, 1080, "1:1"},
		{1920, 1080, "16:9"},
		{1080, 1920, "9:16"},
		{1080, 1352, "4:5"},
		{1250, 1000, "5:4"},
		{1400, 1000, "4:3"},
		{1000, 1480, "3:4"},
		{1500, 1000, "3:2"},
		// Candidates are checked in order, so 4:3 is claimed by 5:4 first.
		{1200, 900, "5:4"},
		{1080, 568, "16:9"},
		{300, 1000, "9:16"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, AspectRatio(tt.w, tt.h), "%dx%d", tt.w, tt.h)
	}
}

func TestBuildInputPostSizes(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		aspect string
	}{
		{"square", 1080, 1080, "1:1"},
		{"portrait", 1080, 1352, "4:5"},
		{"landscape", 1080, 568, "16:9"},
		{"story", 1080, 1920, "9:16"},
	}

	sdxl, err := LookupModel("sdxl")
	require.NoError(t, err)
	flux, err := LookupModel("flux-dev")
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := Request{Prompt: "a beach", Width: tt.w, Height: tt.h, Variations: 1}
			require.NoError(t, req.Validate())
			assert.Equal(t, tt.w, req.Width)
			assert.Equal(t, tt.h, req.Height)

			in := BuildInput(sdxl, req)
			assert.Equal(t, tt.w, in["width"])
			assert.Equal(t, tt.h, in["height"])
			assert.NotContains(t, in, "aspect_ratio")

			in = BuildInput(flux, req)
			assert.Equal(t, tt.aspect, in["aspect_ratio"])
			assert.NotContains(t, in, "width")
			assert.NotContains(t, in, "height")
		})
	}
}

func TestRequestValidate(t *testing.T) {
	req := Request{Prompt: "a fox"}
	require.NoError(t, req.Validate())
	assert.Equal(t, DefaultModel, req.Model)
	assert.Equal(t, DefaultSize, req.Width)
	assert.Equal(t, DefaultSize, req.Height)
	assert.Equal(t, DefaultVariations, req.Variations)

	bad := []Request{
		{},
		{Prompt: "  "},
		{Prompt: "x", Width: -1, Height: 10},
		{Prompt: "x", Variations: MaxVariations + 1},
		{Prompt: "x", Params: InferenceParams{Steps: -1}},
	}
	for _, r := range bad {
		assert.ErrorIs(t, r.Validate(), ErrInvalidRequest)
	}
}

func TestStubGenerator(t *testing.T) {
	gen := &StubGenerator{Image: []byte{1, 2, 3}}

	out, err := gen.Generate(context.Background(), Request{Prompt: "x", Variations: 2})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{1, 2, 3}, {1, 2, 3}}, out)

	_, err = (&StubGenerator{}).Generate(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrNoOutput)
}
