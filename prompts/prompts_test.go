package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnhanceSubject(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"cat", "a cat"},
		{"  owl ", "an owl"},
		{"Umbrella", "an Umbrella"},
		{"a rocket", "a rocket"},
		{"An apple", "An apple"},
		{"the moon", "the moon"},
		{"icon of a house", "icon of a house"},
		{"", "an app icon"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EnhanceSubject(tt.in), tt.in)
	}
}

func TestResolveTemplates(t *testing.T) {
	p, err := Resolve(Preset{Name: "ios"}, "cat", Options{})
	require.NoError(t, err)
	assert.Equal(t, "ios", p.Style)
	assert.Contains(t, p.Positive, "iOS app icon, a cat, modern, colorful, rounded corners")
	assert.Contains(t, p.Negative, "watermark")

	p, err = Resolve(Preset{Name: "flat"}, "owl", Options{Color: "teal"})
	require.NoError(t, err)
	assert.Contains(t, p.Positive, "flat icon design, an owl, teal background")

	p, err = Resolve(Preset{Name: "FLAT"}, "owl", Options{})
	require.NoError(t, err)
	assert.Contains(t, p.Positive, "gradient background")

	p, err = Resolve(Preset{Name: "vector"}, "fox", Options{})
	require.NoError(t, err)
	assert.Equal(t, "a fox, vector illustration", p.Positive[:len("a fox, vector illustration")])
	assert.NotContains(t, p.Positive, "{")
}

func TestResolveArtisticPreset(t *testing.T) {
	p, err := Resolve(Preset{Name: "neon"}, "camera", Options{})
	require.NoError(t, err)
	assert.Equal(t, "neon", p.Style)
	assert.Equal(t, "a camera, neon lights, glowing edges, cyberpunk aesthetic, vibrant colors, dark background, electric feel", p.Positive)
	assert.Equal(t, templates["custom"].Negative, p.Negative)

	p, err = Resolve(Preset{Name: "judd"}, "", Options{})
	require.NoError(t, err)
	assert.Contains(t, p.Positive, "an image sharing icon, minimalist geometric")
}

func TestResolveCustom(t *testing.T) {
	p, err := Resolve(Custom{Prompt: "origami {subject}, paper folds"}, "crane", Options{})
	require.NoError(t, err)
	assert.Equal(t, "origami a crane, paper folds", p.Positive)
	assert.Equal(t, "custom", p.Style)

	p, err = Resolve(Custom{Prompt: "stained glass window"}, "crane", Options{})
	require.NoError(t, err)
	assert.Equal(t, "stained glass window", p.Positive)

	_, err = Resolve(Custom{Prompt: "  "}, "crane", Options{})
	assert.ErrorIs(t, err, ErrInvalidStyle)
}

func TestResolveErrors(t *testing.T) {
	_, err := Resolve(Preset{Name: "cubism"}, "cat", Options{})
	assert.ErrorIs(t, err, ErrUnknownStyle)

	_, err = Resolve(Preset{Name: "custom"}, "cat", Options{})
	assert.ErrorIs(t, err, ErrInvalidStyle)

	_, err = Resolve(nil, "cat", Options{})
	assert.ErrorIs(t, err, ErrInvalidStyle)
}

func TestParseSelector(t *testing.T) {
	tests := []struct {
		name   string
		style  string
		custom string
		want   StyleSelector
		err    error
	}{
		{name: "default", want: Preset{Name: "ios"}},
		{name: "template", style: "Vector", want: Preset{Name: "vector"}},
		{name: "artistic", style: "bauhaus", want: Preset{Name: "bauhaus"}},
		{name: "custom", style: "custom", custom: " glass ", want: Custom{Prompt: "glass"}},
		{name: "implicit custom", custom: "glass", want: Custom{Prompt: "glass"}},
		{name: "custom without prompt", style: "custom", err: ErrInvalidStyle},
		{name: "unknown", style: "cubism", err: ErrUnknownStyle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := ParseSelector(tt.style, tt.custom)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, sel)
		})
	}
}

func TestStyles(t *testing.T) {
	assert.Equal(t, []string{
		"ios", "flat", "vector", "custom",
		"bauhaus", "brutalism", "deco", "judd", "memphis", "neon", "pixel", "watercolor",
	}, Styles())

	presets := ArtisticPresets()
	require.Len(t, presets, 8)
	assert.Equal(t, "bauhaus", presets[0].Key)
	assert.Equal(t, "Bauhaus", presets[0].Name)
	assert.NotEmpty(t, TemplateDescription("ios"))
}
