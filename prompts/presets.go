package prompts

import (
	"sort"
	"strings"
)

type template struct {
	order       int
	Description string
	Positive    string
	Negative    string
}

func (t template) format(subject string, opts Options) Prompt {
	color := opts.Color
	if color == "" {
		color = DefaultColor
	}
	extra := opts.ExtraStyle
	if extra == "" {
		extra = DefaultExtraStyle
	}

	r := strings.NewReplacer(
		"{subject}", subject,
		"{style}", extra,
		"{color}", color,
	)
	return Prompt{
		Positive: r.Replace(t.Positive),
		Negative: t.Negative,
	}
}

var templates = map[string]template{
	"ios": {
		order:       0,
		Description: "iOS-style rounded app icons",
		Positive: "app icon, iOS app icon, {subject}, {style}, " +
			"rounded corners, gradient background, modern design, " +
			"clean, professional, high quality, centered composition, " +
			"simple, minimalist, digital art",
		Negative: "text, letters, words, watermark, signature, blurry, " +
			"low quality, distorted, ugly, deformed, realistic photo, " +
			"complex background, cluttered",
	},
	"flat": {
		order:       1,
		Description: "Flat minimalist design",
		Positive: "flat icon design, {subject}, {color} background, " +
			"minimalist, simple shapes, solid colors, vector style, " +
			"2D design, clean lines, modern, professional",
		Negative: "3D, realistic, shadows, gradients, texture, " +
			"text, letters, watermark, complex, detailed, photo",
	},
	"vector": {
		order:       2,
		Description: "Vector illustration style",
		Positive: "{subject}, vector illustration, smooth curves, " +
			"clean lines, vibrant colors, professional icon design, " +
			"simple composition, centered, high quality vector art",
		Negative: "realistic, photo, 3D render, text, watermark, " +
			"blurry, low quality, complex background",
	},
	"custom": {
		order:       3,
		Description: "Custom prompt",
		Negative: "text, letters, words, watermark, signature, blurry, " +
			"low quality, distorted, ugly, deformed",
	},
}

// ArtisticPreset is a named style prompt with a default subject.
type ArtisticPreset struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Prompt  string `json:"prompt"`
	Subject string `json:"subject"`
}

var artisticPresets = map[string]ArtisticPreset{
	"judd": {
		Name:    "Donald Judd",
		Prompt:  "minimalist geometric stacked rectangles, aluminum and translucent plexiglass layers, Donald Judd sculpture, industrial materials, specific objects, clean precise forms",
		Subject: "image sharing icon",
	},
	"deco": {
		Name:    "Art Deco",
		Prompt:  "art deco geometric patterns, gold and black, 1920s style, elegant symmetry, luxury aesthetic",
		Subject: DefaultSubject,
	},
	"pixel": {
		Name:    "Pixel Art",
		Prompt:  "pixel art retro gaming style, 8-bit colors, nostalgic, clean pixels, game icon",
		Subject: DefaultSubject,
	},
	"watercolor": {
		Name:    "Watercolor",
		Prompt:  "watercolor painting, soft brushstrokes, pastel colors, artistic, flowing colors, hand-painted feel",
		Subject: DefaultSubject,
	},
	"neon": {
		Name:    "Neon",
		Prompt:  "neon lights, glowing edges, cyberpunk aesthetic, vibrant colors, dark background, electric feel",
		Subject: DefaultSubject,
	},
	"bauhaus": {
		Name:    "Bauhaus",
		Prompt:  "bauhaus design, geometric shapes, primary colors, modernist, functional beauty, circles squares triangles",
		Subject: DefaultSubject,
	},
	"memphis": {
		Name:    "Memphis Design",
		Prompt:  "memphis design style, 1980s postmodern, geometric patterns, bright colors, playful shapes, squiggles and dots",
		Subject: DefaultSubject,
	},
	"brutalism": {
		Name:    "Brutalism",
		Prompt:  "brutalist design, raw concrete texture, bold geometric forms, monolithic structure, stark minimalism",
		Subject: DefaultSubject,
	},
}

// ArtisticPresets returns the artistic presets sorted by key.
func ArtisticPresets() []ArtisticPreset {
	out := make([]ArtisticPreset, 0, len(artisticPresets))
	for key, p := range artisticPresets {
		p.Key = key
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// TemplateDescription returns the one-line description of a template style.
func TemplateDescription(name string) string {
	return templates[name].Description
}
