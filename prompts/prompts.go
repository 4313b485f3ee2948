// Package prompts turns a subject and a style selection into generation
// prompts.
package prompts

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Prompt defaults.
const (
	DefaultStyle      = "ios"
	DefaultExtraStyle = "modern, colorful"
	DefaultColor      = "gradient"
	DefaultSubject    = "app icon"
)

// ErrUnknownStyle is returned for a preset name that is neither a template
// nor an artistic preset.
var ErrUnknownStyle = errors.New("unknown style")

// ErrInvalidStyle is returned for an unusable style selection.
var ErrInvalidStyle = errors.New("invalid style")

// StyleSelector selects how a prompt is built. It is either a Preset or a
// Custom prompt.
type StyleSelector interface {
	styleSelector()
}

// Preset selects a named template or artistic preset.
type Preset struct {
	Name string
}

// Custom carries a free-form style prompt. A "{subject}" placeholder is
// replaced with the subject.
type Custom struct {
	Prompt string
}

func (Preset) styleSelector() {}
func (Custom) styleSelector() {}

// Options tune template placeholders.
type Options struct {
	// Color fills the flat template's background color.
	Color string
	// ExtraStyle fills the iOS template's style slot.
	ExtraStyle string
}

// Prompt is a resolved positive and negative prompt pair.
type Prompt struct {
	Positive string `json:"prompt"`
	Negative string `json:"negative_prompt"`
	Style    string `json:"style"`
}

// ParseSelector maps CLI style input onto a selector. The style "custom"
// requires a non-empty custom prompt.
func ParseSelector(style, customPrompt string) (StyleSelector, error) {
	style = strings.ToLower(strings.TrimSpace(style))
	customPrompt = strings.TrimSpace(customPrompt)

	switch {
	case style == "custom":
		if customPrompt == "" {
			return nil, errors.Wrap(ErrInvalidStyle, "a custom prompt is required for the custom style")
		}
		return Custom{Prompt: customPrompt}, nil
	case style == "" && customPrompt != "":
		return Custom{Prompt: customPrompt}, nil
	case style == "":
		return Preset{Name: DefaultStyle}, nil
	}

	if _, ok := templates[style]; !ok {
		if _, ok := artisticPresets[style]; !ok {
			return nil, errors.Wrapf(ErrUnknownStyle, "%q (available: %s)", style, strings.Join(Styles(), ", "))
		}
	}
	return Preset{Name: style}, nil
}

// Resolve builds the prompt for subject with the selected style.
//
// Arguments:
//   - sel: The style selection.
//   - subject: What the icon depicts. It is enhanced with an article.
//   - opts: Template placeholder values; zero values select defaults.
//
// Returns:
//   - Prompt: The positive and negative prompts.
//   - error: ErrUnknownStyle or ErrInvalidStyle.
func Resolve(sel StyleSelector, subject string, opts Options) (Prompt, error) {
	switch s := sel.(type) {
	case Preset:
		name := strings.ToLower(strings.TrimSpace(s.Name))
		if name == "custom" {
			return Prompt{}, errors.Wrap(ErrInvalidStyle, "the custom template needs a Custom selector")
		}
		if t, ok := templates[name]; ok {
			p := t.format(EnhanceSubject(subject), opts)
			p.Style = name
			return p, nil
		}
		if p, ok := artisticPresets[name]; ok {
			if strings.TrimSpace(subject) == "" {
				subject = p.Subject
			}
			return Prompt{
				Positive: EnhanceSubject(subject) + ", " + p.Prompt,
				Negative: templates["custom"].Negative,
				Style:    name,
			}, nil
		}
		return Prompt{}, errors.Wrapf(ErrUnknownStyle, "%q", s.Name)
	case Custom:
		if strings.TrimSpace(s.Prompt) == "" {
			return Prompt{}, errors.Wrap(ErrInvalidStyle, "custom prompt is empty")
		}
		return Prompt{
			Positive: strings.ReplaceAll(s.Prompt, "{subject}", EnhanceSubject(subject)),
			Negative: templates["custom"].Negative,
			Style:    "custom",
		}, nil
	default:
		return Prompt{}, errors.Wrap(ErrInvalidStyle, "no style selected")
	}
}

// EnhanceSubject trims subject and prefixes "a" or "an" unless it already
// starts with an article or "icon of". An empty subject becomes DefaultSubject.
func EnhanceSubject(subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = DefaultSubject
	}

	lower := strings.ToLower(subject)
	for _, prefix := range []string{"icon of", "a ", "an ", "the "} {
		if strings.HasPrefix(lower, prefix) {
			return subject
		}
	}
	if strings.ContainsRune("aeiou", rune(lower[0])) {
		return "an " + subject
	}
	return "a " + subject
}

// Styles returns every accepted style name, templates first.
func Styles() []string {
	out := make([]string, 0, len(templates)+len(artisticPresets))
	out = append(out, TemplateNames()...)
	for _, p := range ArtisticPresets() {
		out = append(out, p.Key)
	}
	return out
}

// TemplateNames returns the template style names in display order.
func TemplateNames() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return templates[names[i]].order < templates[names[j]].order
	})
	return names
}
