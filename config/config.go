// Package config loads icongen settings from a YAML file and the environment.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-icongen/generation"
	"github.com/nvr-ai/go-icongen/iconset"
	"github.com/nvr-ai/go-icongen/images"
	"github.com/nvr-ai/go-icongen/matting"
	"github.com/nvr-ai/go-icongen/prompts"
)

// DefaultPath is the configuration file read when no path is given.
const DefaultPath = "icongen.yaml"

// Environment variables that override file values.
const (
	EnvReplicateToken   = "REPLICATE_API_TOKEN"
	EnvReplicateBaseURL = "REPLICATE_BASE_URL"
	EnvOutputDir        = "ICONGEN_OUTPUT_DIR"
	EnvMattingModel     = "ICONGEN_MATTING_MODEL"
)

// Matting backends.
const (
	MattingONNX  = "onnx"
	MattingAlpha = "alpha"
)

// Config is the complete icongen configuration.
type Config struct {
	Log        Log        `yaml:"log"`
	Replicate  Replicate  `yaml:"replicate"`
	Generation Generation `yaml:"generation"`
	Processing Processing `yaml:"processing"`
	Matting    Matting    `yaml:"matting"`
	Output     Output     `yaml:"output"`
}

// Log configures the zap logger.
type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Replicate configures the generation service client.
type Replicate struct {
	APIToken        string        `yaml:"api_token,omitempty"`
	BaseURL         string        `yaml:"base_url"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	MaxPollInterval time.Duration `yaml:"max_poll_interval"`
	Timeout         time.Duration `yaml:"timeout"`
}

// Generation holds the defaults for generation requests.
type Generation struct {
	Model         string  `yaml:"model"`
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	Variations    int     `yaml:"variations"`
	Steps         int     `yaml:"steps,omitempty"`
	GuidanceScale float64 `yaml:"guidance_scale,omitempty"`
	Scheduler     string  `yaml:"scheduler,omitempty"`
	Style         string  `yaml:"style"`
	Color         string  `yaml:"color,omitempty"`
	ExtraStyle    string  `yaml:"extra_style,omitempty"`
}

// Processing holds the icon set processing options.
type Processing struct {
	RemoveBackground     bool    `yaml:"remove_background"`
	CornerMask           bool    `yaml:"corner_mask"`
	CornerRadiusFraction float64 `yaml:"corner_radius_fraction"`
	PackContainer        bool    `yaml:"pack_container"`
	// Sizes is a preset name or a size list accepted by iconset.ParseSizes.
	Sizes       string `yaml:"sizes"`
	Filter      string `yaml:"filter"`
	Concurrency int    `yaml:"concurrency"`
}

// Matting configures background removal.
type Matting struct {
	Backend           string `yaml:"backend"`
	ModelPath         string `yaml:"model_path"`
	SharedLibraryPath string `yaml:"shared_library_path,omitempty"`
	Provider          string `yaml:"provider"`
	DeviceID          int    `yaml:"device_id,omitempty"`
	InputSize         int    `yaml:"input_size"`
	IntraOpThreads    int    `yaml:"intra_op_threads,omitempty"`
	InterOpThreads    int    `yaml:"inter_op_threads,omitempty"`
}

// Output configures where artifacts are written.
type Output struct {
	Dir string `yaml:"dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	onnx := matting.DefaultONNXConfig()
	return &Config{
		Log: Log{Level: "info"},
		Replicate: Replicate{
			BaseURL:         generation.DefaultReplicateBaseURL,
			PollInterval:    time.Second,
			MaxPollInterval: 5 * time.Second,
			Timeout:         10 * time.Minute,
		},
		Generation: Generation{
			Model:      generation.DefaultModel,
			Width:      generation.DefaultSize,
			Height:     generation.DefaultSize,
			Variations: generation.DefaultVariations,
			Style:      prompts.DefaultStyle,
		},
		Processing: Processing{
			RemoveBackground:     true,
			CornerMask:           true,
			CornerRadiusFraction: iconset.DefaultCornerRadiusFraction,
			PackContainer:        true,
			Sizes:                "ios",
			Filter:               images.Lanczos3.String(),
		},
		Matting: Matting{
			Backend:   MattingONNX,
			ModelPath: onnx.ModelPath,
			Provider:  string(onnx.Provider),
			InputSize: onnx.InputSize,
		},
		Output: Output{Dir: "output"},
	}
}

// Load reads the configuration at path on top of the defaults and applies
// environment overrides. A missing file is not an error.
//
// Arguments:
//   - path: The YAML file. Empty selects DefaultPath.
//
// Returns:
//   - *Config: The validated configuration.
//   - error: A read, parse or validation error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config %s", path)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

// Save writes the configuration as YAML. The API token is never written.
func (c *Config) Save(path string) error {
	out := *c
	out.Replicate.APIToken = ""

	data, err := yaml.Marshal(&out)
	if err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write config %s", path)
	}
	return nil
}

// ApplyEnv overrides values from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(EnvReplicateToken, &c.Replicate.APIToken)
	set(EnvReplicateBaseURL, &c.Replicate.BaseURL)
	set(EnvOutputDir, &c.Output.Dir)
	set(EnvMattingModel, &c.Matting.ModelPath)
	set(matting.SharedLibraryEnv, &c.Matting.SharedLibraryPath)
}

// NewLogger builds a zap logger for the configured level.
func (l Log) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", l.Level)
	}

	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// IconsetConfig converts the processing section into a builder config.
func (p Processing) IconsetConfig(source string) (iconset.Config, error) {
	sizes, err := iconset.ParseSizes(p.Sizes)
	if err != nil {
		return iconset.Config{}, err
	}
	filter, err := images.ParseResampleFilter(p.Filter)
	if err != nil {
		return iconset.Config{}, err
	}
	return iconset.Config{
		RemoveBackground:     p.RemoveBackground,
		CornerMask:           p.CornerMask,
		CornerRadiusFraction: p.CornerRadiusFraction,
		PackContainer:        p.PackContainer,
		TargetSizes:          sizes,
		Filter:               filter,
		Concurrency:          p.Concurrency,
		Source:               source,
	}, nil
}

// ONNXConfig converts the matting section into an ONNX remover config.
func (m Matting) ONNXConfig() (matting.ONNXConfig, error) {
	provider, err := matting.ParseExecutionProvider(m.Provider)
	if err != nil {
		return matting.ONNXConfig{}, err
	}
	cfg := matting.DefaultONNXConfig()
	cfg.ModelPath = m.ModelPath
	cfg.SharedLibraryPath = m.SharedLibraryPath
	cfg.Provider = provider
	cfg.DeviceID = m.DeviceID
	cfg.IntraOpThreads = m.IntraOpThreads
	cfg.InterOpThreads = m.InterOpThreads
	if m.InputSize > 0 {
		cfg.InputSize = m.InputSize
	}
	return cfg, nil
}

// Request builds a generation request for a resolved prompt.
func (g Generation) Request(p prompts.Prompt) generation.Request {
	return generation.Request{
		Model:          g.Model,
		Prompt:         p.Positive,
		NegativePrompt: p.Negative,
		Width:          g.Width,
		Height:         g.Height,
		Variations:     g.Variations,
		Params: generation.InferenceParams{
			Steps:         g.Steps,
			GuidanceScale: g.GuidanceScale,
			Scheduler:     g.Scheduler,
		},
	}
}

// PromptOptions returns the template options of the generation section.
func (g Generation) PromptOptions() prompts.Options {
	return prompts.Options{Color: g.Color, ExtraStyle: g.ExtraStyle}
}
