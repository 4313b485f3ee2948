package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/nvr-ai/go-icongen/iconset"
	"github.com/nvr-ai/go-icongen/images"
	"github.com/nvr-ai/go-icongen/matting"
	"github.com/nvr-ai/go-icongen/prompts"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "icongen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvReplicateToken, EnvReplicateBaseURL, EnvOutputDir, EnvMattingModel, matting.SharedLibraryEnv} {
		t.Setenv(key, "")
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.2237, cfg.Processing.CornerRadiusFraction)
	assert.Equal(t, "ios", cfg.Processing.Sizes)
	assert.Equal(t, "sdxl", cfg.Generation.Model)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
log:
  level: debug
  development: true
replicate:
  poll_interval: 2s
  max_poll_interval: 10s
generation:
  model: flux-dev
  variations: 2
  style: neon
processing:
  corner_mask: false
  corner_radius_fraction: 0.3
  sizes: favicon
  filter: catmullrom
  concurrency: 2
matting:
  backend: alpha
output:
  dir: /tmp/icons
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Development)
	assert.Equal(t, 2*time.Second, cfg.Replicate.PollInterval)
	assert.Equal(t, 10*time.Minute, cfg.Replicate.Timeout, "unset keys keep their defaults")
	assert.Equal(t, "flux-dev", cfg.Generation.Model)
	assert.Equal(t, 1024, cfg.Generation.Width)
	assert.False(t, cfg.Processing.CornerMask)
	assert.True(t, cfg.Processing.RemoveBackground)
	assert.Equal(t, MattingAlpha, cfg.Matting.Backend)
	assert.Equal(t, "/tmp/icons", cfg.Output.Dir)

	ic, err := cfg.Processing.IconsetConfig("test")
	require.NoError(t, err)
	assert.Equal(t, iconset.FaviconSizes(), ic.TargetSizes)
	assert.Equal(t, images.CatmullRom, ic.Filter)
	assert.Equal(t, 0.3, ic.CornerRadiusFraction)
	assert.Equal(t, 2, ic.Concurrency)
	assert.Equal(t, "test", ic.Source)
	assert.NoError(t, ic.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvReplicateToken, " r8_abc ")
	t.Setenv(EnvReplicateBaseURL, "http://localhost:9000")
	t.Setenv(EnvOutputDir, "/data/out")
	t.Setenv(EnvMattingModel, "/models/isnet.onnx")
	t.Setenv(matting.SharedLibraryEnv, "/opt/onnxruntime.so")

	cfg, err := Load(writeConfig(t, "output:\n  dir: ignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "r8_abc", cfg.Replicate.APIToken)
	assert.Equal(t, "http://localhost:9000", cfg.Replicate.BaseURL)
	assert.Equal(t, "/data/out", cfg.Output.Dir)
	assert.Equal(t, "/models/isnet.onnx", cfg.Matting.ModelPath)
	assert.Equal(t, "/opt/onnxruntime.so", cfg.Matting.SharedLibraryPath)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(writeConfig(t, "log: [unclosed"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "generation:\n  model: dall-e\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "generation config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		section string
	}{
		{name: "log level", mutate: func(c *Config) { c.Log.Level = "loud" }, section: "log config"},
		{name: "base url", mutate: func(c *Config) { c.Replicate.BaseURL = "api.replicate.com" }, section: "replicate config"},
		{name: "poll interval", mutate: func(c *Config) { c.Replicate.PollInterval = 0 }, section: "replicate config"},
		{name: "timeout", mutate: func(c *Config) { c.Replicate.Timeout = -time.Second }, section: "replicate config"},
		{name: "variations", mutate: func(c *Config) { c.Generation.Variations = 9 }, section: "generation config"},
		{name: "size", mutate: func(c *Config) { c.Generation.Width = 0 }, section: "generation config"},
		{name: "style", mutate: func(c *Config) { c.Generation.Style = "cubism" }, section: "generation config"},
		{name: "negative fraction", mutate: func(c *Config) { c.Processing.CornerRadiusFraction = -0.1 }, section: "processing config"},
		{name: "nan fraction", mutate: func(c *Config) { c.Processing.CornerRadiusFraction = math.NaN() }, section: "processing config"},
		{name: "sizes", mutate: func(c *Config) { c.Processing.Sizes = "16,abc" }, section: "processing config"},
		{name: "filter", mutate: func(c *Config) { c.Processing.Filter = "sinc" }, section: "processing config"},
		{name: "backend", mutate: func(c *Config) { c.Matting.Backend = "rembg" }, section: "matting config"},
		{name: "provider", mutate: func(c *Config) { c.Matting.Provider = "tpu" }, section: "matting config"},
		{name: "model path", mutate: func(c *Config) { c.Matting.ModelPath = "" }, section: "matting config"},
		{name: "output dir", mutate: func(c *Config) { c.Output.Dir = "" }, section: "output config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.section)
		})
	}
}

func TestSaveOmitsToken(t *testing.T) {
	clearEnv(t)

	cfg := Default()
	cfg.Replicate.APIToken = "r8_secret"
	cfg.Generation.Model = "flux-schnell"

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "r8_secret")
	assert.Equal(t, "r8_secret", cfg.Replicate.APIToken)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "flux-schnell", loaded.Generation.Model)
}

func TestNewLogger(t *testing.T) {
	logger, err := Log{Level: "warn"}.NewLogger()
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = Log{Level: "loud"}.NewLogger()
	assert.Error(t, err)
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Matting.Provider = "cuda"
	cfg.Matting.DeviceID = 1

	oc, err := cfg.Matting.ONNXConfig()
	require.NoError(t, err)
	assert.Equal(t, matting.CUDAExecutionProvider, oc.Provider)
	assert.Equal(t, 1, oc.DeviceID)
	assert.Equal(t, 320, oc.InputSize)
	assert.Equal(t, "input.1", oc.InputName)

	cfg.Generation.Steps = 40
	req := cfg.Generation.Request(prompts.Prompt{Positive: "p", Negative: "n"})
	assert.Equal(t, "p", req.Prompt)
	assert.Equal(t, "n", req.NegativePrompt)
	assert.Equal(t, 40, req.Params.Steps)
	assert.Equal(t, 4, req.Variations)
}
