// Package pipeline wires generation, background removal, icon set building
// and output into one run.
package pipeline

import (
	"context"
	"image"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-icongen/generation"
	"github.com/nvr-ai/go-icongen/iconset"
	"github.com/nvr-ai/go-icongen/images"
	"github.com/nvr-ai/go-icongen/matting"
	"github.com/nvr-ai/go-icongen/output"
	"github.com/nvr-ai/go-icongen/profiler"
	"github.com/nvr-ai/go-icongen/prompts"
	"github.com/nvr-ai/go-icongen/util"
)

// ErrNoGenerator is returned by Generate when no Generator is configured.
var ErrNoGenerator = errors.New("no generator configured")

// Pipeline runs the end-to-end icon workflow.
type Pipeline struct {
	generator generation.Generator
	remover   matting.Remover
	builder   *iconset.Builder
	logger    *zap.Logger
	timings   *profiler.Timings
	now       func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithGenerator sets the image generator used by Generate.
func WithGenerator(g generation.Generator) Option {
	return func(p *Pipeline) { p.generator = g }
}

// WithRemover sets the background remover. Without one, background removal
// requests produce a matte_missing warning.
func WithRemover(r matting.Remover) Option {
	return func(p *Pipeline) { p.remover = r }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTimings records stage durations.
func WithTimings(timings *profiler.Timings) Option {
	return func(p *Pipeline) { p.timings = timings }
}

// WithClock sets the clock used for session names and metadata.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.builder = iconset.NewBuilder(
		iconset.WithLogger(p.logger),
		iconset.WithTimings(p.timings),
		iconset.WithClock(p.now),
	)
	return p
}

// FormatInstagram generates non-square posts sized by GenerateRequest.Aspect.
const FormatInstagram = "instagram"

// GenerateRequest describes one generate-and-process run.
type GenerateRequest struct {
	// Subject is what the icon depicts.
	Subject string
	// Style selects the prompt template or preset.
	Style prompts.StyleSelector
	// PromptOptions fill template placeholders.
	PromptOptions prompts.Options
	// Generation carries model, size and inference parameters. Its prompt
	// fields are replaced by the resolved prompt.
	Generation generation.Request
	// Processing is applied to every variant.
	Processing iconset.Config
	// OutputDir is the root under which the session directory is created.
	OutputDir string
	// Format names the size preset, recorded in metadata.
	Format string
	// Aspect names the post size of FormatInstagram, see
	// iconset.InstagramAspects. It sets the generation size and, when
	// Processing has no target sizes, the single processed size.
	Aspect string
}

// VariantResult is one processed variant.
type VariantResult struct {
	Name     string
	Original string
	Files    []string
	Set      *iconset.ArtifactSet
}

// Result is the outcome of Generate.
type Result struct {
	SessionDir string
	Prompt     prompts.Prompt
	Variants   []VariantResult
}

// Generate resolves the prompt, generates the variants, stores the originals
// and processes every variant into the session directory.
//
// Arguments:
//   - ctx: Cancels generation and processing.
//   - req: The run description.
//
// Returns:
//   - *Result: The session directory and per-variant artifacts.
//   - error: ErrNoGenerator, a prompt, generation, or processing error.
func (p *Pipeline) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	if p.generator == nil {
		return nil, ErrNoGenerator
	}

	genReq := req.Generation
	var aspect string
	if req.Format == FormatInstagram {
		size, err := iconset.InstagramSize(req.Aspect)
		if err != nil {
			return nil, err
		}
		aspect = size.Label
		genReq.Width, genReq.Height = size.Width, size.Height
		if len(req.Processing.TargetSizes) == 0 {
			req.Processing.TargetSizes = []iconset.SizeSpec{size}
		}
	}
	if err := req.Processing.Validate(); err != nil {
		return nil, err
	}

	prompt, err := prompts.Resolve(req.Style, req.Subject, req.PromptOptions)
	if err != nil {
		return nil, err
	}
	genReq.Prompt = prompt.Positive
	genReq.NegativePrompt = prompt.Negative
	if err := genReq.Validate(); err != nil {
		return nil, err
	}

	started := p.now()
	session, err := output.NewSession(req.OutputDir, req.Subject, started)
	if err != nil {
		return nil, err
	}
	p.logger.Info("generating",
		zap.String("subject", req.Subject),
		zap.String("style", prompt.Style),
		zap.String("model", genReq.Model),
		zap.Int("variations", genReq.Variations),
		zap.Int("width", genReq.Width),
		zap.Int("height", genReq.Height),
		zap.String("session", session.Dir),
	)

	done := p.timings.StartOperation("pipeline.generate")
	raw, err := p.generator.Generate(ctx, genReq)
	done()
	if err != nil {
		return nil, errors.Wrap(err, "generation failed")
	}

	originals := make([]util.ImageFile, 0, len(raw))
	for i, data := range raw {
		png, err := images.ToPNG(data)
		if err != nil {
			return nil, errors.Wrapf(err, "variant %d", i+1)
		}
		path, err := session.WriteOriginal(i+1, png)
		if err != nil {
			return nil, err
		}
		originals = append(originals, util.ImageFile{Path: path, Data: png, Index: i + 1})
	}

	record := output.GenerationRecord{
		GeneratedAt:    started,
		Subject:        req.Subject,
		Style:          prompt.Style,
		Format:         req.Format,
		Model:          genReq.Model,
		Variations:     len(originals),
		Prompt:         prompt.Positive,
		NegativePrompt: prompt.Negative,
		Parameters:     genReq.Params,
	}
	if aspect != "" {
		record.AspectRatio = aspect
	} else if model, err := generation.LookupModel(genReq.Model); err == nil && model.SizeParam == generation.SizeAspectRatio {
		record.AspectRatio = generation.AspectRatio(genReq.Width, genReq.Height)
	}
	if err := session.WriteRecord(record); err != nil {
		return nil, err
	}

	variants, err := p.ProcessFiles(ctx, originals, req.Processing, func(f util.ImageFile) string {
		return filepath.Join(session.ProcessedDir(), f.Name())
	})
	if err != nil {
		return nil, err
	}
	return &Result{SessionDir: session.Dir, Prompt: prompt, Variants: variants}, nil
}

// ProcessSession processes every original of an existing session directory
// into its processed/ subdirectory.
func (p *Pipeline) ProcessSession(ctx context.Context, dir string, cfg iconset.Config) ([]VariantResult, error) {
	session := &output.Session{Dir: dir}
	files, err := util.LoadVariantFiles(session.OriginalsDir())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load originals of %s", dir)
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no variants found in %s", session.OriginalsDir())
	}
	return p.ProcessFiles(ctx, files, cfg, func(f util.ImageFile) string {
		return filepath.Join(session.ProcessedDir(), f.Name())
	})
}

// ProcessFiles processes files one after another and writes each artifact
// set to dirFor(file).
//
// Arguments:
//   - ctx: Checked between files and inside each build.
//   - files: Encoded source images.
//   - cfg: The processing configuration. Source is set per file.
//   - dirFor: Maps a file to its output directory.
//
// Returns:
//   - []VariantResult: One result per file, in order.
//   - error: The first failure, wrapped with the file path.
func (p *Pipeline) ProcessFiles(ctx context.Context, files []util.ImageFile, cfg iconset.Config, dirFor func(util.ImageFile) string) ([]VariantResult, error) {
	results := make([]VariantResult, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fileCfg := cfg
		if fileCfg.Source == "" {
			fileCfg.Source = f.Path
		}

		set, err := p.Process(ctx, f.Data, fileCfg)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", f.Path)
		}

		done := p.timings.StartOperation("pipeline.write")
		paths, err := output.WriteArtifactSet(dirFor(f), set)
		done()
		if err != nil {
			return nil, err
		}

		p.logger.Info("processed variant",
			zap.String("variant", f.Name()),
			zap.Int("files", len(paths)),
		)
		results = append(results, VariantResult{Name: f.Name(), Original: f.Path, Files: paths, Set: set})
	}
	return results, nil
}

// Process decodes one encoded image, extracts a matte when requested and
// builds its artifact set. A failing remover degrades to a missing matte.
func (p *Pipeline) Process(ctx context.Context, data []byte, cfg iconset.Config) (*iconset.ArtifactSet, error) {
	done := p.timings.StartOperation("pipeline.decode")
	base, err := images.Decode(data)
	done()
	if err != nil {
		return nil, err
	}

	var alpha *image.Gray
	if cfg.RemoveBackground && p.remover != nil {
		done := p.timings.StartOperation("pipeline.matting")
		alpha, err = p.remover.RemoveBackground(ctx, base)
		done()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			p.logger.Warn("background removal failed", zap.String("source", cfg.Source), zap.Error(err))
			alpha = nil
		}
	}

	return p.builder.Run(ctx, base, alpha, cfg)
}
