package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/nvr-ai/go-icongen/config"
	"github.com/nvr-ai/go-icongen/generation"
	"github.com/nvr-ai/go-icongen/iconset"
	"github.com/nvr-ai/go-icongen/pipeline"
	"github.com/nvr-ai/go-icongen/prompts"
)

// generateFlags are the flags shared by generate and instagram.
type generateFlags struct {
	subject     *string
	customStyle *string
}

func bindGenerate(fs *flag.FlagSet, cfg *config.Config) generateFlags {
	f := generateFlags{
		subject:     fs.String("subject", "", "What the image depicts (required)"),
		customStyle: fs.String("custom-style", "", "Full custom style prompt; {subject} is replaced by the subject"),
	}
	fs.StringVar(&cfg.Generation.Style, "style", cfg.Generation.Style, "Style: "+strings.Join(prompts.Styles(), ", "))
	fs.StringVar(&cfg.Generation.Color, "color", cfg.Generation.Color, "Background color for the flat style")
	fs.StringVar(&cfg.Generation.Model, "model", cfg.Generation.Model, "Model key, see 'icongen info'")
	fs.IntVar(&cfg.Generation.Variations, "variations", cfg.Generation.Variations, "Number of variations")
	fs.IntVar(&cfg.Generation.Steps, "steps", cfg.Generation.Steps, "Inference steps (0 = model default)")
	fs.Float64Var(&cfg.Generation.GuidanceScale, "guidance-scale", cfg.Generation.GuidanceScale, "Guidance scale (0 = model default)")
	fs.StringVar(&cfg.Generation.Scheduler, "scheduler", cfg.Generation.Scheduler, "Scheduler, for models that accept one")
	fs.StringVar(&cfg.Output.Dir, "output", cfg.Output.Dir, "Output root directory")
	return f
}

func runGenerate(ctx context.Context, e *env, args []string) error {
	cfg := e.cfg
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	flags := bindGenerate(fs, cfg)
	bindProcessing(fs, &cfg.Processing)
	bindMatting(fs, &cfg.Matting)
	if err := fs.Parse(args); err != nil {
		return err
	}

	processing, err := cfg.Processing.IconsetConfig("")
	if err != nil {
		return err
	}
	return flags.generate(ctx, e, fs, pipeline.GenerateRequest{
		Processing: processing,
		Format:     cfg.Processing.Sizes,
	})
}

// runInstagram generates posts in one of the Instagram sizes. Corner masking,
// container packing and background removal are off unless requested.
func runInstagram(ctx context.Context, e *env, args []string) error {
	cfg := e.cfg
	cfg.Processing.CornerMask = false
	cfg.Processing.PackContainer = false

	fs := flag.NewFlagSet("instagram", flag.ContinueOnError)
	flags := bindGenerate(fs, cfg)
	aspect := fs.String("aspect-ratio", iconset.DefaultInstagramAspect, "Post size: "+strings.Join(iconset.InstagramAspects(), ", "))
	fs.BoolVar(&cfg.Processing.RemoveBackground, "remove-background", false, "Remove the background with the matting model")
	fs.StringVar(&cfg.Processing.Filter, "filter", cfg.Processing.Filter, "Resampling filter: lanczos3, catmullrom, bilinear, nearest")
	bindMatting(fs, &cfg.Matting)
	if err := fs.Parse(args); err != nil {
		return err
	}

	size, err := iconset.InstagramSize(*aspect)
	if err != nil {
		return err
	}
	processing, err := cfg.Processing.IconsetConfig("")
	if err != nil {
		return err
	}
	processing.TargetSizes = []iconset.SizeSpec{size}

	fmt.Fprintf(e.stdout, "Aspect: %s (%dx%d)\n", size.Label, size.Width, size.Height)
	return flags.generate(ctx, e, fs, pipeline.GenerateRequest{
		Processing: processing,
		Format:     pipeline.FormatInstagram,
		Aspect:     size.Label,
	})
}

// generate completes req from the parsed flags and configuration, runs the
// pipeline and prints the result.
func (f generateFlags) generate(ctx context.Context, e *env, fs *flag.FlagSet, req pipeline.GenerateRequest) error {
	cfg := e.cfg
	if strings.TrimSpace(*f.subject) == "" {
		fs.Usage()
		return errors.New("-subject is required")
	}
	selector, err := prompts.ParseSelector(cfg.Generation.Style, *f.customStyle)
	if err != nil {
		return err
	}
	if _, ok := selector.(prompts.Custom); ok {
		cfg.Generation.Style = "custom"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Replicate.APIToken == "" {
		return fmt.Errorf("%s is not set", config.EnvReplicateToken)
	}

	client, err := generation.NewReplicateClient(cfg.Replicate.APIToken,
		generation.WithBaseURL(cfg.Replicate.BaseURL),
		generation.WithPolling(cfg.Replicate.PollInterval, cfg.Replicate.MaxPollInterval, cfg.Replicate.Timeout),
		generation.WithClientLogger(e.logger),
	)
	if err != nil {
		return err
	}

	remover, closeRemover := newRemover(e)
	defer closeRemover()

	req.Subject = *f.subject
	req.Style = selector
	req.PromptOptions = cfg.Generation.PromptOptions()
	req.Generation = cfg.Generation.Request(prompts.Prompt{})
	req.OutputDir = cfg.Output.Dir

	p := newPipeline(e, pipeline.WithGenerator(client), pipeline.WithRemover(remover))
	res, err := p.Generate(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(e.stdout, "Prompt: %s\n", res.Prompt.Positive)
	printVariants(e, res.Variants)
	fmt.Fprintf(e.stdout, "Session: %s\n", res.SessionDir)
	return nil
}

func printVariants(e *env, variants []pipeline.VariantResult) {
	for _, v := range variants {
		container := "no container"
		if v.Set.HasContainer() {
			container = fmt.Sprintf("container with %d sizes", len(v.Set.Metadata.ContainerSizes))
		}
		fmt.Fprintf(e.stdout, "%s: %d sizes, %s\n", v.Name, len(v.Set.Sizes), container)
		for _, w := range v.Set.Metadata.Warnings {
			fmt.Fprintf(e.stdout, "  warning %s: %s\n", w.Code, w.Message)
		}
	}
}
