package main

import (
	"flag"

	"go.uber.org/zap"

	"github.com/nvr-ai/go-icongen/config"
	"github.com/nvr-ai/go-icongen/matting"
	"github.com/nvr-ai/go-icongen/pipeline"
)

// bindProcessing registers flags that override the processing section.
func bindProcessing(fs *flag.FlagSet, p *config.Processing) {
	fs.BoolVar(&p.RemoveBackground, "remove-background", p.RemoveBackground, "Remove the background with the matting model")
	fs.BoolVar(&p.CornerMask, "corner-mask", p.CornerMask, "Apply rounded corners")
	fs.Float64Var(&p.CornerRadiusFraction, "radius", p.CornerRadiusFraction, "Corner radius as a fraction of the shorter side (max 0.5)")
	fs.BoolVar(&p.PackContainer, "pack", p.PackContainer, "Pack sizes up to 256px into icon.ico")
	fs.StringVar(&p.Sizes, "sizes", p.Sizes, "Size preset (ios, windows, favicon) or list such as 16,32,64x32")
	fs.StringVar(&p.Filter, "filter", p.Filter, "Resampling filter: lanczos3, catmullrom, bilinear, nearest")
	fs.IntVar(&p.Concurrency, "concurrency", p.Concurrency, "Sizes processed in parallel (0 = GOMAXPROCS)")
}

// bindMatting registers flags that override the matting section.
func bindMatting(fs *flag.FlagSet, m *config.Matting) {
	fs.StringVar(&m.Backend, "matting", m.Backend, "Background removal backend: onnx or alpha")
	fs.StringVar(&m.ModelPath, "matting-model", m.ModelPath, "Path to the ONNX matting model")
	fs.StringVar(&m.Provider, "provider", m.Provider, "ONNX execution provider: cpu, cuda, coreml, openvino")
}

// newRemover builds the configured background remover. The returned close
// function is never nil. A remover that cannot be created is logged and
// omitted so processing continues without a matte.
func newRemover(e *env) (matting.Remover, func()) {
	noop := func() {}
	if !e.cfg.Processing.RemoveBackground {
		return nil, noop
	}

	switch e.cfg.Matting.Backend {
	case config.MattingAlpha:
		return matting.ChannelRemover{}, noop
	case config.MattingONNX:
		oc, err := e.cfg.Matting.ONNXConfig()
		if err != nil {
			e.logger.Warn("background removal disabled", zap.Error(err))
			return nil, noop
		}
		remover, err := matting.NewONNXRemover(oc, e.logger)
		if err != nil {
			e.logger.Warn("background removal disabled", zap.Error(err))
			return nil, noop
		}
		return remover, func() {
			if err := remover.Close(); err != nil {
				e.logger.Warn("failed to close matting session", zap.Error(err))
			}
		}
	}
	return nil, noop
}

// newPipeline builds a pipeline with the shared logger and timings.
func newPipeline(e *env, opts ...pipeline.Option) *pipeline.Pipeline {
	base := []pipeline.Option{
		pipeline.WithLogger(e.logger),
		pipeline.WithTimings(e.timings),
	}
	return pipeline.New(append(base, opts...)...)
}
