package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvr-ai/go-icongen/output"
	"github.com/nvr-ai/go-icongen/pipeline"
	"github.com/nvr-ai/go-icongen/util"
)

func runProcess(ctx context.Context, e *env, args []string) error {
	cfg := e.cfg
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	outDir := fs.String("output", "", "Output directory for image inputs (default: next to each image)")
	bindProcessing(fs, &cfg.Processing)
	bindMatting(fs, &cfg.Matting)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: icongen process [flags] <image|session-dir>...\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return flag.ErrHelp
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	processing, err := cfg.Processing.IconsetConfig("")
	if err != nil {
		return err
	}

	remover, closeRemover := newRemover(e)
	defer closeRemover()
	p := newPipeline(e, pipeline.WithRemover(remover))

	var files []string
	for _, arg := range fs.Args() {
		info, err := os.Stat(arg)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		results, err := p.ProcessSession(ctx, arg, processing)
		if err != nil {
			return err
		}
		printVariants(e, results)
		fmt.Fprintf(e.stdout, "Processed: %s\n", (&output.Session{Dir: arg}).ProcessedDir())
	}

	if len(files) == 0 {
		return nil
	}
	loaded, err := util.LoadImageFiles(files)
	if err != nil {
		return err
	}
	results, err := p.ProcessFiles(ctx, loaded, processing, func(f util.ImageFile) string {
		if *outDir != "" {
			return filepath.Join(*outDir, f.Name())
		}
		return filepath.Join(filepath.Dir(f.Path), f.Name()+"-icons")
	})
	if err != nil {
		return err
	}
	printVariants(e, results)
	for _, r := range results {
		if len(r.Files) > 0 {
			fmt.Fprintf(e.stdout, "Written: %s\n", filepath.Dir(r.Files[0]))
		}
	}
	return nil
}
