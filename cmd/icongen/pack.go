package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/nvr-ai/go-icongen/ico"
	"github.com/nvr-ai/go-icongen/images"
	"github.com/nvr-ai/go-icongen/util"
)

func runPack(_ context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("pack", flag.ContinueOnError)
	out := fs.String("o", "icon.ico", "Output .ico path")
	verify := fs.Bool("verify", false, "Parse the given .ico files and print their directories instead of packing")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: icongen pack [-o icon.ico] <image>...\n       icongen pack -verify <icon.ico>...\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return flag.ErrHelp
	}

	if *verify {
		for _, path := range fs.Args() {
			if err := verifyContainer(e, path); err != nil {
				return err
			}
		}
		return nil
	}

	files, err := util.LoadImageFiles(fs.Args())
	if err != nil {
		return err
	}

	done := e.timings.StartOperation("pack.encode")
	entries := make([]ico.Entry, 0, len(files))
	for _, f := range files {
		png, err := images.ToPNG(f.Data)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Path, err)
		}
		enc, err := images.DecodeConfig(png)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Path, err)
		}
		entries = append(entries, ico.Entry{Width: enc.Width, Height: enc.Height, Data: png})
	}

	data, err := ico.Pack(entries)
	done()
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "Packed %d images into %s (%d bytes)\n", len(entries), *out, len(data))
	return nil
}

func verifyContainer(e *env, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	f, err := ico.Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	fmt.Fprintf(e.stdout, "%s: %d images\n", path, f.Header.Count)
	for i, d := range f.Directory {
		w, h := d.Dimensions()
		format := images.DetectFormat(f.Payloads[i])
		fmt.Fprintf(e.stdout, "  %3dx%-3d %2d bpp  %7d bytes at %-7d %s\n", w, h, d.BitCount, d.Size, d.Offset, format)
	}
	return nil
}
