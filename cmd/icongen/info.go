package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-icongen/generation"
	"github.com/nvr-ai/go-icongen/iconset"
	"github.com/nvr-ai/go-icongen/prompts"
)

func runInfo(_ context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	shown := *e.cfg
	if shown.Replicate.APIToken != "" {
		shown.Replicate.APIToken = "set"
	}
	data, err := yaml.Marshal(&shown)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "Configuration:\n%s\n", indent(string(data)))

	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Models:")
	for _, m := range generation.Models() {
		outputs := "1 per call"
		if m.SupportsNumOutputs {
			outputs = "batched"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", m.Key, m.ID, outputs, m.Description)
	}

	fmt.Fprintln(tw, "\nSize presets:")
	for _, name := range iconset.Presets {
		sizes, err := iconset.ParseSizes(name)
		if err != nil {
			return err
		}
		labels := make([]string, len(sizes))
		for i, s := range sizes {
			labels[i] = s.Label
			if s.Width != s.Height {
				labels[i] = fmt.Sprintf("%s=%dx%d", s.Label, s.Width, s.Height)
			}
		}
		fmt.Fprintf(tw, "  %s\t%s\n", name, strings.Join(labels, ", "))
	}

	fmt.Fprintln(tw, "\nStyles:")
	for _, name := range prompts.TemplateNames() {
		fmt.Fprintf(tw, "  %s\t%s\n", name, prompts.TemplateDescription(name))
	}
	for _, p := range prompts.ArtisticPresets() {
		fmt.Fprintf(tw, "  %s\t%s\n", p.Key, p.Name)
	}
	return tw.Flush()
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
