package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pagecomposer/pkg/pagemodel"
	"github.com/matzehuels/pagecomposer/pkg/render"
	"github.com/matzehuels/pagecomposer/pkg/render/nodelink"
	"github.com/matzehuels/pagecomposer/pkg/store"
)

// treeOpts holds the command-line flags for the tree command.
type treeOpts struct {
	output   string   // output file path (or base path for multiple outputs)
	formats  []string // output formats: "svg", "dot", "pdf", "png"
	backend  string   // backend URL, overrides the config
	fixture  string   // read the page model from a fixture instead of a backend
	detailed bool     // show type, template and path in node labels
	selected string   // component to highlight
}

// validFormats is the set of supported output formats.
var validFormats = []string{render.FormatSVG, render.FormatDOT, render.FormatPDF, render.FormatPNG}

// treeCommand creates the tree command that draws a page model.
func (c *CLI) treeCommand() *cobra.Command {
	var formatsStr string
	var opts treeOpts

	cmd := &cobra.Command{
		Use:   "tree [page-id]",
		Short: "Draw the page model of a page as a diagram",
		Long: `Draw the page model of a page as a node-link diagram.

The page sits at the top, containers below it and items below their
container in stored order. The model is read from the backend, or from a
fixture file with --fixture (use "demo" for the built-in demo site).`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completePageIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := validateFormats(opts.formats); err != nil {
				return err
			}
			return c.runTree(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, pdf, png (comma-separated)")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "backend URL (default from config)")
	cmd.Flags().StringVar(&opts.fixture, "fixture", "", "read the page model from a fixture file (\"demo\" for the built-in site)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show type, template and path in node labels")
	cmd.Flags().StringVar(&opts.selected, "select", "", "highlight a component")

	return cmd
}

// parseFormats parses the --format flag into a slice of output formats.
// If empty, defaults to ["svg"].
func parseFormats(s string) []string {
	if s == "" {
		return []string{render.FormatSVG}
	}
	return strings.Split(s, ",")
}

// validateFormats checks that all requested formats are valid.
func validateFormats(formats []string) error {
	for _, f := range formats {
		if !slices.Contains(validFormats, f) {
			return fmt.Errorf("invalid format: %s (must be 'svg', 'dot', 'pdf', or 'png')", f)
		}
	}
	return nil
}

func (c *CLI) runTree(ctx context.Context, pageID string, opts treeOpts) error {
	comps, err := c.loadModel(ctx, pageID, opts)
	if err != nil {
		return err
	}

	dot := nodelink.ToDOT(comps, nodelink.Options{Detailed: opts.detailed, Selected: opts.selected})
	var svg []byte
	if slices.ContainsFunc(opts.formats, func(f string) bool { return f != render.FormatDOT }) {
		if svg, err = nodelink.RenderSVG(ctx, dot); err != nil {
			return fmt.Errorf("render: %w", err)
		}
	}

	base := basePath(opts.output, pageID)
	for _, format := range opts.formats {
		data := []byte(dot)
		if format != render.FormatDOT {
			if data, err = render.Convert(ctx, svg, format); err != nil {
				return err
			}
		}
		path := outputPath(opts.output, base, format, len(opts.formats))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	return nil
}

// loadModel reads the page model from a fixture or the backend.
func (c *CLI) loadModel(ctx context.Context, pageID string, opts treeOpts) ([]pagemodel.Component, error) {
	if opts.fixture == "" {
		api, err := c.newAPI(ctx, opts.backend, false)
		if err != nil {
			return nil, err
		}
		page, err := api.FindPage(ctx, pageID)
		if err != nil {
			return nil, err
		}
		return api.PageModel(ctx, page.RootID)
	}

	fx := store.DemoFixture()
	if opts.fixture != "demo" {
		var err error
		if fx, err = store.LoadFixture(opts.fixture); err != nil {
			return nil, err
		}
	}
	repo := store.NewRepository(store.NewMemoryBackend(), c.Logger)
	if err := repo.Seed(ctx, fx); err != nil {
		return nil, err
	}
	page, err := repo.Page(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return repo.PageModel(ctx, page.RootID)
}

// basePath returns the output path without extension: the --output flag,
// or the page id in the current directory.
func basePath(output, pageID string) string {
	if output != "" {
		return strings.TrimSuffix(output, filepath.Ext(output))
	}
	return pageID
}

// outputPath returns where one format is written. A single format with an
// explicit output keeps the given name.
func outputPath(output, base, format string, count int) string {
	if output != "" && count == 1 {
		return output
	}
	return base + "." + format
}
