package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/hashpage"
	"github.com/vango-dev/hashpage/internal/config"
	herrors "github.com/vango-dev/hashpage/internal/errors"
	"github.com/vango-dev/hashpage/pkg/dom"
)

type renderOptions struct {
	layout  string
	full    bool
	timeout time.Duration
}

func renderCmd(c *cli) *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render [hash]",
		Short: "Render a location hash to HTML",
		Long: `Render a location hash the way a browser would, and print the result.

The page for the hash is fetched from the configured source, its widgets
are loaded and mounted, and the markup of the application root is written
to stdout once nothing is left pending.

Examples:
  hashpage render
  hashpage render '#/docs/intro?lang=en'
  hashpage render /about --full --layout layout.html`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := c.load()
			if err != nil {
				return err
			}
			hash := ""
			if len(args) == 1 {
				hash = args[0]
			}
			return runRender(cmd.Context(), cmd.OutOrStdout(), cfg, logger, hash, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.layout, "layout", "l", "", "HTML file placed in <body> before rendering")
	cmd.Flags().BoolVarP(&opts.full, "full", "f", false, "Print the whole document instead of the root")
	cmd.Flags().DurationVarP(&opts.timeout, "timeout", "t", 30*time.Second, "Give up after this long")

	return cmd
}

func runRender(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger, hash string, opts renderOptions) error {
	doc, err := layoutDocument(opts.layout)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	source, err := openSource(ctx, cfg.Source, cfg.Serve.RateLimit)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	rt, err := hashpage.New(cfg.Options(),
		hashpage.WithContext(ctx),
		hashpage.WithFetcher(source),
		hashpage.WithStore(store),
		hashpage.WithDocument(doc),
		hashpage.WithLogger(logger),
		hashpage.WithHash(hash),
	)
	if err != nil {
		return err
	}
	defer rt.Shutdown()

	rt.Start()
	err = rt.Flush(ctx)
	if err == nil {
		// Fetches cancelled by the deadline complete as failures.
		err = ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return herrors.New("H050").WithDetailf("hash %q after %s", hash, opts.timeout)
	}
	if err != nil {
		return err
	}

	markup := rt.Root().InnerHTML()
	if opts.full {
		markup = rt.Document().String()
	}
	_, err = fmt.Fprintln(out, markup)
	return err
}

// layoutDocument returns a document whose body holds the layout file, or a
// blank document when path is empty.
func layoutDocument(path string) (*dom.Document, error) {
	if path == "" {
		return dom.NewDocument(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, herrors.New("H001").WithDetail(path).Wrap(err)
	}
	return layoutFromString(string(data))
}

func layoutFromString(layout string) (*dom.Document, error) {
	doc, err := dom.ParseString("<!DOCTYPE html><html><head><title></title></head><body>" + layout + "</body></html>")
	if err != nil {
		return nil, herrors.New("H002").WithDetail("layout").Wrap(err)
	}
	return doc, nil
}
