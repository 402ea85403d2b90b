package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/hashpage"
	"github.com/vango-dev/hashpage/internal/config"
	"github.com/vango-dev/hashpage/internal/dev"
	herrors "github.com/vango-dev/hashpage/internal/errors"
	"github.com/vango-dev/hashpage/internal/views"
	"github.com/vango-dev/hashpage/pkg/bridge"
	"github.com/vango-dev/hashpage/pkg/fetch"
	"github.com/vango-dev/hashpage/pkg/kvstore"
	"github.com/vango-dev/hashpage/pkg/metrics"
	"github.com/vango-dev/hashpage/pkg/middleware"
)

type serveOptions struct {
	layout string
	trace  bool
}

func serveCmd(c *cli) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the site to browsers",
		Long: `Serve the site to browsers.

Browsers load a small shell page that opens a WebSocket to the bridge and
sends every hash change. Each connection gets its own runtime, and the
rendered application root is pushed back after every navigation.

Fragments of a directory source are also served as static files, so
another hashpage instance can use this server as its http source.

Examples:
  hashpage serve
  hashpage serve --addr=0.0.0.0:8080 --watch
  hashpage serve --trace 2> spans.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := c.load()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, logger, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringP("addr", "a", "", "Address to listen on (default from "+config.ConfigFileName+")")
	flags.BoolP("watch", "w", false, "Evict cached fragments and reload browsers when files change")
	flags.StringVarP(&opts.layout, "layout", "l", "", "HTML file placed in <body> of the shell")
	flags.BoolVar(&opts.trace, "trace", false, "Write OpenTelemetry spans to stderr")
	_ = c.v.BindPFlag("serve.addr", flags.Lookup("addr"))
	_ = c.v.BindPFlag("serve.watch", flags.Lookup("watch"))

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts serveOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.trace {
		shutdown, err := setupTracing(os.Stderr)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Warn("tracer shutdown", "error", err)
			}
		}()
	}

	layout := ""
	if opts.layout != "" {
		data, err := os.ReadFile(opts.layout)
		if err != nil {
			return herrors.New("H001").WithDetail(opts.layout).Wrap(err)
		}
		layout = string(data)
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

	s := newServer(cfg, logger, store, source, layout)
	httpSrv := &http.Server{
		Addr:              cfg.Serve.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return herrors.New("H051").WithDetail(cfg.Serve.Addr).Wrap(err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.bridge.Close()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(sctx)
	})

	if cfg.Serve.Watch {
		w, err := s.watch()
		if err != nil {
			return err
		}
		if w != nil {
			g.Go(func() error {
				if err := w.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
		}
	}

	printBanner()
	success("Serving %s on http://%s", cfg.Source, cfg.Serve.Addr)
	info("Bridge:  %s", cfg.Serve.Bridge)
	if cfg.Serve.Metrics {
		info("Metrics: /metrics")
	}
	fmt.Println()

	return g.Wait()
}

// server wires the shell page, the bridge and the supporting endpoints.
type server struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    kvstore.Store
	source   fetch.Fetcher
	layout   string
	bridge   *bridge.Server
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

func newServer(cfg *config.Config, logger *slog.Logger, store kvstore.Store, source fetch.Fetcher, layout string) *server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &server{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		source:   source,
		layout:   layout,
		registry: reg,
		metrics:  metrics.New(metrics.WithRegistry(reg)),
	}
	s.bridge = bridge.New(s.newRuntime, bridge.WithLogger(logger))
	return s
}

// newRuntime creates the runtime for one bridge connection. Storage and the
// page cache are shared by every connection; Session is not.
func (s *server) newRuntime(ctx context.Context, obs hashpage.Observer) (*hashpage.Runtime, error) {
	doc, err := layoutFromString(s.layout)
	if err != nil {
		return nil, err
	}
	return hashpage.New(s.cfg.Options(),
		hashpage.WithContext(ctx),
		hashpage.WithFetcher(s.source),
		hashpage.WithStore(s.store),
		hashpage.WithDocument(doc),
		hashpage.WithLogger(s.logger),
		hashpage.WithMetrics(s.metrics),
		hashpage.WithObserver(obs),
	)
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.OpenTelemetry(middleware.WithFilter(func(r *http.Request) bool {
		return r.URL.Path != "/metrics"
	})))
	r.Use(middleware.Prometheus(middleware.WithRegistry(s.registry)))

	r.Get("/", s.shell)
	r.Handle(s.cfg.Serve.Bridge, s.bridge)
	if s.cfg.Serve.Metrics {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	if dir, ok := sourceDir(s.cfg.Source); ok {
		files := http.FileServer(afero.NewHttpFs(
			afero.NewReadOnlyFs(afero.NewBasePathFs(afero.NewOsFs(), dir)),
		))
		for _, prefix := range s.staticPrefixes() {
			r.Handle("/"+prefix+"/*", files)
		}
	}
	return r
}

// staticPrefixes lists the relative fragment directories to expose.
func (s *server) staticPrefixes() []string {
	opts := s.cfg.Options()
	pages := strings.Trim(opts.Pages, "/")
	widgets := strings.Trim(opts.Widgets, "/")
	if widgets == "" {
		widgets = pages + "/widget"
	}

	var out []string
	if pages != "" && !strings.Contains(pages, "://") {
		out = append(out, pages)
	}
	if widgets != "" && !strings.Contains(widgets, "://") && !strings.HasPrefix(widgets+"/", pages+"/") {
		out = append(out, widgets)
	}
	return out
}

func (s *server) shell(w http.ResponseWriter, r *http.Request) {
	root := s.cfg.El
	if root == "" {
		root = "body"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := views.Shell(views.ShellData{
		Title:  s.cfg.App,
		Bridge: s.cfg.Serve.Bridge,
		Root:   root,
		Body:   s.layout,
	}).Render(r.Context(), w)
	if err != nil {
		s.logger.Warn("shell render failed", "error", err)
	}
}

// watch sets up cache invalidation for a directory source. It returns nil
// when the source is not local.
func (s *server) watch() (*dev.Watcher, error) {
	dir, ok := sourceDir(s.cfg.Source)
	if !ok {
		warn("--watch needs a directory source, ignoring it for %s", s.cfg.Source)
		return nil, nil
	}
	w, err := dev.NewWatcher(dev.WatcherConfig{Root: dir, Logger: s.logger})
	if err != nil {
		return nil, herrors.New("H051").WithDetailf("watching %s", dir).Wrap(err)
	}

	opts := s.cfg.Options()
	widgets := opts.Widgets
	if widgets == "" {
		widgets = strings.TrimRight(opts.Pages, "/") + "/widget"
	}
	inv := &dev.Invalidator{
		Cache:   pageCache(s.cfg, s.store, s.logger),
		Pages:   opts.Pages,
		Widgets: widgets,
		Reload:  s.bridge.Reload,
		Logger:  s.logger,
	}
	w.OnChange(func(changes []dev.Change) {
		inv.Handle(context.Background(), changes)
	})
	return w, nil
}
