package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/astei/anvilview/config"
	"github.com/astei/anvilview/fetch"
	"github.com/astei/anvilview/mcversion"
	"github.com/astei/anvilview/metrics"
	"github.com/astei/anvilview/resource"
	"github.com/astei/anvilview/world"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// set by the linker: go build -ldflags "-X main.version=M.N"
var version = "dev"

// environment is shared by every command; it is built in the app's Before hook.
type environment struct {
	config   *config.Config
	log      *zap.Logger
	metrics  *metrics.Metrics
	fetcher  *fetch.Client
	resolver *mcversion.Resolver
	jars     *mcversion.Jars
	server   *http.Server
	w        io.Writer
}

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "anvilview:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	dimensionFlag := &cli.StringFlag{
		Name:    "dimension",
		Aliases: []string{"d"},
		Value:   world.Overworld.String(),
		Usage:   "dimension `ID` to read",
	}

	return &cli.App{
		Name:      "anvilview",
		Usage:     "inspect Minecraft Java Edition saves",
		Version:   version,
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration `FILE` (default $" + config.EnvPath + ")",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log debug output",
			},
			&cli.StringFlag{
				Name:  "cache-dir",
				Usage: "directory for downloaded documents and jars",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "serve Prometheus metrics on `ADDR`",
			},
		},
		Before: setup,
		After:  teardown,
		Commands: []*cli.Command{
			{
				Name:      "chunk",
				Usage:     "print the slices of one chunk",
				ArgsUsage: "WORLD X Z",
				Flags: []cli.Flag{
					dimensionFlag,
					&cli.BoolFlag{Name: "offline", Usage: "do not resolve the release name"},
				},
				Action: runChunk,
			},
			{
				Name:      "region",
				Usage:     "load every chunk of a region and summarize it",
				ArgsUsage: "WORLD RX RZ",
				Flags:     []cli.Flag{dimensionFlag},
				Action:    runRegion,
			},
			{
				Name:  "version",
				Usage: "translate between releases and schema versions",
				Subcommands: []*cli.Command{
					{
						Name:      "release",
						Usage:     "print the release of a schema version",
						ArgsUsage: "SCHEMA",
						Action:    runVersionRelease,
					},
					{
						Name:      "schema",
						Usage:     "print the schema version of a release",
						ArgsUsage: "RELEASE",
						Action:    runVersionSchema,
					},
				},
			},
			{
				Name:      "jar",
				Usage:     "locate, or download, the client jar of a release",
				ArgsUsage: "RELEASE",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "download", Usage: "download the jar when none is installed"},
				},
				Action: runJar,
			},
			{
				Name:      "export",
				Usage:     "write the chunks of a dimension as a Slime world",
				ArgsUsage: "WORLD OUTPUT",
				Flags: []cli.Flag{
					dimensionFlag,
					&cli.StringSliceFlag{Name: "region", Usage: "only export region `RX,RZ` (repeatable)"},
				},
				Action: runExport,
			},
			{
				Name:      "level",
				Usage:     "print the level.dat summary of a save",
				ArgsUsage: "WORLD",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "offline", Usage: "do not resolve the release name"},
				},
				Action: runLevel,
			},
		},
	}
}

func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if dir := c.String("cache-dir"); dir != "" {
		cfg.CacheDir = dir
	}
	if addr := c.String("metrics-addr"); addr != "" {
		cfg.Metrics.Addr = addr
	}

	var log *zap.Logger
	if c.Bool("verbose") {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	fetcher := fetch.New(cfg.CacheDir, fetch.WithLogger(log), fetch.WithMetrics(m))
	cache := mcversion.LoadCache(filepath.Join(cfg.CacheDir, mcversion.CacheFile))
	jars := mcversion.NewJars(fetcher, cfg.CacheDir, cfg.LauncherDir(), log)
	jars.SetManifestURL(cfg.Versions.ManifestURL)

	env := &environment{
		config:  cfg,
		log:     log,
		metrics: m,
		fetcher: fetcher,
		resolver: mcversion.NewResolver(fetcher, cache,
			mcversion.WithManifestURL(cfg.Versions.ManifestURL),
			mcversion.WithReportURL(cfg.Versions.ReportURL),
			mcversion.WithLogger(log),
			mcversion.WithMetrics(m)),
		jars: jars,
		w:    c.App.Writer,
	}
	if cfg.Metrics.Addr != "" {
		env.serveMetrics(registry)
	}
	c.App.Metadata = map[string]any{"env": env}
	return nil
}

func (e *environment) serveMetrics(registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	e.server = &http.Server{Addr: e.config.Metrics.Addr, Handler: mux}
	go func() {
		if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.log.Error("metrics server stopped", zap.Error(err))
		}
	}()
	e.log.Info("serving metrics", zap.String("addr", e.config.Metrics.Addr))
}

func teardown(c *cli.Context) error {
	env, ok := c.App.Metadata["env"].(*environment)
	if !ok {
		return nil
	}
	if env.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		env.server.Shutdown(ctx)
	}
	env.log.Sync()
	return nil
}

func getEnv(c *cli.Context) *environment {
	return c.App.Metadata["env"].(*environment)
}

// openWorld opens a save with the configured modded dimensions registered.
func (e *environment) openWorld(path string) *world.World {
	w := world.New(path, world.WithLogger(e.log), world.WithMetrics(e.metrics))
	for _, dim := range e.config.Dims {
		w.AddDimension(resource.Parse(dim.ID), dim.MinY, dim.MaxY)
	}
	return w
}

func (e *environment) dimension(w *world.World, id string) (*world.Dimension, error) {
	dim, ok := w.Dimension(resource.Parse(id))
	if !ok {
		return nil, fmt.Errorf("unknown dimension %s", id)
	}
	return dim, nil
}

// releaseName resolves a schema version for display; failures are reported inline.
func (e *environment) releaseName(ctx context.Context, schema int) string {
	release, err := e.resolver.Release(ctx, schema)
	if err != nil {
		e.log.Debug("could not resolve release", zap.Int("schema", schema), zap.Error(err))
		return "unknown"
	}
	return release
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
