// Package pipeline runs a complete header generation: package resolution,
// artifact generation, ingestion, classification, grouping and emission.
package pipeline

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/Pico-ROS/picoros-typegen/internal/classify"
	"github.com/Pico-ROS/picoros-typegen/internal/config"
	"github.com/Pico-ROS/picoros-typegen/internal/emit"
	"github.com/Pico-ROS/picoros-typegen/internal/headercheck"
	"github.com/Pico-ROS/picoros-typegen/internal/ingest"
	"github.com/Pico-ROS/picoros-typegen/internal/manifest"
	"github.com/Pico-ROS/picoros-typegen/internal/model"
	"github.com/Pico-ROS/picoros-typegen/internal/prune"
	"github.com/Pico-ROS/picoros-typegen/internal/provider"
	"github.com/Pico-ROS/picoros-typegen/internal/resolve"
	"github.com/Pico-ROS/picoros-typegen/internal/service"
	"github.com/Pico-ROS/picoros-typegen/internal/sink"
)

const manifestCacheSize = 256

var (
	// ErrNoTypes means ingestion produced nothing to emit.
	ErrNoTypes = errors.New("no usable type descriptions")
	// ErrStale means the header on disk differs from a fresh rendering.
	ErrStale = errors.New("header is out of date")
)

// Result is the outcome of a run.
type Result struct {
	Header     []byte
	HeaderPath string
	Digest     string // blake3 of Header, hex
	Packages   []model.Package
	Report     *model.Report
	Macros     []string // set when the header was verified
}

// Generator runs generations. The zero value writes to the filesystem and
// runs the generator command named in the options.
type Generator struct {
	Provider provider.Provider // nil selects a provider.Command from the options
	Sink     sink.OutputSink   // nil writes next to the header path
	Logger   *slog.Logger
}

func (g *Generator) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

// Generate runs the full pipeline and writes the header.
func (g *Generator) Generate(ctx context.Context, opts config.Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	logger := g.logger()

	var pkgs []model.Package
	if !opts.SkipGenerate {
		var err error
		pkgs, err = g.packages(opts.PackageDirs)
		if err != nil {
			return nil, err
		}
		if err := provider.Run(ctx, g.provider(opts), pkgs, opts.OutputDir, logger); err != nil {
			return nil, err
		}
	}

	res, err := g.render(ctx, opts)
	if err != nil {
		return nil, err
	}
	res.Packages = pkgs

	if opts.Verify {
		report, err := headercheck.Check(ctx, res.Header)
		if err != nil {
			return nil, fmt.Errorf("verifying header: %w", err)
		}
		res.Macros = report.Macros
	}

	out := g.Sink
	if out == nil {
		out = sink.NewFilesystemSink(filepath.Dir(res.HeaderPath))
	}
	if err := writeHeader(ctx, out, res); err != nil {
		return nil, err
	}
	logger.Info("wrote header", "path", res.HeaderPath,
		"types", len(res.Report.Types), "services", len(res.Report.Services), "dropped", len(res.Report.Dropped))
	return res, nil
}

// Check renders the header from the artifacts already in the output
// directory into memory and compares it with the header on disk. It returns
// ErrStale when they differ or the header is missing. Nothing is written.
func (g *Generator) Check(ctx context.Context, opts config.Options) (*Result, error) {
	opts.SkipGenerate = true
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	res, err := g.render(ctx, opts)
	if err != nil {
		return nil, err
	}

	fresh := sink.NewMemorySink()
	if err := writeHeader(ctx, fresh, res); err != nil {
		return nil, err
	}

	existing, err := os.ReadFile(res.HeaderPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return res, fmt.Errorf("%w: %s does not exist", ErrStale, res.HeaderPath)
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if Digest(existing) != Digest(fresh.Get(filepath.Base(res.HeaderPath))) {
		return res, fmt.Errorf("%w: %s", ErrStale, res.HeaderPath)
	}
	g.logger().Info("header is up to date", "path", res.HeaderPath, "digest", res.Digest)
	return res, nil
}

// Inspect renders the artifacts in opts.OutputDir without writing
// anything and returns what went into the header.
func (g *Generator) Inspect(ctx context.Context, opts config.Options) (*model.Report, error) {
	res, err := g.render(ctx, opts)
	if err != nil {
		return nil, err
	}
	return res.Report, nil
}

func (g *Generator) provider(opts config.Options) provider.Provider {
	if g.Provider != nil {
		return g.Provider
	}
	return &provider.Command{
		Path:        opts.Generator,
		Args:        opts.GeneratorArgs,
		IDLOnly:     filepath.Base(opts.Generator) == provider.StockGenerator,
		TemplateDir: opts.TemplateDir,
		Env:         opts.GeneratorEnv,
	}
}

func (g *Generator) packages(roots []string) ([]model.Package, error) {
	logger := g.logger()
	cache, err := manifest.NewCache(manifestCacheSize)
	if err != nil {
		return nil, err
	}
	found, err := resolve.Packages(roots, cache, logger)
	if err != nil {
		return nil, fmt.Errorf("discovering packages: %w", err)
	}
	if len(found) == 0 {
		logger.Warn("no interface packages found", "roots", roots)
	}

	ordered, cyclic := resolve.Order(found)
	if len(cyclic) > 0 {
		logger.Warn("circular dependencies detected in packages", "packages", cyclic)
	}
	logger.Debug("resolved packages", "count", len(ordered))
	return ordered, nil
}

// render turns the artifacts in the output directory into a header.
func (g *Generator) render(ctx context.Context, opts config.Options) (*Result, error) {
	logger := g.logger()
	dir := opts.OutputDir

	ing, err := ingest.Dir(ctx, dir, ingest.Options{Jobs: opts.Jobs, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("ingesting %s: %w", dir, err)
	}
	types := ing.Types
	copts := classify.Options{LegacySuffixMatch: opts.LegacySuffixMatch}
	if len(opts.Only) > 0 {
		types = prune.Select(types, opts.Only, classify.NewResolver(types, copts))
		logger.Debug("selected namespaces", "namespaces", opts.Only, "types", len(types))
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoTypes, dir)
	}

	resolver := classify.NewResolver(types, copts)
	classify.Annotate(types, resolver)
	services := service.Finalize(service.Group(types))
	out := emit.Render(types, services, resolver, logger)

	dropped := append(append([]model.Drop(nil), ing.Rejected...), out.Dropped...)
	return &Result{
		Header:     out.Header,
		HeaderPath: opts.HeaderPath(),
		Digest:     Digest(out.Header),
		Report: &model.Report{
			Source:   dir,
			Types:    out.Types,
			Services: out.Services,
			Dropped:  dropped,
			Cyclic:   out.Cyclic,
		},
	}, nil
}

// writeHeader stores the rendered header in out under its base name.
func writeHeader(ctx context.Context, out sink.OutputSink, res *Result) error {
	if err := out.WriteFile(ctx, filepath.Base(res.HeaderPath), res.Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	return nil
}

// Digest returns the hex blake3 digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
