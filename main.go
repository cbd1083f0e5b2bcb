// picoros-typegen generates the pico-ROS message and service type header
// from ROS 2 interface packages.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/Pico-ROS/picoros-typegen/internal/config"
	"github.com/Pico-ROS/picoros-typegen/internal/logging"
	"github.com/Pico-ROS/picoros-typegen/internal/pipeline"
	"github.com/Pico-ROS/picoros-typegen/internal/provider"
	"github.com/Pico-ROS/picoros-typegen/internal/toon"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: loading .env: %v\n", err)
		os.Exit(1)
	}
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type cli struct {
	Globals globals `embed:""`

	Gen     genCmd     `cmd:"" default:"withargs" help:"Generate type descriptions and the type header (default)."`
	Check   checkCmd   `cmd:"" help:"Fail when the header on disk does not match the artifacts."`
	Inspect inspectCmd `cmd:"" help:"Print the types, services and drops found in an artifact directory."`
	Init    initCmd    `cmd:"" help:"Add a header generation step to a CMakeLists.txt."`
}

type globals struct {
	LogLevel    string          `help:"Log level (${enum})." enum:"${log_levels}" default:"info"`
	LogFormat   string          `help:"Log format (${enum})." enum:"${log_formats}" default:"text"`
	Config      kong.ConfigFlag `help:"YAML configuration file." placeholder:"FILE"`
	ShowVersion bool            `name:"version" short:"V" env:"-" help:"Print version and exit."`
}

func (g *globals) logger(w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(g.LogLevel)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(g.LogFormat)
	if err != nil {
		return nil, err
	}
	return logging.New(w, level, format), nil
}

// env is bound into every command's Run.
type env struct {
	ctx    context.Context
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

// exitStatus carries a kong exit request (after --help) out of Parse.
type exitStatus int

func run(args []string, stdout, stderr io.Writer) (err error) {
	var c cli
	parser, err := kong.New(&c,
		kong.Name("picoros-typegen"),
		kong.Description("Generate the pico-ROS type header from ROS 2 interface packages."),
		kong.Vars{
			"default_output_dir":  config.DefaultOutputDir,
			"default_header_file": config.DefaultHeaderFile,
			"default_generator":   provider.StockGenerator,
			"log_levels":          strings.Join(logging.Levels, ","),
			"log_formats":         strings.Join(logging.Formats, ","),
		},
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { panic(exitStatus(code)) }),
		kong.Configuration(config.YAML, config.DefaultFile),
		kong.DefaultEnvars(strings.TrimSuffix(config.EnvPrefix, "_")),
	)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			code, ok := r.(exitStatus)
			if !ok {
				panic(r)
			}
			if code != 0 {
				err = fmt.Errorf("exit status %d", int(code))
			}
		}
	}()

	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	if c.Globals.ShowVersion {
		_, _ = fmt.Fprintf(stdout, "picoros-typegen %s\n", version)
		return nil
	}

	logger, err := c.Globals.logger(stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return kctx.Run(&env{ctx: ctx, stdout: stdout, stderr: stderr, logger: logger})
}

// selectFlags narrow and tune ingestion. They are shared by every command
// that reads artifacts.
type selectFlags struct {
	Only              []string `help:"Keep only these namespaces and what they depend on." placeholder:"NAMESPACE"`
	LegacySuffixMatch bool     `help:"Resolve nested types by name suffix when no exact match exists."`
	Jobs              int      `short:"j" help:"Parallel artifact readers, 0 for one per CPU."`
}

type outputFlags struct {
	PackageDirs []string `arg:"" optional:"" name:"packages-dir" type:"path" help:"Package directories or workspace roots to search (default: .)."`
	OutputDir   string   `short:"o" type:"path" default:"${default_output_dir}" help:"Directory for type descriptions and the header."`
	HeaderFile  string   `default:"${default_header_file}" help:"Header file name, relative to the output directory unless absolute."`
}

func (o *outputFlags) options(s selectFlags) config.Options {
	dirs := o.PackageDirs
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	return config.Options{
		PackageDirs:       dirs,
		OutputDir:         o.OutputDir,
		HeaderFile:        o.HeaderFile,
		Only:              s.Only,
		LegacySuffixMatch: s.LegacySuffixMatch,
		Jobs:              s.Jobs,
	}
}

type genCmd struct {
	Output outputFlags `embed:""`
	Select selectFlags `embed:""`

	Generator    string   `default:"${default_generator}" help:"Type description generator command. The default reads .idl only, so packages with .msg or .srv files need a wrapper that converts them first."`
	GeneratorArg []string `name:"generator-arg" help:"Argument passed to the generator before the arguments file. Repeatable."`
	TemplateDir  string   `type:"path" help:"Template directory handed to the generator."`
	GeneratorEnv []string `name:"generator-env" placeholder:"KEY=VALUE" help:"Environment entry added for the generator only. Repeatable."`
	SkipGenerate bool     `help:"Use the type descriptions already in the output directory."`
	Verify       bool     `help:"Parse the header as C before writing it."`
}

func (c *genCmd) Run(e *env) error {
	opts := c.Output.options(c.Select)
	opts.Generator = c.Generator
	opts.GeneratorArgs = c.GeneratorArg
	opts.TemplateDir = c.TemplateDir
	opts.GeneratorEnv = c.GeneratorEnv
	opts.SkipGenerate = c.SkipGenerate
	opts.Verify = c.Verify

	g := &pipeline.Generator{Logger: e.logger}
	res, err := g.Generate(e.ctx, opts)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(e.stdout, "%s: %d types, %d services, %d dropped\n",
		res.HeaderPath, len(res.Report.Types), len(res.Report.Services), len(res.Report.Dropped))
	return nil
}

type checkCmd struct {
	Output outputFlags `embed:""`
	Select selectFlags `embed:""`
}

func (c *checkCmd) Run(e *env) error {
	g := &pipeline.Generator{Logger: e.logger}
	res, err := g.Check(e.ctx, c.Output.options(c.Select))
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(e.stdout, "%s is up to date\n", res.HeaderPath)
	return nil
}

type inspectCmd struct {
	ArtifactDir string      `arg:"" type:"existingdir" help:"Directory holding type description artifacts."`
	Select      selectFlags `embed:""`
}

func (c *inspectCmd) Run(e *env) error {
	opts := config.Options{
		OutputDir:         c.ArtifactDir,
		Only:              c.Select.Only,
		LegacySuffixMatch: c.Select.LegacySuffixMatch,
		Jobs:              c.Select.Jobs,
	}
	g := &pipeline.Generator{Logger: e.logger}
	report, err := g.Inspect(e.ctx, opts)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(e.stdout, toon.Encode(report))
	return nil
}
