// Package provider runs the external schema generator that turns a
// package's interface sources into type-description artifacts.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Pico-ROS/picoros-typegen/internal/model"
)

// Request describes one package generation.
type Request struct {
	Package model.Package
	// Prior holds the packages generated before this one, in order. Their
	// artifacts are the only ones the generator may resolve references to.
	Prior  []model.Manifest
	OutDir string
}

// Provider produces artifacts for a single package.
type Provider interface {
	Generate(ctx context.Context, req Request) error
}

// Error reports a failed package generation.
type Error struct {
	Package string
	Stderr  string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("generating %s: %v", e.Package, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExitCode returns the generator's exit status, or -1 if it did not exit
// normally.
func (e *Error) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// Noop generates nothing. It is used when artifacts already exist.
type Noop struct{}

func (Noop) Generate(context.Context, Request) error { return nil }

// StockGenerator is the rosidl type description generator. It reads .idl
// files only, so .msg and .srv sources need a wrapper that converts them
// first.
const StockGenerator = "rosidl_generator_type_description"

// Command invokes an external generator executable once per package with
// a generator-arguments file.
type Command struct {
	// Path is the executable; Args are placed before the arguments flag.
	Path string
	Args []string
	// IDLOnly refuses packages with .msg or .srv sources instead of handing
	// them to a generator that cannot read them.
	IDLOnly bool
	// TemplateDir is passed through to the generator untouched.
	TemplateDir string
	// Env entries (KEY=VALUE) are added to the child's environment only.
	Env []string
}

// arguments is the generator-arguments file layout.
type arguments struct {
	PackageName              string   `json:"package_name"`
	OutputDir                string   `json:"output_dir"`
	TemplateDir              string   `json:"template_dir"`
	IDLTuples                []string `json:"idl_tuples"`
	IncludePaths             []string `json:"include_paths"`
	ROSInterfaceDependencies []string `json:"ros_interface_dependencies"`
	TargetDependencies       []string `json:"target_dependencies"`
}

func (c *Command) Generate(ctx context.Context, req Request) error {
	name := req.Package.Manifest.Name
	if c.IDLOnly {
		if src := firstNonIDL(req.Package.Sources); src != "" {
			return &Error{Package: name, Err: fmt.Errorf(
				"%s reads only .idl sources, %s needs a --generator that converts .msg and .srv files",
				filepath.Base(c.Path), filepath.Base(src))}
		}
	}
	outDir, err := filepath.Abs(req.OutDir)
	if err != nil {
		return &Error{Package: name, Err: err}
	}

	args := arguments{
		PackageName:              name,
		OutputDir:                outDir,
		TemplateDir:              c.TemplateDir,
		IDLTuples:                idlTuples(req.Package),
		IncludePaths:             make([]string, 0, len(req.Prior)),
		ROSInterfaceDependencies: []string{},
		TargetDependencies:       []string{},
	}
	for _, m := range req.Prior {
		args.IncludePaths = append(args.IncludePaths, m.Name+":"+outDir)
	}

	argsFile, err := writeArguments(outDir, args)
	if err != nil {
		return &Error{Package: name, Err: err}
	}
	defer os.Remove(argsFile)

	cmdArgs := append(append([]string{}, c.Args...), "--generator-arguments-file", argsFile)
	cmd := exec.CommandContext(ctx, c.Path, cmdArgs...)
	cmd.Dir = req.Package.Manifest.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &Error{Package: name, Stderr: stderr.String(), Err: err}
	}
	return nil
}

func firstNonIDL(sources []string) string {
	for _, src := range sources {
		if filepath.Ext(src) != ".idl" {
			return src
		}
	}
	return ""
}

// idlTuples lists the package's sources as "prefix:relative" pairs rooted at
// the package directory.
func idlTuples(pkg model.Package) []string {
	tuples := make([]string, 0, len(pkg.Sources))
	for _, src := range pkg.Sources {
		rel, err := filepath.Rel(pkg.Manifest.Dir, src)
		if err != nil || strings.HasPrefix(rel, "..") {
			tuples = append(tuples, filepath.Dir(src)+":"+filepath.Base(src))
			continue
		}
		tuples = append(tuples, pkg.Manifest.Dir+":"+filepath.ToSlash(rel))
	}
	return tuples
}

func writeArguments(dir string, args arguments) (string, error) {
	data, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, ".generator-args-*.json")
	if err != nil {
		return "", err
	}
	_, writeErr := f.Write(data)
	closeErr := f.Close()
	if writeErr != nil {
		_ = os.Remove(f.Name())
		return "", writeErr
	}
	if closeErr != nil {
		_ = os.Remove(f.Name())
		return "", closeErr
	}
	return f.Name(), nil
}

// Run generates every package in order. Packages run one at a time since
// each may read artifacts written for the ones before it. The first failure
// aborts the run.
func Run(ctx context.Context, p Provider, pkgs []model.Package, outDir string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	prior := make([]model.Manifest, 0, len(pkgs))
	for _, pkg := range pkgs {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := pkg.Manifest.Name
		logger.Info("generating type descriptions", "package", name, "sources", len(pkg.Sources))

		req := Request{Package: pkg, Prior: append([]model.Manifest(nil), prior...), OutDir: outDir}
		if err := p.Generate(ctx, req); err != nil {
			var perr *Error
			if !errors.As(err, &perr) {
				err = &Error{Package: name, Err: err}
			}
			return err
		}
		logger.Debug("generated type descriptions", "package", name)
		prior = append(prior, pkg.Manifest)
	}
	return nil
}
